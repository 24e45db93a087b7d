// Package api is the client for the lab platform's REST API.
//
// Client.Do issues one authenticated JSON request. It attaches the bearer
// token from a TokenSource when one is available, tags the request with a
// fresh X-Request-ID, and decodes the response into an explicit schema.
// Non-2xx responses become errors.Remote carrying the server's "detail"
// text, or the HTTP status text when the body has none. A 2xx body that
// does not match its schema fails with errors.Decode. The client never
// retries; callers decide.
//
// The typed endpoint helpers (ListLabs, CreateSession, SessionResources,
// ...) cover every route the console uses.
package api
