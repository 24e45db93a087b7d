// Package admin implements the operator's view over every lab session.
//
// A Browser holds the latest stats and session list, plus a lazily fetched
// resource inventory per expanded session. Refreshes may overlap; each
// one is numbered when it starts and a response older than the last one
// applied is dropped, so a slow request never overwrites fresher data.
//
// Sessions are split into active and history purely by status. History is
// read-only: it cannot be expanded and its resources cannot be deleted.
// Destructive actions ask a prompt.Confirmer before any request is sent.
package admin
