// Package testutil provides test fixtures and fake servers.
//
// # Fixtures
//
// JSON fixtures are embedded using go:embed and decoded into API types:
//
//	labs, err := testutil.Labs()
//	inv, err := testutil.Inventory()
//	data, err := testutil.LoadFixture("sessions.json")
//
// # Fake servers
//
// FakeAPI serves the lab REST API from memory, seeded from the fixtures. It
// records every request and can be told to fail a route:
//
//	fake := testutil.NewFakeAPI(t)
//	fake.Fail(http.MethodPost, "/sessions", http.StatusServiceUnavailable)
//	client, _ := api.New(fake.URL())
//
// FakeShell is a websocket endpoint that writes a prompt and echoes frames.
//
// # Test environment
//
// NewTestEnv wires both fakes into an app.App and installs it as
// app.Default for the duration of the test:
//
//	env := testutil.NewTestEnv(t)
//	// run commands; inspect env.API.Requests(), env.Progress, env.Events(id)
package testutil
