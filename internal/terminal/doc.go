// Package terminal bridges one rendered terminal to a remote sandbox shell.
//
// A Bridge owns at most one link at a time: a streaming connection to the
// shell, the Surface it renders into, and the resize Observer watching that
// surface. Its lifecycle is
//
//	Unbound → Resolving → Connecting → Connected → Closed
//
// Resolution takes the session id given directly, or reads it from the
// navigable address (the sessionId query parameter), retrying the address
// once after RetryDelay. When no id turns up the surface shows an inert
// notice and no connection is attempted.
//
// Once connected, Input forwards keystrokes and every inbound frame is
// written verbatim followed by a scroll to the bottom. Commands published on
// the injection channel are sent only while connected and dropped
// otherwise. A closed or failed connection is reported in the terminal and
// is never retried.
//
// Unmount tears down the observer, the connection and the surface in that
// order, each unconditionally, and invalidates every pending callback from
// the old link.
package terminal
