// Package logging provides logging utilities for labctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("dialing shell", "session", id, "url", url)
//	logging.Warn("injected command dropped", "state", state)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Starting lab %s...", labID)
//	logging.UserSuccess("Manifest applied to %s", namespace)
//	logging.UserWarning("Session %s expires in %s", id, left)
//	logging.UserError("Failed to terminate session: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// Full-screen TUIs call RedirectToFile so debug logs go to the state
// directory instead of the terminal.
//
// # Status Indicators
//
// User functions prepend status indicators:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
