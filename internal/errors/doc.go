// Package errors provides typed errors with exit codes for labctl.
//
// # Error Types
//
// LabError is the base error type. It carries an exit code, a user-facing
// message, the HTTP status when the failure came from the lab API, and an
// optional wrapped cause:
//
//	type LabError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Status  int    // HTTP status for remote errors, 0 otherwise
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
//	ExitSuccess         = 0  // Success
//	ExitGeneralError    = 1  // General/unknown errors
//	ExitRemote          = 2  // The lab API answered with a non-2xx status
//	ExitTransport       = 3  // Network or websocket failure
//	ExitValidation      = 4  // Bad input
//	ExitNoSession       = 5  // No session could be resolved
//	ExitConfigError     = 6  // Configuration error
//	ExitDecode          = 7  // Response body did not match the expected schema
//	ExitCancelled       = 8  // The user declined a confirmation
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
