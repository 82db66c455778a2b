// Package errors provides coded, structured errors for the console
// controllers.
//
// Every failure a controller can surface maps to a registered code:
//   - input: malformed widget state read from the page (E100-E109)
//   - registry: widget mount and dispatch problems (E110-E119)
//   - transport: failed or rejected requests to the fragment service (E120-E129)
//   - config: invalid configuration (E130-E139)
//
// # Usage
//
//	err := errors.New("E100").
//	    WithDetail(`attribute "max" is "ten"`).
//	    Wrap(parseErr)
//
//	fmt.Println(err.FormatCompact())
//	// E100: Malformed widget state
//
// Errors created here support errors.Is against other coded errors with the
// same code, and errors.As to *Error.
package errors
