// Package errors provides structured error types for the hostffi packages.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries a field path, the Go type and boundary kind involved,
// the offending value and a cause chain.
//
// Marshaling failures are raised as panics carrying an *Error and recovered by
// the bridge fault barrier, so callers mostly see these values in logs and in
// bridge.LastFault.
//
//	err := errors.New(errors.PhaseUnmarshal, errors.KindOverflow).
//		Path("add", "arg0").
//		GoType("int8").
//		Boundary("number").
//		Detail("value 300 does not fit").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.EmbeddedNul(errors.PhaseMarshal, path, 3)
//	err := errors.OutOfBounds(errors.PhaseBuffer, path, 10, 5)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
