// Package parse provides little-endian field parsers for binary payloads read
// from host buffers.
//
// Every parser exists in two modes. Complete treats the input as the whole
// message, so running out of bytes is a hard *Error wrapping ErrEOF.
// Streaming treats the input as a prefix of a longer stream and reports an
// *IncompleteError instead, so the caller can read more and retry:
//
//	rest, n, err := parse.Streaming.U16(buf)
//	if parse.IsIncomplete(err) {
//		// buffer more input and call again
//	}
//
// Failures are *errors.Error values in errors.PhaseParse whose Cause is the
// *Error or *IncompleteError, so errors.Is and errors.As reach both.
//
// Mode methods have the Parser signature and compose with Map, Pair, Count
// and Run. On failure a parser returns its input unconsumed.
package parse
