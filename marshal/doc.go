// Package marshal converts Go values to and from the two boundary primitives.
//
// Numbers cross as float64. Integer arguments truncate toward zero and abort
// on NaN or out-of-range values; bool is 1 or 0 going out and nonzero coming
// in. Text crosses as a pointer to NUL-terminated bytes: string arguments are
// copied and must be valid UTF-8, []byte arguments alias host memory for the
// duration of the call, value.Value arguments are decoded records and
// buffer.Buffer arguments are host buffer addresses.
//
// Text results are copied into a Scratch buffer that is overwritten by the
// next text result:
//
//	p := marshal.ReturnString("hello") // valid until the next Return*
//
// Conversion failures panic with an *errors.Error. The bridge fault barrier
// recovers them and substitutes Default for the declared result kind.
package marshal
