package parse

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/wippyai/hostffi/errors"
)

// Parser consumes a prefix of in and returns the remaining input.
type Parser[T any] func(in []byte) (rest []byte, out T, err error)

var (
	// ErrEOF means the input ended before the field was complete.
	ErrEOF = stderrors.New("unexpected end of input")
	// ErrIncomplete means more input may complete the field.
	ErrIncomplete = stderrors.New("incomplete input")
	// ErrTrailing means input remained after a parser ran to completion.
	ErrTrailing = stderrors.New("trailing input")
	// ErrNegative means a parser was asked for a negative length or count.
	ErrNegative = stderrors.New("negative length")
)

// fail wraps a parse failure as an *errors.Error in PhaseParse. The *Error or
// *IncompleteError stays reachable through errors.As.
func fail(kind errors.Kind, field string, cause error) error {
	return &errors.Error{
		Phase: errors.PhaseParse,
		Kind:  kind,
		Path:  []string{field},
		Cause: cause,
	}
}

// Error is a hard parse failure.
type Error struct {
	Err   error
	Field string
	Have  int
	Want  int
}

func (e *Error) Error() string {
	if e.Want != 0 {
		return fmt.Sprintf("parse %s: %v (have %d bytes, want %d)", e.Field, e.Err, e.Have, e.Want)
	}
	return fmt.Sprintf("parse %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IncompleteError reports that a streaming parser ran out of input.
// Needed is the minimum number of additional bytes, or 1 when unknown.
type IncompleteError struct {
	Field  string
	Needed int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("parse %s: need %d more bytes", e.Field, e.Needed)
}

// Is makes errors.Is(err, ErrIncomplete) true.
func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

// IsIncomplete reports whether err asks for more input rather than
// reporting malformed data.
func IsIncomplete(err error) bool {
	return stderrors.Is(err, ErrIncomplete)
}

// Mode selects how running out of input is reported.
type Mode struct {
	streaming bool
}

var (
	// Complete treats the input as the whole message: short input is an
	// *Error wrapping ErrEOF.
	Complete = Mode{}
	// Streaming treats the input as a prefix of a longer stream: short input
	// is an *IncompleteError.
	Streaming = Mode{streaming: true}
)

// IsStreaming reports whether m is the streaming mode.
func (m Mode) IsStreaming() bool {
	return m.streaming
}

func (m Mode) String() string {
	if m.streaming {
		return "streaming"
	}
	return "complete"
}

func (m Mode) short(field string, have, want int) error {
	if m.streaming {
		return fail(errors.KindIncomplete, field, &IncompleteError{Field: field, Needed: want - have})
	}
	return fail(errors.KindOutOfBounds, field, &Error{Field: field, Err: ErrEOF, Have: have, Want: want})
}

func negative(field string, n int) error {
	return fail(errors.KindInvalidInput, field, &Error{Field: field, Err: ErrNegative, Want: n})
}

func (m Mode) take(in []byte, n int, field string) ([]byte, []byte, error) {
	if len(in) < n {
		return in, nil, m.short(field, len(in), n)
	}
	return in[n:], in[:n], nil
}

func (m Mode) U8(in []byte) ([]byte, uint8, error) {
	rest, b, err := m.take(in, 1, "u8")
	if err != nil {
		return in, 0, err
	}
	return rest, b[0], nil
}

func (m Mode) I8(in []byte) ([]byte, int8, error) {
	rest, v, err := m.U8(in)
	return rest, int8(v), err
}

func (m Mode) U16(in []byte) ([]byte, uint16, error) {
	rest, b, err := m.take(in, 2, "u16")
	if err != nil {
		return in, 0, err
	}
	return rest, binary.LittleEndian.Uint16(b), nil
}

func (m Mode) I16(in []byte) ([]byte, int16, error) {
	rest, v, err := m.U16(in)
	return rest, int16(v), err
}

func (m Mode) U32(in []byte) ([]byte, uint32, error) {
	rest, b, err := m.take(in, 4, "u32")
	if err != nil {
		return in, 0, err
	}
	return rest, binary.LittleEndian.Uint32(b), nil
}

func (m Mode) I32(in []byte) ([]byte, int32, error) {
	rest, v, err := m.U32(in)
	return rest, int32(v), err
}

func (m Mode) U64(in []byte) ([]byte, uint64, error) {
	rest, b, err := m.take(in, 8, "u64")
	if err != nil {
		return in, 0, err
	}
	return rest, binary.LittleEndian.Uint64(b), nil
}

func (m Mode) I64(in []byte) ([]byte, int64, error) {
	rest, v, err := m.U64(in)
	return rest, int64(v), err
}

// F16 reads an IEEE-754 half-precision float and widens it to float32.
func (m Mode) F16(in []byte) ([]byte, float32, error) {
	rest, v, err := m.U16(in)
	if err != nil {
		return in, 0, err
	}
	return rest, float16.Frombits(v).Float32(), nil
}

func (m Mode) F32(in []byte) ([]byte, float32, error) {
	rest, v, err := m.U32(in)
	if err != nil {
		return in, 0, err
	}
	return rest, math.Float32frombits(v), nil
}

func (m Mode) F64(in []byte) ([]byte, float64, error) {
	rest, v, err := m.U64(in)
	if err != nil {
		return in, 0, err
	}
	return rest, math.Float64frombits(v), nil
}

// Bool reads one byte; zero is false and anything else is true.
func (m Mode) Bool(in []byte) ([]byte, bool, error) {
	rest, v, err := m.U8(in)
	return rest, v != 0, err
}

// CString reads bytes up to a NUL terminator. The terminator is consumed but
// not returned. The result aliases in.
func (m Mode) CString(in []byte) ([]byte, []byte, error) {
	i := bytes.IndexByte(in, 0)
	if i < 0 {
		if m.streaming {
			return in, nil, fail(errors.KindIncomplete, "cstring", &IncompleteError{Field: "cstring", Needed: 1})
		}
		return in, nil, fail(errors.KindOutOfBounds, "cstring", &Error{Field: "cstring", Err: ErrEOF, Have: len(in)})
	}
	return in[i+1:], in[:i:i], nil
}

// Bytes returns a parser taking exactly n bytes. The result aliases the input.
// A negative n always fails.
func (m Mode) Bytes(n int) Parser[[]byte] {
	return func(in []byte) ([]byte, []byte, error) {
		if n < 0 {
			return in, nil, negative("bytes", n)
		}
		rest, b, err := m.take(in, n, "bytes")
		if err != nil {
			return in, nil, err
		}
		return rest, b, nil
	}
}

// Map applies fn to the output of p.
func Map[T, U any](p Parser[T], fn func(T) U) Parser[U] {
	return func(in []byte) ([]byte, U, error) {
		rest, v, err := p(in)
		if err != nil {
			var zero U
			return in, zero, err
		}
		return rest, fn(v), nil
	}
}

// Tuple holds the outputs of Pair.
type Tuple[A, B any] struct {
	First  A
	Second B
}

// Pair runs a then b.
func Pair[A, B any](a Parser[A], b Parser[B]) Parser[Tuple[A, B]] {
	return func(in []byte) ([]byte, Tuple[A, B], error) {
		var out Tuple[A, B]
		rest, av, err := a(in)
		if err != nil {
			return in, out, err
		}
		rest, bv, err := b(rest)
		if err != nil {
			return in, out, err
		}
		out.First, out.Second = av, bv
		return rest, out, nil
	}
}

// Count runs p exactly n times. A negative n always fails. Capacity is
// bounded by the input length, not by n.
func Count[T any](p Parser[T], n int) Parser[[]T] {
	return func(in []byte) ([]byte, []T, error) {
		if n < 0 {
			return in, nil, negative("count", n)
		}
		out := make([]T, 0, min(n, len(in)))
		rest := in
		for i := 0; i < n; i++ {
			var (
				v   T
				err error
			)
			rest, v, err = p(rest)
			if err != nil {
				return in, nil, err
			}
			out = append(out, v)
		}
		return rest, out, nil
	}
}

// Run applies p to the whole of in. Leftover input is an *Error wrapping
// ErrTrailing.
func Run[T any](p Parser[T], in []byte) (T, error) {
	rest, v, err := p(in)
	if err != nil {
		return v, err
	}
	if len(rest) > 0 {
		var zero T
		return zero, fail(errors.KindInvalidData, "input", &Error{Field: "input", Err: ErrTrailing, Have: len(rest)})
	}
	return v, nil
}
