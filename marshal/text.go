package marshal

import (
	"unicode/utf8"
	"unsafe"

	"github.com/wippyai/hostffi/buffer"
	"github.com/wippyai/hostffi/errors"
	"github.com/wippyai/hostffi/value"
)

// CString returns the bytes at p up to the NUL terminator, without copying.
// A nil pointer reads as empty.
func CString(p unsafe.Pointer) []byte {
	if p == nil {
		return nil
	}
	n := 0
	for *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return unsafe.Slice((*byte)(p), n)
}

// ArgString copies a text argument into a Go string. Invalid UTF-8 aborts
// the call.
func ArgString(p unsafe.Pointer) string {
	b := CString(p)
	if !utf8.Valid(b) {
		panic(errors.InvalidUTF8(errors.PhaseUnmarshal, nil, b))
	}
	return string(b)
}

// ArgBytes returns a text argument as raw bytes. The slice aliases host memory
// and is only valid during the call.
func ArgBytes(p unsafe.Pointer) []byte {
	return CString(p)
}

// ArgValue decodes a text argument holding a value record. Malformed records
// abort the call.
func ArgValue(p unsafe.Pointer) value.Value {
	v, err := value.Decode(string(CString(p)))
	if err != nil {
		panic(err)
	}
	return v
}

// ArgBuffer treats a text argument as the address of a host buffer.
func ArgBuffer(p unsafe.Pointer) buffer.Buffer {
	return buffer.FromPointer(p)
}

// ReturnString copies s into the default scratch buffer. An embedded NUL
// aborts the call.
func ReturnString(s string) unsafe.Pointer {
	p, err := defaultScratch.ReturnString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ReturnBytes copies b into the default scratch buffer. An embedded NUL
// aborts the call.
func ReturnBytes(b []byte) unsafe.Pointer {
	p, err := defaultScratch.Return(b)
	if err != nil {
		panic(err)
	}
	return p
}

// ReturnValue encodes v as a record into the default scratch buffer.
func ReturnValue(v value.Value) unsafe.Pointer {
	return value.WithRecord(v, ReturnBytes)
}

// Must aborts the call when err is non-nil and otherwise returns v.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(errors.Failed(errors.PhaseCall, err))
	}
	return v
}

// MustOK aborts the call when err is non-nil.
func MustOK(err error) {
	if err != nil {
		panic(errors.Failed(errors.PhaseCall, err))
	}
}
