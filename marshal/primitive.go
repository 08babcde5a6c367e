package marshal

import (
	"strconv"
	"unsafe"

	"github.com/wippyai/hostffi"
	"github.com/wippyai/hostffi/buffer"
	"github.com/wippyai/hostffi/errors"
)

// Primitive is a value as it crosses the boundary.
type Primitive struct {
	Text   unsafe.Pointer
	region buffer.Buffer
	Number float64
	Kind   hostffi.Kind
}

// Number makes a number primitive.
func Number(f float64) Primitive {
	return Primitive{Kind: hostffi.KindNumber, Number: f}
}

// Text makes a text primitive from a pointer to NUL-terminated bytes.
func Text(p unsafe.Pointer) Primitive {
	return Primitive{Kind: hostffi.KindText, Text: p}
}

// Region makes a text primitive carrying an already bounded buffer, for
// transports such as guest memory where a raw address must not be trusted.
// Buffer parameters decode to b itself; other text parameters read Text,
// which is b.Pointer().
func Region(b buffer.Buffer) Primitive {
	return Primitive{Kind: hostffi.KindText, Text: b.Pointer(), region: b}
}

// String renders the primitive for logs. Text is read up to its terminator.
func (p Primitive) String() string {
	if p.Kind == hostffi.KindText {
		return strconv.Quote(string(CString(p.Text)))
	}
	return strconv.FormatFloat(p.Number, 'g', -1, 64)
}

// Default returns the value substituted for a faulted call: 0.0 for numbers
// and an empty string, held in the default scratch buffer, for text. If the
// scratch buffer cannot be allocated the empty string is the terminator the
// allocator reserved up front.
func Default(kind hostffi.Kind) Primitive {
	if kind == hostffi.KindText {
		return Text(defaultScratch.EmptyOrStatic())
	}
	return Number(0)
}

func (p Primitive) number(path []string) float64 {
	if p.Kind != hostffi.KindNumber {
		panic(errors.TypeMismatch(errors.PhaseUnmarshal, path, "float64", p.Kind.String()))
	}
	return p.Number
}

func (p Primitive) text(path []string) unsafe.Pointer {
	if p.Kind != hostffi.KindText {
		panic(errors.TypeMismatch(errors.PhaseUnmarshal, path, "*C.char", p.Kind.String()))
	}
	return p.Text
}
