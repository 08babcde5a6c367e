package bridge

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/hostffi"
	"github.com/wippyai/hostffi/errors"
	"github.com/wippyai/hostffi/marshal"
)

var lastFault error

// CallNumber runs fn and returns its result. If fn panics, the panic is
// logged, recorded for LastFault and 0 is returned instead.
func CallNumber(name string, fn func() float64) (out float64) {
	defer func() {
		if r := recover(); r != nil {
			fault(name, r)
			out = marshal.Default(hostffi.KindNumber).Number
		}
	}()
	return fn()
}

// CallText runs fn and returns its result. If fn panics, the panic is logged,
// recorded for LastFault and an empty string from the scratch buffer is
// returned instead.
func CallText(name string, fn func() unsafe.Pointer) (out unsafe.Pointer) {
	defer func() {
		if r := recover(); r != nil {
			fault(name, r)
			out = marshal.Default(hostffi.KindText).Text
		}
	}()
	return fn()
}

func fault(name string, r any) {
	err := errors.FromPanic(errors.PhaseCall, r)
	lastFault = &errors.Error{
		Phase:  errors.PhaseCall,
		Kind:   errors.KindFailed,
		Path:   []string{name},
		Detail: "call aborted",
		Cause:  err,
	}
	Logger().Warn("exported call aborted",
		zap.String("function", name),
		zap.Any("panic", r),
		zap.Error(err),
	)
}

// LastFault returns the most recent fault, or nil. It is not reset by
// successful calls.
func LastFault() error {
	return lastFault
}

// LastFaultMessage returns the most recent fault message, or "".
func LastFaultMessage() string {
	if lastFault == nil {
		return ""
	}
	return lastFault.Error()
}

// ClearFault forgets the recorded fault.
func ClearFault() {
	lastFault = nil
}
