package marshal

import (
	"math"
	"reflect"
	"unsafe"

	"github.com/wippyai/hostffi/errors"
)

// Integer is any type whose values cross the boundary as a truncated number.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Float is any floating point type.
type Float interface {
	~float32 | ~float64
}

// ArgInteger converts a number argument to T, truncating toward zero.
// NaN, infinities and values outside T's range abort the call.
func ArgInteger[T Integer](f float64) T {
	var zero T
	bits := int(unsafe.Sizeof(zero)) * 8
	signed := ^zero < 0

	t := math.Trunc(f)
	var lo, hi float64
	if signed {
		lo, hi = -math.Ldexp(1, bits-1), math.Ldexp(1, bits-1)
	} else {
		lo, hi = 0, math.Ldexp(1, bits)
	}
	if math.IsNaN(f) || t < lo || t >= hi {
		panic(errors.Overflow(errors.PhaseUnmarshal, nil, f, reflect.TypeOf(zero).String()))
	}

	if signed {
		return T(int64(t))
	}
	return T(uint64(t))
}

// ArgFloat converts a number argument to T. float32 targets lose precision.
func ArgFloat[T Float](f float64) T {
	return T(f)
}

// ReturnInteger converts an integer result to a number. Magnitudes above
// 2^53 lose precision.
func ReturnInteger[T Integer](v T) float64 {
	return float64(v)
}

// ReturnFloat converts a float result to a number.
func ReturnFloat[T Float](v T) float64 {
	return float64(v)
}

func ArgInt(f float64) int         { return ArgInteger[int](f) }
func ArgInt8(f float64) int8       { return ArgInteger[int8](f) }
func ArgInt16(f float64) int16     { return ArgInteger[int16](f) }
func ArgInt32(f float64) int32     { return ArgInteger[int32](f) }
func ArgInt64(f float64) int64     { return ArgInteger[int64](f) }
func ArgUint(f float64) uint       { return ArgInteger[uint](f) }
func ArgUint8(f float64) uint8     { return ArgInteger[uint8](f) }
func ArgUint16(f float64) uint16   { return ArgInteger[uint16](f) }
func ArgUint32(f float64) uint32   { return ArgInteger[uint32](f) }
func ArgUint64(f float64) uint64   { return ArgInteger[uint64](f) }
func ArgUintptr(f float64) uintptr { return ArgInteger[uintptr](f) }
func ArgFloat32(f float64) float32 { return float32(f) }
func ArgFloat64(f float64) float64 { return f }

// ArgBool treats any nonzero number, NaN included, as true.
func ArgBool(f float64) bool { return f != 0 }

func ReturnInt(v int) float64         { return float64(v) }
func ReturnInt8(v int8) float64       { return float64(v) }
func ReturnInt16(v int16) float64     { return float64(v) }
func ReturnInt32(v int32) float64     { return float64(v) }
func ReturnInt64(v int64) float64     { return float64(v) }
func ReturnUint(v uint) float64       { return float64(v) }
func ReturnUint8(v uint8) float64     { return float64(v) }
func ReturnUint16(v uint16) float64   { return float64(v) }
func ReturnUint32(v uint32) float64   { return float64(v) }
func ReturnUint64(v uint64) float64   { return float64(v) }
func ReturnUintptr(v uintptr) float64 { return float64(v) }
func ReturnFloat32(v float32) float64 { return float64(v) }
func ReturnFloat64(v float64) float64 { return v }

// ReturnBool maps true to 1 and false to 0.
func ReturnBool(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// ReturnUnit is the number returned by functions without a result.
func ReturnUnit() float64 { return 0 }
