package value

import (
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Tag is the leading field of an encoded record.
type Tag byte

const (
	TagNull   Tag = '!'
	TagInt    Tag = '0'
	TagFloat  Tag = '1'
	TagBool   Tag = '2'
	TagString Tag = '3'
	TagBytes  Tag = '4'
	TagArray  Tag = '5'
	TagStruct Tag = '6'
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagBool:
		return "bool"
	case TagString:
		return "string"
	case TagBytes:
		return "bytes"
	case TagArray:
		return "array"
	case TagStruct:
		return "struct"
	default:
		return "tag(" + strconv.Quote(string(rune(t))) + ")"
	}
}

// Value is a dynamically typed payload carried inside a text primitive.
// The set of implementations is closed.
type Value interface {
	Tag() Tag
	String() string
	isValue()
}

type (
	// Null is the absent value.
	Null struct{}
	// Int is a signed 64-bit integer.
	Int int64
	// Float is an IEEE-754 double.
	Float float64
	// Bool is a boolean.
	Bool bool
	// String is text. It may hold arbitrary bytes; bytes that are not
	// valid UTF-8 are replaced with U+FFFD when the record is decoded.
	String string
	// Bytes is an opaque binary blob.
	Bytes []byte
	// Array is an ordered sequence.
	Array []Value
	// Struct maps names to values. Entry order carries no meaning.
	Struct map[string]Value
)

func (Null) Tag() Tag   { return TagNull }
func (Int) Tag() Tag    { return TagInt }
func (Float) Tag() Tag  { return TagFloat }
func (Bool) Tag() Tag   { return TagBool }
func (String) Tag() Tag { return TagString }
func (Bytes) Tag() Tag  { return TagBytes }
func (Array) Tag() Tag  { return TagArray }
func (Struct) Tag() Tag { return TagStruct }

func (Null) isValue()   {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (Bool) isValue()   {}
func (String) isValue() {}
func (Bytes) isValue()  {}
func (Array) isValue()  {}
func (Struct) isValue() {}

func (Null) String() string { return "null" }

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

func (v Float) String() string { return string(appendFloat(nil, float64(v))) }

func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

func (v String) String() string { return strconv.Quote(string(v)) }

func (v Bytes) String() string {
	return "bytes(" + strconv.Itoa(len(v)) + ")[" + hex.EncodeToString(v) + "]"
}

func (v Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range v {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(str(e))
	}
	b.WriteByte(']')
	return b.String()
}

func (v Struct) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range v.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(str(v[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// Keys returns the struct's names in sorted order.
func (v Struct) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func str(v Value) string {
	if v == nil {
		return "null"
	}
	return v.String()
}

// Equal reports whether a and b have the same structure and content.
// A nil Value equals Null, NaN equals NaN, and nil Bytes equal empty Bytes.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	if a.Tag() != b.Tag() {
		return false
	}

	switch av := a.(type) {
	case Null:
		return true
	case Int:
		return av == b.(Int)
	case Float:
		bv := b.(Float)
		if math.IsNaN(float64(av)) {
			return math.IsNaN(float64(bv))
		}
		return math.Float64bits(float64(av)) == math.Float64bits(float64(bv))
	case Bool:
		return av == b.(Bool)
	case String:
		return av == b.(String)
	case Bytes:
		return string(av) == string(b.(Bytes))
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Struct:
		bv := b.(Struct)
		if len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, ok := bv[k]
			if !ok || !Equal(ae, be) {
				return false
			}
		}
		return true
	}
	return false
}
