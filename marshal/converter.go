package marshal

import (
	"reflect"
	"sort"

	"github.com/wippyai/hostffi"
	"github.com/wippyai/hostffi/buffer"
	"github.com/wippyai/hostffi/value"
)

// Converter pairs a Go type with its boundary kind. Generated code refers to
// the conversion functions by name; the runtime registry uses Decode and
// Encode through reflection.
type Converter struct {
	Type   reflect.Type
	Decode func(Primitive) reflect.Value
	Encode func(reflect.Value) Primitive

	// Name is the type as go/types prints it with full import paths.
	Name string
	// ArgFunc and ReturnFunc name the marshal functions that convert a
	// parameter or result. Empty means the direction is not supported.
	ArgFunc    string
	ReturnFunc string
	Kind       hostffi.Kind
}

// CanArg reports whether the type is accepted as a parameter.
func (c Converter) CanArg() bool { return c.ArgFunc != "" }

// CanReturn reports whether the type is accepted as a result.
func (c Converter) CanReturn() bool { return c.ReturnFunc != "" }

var (
	byName = map[string]Converter{}
	byType = map[reflect.Type]Converter{}
	byKind = map[reflect.Kind]Converter{}
)

func register(c Converter) {
	byName[c.Name] = c
	byType[c.Type] = c
	if c.Type.PkgPath() == "" {
		switch k := c.Type.Kind(); k {
		case reflect.Slice, reflect.Interface, reflect.Struct:
		default:
			byKind[k] = c
		}
	}
}

func numberConverter[T any](argName, retName string, arg func(float64) T, ret func(T) float64) Converter {
	t := reflect.TypeFor[T]()
	return Converter{
		Type: t,
		Name: t.String(),
		Kind: hostffi.KindNumber,
		Decode: func(p Primitive) reflect.Value {
			return reflect.ValueOf(arg(p.number(nil)))
		},
		Encode: func(v reflect.Value) Primitive {
			return Number(ret(v.Interface().(T)))
		},
		ArgFunc:    argName,
		ReturnFunc: retName,
	}
}

func init() {
	register(numberConverter("ArgInt", "ReturnInt", ArgInt, ReturnInt))
	register(numberConverter("ArgInt8", "ReturnInt8", ArgInt8, ReturnInt8))
	register(numberConverter("ArgInt16", "ReturnInt16", ArgInt16, ReturnInt16))
	register(numberConverter("ArgInt32", "ReturnInt32", ArgInt32, ReturnInt32))
	register(numberConverter("ArgInt64", "ReturnInt64", ArgInt64, ReturnInt64))
	register(numberConverter("ArgUint", "ReturnUint", ArgUint, ReturnUint))
	register(numberConverter("ArgUint8", "ReturnUint8", ArgUint8, ReturnUint8))
	register(numberConverter("ArgUint16", "ReturnUint16", ArgUint16, ReturnUint16))
	register(numberConverter("ArgUint32", "ReturnUint32", ArgUint32, ReturnUint32))
	register(numberConverter("ArgUint64", "ReturnUint64", ArgUint64, ReturnUint64))
	register(numberConverter("ArgUintptr", "ReturnUintptr", ArgUintptr, ReturnUintptr))
	register(numberConverter("ArgFloat32", "ReturnFloat32", ArgFloat32, ReturnFloat32))
	register(numberConverter("ArgFloat64", "ReturnFloat64", ArgFloat64, ReturnFloat64))
	register(numberConverter("ArgBool", "ReturnBool", ArgBool, ReturnBool))

	register(Converter{
		Type: reflect.TypeFor[string](),
		Name: "string",
		Kind: hostffi.KindText,
		Decode: func(p Primitive) reflect.Value {
			return reflect.ValueOf(ArgString(p.text(nil)))
		},
		Encode: func(v reflect.Value) Primitive {
			return Text(ReturnString(v.String()))
		},
		ArgFunc:    "ArgString",
		ReturnFunc: "ReturnString",
	})

	register(Converter{
		Type: reflect.TypeFor[[]byte](),
		Name: "[]byte",
		Kind: hostffi.KindText,
		Decode: func(p Primitive) reflect.Value {
			return reflect.ValueOf(ArgBytes(p.text(nil)))
		},
		Encode: func(v reflect.Value) Primitive {
			return Text(ReturnBytes(v.Bytes()))
		},
		ArgFunc:    "ArgBytes",
		ReturnFunc: "ReturnBytes",
	})

	valueType := reflect.TypeFor[value.Value]()
	register(Converter{
		Type: valueType,
		Name: valueType.PkgPath() + "." + valueType.Name(),
		Kind: hostffi.KindText,
		Decode: func(p Primitive) reflect.Value {
			rv := reflect.New(valueType).Elem()
			if v := ArgValue(p.text(nil)); v != nil {
				rv.Set(reflect.ValueOf(v))
			}
			return rv
		},
		Encode: func(v reflect.Value) Primitive {
			vv, _ := v.Interface().(value.Value)
			return Text(ReturnValue(vv))
		},
		ArgFunc:    "ArgValue",
		ReturnFunc: "ReturnValue",
	})

	bufferType := reflect.TypeFor[buffer.Buffer]()
	register(Converter{
		Type: bufferType,
		Name: bufferType.PkgPath() + "." + bufferType.Name(),
		Kind: hostffi.KindText,
		Decode: func(p Primitive) reflect.Value {
			text := p.text(nil)
			if !p.region.IsNil() {
				return reflect.ValueOf(p.region)
			}
			return reflect.ValueOf(ArgBuffer(text))
		},
		ArgFunc: "ArgBuffer",
	})
}

// Lookup finds the converter for a type name as go/types prints it, for
// example "int32", "[]byte" or "github.com/wippyai/hostffi/value.Value".
func Lookup(name string) (Converter, bool) {
	c, ok := byName[name]
	return c, ok
}

// LookupType finds the converter for t. Named types whose underlying type is
// a supported basic type or []byte convert through that type.
func LookupType(t reflect.Type) (Converter, bool) {
	if c, ok := byType[t]; ok {
		return c, true
	}

	var base Converter
	switch {
	case t.Kind() == reflect.Slice && t.Elem() == reflect.TypeFor[byte]():
		base = byType[reflect.TypeFor[[]byte]()]
	default:
		c, ok := byKind[t.Kind()]
		if !ok {
			return Converter{}, false
		}
		base = c
	}

	c := base
	c.Type = t
	c.Name = t.String()
	if base.Decode != nil {
		c.Decode = func(p Primitive) reflect.Value {
			return base.Decode(p).Convert(t)
		}
	}
	if base.Encode != nil {
		c.Encode = func(v reflect.Value) Primitive {
			return base.Encode(v.Convert(base.Type))
		}
	}
	return c, true
}

// Converters lists the built-in converters sorted by name.
func Converters() []Converter {
	out := make([]Converter, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
