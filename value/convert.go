package value

import (
	"fmt"
	"math"
	"reflect"

	"github.com/wippyai/hostffi/errors"
)

var valueType = reflect.TypeOf((*Value)(nil)).Elem()

// FromGo converts a Go value into a Value.
//
// Integers become Int, floats Float, strings String, []byte Bytes, slices and
// arrays Array, string-keyed maps and structs Struct. Nil pointers and nil
// interfaces become Null. Exported struct fields are keyed by their Go name
// unless a `hostffi:"name"` tag says otherwise; `hostffi:"-"` skips a field.
func FromGo(v any) (Value, error) {
	if v == nil {
		return Null{}, nil
	}
	if vv, ok := v.(Value); ok {
		return vv, nil
	}
	return fromReflect(reflect.ValueOf(v), nil)
}

func fromReflect(rv reflect.Value, path []string) (Value, error) {
	if !rv.IsValid() {
		return Null{}, nil
	}
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return Null{}, nil
	}
	if rv.Kind() != reflect.Pointer && rv.Type().Implements(valueType) {
		return rv.Interface().(Value), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, errors.Overflow(errors.PhaseCodec, path, u, "int64")
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		return fromReflect(rv.Elem(), path)
	case reflect.Slice:
		if rv.IsNil() && rv.Type().Elem().Kind() != reflect.Uint8 {
			return Array(nil), nil
		}
		fallthrough
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return Bytes(b), nil
		}
		arr := make(Array, rv.Len())
		for i := range arr {
			e, err := fromReflect(rv.Index(i), append(path[:len(path):len(path)], fmt.Sprintf("[%d]", i)))
			if err != nil {
				return nil, err
			}
			arr[i] = e
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, errors.TypeMismatch(errors.PhaseCodec, path, rv.Type().String(), "struct")
		}
		st := make(Struct, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			e, err := fromReflect(iter.Value(), append(path[:len(path):len(path)], k))
			if err != nil {
				return nil, err
			}
			st[k] = e
		}
		return st, nil
	case reflect.Struct:
		rt := rv.Type()
		st := make(Struct, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag, ok := f.Tag.Lookup("hostffi"); ok {
				if tag == "-" {
					continue
				}
				if tag != "" {
					name = tag
				}
			}
			e, err := fromReflect(rv.Field(i), append(path[:len(path):len(path)], name))
			if err != nil {
				return nil, err
			}
			st[name] = e
		}
		return st, nil
	}

	return nil, errors.New(errors.PhaseCodec, errors.KindUnsupported).
		Path(path...).
		GoType(rv.Type().String()).
		Detail("no value representation").
		Build()
}

// ToGo converts v into plain Go values: nil, int64, float64, bool, string,
// []byte, []any and map[string]any.
func ToGo(v Value) any {
	switch tv := v.(type) {
	case nil, Null:
		return nil
	case Int:
		return int64(tv)
	case Float:
		return float64(tv)
	case Bool:
		return bool(tv)
	case String:
		return string(tv)
	case Bytes:
		return []byte(tv)
	case Array:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = ToGo(e)
		}
		return out
	case Struct:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = ToGo(e)
		}
		return out
	}
	return nil
}
