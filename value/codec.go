package value

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/wippyai/hostffi/errors"
)

// MaxCount bounds the element count a record may declare.
const MaxCount = 1 << 27

const sep = ':'

var b64 = base64.StdEncoding

const (
	poolMaxCap  = 64 << 10
	poolInitCap = 256
)

var recordPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, poolInitCap)
		return &buf
	},
}

func getRecord() *[]byte {
	return recordPool.Get().(*[]byte)
}

func putRecord(buf *[]byte) {
	if buf == nil || cap(*buf) > poolMaxCap {
		return
	}
	*buf = (*buf)[:0]
	recordPool.Put(buf)
}

// Encode returns the text record for v. A nil v encodes as Null.
func Encode(v Value) string {
	return string(Append(nil, v))
}

// WithRecord encodes v into a pooled buffer and returns fn applied to it.
// The record is only valid during fn.
func WithRecord[T any](v Value, fn func(rec []byte) T) T {
	rec := getRecord()
	defer putRecord(rec)
	*rec = Append(*rec, v)
	return fn(*rec)
}

// Append appends the text record for v to dst.
//
// Struct entries are written in sorted key order so equal values always
// produce identical records.
func Append(dst []byte, v Value) []byte {
	if v == nil {
		return append(dst, byte(TagNull))
	}

	switch tv := v.(type) {
	case Null:
		return append(dst, byte(TagNull))
	case Int:
		dst = append(dst, byte(TagInt), sep)
		return strconv.AppendInt(dst, int64(tv), 10)
	case Float:
		dst = append(dst, byte(TagFloat), sep)
		return appendFloat(dst, float64(tv))
	case Bool:
		dst = append(dst, byte(TagBool), sep)
		if tv {
			return append(dst, '1')
		}
		return append(dst, '0')
	case String:
		dst = append(dst, byte(TagString), sep)
		return b64.AppendEncode(dst, []byte(tv))
	case Bytes:
		dst = append(dst, byte(TagBytes), sep)
		return b64.AppendEncode(dst, tv)
	case Array:
		dst = append(dst, byte(TagArray), sep)
		return appendElems(dst, tv)
	case Struct:
		dst = append(dst, byte(TagStruct), sep)
		dst = strconv.AppendInt(dst, int64(len(tv)), 10)
		for _, k := range tv.Keys() {
			dst = append(dst, sep)
			dst = b64.AppendEncode(dst, []byte(k))
			dst = append(dst, sep)
			dst = appendNested(dst, tv[k])
		}
		return dst
	}
	return append(dst, byte(TagNull))
}

// appendElems writes "<count>(:<b64 record>)*".
func appendElems(dst []byte, vs []Value) []byte {
	dst = strconv.AppendInt(dst, int64(len(vs)), 10)
	for _, e := range vs {
		dst = append(dst, sep)
		dst = appendNested(dst, e)
	}
	return dst
}

func appendNested(dst []byte, v Value) []byte {
	rec := getRecord()
	*rec = Append(*rec, v)
	dst = b64.AppendEncode(dst, *rec)
	putRecord(rec)
	return dst
}

// appendFloat writes the shortest decimal that parses back to f, never in
// exponent form, with NaN and infinities spelled NaN, inf and -inf.
func appendFloat(dst []byte, f float64) []byte {
	switch {
	case math.IsNaN(f):
		return append(dst, "NaN"...)
	case math.IsInf(f, 1):
		return append(dst, "inf"...)
	case math.IsInf(f, -1):
		return append(dst, "-inf"...)
	}
	return strconv.AppendFloat(dst, f, 'f', -1, 64)
}

// EncodeList frames a sequence of values as "<count>(:<b64 record>)*".
// This is the body of an Array record without its tag.
func EncodeList(vs []Value) string {
	return string(appendElems(nil, vs))
}

// Decoder parses text records.
type Decoder struct {
	// Strict rejects unknown or empty tags and trailing fields. When false,
	// unknown tags decode as Null and trailing fields are ignored.
	Strict bool
}

// Decode parses a record with the lenient default decoder.
func Decode(s string) (Value, error) {
	return Decoder{}.Decode(s)
}

// DecodeList parses a list framed by EncodeList with the lenient decoder.
func DecodeList(s string) ([]Value, error) {
	return Decoder{}.DecodeList(s)
}

// Decode parses a single record.
func (d Decoder) Decode(s string) (Value, error) {
	return d.decode(s, nil)
}

// DecodeList parses a list framed by EncodeList.
func (d Decoder) DecodeList(s string) ([]Value, error) {
	r := fieldReader{rest: s}
	vs, err := d.decodeElems(&r, nil)
	if err != nil {
		return nil, err
	}
	if d.Strict && !r.done {
		return nil, trailing(nil)
	}
	return vs, nil
}

func (d Decoder) decode(s string, path []string) (Value, error) {
	r := fieldReader{rest: s}
	tag, _ := r.next()

	var (
		v   Value
		err error
	)
	switch tag {
	case "!":
		v = Null{}
	case "0":
		v, err = decodeInt(&r, path)
	case "1":
		v, err = decodeFloat(&r, path)
	case "2":
		v, err = decodeBool(&r, path)
	case "3":
		var raw []byte
		raw, err = decodeB64(&r, path)
		v = String(lossy(raw))
	case "4":
		var raw []byte
		raw, err = decodeB64(&r, path)
		v = Bytes(raw)
	case "5":
		var vs []Value
		vs, err = d.decodeElems(&r, path)
		v = Array(vs)
	case "6":
		v, err = d.decodeStruct(&r, path)
	default:
		if d.Strict {
			return nil, errors.InvalidTag(errors.PhaseCodec, path, tag)
		}
		return Null{}, nil
	}
	if err != nil {
		return nil, err
	}

	if d.Strict && !r.done {
		return nil, trailing(path)
	}
	return v, nil
}

func (d Decoder) decodeElems(r *fieldReader, path []string) ([]Value, error) {
	n, err := decodeCount(r, path)
	if err != nil {
		return nil, err
	}

	vs := make([]Value, 0, min(n, 64))
	for i := 0; i < n; i++ {
		elemPath := append(path[:len(path):len(path)], "["+strconv.Itoa(i)+"]")
		raw, err := decodeB64(r, elemPath)
		if err != nil {
			return nil, err
		}
		e, err := d.decode(lossy(raw), elemPath)
		if err != nil {
			return nil, err
		}
		vs = append(vs, e)
	}
	return vs, nil
}

func (d Decoder) decodeStruct(r *fieldReader, path []string) (Value, error) {
	n, err := decodeCount(r, path)
	if err != nil {
		return nil, err
	}

	st := make(Struct, min(n, 64))
	for i := 0; i < n; i++ {
		rawName, err := decodeB64(r, path)
		if err != nil {
			return nil, err
		}
		name := lossy(rawName)
		fieldPath := append(path[:len(path):len(path)], name)

		raw, err := decodeB64(r, fieldPath)
		if err != nil {
			return nil, err
		}
		e, err := d.decode(lossy(raw), fieldPath)
		if err != nil {
			return nil, err
		}
		st[name] = e
	}
	return st, nil
}

func decodeInt(r *fieldReader, path []string) (Value, error) {
	f, err := field(r, path, "integer")
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseInt(f, 10, 64)
	if err != nil {
		return nil, malformed(path, "integer", err)
	}
	return Int(n), nil
}

func decodeFloat(r *fieldReader, path []string) (Value, error) {
	f, err := field(r, path, "float")
	if err != nil {
		return nil, err
	}
	x, err := strconv.ParseFloat(f, 64)
	if err != nil {
		return nil, malformed(path, "float", err)
	}
	return Float(x), nil
}

// decodeBool accepts any integer; nonzero is true.
func decodeBool(r *fieldReader, path []string) (Value, error) {
	f, err := field(r, path, "bool")
	if err != nil {
		return nil, err
	}
	n, err := strconv.ParseInt(f, 10, 64)
	if err != nil {
		return nil, malformed(path, "bool", err)
	}
	return Bool(n != 0), nil
}

func decodeB64(r *fieldReader, path []string) ([]byte, error) {
	f, err := field(r, path, "base64 payload")
	if err != nil {
		return nil, err
	}
	raw, err := b64.DecodeString(f)
	if err != nil {
		return nil, malformed(path, "base64 payload", err)
	}
	return raw, nil
}

func decodeCount(r *fieldReader, path []string) (int, error) {
	f, err := field(r, path, "count")
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(f, 10, 64)
	if err != nil {
		return 0, malformed(path, "count", err)
	}
	if n > MaxCount {
		return 0, errors.New(errors.PhaseCodec, errors.KindOverflow).
			Path(path...).
			Value(n).
			Detail("count %d exceeds limit %d", n, MaxCount).
			Build()
	}
	return int(n), nil
}

func field(r *fieldReader, path []string, what string) (string, error) {
	f, ok := r.next()
	if !ok {
		return "", errors.New(errors.PhaseCodec, errors.KindInvalidData).
			Path(path...).
			Detail("missing %s field", what).
			Build()
	}
	return f, nil
}

func malformed(path []string, what string, cause error) error {
	return errors.New(errors.PhaseCodec, errors.KindInvalidData).
		Path(path...).
		Cause(cause).
		Detail("malformed %s field", what).
		Build()
}

func trailing(path []string) error {
	return errors.InvalidData(errors.PhaseCodec, path, "trailing fields after record")
}

// lossy converts b to valid UTF-8. Each maximal subpart of an ill-formed
// sequence becomes one U+FFFD, so "\xff\xfe" yields two and a truncated
// "\xe2\x82" yields one.
func lossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b) + 2*utf8.UTFMax)
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[maximalSubpart(b):]
			continue
		}
		sb.Write(b[:size])
		b = b[size:]
	}
	return sb.String()
}

// maximalSubpart returns the length of the longest prefix of b that starts a
// well-formed sequence, or 1 when b[0] cannot start one. b must not begin
// with a complete valid sequence.
func maximalSubpart(b []byte) int {
	lo, hi := byte(0x80), byte(0xbf)
	var n int
	switch c := b[0]; {
	case c >= 0xc2 && c <= 0xdf:
		n = 2
	case c == 0xe0:
		n, lo = 3, 0xa0
	case c == 0xed:
		n, hi = 3, 0x9f
	case c >= 0xe1 && c <= 0xef:
		n = 3
	case c == 0xf0:
		n, lo = 4, 0x90
	case c >= 0xf1 && c <= 0xf3:
		n = 4
	case c == 0xf4:
		n, hi = 4, 0x8f
	default:
		return 1
	}

	i := 1
	for ; i < n && i < len(b); i++ {
		if b[i] < lo || b[i] > hi {
			break
		}
		lo, hi = 0x80, 0xbf
	}
	return i
}

// fieldReader yields colon-separated fields. An empty input holds a single
// empty field.
type fieldReader struct {
	rest string
	done bool
}

func (r *fieldReader) next() (string, bool) {
	if r.done {
		return "", false
	}
	i := strings.IndexByte(r.rest, sep)
	if i < 0 {
		r.done = true
		return r.rest, true
	}
	f := r.rest[:i]
	r.rest = r.rest[i+1:]
	return f, true
}
