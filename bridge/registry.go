package bridge

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"github.com/wippyai/hostffi"
	"github.com/wippyai/hostffi/errors"
	"github.com/wippyai/hostffi/internal/naming"
	"github.com/wippyai/hostffi/marshal"
)

var errorType = reflect.TypeFor[error]()

// Export is a Go function callable with boundary primitives.
type Export struct {
	fn     reflect.Value
	result *marshal.Converter
	name   string
	goType string
	params []marshal.Converter
	errOut bool
}

// Name returns the external name.
func (e *Export) Name() string { return e.name }

// GoType returns the Go signature.
func (e *Export) GoType() string { return e.goType }

// Params returns the boundary kind of each parameter.
func (e *Export) Params() []hostffi.Kind {
	out := make([]hostffi.Kind, len(e.params))
	for i, p := range e.params {
		out[i] = p.Kind
	}
	return out
}

// ParamTypes returns the Go type of each parameter.
func (e *Export) ParamTypes() []reflect.Type {
	out := make([]reflect.Type, len(e.params))
	for i, p := range e.params {
		out[i] = p.Type
	}
	return out
}

// Result returns the boundary kind of the result. Functions without a result
// or returning only an error return a number.
func (e *Export) Result() hostffi.Kind {
	if e.result == nil {
		return hostffi.KindNumber
	}
	return e.result.Kind
}

// Signature renders the boundary signature, e.g. "add(number, number) number".
func (e *Export) Signature() string {
	var b strings.Builder
	b.WriteString(e.name)
	b.WriteByte('(')
	for i, p := range e.params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Kind.String())
	}
	b.WriteString(") ")
	b.WriteString(e.Result().String())
	return b.String()
}

// Call decodes args, runs the function and encodes its result inside the
// fault barrier. It never panics: any failure yields the default for the
// result kind and is reported through LastFault.
func (e *Export) Call(args ...marshal.Primitive) marshal.Primitive {
	if e.Result() == hostffi.KindText {
		return marshal.Text(CallText(e.name, func() unsafe.Pointer {
			return e.invoke(args).Text
		}))
	}
	return marshal.Number(CallNumber(e.name, func() float64 {
		return e.invoke(args).Number
	}))
}

func (e *Export) invoke(args []marshal.Primitive) marshal.Primitive {
	if len(args) != len(e.params) {
		panic(errors.Arity(errors.PhaseCall, e.name, len(e.params), len(args)))
	}

	in := make([]reflect.Value, len(args))
	for i, conv := range e.params {
		if args[i].Kind != conv.Kind {
			panic(errors.TypeMismatch(errors.PhaseUnmarshal,
				[]string{e.name, fmt.Sprintf("arg%d", i)}, conv.Name, args[i].Kind.String()))
		}
		in[i] = conv.Decode(args[i])
	}

	out := e.fn.Call(in)

	if e.errOut {
		if errv := out[len(out)-1]; !errv.IsNil() {
			panic(errors.Failed(errors.PhaseCall, errv.Interface().(error)))
		}
		out = out[:len(out)-1]
	}
	if e.result == nil {
		return marshal.Number(marshal.ReturnUnit())
	}
	return e.result.Encode(out[0])
}

// Check reports whether a function of type t can be exported. Parameters and
// the result must have converters; the result list may be empty, T, error or
// (T, error).
func Check(t reflect.Type) error {
	if t.Kind() != reflect.Func {
		return errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
			GoType(t.String()).
			Detail("handler must be a function").
			Build()
	}
	_, _, _, err := inspect(t)
	return err
}

func inspect(t reflect.Type) (params []marshal.Converter, result *marshal.Converter, errOut bool, err error) {
	if t.IsVariadic() {
		return nil, nil, false, ineligible(t, "variadic functions cannot be exported")
	}

	for i := 0; i < t.NumIn(); i++ {
		pt := t.In(i)
		if reason := unrepresentable(pt); reason != "" {
			return nil, nil, false, ineligible(t, fmt.Sprintf("parameter %d: %s", i, reason))
		}
		conv, ok := marshal.LookupType(pt)
		if !ok || !conv.CanArg() {
			return nil, nil, false, ineligible(t, fmt.Sprintf("parameter %d: no boundary conversion for %s", i, pt))
		}
		params = append(params, conv)
	}

	outs := t.NumOut()
	if outs > 0 && t.Out(outs-1) == errorType {
		errOut = true
		outs--
	}
	switch outs {
	case 0:
	case 1:
		rt := t.Out(0)
		if reason := unrepresentable(rt); reason != "" {
			return nil, nil, false, ineligible(t, "result: "+reason)
		}
		conv, ok := marshal.LookupType(rt)
		if !ok || !conv.CanReturn() {
			return nil, nil, false, ineligible(t, fmt.Sprintf("result: no boundary conversion for %s", rt))
		}
		result = &conv
	default:
		return nil, nil, false, ineligible(t, "at most one result besides error")
	}
	return params, result, errOut, nil
}

func unrepresentable(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Chan:
		return "channels cannot cross the boundary"
	case reflect.Func:
		return "callbacks cannot cross the boundary"
	}
	return ""
}

func ineligible(t reflect.Type, reason string) error {
	return errors.New(errors.PhaseRegister, errors.KindIneligible).
		GoType(t.String()).
		Detail(reason).
		Build()
}

// Registry maps external names to exports.
type Registry struct {
	exports map[string]*Export
	mu      sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		exports: make(map[string]*Export),
	}
}

// Register exports fn under name.
func (r *Registry) Register(name string, fn any) error {
	if !naming.IsSymbol(name) {
		return errors.InvalidInput(errors.PhaseRegister, fmt.Sprintf("invalid export name %q", name))
	}
	if fn == nil {
		return errors.NilPointer(errors.PhaseRegister, []string{name}, "func")
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return errors.New(errors.PhaseRegister, errors.KindTypeMismatch).
			Path(name).
			GoType(rv.Type().String()).
			Detail("handler must be a function").
			Build()
	}
	if rv.IsNil() {
		return errors.NilPointer(errors.PhaseRegister, []string{name}, rv.Type().String())
	}

	params, result, errOut, err := inspect(rv.Type())
	if err != nil {
		return errors.Registration(errors.PhaseRegister, name, err)
	}

	exp := &Export{
		fn:     rv,
		name:   name,
		goType: rv.Type().String(),
		params: params,
		result: result,
		errOut: errOut,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.exports[name]; ok {
		return errors.DuplicateName(errors.PhaseRegister, name, prev.goType, exp.goType)
	}
	r.exports[name] = exp
	debugf("registered %s", exp.Signature())
	return nil
}

// MustRegister is Register that panics on error, for use in init.
func (r *Registry) MustRegister(name string, fn any) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// RegisterMethods exports every exported method of recv under prefix plus the
// snake_case method name. Ineligible methods are skipped and reported in the
// returned error; eligible ones are registered regardless.
func (r *Registry) RegisterMethods(recv any, prefix string) error {
	rv := reflect.ValueOf(recv)
	if !rv.IsValid() {
		return errors.NilPointer(errors.PhaseRegister, nil, "receiver")
	}
	rt := rv.Type()

	var errs []error
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() {
			continue
		}
		name := prefix + naming.SnakeCase(method.Name)
		if err := r.Register(name, rv.Method(i).Interface()); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Lookup finds an export by external name.
func (r *Registry) Lookup(name string) (*Export, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exp, ok := r.exports[name]
	return exp, ok
}

// Exports returns all exports sorted by name.
func (r *Registry) Exports() []*Export {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Export, 0, len(r.exports))
	for _, exp := range r.exports {
		out = append(out, exp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Call invokes the named export. Only a missing export is an error; faults
// inside the call produce the default result.
func (r *Registry) Call(name string, args ...marshal.Primitive) (marshal.Primitive, error) {
	exp, ok := r.Lookup(name)
	if !ok {
		return marshal.Primitive{}, errors.NotFound(errors.PhaseCall, "export", name)
	}
	return exp.Call(args...), nil
}
