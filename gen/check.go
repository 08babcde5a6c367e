package gen

import (
	"fmt"
	"go/types"

	"github.com/wippyai/hostffi/errors"
	"github.com/wippyai/hostffi/marshal"
)

var errorType = types.Universe.Lookup("error").Type()

// Check reports whether fn can be exported. The returned error is an
// *errors.Error of kind KindIneligible naming the first problem found.
func Check(fn *types.Func) error {
	_, err := functionModel(fn)
	return err
}

func functionModel(fn *types.Func) (FunctionModel, error) {
	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		return FunctionModel{}, errors.Ineligible(fn.Name(), "not a function")
	}
	if sig.Recv() != nil {
		return FunctionModel{}, errors.Ineligible(fn.Name(), "methods cannot be exported, wrap them in a function")
	}
	if sig.TypeParams().Len() > 0 {
		return FunctionModel{}, errors.Ineligible(fn.Name(), "generic functions cannot be exported")
	}
	if sig.Variadic() {
		return FunctionModel{}, errors.Ineligible(fn.Name(), "variadic functions cannot be exported")
	}

	fm := FunctionModel{Name: fn.Name()}

	params := sig.Params()
	for i := 0; i < params.Len(); i++ {
		p := params.At(i)
		pm, reason := paramModel(p)
		if reason == "" && !pm.Conv.CanArg() {
			reason = fmt.Sprintf("%s cannot be passed in", pm.TypeStr)
		}
		if reason != "" {
			return FunctionModel{}, errors.Ineligible(fn.Name(), fmt.Sprintf("parameter %d: %s", i, reason))
		}
		fm.Params = append(fm.Params, pm)
	}

	results := sig.Results()
	n := results.Len()
	if n > 0 && types.Identical(results.At(n-1).Type(), errorType) {
		fm.ReturnsErr = true
		n--
	}
	switch n {
	case 0:
	case 1:
		pm, reason := paramModel(results.At(0))
		if reason == "" && !pm.Conv.CanReturn() {
			reason = fmt.Sprintf("%s cannot be returned", pm.TypeStr)
		}
		if reason != "" {
			return FunctionModel{}, errors.Ineligible(fn.Name(), "result: "+reason)
		}
		fm.Result = &pm
	default:
		return FunctionModel{}, errors.Ineligible(fn.Name(), "at most one result besides error")
	}

	return fm, nil
}

func paramModel(v *types.Var) (ParamModel, string) {
	t := v.Type()
	pm := ParamModel{
		Name:    v.Name(),
		GoType:  t,
		TypeStr: types.TypeString(t, nil),
	}

	switch types.Unalias(t).Underlying().(type) {
	case *types.Chan:
		return pm, "channels cannot cross the boundary"
	case *types.Signature:
		return pm, "callbacks cannot cross the boundary"
	}

	if name, ok := converterName(t); ok {
		if c, ok := marshal.Lookup(name); ok {
			pm.Conv = c
			return pm, ""
		}
	}

	// Defined types convert through their underlying basic or []byte type.
	if _, ok := types.Unalias(t).(*types.Named); ok {
		if name, ok := converterName(t.Underlying()); ok {
			if c, ok := marshal.Lookup(name); ok && c.Type.PkgPath() == "" {
				pm.Conv = c
				pm.Named = true
				return pm, ""
			}
		}
	}

	return pm, fmt.Sprintf("no boundary conversion for %s", pm.TypeStr)
}

// converterName returns the marshal converter name for t. go/types spells
// byte and rune as aliases, so basic kinds are normalized first.
func converterName(t types.Type) (string, bool) {
	switch t := types.Unalias(t).(type) {
	case *types.Basic:
		return types.Typ[t.Kind()].Name(), true
	case *types.Slice:
		if b, ok := types.Unalias(t.Elem()).(*types.Basic); ok && b.Kind() == types.Uint8 {
			return "[]byte", true
		}
	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() == nil || t.TypeArgs().Len() > 0 {
			return "", false
		}
		return obj.Pkg().Path() + "." + obj.Name(), true
	}
	return "", false
}
