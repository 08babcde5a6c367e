package gen

import (
	"go/types"

	"github.com/wippyai/hostffi"
	"github.com/wippyai/hostffi/marshal"
)

// PackageModel is the exportable surface of a native package.
type PackageModel struct {
	ImportPath string
	Name       string // short package name
	Functions  []FunctionModel
	// Skipped holds the reasons ineligible functions were left out.
	Skipped []error
}

// FunctionModel is one exported function.
type FunctionModel struct {
	Name       string // Go name
	Export     string // external symbol
	Params     []ParamModel
	Result     *ParamModel // nil when the function returns nothing or only an error
	ReturnsErr bool
}

// ParamModel is a parameter or result and the converter it goes through.
type ParamModel struct {
	Name    string
	GoType  types.Type
	TypeStr string // fully qualified, e.g. "github.com/x/pkg.Celsius"
	Conv    marshal.Converter
	// Named is set when GoType is a defined type converted through the
	// converter's base type.
	Named bool
}

// Kind returns the boundary kind.
func (p ParamModel) Kind() hostffi.Kind { return p.Conv.Kind }

// ResultKind returns the boundary kind of the function result.
func (f FunctionModel) ResultKind() hostffi.Kind {
	if f.Result == nil {
		return hostffi.KindNumber
	}
	return f.Result.Kind()
}

// Lookup finds a function by Go name.
func (m *PackageModel) Lookup(name string) (*FunctionModel, bool) {
	for i := range m.Functions {
		if m.Functions[i].Name == name {
			return &m.Functions[i], true
		}
	}
	return nil, false
}
