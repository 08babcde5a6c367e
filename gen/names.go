package gen

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/wippyai/hostffi/errors"
	"github.com/wippyai/hostffi/internal/naming"
)

// Directive marks a function for export in its doc comment:
//
//	//hostffi:export divide_by_ten
//	func DivideTen(x float64) float64
//
// The name is optional; without it the derived name is used.
const Directive = "//hostffi:export"

// reserved holds identifiers the generated file declares or imports. An
// export is a Go function of the same name, so these cannot be used.
var reserved = map[string]bool{
	"C":       true,
	"main":    true,
	"init":    true,
	"unsafe":  true,
	"bridge":  true,
	"cabi":    true,
	"marshal": true,
}

// directives collects export directives from function doc comments, keyed
// by function name. A directive without a name maps to "".
func directives(files []*ast.File) map[string]string {
	out := map[string]string{}
	for _, f := range files {
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv != nil || fd.Doc == nil {
				continue
			}
			for _, c := range fd.Doc.List {
				rest, ok := strings.CutPrefix(c.Text, Directive)
				if !ok || (rest != "" && rest[0] != ' ' && rest[0] != '\t') {
					continue
				}
				out[fd.Name.Name] = strings.TrimSpace(rest)
			}
		}
	}
	return out
}

// externalName picks the symbol for a Go function: the [names] table, then
// the directive, then prefix plus snake_case.
func externalName(goName string, cfg *Config, dirs map[string]string) string {
	if name, ok := cfg.Names[goName]; ok && name != "" {
		return name
	}
	if name := dirs[goName]; name != "" {
		return name
	}
	return cfg.Prefix + naming.SnakeCase(goName)
}

func validateName(goName, export, alias string) error {
	switch {
	case !naming.IsSymbol(export):
		return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Path(goName).
			Detail("external name %q is not a valid C identifier", export).
			Build()
	case token.IsKeyword(export), reserved[export], export == alias:
		return errors.New(errors.PhaseGenerate, errors.KindInvalidInput).
			Path(goName).
			Detail("external name %q clashes with a Go identifier in the generated file", export).
			Build()
	}
	return nil
}
