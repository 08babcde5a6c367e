package gen

import (
	"bytes"
	"fmt"
	"go/types"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/tools/imports"

	"github.com/wippyai/hostffi"
	"github.com/wippyai/hostffi/errors"
)

const (
	bridgePath  = "github.com/wippyai/hostffi/bridge"
	cabiPath    = "github.com/wippyai/hostffi/cabi"
	marshalPath = "github.com/wippyai/hostffi/marshal"
)

var fileTemplate = template.Must(template.New("exports").Parse(`// Code generated by hostffi gen from {{.ImportPath}}. DO NOT EDIT.

package main

import "C"

import (
{{- range .Imports}}
	{{.}}
{{- end}}
)

func init() {
	marshal.SetAllocator(cabi.Allocator{})
}
{{range .Exports}}
//export {{.Symbol}}
func {{.Symbol}}({{.Params}}) {{.CResult}} {
	return {{.Cast}}(bridge.{{.Barrier}}({{printf "%q" .Symbol}}, func() {{.GoResult}} {
{{- range .Body}}
		{{.}}
{{- end}}
	}))
}
{{end}}
{{- if .LastError}}
//export {{.LastError}}
func {{.LastError}}() *C.char {
	return (*C.char)(bridge.CallText({{printf "%q" .LastError}}, func() unsafe.Pointer {
		return marshal.ReturnString(bridge.LastFaultMessage())
	}))
}
{{end}}
{{- if .Main}}
func main() {}
{{- end}}
`))

type fileData struct {
	ImportPath string
	Imports    []string
	Exports    []exportData
	LastError  string
	Main       bool
}

type exportData struct {
	Symbol   string
	Params   string
	CResult  string
	Cast     string
	Barrier  string
	GoResult string
	Body     []string
}

// importSet assigns local names to the packages generated code refers to.
type importSet struct {
	names map[string]string // path -> local name
	taken map[string]bool
}

func newImportSet() *importSet {
	s := &importSet{names: map[string]string{}, taken: map[string]bool{}}
	for name := range reserved {
		s.taken[name] = true
	}
	s.names[bridgePath] = "bridge"
	s.names[cabiPath] = "cabi"
	s.names[marshalPath] = "marshal"
	s.names["unsafe"] = "unsafe"
	return s
}

func (s *importSet) add(path, name string) string {
	if local, ok := s.names[path]; ok {
		return local
	}
	local := name
	for i := 2; s.taken[local] || localVars[local]; i++ {
		local = name + strconv.Itoa(i)
	}
	s.names[path] = local
	s.taken[local] = true
	return local
}

func (s *importSet) qualifier(p *types.Package) string {
	return s.add(p.Path(), p.Name())
}

func (s *importSet) lines() []string {
	paths := make([]string, 0, len(s.names))
	for p := range s.names {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		local := s.names[p]
		if local == p[strings.LastIndex(p, "/")+1:] {
			out = append(out, strconv.Quote(p))
		} else {
			out = append(out, local+" "+strconv.Quote(p))
		}
	}
	return out
}

// localVars are the identifiers generated bodies declare.
var localVars = map[string]bool{"r": true, "err": true}

// packageAlias is the name the native package is imported under.
func packageAlias(name string) string {
	if reserved[name] || localVars[name] {
		return "native"
	}
	return name
}

// Generate renders a cgo main package exporting every function in model.
// The source is formatted and its imports are tidied.
func Generate(model *PackageModel, cfg *Config) ([]byte, error) {
	if cfg == nil {
		cfg = DefaultConfig(model.ImportPath)
	}

	imps := newImportSet()
	native := imps.add(model.ImportPath, packageAlias(model.Name))

	data := fileData{
		ImportPath: model.ImportPath,
		Main:       !cfg.NoMain,
	}
	for _, fn := range model.Functions {
		data.Exports = append(data.Exports, exportFor(fn, native, imps))
	}
	if cfg.EmitLastError {
		data.LastError = cfg.Prefix + "last_error"
	}
	data.Imports = imps.lines()

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindFailed, err, "render template")
	}

	out, err := imports.Process(cfg.Output, buf.Bytes(), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return nil, errors.Wrap(errors.PhaseGenerate, errors.KindFailed, err, "format generated source")
	}
	return out, nil
}

func exportFor(fn FunctionModel, native string, imps *importSet) exportData {
	ed := exportData{Symbol: fn.Export}

	params := make([]string, len(fn.Params))
	args := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = fmt.Sprintf("p%d %s", i, p.Kind().CType())

		raw := fmt.Sprintf("p%d", i)
		if p.Kind() == hostffi.KindText {
			raw = "unsafe.Pointer(" + raw + ")"
		} else {
			raw = "float64(" + raw + ")"
		}
		expr := fmt.Sprintf("marshal.%s(%s)", p.Conv.ArgFunc, raw)
		if p.Named {
			expr = fmt.Sprintf("%s(%s)", types.TypeString(p.GoType, imps.qualifier), expr)
		}
		args[i] = fmt.Sprintf("a%d", i)
		ed.Body = append(ed.Body, fmt.Sprintf("a%d := %s", i, expr))
	}
	ed.Params = strings.Join(params, ", ")

	call := fmt.Sprintf("%s.%s(%s)", native, fn.Name, strings.Join(args, ", "))
	switch {
	case fn.Result != nil && fn.ReturnsErr:
		ed.Body = append(ed.Body, "r, err := "+call, "marshal.MustOK(err)")
	case fn.Result != nil:
		ed.Body = append(ed.Body, "r := "+call)
	case fn.ReturnsErr:
		ed.Body = append(ed.Body, "marshal.MustOK("+call+")")
	default:
		ed.Body = append(ed.Body, call)
	}

	if fn.Result == nil {
		ed.Body = append(ed.Body, "return marshal.ReturnUnit()")
	} else {
		r := "r"
		if fn.Result.Named {
			r = fmt.Sprintf("%s(r)", fn.Result.Conv.Name)
		}
		ed.Body = append(ed.Body, fmt.Sprintf("return marshal.%s(%s)", fn.Result.Conv.ReturnFunc, r))
	}

	ed.CResult = fn.ResultKind().CType()
	if fn.ResultKind() == hostffi.KindText {
		ed.Cast = "(*C.char)"
		ed.Barrier = "CallText"
		ed.GoResult = "unsafe.Pointer"
	} else {
		ed.Cast = "C.double"
		ed.Barrier = "CallNumber"
		ed.GoResult = "float64"
	}
	return ed
}
