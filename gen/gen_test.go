package gen

import (
	stderrors "errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/wippyai/hostffi"
	"github.com/wippyai/hostffi/errors"
)

const nativeSrc = `package native

import (
	"time"

	"github.com/wippyai/hostffi/buffer"
	"github.com/wippyai/hostffi/value"
)

type Celsius float64
type Blob []byte

type Server struct{}

func (s *Server) Start() {}

func DivideTen(x float64) float64 { return 10 / x }

// Shout upper-cases s.
//
//hostffi:export shout_it
func Shout(s string) (string, error) { return s, nil }

func Describe(v value.Value) value.Value { return v }
func Fill(b buffer.Buffer, n int)        {}
func Warm(c Celsius) Celsius             { return c + 1 }
func Pack(b Blob) Blob                   { return b }
func Wait(d time.Duration) bool          { return d > 0 }
func Validate(s string) error            { return nil }
func GetHTTPStatus(code uint16) string   { return "" }
func Initial(r rune, b byte) rune        { return r }

func Stream(ch chan int)                 {}
func Sum(xs ...int) int                  { return 0 }
func Map[T any](v T) T                   { return v }
func Pair() (int, int)                   { return 0, 0 }
func Dump(b buffer.Buffer) buffer.Buffer { return b }
func Ptr(p *int)                         {}
func Apply(f func(int) int) int          { return 0 }

func helper() {}
`

type fakeImporter map[string]*types.Package

func (f fakeImporter) Import(path string) (*types.Package, error) {
	if pkg, ok := f[path]; ok {
		return pkg, nil
	}
	return nil, fmt.Errorf("package %s not available", path)
}

func namedPackage(path, name, typeName string, underlying types.Type) *types.Package {
	pkg := types.NewPackage(path, name)
	obj := types.NewTypeName(token.NoPos, pkg, typeName, nil)
	types.NewNamed(obj, underlying, nil)
	pkg.Scope().Insert(obj)
	pkg.MarkComplete()
	return pkg
}

func typeCheck(t *testing.T, src string) (*types.Package, *ast.File) {
	t.Helper()

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "native.go", src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	imp := fakeImporter{
		"github.com/wippyai/hostffi/value":  namedPackage("github.com/wippyai/hostffi/value", "value", "Value", types.NewInterfaceType(nil, nil).Complete()),
		"github.com/wippyai/hostffi/buffer": namedPackage("github.com/wippyai/hostffi/buffer", "buffer", "Buffer", types.NewStruct(nil, nil)),
		"time":                              namedPackage("time", "time", "Duration", types.Typ[types.Int64]),
	}
	conf := types.Config{Importer: imp}
	pkg, err := conf.Check("example.com/demo/native", fset, []*ast.File{f}, nil)
	if err != nil {
		t.Fatalf("type check: %v", err)
	}
	return pkg, f
}

func exportNames(m *PackageModel) []string {
	var out []string
	for _, fn := range m.Functions {
		out = append(out, fn.Export)
	}
	return out
}

func TestModelFromTypes(t *testing.T) {
	pkg, f := typeCheck(t, nativeSrc)

	model, err := ModelFromTypes(pkg, DefaultConfig(pkg.Path()), f)
	if err != nil {
		t.Fatalf("ModelFromTypes: %v", err)
	}

	if model.ImportPath != "example.com/demo/native" || model.Name != "native" {
		t.Errorf("model package = %s (%s)", model.ImportPath, model.Name)
	}

	want := []string{
		"describe", "divide_ten", "fill", "get_http_status", "initial",
		"pack", "shout_it", "validate", "wait", "warm",
	}
	if got := exportNames(model); !reflect.DeepEqual(got, want) {
		t.Errorf("exports = %v, want %v", got, want)
	}

	if len(model.Skipped) != 7 {
		t.Errorf("skipped %d functions, want 7: %v", len(model.Skipped), model.Skipped)
	}
	for _, err := range model.Skipped {
		if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseGenerate, Kind: errors.KindIneligible}) {
			t.Errorf("skip reason %v is not ineligible", err)
		}
	}
}

func TestFunctionModel(t *testing.T) {
	pkg, _ := typeCheck(t, nativeSrc)

	lookup := func(name string) FunctionModel {
		t.Helper()
		fm, err := functionModel(pkg.Scope().Lookup(name).(*types.Func))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		return fm
	}

	fm := lookup("Shout")
	if !fm.ReturnsErr || fm.Result == nil || fm.Result.Conv.ReturnFunc != "ReturnString" {
		t.Errorf("Shout model = %+v", fm)
	}
	if fm.ResultKind() != hostffi.KindText {
		t.Errorf("Shout result kind = %v", fm.ResultKind())
	}

	fm = lookup("Warm")
	if !fm.Params[0].Named || fm.Params[0].Conv.ArgFunc != "ArgFloat64" {
		t.Errorf("Warm param = %+v", fm.Params[0])
	}
	if fm.Params[0].TypeStr != "example.com/demo/native.Celsius" {
		t.Errorf("Warm param type = %q", fm.Params[0].TypeStr)
	}

	fm = lookup("Initial")
	if fm.Params[0].Conv.ArgFunc != "ArgInt32" || fm.Params[1].Conv.ArgFunc != "ArgUint8" {
		t.Errorf("rune/byte converters = %s, %s", fm.Params[0].Conv.ArgFunc, fm.Params[1].Conv.ArgFunc)
	}
	if fm.Params[0].Named {
		t.Error("rune must not be treated as a defined type")
	}

	fm = lookup("Describe")
	if fm.Params[0].Named || fm.Params[0].Conv.ArgFunc != "ArgValue" {
		t.Errorf("value param = %+v", fm.Params[0])
	}

	fm = lookup("Validate")
	if fm.Result != nil || !fm.ReturnsErr || fm.ResultKind() != hostffi.KindNumber {
		t.Errorf("Validate model = %+v", fm)
	}
}

func TestCheck(t *testing.T) {
	pkg, _ := typeCheck(t, nativeSrc)

	tests := []struct {
		name   string
		reason string // empty means eligible
	}{
		{"DivideTen", ""},
		{"Fill", ""},
		{"Pack", ""},
		{"Wait", ""},
		{"Stream", "channels"},
		{"Apply", "callbacks"},
		{"Sum", "variadic"},
		{"Map", "generic"},
		{"Pair", "at most one result"},
		{"Dump", "cannot be returned"},
		{"Ptr", "no boundary conversion for *int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(pkg.Scope().Lookup(tt.name).(*types.Func))
			if tt.reason == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected ineligible")
			}
			if !strings.Contains(err.Error(), tt.reason) {
				t.Errorf("error %q does not mention %q", err, tt.reason)
			}
		})
	}

	server := pkg.Scope().Lookup("Server").Type()
	start, _, _ := types.LookupFieldOrMethod(types.NewPointer(server), true, pkg, "Start")
	if err := Check(start.(*types.Func)); err == nil || !strings.Contains(err.Error(), "methods") {
		t.Errorf("method check = %v", err)
	}
}

func TestNames(t *testing.T) {
	pkg, f := typeCheck(t, nativeSrc)

	cfg := DefaultConfig(pkg.Path())
	cfg.Prefix = "demo_"
	cfg.Names["DivideTen"] = "div10"

	model, err := ModelFromTypes(pkg, cfg, f)
	if err != nil {
		t.Fatal(err)
	}

	tests := map[string]string{
		"DivideTen":     "div10",
		"Shout":         "shout_it",
		"GetHTTPStatus": "demo_get_http_status",
		"Warm":          "demo_warm",
	}
	for goName, want := range tests {
		fn, ok := model.Lookup(goName)
		if !ok {
			t.Errorf("%s missing", goName)
			continue
		}
		if fn.Export != want {
			t.Errorf("%s exported as %q, want %q", goName, fn.Export, want)
		}
	}
}

func TestNameErrors(t *testing.T) {
	pkg, f := typeCheck(t, nativeSrc)

	tests := []struct {
		name  string
		names map[string]string
		last  bool
		kind  errors.Kind
	}{
		{"duplicate", map[string]string{"Warm": "divide_ten"}, false, errors.KindDuplicateName},
		{"clashes with last error", map[string]string{"Warm": "last_error"}, true, errors.KindDuplicateName},
		{"reserved", map[string]string{"Warm": "main"}, false, errors.KindInvalidInput},
		{"keyword", map[string]string{"Warm": "func"}, false, errors.KindInvalidInput},
		{"package alias", map[string]string{"Warm": "native"}, false, errors.KindInvalidInput},
		{"not a symbol", map[string]string{"Warm": "warm-up"}, false, errors.KindInvalidInput},
		{"unknown function", map[string]string{"Cool": "cool"}, false, errors.KindNotFound},
		{"ineligible requested", map[string]string{"Stream": "stream"}, false, errors.KindIneligible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig(pkg.Path())
			cfg.Names = tt.names
			cfg.EmitLastError = tt.last

			_, err := ModelFromTypes(pkg, cfg, f)
			var e *errors.Error
			if !stderrors.As(err, &e) {
				t.Fatalf("got %v, want *errors.Error", err)
			}
			if e.Kind != tt.kind {
				t.Errorf("kind = %s, want %s (%v)", e.Kind, tt.kind, err)
			}
		})
	}
}

func TestInclude(t *testing.T) {
	pkg, f := typeCheck(t, nativeSrc)

	cfg := DefaultConfig(pkg.Path())
	cfg.Include = []string{"Warm", "DivideTen"}
	model, err := ModelFromTypes(pkg, cfg, f)
	if err != nil {
		t.Fatal(err)
	}
	// Directives request functions too.
	want := []string{"divide_ten", "shout_it", "warm"}
	if got := exportNames(model); !reflect.DeepEqual(got, want) {
		t.Errorf("exports = %v, want %v", got, want)
	}
	if len(model.Skipped) != 0 {
		t.Errorf("unexpected skips: %v", model.Skipped)
	}

	cfg.Include = []string{"Warm", "Sum"}
	if _, err := ModelFromTypes(pkg, cfg, f); err == nil {
		t.Error("explicitly included ineligible function must fail the run")
	}

	cfg.Include = []string{"Nope"}
	if _, err := ModelFromTypes(pkg, cfg, f); !stderrors.Is(err, &errors.Error{Phase: errors.PhaseGenerate, Kind: errors.KindNotFound}) {
		t.Errorf("unknown include = %v, want not found", err)
	}
}

func TestMainPackageRejected(t *testing.T) {
	pkg := types.NewPackage("example.com/cmd/tool", "main")
	if _, err := ModelFromTypes(pkg, nil); err == nil {
		t.Error("main package accepted")
	}
}

func TestDirectives(t *testing.T) {
	src := `package p

//hostffi:export
func A() {}

// B does things.
//hostffi:export b_renamed
func B() {}

//hostffi:exported c
func C() {}

// hostffi:export d
func D() {}

type T struct{}

//hostffi:export t_method
func (T) M() {}
`
	f, err := parser.ParseFile(token.NewFileSet(), "p.go", src, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	got := directives([]*ast.File{f})
	want := map[string]string{"A": "", "B": "b_renamed"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("directives = %v, want %v", got, want)
	}
}

func TestGenerate(t *testing.T) {
	pkg, f := typeCheck(t, nativeSrc)
	cfg := DefaultConfig(pkg.Path())

	model, err := ModelFromTypes(pkg, cfg, f)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Generate(model, cfg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	code := string(out)

	wants := []string{
		"// Code generated by hostffi gen from example.com/demo/native. DO NOT EDIT.",
		"package main",
		`import "C"`,
		`"github.com/wippyai/hostffi/bridge"`,
		`"github.com/wippyai/hostffi/cabi"`,
		`"github.com/wippyai/hostffi/marshal"`,
		`"example.com/demo/native"`,
		`"time"`,
		"marshal.SetAllocator(cabi.Allocator{})",

		"//export divide_ten\nfunc divide_ten(p0 C.double) C.double {",
		`return C.double(bridge.CallNumber("divide_ten", func() float64 {`,
		"a0 := marshal.ArgFloat64(float64(p0))",
		"r := native.DivideTen(a0)",
		"return marshal.ReturnFloat64(r)",

		"func shout_it(p0 *C.char) *C.char {",
		`return (*C.char)(bridge.CallText("shout_it", func() unsafe.Pointer {`,
		"a0 := marshal.ArgString(unsafe.Pointer(p0))",
		"r, err := native.Shout(a0)",
		"marshal.MustOK(err)",

		"a0 := native.Celsius(marshal.ArgFloat64(float64(p0)))",
		"return marshal.ReturnFloat64(float64(r))",
		"a0 := native.Blob(marshal.ArgBytes(unsafe.Pointer(p0)))",
		"return marshal.ReturnBytes([]byte(r))",
		"a0 := time.Duration(marshal.ArgInt64(float64(p0)))",
		"return marshal.ReturnBool(r)",

		"func fill(p0 *C.char, p1 C.double) C.double {",
		"a0 := marshal.ArgBuffer(unsafe.Pointer(p0))",
		"native.Fill(a0, a1)",
		"return marshal.ReturnUnit()",
		"marshal.MustOK(native.Validate(a0))",

		"a0 := marshal.ArgValue(unsafe.Pointer(p0))",
		"return marshal.ReturnValue(r)",

		"func main() {}",
	}
	for _, want := range wants {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q", want)
		}
	}

	for _, unwanted := range []string{"stream", "last_error", "helper"} {
		if strings.Contains(code, "//export "+unwanted) {
			t.Errorf("generated code exports %s", unwanted)
		}
	}

	if _, err := parser.ParseFile(token.NewFileSet(), "out.go", out, 0); err != nil {
		t.Errorf("generated code does not parse: %v", err)
	}
}

func TestGenerateOptions(t *testing.T) {
	pkg, f := typeCheck(t, nativeSrc)
	cfg := DefaultConfig(pkg.Path())
	cfg.Include = []string{"DivideTen"}
	cfg.Prefix = "demo_"
	cfg.EmitLastError = true
	cfg.NoMain = true

	model, err := ModelFromTypes(pkg, cfg, f)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Generate(model, cfg)
	if err != nil {
		t.Fatal(err)
	}
	code := string(out)

	for _, want := range []string{
		"//export demo_divide_ten",
		"//export demo_last_error",
		"return marshal.ReturnString(bridge.LastFaultMessage())",
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q", want)
		}
	}
	if strings.Contains(code, "func main()") {
		t.Error("NoMain still emitted main")
	}
	if strings.Contains(code, `"time"`) {
		t.Error("unused import kept")
	}
}

func TestGenerateAlias(t *testing.T) {
	src := `package marshal

func Twice(x int) int { return 2 * x }
`
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "m.go", src, 0)
	if err != nil {
		t.Fatal(err)
	}
	pkg, err := (&types.Config{}).Check("example.com/lib/marshal", fset, []*ast.File{f}, nil)
	if err != nil {
		t.Fatal(err)
	}

	model, err := ModelFromTypes(pkg, nil)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Generate(model, nil)
	if err != nil {
		t.Fatal(err)
	}
	code := string(out)
	if !strings.Contains(code, `native "example.com/lib/marshal"`) {
		t.Errorf("clashing package not aliased:\n%s", code)
	}
	if !strings.Contains(code, "r := native.Twice(a0)") {
		t.Errorf("call does not use alias:\n%s", code)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	content := `
package = "./native"
output = "exports/exports.go"
prefix = "demo_"
include = ["DivideTen", "Shout"]
emit_last_error = true

[names]
DivideTen = "divide_by_ten"
`
	path := filepath.Join(dir, ConfigFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Package != "./native" {
		t.Errorf("package = %q", cfg.Package)
	}
	if cfg.Prefix != "demo_" || !cfg.EmitLastError || cfg.NoMain {
		t.Errorf("cfg = %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Include, []string{"DivideTen", "Shout"}) {
		t.Errorf("include = %v", cfg.Include)
	}
	if cfg.Names["DivideTen"] != "divide_by_ten" {
		t.Errorf("names = %v", cfg.Names)
	}

	absDir, _ := filepath.Abs(dir)
	if cfg.Dir != absDir {
		t.Errorf("dir = %q, want %q", cfg.Dir, absDir)
	}
	if want := filepath.Join(absDir, "exports", "exports.go"); cfg.OutputPath() != want {
		t.Errorf("output path = %q, want %q", cfg.OutputPath(), want)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFile)
	if err := os.WriteFile(path, []byte(`package = "example.com/x"`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output != DefaultOutput {
		t.Errorf("output = %q, want %q", cfg.Output, DefaultOutput)
	}
	if cfg.Names == nil {
		t.Error("names map not initialized")
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFile)
	if err := os.WriteFile(path, []byte(`package = `), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, ConfigFile), []byte(`package = "./a"`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := FindConfig(nested)
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil || cfg.Package != "./a" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("loads packages with the go command")
	}

	model, err := Load([]string{"./testdata/native"}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if model.Name != "native" {
		t.Errorf("name = %q", model.Name)
	}
	want := []string{"count", "divide_ten", "shout_it", "warm"}
	if got := exportNames(model); !reflect.DeepEqual(got, want) {
		t.Errorf("exports = %v, want %v", got, want)
	}
	if len(model.Skipped) != 1 {
		t.Errorf("skipped = %v, want Stream only", model.Skipped)
	}
}
