package main

import (
	"bytes"
	"go/types"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/hostffi/gen"
	"github.com/wippyai/hostffi/marshal"
	"github.com/wippyai/hostffi/value"
)

func TestJSONToValue(t *testing.T) {
	tests := []struct {
		in   string
		want value.Value
	}{
		{`null`, value.Null{}},
		{`5`, value.Int(5)},
		{`-2.5`, value.Float(-2.5)},
		{`1e3`, value.Float(1000)},
		{`true`, value.Bool(true)},
		{`"hi"`, value.String("hi")},
		{`[1, "two"]`, value.Array{value.Int(1), value.String("two")}},
		{`{"a": 5, "b": [1, "!"]}`, value.Struct{
			"a": value.Int(5),
			"b": value.Array{value.Int(1), value.String("!")},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := jsonToValue(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if !value.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := jsonToValue(`{`); err == nil {
		t.Error("invalid JSON accepted")
	}
}

func TestEncodeDecode(t *testing.T) {
	var out bytes.Buffer
	if err := runEncode([]string{`{"a": 5, "b": [true, null]}`}, nil, &out); err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(out.String()), "6:2:YQ==:MDo1:Yg==:NToyOk1qb3g6SVE9PQ=="; got != want {
		t.Errorf("encode = %q, want %q", got, want)
	}

	var tree bytes.Buffer
	if err := runDecode(nil, strings.NewReader(out.String()), &tree); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"struct(2)",
		"├─ a: int 5",
		"└─ b: array(2)",
		"   ├─ [0] bool true",
		"   └─ [1] null",
	}, "\n")
	if got := strings.TrimSpace(tree.String()); got != want {
		t.Errorf("tree =\n%s\nwant\n%s", got, want)
	}

	var js bytes.Buffer
	if err := runDecode([]string{"-json", out.String()}, nil, &js); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(js.String(), `"a": 5`) {
		t.Errorf("json output %s", js.String())
	}
}

func TestEncodeList(t *testing.T) {
	var out bytes.Buffer
	if err := runEncode([]string{"-list", `[1, null]`}, nil, &out); err != nil {
		t.Fatal(err)
	}
	encoded := strings.TrimSpace(out.String())
	vs, err := value.DecodeList(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 2 || !value.Equal(vs[0], value.Int(1)) || !value.Equal(vs[1], value.Null{}) {
		t.Errorf("decoded list = %v", vs)
	}

	if err := runEncode([]string{"-list", `5`}, nil, &out); err == nil {
		t.Error("-list accepted a non-array")
	}

	var tree bytes.Buffer
	if err := runDecode([]string{"-list", encoded}, nil, &tree); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(tree.String(), "array(2)") {
		t.Errorf("list tree = %q", tree.String())
	}
}

func TestDecodeStrict(t *testing.T) {
	var out bytes.Buffer
	if err := runDecode([]string{"9:x"}, nil, &out); err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	if strings.TrimSpace(out.String()) != "null" {
		t.Errorf("unknown tag = %q, want null", out.String())
	}
	if err := runDecode([]string{"-strict", "9:x"}, nil, &out); err == nil {
		t.Error("strict decode accepted unknown tag")
	}
}

func testModel() *gen.PackageModel {
	conv, _ := marshal.Lookup("float64")
	param := gen.ParamModel{Name: "x", GoType: types.Typ[types.Float64], TypeStr: "float64", Conv: conv}
	result := param
	return &gen.PackageModel{
		ImportPath: "example.com/demo/native",
		Name:       "native",
		Functions: []gen.FunctionModel{
			{Name: "DivideTen", Export: "divide_ten", Params: []gen.ParamModel{param}, Result: &result},
			{Name: "Half", Export: "half", Params: []gen.ParamModel{param}, Result: &result, ReturnsErr: true},
		},
	}
}

func TestSignature(t *testing.T) {
	m := testModel()
	st := newStyles(false)

	if got, want := st.signature(m.Functions[0]), "divide_ten(x float64) float64  [DivideTen -> number]"; got != want {
		t.Errorf("signature = %q, want %q", got, want)
	}
	if got, want := st.signature(m.Functions[1]), "half(x float64) (float64, error)  [Half -> number]"; got != want {
		t.Errorf("signature = %q, want %q", got, want)
	}
}

func press(m *interactiveModel, keys ...string) {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m.Update(msg)
	}
}

func TestInteractiveNavigation(t *testing.T) {
	m := newInteractiveModel(testModel(), gen.DefaultConfig("example.com/demo/native"))

	press(m, "down")
	if m.selected != 1 {
		t.Fatalf("selected = %d, want 1", m.selected)
	}
	press(m, "down")
	if m.selected != 1 {
		t.Errorf("selection moved past the end")
	}

	press(m, "enter")
	if m.state != stateShowWrapper {
		t.Fatalf("state = %v, want wrapper", m.state)
	}
	if m.err != nil {
		t.Fatalf("wrapper error: %v", m.err)
	}
	if !strings.HasPrefix(m.wrapper, "//export half") || !strings.Contains(m.wrapper, "marshal.MustOK(err)") {
		t.Errorf("wrapper = %s", m.wrapper)
	}

	press(m, "enter")
	if m.state != stateSelectFunc {
		t.Errorf("state = %v, want select", m.state)
	}
}

func TestInteractiveDecode(t *testing.T) {
	m := newInteractiveModel(testModel(), gen.DefaultConfig(""))
	m.styles = newStyles(false)

	press(m, "d")
	if m.state != stateDecode {
		t.Fatalf("state = %v, want decode", m.state)
	}

	press(m, "0", ":", "4", "2")
	if m.decoded != "int 42" || m.err != nil {
		t.Errorf("decoded = %q, err = %v", m.decoded, m.err)
	}

	// q is input here, not quit.
	press(m, "q")
	if m.err == nil {
		t.Error("malformed record decoded")
	}

	press(m, "esc")
	if m.state != stateSelectFunc {
		t.Errorf("state = %v, want select", m.state)
	}
}
