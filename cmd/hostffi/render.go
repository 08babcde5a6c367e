package main

import (
	"encoding/hex"
	"fmt"
	"go/types"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/hostffi/gen"
	"github.com/wippyai/hostffi/value"
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

type styles struct {
	fn, typ, tag, key, lit, err lipgloss.Style
	enabled                     bool
}

func newStyles(enabled bool) styles {
	return styles{
		enabled: enabled,
		fn:      lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98")),
		typ:     lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")),
		tag:     lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true),
		key:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")),
		lit:     lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
	}
}

func (s styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

func shortType(t types.Type) string {
	return types.TypeString(t, func(p *types.Package) string { return p.Name() })
}

// signature renders an export as "symbol(name type, ...) type".
func (s styles) signature(fn gen.FunctionModel) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		name := p.Name
		if name == "" || name == "_" {
			name = fmt.Sprintf("arg%d", i)
		}
		params[i] = name + " " + s.render(s.typ, shortType(p.GoType))
	}

	var result string
	switch {
	case fn.Result != nil && fn.ReturnsErr:
		result = " (" + s.render(s.typ, shortType(fn.Result.GoType)) + ", error)"
	case fn.Result != nil:
		result = " " + s.render(s.typ, shortType(fn.Result.GoType))
	case fn.ReturnsErr:
		result = " error"
	}

	return fmt.Sprintf("%s(%s)%s  [%s -> %s]",
		s.render(s.fn, fn.Export), strings.Join(params, ", "), result,
		fn.Name, fn.ResultKind())
}

// tree renders v as an indented tree, one value per line.
func (s styles) tree(v value.Value) string {
	var b strings.Builder
	s.writeNode(&b, v, "", "")
	return strings.TrimSuffix(b.String(), "\n")
}

func (s styles) writeNode(b *strings.Builder, v value.Value, label, indent string) {
	if label != "" {
		b.WriteString(s.render(s.key, label))
		b.WriteString(" ")
	}
	if v == nil {
		v = value.Null{}
	}

	switch v := v.(type) {
	case value.Array:
		b.WriteString(s.render(s.tag, fmt.Sprintf("array(%d)", len(v))))
		b.WriteString("\n")
		for i, e := range v {
			s.writeChild(b, e, fmt.Sprintf("[%d]", i), indent, i == len(v)-1)
		}
	case value.Struct:
		keys := v.Keys()
		b.WriteString(s.render(s.tag, fmt.Sprintf("struct(%d)", len(keys))))
		b.WriteString("\n")
		for i, k := range keys {
			s.writeChild(b, v[k], k+":", indent, i == len(keys)-1)
		}
	case value.Null:
		b.WriteString(s.render(s.tag, "null"))
		b.WriteString("\n")
	default:
		b.WriteString(s.render(s.tag, v.Tag().String()))
		b.WriteString(" ")
		b.WriteString(s.render(s.lit, literal(v)))
		b.WriteString("\n")
	}
}

func (s styles) writeChild(b *strings.Builder, v value.Value, label, indent string, last bool) {
	branch, next := "├─ ", "│  "
	if last {
		branch, next = "└─ ", "   "
	}
	b.WriteString(indent)
	b.WriteString(branch)
	s.writeNode(b, v, label, indent+next)
}

func literal(v value.Value) string {
	switch v := v.(type) {
	case value.String:
		return strconv.Quote(string(v))
	case value.Bytes:
		return hex.EncodeToString(v)
	}
	return v.String()
}
