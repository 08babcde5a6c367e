package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/hostffi/gen"
	"github.com/wippyai/hostffi/value"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DDDDDD"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateShowWrapper
	stateDecode
)

type interactiveModel struct {
	err      error
	model    *gen.PackageModel
	cfg      *gen.Config
	styles   styles
	wrapper  string
	decoded  string
	input    textinput.Model
	selected int
	state    modelState
}

func newInteractiveModel(model *gen.PackageModel, cfg *gen.Config) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "6:1:YQ==:MDo1"
	ti.Prompt = "record: "
	ti.Width = 60

	return &interactiveModel{
		model:  model,
		cfg:    cfg,
		styles: newStyles(true),
		input:  ti,
		state:  stateSelectFunc,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.state == stateDecode {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.state = stateSelectFunc
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.decode()
		return m, cmd
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.state == stateSelectFunc && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.state == stateSelectFunc && m.selected < len(m.model.Functions)-1 {
			m.selected++
		}

	case "enter":
		switch m.state {
		case stateSelectFunc:
			if len(m.model.Functions) == 0 {
				return m, nil
			}
			m.showWrapper()
			m.state = stateShowWrapper
		case stateShowWrapper:
			m.state = stateSelectFunc
		}

	case "d":
		if m.state == stateSelectFunc {
			m.state = stateDecode
			m.input.Focus()
			m.decode()
		}

	case "esc":
		m.state = stateSelectFunc
		m.err = nil
	}

	return m, nil
}

// showWrapper renders the generated wrapper for the selected function.
func (m *interactiveModel) showWrapper() {
	single := &gen.PackageModel{
		ImportPath: m.model.ImportPath,
		Name:       m.model.Name,
		Functions:  m.model.Functions[m.selected : m.selected+1],
	}
	cfg := *m.cfg
	cfg.NoMain = true
	cfg.EmitLastError = false

	src, err := gen.Generate(single, &cfg)
	if err != nil {
		m.err = err
		m.wrapper = ""
		return
	}
	m.err = nil

	// Drop the file header; the export is what matters here.
	code := string(src)
	if i := strings.Index(code, "//export"); i >= 0 {
		code = code[i:]
	}
	m.wrapper = strings.TrimSpace(code)
}

func (m *interactiveModel) decode() {
	record := strings.TrimSpace(m.input.Value())
	if record == "" {
		m.decoded, m.err = "", nil
		return
	}
	v, err := value.Decode(record)
	if err != nil {
		m.decoded, m.err = "", err
		return
	}
	m.decoded, m.err = m.styles.tree(v), nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("hostffi"))
	b.WriteString(" ")
	b.WriteString(m.model.ImportPath)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		if len(m.model.Functions) == 0 {
			b.WriteString("No exportable functions.\n")
		} else {
			b.WriteString("Exports:\n\n")
		}
		for i, fn := range m.model.Functions {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + newStyles(false).signature(fn)))
			} else {
				b.WriteString("  " + m.styles.signature(fn))
			}
			b.WriteString("\n")
		}
		if n := len(m.model.Skipped); n > 0 {
			b.WriteString(helpStyle.Render(fmt.Sprintf("\n%d functions skipped\n", n)))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter show wrapper • d decode record • q quit"))

	case stateShowWrapper:
		fn := m.model.Functions[m.selected]
		b.WriteString(fmt.Sprintf("Wrapper for %s:\n\n", m.styles.render(m.styles.fn, fn.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(codeStyle.Render(m.wrapper))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter back • q quit"))

	case stateDecode:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(m.decoded)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("esc back • ctrl+c quit"))
	}

	return b.String()
}

func runInteractive(model *gen.PackageModel, cfg *gen.Config) error {
	p := tea.NewProgram(newInteractiveModel(model, cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
