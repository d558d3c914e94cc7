package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/gi-bridge/bridge"
	"github.com/wippyai/gi-bridge/typelib"
	"github.com/wippyai/gi-bridge/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// pageSize is the number of entries shown around the cursor.
const pageSize = 20

type interactiveModel struct {
	err      error
	bridge   *bridge.Bridge
	repo     *typelib.Repository
	result   string
	entries  []entry
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type entry struct {
	info     *typelib.Info
	callable *types.Callable
	params   []paramInfo
}

type paramInfo struct {
	name    string
	typeStr string
}

type modelState int

const (
	stateSelect modelState = iota
	stateInputArgs
	stateVariant
	stateShowResult
)

func newInteractiveModel() *interactiveModel {
	return &interactiveModel{state: stateSelect}
}

type loadedMsg struct {
	err     error
	bridge  *bridge.Bridge
	repo    *typelib.Repository
	entries []entry
}

type resultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.load
}

func (m *interactiveModel) load() tea.Msg {
	ctx := context.Background()

	b, err := openDemo(ctx, false)
	if err != nil {
		return loadedMsg{err: err}
	}
	repo, err := loadRepository("")
	if err != nil {
		_ = b.Close(ctx)
		return loadedMsg{err: err}
	}

	var entries []entry
	for _, ns := range repo.Namespaces() {
		for _, info := range repo.Entries(ns) {
			e := entry{info: info}
			if info.Kind == typelib.InfoFunction && info.Signature != nil && !info.Signature.Method {
				c, err := b.Callable(info.QualifiedName())
				if err == nil {
					e.callable = c
					e.params = visibleParams(c)
				}
			}
			entries = append(entries, e)
		}
	}
	return loadedMsg{bridge: b, repo: repo, entries: entries}
}

// visibleParams lists the parameters a caller supplies: in and inout
// parameters the bridge does not compute itself.
func visibleParams(c *types.Callable) []paramInfo {
	hidden := c.Hidden()
	var out []paramInfo
	for i, p := range c.Params {
		if hidden[i] || p.Direction == types.DirOut {
			continue
		}
		out = append(out, paramInfo{name: p.Name, typeStr: p.Type.String()})
	}
	return out
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		typing := m.state == stateInputArgs || m.state == stateVariant
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "q":
			if !typing {
				return m, m.quit()
			}

		case "up", "k":
			if m.state == stateSelect && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelect && m.selected < len(m.entries)-1 {
				m.selected++
			}

		case "v":
			if m.state == stateSelect {
				m.prepareVariantInput()
				m.state = stateVariant
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelect:
				if len(m.entries) == 0 {
					return m, nil
				}
				e := m.entries[m.selected]
				if e.callable == nil {
					m.result = describeInfo(printer{color: true}, m.repo, e.info)
					m.state = stateShowResult
					return m, nil
				}
				m.prepareInputs(e)
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callFunction

			case stateVariant:
				return m, m.checkVariant

			case stateShowResult:
				m.reset()
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "esc":
			if m.state != stateSelect {
				m.reset()
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.bridge = msg.bridge
		m.repo = msg.repo
		m.entries = msg.entries

	case resultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs || m.state == stateVariant {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) quit() tea.Cmd {
	if m.bridge != nil {
		_ = m.bridge.Close(context.Background())
		m.bridge = nil
	}
	return tea.Quit
}

func (m *interactiveModel) reset() {
	m.state = stateSelect
	m.inputs = nil
	m.result = ""
	m.err = nil
}

func (m *interactiveModel) prepareInputs(e entry) {
	m.inputs = make([]textinput.Model, len(e.params))
	for i, p := range e.params {
		ti := textinput.New()
		ti.Placeholder = p.typeStr
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) prepareVariantInput() {
	ti := textinput.New()
	ti.Placeholder = "a{sv}"
	ti.Prompt = "type: "
	ti.Width = 40
	ti.Focus()
	m.inputs = []textinput.Model{ti}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	if m.bridge == nil {
		return resultMsg{err: fmt.Errorf("library not loaded")}
	}
	e := m.entries[m.selected]
	args := make([]any, len(m.inputs))
	for i, input := range m.inputs {
		v, err := parseArg(input.Value())
		if err != nil {
			return resultMsg{err: err}
		}
		args[i] = v
	}

	res, err := m.bridge.Invoke(context.Background(), e.callable, args...)
	if err != nil {
		return resultMsg{err: err}
	}
	st := m.bridge.Stats()
	return resultMsg{result: fmt.Sprintf("%v\n\nheap: %d blocks, %d bytes; trampolines: %d",
		res, st.HeapBlocks, st.HeapBytes, st.Trampolines)}
}

func (m *interactiveModel) checkVariant() tea.Msg {
	var b strings.Builder
	if err := writeVariant(&b, m.inputs[0].Value()); err != nil {
		return resultMsg{err: err}
	}
	return resultMsg{result: b.String()}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.entries == nil {
		return "Loading typelib...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("GI Inspector"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelect:
		b.WriteString("Select an entry:\n\n")
		start := m.selected - pageSize/2
		if start < 0 {
			start = 0
		}
		end := start + pageSize
		if end > len(m.entries) {
			end = len(m.entries)
		}
		for i := start; i < end; i++ {
			line := m.formatEntry(m.entries[i])
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call/show • v variant • q quit"))

	case stateInputArgs:
		e := m.entries[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(e.info.QualifiedName())))
		for i := range m.inputs {
			b.WriteString(m.inputs[i].View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(e.params[i].typeStr))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("values are YAML • tab next field • enter call • esc back"))

	case stateVariant:
		b.WriteString("Check a variant type string\n\n")
		b.WriteString(m.inputs[0].View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter check • esc back"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatEntry(e entry) string {
	kind := typeStyle.Render(fmt.Sprintf("%-11s", e.info.Kind))
	if e.callable == nil {
		return kind + " " + e.info.QualifiedName()
	}
	params := make([]string, len(e.params))
	for i, p := range e.params {
		params[i] = p.name + ": " + typeStyle.Render(p.typeStr)
	}
	s := kind + " " + funcStyle.Render(e.info.QualifiedName()) + "(" + strings.Join(params, ", ") + ")"
	if e.callable.Return != nil {
		s += " -> " + typeStyle.Render(e.callable.Return.String())
	}
	return s
}

func runInteractive() error {
	p := tea.NewProgram(newInteractiveModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
