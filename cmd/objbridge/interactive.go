package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/objbridge/dispatch"
	"github.com/wippyai/objbridge/errors"
	"github.com/wippyai/objbridge/value"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	classStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB"))

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

// actionNew constructs the workspace instance of a class.
const actionNew = "new"

type actionItem struct {
	class string
	spec  dispatch.ActionSpec
}

func (a actionItem) params() []string {
	if a.spec.Name == actionNew {
		return []string{"args"}
	}
	return a.spec.Args
}

// session holds one workspace instance per class and issues calls the way
// a host console would.
type session struct {
	module    *dispatch.Module
	instances map[string]*value.Object
}

func newSession(m *dispatch.Module) *session {
	return &session{module: m, instances: make(map[string]*value.Object)}
}

func (s *session) items() []actionItem {
	var items []actionItem
	for _, name := range s.module.Names() {
		fn, _ := s.module.Lookup(name)
		items = append(items, actionItem{class: name, spec: dispatch.ActionSpec{
			Name: actionNew, NOut: 1, Help: "construct the workspace instance",
		}})
		for _, a := range fn.Actions() {
			items = append(items, actionItem{class: name, spec: a})
		}
	}
	return items
}

func (s *session) instance(class string) *value.Object {
	o, ok := s.instances[class]
	if !ok {
		o = value.NewInstance(class)
		s.instances[class] = o
	}
	return o
}

// call runs item with the raw text of its inputs. Constructor arguments are
// whitespace separated; trailing empty inputs are dropped.
func (s *session) call(item actionItem, raw []string) ([]value.Cell, error) {
	var args []value.Cell
	if item.spec.Name == actionNew {
		for _, field := range strings.Fields(strings.Join(raw, " ")) {
			args = append(args, value.Parse(field))
		}
	} else {
		n := len(raw)
		for n > 0 && strings.TrimSpace(raw[n-1]) == "" {
			n--
		}
		for _, text := range raw[:n] {
			args = append(args, value.Parse(text))
		}
	}

	var inputs []value.Cell
	switch {
	case item.spec.Static:
		inputs = append([]value.Cell{value.String(item.spec.Name)}, args...)
	case item.spec.Name == actionNew:
		inputs = append([]value.Cell{s.instance(item.class)}, args...)
	default:
		inputs = append([]value.Cell{s.instance(item.class), value.String(item.spec.Name)}, args...)
	}
	return s.module.Invoke(item.class, item.spec.NOut, inputs)
}

func formatOutputs(out []value.Cell) string {
	if len(out) == 0 {
		return "ok"
	}
	lines := make([]string, len(out))
	for i, c := range out {
		lines[i] = fmt.Sprintf("ans%d = %s", i+1, value.Format(c))
	}
	return strings.Join(lines, "\n")
}

func formatError(err error, class string) string {
	d := errors.Describe(err, errors.JoinID(class, "mex", "failedAction"))
	return d.ID + "\n" + d.Message
}

type interactiveModel struct {
	session  *session
	err      error
	result   string
	items    []actionItem
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type modelState int

const (
	stateSelectAction modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(m *dispatch.Module) *interactiveModel {
	s := newSession(m)
	return &interactiveModel{
		session: s,
		items:   s.items(),
		state:   stateSelectAction,
	}
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectAction && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectAction && m.selected < len(m.items)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectAction:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callAction
				}
				m.state = stateInputArgs
				return m, nil

			case stateInputArgs:
				return m, m.callAction

			case stateShowResult:
				m.state = stateSelectAction
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectAction
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectAction
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
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

func (m *interactiveModel) prepareInputs() {
	params := m.items[m.selected].params()
	m.inputs = make([]textinput.Model, len(params))
	for i, p := range params {
		ti := textinput.New()
		ti.Placeholder = "'text' 1.5 [1 2 3] true u64:7"
		ti.Prompt = p + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callAction() tea.Msg {
	item := m.items[m.selected]
	raw := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		raw[i] = input.Value()
	}

	out, err := m.session.call(item, raw)
	if err != nil {
		return callResultMsg{err: fmt.Errorf("%s", formatError(err, item.class))}
	}
	return callResultMsg{result: formatOutputs(out)}
}

func (m *interactiveModel) View() string {
	if len(m.items) == 0 {
		return errorStyle.Render("No classes registered.\n\nPress q to quit.")
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("objbridge"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectAction:
		b.WriteString("Select an action to call:\n\n")
		class := ""
		for i, item := range m.items {
			if item.class != class {
				class = item.class
				b.WriteString(classStyle.Render(class))
				b.WriteString(m.instanceState(class))
				b.WriteString("\n")
			}
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatItem(item)))
			} else {
				b.WriteString("  " + formatItem(item))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		item := m.items[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s.%s\n\n", item.class, funcStyle.Render(item.spec.Name)))
		for _, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		item := m.items[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s.%s:\n\n", item.class, funcStyle.Render(item.spec.Name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(m.err.Error()))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) instanceState(class string) string {
	o, ok := m.session.instances[class]
	if !ok {
		return ""
	}
	slot, _ := o.Property(value.BackendProperty)
	if value.IsEmpty(slot) {
		return typeStyle.Render("  (not constructed)")
	}
	return typeStyle.Render("  backend=" + value.Format(slot))
}

func formatItem(item actionItem) string {
	name := item.spec.Name
	if item.spec.Static {
		name = "static " + name
	}
	var params []string
	for _, p := range item.params() {
		params = append(params, typeStyle.Render(p))
	}
	s := funcStyle.Render(name) + "(" + strings.Join(params, ", ") + ")"
	if item.spec.Help != "" {
		s += "  " + helpStyle.Render(item.spec.Help)
	}
	return s
}

func runInteractive(m *dispatch.Module) error {
	p := tea.NewProgram(newInteractiveModel(m), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
