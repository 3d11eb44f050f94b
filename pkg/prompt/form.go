package prompt

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ormasoftchile/promptgate/pkg/fields"
)

// FormRenderer presents prompts as a full-screen Bubble Tea form.
type FormRenderer struct {
	progOpts []tea.ProgramOption
}

// NewFormRenderer creates the interactive terminal renderer. Extra program
// options are mainly for tests (custom input/output).
func NewFormRenderer(opts ...tea.ProgramOption) *FormRenderer {
	return &FormRenderer{progOpts: opts}
}

// Render blocks until the operator accepts or cancels the prompt.
func (r *FormRenderer) Render(req Request) Result {
	m := newFormModel(req)
	opts := append([]tea.ProgramOption{tea.WithAltScreen()}, r.progOpts...)
	p := tea.NewProgram(m, opts...)
	out, err := p.Run()
	if err != nil {
		return Fault(fmt.Errorf("run prompt program: %w", err))
	}
	fm, ok := out.(formModel)
	if !ok {
		return Fault(fmt.Errorf("unexpected final prompt model %T", out))
	}
	return fm.result()
}

// --- Key map ---

type formKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Submit key.Binding
	Cancel key.Binding
	Toggle key.Binding
}

func defaultFormKeyMap() formKeyMap {
	return formKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "accept"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("left", "right", " "),
			key.WithHelp("←/→", "change value"),
		),
	}
}

// --- Model ---

// fieldInput pairs a field descriptor with its input widget state.
// String, int, and float fields use a textinput; bool and enum fields are
// toggled in place.
type fieldInput struct {
	field     fields.Field
	text      textinput.Model
	boolVal   bool
	choiceIdx int
}

type formModel struct {
	req    Request
	inputs []fieldInput
	focus  int

	errText   string
	accepted  bool
	cancelled bool
	values    map[string]any

	keys   formKeyMap
	width  int
	height int
}

func newFormModel(req Request) formModel {
	m := formModel{
		req:  req,
		keys: defaultFormKeyMap(),
	}
	for i, f := range req.Fields {
		in := fieldInput{field: f}
		switch f.Kind {
		case fields.KindBool:
			if b, ok := f.Default.(bool); ok {
				in.boolVal = b
			}
		case fields.KindEnum:
			if def, ok := f.Default.(string); ok {
				for j, c := range f.Choices {
					if c == def {
						in.choiceIdx = j
					}
				}
			}
		default:
			ti := textinput.New()
			ti.CharLimit = 4096
			ti.Width = 40
			if f.Default != nil {
				ti.SetValue(fmt.Sprint(f.Default))
			}
			if i == 0 {
				ti.Focus()
			}
			in.text = ti
		}
		m.inputs = append(m.inputs, in)
	}
	return m
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.cancelled = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.Submit):
			if m.submit() {
				return m, tea.Quit
			}
			return m, nil

		case key.Matches(msg, m.keys.Next):
			m.moveFocus(1)
			return m, nil

		case key.Matches(msg, m.keys.Prev):
			m.moveFocus(-1)
			return m, nil

		case key.Matches(msg, m.keys.Toggle) && m.focusedIsToggle():
			m.toggleFocused(msg)
			return m, nil
		}
	}

	// Everything else goes to the focused text input.
	if m.focus < len(m.inputs) {
		in := &m.inputs[m.focus]
		if in.usesText() {
			var cmd tea.Cmd
			in.text, cmd = in.text.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (in *fieldInput) usesText() bool {
	return in.field.Kind != fields.KindBool && in.field.Kind != fields.KindEnum
}

func (m *formModel) focusedIsToggle() bool {
	return m.focus < len(m.inputs) && !m.inputs[m.focus].usesText()
}

func (m *formModel) toggleFocused(msg tea.KeyMsg) {
	in := &m.inputs[m.focus]
	switch in.field.Kind {
	case fields.KindBool:
		in.boolVal = !in.boolVal
	case fields.KindEnum:
		delta := 1
		if msg.String() == "left" {
			delta = -1
		}
		n := len(in.field.Choices)
		in.choiceIdx = (in.choiceIdx + delta + n) % n
	}
}

func (m *formModel) moveFocus(delta int) {
	if len(m.inputs) == 0 {
		return
	}
	if m.focus < len(m.inputs) && m.inputs[m.focus].usesText() {
		m.inputs[m.focus].text.Blur()
	}
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	if m.inputs[m.focus].usesText() {
		m.inputs[m.focus].text.Focus()
	}
}

// submit converts and checks every field. On the first bad field it parks
// focus there, shows the error, and keeps the form open.
func (m *formModel) submit() bool {
	if !m.req.Structured() {
		m.accepted = true
		m.values = map[string]any{}
		return true
	}

	values := make(map[string]any, len(m.inputs))
	for i := range m.inputs {
		in := &m.inputs[i]
		var val any
		var err error
		switch in.field.Kind {
		case fields.KindBool:
			val = in.boolVal
		case fields.KindEnum:
			val = in.field.Choices[in.choiceIdx]
		default:
			val, err = in.field.Convert(in.text.Value())
		}
		if err == nil {
			err = in.field.Check(val)
		}
		if err != nil {
			m.errText = fmt.Sprintf("%s: %v", in.field.Label, err)
			m.setFocus(i)
			return false
		}
		values[in.field.Name] = val
	}
	m.errText = ""
	m.values = values
	m.accepted = true
	return true
}

func (m *formModel) setFocus(i int) {
	if m.focus < len(m.inputs) && m.inputs[m.focus].usesText() {
		m.inputs[m.focus].text.Blur()
	}
	m.focus = i
	if m.inputs[m.focus].usesText() {
		m.inputs[m.focus].text.Focus()
	}
}

func (m formModel) result() Result {
	switch {
	case m.accepted:
		return Accept(m.values)
	case m.cancelled:
		return Cancel()
	}
	return Fault(fmt.Errorf("prompt closed without a response"))
}

// --- View ---

func (m formModel) View() string {
	contentW := m.width - 8
	if contentW < 50 {
		contentW = 50
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.req.Title))
	b.WriteString("\n\n")

	if !m.req.Structured() || m.req.Message == "" {
		// Message mode body; in structured mode the message lives in the
		// title, so nothing extra is shown here.
		if m.req.Message != "" {
			b.WriteString(renderMarkdown(m.req.Message, contentW))
			b.WriteString("\n\n")
		}
	}

	if m.req.Structured() {
		labelW := 0
		for _, in := range m.inputs {
			if w := runewidth.StringWidth(in.field.Label); w > labelW {
				labelW = w
			}
		}
		for i, in := range m.inputs {
			label := runewidth.FillRight(in.field.Label, labelW)
			if i == m.focus {
				label = labelFocusStyle.Render(label)
			} else {
				label = labelStyle.Render(label)
			}
			b.WriteString(label)
			b.WriteString("  ")
			b.WriteString(m.renderWidget(i))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.errText != "" {
		b.WriteString(errStyle.Render("✗ " + m.errText))
		b.WriteString("\n\n")
	}

	b.WriteString(m.helpLine())

	box := boxStyle.Width(contentW).Render(b.String())
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m formModel) renderWidget(i int) string {
	in := m.inputs[i]
	switch in.field.Kind {
	case fields.KindBool:
		if in.boolVal {
			return choiceStyle.Render("[✓] yes")
		}
		return keyDescStyle.Render("[ ] no")
	case fields.KindEnum:
		return keyDescStyle.Render("◂ ") +
			choiceStyle.Render(in.field.Choices[in.choiceIdx]) +
			keyDescStyle.Render(" ▸")
	}
	return in.text.View()
}

func (m formModel) helpLine() string {
	parts := []string{
		keyStyle.Render("Enter") + keyDescStyle.Render(":accept"),
		keyStyle.Render("Esc") + keyDescStyle.Render(":cancel"),
	}
	if m.req.Structured() {
		parts = append(parts,
			keyStyle.Render("Tab")+keyDescStyle.Render(":next field"),
			keyStyle.Render("←/→")+keyDescStyle.Render(":change value"))
	}
	return strings.Join(parts, "  ")
}
