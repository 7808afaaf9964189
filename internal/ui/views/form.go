package views

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgienger/taskhq/internal/forms"
	"github.com/tgienger/taskhq/internal/ui/keys"
	"github.com/tgienger/taskhq/internal/ui/styles"
)

// widget edits one form field. Choice fields have neither input.
type widget struct {
	input *textinput.Model
	area  *textarea.Model
}

func (w widget) value() string {
	switch {
	case w.input != nil:
		return w.input.Value()
	case w.area != nil:
		return w.area.Value()
	}
	return ""
}

// FormView renders an open form as a modal and edits its fields.
type FormView struct {
	form    *forms.Form
	title   string
	widgets []widget
	focus   int

	styles *styles.Styles
	keys   keys.KeyMap
	width  int
	height int
}

// NewFormView builds inputs for every field of f, seeded with its values.
func NewFormView(f *forms.Form, title string) *FormView {
	v := &FormView{
		form:   f,
		title:  title,
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
	}
	for _, fd := range f.Fields() {
		var w widget
		switch {
		case len(fd.Choices) > 0:
		case fd.Multiline:
			ta := textarea.New()
			ta.Placeholder = fd.Label
			ta.CharLimit = 5000
			ta.SetWidth(50)
			ta.SetHeight(4)
			ta.ShowLineNumbers = false
			ta.SetValue(fd.Value)
			w.area = &ta
		default:
			ti := textinput.New()
			ti.Placeholder = fd.Hint
			if ti.Placeholder == "" {
				ti.Placeholder = fd.Label
			}
			ti.CharLimit = 200
			ti.SetValue(fd.Value)
			w.input = &ti
		}
		v.widgets = append(v.widgets, w)
	}
	v.updateFocus()
	return v
}

// Form is the form being edited.
func (v *FormView) Form() *forms.Form { return v.form }

func (v *FormView) Init() tea.Cmd { return textinput.Blink }

func (v *FormView) updateFocus() {
	for i, w := range v.widgets {
		switch {
		case w.input != nil && i == v.focus:
			w.input.Focus()
		case w.input != nil:
			w.input.Blur()
		case w.area != nil && i == v.focus:
			w.area.Focus()
		case w.area != nil:
			w.area.Blur()
		}
	}
}

func (v *FormView) cycleFocus(dir int) {
	n := len(v.widgets)
	if n == 0 {
		return
	}
	v.focus = ((v.focus+dir)%n + n) % n
	v.updateFocus()
}

func (v *FormView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		inputWidth := clamp(styles.ContentWidth(msg.Width)-12, 20, 60)
		for _, w := range v.widgets {
			if w.area != nil {
				w.area.SetWidth(inputWidth)
			}
			if w.input != nil {
				w.input.Width = inputWidth
			}
		}
		return v, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Back):
			return v, func() tea.Msg { return FormCancelled{} }
		case key.Matches(msg, v.keys.Submit):
			if v.form.Pending() {
				return v, nil
			}
			return v, func() tea.Msg { return FormSubmitted{} }
		case key.Matches(msg, v.keys.Tab):
			v.cycleFocus(1)
			return v, nil
		case key.Matches(msg, v.keys.STab):
			v.cycleFocus(-1)
			return v, nil
		}

		if v.form.Pending() || len(v.widgets) == 0 {
			return v, nil
		}

		fd := v.form.Field(v.focus)
		w := v.widgets[v.focus]
		var cmd tea.Cmd
		switch {
		case len(fd.Choices) > 0:
			switch {
			case key.Matches(msg, v.keys.Left):
				v.form.Cycle(fd.Key, -1)
			case key.Matches(msg, v.keys.Right), msg.String() == " ":
				v.form.Cycle(fd.Key, 1)
			case key.Matches(msg, v.keys.Enter):
				v.cycleFocus(1)
			}
			return v, nil
		case w.input != nil:
			if key.Matches(msg, v.keys.Enter) {
				v.cycleFocus(1)
				return v, nil
			}
			*w.input, cmd = w.input.Update(msg)
		case w.area != nil:
			*w.area, cmd = w.area.Update(msg)
		}
		v.form.Set(fd.Key, w.value())
		return v, cmd
	}
	return v, nil
}

func (v *FormView) View() string {
	s := v.styles
	inputWidth := clamp(styles.ContentWidth(v.width)-12, 20, 60)

	rows := []string{s.Title.Render(v.title), ""}
	for i, fd := range v.form.Fields() {
		label := fd.Label
		if fd.Required {
			label += " *"
		}
		style := s.Input
		if i == v.focus {
			style = s.InputFocused
		}

		var input string
		w := v.widgets[i]
		switch {
		case len(fd.Choices) > 0:
			input = style.Width(inputWidth).Render("◀ " + fd.Value + " ▶")
		case w.area != nil:
			input = style.Width(inputWidth).Render(w.area.View())
		default:
			input = style.Width(inputWidth).Render(w.input.View())
		}
		rows = append(rows, s.Label.Render(label), input)
		if fd.Hint != "" && i == v.focus {
			rows = append(rows, s.TitleMuted.Render(fd.Hint))
		}
	}

	if errs := v.form.Errors(); len(errs) > 0 {
		rows = append(rows, "")
		for _, e := range errs {
			rows = append(rows, s.Error.Render("• "+e))
		}
	}

	rows = append(rows, "")
	if v.form.Pending() {
		rows = append(rows, s.ButtonPrimary.Render(" Saving... "))
	} else {
		rows = append(rows, s.ButtonPrimary.Render(" Save "))
	}
	rows = append(rows, s.TitleMuted.Render("Tab: next • ←/→: change choice • Ctrl+S: save • Esc: cancel"))

	modal := s.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	contentWidth := styles.ContentWidth(v.width)
	centered := lipgloss.Place(contentWidth, max(v.height, lipgloss.Height(modal)),
		lipgloss.Center, lipgloss.Center,
		modal,
	)
	return styles.CenterView(centered, v.width, v.height)
}
