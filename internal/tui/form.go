package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// formField is one labelled input. A field with choices is a selector
// cycled with left/right instead of a text box.
type formField struct {
	key     string
	label   string
	input   textinput.Model
	choices []string
	choice  int

	// shown only while the field named dependsOn has value dependsValue
	dependsOn    string
	dependsValue string
}

func textField(key, label, placeholder string) formField {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "❯ "
	ti.PromptStyle = InputPromptStyle
	ti.CharLimit = 120
	ti.Width = 36
	return formField{key: key, label: label, input: ti}
}

func passwordField(key, label string) formField {
	f := textField(key, label, "")
	f.input.EchoMode = textinput.EchoPassword
	f.input.EchoCharacter = '•'
	return f
}

func choiceField(key, label string, choices ...string) formField {
	return formField{key: key, label: label, choices: choices}
}

// when makes the field conditional on another field's value
func (f formField) when(key, value string) formField {
	f.dependsOn = key
	f.dependsValue = value
	return f
}

// withValue pre-fills a text field
func (f formField) withValue(v string) formField {
	f.input.SetValue(v)
	return f
}

// form is a vertical list of fields with one focused at a time.
// Enter and Esc are left to the owner.
type form struct {
	title  string
	fields []formField
	focus  int

	// arrows=false keeps up/down free for the owner
	arrows bool
}

func newForm(title string, fields ...formField) form {
	f := form{title: title, fields: fields, arrows: true}
	f.focusField(0)
	return f
}

func (f *form) index(key string) int {
	for i, fld := range f.fields {
		if fld.key == key {
			return i
		}
	}
	return -1
}

func (f *form) visible(i int) bool {
	fld := f.fields[i]
	if fld.dependsOn == "" {
		return true
	}
	return f.Value(fld.dependsOn) == fld.dependsValue
}

func (f *form) focusField(i int) tea.Cmd {
	for j := range f.fields {
		f.fields[j].input.Blur()
	}
	if len(f.fields) == 0 {
		return nil
	}
	f.focus = i
	if f.fields[i].choices != nil {
		return nil
	}
	return f.fields[i].input.Focus()
}

// move shifts focus by delta, skipping hidden fields and wrapping around
func (f *form) move(delta int) tea.Cmd {
	n := len(f.fields)
	if n == 0 {
		return nil
	}
	i := f.focus
	for j := 0; j < n; j++ {
		i = (i + delta + n) % n
		if f.visible(i) {
			return f.focusField(i)
		}
	}
	return nil
}

// Focused returns the key of the focused field
func (f *form) Focused() string {
	if len(f.fields) == 0 {
		return ""
	}
	return f.fields[f.focus].key
}

// Update handles navigation and forwards everything else to the focused field
func (f *form) Update(msg tea.Msg) tea.Cmd {
	if len(f.fields) == 0 {
		return nil
	}
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab":
			return f.move(1)
		case "shift+tab":
			return f.move(-1)
		case "down":
			if f.arrows {
				return f.move(1)
			}
			return nil
		case "up":
			if f.arrows {
				return f.move(-1)
			}
			return nil
		}
		fld := &f.fields[f.focus]
		if fld.choices != nil {
			switch k.String() {
			case "left", "h":
				fld.choice = (fld.choice - 1 + len(fld.choices)) % len(fld.choices)
			case "right", "l", " ":
				fld.choice = (fld.choice + 1) % len(fld.choices)
			}
			return nil
		}
	}
	var cmd tea.Cmd
	fld := &f.fields[f.focus]
	if fld.choices == nil {
		fld.input, cmd = fld.input.Update(msg)
	}
	return cmd
}

// Value returns the trimmed value of a field; hidden fields read as empty
func (f *form) Value(key string) string {
	i := f.index(key)
	if i < 0 {
		return ""
	}
	fld := f.fields[i]
	if fld.dependsOn != "" && f.Value(fld.dependsOn) != fld.dependsValue {
		return ""
	}
	if fld.choices != nil {
		return fld.choices[fld.choice]
	}
	return strings.TrimSpace(fld.input.Value())
}

// Raw returns a text field exactly as typed
func (f *form) Raw(key string) string {
	i := f.index(key)
	if i < 0 || f.fields[i].choices != nil {
		return ""
	}
	return f.fields[i].input.Value()
}

// SetValue sets a text field or selects a matching choice
func (f *form) SetValue(key, value string) {
	i := f.index(key)
	if i < 0 {
		return
	}
	fld := &f.fields[i]
	if fld.choices == nil {
		fld.input.SetValue(value)
		return
	}
	for j, c := range fld.choices {
		if c == value {
			fld.choice = j
		}
	}
}

// View renders the visible fields
func (f *form) View() string {
	var b strings.Builder
	if f.title != "" {
		b.WriteString(SectionTitleStyle.Render(f.title))
		b.WriteString("\n")
	}
	for i, fld := range f.fields {
		if !f.visible(i) {
			continue
		}
		label := FormLabelStyle
		if i == f.focus {
			label = FormLabelFocusedStyle
		}
		b.WriteString(label.Render(fld.label))
		if fld.choices != nil {
			for j, c := range fld.choices {
				if j == fld.choice {
					b.WriteString(ChoiceActiveStyle.Render("● " + c))
				} else {
					b.WriteString(ChoiceStyle.Render("○ " + c))
				}
			}
		} else {
			b.WriteString(fld.input.View())
		}
		b.WriteString("\n")
	}
	return b.String()
}
