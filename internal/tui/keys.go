package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the application
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	Tab      key.Binding
	BackTab  key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Enter    key.Binding
	Escape   key.Binding

	// Auth screen
	SwitchTab key.Binding

	// List actions
	Delete   key.Binding
	Confirm  key.Binding
	Toggle   key.Binding
	New      key.Binding
	Enroll   key.Binding
	Unenroll key.Binding
	Refresh  key.Binding

	// Attendance
	Cycle      key.Binding
	AllPresent key.Binding
	Submit     key.Binding
	Summary    key.Binding
	Monthly    key.Binding

	// Global
	Help      key.Binding
	Debug     key.Binding
	Logout    key.Binding
	Quit      key.Binding
	Interrupt key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field / focus"),
		),
		BackTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous field"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next page"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open / submit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		SwitchTab: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "login / register"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "confirm"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "toggle active"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Enroll: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "enroll"),
		),
		Unenroll: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "unenroll"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Cycle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "cycle status"),
		),
		AllPresent: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "all present"),
		),
		Submit: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "submit"),
		),
		Summary: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "summary"),
		),
		Monthly: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "monthly chart"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Debug: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "debug panel"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "logout"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Interrupt: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns keybindings to show in the mini help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Enter, k.Escape, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Tab, k.BackTab, k.PrevPage, k.NextPage, k.Enter, k.Escape},
		{k.Delete, k.Confirm, k.Toggle, k.New, k.Enroll, k.Unenroll, k.Refresh},
		{k.Cycle, k.AllPresent, k.Submit, k.Summary, k.Monthly},
		{k.SwitchTab, k.Help, k.Debug, k.Logout, k.Quit},
	}
}
