package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/view"
)

// authTab selects the form shown on the auth screen
type authTab int

const (
	authLogin authTab = iota
	authRegister
)

func (t authTab) String() string {
	if t == authRegister {
		return "Register"
	}
	return "Login"
}

// newAuthForm builds the form for tab. Register asks for the role-specific
// fields of the chosen role only.
func newAuthForm(tab authTab) form {
	if tab == authRegister {
		return newForm("",
			textField("first_name", "First name", ""),
			textField("last_name", "Last name", ""),
			textField("email", "Email", "you@school.edu"),
			passwordField("password", "Password"),
			choiceField("role", "Role", string(model.RoleStudent), string(model.RoleTeacher)),
			textField("roll_number", "Roll number", "").when("role", string(model.RoleStudent)),
			textField("employee_id", "Employee ID", "").when("role", string(model.RoleTeacher)),
			textField("specialization", "Specialization", "").when("role", string(model.RoleTeacher)),
		)
	}
	return newForm("",
		textField("email", "Email", "you@school.edu"),
		passwordField("password", "Password"),
	)
}

// showAuth opens the auth screen on tab with an empty form
func (m *Model) showAuth(tab authTab) tea.Cmd {
	m.screen = screenAuth
	m.authTab = tab
	m.auth = newAuthForm(tab)
	return m.auth.focusField(0)
}

func (m Model) updateAuth(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.SwitchTab):
		next := authRegister
		if m.authTab == authRegister {
			next = authLogin
		}
		cmd := m.showAuth(next)
		return m, cmd
	case key.Matches(msg, m.keys.Enter):
		cmd, err := m.submitAuth()
		if err != nil {
			cmd := m.notify(toastError, err.Error())
			return m, cmd
		}
		m.busy = true
		return m, cmd
	}
	cmd := m.auth.Update(msg)
	return m, cmd
}

// registration turns the register tab into a user form
func registration(f *form) view.NewUser {
	return view.NewUser{
		Email:          f.Value("email"),
		FirstName:      f.Value("first_name"),
		LastName:       f.Value("last_name"),
		Password:       f.Raw("password"),
		Role:           model.Role(f.Value("role")),
		RollNumber:     f.Value("roll_number"),
		EmployeeID:     f.Value("employee_id"),
		Specialization: f.Value("specialization"),
	}
}

func (m *Model) submitAuth() (tea.Cmd, error) {
	ctx, backend := m.ctx, m.backend
	if m.authTab == authRegister {
		n := registration(&m.auth)
		if err := n.Validate(); err != nil {
			return nil, err
		}
		req := n.Request()
		return func() tea.Msg {
			u, err := backend.Register(ctx, req)
			if err != nil {
				return authDoneMsg{err: err}
			}
			if full, err := backend.Me(ctx); err == nil {
				u = full
			}
			return authDoneMsg{user: u, registered: true}
		}, nil
	}

	email, password := m.auth.Value("email"), m.auth.Raw("password")
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	return func() tea.Msg {
		u, err := backend.Login(ctx, email, password)
		if err != nil {
			return authDoneMsg{err: err}
		}
		// login returns the bare user; the profile carries the teacher or student id
		if full, err := backend.Me(ctx); err == nil {
			u = full
		}
		return authDoneMsg{user: u}
	}, nil
}

func (m Model) handleAuthDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		text := api.Message(msg.err, "")
		var uerr *api.UnauthorizedError
		if errors.As(msg.err, &uerr) {
			// a 401 here is a credential failure, not an expired session
			text = uerr.Error()
		}
		cmd := m.notify(toastError, text)
		return m, cmd
	}

	m.enterMain()
	notice := "Welcome, " + msg.user.FullName()
	if msg.registered {
		notice = "Registration successful. " + notice
	}
	cmd := tea.Batch(m.notify(toastSuccess, notice), m.openSection())
	return m, cmd
}

func (m Model) authView() string {
	var tabs []string
	for _, t := range []authTab{authLogin, authRegister} {
		if t == m.authTab {
			tabs = append(tabs, TabActiveStyle.Render(t.String()))
		} else {
			tabs = append(tabs, TabStyle.Render(t.String()))
		}
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("StudentTracker"))
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("Attendance and course management"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")
	b.WriteString(m.auth.View())
	b.WriteString("\n")
	if m.busy {
		b.WriteString(StatusBusyStyle.Render("● Signing in..."))
	} else {
		b.WriteString(DimStyle.Render("enter submit • tab next field • ctrl+t " + strings.ToLower(m.otherTab().String()) + " • ctrl+c quit"))
	}

	box := AuthBoxStyle.Render(b.String())
	return lipgloss.JoinVertical(lipgloss.Center,
		lipgloss.Place(m.width, max(m.height-2, lipgloss.Height(box)), lipgloss.Center, lipgloss.Center, box),
		m.renderToast(),
	)
}

func (m Model) otherTab() authTab {
	if m.authTab == authRegister {
		return authLogin
	}
	return authRegister
}
