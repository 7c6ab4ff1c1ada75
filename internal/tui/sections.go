package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/view"
)

// modalKind identifies the form open over the content pane
type modalKind int

const (
	modalNone modalKind = iota
	modalNewUser
	modalNewCourse
)

// confirmation is a pending destructive action awaiting y
type confirmation struct {
	prompt string
	run    func(ctx context.Context) (string, error)
}

const maxColumnWidth = 32

// newTable builds a bubbles table whose column widths fit the content
func newTable(columns []string, rows [][]string) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		w := len(c)
		for _, r := range rows {
			if i < len(r) {
				w = max(w, lipgloss.Width(r[i]))
			}
		}
		cols[i] = table.Column{Title: c, Width: min(w+2, maxColumnWidth)}
	}
	trs := make([]table.Row, len(rows))
	for i, r := range rows {
		trs[i] = table.Row(r)
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(trs),
		table.WithFocused(true),
	)
	// letters are section actions, so the table only pages with the arrows
	t.KeyMap = table.KeyMap{
		LineUp:     key.NewBinding(key.WithKeys("up", "k")),
		LineDown:   key.NewBinding(key.WithKeys("down", "j")),
		PageUp:     key.NewBinding(key.WithKeys("pgup")),
		PageDown:   key.NewBinding(key.WithKeys("pgdown")),
		GotoTop:    key.NewBinding(key.WithKeys("home")),
		GotoBottom: key.NewBinding(key.WithKeys("end")),
	}
	t.SetStyles(tableStyles())
	return t
}

// openSection loads the highlighted section from its first page
func (m *Model) openSection() tea.Cmd {
	m.clearSection()
	s := m.section()
	if s == view.SectionAttendance {
		return m.openAttendance()
	}
	m.busy = true
	return m.loadSectionCmd(s, 1)
}

// reload fetches the current page of the open section again
func (m *Model) reload() tea.Cmd {
	s := m.section()
	if s == view.SectionAttendance || s == "" {
		return nil
	}
	m.busy = true
	return m.loadSectionCmd(s, m.page)
}

func (m Model) loadSectionCmd(s view.Section, page int) tea.Cmd {
	ctx, loader := m.ctx, m.loader
	return func() tea.Msg {
		msg := sectionLoadedMsg{section: s, page: page}
		switch s {
		case view.SectionDashboard:
			msg.dashboard, msg.err = loader.Dashboard(ctx)
		case view.SectionProfile:
			msg.profile, msg.err = loader.Profile()
		case view.SectionUsers:
			msg.list, msg.err = loader.Users(ctx, page, "")
		case view.SectionStudents:
			msg.list, msg.err = loader.Students(ctx, page)
		case view.SectionTeachers:
			msg.list, msg.err = loader.Teachers(ctx, page)
		case view.SectionCourses:
			msg.courses, msg.err = loader.Courses(ctx, page)
		}
		return msg
	}
}

func (m Model) handleSectionLoaded(msg sectionLoadedMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.section != m.section() {
		// the user moved on while this was loading
		return m, nil
	}
	if msg.err != nil {
		m.sectionErr = api.Message(msg.err, "")
		cmd := m.fail(msg.err)
		return m, cmd
	}
	m.sectionErr = ""
	m.page = msg.page
	m.dashboard = msg.dashboard
	m.profile = msg.profile
	m.list = msg.list
	m.courses = msg.courses

	var columns []string
	var rows [][]string
	m.rowIDs = nil
	switch {
	case msg.list != nil:
		columns = msg.list.Columns
		for _, r := range msg.list.Rows {
			rows = append(rows, r.Cells)
			m.rowIDs = append(m.rowIDs, r.ID)
		}
	case msg.courses != nil:
		columns = []string{"Code", "Name", "Instructor", "Credits", "Enrolled", "Semester"}
		for _, c := range msg.courses.Cards {
			rows = append(rows, []string{c.Code, c.Name, c.Instructor, strconv.Itoa(c.Credits), c.Enrolled, c.Semester})
			m.rowIDs = append(m.rowIDs, c.ID)
		}
	}
	m.table = newTable(columns, rows)
	m.table.SetHeight(m.tableHeight())
	if m.focus != focusContent {
		m.table.Blur()
	}
	return m, nil
}

// selectedID is the entity under the table cursor
func (m Model) selectedID() (string, int, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rowIDs) {
		return "", 0, false
	}
	return m.rowIDs[i], i, true
}

func (m Model) pagination() (api.Pagination, bool) {
	switch {
	case m.list != nil:
		return m.list.Pagination, true
	case m.courses != nil:
		return m.courses.Pagination, true
	}
	return api.Pagination{}, false
}

func (m Model) updateSection(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.section()
	switch {
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.reload()
		return m, cmd

	case key.Matches(msg, m.keys.PrevPage, m.keys.NextPage):
		p, ok := m.pagination()
		if !ok {
			return m, nil
		}
		next := m.page
		if key.Matches(msg, m.keys.PrevPage) && p.HasPrev() {
			next--
		}
		if key.Matches(msg, m.keys.NextPage) && p.HasNext() {
			next++
		}
		if next == m.page {
			return m, nil
		}
		m.busy = true
		return m, m.loadSectionCmd(s, next)

	case key.Matches(msg, m.keys.Delete):
		cmd := m.askDelete()
		return m, cmd

	case key.Matches(msg, m.keys.Toggle) && s == view.SectionUsers:
		id, i, ok := m.selectedID()
		if !ok {
			return m, nil
		}
		active := !m.list.Rows[i].Active
		cmd := m.runAction(func(ctx context.Context) (string, error) {
			return m.loader.SetUserActive(ctx, id, active)
		})
		return m, cmd

	case key.Matches(msg, m.keys.New):
		cmd := m.openModal()
		return m, cmd

	case key.Matches(msg, m.keys.Enroll, m.keys.Unenroll) && s == view.SectionCourses:
		if !m.sess.HasRole(model.RoleStudent) {
			return m, nil
		}
		id, _, ok := m.selectedID()
		if !ok {
			return m, nil
		}
		enroll := key.Matches(msg, m.keys.Enroll)
		cmd := m.runAction(func(ctx context.Context) (string, error) {
			if enroll {
				return m.loader.Enroll(ctx, id)
			}
			return m.loader.Unenroll(ctx, id)
		})
		return m, cmd
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// runAction runs fn as a command and reports through actionDoneMsg
func (m *Model) runAction(fn func(ctx context.Context) (string, error)) tea.Cmd {
	m.busy = true
	ctx := m.ctx
	return func() tea.Msg {
		notice, err := fn(ctx)
		return actionDoneMsg{notice: notice, err: err}
	}
}

// askDelete asks to confirm deleting the selected row, where the role may
func (m *Model) askDelete() tea.Cmd {
	id, i, ok := m.selectedID()
	if !ok {
		return nil
	}
	loader := m.loader
	switch m.section() {
	case view.SectionUsers:
		m.confirm = &confirmation{
			prompt: "Deactivate user " + m.list.Rows[i].Cells[0] + "?",
			run:    func(ctx context.Context) (string, error) { return loader.DeactivateUser(ctx, id) },
		}
	case view.SectionStudents:
		m.confirm = &confirmation{
			prompt: "Delete student " + m.list.Rows[i].Cells[1] + "?",
			run:    func(ctx context.Context) (string, error) { return loader.DeleteStudent(ctx, id) },
		}
	case view.SectionTeachers:
		m.confirm = &confirmation{
			prompt: "Delete teacher " + m.list.Rows[i].Cells[1] + "?",
			run:    func(ctx context.Context) (string, error) { return loader.DeleteTeacher(ctx, id) },
		}
	case view.SectionCourses:
		if !m.sess.HasRole(model.RoleTeacher) {
			return nil
		}
		m.confirm = &confirmation{
			prompt: "Delete course " + m.courses.Cards[i].Code + "?",
			run:    func(ctx context.Context) (string, error) { return loader.DeleteCourse(ctx, id) },
		}
	}
	return nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		run := m.confirm.run
		m.confirm = nil
		cmd := m.runAction(run)
		return m, cmd
	case key.Matches(msg, m.keys.Escape), msg.String() == "n":
		m.confirm = nil
	}
	return m, nil
}

func (m Model) confirmView() string {
	return ModalStyle.Render(
		WarningStyle.Render(m.confirm.prompt) + "\n\n" +
			DimStyle.Render("y confirm • n/esc cancel"),
	)
}

// openModal opens the create form of the section, if the role has one
func (m *Model) openModal() tea.Cmd {
	var f form
	switch {
	case m.section() == view.SectionUsers:
		m.modalKind = modalNewUser
		f = newForm("Add User",
			textField("email", "Email", ""),
			textField("first_name", "First name", ""),
			textField("last_name", "Last name", ""),
			passwordField("password", "Password"),
			choiceField("role", "Role", string(model.RoleStudent), string(model.RoleTeacher), string(model.RoleAdmin)),
			textField("roll_number", "Roll number", "").when("role", string(model.RoleStudent)),
			textField("employee_id", "Employee ID", "").when("role", string(model.RoleTeacher)),
			textField("specialization", "Specialization", "").when("role", string(model.RoleTeacher)),
		)
	case m.section() == view.SectionCourses && m.sess.HasRole(model.RoleTeacher):
		m.modalKind = modalNewCourse
		f = newForm("New Course",
			textField("code", "Course code", "MATH101"),
			textField("name", "Course name", ""),
			textField("description", "Description", ""),
			textField("credits", "Credits", "").withValue("3"),
			textField("semester", "Semester", "Fall 2024"),
			textField("max_students", "Max students", "").withValue("50"),
		)
	default:
		return nil
	}
	m.modal = &f
	return m.modal.focusField(0)
}

func (m Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.modal = nil
		m.modalKind = modalNone
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		run, err := m.modalAction()
		if err != nil {
			cmd := m.notify(toastError, err.Error())
			return m, cmd
		}
		m.modal = nil
		m.modalKind = modalNone
		cmd := m.runAction(run)
		return m, cmd
	}
	cmd := m.modal.Update(msg)
	return m, cmd
}

// modalAction validates the open form and returns the call it submits
func (m Model) modalAction() (func(ctx context.Context) (string, error), error) {
	f, loader := m.modal, m.loader
	switch m.modalKind {
	case modalNewUser:
		n := registration(f)
		if err := n.Validate(); err != nil {
			return nil, err
		}
		return func(ctx context.Context) (string, error) { return loader.CreateUser(ctx, n) }, nil

	case modalNewCourse:
		credits, err := optionalInt(f.Value("credits"), "credits")
		if err != nil {
			return nil, err
		}
		maxStudents, err := optionalInt(f.Value("max_students"), "max students")
		if err != nil {
			return nil, err
		}
		in := api.CourseInput{
			CourseCode:  f.Value("code"),
			CourseName:  f.Value("name"),
			Description: f.Value("description"),
			Credits:     credits,
			Semester:    f.Value("semester"),
			MaxStudents: maxStudents,
		}
		return func(ctx context.Context) (string, error) { return loader.CreateCourse(ctx, in) }, nil
	}
	return nil, fmt.Errorf("nothing to submit")
}

func optionalInt(s, name string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a positive number", name)
	}
	return n, nil
}

// sectionView renders the non-attendance sections
func (m Model) sectionView() string {
	s := m.section()
	var b strings.Builder
	b.WriteString(SectionTitleStyle.Render(s.Title()))
	b.WriteString("\n")

	if m.sectionErr != "" {
		b.WriteString(ErrorStyle.Render(m.sectionErr))
		return b.String()
	}

	switch {
	case m.dashboard != nil:
		b.WriteString(m.dashboardView())
	case m.profile != nil:
		for _, f := range m.profile {
			b.WriteString(LabelStyle.Render(f.Label) + ValueStyle.Render(f.Value) + "\n")
		}
	case m.list != nil:
		b.WriteString(m.tableView(m.list.PageInfo(), len(m.list.Rows) == 0, "No records found"))
		b.WriteString("\n" + DimStyle.Render(m.sectionHints()))
	case m.courses != nil:
		p := &view.Table{Pagination: m.courses.Pagination}
		b.WriteString(m.tableView(p.PageInfo(), len(m.courses.Cards) == 0, "No courses available"))
		b.WriteString("\n" + DimStyle.Render(m.sectionHints()))
	case m.busy:
		b.WriteString(DimStyle.Render("Loading..."))
	}
	return b.String()
}

func (m Model) dashboardView() string {
	d := m.dashboard
	out := WarningStyle.Render(d.Greeting) + "\n\n"
	if len(d.Cards) > 0 {
		var cards []string
		for _, c := range d.Cards {
			cards = append(cards, CardStyle.Render(CardValueStyle.Render(c.Value)+"\n"+DimStyle.Render(c.Label)))
		}
		out += lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	if d.Hint != "" {
		out += DimStyle.Render(d.Hint)
	}
	return out
}

func (m Model) tableView(pageInfo string, empty bool, emptyText string) string {
	if empty {
		return DimStyle.Render(emptyText)
	}
	return m.table.View() + "\n" + DimStyle.Render(pageInfo)
}

func (m Model) sectionHints() string {
	hints := []string{"[ ] page", "r reload"}
	switch m.section() {
	case view.SectionUsers:
		hints = append(hints, "n new user", "a toggle active", "d deactivate")
	case view.SectionStudents, view.SectionTeachers:
		hints = append(hints, "d delete")
	case view.SectionCourses:
		switch {
		case m.sess.HasRole(model.RoleStudent):
			hints = append(hints, "e enroll", "u unenroll")
		case m.sess.HasRole(model.RoleTeacher):
			hints = append(hints, "n new course", "d delete")
		}
	}
	return strings.Join(hints, " • ")
}
