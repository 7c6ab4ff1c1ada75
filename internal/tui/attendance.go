package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/attendance"
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/view"
)

// attendanceStage is the step of the attendance screen
type attendanceStage int

const (
	stageSetup   attendanceStage = iota // course, date, page size
	stageRoster                         // mark statuses
	stageSummary                        // per-student totals
	stageMonthly                        // one student's month
)

const visibleCourses = 8

type attendanceState struct {
	stage     attendanceStage
	setup     form
	courseIdx int
	loaded    bool
	cursor    int
	result    *api.MarkResult
	summary   *view.SummaryView
	monthly   form
	chart     *model.Monthly
}

// Messages
type coursesLoadedMsg struct {
	err error
}

type rosterLoadedMsg struct {
	err error
}

type submittedMsg struct {
	result *api.MarkResult
	err    error
}

type summaryLoadedMsg struct {
	summary *view.SummaryView
	err     error
}

type monthlyLoadedMsg struct {
	monthly *model.Monthly
	err     error
}

func newAttendanceState(pageSize int) attendanceState {
	if pageSize <= 0 {
		pageSize = attendance.DefaultPageSize
	}
	setup := newForm("",
		textField("filter", "Filter courses", "code or name"),
		textField("date", "Date", "YYYY-MM-DD, empty for today"),
		textField("per_page", "Per page", "").withValue(strconv.Itoa(pageSize)),
	)
	setup.arrows = false

	now := time.Now()
	monthly := newForm("Monthly Attendance",
		textField("student_id", "Student ID", "student uuid"),
		textField("year", "Year", "").withValue(strconv.Itoa(now.Year())),
		textField("month", "Month", "").withValue(strconv.Itoa(int(now.Month()))),
	)
	return attendanceState{setup: setup, monthly: monthly}
}

// activeForm is the form taking keystrokes at this stage, if any
func (a *attendanceState) activeForm() *form {
	switch a.stage {
	case stageSetup:
		return &a.setup
	case stageMonthly:
		return &a.monthly
	}
	return nil
}

// focusForm re-focuses the stage's form when the pane gains focus
func (a *attendanceState) focusForm() tea.Cmd {
	if f := a.activeForm(); f != nil {
		return f.focusField(f.focus)
	}
	return nil
}

func teacherID(u *model.User) string {
	if u == nil || u.Role != model.RoleTeacher || u.Teacher == nil {
		return ""
	}
	return u.Teacher.ID
}

// openAttendance fetches the teacher's courses the first time the section opens
func (m *Model) openAttendance() tea.Cmd {
	if m.att.loaded {
		return nil
	}
	m.busy = true
	ctx, flow := m.ctx, m.flow
	id := teacherID(m.sess.User())
	return func() tea.Msg {
		if id == "" {
			// no teacher profile, nothing to list
			return coursesLoadedMsg{}
		}
		_, err := flow.LoadCourses(ctx, id)
		return coursesLoadedMsg{err: err}
	}
}

// flowCmd runs fn against the flow; the model stays busy until msg arrives
func (m *Model) flowCmd(fn func(ctx context.Context, f *attendance.Flow) tea.Msg) tea.Cmd {
	m.busy = true
	ctx, flow := m.ctx, m.flow
	return func() tea.Msg {
		return fn(ctx, flow)
	}
}

func (m Model) updateAttendanceMsg(msg tea.Msg) (Model, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case coursesLoadedMsg:
		m.busy = false
		if msg.err != nil {
			cmd := m.fail(msg.err)
			return m, cmd, true
		}
		m.att.loaded = true
		m.att.courseIdx = 0
		return m, nil, true

	case rosterLoadedMsg:
		m.busy = false
		if msg.err != nil {
			cmd := m.fail(msg.err)
			return m, cmd, true
		}
		m.att.stage = stageRoster
		m.att.result = nil
		m.att.cursor = min(m.att.cursor, max(len(m.flow.Rows())-1, 0))
		return m, nil, true

	case submittedMsg:
		m.busy = false
		if msg.err != nil {
			cmd := m.fail(msg.err)
			return m, cmd, true
		}
		m.att.result = msg.result
		text := fmt.Sprintf("Attendance marked for %d students", msg.result.MarkedCount)
		kind := toastSuccess
		if n := len(msg.result.Errors); n > 0 {
			text += fmt.Sprintf(", %d rejected", n)
			kind = toastError
		}
		cmd := m.notify(kind, text)
		return m, cmd, true

	case summaryLoadedMsg:
		m.busy = false
		if msg.err != nil {
			cmd := m.fail(msg.err)
			return m, cmd, true
		}
		m.att.summary = msg.summary
		m.att.stage = stageSummary
		return m, nil, true

	case monthlyLoadedMsg:
		m.busy = false
		if msg.err != nil {
			cmd := m.fail(msg.err)
			return m, cmd, true
		}
		m.att.chart = msg.monthly
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) updateAttendance(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.att.stage {
	case stageSetup:
		return m.updateSetup(msg)
	case stageRoster:
		return m.updateRoster(msg)
	case stageSummary:
		if key.Matches(msg, m.keys.Escape) {
			m.att.stage = stageRoster
		}
		if key.Matches(msg, m.keys.Tab) {
			m.focus = focusNav
		}
		return m, nil
	case stageMonthly:
		return m.updateMonthly(msg)
	}
	return m, nil
}

func (m Model) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	courses := m.flow.VisibleCourses()
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.focus = focusNav
		return m, nil
	case msg.String() == "up":
		m.att.courseIdx = max(m.att.courseIdx-1, 0)
		return m, nil
	case msg.String() == "down":
		m.att.courseIdx = min(m.att.courseIdx+1, max(len(courses)-1, 0))
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		if len(courses) == 0 {
			cmd := m.notify(toastError, "No courses found")
			return m, cmd
		}
		pageSize, err := strconv.Atoi(m.att.setup.Value("per_page"))
		if err != nil || pageSize < 1 {
			cmd := m.notify(toastError, "Per page must be a positive number")
			return m, cmd
		}
		course := courses[min(m.att.courseIdx, len(courses)-1)]
		if err := m.flow.Select(course.ID, m.att.setup.Value("date"), pageSize); err != nil {
			cmd := m.notify(toastError, err.Error())
			return m, cmd
		}
		m.att.cursor = 0
		cmd := m.flowCmd(func(ctx context.Context, f *attendance.Flow) tea.Msg {
			return rosterLoadedMsg{err: f.LoadPage(ctx, 1)}
		})
		return m, cmd
	}

	cmd := m.att.setup.Update(msg)
	if q := m.att.setup.Value("filter"); q != m.flow.Filter() {
		m.flow.SetFilter(q)
		m.att.courseIdx = 0
	}
	return m, cmd
}

func (m Model) updateRoster(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.flow.Rows()
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.att.stage = stageSetup
		cmd := m.att.focusForm()
		return m, cmd
	case key.Matches(msg, m.keys.Tab):
		m.focus = focusNav
	case key.Matches(msg, m.keys.Up):
		m.att.cursor = max(m.att.cursor-1, 0)
	case key.Matches(msg, m.keys.Down):
		m.att.cursor = min(m.att.cursor+1, max(len(rows)-1, 0))
	case key.Matches(msg, m.keys.Cycle):
		if _, err := m.flow.CycleStatus(m.att.cursor); err != nil {
			cmd := m.notify(toastError, err.Error())
			return m, cmd
		}
	case key.Matches(msg, m.keys.AllPresent):
		_ = m.flow.SetAll(model.StatusPresent)
	case key.Matches(msg, m.keys.PrevPage, m.keys.NextPage):
		next := key.Matches(msg, m.keys.NextPage)
		if (next && !m.flow.HasNext()) || (!next && !m.flow.HasPrev()) {
			return m, nil
		}
		m.att.cursor = 0
		cmd := m.flowCmd(func(ctx context.Context, f *attendance.Flow) tea.Msg {
			if next {
				return rosterLoadedMsg{err: f.Next(ctx)}
			}
			return rosterLoadedMsg{err: f.Prev(ctx)}
		})
		return m, cmd
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.flowCmd(func(ctx context.Context, f *attendance.Flow) tea.Msg {
			return rosterLoadedMsg{err: f.LoadPage(ctx, f.Page())}
		})
		return m, cmd
	case key.Matches(msg, m.keys.Submit):
		if _, err := m.flow.Records(); err != nil {
			cmd := m.notify(toastError, err.Error())
			return m, cmd
		}
		cmd := m.flowCmd(func(ctx context.Context, f *attendance.Flow) tea.Msg {
			res, err := f.Submit(ctx)
			return submittedMsg{result: res, err: err}
		})
		return m, cmd
	case key.Matches(msg, m.keys.Summary):
		cmd := m.flowCmd(func(ctx context.Context, f *attendance.Flow) tea.Msg {
			rows, err := f.Summary(ctx)
			if err != nil {
				return summaryLoadedMsg{err: err}
			}
			return summaryLoadedMsg{summary: view.Summary(rows)}
		})
		return m, cmd
	case key.Matches(msg, m.keys.Monthly):
		if m.att.cursor < len(rows) {
			m.att.monthly.SetValue("student_id", rows[m.att.cursor].StudentID)
		}
		m.att.chart = nil
		m.att.stage = stageMonthly
		cmd := m.att.monthly.focusField(0)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateMonthly(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.att.stage = stageRoster
		if len(m.flow.Rows()) == 0 {
			m.att.stage = stageSetup
		}
		cmd := m.att.focusForm()
		return m, cmd
	case key.Matches(msg, m.keys.Enter):
		f := &m.att.monthly
		year, yerr := strconv.Atoi(f.Value("year"))
		month, merr := strconv.Atoi(f.Value("month"))
		if yerr != nil || merr != nil {
			cmd := m.notify(toastError, "Year and month must be numbers")
			return m, cmd
		}
		studentID := f.Value("student_id")
		cmd := m.flowCmd(func(ctx context.Context, fl *attendance.Flow) tea.Msg {
			mo, err := fl.Monthly(ctx, studentID, year, month)
			return monthlyLoadedMsg{monthly: mo, err: err}
		})
		return m, cmd
	}
	cmd := m.att.monthly.Update(msg)
	return m, cmd
}

func (m Model) attendanceView(width int) string {
	var b strings.Builder
	b.WriteString(SectionTitleStyle.Render(view.SectionAttendance.Title()))
	b.WriteString("\n")
	if m.busy {
		b.WriteString(DimStyle.Render("Loading..."))
		return b.String()
	}

	switch m.att.stage {
	case stageSetup:
		b.WriteString(m.setupView())
	case stageRoster:
		b.WriteString(m.rosterView(width))
	case stageSummary:
		b.WriteString(summaryView(m.att.summary))
		b.WriteString("\n" + DimStyle.Render("esc back to roster"))
	case stageMonthly:
		b.WriteString(m.att.monthly.View())
		b.WriteString("\n")
		if m.att.chart != nil {
			b.WriteString(renderMonthlyChart(m.att.chart))
			b.WriteString("\n\n")
		}
		b.WriteString(DimStyle.Render("enter show chart • tab next field • esc back"))
	}
	return b.String()
}

func (m Model) setupView() string {
	var b strings.Builder
	b.WriteString(m.att.setup.View())
	b.WriteString("\n")

	courses := m.flow.VisibleCourses()
	if len(courses) == 0 {
		b.WriteString(DimStyle.Render("No courses found"))
	} else {
		// keep the cursor inside a window of visibleCourses lines
		start := max(min(m.att.courseIdx-visibleCourses/2, len(courses)-visibleCourses), 0)
		end := min(start+visibleCourses, len(courses))
		for i := start; i < end; i++ {
			label := courses[i].Label()
			if i == m.att.courseIdx {
				b.WriteString(NavActiveStyle.Render("❯ " + label))
			} else {
				b.WriteString(NavItemStyle.Render("  " + label))
			}
			b.WriteString("\n")
		}
		if len(courses) > visibleCourses {
			b.WriteString(DimStyle.Render(fmt.Sprintf("%d of %d courses", len(courses), len(m.flow.Courses()))))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("↑/↓ course • tab next field • enter load roster • esc menu"))
	return b.String()
}

func (m Model) courseLabel(id string) string {
	for _, c := range m.flow.Courses() {
		if c.ID == id {
			return c.Label()
		}
	}
	return id
}

func (m Model) rosterView(width int) string {
	var b strings.Builder
	date := m.flow.RosterDate()
	if date == "" {
		date = m.flow.Date()
	}
	b.WriteString(InfoStyle.Render(m.courseLabel(m.flow.CourseID())))
	b.WriteString(DimStyle.Render(fmt.Sprintf("  %s • %s (%d students)", date, m.flow.PageInfo(), m.flow.Total())))
	b.WriteString("\n\n")

	rows := m.flow.Rows()
	if len(rows) == 0 {
		b.WriteString(DimStyle.Render("No students enrolled"))
	}
	nameWidth := max(min(width-40, 32), 12)
	header := fmt.Sprintf("  %-10s %-*s %-12s %s", "Roll", nameWidth, "Name", "Saved", "Selected")
	if len(rows) > 0 {
		b.WriteString(DimStyle.Render(header))
		b.WriteString("\n")
	}
	for i, r := range rows {
		cursor := "  "
		if i == m.att.cursor {
			cursor = NavActiveStyle.Render("❯ ")
		}
		saved := statusStyle(r.Status).Render(fmt.Sprintf("%s %-10s", r.Status.StatusIcon(), r.Status))
		selected := statusStyle(r.Selected).Render(fmt.Sprintf("%s %s", r.Selected.StatusIcon(), r.Selected))
		changed := ""
		if r.Changed() {
			changed = WarningStyle.Render(" *")
		}
		fmt.Fprintf(&b, "%s%-10s %-*s %s %s%s\n", cursor, truncate(r.RollNumber, 10), nameWidth, truncate(r.Name, nameWidth), saved, selected, changed)
	}

	if res := m.att.result; res != nil && len(res.Errors) > 0 {
		b.WriteString("\n")
		for i, e := range res.Errors {
			if i == 5 {
				b.WriteString(ErrorStyle.Render(fmt.Sprintf("  and %d more", len(res.Errors)-5)) + "\n")
				break
			}
			b.WriteString(ErrorStyle.Render("✗ "+e) + "\n")
		}
	}

	var nav []string
	if m.flow.HasPrev() {
		nav = append(nav, "[ prev")
	}
	if m.flow.HasNext() {
		nav = append(nav, "] next")
	}
	nav = append(nav, "space cycle", "A all present", "s submit", "S summary", "m monthly", "esc back")
	b.WriteString("\n" + DimStyle.Render(strings.Join(nav, " • ")))
	return b.String()
}

// summaryView renders the summary table with low attendance in red
func summaryView(s *view.SummaryView) string {
	if s == nil || len(s.Lines) == 0 {
		return DimStyle.Render("No attendance recorded yet")
	}
	widths := make([]int, len(s.Columns))
	for i, c := range s.Columns {
		widths[i] = lipgloss.Width(c)
	}
	for _, l := range s.Lines {
		for i, c := range l.Cells {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(c))
			}
		}
	}
	line := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], c)
		}
		return strings.Join(parts, "  ")
	}

	var b strings.Builder
	b.WriteString(SidebarTitleStyle.Render(line(s.Columns)))
	b.WriteString("\n")
	for _, l := range s.Lines {
		style := ValueStyle
		if l.Low {
			style = ErrorStyle
		}
		b.WriteString(style.Render(line(l.Cells)))
		b.WriteString("\n")
	}
	b.WriteString(DimStyle.Render(fmt.Sprintf("below %.0f%% in red", model.LowAttendanceThreshold)))
	return b.String()
}
