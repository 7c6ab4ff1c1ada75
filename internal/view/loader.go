package view

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/session"
)

// ErrNotAllowed is returned when the signed-in role may not open a section
var ErrNotAllowed = errors.New("you do not have access to this section")

// DefaultPageSize is the page size of the management tables
const DefaultPageSize = 20

// Backend is the part of the API the views read from and act on. *api.Client satisfies it.
type Backend interface {
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
	ListUsers(ctx context.Context, page, perPage int, role model.Role) (*api.UserPage, error)
	UpdateUser(ctx context.Context, id string, upd api.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
	CreateUser(ctx context.Context, req api.RegisterRequest) (*model.User, error)
	ListStudents(ctx context.Context, page, perPage int) (*api.StudentPage, error)
	DeleteStudent(ctx context.Context, id string) error
	ListTeachers(ctx context.Context, page, perPage int) (*api.TeacherPage, error)
	DeleteTeacher(ctx context.Context, id string) error
	ListCourses(ctx context.Context, page, perPage int, teacherID string) (*api.CoursePage, error)
	CreateCourse(ctx context.Context, in api.CourseInput) (*model.Course, error)
	DeleteCourse(ctx context.Context, id string) error
	Enroll(ctx context.Context, courseID string) (*model.Enrollment, error)
	Unenroll(ctx context.Context, courseID string) error
	AttendanceSummary(ctx context.Context, courseID string) ([]model.SummaryRow, error)
}

// Loader fetches data for a section and shapes it for display
type Loader struct {
	backend  Backend
	sess     *session.Session
	pageSize int
}

// NewLoader creates a loader. pageSize <= 0 uses DefaultPageSize.
func NewLoader(backend Backend, sess *session.Session, pageSize int) *Loader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Loader{backend: backend, sess: sess, pageSize: pageSize}
}

func (l *Loader) require(section Section) error {
	if !Allowed(l.sess, section) {
		return fmt.Errorf("%s: %w", section.Title(), ErrNotAllowed)
	}
	return nil
}

// Field is a label/value pair
type Field struct {
	Label string
	Value string
}

// DashboardView is the landing screen
type DashboardView struct {
	Greeting string
	Cards    []Field
	Hint     string
}

// Dashboard greets the user; admins also get the counters
func (l *Loader) Dashboard(ctx context.Context) (*DashboardView, error) {
	if err := l.require(SectionDashboard); err != nil {
		return nil, err
	}
	v := &DashboardView{Greeting: "Welcome back, " + l.sess.UserName() + "!"}
	if !l.sess.HasRole(model.RoleAdmin) {
		v.Hint = "Select a section from the menu to get started."
		return v, nil
	}
	stats, err := l.backend.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	v.Cards = []Field{
		{Label: "Total Users", Value: strconv.Itoa(stats.TotalUsers)},
		{Label: "Active Students", Value: strconv.Itoa(stats.TotalStudents)},
		{Label: "Active Teachers", Value: strconv.Itoa(stats.TotalTeachers)},
		{Label: "Total Courses", Value: strconv.Itoa(stats.TotalCourses)},
	}
	return v, nil
}

// Profile lists the signed-in user's details from the session
func (l *Loader) Profile() ([]Field, error) {
	if err := l.require(SectionProfile); err != nil {
		return nil, err
	}
	u := l.sess.User()
	fields := []Field{
		{Label: "Full Name", Value: u.FullName()},
		{Label: "Email", Value: u.Email},
		{Label: "Role", Value: strings.ToUpper(string(u.Role))},
	}
	if u.Student != nil {
		fields = append(fields,
			Field{Label: "Roll Number", Value: u.Student.RollNumber},
			Field{Label: "Enrollment Date", Value: model.FormatDate(u.Student.EnrollmentDate)},
		)
	}
	if u.Teacher != nil {
		fields = append(fields,
			Field{Label: "Employee ID", Value: u.Teacher.EmployeeID},
			Field{Label: "Specialization", Value: orNA(u.Teacher.Specialization)},
		)
	}
	return fields, nil
}

// Row is one table line. ID is the entity the row acts on.
type Row struct {
	ID     string
	Cells  []string
	Active bool
}

// Table is a page of a management list
type Table struct {
	Columns []string
	Rows    []Row
	api.Pagination
}

// PageInfo renders "Page N of M (T total)"
func (t *Table) PageInfo() string {
	pages := t.Pages
	if pages == 0 {
		pages = 1
	}
	return fmt.Sprintf("Page %d of %d (%d total)", max(t.Page, 1), pages, t.Total)
}

// Users is the admin user table
func (l *Loader) Users(ctx context.Context, page int, role model.Role) (*Table, error) {
	if err := l.require(SectionUsers); err != nil {
		return nil, err
	}
	p, err := l.backend.ListUsers(ctx, page, l.pageSize, role)
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: []string{"Email", "Name", "Role", "Status"}, Pagination: p.Pagination}
	for _, u := range p.Users {
		t.Rows = append(t.Rows, Row{
			ID:     u.ID,
			Cells:  []string{u.Email, u.FullName(), string(u.Role), model.ActiveLabel(u.IsActive)},
			Active: u.IsActive,
		})
	}
	return t, nil
}

// Students is the admin student table
func (l *Loader) Students(ctx context.Context, page int) (*Table, error) {
	if err := l.require(SectionStudents); err != nil {
		return nil, err
	}
	p, err := l.backend.ListStudents(ctx, page, l.pageSize)
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: []string{"Roll No", "Name", "Email", "Phone", "Status"}, Pagination: p.Pagination}
	for _, s := range p.Students {
		t.Rows = append(t.Rows, Row{
			ID:     s.ID,
			Cells:  []string{s.RollNumber, s.FullName(), s.Email, orNA(s.Phone), model.ActiveLabel(s.IsActive)},
			Active: s.IsActive,
		})
	}
	return t, nil
}

// Teachers is the admin teacher table
func (l *Loader) Teachers(ctx context.Context, page int) (*Table, error) {
	if err := l.require(SectionTeachers); err != nil {
		return nil, err
	}
	p, err := l.backend.ListTeachers(ctx, page, l.pageSize)
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: []string{"Employee ID", "Name", "Email", "Specialization", "Status"}, Pagination: p.Pagination}
	for _, tc := range p.Teachers {
		t.Rows = append(t.Rows, Row{
			ID:     tc.ID,
			Cells:  []string{tc.EmployeeID, tc.FullName(), tc.Email, orNA(tc.Specialization), model.ActiveLabel(tc.IsActive)},
			Active: tc.IsActive,
		})
	}
	return t, nil
}

// Action is something the signed-in role can do to a course
type Action string

const (
	ActionEnroll   Action = "Enroll"
	ActionUnenroll Action = "Unenroll"
	ActionEdit     Action = "Edit"
	ActionDelete   Action = "Delete"
)

// CourseCard is one course as shown in the course grid
type CourseCard struct {
	ID         string
	Name       string
	Code       string
	Instructor string
	Credits    int
	Enrolled   string
	Semester   string
	Actions    []Action
}

// CoursesView is a page of course cards
type CoursesView struct {
	Cards []CourseCard
	api.Pagination
}

// Courses lists courses. Teachers only see their own; actions depend on role.
func (l *Loader) Courses(ctx context.Context, page int) (*CoursesView, error) {
	if err := l.require(SectionCourses); err != nil {
		return nil, err
	}
	p, err := l.backend.ListCourses(ctx, page, l.pageSize, l.teacherID())
	if err != nil {
		return nil, err
	}

	var actions []Action
	switch {
	case l.sess.HasRole(model.RoleStudent):
		actions = []Action{ActionEnroll, ActionUnenroll}
	case l.sess.HasRole(model.RoleTeacher):
		actions = []Action{ActionEdit, ActionDelete}
	}

	v := &CoursesView{Pagination: p.Pagination}
	for _, c := range p.Courses {
		v.Cards = append(v.Cards, CourseCard{
			ID:         c.ID,
			Name:       c.CourseName,
			Code:       c.CourseCode,
			Instructor: c.TeacherName,
			Credits:    c.Credits,
			Enrolled:   fmt.Sprintf("%d / %d", c.EnrolledStudents, c.MaxStudents),
			Semester:   orNA(c.Semester),
			Actions:    actions,
		})
	}
	return v, nil
}

// TeacherCourses lists the courses the signed-in teacher can take attendance for.
// A teacher whose profile has not been loaded gets an empty list.
func (l *Loader) TeacherCourses(ctx context.Context) ([]model.Course, error) {
	if err := l.require(SectionAttendance); err != nil {
		return nil, err
	}
	id := l.teacherID()
	if id == "" {
		return nil, nil
	}
	p, err := l.backend.ListCourses(ctx, 1, 100, id)
	if err != nil {
		return nil, err
	}
	return p.Courses, nil
}

// SummaryLine is one student of an attendance summary
type SummaryLine struct {
	Cells []string
	Low   bool
}

// SummaryView is the per-student attendance table of a course
type SummaryView struct {
	Columns []string
	Lines   []SummaryLine
}

// AttendanceSummary builds the summary table of a course
func (l *Loader) AttendanceSummary(ctx context.Context, courseID string) (*SummaryView, error) {
	if err := l.require(SectionAttendance); err != nil {
		return nil, err
	}
	rows, err := l.backend.AttendanceSummary(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return Summary(rows), nil
}

// Summary shapes summary rows for display
func Summary(rows []model.SummaryRow) *SummaryView {
	v := &SummaryView{Columns: []string{"Roll Number", "Student Name", "Present", "Absent", "Late", "Total Classes", "Attendance %"}}
	for _, r := range rows {
		v.Lines = append(v.Lines, SummaryLine{
			Cells: []string{
				r.RollNumber,
				r.StudentName,
				strconv.Itoa(r.Present),
				strconv.Itoa(r.Absent),
				strconv.Itoa(r.Late),
				strconv.Itoa(r.TotalClasses),
				strconv.FormatFloat(r.AttendancePercentage, 'f', -1, 64) + "%",
			},
			Low: r.Low(),
		})
	}
	return v
}

func (l *Loader) teacherID() string {
	if !l.sess.HasRole(model.RoleTeacher) {
		return ""
	}
	if u := l.sess.User(); u != nil && u.Teacher != nil {
		return u.Teacher.ID
	}
	return ""
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
