// Package attendance drives marking attendance for a course: picking the
// course, paging through its roster, editing statuses, submitting the batch
// and reporting on the result.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/model"
)

var (
	ErrNoCourse         = errors.New("select a course first")
	ErrInvalidDate      = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidStatus    = errors.New("invalid attendance status")
	ErrInvalidStudentID = errors.New("invalid student id")
	ErrEmptyRoster      = errors.New("no students to submit")
)

const (
	DefaultCoursePageSize = 100
	DefaultPageSize       = 10

	dateLayout = "2006-01-02"
)

// Backend is the part of the API the flow talks to. *api.Client satisfies it.
type Backend interface {
	ListCourses(ctx context.Context, page, perPage int, teacherID string) (*api.CoursePage, error)
	CourseRoster(ctx context.Context, courseID, date string, page, perPage int) (*api.Roster, error)
	MarkAttendance(ctx context.Context, req api.MarkRequest) (*api.MarkResult, error)
	AttendanceSummary(ctx context.Context, courseID string) ([]model.SummaryRow, error)
	StudentMonthly(ctx context.Context, studentID string, year, month int) (*model.Monthly, error)
}

// Row is one roster line. Status is what the server has, Selected is the
// status chosen for submission.
type Row struct {
	model.RosterEntry
	Selected model.Status
}

// Changed reports whether the selection differs from the stored status
func (r Row) Changed() bool {
	return r.Selected != r.Status
}

// Flow holds the state of one attendance session. It is not safe for
// concurrent use; the UI drives it from a single goroutine at a time.
type Flow struct {
	backend        Backend
	coursePageSize int
	now            func() time.Time

	courses []model.Course
	filter  string

	courseID   string
	date       string
	pageSize   int
	page       int
	totalPages int
	total      int
	rosterDate string
	rows       []Row
}

// Option configures a Flow
type Option func(*Flow)

// WithCoursePageSize bounds how many courses LoadCourses fetches
func WithCoursePageSize(n int) Option {
	return func(f *Flow) {
		if n > 0 {
			f.coursePageSize = n
		}
	}
}

// WithClock replaces time.Now, used for records submitted without a date
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		f.now = now
	}
}

// New creates a flow over backend
func New(backend Backend, opts ...Option) *Flow {
	f := &Flow{
		backend:        backend,
		coursePageSize: DefaultCoursePageSize,
		now:            time.Now,
		pageSize:       DefaultPageSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LoadCourses fetches the first page of courses, limited to teacherID when set
func (f *Flow) LoadCourses(ctx context.Context, teacherID string) ([]model.Course, error) {
	p, err := f.backend.ListCourses(ctx, 1, f.coursePageSize, teacherID)
	if err != nil {
		return nil, err
	}
	f.courses = p.Courses
	return f.Courses(), nil
}

// Courses returns every loaded course
func (f *Flow) Courses() []model.Course {
	out := make([]model.Course, len(f.courses))
	copy(out, f.courses)
	return out
}

// SetFilter narrows VisibleCourses; it never touches the network
func (f *Flow) SetFilter(q string) {
	f.filter = q
}

func (f *Flow) Filter() string {
	return f.filter
}

// VisibleCourses returns the loaded courses whose label contains the filter, case-insensitively
func (f *Flow) VisibleCourses() []model.Course {
	q := strings.ToLower(strings.TrimSpace(f.filter))
	if q == "" {
		return f.Courses()
	}
	var out []model.Course
	for _, c := range f.courses {
		if strings.Contains(strings.ToLower(c.Label()), q) {
			out = append(out, c)
		}
	}
	return out
}

// Select starts a roster for courseID on date (YYYY-MM-DD, empty for today)
// and resets paging. Nothing is fetched until LoadPage.
func (f *Flow) Select(courseID, date string, pageSize int) error {
	if courseID == "" {
		return ErrNoCourse
	}
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	f.courseID = courseID
	f.date = date
	f.pageSize = pageSize
	f.page = 0
	f.totalPages = 0
	f.total = 0
	f.rosterDate = ""
	f.rows = nil
	return nil
}

// LoadPage fetches page n of the selected roster, replacing the rows
func (f *Flow) LoadPage(ctx context.Context, n int) error {
	if f.courseID == "" {
		return ErrNoCourse
	}
	if n < 1 {
		n = 1
	}
	r, err := f.backend.CourseRoster(ctx, f.courseID, f.date, n, f.pageSize)
	if err != nil {
		return err
	}

	f.page = r.Page
	if f.page == 0 {
		f.page = n
	}
	f.totalPages = r.Pages
	f.total = r.Total
	f.rosterDate = r.Date
	f.rows = make([]Row, 0, len(r.Students))
	for _, s := range r.Students {
		f.rows = append(f.rows, Row{RosterEntry: s, Selected: s.Status})
	}
	return nil
}

// Next loads the following page; it does nothing on the last page
func (f *Flow) Next(ctx context.Context) error {
	if !f.HasNext() {
		return nil
	}
	return f.LoadPage(ctx, f.page+1)
}

// Prev loads the preceding page; it does nothing on the first page
func (f *Flow) Prev(ctx context.Context) error {
	if !f.HasPrev() {
		return nil
	}
	return f.LoadPage(ctx, f.page-1)
}

func (f *Flow) HasNext() bool { return f.page > 0 && f.page < f.totalPages }
func (f *Flow) HasPrev() bool { return f.page > 1 }

func (f *Flow) CourseID() string { return f.courseID }
func (f *Flow) Date() string     { return f.date }
func (f *Flow) PageSize() int    { return f.pageSize }
func (f *Flow) Page() int        { return f.page }
func (f *Flow) TotalPages() int  { return f.totalPages }
func (f *Flow) Total() int       { return f.total }

// RosterDate is the date the server reported for the current page
func (f *Flow) RosterDate() string { return f.rosterDate }

// PageInfo renders "Page N of M"
func (f *Flow) PageInfo() string {
	return fmt.Sprintf("Page %d of %d", f.page, f.totalPages)
}

// Rows returns a copy of the current page
func (f *Flow) Rows() []Row {
	out := make([]Row, len(f.rows))
	copy(out, f.rows)
	return out
}

// SetStatus selects status for row i
func (f *Flow) SetStatus(i int, status model.Status) error {
	if i < 0 || i >= len(f.rows) {
		return fmt.Errorf("row %d out of range", i)
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	f.rows[i].Selected = status
	return nil
}

// CycleStatus advances row i to the next status and returns it
func (f *Flow) CycleStatus(i int) (model.Status, error) {
	if i < 0 || i >= len(f.rows) {
		return "", fmt.Errorf("row %d out of range", i)
	}
	f.rows[i].Selected = f.rows[i].Selected.Next()
	return f.rows[i].Selected, nil
}

// SetAll selects status for every row of the page
func (f *Flow) SetAll(status model.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	for i := range f.rows {
		f.rows[i].Selected = status
	}
	return nil
}

// Dirty reports whether any row has an unsaved selection
func (f *Flow) Dirty() bool {
	for _, r := range f.rows {
		if r.Changed() {
			return true
		}
	}
	return false
}

// Records builds one record per row of the current page. The date is the
// selected day at midnight UTC, or the current time when none was chosen.
func (f *Flow) Records() ([]api.AttendanceInput, error) {
	if f.courseID == "" {
		return nil, ErrNoCourse
	}
	if len(f.rows) == 0 {
		return nil, ErrEmptyRoster
	}

	stamp := f.now().UTC().Format(time.RFC3339)
	if f.date != "" {
		d, err := time.Parse(dateLayout, f.date)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, f.date)
		}
		stamp = d.UTC().Format(time.RFC3339)
	}

	records := make([]api.AttendanceInput, 0, len(f.rows))
	for _, r := range f.rows {
		if r.StudentID == "" {
			return nil, ErrInvalidStudentID
		}
		records = append(records, api.AttendanceInput{
			StudentID:      r.StudentID,
			Status:         r.Selected,
			AttendanceDate: stamp,
		})
	}
	return records, nil
}

// Submit sends the current page as one batch. On success the stored status
// of every row takes its selection. Records the server rejected are listed in
// the result's Errors.
func (f *Flow) Submit(ctx context.Context) (*api.MarkResult, error) {
	records, err := f.Records()
	if err != nil {
		return nil, err
	}
	res, err := f.backend.MarkAttendance(ctx, api.MarkRequest{
		CourseID:          f.courseID,
		AttendanceRecords: records,
	})
	if err != nil {
		return nil, err
	}

	saved := make(map[string]model.AttendanceRecord, len(res.Records))
	for _, rec := range res.Records {
		saved[rec.StudentID] = rec
	}
	for i := range f.rows {
		if rec, ok := saved[f.rows[i].StudentID]; ok {
			f.rows[i].Status = rec.Status
			f.rows[i].Selected = rec.Status
			f.rows[i].AttendanceID = rec.ID
		}
	}
	return res, nil
}

// Summary returns per-student aggregates for the selected course
func (f *Flow) Summary(ctx context.Context) ([]model.SummaryRow, error) {
	if f.courseID == "" {
		return nil, ErrNoCourse
	}
	return f.backend.AttendanceSummary(ctx, f.courseID)
}

// Monthly returns the per-day series of one student for a month
func (f *Flow) Monthly(ctx context.Context, studentID string, year, month int) (*model.Monthly, error) {
	studentID = strings.TrimSpace(studentID)
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStudentID, studentID)
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d", ErrInvalidDate, month)
	}
	if year < 1 {
		return nil, fmt.Errorf("%w: year %d", ErrInvalidDate, year)
	}
	return f.backend.StudentMonthly(ctx, studentID, year, month)
}
