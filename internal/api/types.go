package api

import (
	"encoding/json"
	"fmt"

	"github.com/studenttracker/client/internal/model"
)

// Envelope is the response wrapper every endpoint uses
type Envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"status_code,omitempty"`
	Message    string          `json:"message,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Err returns nil for a successful envelope and *Error otherwise
func (e *Envelope) Err() error {
	if e.Success {
		return nil
	}
	return &Error{StatusCode: e.StatusCode, Message: e.Message}
}

// Decode unmarshals the data field into v. Missing or null data leaves v untouched.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

// Pagination is the paging block of every list response
type Pagination struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Pages   int `json:"pages"`
}

// HasNext reports whether a page after this one exists
func (p Pagination) HasNext() bool {
	return p.Page < p.Pages
}

// HasPrev reports whether a page before this one exists
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

// UserPage is a page of /admin/users
type UserPage struct {
	Users []model.User `json:"users"`
	Pagination
}

// StudentPage is a page of /admin/students
type StudentPage struct {
	Students []model.Student `json:"students"`
	Pagination
}

// TeacherPage is a page of /admin/teachers
type TeacherPage struct {
	Teachers []model.Teacher `json:"teachers"`
	Pagination
}

// CoursePage is a page of /courses
type CoursePage struct {
	Courses []model.Course `json:"courses"`
	Pagination
}

// RecordPage is a page of /attendance/course/:id
type RecordPage struct {
	Records []model.AttendanceRecord `json:"records"`
	Pagination
}

// Roster is a page of /attendance/course/:id/today
type Roster struct {
	Date     string              `json:"date"`
	Students []model.RosterEntry `json:"students"`
	Pagination
}

// StudentAttendance is a page of /attendance/student/:id with its aggregates
type StudentAttendance struct {
	Records    []model.AttendanceRecord `json:"records"`
	Statistics model.StudentStatistics  `json:"statistics"`
	Pagination
}

// Tokens is the token pair issued by login, register and refresh
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is the data of a successful login or registration
type AuthResult struct {
	User   model.User `json:"user"`
	Tokens Tokens     `json:"tokens"`
}

// Credentials is the login body
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the registration body. RollNumber is required for
// students, EmployeeID for teachers.
type RegisterRequest struct {
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Role           model.Role `json:"role"`
	RollNumber     string     `json:"roll_number,omitempty"`
	EmployeeID     string     `json:"employee_id,omitempty"`
	Specialization string     `json:"specialization,omitempty"`
}

// UserUpdate is a partial update of a user; nil fields are left unchanged
type UserUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
	Password  *string `json:"password,omitempty"`
}

// StudentUpdate is a partial update of a student profile
type StudentUpdate struct {
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// TeacherUpdate is a partial update of a teacher profile
type TeacherUpdate struct {
	Specialization *string `json:"specialization,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	OfficeNumber   *string `json:"office_number,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// CourseInput creates a course. Zero Credits/MaxStudents take the server defaults.
type CourseInput struct {
	CourseCode  string `json:"course_code"`
	CourseName  string `json:"course_name"`
	Description string `json:"description,omitempty"`
	Credits     int    `json:"credits,omitempty"`
	Semester    string `json:"semester,omitempty"`
	MaxStudents int    `json:"max_students,omitempty"`
}

// CourseUpdate is a partial update of a course
type CourseUpdate struct {
	CourseName  *string `json:"course_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Credits     *int    `json:"credits,omitempty"`
	Semester    *string `json:"semester,omitempty"`
	MaxStudents *int    `json:"max_students,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// AttendanceInput is one record of a batch submission
type AttendanceInput struct {
	StudentID      string       `json:"student_id"`
	Status         model.Status `json:"status"`
	AttendanceDate string       `json:"attendance_date"`
	Remarks        string       `json:"remarks,omitempty"`
}

// MarkRequest is the batch attendance body
type MarkRequest struct {
	CourseID          string            `json:"course_id"`
	AttendanceRecords []AttendanceInput `json:"attendance_records"`
}

// MarkResult is the outcome of a batch submission. Errors lists records the
// server rejected while still accepting the rest (HTTP 207).
type MarkResult struct {
	MarkedCount int                      `json:"marked_count"`
	Records     []model.AttendanceRecord `json:"records"`
	Errors      []string                 `json:"errors,omitempty"`
}

// AttendanceUpdate edits a stored record
type AttendanceUpdate struct {
	Status  *model.Status `json:"status,omitempty"`
	Remarks *string       `json:"remarks,omitempty"`
}

// String returns a pointer to s, for partial updates
func String(s string) *string { return &s }

// Bool returns a pointer to b, for partial updates
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for partial updates
func Int(i int) *int { return &i }
