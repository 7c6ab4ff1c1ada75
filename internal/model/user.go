package model

import "strings"

// Role is the account role reported by the backend
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Roles returns every role the backend accepts, in display order
func Roles() []Role {
	return []Role{RoleAdmin, RoleTeacher, RoleStudent}
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// User is an account as returned by /auth/me and /admin/users.
// Student and Teacher are only populated by the single-user endpoints.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      Role     `json:"role"`
	IsActive  bool     `json:"is_active"`
	CreatedAt string   `json:"created_at,omitempty"`
	Student   *Student `json:"student,omitempty"`
	Teacher   *Teacher `json:"teacher,omitempty"`
}

// FullName returns "First Last"
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Student is a student profile
type Student struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	RollNumber     string `json:"roll_number"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	EnrollmentDate string `json:"enrollment_date,omitempty"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// FullName returns "First Last"
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Teacher is a teacher profile
type Teacher struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	EmployeeID     string `json:"employee_id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Specialization string `json:"specialization,omitempty"`
	Phone          string `json:"phone,omitempty"`
	OfficeNumber   string `json:"office_number,omitempty"`
	JoiningDate    string `json:"joining_date,omitempty"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// FullName returns "First Last"
func (t Teacher) FullName() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// DashboardStats are the admin dashboard counters
type DashboardStats struct {
	TotalUsers    int `json:"total_users"`
	TotalStudents int `json:"total_students"`
	TotalTeachers int `json:"total_teachers"`
	TotalCourses  int `json:"total_courses"`
}

// ActiveLabel renders an is_active flag the way every list shows it
func ActiveLabel(active bool) string {
	if active {
		return "Active"
	}
	return "Inactive"
}

// FormatDate trims an ISO timestamp down to YYYY-MM-DD
func FormatDate(iso string) string {
	if i := strings.IndexByte(iso, 'T'); i >= 0 {
		return iso[:i]
	}
	return iso
}
