package view

import (
	"context"
	"errors"
	"strings"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/model"
)

// The action methods return the notice to show on success. Callers turn
// errors into messages with api.Message.

// DeactivateUser soft-deletes a user
func (l *Loader) DeactivateUser(ctx context.Context, id string) (string, error) {
	if err := l.require(SectionUsers); err != nil {
		return "", err
	}
	if u := l.sess.User(); u != nil && u.ID == id {
		return "", errors.New("you cannot deactivate your own account")
	}
	if err := l.backend.DeleteUser(ctx, id); err != nil {
		return "", err
	}
	return "User deactivated successfully", nil
}

// SetUserActive flips a user's active flag
func (l *Loader) SetUserActive(ctx context.Context, id string, active bool) (string, error) {
	if err := l.require(SectionUsers); err != nil {
		return "", err
	}
	if _, err := l.backend.UpdateUser(ctx, id, api.UserUpdate{IsActive: api.Bool(active)}); err != nil {
		return "", err
	}
	if active {
		return "User activated", nil
	}
	return "User deactivated successfully", nil
}

// NewUser is the admin "add user" form
type NewUser struct {
	Email          string
	FirstName      string
	LastName       string
	Password       string
	Role           model.Role
	RollNumber     string
	EmployeeID     string
	Specialization string
}

// Validate checks the fields the backend requires
func (n NewUser) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"email", n.Email},
		{"first name", n.FirstName},
		{"last name", n.LastName},
		{"password", n.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing " + strings.Join(missing, ", "))
	}
	if !n.Role.Valid() {
		return errors.New("select a role")
	}
	if n.Role == model.RoleStudent && strings.TrimSpace(n.RollNumber) == "" {
		return errors.New("roll number required for student")
	}
	if n.Role == model.RoleTeacher && strings.TrimSpace(n.EmployeeID) == "" {
		return errors.New("employee id required for teacher")
	}
	return nil
}

// Request converts the form to a registration body
func (n NewUser) Request() api.RegisterRequest {
	req := api.RegisterRequest{
		Email:     strings.TrimSpace(n.Email),
		Password:  n.Password,
		FirstName: strings.TrimSpace(n.FirstName),
		LastName:  strings.TrimSpace(n.LastName),
		Role:      n.Role,
	}
	switch n.Role {
	case model.RoleStudent:
		req.RollNumber = strings.TrimSpace(n.RollNumber)
	case model.RoleTeacher:
		req.EmployeeID = strings.TrimSpace(n.EmployeeID)
		req.Specialization = strings.TrimSpace(n.Specialization)
	}
	return req
}

// CreateUser adds an account without signing in as it
func (l *Loader) CreateUser(ctx context.Context, n NewUser) (string, error) {
	if err := l.require(SectionUsers); err != nil {
		return "", err
	}
	if err := n.Validate(); err != nil {
		return "", err
	}
	if _, err := l.backend.CreateUser(ctx, n.Request()); err != nil {
		return "", err
	}
	return "User created successfully", nil
}

func (l *Loader) DeleteStudent(ctx context.Context, id string) (string, error) {
	if err := l.require(SectionStudents); err != nil {
		return "", err
	}
	if err := l.backend.DeleteStudent(ctx, id); err != nil {
		return "", err
	}
	return "Student deleted", nil
}

func (l *Loader) DeleteTeacher(ctx context.Context, id string) (string, error) {
	if err := l.require(SectionTeachers); err != nil {
		return "", err
	}
	if err := l.backend.DeleteTeacher(ctx, id); err != nil {
		return "", err
	}
	return "Teacher deleted", nil
}

// Enroll enrolls the signed-in student
func (l *Loader) Enroll(ctx context.Context, courseID string) (string, error) {
	if !l.sess.HasRole(model.RoleStudent) {
		return "", ErrNotAllowed
	}
	if _, err := l.backend.Enroll(ctx, courseID); err != nil {
		return "", err
	}
	return "Enrolled successfully", nil
}

// Unenroll removes the signed-in student from a course
func (l *Loader) Unenroll(ctx context.Context, courseID string) (string, error) {
	if !l.sess.HasRole(model.RoleStudent) {
		return "", ErrNotAllowed
	}
	if err := l.backend.Unenroll(ctx, courseID); err != nil {
		return "", err
	}
	return "Unenrolled from course", nil
}

// CreateCourse adds a course taught by the signed-in teacher
func (l *Loader) CreateCourse(ctx context.Context, in api.CourseInput) (string, error) {
	if !l.sess.HasRole(model.RoleTeacher) {
		return "", ErrNotAllowed
	}
	in.CourseCode = strings.ToUpper(strings.TrimSpace(in.CourseCode))
	in.CourseName = strings.TrimSpace(in.CourseName)
	if in.CourseCode == "" || in.CourseName == "" {
		return "", errors.New("course code and name are required")
	}
	c, err := l.backend.CreateCourse(ctx, in)
	if err != nil {
		return "", err
	}
	return "Course " + c.CourseCode + " created", nil
}

// DeleteCourse deactivates one of the signed-in teacher's courses
func (l *Loader) DeleteCourse(ctx context.Context, id string) (string, error) {
	if !l.sess.HasRole(model.RoleTeacher) {
		return "", ErrNotAllowed
	}
	if err := l.backend.DeleteCourse(ctx, id); err != nil {
		return "", err
	}
	return "Course deleted", nil
}
