// Package view turns API data into role-aware view models. It has no
// terminal dependency; internal/tui renders what it returns.
package view

import (
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/session"
)

// Section is a top-level navigation entry
type Section string

const (
	SectionDashboard  Section = "dashboard"
	SectionProfile    Section = "profile"
	SectionCourses    Section = "courses"
	SectionUsers      Section = "users"
	SectionStudents   Section = "students"
	SectionTeachers   Section = "teachers"
	SectionAttendance Section = "attendance"
)

// Title is the label shown in navigation
func (s Section) Title() string {
	switch s {
	case SectionDashboard:
		return "Dashboard"
	case SectionProfile:
		return "Profile"
	case SectionCourses:
		return "Courses"
	case SectionUsers:
		return "Users"
	case SectionStudents:
		return "Students"
	case SectionTeachers:
		return "Teachers"
	case SectionAttendance:
		return "Attendance"
	}
	return string(s)
}

// Sections lists the navigation entries visible to the signed-in user, in
// display order. An anonymous session sees nothing.
func Sections(sess *session.Session) []Section {
	if !sess.IsAuthenticated() {
		return nil
	}
	out := []Section{SectionDashboard, SectionCourses}
	switch {
	case sess.HasRole(model.RoleAdmin):
		out = append(out, SectionUsers, SectionStudents, SectionTeachers)
	case sess.HasRole(model.RoleTeacher):
		out = append(out, SectionAttendance)
	}
	return append(out, SectionProfile)
}

// Allowed reports whether section is visible to the signed-in user
func Allowed(sess *session.Session, section Section) bool {
	for _, s := range Sections(sess) {
		if s == section {
			return true
		}
	}
	return false
}
