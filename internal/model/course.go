package model

// Course is a course as listed by /courses
type Course struct {
	ID               string `json:"id"`
	CourseCode       string `json:"course_code"`
	CourseName       string `json:"course_name"`
	Description      string `json:"description,omitempty"`
	TeacherID        string `json:"teacher_id"`
	TeacherName      string `json:"teacher_name"`
	Credits          int    `json:"credits"`
	Semester         string `json:"semester,omitempty"`
	MaxStudents      int    `json:"max_students"`
	EnrolledStudents int    `json:"enrolled_students"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at,omitempty"`
}

// Label is the "CODE - Name" text shown in course pickers
func (c Course) Label() string {
	return c.CourseCode + " - " + c.CourseName
}

// CourseDetail is /courses/:id, which replaces the enrolled count with the roster
type CourseDetail struct {
	Course
	EnrolledStudents []EnrolledStudent `json:"enrolled_students"`
}

// EnrolledStudent is one active enrollment of a course
type EnrolledStudent struct {
	StudentID      string `json:"student_id"`
	StudentName    string `json:"student_name"`
	RollNumber     string `json:"roll_number"`
	EnrollmentDate string `json:"enrollment_date,omitempty"`
}

// Enrollment is returned when a student enrolls in a course
type Enrollment struct {
	ID             string `json:"id"`
	StudentID      string `json:"student_id"`
	CourseID       string `json:"course_id"`
	CourseName     string `json:"course_name"`
	EnrollmentDate string `json:"enrollment_date,omitempty"`
	IsActive       bool   `json:"is_active"`
}
