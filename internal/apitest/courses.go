package apitest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studenttracker/client/internal/model"
)

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	page, perPage := paging(r, 20)
	teacherID := r.URL.Query().Get("teacher_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	all := []model.Course{}
	for _, c := range s.courses {
		if !c.IsActive || (teacherID != "" && c.TeacherID != teacherID) {
			continue
		}
		all = append(all, *c)
	}
	start, end := window(len(all), page, perPage)
	data := pagination(len(all), page, perPage)
	data["courses"] = all[start:end]
	respond(w, http.StatusOK, "Courses retrieved", data)
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.course(chi.URLParam(r, "id"))
	if c == nil {
		respond(w, http.StatusNotFound, "Course not found", nil)
		return
	}
	detail := model.CourseDetail{Course: *c, EnrolledStudents: []model.EnrolledStudent{}}
	for _, e := range s.enrollments {
		if e.CourseID != c.ID || !e.IsActive {
			continue
		}
		st := s.student(e.StudentID)
		detail.EnrolledStudents = append(detail.EnrolledStudents, model.EnrolledStudent{
			StudentID:      st.ID,
			StudentName:    st.FullName(),
			RollNumber:     st.RollNumber,
			EnrollmentDate: e.EnrollmentDate,
		})
	}
	respond(w, http.StatusOK, "Course retrieved", detail)
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CourseCode  string `json:"course_code"`
		CourseName  string `json:"course_name"`
		Description string `json:"description"`
		Credits     int    `json:"credits"`
		Semester    string `json:"semester"`
		MaxStudents int    `json:"max_students"`
	}
	if !decodeBody(r, &in) || in.CourseCode == "" || in.CourseName == "" {
		respond(w, http.StatusBadRequest, "Missing required fields", nil)
		return
	}
	if in.Credits == 0 {
		in.Credits = 3
	}
	if in.MaxStudents == 0 {
		in.MaxStudents = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teacherByUser(callerFrom(r.Context()).userID)
	if t == nil {
		respond(w, http.StatusNotFound, "Teacher profile not found", nil)
		return
	}
	for _, c := range s.courses {
		if c.CourseCode == in.CourseCode {
			respond(w, http.StatusConflict, "Course code already exists", nil)
			return
		}
	}
	c := &model.Course{
		ID: s.newID(), CourseCode: in.CourseCode, CourseName: in.CourseName, Description: in.Description,
		TeacherID: t.ID, TeacherName: t.FullName(), Credits: in.Credits, Semester: in.Semester,
		MaxStudents: in.MaxStudents, IsActive: true, CreatedAt: s.stamp(),
	}
	s.courses = append(s.courses, c)
	respond(w, http.StatusCreated, "Course created", c)
}

// ownCourse resolves the course in the URL and checks the caller teaches it
func (s *Server) ownCourse(w http.ResponseWriter, r *http.Request, verb string) *model.Course {
	c := s.course(chi.URLParam(r, "id"))
	if c == nil {
		respond(w, http.StatusNotFound, "Course not found", nil)
		return nil
	}
	t := s.teacherByUser(callerFrom(r.Context()).userID)
	if t == nil || c.TeacherID != t.ID {
		respond(w, http.StatusForbidden, "Unauthorized to "+verb+" this course", nil)
		return nil
	}
	return c
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CourseName  *string `json:"course_name"`
		Description *string `json:"description"`
		Credits     *int    `json:"credits"`
		Semester    *string `json:"semester"`
		MaxStudents *int    `json:"max_students"`
		IsActive    *bool   `json:"is_active"`
	}
	if !decodeBody(r, &in) {
		respond(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ownCourse(w, r, "update")
	if c == nil {
		return
	}
	if in.CourseName != nil {
		c.CourseName = *in.CourseName
	}
	if in.Description != nil {
		c.Description = *in.Description
	}
	if in.Credits != nil {
		c.Credits = *in.Credits
	}
	if in.Semester != nil {
		c.Semester = *in.Semester
	}
	if in.MaxStudents != nil {
		c.MaxStudents = *in.MaxStudents
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	respond(w, http.StatusOK, "Course updated", c)
}

func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.ownCourse(w, r, "delete")
	if c == nil {
		return
	}
	c.IsActive = false
	respond(w, http.StatusOK, "Course deleted", nil)
}

func (s *Server) enrollCourse(w http.ResponseWriter, r *http.Request) {
	who := callerFrom(r.Context())
	if who.role != model.RoleStudent {
		respond(w, http.StatusForbidden, "Only students can enroll", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.course(chi.URLParam(r, "id"))
	if c == nil {
		respond(w, http.StatusNotFound, "Course not found", nil)
		return
	}
	if !c.IsActive {
		respond(w, http.StatusBadRequest, "Course is not active", nil)
		return
	}
	st := s.studentByUser(who.userID)
	if st == nil {
		respond(w, http.StatusNotFound, "Student profile not found", nil)
		return
	}
	for _, e := range s.enrollments {
		if e.StudentID != st.ID || e.CourseID != c.ID {
			continue
		}
		if e.IsActive {
			respond(w, http.StatusConflict, "Already enrolled in this course", nil)
			return
		}
		e.IsActive = true
		s.refreshCounts()
		respond(w, http.StatusOK, "Re-enrolled in course", e)
		return
	}
	if c.EnrolledStudents >= c.MaxStudents {
		respond(w, http.StatusBadRequest, "Course is at full capacity", nil)
		return
	}
	e := s.enroll(st.ID, c.ID)
	respond(w, http.StatusCreated, "Enrolled successfully", e)
}

func (s *Server) unenrollCourse(w http.ResponseWriter, r *http.Request) {
	who := callerFrom(r.Context())
	if who.role != model.RoleStudent {
		respond(w, http.StatusForbidden, "Only students can unenroll", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.studentByUser(who.userID)
	courseID := chi.URLParam(r, "id")
	for _, e := range s.enrollments {
		if st != nil && e.StudentID == st.ID && e.CourseID == courseID && e.IsActive {
			e.IsActive = false
			s.refreshCounts()
			respond(w, http.StatusOK, "Unenrolled from course", nil)
			return
		}
	}
	respond(w, http.StatusNotFound, "Not enrolled in this course", nil)
}
