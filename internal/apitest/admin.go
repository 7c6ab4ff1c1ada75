package apitest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studenttracker/client/internal/model"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	page, perPage := paging(r, 20)
	role := model.Role(r.URL.Query().Get("role"))

	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.User
	for _, u := range s.users {
		if role == "" || u.Role == role {
			all = append(all, u.User)
		}
	}
	start, end := window(len(all), page, perPage)
	data := pagination(len(all), page, perPage)
	data["users"] = nonNil(all[start:end])
	respond(w, http.StatusOK, "Users retrieved", data)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(chi.URLParam(r, "id"))
	if u == nil {
		respond(w, http.StatusNotFound, "User not found", nil)
		return
	}
	respond(w, http.StatusOK, "User retrieved", s.hydrate(u.User))
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
		IsActive  *bool   `json:"is_active"`
		Password  *string `json:"password"`
	}
	if !decodeBody(r, &in) {
		respond(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(chi.URLParam(r, "id"))
	if u == nil {
		respond(w, http.StatusNotFound, "User not found", nil)
		return
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.Password != nil {
		u.hash = mustHash(*in.Password)
	}
	respond(w, http.StatusOK, "User updated", u.User)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(chi.URLParam(r, "id"))
	if u == nil {
		respond(w, http.StatusNotFound, "User not found", nil)
		return
	}
	u.IsActive = false
	respond(w, http.StatusOK, "User deactivated", nil)
}

func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	page, perPage := paging(r, 20)

	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.Student, 0, len(s.students))
	for _, st := range s.students {
		all = append(all, *st)
	}
	start, end := window(len(all), page, perPage)
	data := pagination(len(all), page, perPage)
	data["students"] = all[start:end]
	respond(w, http.StatusOK, "Students retrieved", data)
}

func (s *Server) getStudent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.student(chi.URLParam(r, "id"))
	if st == nil {
		respond(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	respond(w, http.StatusOK, "Student retrieved", st)
}

func (s *Server) updateStudent(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Phone    *string `json:"phone"`
		Address  *string `json:"address"`
		IsActive *bool   `json:"is_active"`
	}
	if !decodeBody(r, &in) {
		respond(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.student(chi.URLParam(r, "id"))
	if st == nil {
		respond(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	if in.Phone != nil {
		st.Phone = *in.Phone
	}
	if in.Address != nil {
		st.Address = *in.Address
	}
	if in.IsActive != nil {
		st.IsActive = *in.IsActive
	}
	respond(w, http.StatusOK, "Student updated", st)
}

func (s *Server) deleteStudent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.student(chi.URLParam(r, "id"))
	if st == nil {
		respond(w, http.StatusNotFound, "Student not found", nil)
		return
	}
	st.IsActive = false
	respond(w, http.StatusOK, "Student deactivated", nil)
}

func (s *Server) listTeachers(w http.ResponseWriter, r *http.Request) {
	page, perPage := paging(r, 20)

	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.Teacher, 0, len(s.teachers))
	for _, t := range s.teachers {
		all = append(all, *t)
	}
	start, end := window(len(all), page, perPage)
	data := pagination(len(all), page, perPage)
	data["teachers"] = all[start:end]
	respond(w, http.StatusOK, "Teachers retrieved", data)
}

func (s *Server) getTeacher(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teacher(chi.URLParam(r, "id"))
	if t == nil {
		respond(w, http.StatusNotFound, "Teacher not found", nil)
		return
	}
	respond(w, http.StatusOK, "Teacher retrieved", t)
}

func (s *Server) updateTeacher(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Specialization *string `json:"specialization"`
		Phone          *string `json:"phone"`
		OfficeNumber   *string `json:"office_number"`
		IsActive       *bool   `json:"is_active"`
	}
	if !decodeBody(r, &in) {
		respond(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teacher(chi.URLParam(r, "id"))
	if t == nil {
		respond(w, http.StatusNotFound, "Teacher not found", nil)
		return
	}
	if in.Specialization != nil {
		t.Specialization = *in.Specialization
	}
	if in.Phone != nil {
		t.Phone = *in.Phone
	}
	if in.OfficeNumber != nil {
		t.OfficeNumber = *in.OfficeNumber
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	respond(w, http.StatusOK, "Teacher updated", t)
}

func (s *Server) deleteTeacher(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.teacher(chi.URLParam(r, "id"))
	if t == nil {
		respond(w, http.StatusNotFound, "Teacher not found", nil)
		return
	}
	t.IsActive = false
	respond(w, http.StatusOK, "Teacher deactivated", nil)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := model.DashboardStats{TotalUsers: len(s.users), TotalCourses: len(s.courses)}
	for _, st := range s.students {
		if st.IsActive {
			stats.TotalStudents++
		}
	}
	for _, t := range s.teachers {
		if t.IsActive {
			stats.TotalTeachers++
		}
	}
	respond(w, http.StatusOK, "Dashboard stats", stats)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
