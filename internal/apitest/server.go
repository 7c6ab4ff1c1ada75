// Package apitest runs an in-memory StudentTracker backend for tests.
//
// It mirrors the REST contract the client consumes: the response envelope,
// JWT bearer auth, role checks and paging. State lives in memory and starts
// from a fixed seed, so tests can refer to the seeded ids below.
package apitest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/studenttracker/client/internal/model"
)

// Seeded accounts
const (
	AdminEmail    = "admin@school.edu"
	TeacherEmail  = "teacher@school.edu"
	StudentEmail  = "alice@school.edu"
	Password      = "password123"
	AdminUserID   = "00000000-0000-4000-8000-000000000001"
	TeacherUserID = "00000000-0000-4000-8000-000000000002"
	TeacherID     = "10000000-0000-4000-8000-000000000002"
	CourseID      = "20000000-0000-4000-8000-000000000001"
	OtherCourseID = "20000000-0000-4000-8000-000000000002"
)

// StudentIDs are the seeded student profile ids, in roll number order.
// The first belongs to StudentEmail. All of them are enrolled in CourseID.
var StudentIDs = []string{
	"30000000-0000-4000-8000-000000000001",
	"30000000-0000-4000-8000-000000000002",
	"30000000-0000-4000-8000-000000000003",
	"30000000-0000-4000-8000-000000000004",
	"30000000-0000-4000-8000-000000000005",
}

var studentNames = [][2]string{
	{"Alice", "Adams"},
	{"Bob", "Brown"},
	{"Carol", "Clark"},
	{"Dan", "Davis"},
	{"Eve", "Evans"},
}

// Recorded is one request as the server saw it
type Recorded struct {
	Method        string
	Path          string
	Query         url.Values
	Body          []byte
	Authorization string
	RequestID     string
}

// Decode unmarshals the recorded body into v
func (r Recorded) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

type userRecord struct {
	model.User
	hash []byte
}

// Server is a fake StudentTracker backend
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	secret      []byte
	users       []*userRecord
	students    []*model.Student
	teachers    []*model.Teacher
	courses     []*model.Course
	enrollments []*model.Enrollment
	attendance  []*model.AttendanceRecord
	requests    []Recorded
	force401    bool
	seq         int
	now         func() time.Time
}

// New starts a seeded server that is closed when the test ends
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		secret: []byte("apitest-secret"),
		now:    time.Now,
	}
	s.seed()
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// APIURL is the api root to hand to api.NewClient
func (s *Server) APIURL() string {
	return s.URL + "/api"
}

// ForceUnauthorized makes every authenticated route answer 401 while on
func (s *Server) ForceUnauthorized(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.force401 = on
}

// Requests returns a copy of every request received so far
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, or false if none arrived yet
func (s *Server) LastRequest() (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Recorded{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// RequestsTo returns the recorded requests whose path equals path
func (s *Server) RequestsTo(method, path string) []Recorded {
	var out []Recorded
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// ResetRequests forgets recorded requests
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// AttendanceCount returns the number of stored attendance records
func (s *Server) AttendanceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attendance)
}

// AddStudents creates n extra students enrolled in CourseID and returns their ids
func (s *Server) AddStudents(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		num := len(s.students) + 1
		st := s.addStudent("Student", strconv.Itoa(num), "student"+strconv.Itoa(num)+"@school.edu", "R"+pad(num), "")
		s.enroll(st.ID, CourseID)
		ids = append(ids, st.ID)
	}
	return ids
}

func (s *Server) seed() {
	hash := mustHash(Password)
	ts := s.stamp()

	s.users = append(s.users, &userRecord{
		User: model.User{ID: AdminUserID, Email: AdminEmail, FirstName: "Ada", LastName: "Admin", Role: model.RoleAdmin, IsActive: true, CreatedAt: ts},
		hash: hash,
	})
	s.users = append(s.users, &userRecord{
		User: model.User{ID: TeacherUserID, Email: TeacherEmail, FirstName: "Tom", LastName: "Teach", Role: model.RoleTeacher, IsActive: true, CreatedAt: ts},
		hash: hash,
	})
	s.teachers = append(s.teachers, &model.Teacher{
		ID: TeacherID, UserID: TeacherUserID, EmployeeID: "EMP001", FirstName: "Tom", LastName: "Teach",
		Email: TeacherEmail, Specialization: "Mathematics", JoiningDate: ts[:10], IsActive: true, CreatedAt: ts,
	})

	for i, id := range StudentIDs {
		first, last := studentNames[i][0], studentNames[i][1]
		email := StudentEmail
		if i > 0 {
			email = strings.ToLower(first) + "@school.edu"
		}
		st := s.addStudent(first, last, email, "R"+pad(i+1), id)
		st.Phone = "555-010" + strconv.Itoa(i)
	}

	s.courses = append(s.courses,
		&model.Course{ID: CourseID, CourseCode: "MATH101", CourseName: "Calculus I", Description: "Limits and derivatives",
			TeacherID: TeacherID, TeacherName: "Tom Teach", Credits: 3, Semester: "Fall", MaxStudents: 50, IsActive: true, CreatedAt: ts},
		&model.Course{ID: OtherCourseID, CourseCode: "PHYS201", CourseName: "Mechanics",
			TeacherID: TeacherID, TeacherName: "Tom Teach", Credits: 4, Semester: "Fall", MaxStudents: 2, IsActive: true, CreatedAt: ts},
	)
	for _, id := range StudentIDs {
		s.enroll(id, CourseID)
	}
	s.refreshCounts()
}

func (s *Server) addStudent(first, last, email, roll, id string) *model.Student {
	if id == "" {
		id = s.newID()
	}
	ts := s.stamp()
	userID := s.newID()
	s.users = append(s.users, &userRecord{
		User: model.User{ID: userID, Email: email, FirstName: first, LastName: last, Role: model.RoleStudent, IsActive: true, CreatedAt: ts},
		hash: mustHash(Password),
	})
	st := &model.Student{
		ID: id, UserID: userID, RollNumber: roll, FirstName: first, LastName: last, Email: email,
		EnrollmentDate: ts[:10], IsActive: true, CreatedAt: ts,
	}
	s.students = append(s.students, st)
	return st
}

func (s *Server) enroll(studentID, courseID string) *model.Enrollment {
	e := &model.Enrollment{
		ID: s.newID(), StudentID: studentID, CourseID: courseID,
		CourseName: s.course(courseID).CourseName, EnrollmentDate: s.stamp(), IsActive: true,
	}
	s.enrollments = append(s.enrollments, e)
	s.refreshCounts()
	return e
}

func (s *Server) refreshCounts() {
	for _, c := range s.courses {
		n := 0
		for _, e := range s.enrollments {
			if e.CourseID == c.ID && e.IsActive {
				n++
			}
		}
		c.EnrolledStudents = n
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.health)

		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
		r.With(s.authenticate(tokenRefresh)).Post("/auth/refresh", s.refresh)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate(tokenAccess))

			r.Get("/auth/me", s.me)

			r.Route("/admin", func(r chi.Router) {
				r.Use(requireRole(model.RoleAdmin))
				r.Get("/users", s.listUsers)
				r.Get("/users/{id}", s.getUser)
				r.Put("/users/{id}", s.updateUser)
				r.Delete("/users/{id}", s.deleteUser)
				r.Get("/students", s.listStudents)
				r.Get("/students/{id}", s.getStudent)
				r.Put("/students/{id}", s.updateStudent)
				r.Delete("/students/{id}", s.deleteStudent)
				r.Get("/teachers", s.listTeachers)
				r.Get("/teachers/{id}", s.getTeacher)
				r.Put("/teachers/{id}", s.updateTeacher)
				r.Delete("/teachers/{id}", s.deleteTeacher)
				r.Get("/dashboard", s.dashboard)
			})

			r.Route("/courses", func(r chi.Router) {
				r.Get("/", s.listCourses)
				r.With(requireRole(model.RoleTeacher)).Post("/", s.createCourse)
				r.Get("/{id}", s.getCourse)
				r.With(requireRole(model.RoleTeacher)).Put("/{id}", s.updateCourse)
				r.With(requireRole(model.RoleTeacher)).Delete("/{id}", s.deleteCourse)
				r.Post("/{id}/enroll", s.enrollCourse)
				r.Post("/{id}/unenroll", s.unenrollCourse)
			})

			r.Route("/attendance", func(r chi.Router) {
				r.With(requireRole(model.RoleTeacher)).Post("/", s.markAttendance)
				r.With(requireRole(model.RoleTeacher)).Get("/course/{id}", s.courseAttendance)
				r.With(requireRole(model.RoleTeacher)).Get("/course/{id}/today", s.courseRoster)
				r.With(requireRole(model.RoleTeacher)).Get("/course/{id}/summary", s.courseSummary)
				r.Get("/student/{id}", s.studentAttendance)
				r.Get("/student/{id}/monthly", s.studentMonthly)
				r.With(requireRole(model.RoleTeacher)).Put("/{id}", s.updateAttendance)
				r.With(requireRole(model.RoleTeacher)).Delete("/{id}", s.deleteAttendance)
			})
		})
	})
	return r
}

// record captures the request before any handler runs
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.Query(),
			Body:          body,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy", "service": "StudentTracker API"})
}

// respond writes the envelope; success follows the status code
func respond(w http.ResponseWriter, status int, message string, data any) {
	env := map[string]any{
		"success":     status < 400,
		"status_code": status,
	}
	if message != "" {
		env["message"] = message
	}
	if data != nil {
		env["data"] = data
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func decodeBody(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func paging(r *http.Request, defPerPage int) (page, perPage int) {
	page, perPage = 1, defPerPage
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		perPage = v
	}
	return page, perPage
}

// window returns the [start, end) bounds of a page over total items
func window(total, page, perPage int) (int, int) {
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return start, end
}

func pagination(total, page, perPage int) map[string]any {
	return map[string]any{
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"pages":    (total + perPage - 1) / perPage,
	}
}

func (s *Server) newID() string {
	s.seq++
	return "90000000-0000-4000-8000-" + pad12(s.seq)
}

func (s *Server) stamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func mustHash(pw string) []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return h
}

func pad(n int) string {
	return fmt.Sprintf("%03d", n)
}

func pad12(n int) string {
	return fmt.Sprintf("%012d", n)
}
