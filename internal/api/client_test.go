package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/studenttracker/client/internal/apitest"
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/session"
	"github.com/studenttracker/client/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) (*Client, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	return NewClient(baseURL, session.New(store), opts...), store
}

func loginAs(t *testing.T, c *Client, email string) {
	t.Helper()
	if _, err := c.Login(context.Background(), email, apitest.Password); err != nil {
		t.Fatalf("Login(%s) error = %v", email, err)
	}
}

func TestLoginStoresSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"data":{"user":{"role":"admin"},"tokens":{"access_token":"a","refresh_token":"r"}}}`)
	}))
	defer srv.Close()

	c, store := newTestClient(t, srv.URL+"/api")
	if _, err := c.Login(context.Background(), "admin@x.com", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	sess := c.Session()
	if !sess.IsAuthenticated() {
		t.Error("IsAuthenticated() = false after login")
	}
	if !sess.HasRole(model.RoleAdmin) {
		t.Error("HasRole(admin) = false after login")
	}
	if got, _, _ := store.Get(session.KeyAccessToken); got != "a" {
		t.Errorf("stored access token = %q, want %q", got, "a")
	}
	if got, _, _ := store.Get(session.KeyRefreshToken); got != "r" {
		t.Errorf("stored refresh token = %q, want %q", got, "r")
	}
	if _, ok, _ := store.Get(session.KeyCurrentUser); !ok {
		t.Error("current user not persisted")
	}
}

func TestLoginSendsBearerOnLaterCalls(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.APIURL())
	loginAs(t, c, apitest.AdminEmail)

	if _, err := c.Dashboard(context.Background()); err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	last, _ := srv.LastRequest()
	if want := "Bearer " + c.Session().AccessToken(); last.Authorization != want {
		t.Errorf("Authorization = %q, want %q", last.Authorization, want)
	}
	if _, err := uuid.Parse(last.RequestID); err != nil {
		t.Errorf("X-Request-ID %q is not a uuid: %v", last.RequestID, err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	srv := apitest.New(t)
	c, store := newTestClient(t, srv.APIURL())

	_, err := c.Login(context.Background(), apitest.AdminEmail, "wrong")
	var uerr *UnauthorizedError
	if !errors.As(err, &uerr) {
		t.Fatalf("Login() error = %v, want *UnauthorizedError", err)
	}
	if uerr.Message != "Invalid email or password" {
		t.Errorf("message = %q", uerr.Message)
	}
	if !errors.Is(err, ErrSessionExpired) {
		t.Error("errors.Is(err, ErrSessionExpired) = false")
	}
	if store.Len() != 0 {
		t.Errorf("store has %d keys after failed login, want 0", store.Len())
	}
}

func TestUnauthorizedClearsSessionFirst(t *testing.T) {
	srv := apitest.New(t)

	var authedAtHook []bool
	var c *Client
	c, store := newTestClient(t, srv.APIURL(), WithRequestHook(func(ev RequestEvent) {
		if ev.Status == http.StatusUnauthorized {
			authedAtHook = append(authedAtHook, c.Session().IsAuthenticated())
		}
	}))
	loginAs(t, c, apitest.TeacherEmail)

	srv.ForceUnauthorized(true)
	_, err := c.ListCourses(context.Background(), 1, 10, "")
	if !IsSessionExpired(err) {
		t.Fatalf("ListCourses() error = %v, want ErrSessionExpired", err)
	}
	if c.Session().IsAuthenticated() {
		t.Error("session still authenticated after 401")
	}
	if store.Len() != 0 {
		t.Errorf("store has %d keys after 401, want 0", store.Len())
	}
	if len(authedAtHook) != 1 || authedAtHook[0] {
		t.Errorf("hook saw authenticated=%v, want [false]", authedAtHook)
	}
	if got := Message(err, "fallback"); got != ErrSessionExpired.Error() {
		t.Errorf("Message() = %q", got)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := newTestClient(t, url)
	if err := c.Session().SetAuth("tok", "ref", &model.User{ID: "u1", Role: model.RoleAdmin}); err != nil {
		t.Fatal(err)
	}

	_, err := c.Request(context.Background(), http.MethodGet, "/admin/dashboard", nil)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Request() error = %v, want ErrNetwork", err)
	}
	if !c.Session().IsAuthenticated() {
		t.Error("network failure must not clear the session")
	}
	if got := Message(err, ""); got != ErrNetwork.Error() {
		t.Errorf("Message() = %q", got)
	}
}

func TestUndecodableBodyIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.Request(context.Background(), http.MethodGet, "/courses", nil)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("Request() error = %v, want ErrNetwork", err)
	}
}

func TestNon2xxReturnsEnvelope(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.APIURL())
	loginAs(t, c, apitest.TeacherEmail)

	env, err := c.Request(context.Background(), http.MethodGet, "/courses/missing", nil)
	if err != nil {
		t.Fatalf("Request() error = %v, want nil", err)
	}
	if env.Success {
		t.Error("Success = true for 404")
	}
	if env.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", env.StatusCode)
	}

	_, err = c.GetCourse(context.Background(), "missing")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("GetCourse() error = %v, want *Error", err)
	}
	if apiErr.Message != "Course not found" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if !c.Session().IsAuthenticated() {
		t.Error("application failure must not clear the session")
	}
}

func TestQueryParameters(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		email string
		call  func(c *Client) error
		path  string
		want  map[string]string
	}{
		{
			name:  "users by role",
			email: apitest.AdminEmail,
			call: func(c *Client) error {
				_, err := c.ListUsers(ctx, 2, 5, model.RoleStudent)
				return err
			},
			path: "/api/admin/users",
			want: map[string]string{"page": "2", "per_page": "5", "role": "student"},
		},
		{
			name:  "courses by teacher",
			email: apitest.TeacherEmail,
			call: func(c *Client) error {
				_, err := c.ListCourses(ctx, 1, 100, apitest.TeacherID)
				return err
			},
			path: "/api/courses",
			want: map[string]string{"page": "1", "per_page": "100", "teacher_id": apitest.TeacherID},
		},
		{
			name:  "roster for date",
			email: apitest.TeacherEmail,
			call: func(c *Client) error {
				_, err := c.CourseRoster(ctx, apitest.CourseID, "2024-03-04", 3, 10)
				return err
			},
			path: "/api/attendance/course/" + apitest.CourseID + "/today",
			want: map[string]string{"date": "2024-03-04", "page": "3", "per_page": "10"},
		},
		{
			name:  "course records between dates",
			email: apitest.TeacherEmail,
			call: func(c *Client) error {
				_, err := c.CourseAttendance(ctx, apitest.CourseID, 1, 50, "2024-03-01", "2024-03-31")
				return err
			},
			path: "/api/attendance/course/" + apitest.CourseID,
			want: map[string]string{"from_date": "2024-03-01", "to_date": "2024-03-31"},
		},
		{
			name:  "monthly",
			email: apitest.StudentEmail,
			call: func(c *Client) error {
				_, err := c.StudentMonthly(ctx, apitest.StudentIDs[0], 2024, 2)
				return err
			},
			path: "/api/attendance/student/" + apitest.StudentIDs[0] + "/monthly",
			want: map[string]string{"year": "2024", "month": "2"},
		},
		{
			name:  "student records for course",
			email: apitest.StudentEmail,
			call: func(c *Client) error {
				_, err := c.StudentAttendance(ctx, apitest.StudentIDs[0], 1, 20, apitest.CourseID)
				return err
			},
			path: "/api/attendance/student/" + apitest.StudentIDs[0],
			want: map[string]string{"course_id": apitest.CourseID, "per_page": "20"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, srv.APIURL())
			loginAs(t, c, tt.email)
			srv.ResetRequests()

			if err := tt.call(c); err != nil {
				t.Fatalf("call error = %v", err)
			}
			last, _ := srv.LastRequest()
			if last.Path != tt.path {
				t.Errorf("path = %q, want %q", last.Path, tt.path)
			}
			for k, v := range tt.want {
				if got := last.Query.Get(k); got != v {
					t.Errorf("query %s = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestMeHydratesProfile(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.APIURL())
	loginAs(t, c, apitest.TeacherEmail)

	u, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if u.Teacher == nil || u.Teacher.ID != apitest.TeacherID {
		t.Fatalf("Me().Teacher = %+v, want id %s", u.Teacher, apitest.TeacherID)
	}
	if got := c.Session().User(); got.Teacher == nil {
		t.Error("session user not hydrated")
	}
}

func TestRefreshKeepsUser(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.APIURL())
	loginAs(t, c, apitest.StudentEmail)
	refresh := c.Session().RefreshToken()
	srv.ResetRequests()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	last, _ := srv.LastRequest()
	if last.Authorization != "Bearer "+refresh {
		t.Errorf("refresh sent %q, want the refresh token", last.Authorization)
	}
	if !c.Session().IsAuthenticated() || !c.Session().HasRole(model.RoleStudent) {
		t.Error("session lost its user on refresh")
	}
}

func TestRefreshWithoutToken(t *testing.T) {
	c, _ := newTestClient(t, "http://127.0.0.1:0")
	if err := c.Refresh(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Refresh() error = %v, want ErrSessionExpired", err)
	}
}

func TestRegisterAndCreateUser(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()

	c, _ := newTestClient(t, srv.APIURL())
	u, err := c.Register(ctx, RegisterRequest{
		Email: "new@school.edu", Password: "secret123", FirstName: "New", LastName: "Kid",
		Role: model.RoleStudent, RollNumber: "R900",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if c.Session().User().ID != u.ID {
		t.Error("Register() did not sign in as the new user")
	}

	admin, _ := newTestClient(t, srv.APIURL())
	loginAs(t, admin, apitest.AdminEmail)
	created, err := admin.CreateUser(ctx, RegisterRequest{
		Email: "prof@school.edu", Password: "secret123", FirstName: "Pro", LastName: "Fessor",
		Role: model.RoleTeacher, EmployeeID: "EMP777",
	})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if admin.Session().User().ID == created.ID {
		t.Error("CreateUser() replaced the admin session")
	}

	_, err = admin.CreateUser(ctx, RegisterRequest{
		Email: "prof@school.edu", Password: "x", FirstName: "A", LastName: "B",
		Role: model.RoleTeacher, EmployeeID: "EMP778",
	})
	if got := Message(err, ""); got != "Email already registered" {
		t.Errorf("duplicate CreateUser() message = %q", got)
	}
}

func TestMarkAttendancePartial(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.APIURL())
	loginAs(t, c, apitest.TeacherEmail)

	res, err := c.MarkAttendance(context.Background(), MarkRequest{
		CourseID: apitest.CourseID,
		AttendanceRecords: []AttendanceInput{
			{StudentID: apitest.StudentIDs[0], Status: model.StatusPresent, AttendanceDate: "2024-03-04T00:00:00Z"},
			{StudentID: apitest.StudentIDs[1], Status: model.StatusNotMarked, AttendanceDate: "2024-03-04T00:00:00Z"},
		},
	})
	if err != nil {
		t.Fatalf("MarkAttendance() error = %v", err)
	}
	if res.MarkedCount != 1 {
		t.Errorf("MarkedCount = %d, want 1", res.MarkedCount)
	}
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "Invalid status") {
		t.Errorf("Errors = %v", res.Errors)
	}
}

func TestEnrollConflict(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.APIURL())
	loginAs(t, c, apitest.StudentEmail)

	_, err := c.Enroll(context.Background(), apitest.CourseID)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusConflict {
		t.Fatalf("Enroll() error = %v, want 409", err)
	}

	if err := c.Unenroll(context.Background(), apitest.CourseID); err != nil {
		t.Fatalf("Unenroll() error = %v", err)
	}
	if _, err := c.Enroll(context.Background(), apitest.CourseID); err != nil {
		t.Fatalf("re-Enroll() error = %v", err)
	}
}

func TestHealth(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newTestClient(t, srv.APIURL())

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if h.Status != "healthy" {
		t.Errorf("Status = %q", h.Status)
	}
}
