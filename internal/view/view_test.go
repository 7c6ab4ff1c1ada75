package view

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"testing"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/apitest"
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/session"
	"github.com/studenttracker/client/internal/storage"
)

func sessionAs(t *testing.T, role model.Role) *session.Session {
	t.Helper()
	s := session.New(storage.NewMemoryStore())
	if role == "" {
		return s
	}
	if err := s.SetAuth("a", "r", &model.User{ID: "u1", FirstName: "Pat", LastName: "Doe", Role: role}); err != nil {
		t.Fatal(err)
	}
	return s
}

// signedIn logs in against the fake backend and hydrates the profile the way the UI does
func signedIn(t *testing.T, srv *apitest.Server, email string) (*api.Client, *Loader) {
	t.Helper()
	ctx := context.Background()
	c := api.NewClient(srv.APIURL(), session.New(storage.NewMemoryStore()),
		api.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if _, err := c.Login(ctx, email, apitest.Password); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Me(ctx); err != nil {
		t.Fatal(err)
	}
	return c, NewLoader(c, c.Session(), 0)
}

func TestSections(t *testing.T) {
	tests := []struct {
		role model.Role
		want []Section
	}{
		{role: "", want: nil},
		{role: model.RoleAdmin, want: []Section{SectionDashboard, SectionCourses, SectionUsers, SectionStudents, SectionTeachers, SectionProfile}},
		{role: model.RoleTeacher, want: []Section{SectionDashboard, SectionCourses, SectionAttendance, SectionProfile}},
		{role: model.RoleStudent, want: []Section{SectionDashboard, SectionCourses, SectionProfile}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			got := Sections(sessionAs(t, tt.role))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sections() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		role    model.Role
		section Section
		want    bool
	}{
		{model.RoleAdmin, SectionUsers, true},
		{model.RoleAdmin, SectionAttendance, false},
		{model.RoleTeacher, SectionAttendance, true},
		{model.RoleTeacher, SectionStudents, false},
		{model.RoleStudent, SectionCourses, true},
		{model.RoleStudent, SectionTeachers, false},
		{"", SectionDashboard, false},
	}
	for _, tt := range tests {
		if got := Allowed(sessionAs(t, tt.role), tt.section); got != tt.want {
			t.Errorf("Allowed(%q, %s) = %v, want %v", tt.role, tt.section, got, tt.want)
		}
	}
}

func TestDashboard(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()

	_, admin := signedIn(t, srv, apitest.AdminEmail)
	v, err := admin.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Greeting != "Welcome back, Ada Admin!" {
		t.Errorf("Greeting = %q", v.Greeting)
	}
	if len(v.Cards) != 4 || v.Cards[1] != (Field{Label: "Active Students", Value: "5"}) {
		t.Errorf("Cards = %+v", v.Cards)
	}

	srv.ResetRequests()
	_, student := signedIn(t, srv, apitest.StudentEmail)
	v, err = student.Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Hint == "" || len(v.Cards) != 0 {
		t.Errorf("student dashboard = %+v", v)
	}
	if n := len(srv.RequestsTo(http.MethodGet, "/api/admin/dashboard")); n != 0 {
		t.Errorf("student dashboard fetched stats %d times", n)
	}
}

func TestProfile(t *testing.T) {
	srv := apitest.New(t)
	tests := []struct {
		email string
		want  map[string]string
	}{
		{email: apitest.StudentEmail, want: map[string]string{"Full Name": "Alice Adams", "Role": "STUDENT", "Roll Number": "R001"}},
		{email: apitest.TeacherEmail, want: map[string]string{"Role": "TEACHER", "Employee ID": "EMP001", "Specialization": "Mathematics"}},
		{email: apitest.AdminEmail, want: map[string]string{"Email": apitest.AdminEmail, "Role": "ADMIN"}},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			_, l := signedIn(t, srv, tt.email)
			fields, err := l.Profile()
			if err != nil {
				t.Fatal(err)
			}
			got := map[string]string{}
			for _, f := range fields {
				got[f.Label] = f.Value
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestManagementTables(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()
	_, l := signedIn(t, srv, apitest.AdminEmail)

	users, err := l.Users(ctx, 1, model.RoleStudent)
	if err != nil {
		t.Fatal(err)
	}
	if len(users.Rows) != 5 || users.Rows[0].Cells[3] != "Active" {
		t.Errorf("users = %+v", users.Rows)
	}

	if _, err := l.DeleteStudent(ctx, apitest.StudentIDs[1]); err != nil {
		t.Fatal(err)
	}
	students, err := l.Students(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if students.Rows[1].Active || students.Rows[1].Cells[4] != "Inactive" {
		t.Errorf("deleted student row = %+v", students.Rows[1])
	}
	if students.PageInfo() != "Page 1 of 1 (5 total)" {
		t.Errorf("PageInfo() = %q", students.PageInfo())
	}

	teachers, err := l.Teachers(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(teachers.Rows) != 1 || teachers.Rows[0].Cells[0] != "EMP001" {
		t.Errorf("teachers = %+v", teachers.Rows)
	}

	if _, err := l.DeactivateUser(ctx, apitest.AdminUserID); err == nil {
		t.Error("admin deactivated their own account")
	}
}

func TestSectionsForbidden(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()
	_, l := signedIn(t, srv, apitest.StudentEmail)

	if _, err := l.Users(ctx, 1, ""); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("Users() error = %v, want ErrNotAllowed", err)
	}
	if _, err := l.TeacherCourses(ctx); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("TeacherCourses() error = %v, want ErrNotAllowed", err)
	}
	if n := len(srv.RequestsTo(http.MethodGet, "/api/admin/users")); n != 0 {
		t.Errorf("forbidden section made %d requests", n)
	}
}

func TestCoursesByRole(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()

	tests := []struct {
		email       string
		wantTeacher string
		wantActions []Action
	}{
		{email: apitest.StudentEmail, wantActions: []Action{ActionEnroll, ActionUnenroll}},
		{email: apitest.TeacherEmail, wantTeacher: apitest.TeacherID, wantActions: []Action{ActionEdit, ActionDelete}},
		{email: apitest.AdminEmail, wantActions: nil},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			_, l := signedIn(t, srv, tt.email)
			srv.ResetRequests()
			v, err := l.Courses(ctx, 1)
			if err != nil {
				t.Fatal(err)
			}
			last, _ := srv.LastRequest()
			if got := last.Query.Get("teacher_id"); got != tt.wantTeacher {
				t.Errorf("teacher_id = %q, want %q", got, tt.wantTeacher)
			}
			if len(v.Cards) == 0 {
				t.Fatal("no course cards")
			}
			if !reflect.DeepEqual(v.Cards[0].Actions, tt.wantActions) {
				t.Errorf("Actions = %v, want %v", v.Cards[0].Actions, tt.wantActions)
			}
			if v.Cards[0].Enrolled != "5 / 50" {
				t.Errorf("Enrolled = %q", v.Cards[0].Enrolled)
			}
		})
	}
}

func TestStudentCourseActions(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()
	_, l := signedIn(t, srv, apitest.StudentEmail)

	msg, err := l.Enroll(ctx, apitest.OtherCourseID)
	if err != nil || msg != "Enrolled successfully" {
		t.Fatalf("Enroll() = %q, %v", msg, err)
	}
	_, err = l.Enroll(ctx, apitest.OtherCourseID)
	if got := api.Message(err, "Enrollment failed"); got != "Already enrolled in this course" {
		t.Errorf("second Enroll() message = %q", got)
	}
	if _, err := l.Unenroll(ctx, apitest.OtherCourseID); err != nil {
		t.Fatal(err)
	}
	if _, err := l.CreateCourse(ctx, api.CourseInput{CourseCode: "X", CourseName: "Y"}); !errors.Is(err, ErrNotAllowed) {
		t.Errorf("student CreateCourse() error = %v", err)
	}
}

func TestTeacherCourseActions(t *testing.T) {
	srv := apitest.New(t)
	ctx := context.Background()
	_, l := signedIn(t, srv, apitest.TeacherEmail)

	msg, err := l.CreateCourse(ctx, api.CourseInput{CourseCode: " chem101 ", CourseName: "Chemistry"})
	if err != nil || msg != "Course CHEM101 created" {
		t.Fatalf("CreateCourse() = %q, %v", msg, err)
	}
	courses, err := l.TeacherCourses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 3 {
		t.Fatalf("TeacherCourses() = %d, want 3", len(courses))
	}
	if _, err := l.DeleteCourse(ctx, courses[2].ID); err != nil {
		t.Fatal(err)
	}
	if courses, _ = l.TeacherCourses(ctx); len(courses) != 2 {
		t.Errorf("after delete TeacherCourses() = %d, want 2", len(courses))
	}
}

func TestSummary(t *testing.T) {
	v := Summary([]model.SummaryRow{
		{RollNumber: "R001", StudentName: "Alice", TotalClasses: 4, Present: 3, Absent: 1, AttendancePercentage: 75},
		{RollNumber: "R002", StudentName: "Bob", TotalClasses: 3, Present: 2, Late: 1, AttendancePercentage: 66.67},
	})
	if len(v.Lines) != 2 {
		t.Fatalf("lines = %d", len(v.Lines))
	}
	if v.Lines[0].Low || v.Lines[0].Cells[6] != "75%" {
		t.Errorf("line 0 = %+v", v.Lines[0])
	}
	if !v.Lines[1].Low || v.Lines[1].Cells[6] != "66.67%" {
		t.Errorf("line 1 = %+v", v.Lines[1])
	}
}

func TestNewUserValidate(t *testing.T) {
	base := NewUser{Email: "a@b.c", FirstName: "A", LastName: "B", Password: "pw", Role: model.RoleAdmin}
	tests := []struct {
		name    string
		edit    func(n *NewUser)
		wantErr bool
	}{
		{name: "admin ok", edit: func(n *NewUser) {}},
		{name: "missing email", edit: func(n *NewUser) { n.Email = " " }, wantErr: true},
		{name: "no role", edit: func(n *NewUser) { n.Role = "" }, wantErr: true},
		{name: "student needs roll", edit: func(n *NewUser) { n.Role = model.RoleStudent }, wantErr: true},
		{name: "student ok", edit: func(n *NewUser) { n.Role = model.RoleStudent; n.RollNumber = "R1" }},
		{name: "teacher needs employee id", edit: func(n *NewUser) { n.Role = model.RoleTeacher }, wantErr: true},
		{name: "teacher ok", edit: func(n *NewUser) { n.Role = model.RoleTeacher; n.EmployeeID = "E1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := base
			tt.edit(&n)
			if err := n.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateUserKeepsAdminSession(t *testing.T) {
	srv := apitest.New(t)
	c, l := signedIn(t, srv, apitest.AdminEmail)

	msg, err := l.CreateUser(context.Background(), NewUser{
		Email: "new@school.edu", FirstName: "New", LastName: "Person", Password: "pw12345",
		Role: model.RoleStudent, RollNumber: "R100",
	})
	if err != nil || msg != "User created successfully" {
		t.Fatalf("CreateUser() = %q, %v", msg, err)
	}
	if c.Session().User().ID != apitest.AdminUserID {
		t.Error("CreateUser() changed the signed-in user")
	}
}
