package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/term"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/apitest"
	"github.com/studenttracker/client/internal/config"
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/session"
	"github.com/studenttracker/client/internal/storage"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	cfg := &config.Config{
		APIURL:         srv.APIURL(),
		Timeout:        5 * time.Second,
		Storage:        storage.KindMemory,
		PageSize:       20,
		CoursePageSize: 100,
		RosterPageSize: 10,
		LogLevel:       "info",
	}
	store := storage.NewMemoryStore()
	sess := session.New(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := &app{
		cfg:    cfg,
		store:  store,
		sess:   sess,
		logger: logger,
		client: api.NewClient(srv.APIURL(), sess, api.WithLogger(logger)),
	}

	var out bytes.Buffer
	cli := &commandLine{
		ctx:    context.Background(),
		out:    &out,
		errOut: io.Discard,
		open:   func(string, bool) (*app, error) { return a, nil },
	}
	return cli, &out, srv
}

// exec runs one command line, without the program name, on a fresh output buffer
func exec(t *testing.T, cli *commandLine, out *bytes.Buffer, args ...string) error {
	t.Helper()
	out.Reset()
	return cli.run(append([]string{"studenttracker"}, args...))
}

func login(t *testing.T, cli *commandLine, out *bytes.Buffer, email string) {
	t.Helper()
	if err := exec(t, cli, out, "login", "-email", email, "-password", apitest.Password); err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_run(t *testing.T) {
	cli, out, _ := setup(t)

	tests := []cliTest{
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "help flag", args: []string{"-h"}, wantErr: errHelp},
		{name: "unknown format", args: []string{"-format", "xml", "courses"}, wantErrStr: `unknown format "xml" (table, json, yaml)`},
		{name: "whoami anonymous", args: []string{"whoami"}, wantErr: errNotLoggedIn},
		{name: "dashboard anonymous", args: []string{"dashboard"}, wantErr: errNotLoggedIn},
		{name: "login without email", args: []string{"login"}, wantErr: errHelp},
		{name: "login bad password", args: []string{"login", "-email", apitest.AdminEmail, "-password", "nope"}, wantErrStr: "Invalid email or password"},
		{name: "roster without course", args: []string{"roster"}, wantErr: errHelp},
		{name: "summary without course", args: []string{"summary"}, wantErr: errHelp},
		{name: "mark nothing", args: []string{"mark", "-course", apitest.CourseID}, wantErrStr: "nothing to mark: pass -status or -set"},
		{name: "mark bad pair", args: []string{"mark", "-set", "R001"}, wantErrStr: `invalid value "R001" for flag -set: want STUDENT=STATUS, got "R001"`},
		{name: "register bad role", args: []string{"register", "-role", "admin"}, wantErrStr: `role must be student or teacher, got "admin"`},
		{name: "register missing fields", args: []string{"register", "-role", "student", "-email", "new@school.edu", "-password", "pw"}, wantErrStr: "missing first name, last name"},
		{name: "health", args: []string{"health"}},
		{name: "logout anonymous", args: []string{"logout"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := exec(t, cli, out, tt.args...); err != nil {
				if tt.wantErr != nil {
					if !errors.Is(err, tt.wantErr) {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			} else if tt.wantErr != nil || tt.wantErrStr != "" {
				t.Errorf("cli.run() expected an error")
			}
		})
	}
}

func Test_commandLine_login(t *testing.T) {
	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no password typed", args: []string{"login", "-email", apitest.AdminEmail}, wantErr: errHelp},
		{name: "wrong password", args: []string{"login", "-email", apitest.AdminEmail}, extra: extra{pwd: "lol"}, wantErrStr: "Invalid email or password"},
		{name: "prompted password", args: []string{"login", "-email", apitest.AdminEmail}, extra: extra{pwd: apitest.Password}},
	}
	for _, tt := range tests {
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			cli, out, _ := setup(t)
			err := exec(t, cli, out, tt.args...)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			case tt.wantErrStr != "":
				if err == nil || err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
				}
			case err != nil:
				t.Errorf("cli.run() unexpected error = %v", err)
			default:
				if !strings.Contains(out.String(), "Welcome, Ada Admin (admin)") {
					t.Errorf("output = %q", out.String())
				}
				if !cli.app.sess.IsAuthenticated() {
					t.Error("session not stored")
				}
			}
		})
	}
	readPasswordFunc = term.ReadPassword
}

func TestWhoamiAndLogout(t *testing.T) {
	cli, out, _ := setup(t)
	login(t, cli, out, apitest.TeacherEmail)

	if err := exec(t, cli, out, "whoami"); err != nil {
		t.Fatalf("whoami: %v", err)
	}
	for _, want := range []string{"Tom Teach", "TEACHER", "EMP001", "Token Expires"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("whoami output missing %q:\n%s", want, out.String())
		}
	}

	if err := exec(t, cli, out, "logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if cli.app.sess.IsAuthenticated() {
		t.Error("still authenticated after logout")
	}
	if err := exec(t, cli, out, "whoami"); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("whoami after logout = %v, want errNotLoggedIn", err)
	}
}

func TestSessionExpired(t *testing.T) {
	cli, out, srv := setup(t)
	login(t, cli, out, apitest.AdminEmail)
	srv.ForceUnauthorized(true)

	err := exec(t, cli, out, "dashboard")
	if err == nil || err.Error() != "session expired, please login again" {
		t.Fatalf("dashboard error = %v", err)
	}
	if cli.app.sess.IsAuthenticated() {
		t.Error("session not cleared on 401")
	}
}

func TestRegisterStudent(t *testing.T) {
	cli, out, _ := setup(t)
	err := exec(t, cli, out, "register",
		"-email", "zed@school.edu", "-password", "secret123",
		"-first", "Zed", "-last", "Zane", "-role", "student", "-roll", "R100")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(out.String(), "Registration successful. Welcome, Zed Zane") {
		t.Errorf("output = %q", out.String())
	}
	u := cli.app.sess.User()
	if u == nil || u.Student == nil || u.Student.RollNumber != "R100" {
		t.Errorf("session user = %+v, want hydrated student profile", u)
	}
}

func TestAdminDashboardJSON(t *testing.T) {
	cli, out, _ := setup(t)
	login(t, cli, out, apitest.AdminEmail)

	if err := exec(t, cli, out, "-format", "json", "dashboard"); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	var got struct {
		Greeting string            `json:"greeting"`
		Stats    map[string]string `json:"stats"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if got.Greeting != "Welcome back, Ada Admin!" {
		t.Errorf("greeting = %q", got.Greeting)
	}
	if got.Stats["Total Courses"] != "2" {
		t.Errorf("stats = %v", got.Stats)
	}
}

func TestUsers(t *testing.T) {
	cli, out, _ := setup(t)
	login(t, cli, out, apitest.AdminEmail)

	if err := exec(t, cli, out, "users", "-role", "teacher"); err != nil {
		t.Fatalf("users: %v", err)
	}
	if !strings.Contains(out.String(), apitest.TeacherEmail) || strings.Contains(out.String(), apitest.StudentEmail) {
		t.Errorf("users -role teacher output:\n%s", out.String())
	}
	if err := exec(t, cli, out, "users", "-role", "janitor"); err == nil {
		t.Error("expected unknown role error")
	}
}

func TestTeacherCourses(t *testing.T) {
	cli, out, srv := setup(t)
	login(t, cli, out, apitest.TeacherEmail)
	srv.ResetRequests()

	if err := exec(t, cli, out, "courses"); err != nil {
		t.Fatalf("courses: %v", err)
	}
	for _, want := range []string{"MATH101", "PHYS201", "5 / 50"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("courses output missing %q:\n%s", want, out.String())
		}
	}
	reqs := srv.RequestsTo("GET", "/api/courses")
	if len(reqs) != 1 || reqs[0].Query.Get("teacher_id") != apitest.TeacherID {
		t.Errorf("course requests = %+v, want one filtered by teacher", reqs)
	}
}

func TestRosterAndMark(t *testing.T) {
	cli, out, srv := setup(t)
	login(t, cli, out, apitest.TeacherEmail)

	if err := exec(t, cli, out, "roster", "-course", apitest.CourseID, "-date", "2026-03-02"); err != nil {
		t.Fatalf("roster: %v", err)
	}
	for _, want := range []string{"Roster for 2026-03-02", "R001", "Eve Evans", "not_marked"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("roster output missing %q:\n%s", want, out.String())
		}
	}

	srv.ResetRequests()
	err := exec(t, cli, out, "mark", "-course", apitest.CourseID, "-date", "2026-03-02",
		"-status", "present", "-set", "R002=absent", "-set", apitest.StudentIDs[2]+"=late")
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if !strings.Contains(out.String(), "Attendance marked for 5 students") {
		t.Errorf("mark output:\n%s", out.String())
	}
	if srv.AttendanceCount() != 5 {
		t.Errorf("stored records = %d, want 5", srv.AttendanceCount())
	}

	reqs := srv.RequestsTo("POST", "/api/attendance")
	if len(reqs) != 1 {
		t.Fatalf("mark requests = %d, want 1", len(reqs))
	}
	var body api.MarkRequest
	if err := reqs[0].Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	want := map[string]model.Status{
		apitest.StudentIDs[0]: model.StatusPresent,
		apitest.StudentIDs[1]: model.StatusAbsent,
		apitest.StudentIDs[2]: model.StatusLate,
		apitest.StudentIDs[3]: model.StatusPresent,
		apitest.StudentIDs[4]: model.StatusPresent,
	}
	for _, r := range body.AttendanceRecords {
		if want[r.StudentID] != r.Status {
			t.Errorf("student %s status = %s, want %s", r.StudentID, r.Status, want[r.StudentID])
		}
		if r.AttendanceDate != "2026-03-02T00:00:00Z" {
			t.Errorf("attendance_date = %q", r.AttendanceDate)
		}
	}

	err = exec(t, cli, out, "mark", "-course", apitest.CourseID, "-set", "R999=present")
	if err == nil || !strings.Contains(err.Error(), `"R999" is not on roster page 1`) {
		t.Errorf("unknown student error = %v", err)
	}

	if err := exec(t, cli, out, "-format", "json", "summary", "-course", apitest.CourseID); err != nil {
		t.Fatalf("summary: %v", err)
	}
	var rows []model.SummaryRow
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("decode summary %q: %v", out.String(), err)
	}
	if len(rows) != 5 {
		t.Errorf("summary rows = %d, want 5", len(rows))
	}
}

func TestStudentMonthlyYAML(t *testing.T) {
	cli, out, _ := setup(t)
	login(t, cli, out, apitest.StudentEmail)

	if err := exec(t, cli, out, "-format", "yaml", "monthly", "-year", "2026", "-month", "2"); err != nil {
		t.Fatalf("monthly: %v", err)
	}
	for _, want := range []string{"year: 2026", "month: 2", "days:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("monthly yaml missing %q:\n%s", want, out.String())
		}
	}

	if err := exec(t, cli, out, "monthly", "-month", "13"); err == nil {
		t.Error("expected invalid month error")
	}
}

func TestConfigWrite(t *testing.T) {
	cli, out, _ := setup(t)
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	if err := exec(t, cli, out, "config", "-write", path); err != nil {
		t.Fatalf("config -write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read written config: %v", err)
	}
	if !strings.Contains(string(data), "roster_page_size: 10") {
		t.Errorf("written config:\n%s", data)
	}

	if err := exec(t, cli, out, "config"); err != nil {
		t.Fatalf("config: %v", err)
	}
	if !strings.Contains(out.String(), "Config: (defaults)") || !strings.Contains(out.String(), "api_url") {
		t.Errorf("config output:\n%s", out.String())
	}
}

func TestMarksFlag(t *testing.T) {
	tests := []struct {
		in      string
		wantKey string
		want    model.Status
		wantErr bool
	}{
		{in: "R001=present", wantKey: "R001", want: model.StatusPresent},
		{in: " R002 = Late ", wantKey: "R002", want: model.StatusLate},
		{in: "R003=excused", wantErr: true},
		{in: "=absent", wantErr: true},
		{in: "R004", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m := marks{}
			err := m.Set(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && m[tt.wantKey] != tt.want {
				t.Errorf("marks = %v, want %s=%s", m, tt.wantKey, tt.want)
			}
		})
	}
}

func TestPrinterYAML(t *testing.T) {
	var buf bytes.Buffer
	p, err := newPrinter(formatYAML, &buf)
	if err != nil {
		t.Fatal(err)
	}
	v := struct {
		Name  string   `json:"name"`
		Code  string   `json:"code"`
		Empty string   `json:"empty"`
		Tags  []string `json:"tags"`
	}{Name: "Alice Adams", Code: "123", Tags: []string{"a", "b"}}
	if err := p.result(v, "", nil, nil); err != nil {
		t.Fatal(err)
	}
	want := "name: Alice Adams\ncode: \"123\"\nempty: \"\"\ntags:\n  - a\n  - b\n"
	if buf.String() != want {
		t.Errorf("yaml =\n%s\nwant\n%s", buf.String(), want)
	}
}
