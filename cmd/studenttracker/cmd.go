package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/attendance"
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/session"
	"github.com/studenttracker/client/internal/tui"
	"github.com/studenttracker/client/internal/view"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNotLoggedIn = errors.New("not logged in, run: studenttracker login -email EMAIL")
)

type commandLine struct {
	ctx    context.Context
	out    io.Writer
	errOut io.Writer

	// open builds the app for a run; interactive selects TUI logging
	open func(configPath string, interactive bool) (*app, error)

	app     *app
	printer *printer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.errOut, "Usage:")
	fmt.Fprintln(cli.errOut, "  studenttracker [-config FILE] [-format table|json|yaml] [COMMAND]")
	fmt.Fprintln(cli.errOut)
	fmt.Fprintln(cli.errOut, "Commands:")
	fmt.Fprintln(cli.errOut, "  tui [-debug]                                  - interactive client (default)")
	fmt.Fprintln(cli.errOut, "  login -email EMAIL [-password PASSWORD]       - sign in; the password is prompted when omitted")
	fmt.Fprintln(cli.errOut, "  register -email -first -last -role [...]      - create an account and sign in")
	fmt.Fprintln(cli.errOut, "  logout                                        - forget the stored session")
	fmt.Fprintln(cli.errOut, "  whoami                                        - show the signed-in user")
	fmt.Fprintln(cli.errOut, "  refresh                                       - exchange the refresh token for new tokens")
	fmt.Fprintln(cli.errOut, "  health                                        - check the backend is up")
	fmt.Fprintln(cli.errOut, "  config [-write FILE]                          - show (or save) the resolved configuration")
	fmt.Fprintln(cli.errOut, "  dashboard                                     - landing page counters")
	fmt.Fprintln(cli.errOut, "  courses [-page N]                             - list courses")
	fmt.Fprintln(cli.errOut, "  users [-role ROLE] [-page N]                  - list users (admin)")
	fmt.Fprintln(cli.errOut, "  roster -course ID [-date D] [-page N]         - a course's roster for a day (teacher)")
	fmt.Fprintln(cli.errOut, "  mark -course ID [-status S] [-set ID=S ...]   - mark attendance for a roster page (teacher)")
	fmt.Fprintln(cli.errOut, "  summary -course ID                            - per-student attendance of a course (teacher)")
	fmt.Fprintln(cli.errOut, "  monthly [-student ID] [-year Y] [-month M]    - one student's month, day by day")
}

func (cli *commandLine) run(args []string) error {
	global := flag.NewFlagSet(args[0], flag.ContinueOnError)
	global.SetOutput(cli.errOut)
	global.Usage = cli.printUsage
	configPath := global.String("config", "", "YAML config file")
	format := global.String("format", formatTable, "output format: table, json or yaml")
	if err := global.Parse(args[1:]); err != nil {
		return flagErr(err)
	}

	rest := global.Args()
	command := "tui"
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	handlers := map[string]func([]string) error{
		"tui":       cli.tui,
		"login":     cli.login,
		"register":  cli.register,
		"logout":    cli.logout,
		"whoami":    cli.whoami,
		"refresh":   cli.refresh,
		"health":    cli.health,
		"config":    cli.config,
		"dashboard": cli.dashboard,
		"courses":   cli.courses,
		"users":     cli.users,
		"roster":    cli.roster,
		"mark":      cli.mark,
		"summary":   cli.summary,
		"monthly":   cli.monthly,
	}
	handler, ok := handlers[command]
	if !ok {
		cli.printUsage()
		return errHelp
	}

	p, err := newPrinter(*format, cli.out)
	if err != nil {
		return err
	}
	a, err := cli.open(*configPath, command == "tui")
	if err != nil {
		return err
	}
	defer a.Close()
	cli.app, cli.printer = a, p

	if err := handler(rest); err != nil {
		if api.IsSessionExpired(err) {
			return errors.New("session expired, please login again")
		}
		return err
	}
	return nil
}

func flagErr(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return errHelp
	}
	return err
}

func (cli *commandLine) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.errOut)
	return fs
}

func (cli *commandLine) requireLogin() error {
	if !cli.app.sess.IsAuthenticated() {
		return errNotLoggedIn
	}
	return nil
}

func (cli *commandLine) loader() *view.Loader {
	return view.NewLoader(cli.app.client, cli.app.sess, cli.app.cfg.PageSize)
}

func (cli *commandLine) flow() *attendance.Flow {
	return attendance.New(cli.app.client, attendance.WithCoursePageSize(cli.app.cfg.CoursePageSize))
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.errOut, "Enter password:")
	pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.errOut)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) tui(args []string) error {
	fs := cli.flags("tui")
	debug := fs.Bool("debug", cli.app.cfg.Debug, "open the request panel")
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}

	cfg := cli.app.cfg
	m := tui.NewRootModel(cli.ctx, cli.app.client, cli.app.sess, tui.Options{
		PageSize:       cfg.PageSize,
		RosterPageSize: cfg.RosterPageSize,
		CoursePageSize: cfg.CoursePageSize,
		Debug:          *debug,
		Requests:       cli.app.events,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cli.ctx))
	if _, err := p.Run(); err != nil && cli.ctx.Err() == nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

func (cli *commandLine) login(args []string) error {
	fs := cli.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password; prompted when empty")
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}
	if *email == "" {
		fs.Usage()
		return errHelp
	}
	if *password == "" {
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			fs.Usage()
			return errHelp
		}
		*password = pwd
	}

	if _, err := cli.app.client.Login(cli.ctx, strings.TrimSpace(*email), *password); err != nil {
		// bad credentials also answer 401; show the server's message rather than "session expired"
		var uerr *api.UnauthorizedError
		if errors.As(err, &uerr) {
			return errors.New(uerr.Error())
		}
		return err
	}
	u, err := cli.app.client.Me(cli.ctx)
	if err != nil {
		return err
	}
	return cli.printer.message(fmt.Sprintf("Welcome, %s (%s)", u.FullName(), u.Role), u)
}

func (cli *commandLine) register(args []string) error {
	fs := cli.flags("register")
	var n view.NewUser
	role := fs.String("role", string(model.RoleStudent), "student or teacher")
	fs.StringVar(&n.Email, "email", "", "account email")
	fs.StringVar(&n.Password, "password", "", "account password; prompted when empty")
	fs.StringVar(&n.FirstName, "first", "", "first name")
	fs.StringVar(&n.LastName, "last", "", "last name")
	fs.StringVar(&n.RollNumber, "roll", "", "roll number (students)")
	fs.StringVar(&n.EmployeeID, "employee", "", "employee id (teachers)")
	fs.StringVar(&n.Specialization, "specialization", "", "specialization (teachers)")
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}
	n.Role = model.Role(strings.ToLower(*role))
	if n.Role != model.RoleStudent && n.Role != model.RoleTeacher {
		return fmt.Errorf("role must be student or teacher, got %q", *role)
	}
	if n.Password == "" && n.Email != "" {
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		n.Password = pwd
	}
	if err := n.Validate(); err != nil {
		return err
	}

	if _, err := cli.app.client.Register(cli.ctx, n.Request()); err != nil {
		return err
	}
	u, err := cli.app.client.Me(cli.ctx)
	if err != nil {
		return err
	}
	return cli.printer.message("Registration successful. Welcome, "+u.FullName(), u)
}

func (cli *commandLine) logout(args []string) error {
	if err := cli.flags("logout").Parse(args); err != nil {
		return flagErr(err)
	}
	if err := cli.app.client.Logout(); err != nil {
		return err
	}
	return cli.printer.message("Logged out", map[string]bool{"logged_out": true})
}

func (cli *commandLine) whoami(args []string) error {
	if err := cli.flags("whoami").Parse(args); err != nil {
		return flagErr(err)
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}
	fields, err := cli.loader().Profile()
	if err != nil {
		return err
	}
	rows := fieldRows(fields)
	if exp, ok := cli.app.sess.TokenExpiry(); ok {
		rows = append(rows, []string{"Token Expires", exp.Local().Format(time.DateTime)})
	}
	return cli.printer.result(cli.app.sess.User(), "", []string{"Field", "Value"}, rows)
}

func (cli *commandLine) refresh(args []string) error {
	if err := cli.flags("refresh").Parse(args); err != nil {
		return flagErr(err)
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}
	if err := cli.app.client.Refresh(cli.ctx); err != nil {
		return err
	}
	msg := "Tokens refreshed"
	out := map[string]string{"status": "refreshed"}
	if exp, ok := cli.app.sess.TokenExpiry(); ok {
		msg += ", access token expires " + exp.Local().Format(time.DateTime)
		out["expires_at"] = exp.UTC().Format(time.RFC3339)
	}
	return cli.printer.message(msg, out)
}

func (cli *commandLine) health(args []string) error {
	if err := cli.flags("health").Parse(args); err != nil {
		return flagErr(err)
	}
	h, err := cli.app.client.Health(cli.ctx)
	if err != nil {
		return err
	}
	return cli.printer.message(fmt.Sprintf("%s: %s (%s)", h.Service, h.Status, cli.app.client.BaseURL()), h)
}

func (cli *commandLine) config(args []string) error {
	fs := cli.flags("config")
	write := fs.String("write", "", "save the resolved configuration to this file")
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}
	cfg := cli.app.cfg
	if *write != "" {
		if err := cfg.Write(*write); err != nil {
			return err
		}
		return cli.printer.message("Configuration written to "+*write, map[string]string{"written": *write})
	}
	file := cfg.File
	if file == "" {
		file = "(defaults)"
	}
	rows := [][]string{
		{"api_url", cfg.APIURL},
		{"timeout", cfg.Timeout.String()},
		{"storage", string(cfg.Storage)},
		{"state_path", cfg.StatePath},
		{"page_size", strconv.Itoa(cfg.PageSize)},
		{"course_page_size", strconv.Itoa(cfg.CoursePageSize)},
		{"roster_page_size", strconv.Itoa(cfg.RosterPageSize)},
		{"log_level", cfg.LogLevel},
		{"log_file", cfg.LogFile},
		{"debug", strconv.FormatBool(cfg.Debug)},
	}
	out := make(map[string]string, len(rows)+1)
	for _, r := range rows {
		out[r[0]] = r[1]
	}
	out["file"] = cfg.File
	return cli.printer.result(out, "Config: "+file, []string{"Key", "Value"}, rows)
}

func (cli *commandLine) dashboard(args []string) error {
	if err := cli.flags("dashboard").Parse(args); err != nil {
		return flagErr(err)
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}
	d, err := cli.loader().Dashboard(cli.ctx)
	if err != nil {
		return err
	}
	out := struct {
		Greeting string            `json:"greeting"`
		Stats    map[string]string `json:"stats,omitempty"`
		Hint     string            `json:"hint,omitempty"`
	}{Greeting: d.Greeting, Hint: d.Hint}
	if len(d.Cards) > 0 {
		out.Stats = make(map[string]string, len(d.Cards))
		for _, c := range d.Cards {
			out.Stats[c.Label] = c.Value
		}
	}
	if len(d.Cards) == 0 {
		return cli.printer.message(d.Greeting+"\n"+d.Hint, out)
	}
	return cli.printer.result(out, d.Greeting, []string{"Metric", "Count"}, fieldRows(d.Cards))
}

func (cli *commandLine) courses(args []string) error {
	fs := cli.flags("courses")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}
	p, err := cli.app.client.ListCourses(cli.ctx, *page, cli.app.cfg.PageSize, teacherID(cli.app.sess))
	if err != nil {
		return err
	}
	var rows [][]string
	for _, c := range p.Courses {
		rows = append(rows, []string{
			c.ID, c.CourseCode, c.CourseName, c.TeacherName, strconv.Itoa(c.Credits),
			fmt.Sprintf("%d / %d", c.EnrolledStudents, c.MaxStudents), c.Semester,
		})
	}
	return cli.printer.result(p, pageTitle("Courses", p.Pagination),
		[]string{"ID", "Code", "Name", "Instructor", "Credits", "Enrolled", "Semester"}, rows)
}

func (cli *commandLine) users(args []string) error {
	fs := cli.flags("users")
	page := fs.Int("page", 1, "page number")
	role := fs.String("role", "", "only this role")
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}
	r := model.Role(strings.ToLower(*role))
	if r != "" && !r.Valid() {
		return fmt.Errorf("unknown role %q", *role)
	}
	t, err := cli.loader().Users(cli.ctx, *page, r)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(t.Rows))
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rows = append(rows, append([]string{row.ID}, row.Cells...))
		m := map[string]string{"id": row.ID}
		for i, col := range t.Columns {
			m[strings.ToLower(col)] = row.Cells[i]
		}
		out = append(out, m)
	}
	return cli.printer.result(out, "Users, "+t.PageInfo(), append([]string{"ID"}, t.Columns...), rows)
}

// rosterOptions are the flags shared by roster and mark
type rosterOptions struct {
	course  *string
	date    *string
	page    *int
	perPage *int
}

func (cli *commandLine) rosterFlags(fs *flag.FlagSet) rosterOptions {
	return rosterOptions{
		course:  fs.String("course", "", "course id"),
		date:    fs.String("date", "", "day as YYYY-MM-DD; today when empty"),
		page:    fs.Int("page", 1, "roster page"),
		perPage: fs.Int("per-page", cli.app.cfg.RosterPageSize, "students per page"),
	}
}

// loadRoster selects the course and fetches the requested page
func (cli *commandLine) loadRoster(fs *flag.FlagSet, o rosterOptions) (*attendance.Flow, error) {
	if *o.course == "" {
		fs.Usage()
		return nil, errHelp
	}
	if err := cli.requireLogin(); err != nil {
		return nil, err
	}
	f := cli.flow()
	if err := f.Select(*o.course, *o.date, *o.perPage); err != nil {
		return nil, err
	}
	if err := f.LoadPage(cli.ctx, *o.page); err != nil {
		return nil, err
	}
	return f, nil
}

func rosterTable(f *attendance.Flow) (string, [][]string) {
	var rows [][]string
	for _, r := range f.Rows() {
		st := r.Selected
		rows = append(rows, []string{r.StudentID, r.RollNumber, r.Name, st.StatusIcon() + " " + string(st)})
	}
	return fmt.Sprintf("Roster for %s, %s", f.RosterDate(), f.PageInfo()), rows
}

var rosterHeaders = []string{"Student ID", "Roll No", "Name", "Status"}

func (cli *commandLine) roster(args []string) error {
	fs := cli.flags("roster")
	o := cli.rosterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}
	f, err := cli.loadRoster(fs, o)
	if err != nil {
		return err
	}
	title, rows := rosterTable(f)
	out := struct {
		CourseID string              `json:"course_id"`
		Date     string              `json:"date"`
		Students []model.RosterEntry `json:"students"`
		api.Pagination
	}{CourseID: f.CourseID(), Date: f.RosterDate(), Pagination: api.Pagination{Page: f.Page(), Pages: f.TotalPages(), Total: f.Total(), PerPage: f.PageSize()}}
	for _, r := range f.Rows() {
		out.Students = append(out.Students, r.RosterEntry)
	}
	return cli.printer.result(out, title, rosterHeaders, rows)
}

// marks collects repeated -set STUDENT=STATUS flags
type marks map[string]model.Status

func (m marks) String() string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+string(v))
	}
	return strings.Join(parts, ",")
}

func (m marks) Set(s string) error {
	who, status, ok := strings.Cut(s, "=")
	st := model.Status(strings.ToLower(strings.TrimSpace(status)))
	if !ok || strings.TrimSpace(who) == "" {
		return fmt.Errorf("want STUDENT=STATUS, got %q", s)
	}
	if !st.Valid() {
		return fmt.Errorf("%w: %q", attendance.ErrInvalidStatus, status)
	}
	m[strings.TrimSpace(who)] = st
	return nil
}

func (cli *commandLine) mark(args []string) error {
	fs := cli.flags("mark")
	o := cli.rosterFlags(fs)
	all := fs.String("status", "", "status for every student on the page")
	set := marks{}
	fs.Var(set, "set", "STUDENT=STATUS for one student, by id or roll number; repeatable")
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}
	if *all == "" && len(set) == 0 {
		return errors.New("nothing to mark: pass -status or -set")
	}
	f, err := cli.loadRoster(fs, o)
	if err != nil {
		return err
	}

	if *all != "" {
		if err := f.SetAll(model.Status(strings.ToLower(*all))); err != nil {
			return err
		}
	}
	matched := make(map[string]bool, len(set))
	for i, r := range f.Rows() {
		for _, key := range []string{r.StudentID, r.RollNumber} {
			st, ok := set[key]
			if !ok {
				continue
			}
			if err := f.SetStatus(i, st); err != nil {
				return err
			}
			matched[key] = true
		}
	}
	for key := range set {
		if !matched[key] {
			return fmt.Errorf("student %q is not on roster page %d", key, f.Page())
		}
	}

	res, err := f.Submit(cli.ctx)
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		fmt.Fprintln(cli.errOut, "rejected:", e)
	}
	title, rows := rosterTable(f)
	if cli.printer.format != formatTable {
		return cli.printer.result(res, "", nil, nil)
	}
	title = fmt.Sprintf("Attendance marked for %d students. %s", res.MarkedCount, title)
	return cli.printer.result(res, title, rosterHeaders, rows)
}

func (cli *commandLine) summary(args []string) error {
	fs := cli.flags("summary")
	course := fs.String("course", "", "course id")
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}
	if *course == "" {
		fs.Usage()
		return errHelp
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}
	f := cli.flow()
	if err := f.Select(*course, "", 0); err != nil {
		return err
	}
	rows, err := f.Summary(cli.ctx)
	if err != nil {
		return err
	}
	v := view.Summary(rows)
	lines := make([][]string, 0, len(v.Lines))
	for _, l := range v.Lines {
		low := ""
		if l.Low {
			low = "LOW"
		}
		lines = append(lines, append(append([]string{}, l.Cells...), low))
	}
	return cli.printer.result(rows, "Attendance summary", append(append([]string{}, v.Columns...), ""), lines)
}

func (cli *commandLine) monthly(args []string) error {
	now := time.Now()
	fs := cli.flags("monthly")
	student := fs.String("student", "", "student id; your own when signed in as a student")
	year := fs.Int("year", now.Year(), "year")
	month := fs.Int("month", int(now.Month()), "month, 1-12")
	if err := fs.Parse(args); err != nil {
		return flagErr(err)
	}
	if err := cli.requireLogin(); err != nil {
		return err
	}
	if *student == "" {
		if u := cli.app.sess.User(); u != nil && u.Student != nil {
			*student = u.Student.ID
		} else {
			fs.Usage()
			return errHelp
		}
	}
	mo, err := cli.flow().Monthly(cli.ctx, *student, *year, *month)
	if err != nil {
		return err
	}
	var rows [][]string
	for _, d := range mo.Days {
		st := mo.StatusOn(d)
		rows = append(rows, []string{strconv.Itoa(d), st.StatusIcon() + " " + string(st), strconv.FormatFloat(st.Value(), 'f', -1, 64)})
	}
	title := fmt.Sprintf("%s %d", time.Month(mo.Month), mo.Year)
	return cli.printer.result(mo, title, []string{"Day", "Status", "Value"}, rows)
}

func fieldRows(fields []view.Field) [][]string {
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{f.Label, f.Value})
	}
	return rows
}

func pageTitle(name string, p api.Pagination) string {
	pages := max(p.Pages, 1)
	return fmt.Sprintf("%s, page %d of %d (%d total)", name, max(p.Page, 1), pages, p.Total)
}

// teacherID limits course listings to the signed-in teacher's own courses
func teacherID(sess *session.Session) string {
	if !sess.HasRole(model.RoleTeacher) {
		return ""
	}
	if u := sess.User(); u != nil && u.Teacher != nil {
		return u.Teacher.ID
	}
	return ""
}
