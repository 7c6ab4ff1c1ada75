package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/studenttracker/client/internal/api"
	"github.com/studenttracker/client/internal/attendance"
	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/session"
	"github.com/studenttracker/client/internal/view"
)

// screen is the top-level page
type screen int

const (
	screenAuth screen = iota // Login and register tabs
	screenMain               // Sidebar navigation and section content
)

// focusArea is the main-screen pane receiving keys
type focusArea int

const (
	focusNav focusArea = iota
	focusContent
)

const (
	toastDuration = 3 * time.Second
	sidebarWidth  = 24
	debugWidth    = 48

	sessionExpiredNotice = "Session expired. Please login again."
)

// Backend is everything the terminal UI calls. *api.Client satisfies it.
type Backend interface {
	view.Backend
	attendance.Backend
	Login(ctx context.Context, email, password string) (*model.User, error)
	Register(ctx context.Context, req api.RegisterRequest) (*model.User, error)
	Me(ctx context.Context) (*model.User, error)
	Logout() error
}

// Options tunes the UI
type Options struct {
	PageSize       int // management tables
	RosterPageSize int
	CoursePageSize int
	Debug          bool                    // open the request panel at start
	Requests       <-chan api.RequestEvent // fed by api.WithRequestHook
}

// Messages
type authDoneMsg struct {
	user       *model.User
	registered bool
	err        error
}

type profileRefreshedMsg struct {
	err error
}

type sectionLoadedMsg struct {
	section   view.Section
	page      int
	dashboard *view.DashboardView
	profile   []view.Field
	list      *view.Table
	courses   *view.CoursesView
	err       error
}

// actionDoneMsg reports a list action; the notice becomes a toast
type actionDoneMsg struct {
	notice string
	err    error
}

type toastExpiredMsg struct {
	seq int
}

type toastKind int

const (
	toastInfo toastKind = iota
	toastSuccess
	toastError
)

type toast struct {
	text string
	kind toastKind
	seq  int
}

// Model is the root Bubble Tea model
type Model struct {
	ctx      context.Context
	backend  Backend
	sess     *session.Session
	loader   *view.Loader
	flow     *attendance.Flow
	opts     Options
	requests <-chan api.RequestEvent

	// Terminal dimensions
	width  int
	height int
	ready  bool

	screen  screen
	authTab authTab
	auth    form

	// Navigation
	sections []view.Section
	navIdx   int
	focus    focusArea

	// busy is set while a command runs; the attendance flow is only touched
	// by that command until its result arrives.
	busy bool

	// Current section data
	page       int
	dashboard  *view.DashboardView
	profile    []view.Field
	list       *view.Table
	courses    *view.CoursesView
	table      table.Model
	rowIDs     []string
	sectionErr string

	// Overlays on the content pane
	modal     *form
	modalKind modalKind
	confirm   *confirmation

	att attendanceState

	toast    toast
	toastSeq int

	showHelp bool
	debug    DebugPanel
	keys     KeyMap
	help     help.Model
}

// NewRootModel creates the root model. An authenticated session starts on
// the main screen, anything else on the login tab.
func NewRootModel(ctx context.Context, backend Backend, sess *session.Session, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	m := Model{
		ctx:      ctx,
		backend:  backend,
		sess:     sess,
		loader:   view.NewLoader(backend, sess, opts.PageSize),
		opts:     opts,
		requests: opts.Requests,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		debug:    NewDebugPanel(opts.Debug),
		table:    newTable(nil, nil),
	}
	if sess.IsAuthenticated() {
		m.enterMain()
	} else {
		m.showAuth(authLogin)
	}
	return m
}

// Init refreshes the stored profile when resuming a session
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, waitForRequest(m.requests)}
	if m.screen == screenMain {
		cmds = append(cmds, m.refreshProfileCmd())
	}
	return tea.Batch(cmds...)
}

// refreshProfileCmd re-fetches the signed-in user so role-scoped views see
// the current student or teacher profile
func (m Model) refreshProfileCmd() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		_, err := backend.Me(ctx)
		return profileRefreshedMsg{err: err}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.table.SetHeight(m.tableHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case toastExpiredMsg:
		if msg.seq == m.toast.seq {
			m.toast = toast{}
		}
		return m, nil

	case requestEventMsg:
		m.debug.AddRequest(msg.event)
		return m, waitForRequest(m.requests)

	case authDoneMsg:
		return m.handleAuthDone(msg)

	case profileRefreshedMsg:
		if msg.err != nil && api.IsSessionExpired(msg.err) {
			cmd := m.expire()
			return m, cmd
		}
		if m.screen != screenMain {
			return m, nil
		}
		m.sections = view.Sections(m.sess)
		cmd := m.openSection()
		return m, cmd

	case sectionLoadedMsg:
		return m.handleSectionLoaded(msg)

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			cmd := m.fail(msg.err)
			return m, cmd
		}
		cmd := tea.Batch(m.notify(toastSuccess, msg.notice), m.reload())
		return m, cmd
	}

	if next, cmd, ok := m.updateAttendanceMsg(msg); ok {
		return next, cmd
	}
	cmd := m.updateInputs(msg)
	return m, cmd
}

// updateInputs forwards non-key messages (cursor blinks) to the active form
func (m *Model) updateInputs(msg tea.Msg) tea.Cmd {
	switch {
	case m.screen == screenAuth:
		return m.auth.Update(msg)
	case m.modal != nil:
		return m.modal.Update(msg)
	case m.section() == view.SectionAttendance:
		if f := m.att.activeForm(); f != nil {
			return f.Update(msg)
		}
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Interrupt) {
		return m, tea.Quit
	}
	if m.showHelp {
		if key.Matches(msg, m.keys.Help, m.keys.Escape, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}
	if key.Matches(msg, m.keys.Debug) {
		m.debug.Toggle()
		return m, nil
	}
	if m.screen == screenAuth {
		return m.updateAuth(msg)
	}
	return m.updateMain(msg)
}

// typing reports whether plain letters belong to a text field
func (m Model) typing() bool {
	if m.screen == screenAuth || m.modal != nil {
		return true
	}
	return m.focus == focusContent && m.section() == view.SectionAttendance && m.att.activeForm() != nil
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		return m.updateConfirm(msg)
	}
	if m.modal != nil {
		return m.updateModal(msg)
	}
	if m.busy {
		return m, nil
	}

	if !m.typing() {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = true
			return m, nil
		case key.Matches(msg, m.keys.Logout):
			cmd := m.logout()
			return m, cmd
		}
	}

	if m.focus == focusNav {
		return m.updateNav(msg)
	}
	if m.section() == view.SectionAttendance {
		return m.updateAttendance(msg)
	}
	if key.Matches(msg, m.keys.Escape, m.keys.Tab) {
		m.focus = focusNav
		m.table.Blur()
		return m, nil
	}
	return m.updateSection(msg)
}

func (m Model) updateNav(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.navIdx > 0 {
			m.navIdx--
			cmd := m.openSection()
			return m, cmd
		}
	case key.Matches(msg, m.keys.Down):
		if m.navIdx < len(m.sections)-1 {
			m.navIdx++
			cmd := m.openSection()
			return m, cmd
		}
	case key.Matches(msg, m.keys.Enter, m.keys.Tab):
		m.focus = focusContent
		m.table.Focus()
		if m.section() == view.SectionAttendance {
			cmd := m.att.focusForm()
			return m, cmd
		}
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.openSection()
		return m, cmd
	}
	return m, nil
}

// section is the highlighted navigation entry
func (m Model) section() view.Section {
	if m.navIdx < 0 || m.navIdx >= len(m.sections) {
		return ""
	}
	return m.sections[m.navIdx]
}

// enterMain switches to the main screen with a fresh navigation state
func (m *Model) enterMain() {
	m.screen = screenMain
	m.sections = view.Sections(m.sess)
	m.navIdx = 0
	m.focus = focusNav
	m.clearSection()
	m.att = newAttendanceState(m.opts.RosterPageSize)
	m.flow = attendance.New(m.backend, attendance.WithCoursePageSize(m.opts.CoursePageSize))
}

func (m *Model) clearSection() {
	m.page = 1
	m.dashboard = nil
	m.profile = nil
	m.list = nil
	m.courses = nil
	m.rowIDs = nil
	m.sectionErr = ""
	m.modal = nil
	m.confirm = nil
	m.table.SetRows(nil)
}

// logout drops the session and returns to the login tab
func (m *Model) logout() tea.Cmd {
	if err := m.backend.Logout(); err != nil {
		return m.notify(toastError, "Logout failed: "+err.Error())
	}
	return tea.Batch(m.leaveMain(), m.notify(toastInfo, "Logged out"))
}

// expire handles a 401: the client has already cleared the session
func (m *Model) expire() tea.Cmd {
	return tea.Batch(m.leaveMain(), m.notify(toastError, sessionExpiredNotice))
}

func (m *Model) leaveMain() tea.Cmd {
	m.busy = false
	m.clearSection()
	m.sections = nil
	m.showHelp = false
	return m.showAuth(authLogin)
}

// fail reports an error, treating an expired session specially
func (m *Model) fail(err error) tea.Cmd {
	if api.IsSessionExpired(err) {
		return m.expire()
	}
	return m.notify(toastError, api.Message(err, ""))
}

// notify shows a toast that clears itself after toastDuration
func (m *Model) notify(kind toastKind, text string) tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	m.toast = toast{text: text, kind: kind, seq: seq}
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// View renders the model
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.helpView()
	}
	if m.screen == screenAuth {
		return m.authView()
	}
	return m.mainView()
}

func (m Model) mainView() string {
	header := m.renderHeader()
	// header (2 lines), toast (1 line), status bar (1 line)
	bodyHeight := max(m.height-4, 5)

	contentWidth := m.width - sidebarWidth - 4
	var debugPanel string
	if m.debug.IsEnabled() {
		contentWidth -= debugWidth + 2
		debugPanel = m.debug.Render(debugWidth, bodyHeight-2)
	}
	contentWidth = max(contentWidth, 20)

	sidebar := m.renderSidebar(bodyHeight - 2)
	content := m.renderContent(contentWidth, bodyHeight-2)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content, debugPanel)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.renderToast(),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	title := TitleStyle.Render("StudentTracker")
	var user string
	if u := m.sess.User(); u != nil {
		user = "  " + lipgloss.NewStyle().Foreground(ColorFgSecondary).Render(m.sess.UserName()) +
			" " + RoleBadgeStyle.Render(strings.ToUpper(string(u.Role)))
	}
	return lipgloss.NewStyle().
		PaddingLeft(1).
		Width(m.width).
		Render(title+user) + "\n"
}

func (m Model) renderSidebar(height int) string {
	var b strings.Builder
	b.WriteString(SidebarTitleStyle.Render("MENU"))
	b.WriteString("\n\n")
	for i, s := range m.sections {
		if i == m.navIdx {
			b.WriteString(NavActiveStyle.Render("❯ " + s.Title()))
		} else {
			b.WriteString(NavItemStyle.Render("  " + s.Title()))
		}
		b.WriteString("\n")
	}
	style := SidebarStyle
	if m.focus == focusNav {
		style = SidebarFocusedStyle
	}
	return style.Width(sidebarWidth).Height(height).Render(b.String())
}

func (m Model) renderContent(width, height int) string {
	var body string
	switch {
	case m.confirm != nil:
		body = m.confirmView()
	case m.modal != nil:
		body = ModalStyle.Render(m.modal.View() + "\n" + DimStyle.Render("enter save • esc cancel"))
	case m.section() == view.SectionAttendance:
		body = m.attendanceView(width - 4)
	default:
		body = m.sectionView()
	}
	style := ContentStyle
	if m.focus == focusContent {
		style = ContentFocusedStyle
	}
	return style.Width(width).Height(height).Render(body)
}

func (m Model) renderToast() string {
	if m.toast.text == "" {
		return ""
	}
	style := InfoStyle
	switch m.toast.kind {
	case toastSuccess:
		style = SuccessStyle
	case toastError:
		style = ErrorStyle
	}
	return lipgloss.NewStyle().PaddingLeft(1).Render(style.Render(m.toast.text))
}

func (m Model) renderStatusBar() string {
	status := StatusIdleStyle.Render("○ Ready")
	if m.busy {
		status = StatusBusyStyle.Render("● Loading")
	}
	return StatusBarStyle.Render(status + DimStyle.Render(" │ ") + m.help.View(m.keys))
}

func (m Model) helpView() string {
	var b strings.Builder
	b.WriteString(HelpTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, k := range group {
			h := k.Help()
			b.WriteString(HelpKeyStyle.Render(h.Key) + HelpDescStyle.Render(h.Desc) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(DimStyle.Render("Press ? or Esc to close"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, HelpStyle.Render(b.String()))
}

func (m Model) tableHeight() int {
	return max(m.height-14, 3)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
