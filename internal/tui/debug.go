package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/studenttracker/client/internal/api"
)

// DebugPanel shows the most recent API round trips
type DebugPanel struct {
	enabled bool     // Whether debug panel is enabled
	lines   []string // Recent debug log lines
	buffer  int      // Max lines to keep in buffer
}

// NewDebugPanel creates a new debug panel
func NewDebugPanel(enabled bool) DebugPanel {
	return DebugPanel{
		enabled: enabled,
		buffer:  100,
	}
}

// requestEventMsg carries one finished API request from the client hook
type requestEventMsg struct {
	event api.RequestEvent
}

// IsEnabled returns whether debug mode is enabled
func (d *DebugPanel) IsEnabled() bool {
	return d.enabled
}

// Toggle flips the panel on or off
func (d *DebugPanel) Toggle() {
	d.enabled = !d.enabled
}

// AddLine adds a new debug line with timestamp
func (d *DebugPanel) AddLine(line string) {
	timestamp := time.Now().Format("15:04:05.000")
	d.lines = append(d.lines, timestamp+" "+line)
	if len(d.lines) > d.buffer {
		d.lines = d.lines[len(d.lines)-d.buffer:]
	}
}

// AddRequest records an API round trip. Lines are kept while the panel is
// hidden so opening it shows recent history.
func (d *DebugPanel) AddRequest(ev api.RequestEvent) {
	line := fmt.Sprintf("%s %s", ev.Method, ev.Endpoint)
	if ev.Status > 0 {
		line += fmt.Sprintf(" %d", ev.Status)
	}
	line += " " + ev.Duration.Round(time.Millisecond).String()
	if ev.Err != nil {
		line += " err=" + ev.Err.Error()
	}
	d.AddLine(line)
}

// Lines returns the current debug lines
func (d *DebugPanel) Lines() []string {
	return d.lines
}

// Render renders the debug panel
func (d *DebugPanel) Render(width, height int) string {
	if !d.enabled {
		return ""
	}

	title := lipgloss.NewStyle().
		Foreground(ColorYellow).
		Bold(true).
		Render("REQUESTS")

	contentHeight := max(height-4, 1)
	maxLen := max(width-4, 10)

	var lines []string
	start := max(len(d.lines)-contentHeight, 0)
	for _, line := range d.lines[start:] {
		lines = append(lines, truncate(line, maxLen))
	}
	for len(lines) < contentHeight {
		lines = append(lines, "")
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorYellow).
		Padding(0, 1).
		Render(title + "\n" + strings.Join(lines, "\n"))
}

// waitForRequest blocks on the request channel and delivers the next event.
// A closed channel ends the subscription.
func waitForRequest(events <-chan api.RequestEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return requestEventMsg{event: ev}
	}
}
