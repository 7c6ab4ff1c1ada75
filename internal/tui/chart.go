package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/studenttracker/client/internal/model"
)

// chartHeight is the number of terminal rows of a full (present) bar
const chartHeight = 4

// barStyle colors a day by its chart value: 1 green, 0.5 yellow, otherwise red
func barStyle(v float64) lipgloss.Style {
	switch {
	case v >= 1:
		return SuccessStyle
	case v >= 0.5:
		return WarningStyle
	default:
		return ErrorStyle
	}
}

// renderMonthlyChart draws one column per day of the month. Present days
// fill the column, late days half of it, absent days leave a red baseline
// and unmarked days a dot.
func renderMonthlyChart(mo *model.Monthly) string {
	if mo == nil || len(mo.Days) == 0 {
		return DimStyle.Render("No attendance data for this month")
	}

	var lines []string
	title := fmt.Sprintf("%s %d", time.Month(mo.Month).String(), mo.Year)
	lines = append(lines, SectionTitleStyle.UnsetMarginBottom().Render(title))

	for level := chartHeight; level >= 1; level-- {
		var b strings.Builder
		for i, d := range mo.Days {
			var v float64
			if i < len(mo.Values) {
				v = mo.Values[i]
			}
			cell := "  "
			switch {
			case v*chartHeight >= float64(level):
				cell = barStyle(v).Render("██")
			case level == 1 && mo.StatusOn(d) == model.StatusAbsent:
				cell = ErrorStyle.Render("▁▁")
			case level == 1 && mo.StatusOn(d) == model.StatusNotMarked:
				cell = DimStyle.Render(" ·")
			}
			b.WriteString(cell)
			b.WriteString(" ")
		}
		lines = append(lines, b.String())
	}

	var days strings.Builder
	for _, d := range mo.Days {
		fmt.Fprintf(&days, "%2d ", d)
	}
	lines = append(lines, DimStyle.Render(days.String()))

	var present, late, absent int
	for _, r := range mo.Raw {
		switch r.Status {
		case model.StatusPresent:
			present++
		case model.StatusLate:
			late++
		case model.StatusAbsent:
			absent++
		}
	}
	lines = append(lines, "",
		SuccessStyle.Render(fmt.Sprintf("██ Present %d", present))+"  "+
			WarningStyle.Render(fmt.Sprintf("██ Late %d", late))+"  "+
			ErrorStyle.Render(fmt.Sprintf("▁▁ Absent %d", absent)))

	return strings.Join(lines, "\n")
}
