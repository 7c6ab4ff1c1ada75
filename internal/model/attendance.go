package model

// Status represents the attendance status of a student on a given day
type Status string

const (
	StatusNotMarked Status = "not_marked"
	StatusPresent   Status = "present"
	StatusAbsent    Status = "absent"
	StatusLate      Status = "late"
)

// Statuses returns every status in the order a roster row cycles through them
func Statuses() []Status {
	return []Status{StatusNotMarked, StatusPresent, StatusAbsent, StatusLate}
}

// Valid reports whether s is one of the four known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusNotMarked, StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// Next returns the status following s in the cycle order
func (s Status) Next() Status {
	all := Statuses()
	for i, st := range all {
		if st == s {
			return all[(i+1)%len(all)]
		}
	}
	return StatusNotMarked
}

// Value is the chart value of a status: present=1, late=0.5, everything else 0
func (s Status) Value() float64 {
	switch s {
	case StatusPresent:
		return 1
	case StatusLate:
		return 0.5
	default:
		return 0
	}
}

// StatusIcon returns the icon for the status
func (s Status) StatusIcon() string {
	switch s {
	case StatusPresent:
		return "✓"
	case StatusAbsent:
		return "✗"
	case StatusLate:
		return "◐"
	default:
		return "○"
	}
}

// AttendanceRecord is a stored attendance entry
type AttendanceRecord struct {
	ID             string `json:"id"`
	StudentID      string `json:"student_id"`
	StudentName    string `json:"student_name"`
	CourseID       string `json:"course_id"`
	CourseName     string `json:"course_name"`
	TeacherID      string `json:"teacher_id"`
	AttendanceDate string `json:"attendance_date"`
	Status         Status `json:"status"`
	Remarks        string `json:"remarks,omitempty"`
}

// RosterEntry is one row of /attendance/course/:id/today
type RosterEntry struct {
	StudentID    string `json:"student_id"`
	RollNumber   string `json:"roll_number"`
	Name         string `json:"name"`
	Status       Status `json:"status"`
	AttendanceID string `json:"attendance_id,omitempty"`
}

// SummaryRow is one student's aggregate attendance in a course
type SummaryRow struct {
	StudentID            string  `json:"student_id"`
	StudentName          string  `json:"student_name"`
	RollNumber           string  `json:"roll_number"`
	TotalClasses         int     `json:"total_classes"`
	Present              int     `json:"present"`
	Absent               int     `json:"absent"`
	Late                 int     `json:"late"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// LowAttendanceThreshold is the percentage below which a row is flagged
const LowAttendanceThreshold = 75.0

// Low reports whether the row is below the attendance threshold
func (r SummaryRow) Low() bool {
	return r.AttendancePercentage < LowAttendanceThreshold
}

// StudentStatistics are the aggregates returned with a student's records
type StudentStatistics struct {
	TotalClasses         int     `json:"total_classes"`
	Present              int     `json:"present"`
	Absent               int     `json:"absent"`
	Late                 int     `json:"late"`
	AttendancePercentage float64 `json:"attendance_percentage"`
}

// Monthly is a per-day attendance series for one student and month
type Monthly struct {
	Year   int          `json:"year"`
	Month  int          `json:"month"`
	Days   []int        `json:"days"`
	Values []float64    `json:"values"`
	Raw    []MonthlyDay `json:"raw"`
}

// MonthlyDay is the raw status of one day in a Monthly series
type MonthlyDay struct {
	Date   string `json:"date"`
	Status Status `json:"status"`
}

// StatusOn returns the raw status for day d (1-based), not_marked when absent
func (m Monthly) StatusOn(d int) Status {
	if d < 1 || d > len(m.Raw) {
		return StatusNotMarked
	}
	return m.Raw[d-1].Status
}
