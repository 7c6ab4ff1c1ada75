package apitest

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/studenttracker/client/internal/model"
)

const dateLayout = "2006-01-02"

// parseDay accepts a bare date or an RFC 3339 timestamp and returns YYYY-MM-DD
func parseDay(v string) (string, error) {
	if t, err := time.Parse(dateLayout, v); err == nil {
		return t.Format(dateLayout), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return "", err
	}
	return t.Format(dateLayout), nil
}

// teacherCourse resolves the course in the URL and checks the caller teaches it
func (s *Server) teacherCourse(w http.ResponseWriter, r *http.Request, id string) (*model.Course, *model.Teacher) {
	t := s.teacherByUser(callerFrom(r.Context()).userID)
	if t == nil {
		respond(w, http.StatusNotFound, "Teacher profile not found", nil)
		return nil, nil
	}
	c := s.course(id)
	if c == nil {
		respond(w, http.StatusNotFound, "Course not found", nil)
		return nil, nil
	}
	if c.TeacherID != t.ID {
		respond(w, http.StatusForbidden, "Unauthorized to view attendance", nil)
		return nil, nil
	}
	return c, t
}

func (s *Server) enrolled(studentID, courseID string) bool {
	for _, e := range s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.IsActive {
			return true
		}
	}
	return false
}

func (s *Server) markAttendance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CourseID          string `json:"course_id"`
		AttendanceRecords []struct {
			StudentID      string       `json:"student_id"`
			Status         model.Status `json:"status"`
			AttendanceDate string       `json:"attendance_date"`
			Remarks        string       `json:"remarks"`
		} `json:"attendance_records"`
	}
	if !decodeBody(r, &in) || in.CourseID == "" || in.AttendanceRecords == nil {
		respond(w, http.StatusBadRequest, "Missing required fields", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, t := s.teacherCourse(w, r, in.CourseID)
	if c == nil {
		return
	}

	saved := []model.AttendanceRecord{}
	var errs []string
	for _, rec := range in.AttendanceRecords {
		if rec.StudentID == "" || rec.Status == "" {
			errs = append(errs, "Invalid record: missing fields")
			continue
		}
		st := s.student(rec.StudentID)
		if st == nil {
			errs = append(errs, fmt.Sprintf("Student %s not found", rec.StudentID))
			continue
		}
		if !s.enrolled(st.ID, c.ID) {
			errs = append(errs, fmt.Sprintf("Student %s not enrolled in this course", rec.StudentID))
			continue
		}
		switch rec.Status {
		case model.StatusPresent, model.StatusAbsent, model.StatusLate:
		default:
			errs = append(errs, fmt.Sprintf("Invalid status: %s", rec.Status))
			continue
		}
		day := s.now().Format(dateLayout)
		if rec.AttendanceDate != "" {
			d, err := parseDay(rec.AttendanceDate)
			if err != nil {
				errs = append(errs, fmt.Sprintf("Error processing record: invalid date %q", rec.AttendanceDate))
				continue
			}
			day = d
		}

		existing := s.attendanceOn(st.ID, c.ID, day)
		if existing == nil {
			existing = &model.AttendanceRecord{
				ID: s.newID(), StudentID: st.ID, StudentName: st.FullName(), CourseID: c.ID,
				CourseName: c.CourseName, TeacherID: t.ID, AttendanceDate: day,
			}
			s.attendance = append(s.attendance, existing)
		}
		existing.Status = rec.Status
		existing.Remarks = rec.Remarks
		saved = append(saved, *existing)
	}

	data := map[string]any{
		"marked_count": len(saved),
		"records":      saved,
	}
	status := http.StatusCreated
	if len(errs) > 0 {
		data["errors"] = errs
		status = http.StatusMultiStatus
	}
	respond(w, status, "Attendance marked", data)
}

func (s *Server) attendanceOn(studentID, courseID, day string) *model.AttendanceRecord {
	for _, a := range s.attendance {
		if a.StudentID == studentID && a.CourseID == courseID && a.AttendanceDate == day {
			return a
		}
	}
	return nil
}

func (s *Server) courseAttendance(w http.ResponseWriter, r *http.Request) {
	page, perPage := paging(r, 50)
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := s.teacherCourse(w, r, chi.URLParam(r, "id"))
	if c == nil {
		return
	}
	all := []model.AttendanceRecord{}
	for _, a := range s.attendance {
		if a.CourseID != c.ID {
			continue
		}
		if from := q.Get("from_date"); from != "" && a.AttendanceDate < from {
			continue
		}
		if to := q.Get("to_date"); to != "" && a.AttendanceDate > to {
			continue
		}
		all = append(all, *a)
	}
	start, end := window(len(all), page, perPage)
	data := pagination(len(all), page, perPage)
	data["records"] = all[start:end]
	respond(w, http.StatusOK, "Attendance records retrieved", data)
}

func (s *Server) courseRoster(w http.ResponseWriter, r *http.Request) {
	page, perPage := paging(r, 20)

	day := s.now().Format(dateLayout)
	if v := r.URL.Query().Get("date"); v != "" {
		if _, err := time.Parse(dateLayout, v); err != nil {
			respond(w, http.StatusBadRequest, "Invalid date format, expected YYYY-MM-DD", nil)
			return
		}
		day = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := s.teacherCourse(w, r, chi.URLParam(r, "id"))
	if c == nil {
		return
	}

	var students []*model.Student
	for _, e := range s.enrollments {
		if e.CourseID == c.ID && e.IsActive {
			students = append(students, s.student(e.StudentID))
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].RollNumber < students[j].RollNumber })

	start, end := window(len(students), page, perPage)
	rows := []model.RosterEntry{}
	for _, st := range students[start:end] {
		row := model.RosterEntry{StudentID: st.ID, RollNumber: st.RollNumber, Name: st.FullName(), Status: model.StatusNotMarked}
		if a := s.attendanceOn(st.ID, c.ID, day); a != nil {
			row.Status = a.Status
			row.AttendanceID = a.ID
		}
		rows = append(rows, row)
	}
	data := pagination(len(students), page, perPage)
	data["date"] = day
	data["students"] = rows
	respond(w, http.StatusOK, "Today attendance fetched", data)
}

func (s *Server) courseSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, _ := s.teacherCourse(w, r, chi.URLParam(r, "id"))
	if c == nil {
		return
	}
	rows := []model.SummaryRow{}
	for _, e := range s.enrollments {
		if e.CourseID != c.ID || !e.IsActive {
			continue
		}
		st := s.student(e.StudentID)
		row := model.SummaryRow{StudentID: st.ID, StudentName: st.FullName(), RollNumber: st.RollNumber}
		for _, a := range s.attendance {
			if a.StudentID != st.ID || a.CourseID != c.ID {
				continue
			}
			row.TotalClasses++
			switch a.Status {
			case model.StatusPresent:
				row.Present++
			case model.StatusAbsent:
				row.Absent++
			case model.StatusLate:
				row.Late++
			}
		}
		row.AttendancePercentage = percentage(row.Present, row.TotalClasses)
		rows = append(rows, row)
	}
	respond(w, http.StatusOK, "Attendance summary", rows)
}

// ownStudent resolves the student in the URL; students may only see themselves
func (s *Server) ownStudent(w http.ResponseWriter, r *http.Request) *model.Student {
	st := s.student(chi.URLParam(r, "id"))
	if st == nil {
		respond(w, http.StatusNotFound, "Student not found", nil)
		return nil
	}
	who := callerFrom(r.Context())
	if who.role == model.RoleStudent && st.UserID != who.userID {
		respond(w, http.StatusForbidden, "Unauthorized to view attendance", nil)
		return nil
	}
	return st
}

func (s *Server) studentAttendance(w http.ResponseWriter, r *http.Request) {
	page, perPage := paging(r, 50)
	courseID := r.URL.Query().Get("course_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ownStudent(w, r)
	if st == nil {
		return
	}
	all := []model.AttendanceRecord{}
	var stats model.StudentStatistics
	for _, a := range s.attendance {
		if a.StudentID != st.ID {
			continue
		}
		switch a.Status {
		case model.StatusPresent:
			stats.Present++
		case model.StatusAbsent:
			stats.Absent++
		case model.StatusLate:
			stats.Late++
		}
		if courseID == "" || a.CourseID == courseID {
			all = append(all, *a)
		}
	}
	stats.TotalClasses = stats.Present + stats.Absent + stats.Late
	stats.AttendancePercentage = percentage(stats.Present, stats.TotalClasses)

	start, end := window(len(all), page, perPage)
	data := pagination(len(all), page, perPage)
	data["records"] = all[start:end]
	data["statistics"] = stats
	respond(w, http.StatusOK, "Student attendance retrieved", data)
}

func (s *Server) studentMonthly(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	year, month := now.Year(), int(now.Month())
	if v, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil {
		year = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil {
		month = v
	}
	if month < 1 || month > 12 {
		respond(w, http.StatusBadRequest, "month must be in 1..12", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.ownStudent(w, r)
	if st == nil {
		return
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	numDays := first.AddDate(0, 1, -1).Day()
	m := model.Monthly{Year: year, Month: month}
	for d := 1; d <= numDays; d++ {
		day := first.AddDate(0, 0, d-1).Format(dateLayout)
		status := model.StatusNotMarked
		for _, a := range s.attendance {
			if a.StudentID == st.ID && a.AttendanceDate == day {
				status = a.Status
				break
			}
		}
		m.Days = append(m.Days, d)
		m.Values = append(m.Values, status.Value())
		m.Raw = append(m.Raw, model.MonthlyDay{Date: day, Status: status})
	}
	respond(w, http.StatusOK, "Monthly attendance", m)
}

// ownRecord resolves the record in the URL and checks the caller recorded it
func (s *Server) ownRecord(w http.ResponseWriter, r *http.Request, verb string) (int, *model.AttendanceRecord) {
	id := chi.URLParam(r, "id")
	for i, a := range s.attendance {
		if a.ID != id {
			continue
		}
		t := s.teacherByUser(callerFrom(r.Context()).userID)
		if t == nil || a.TeacherID != t.ID {
			respond(w, http.StatusForbidden, "Unauthorized to "+verb+" this record", nil)
			return -1, nil
		}
		return i, a
	}
	respond(w, http.StatusNotFound, "Attendance record not found", nil)
	return -1, nil
}

func (s *Server) updateAttendance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status  *model.Status `json:"status"`
		Remarks *string       `json:"remarks"`
	}
	if !decodeBody(r, &in) {
		respond(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, a := s.ownRecord(w, r, "update")
	if a == nil {
		return
	}
	if in.Status != nil {
		switch *in.Status {
		case model.StatusPresent, model.StatusAbsent, model.StatusLate:
			a.Status = *in.Status
		default:
			respond(w, http.StatusBadRequest, "Invalid status", nil)
			return
		}
	}
	if in.Remarks != nil {
		a.Remarks = *in.Remarks
	}
	respond(w, http.StatusOK, "Attendance updated", a)
}

func (s *Server) deleteAttendance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, a := s.ownRecord(w, r, "delete")
	if a == nil {
		return
	}
	s.attendance = append(s.attendance[:i], s.attendance[i+1:]...)
	respond(w, http.StatusOK, "Attendance record deleted", nil)
}

func percentage(present, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*100*100) / 100
}
