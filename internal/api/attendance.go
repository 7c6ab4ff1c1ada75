package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/studenttracker/client/internal/model"
)

// MarkAttendance submits a batch of records for one course. A partially
// accepted batch returns a result whose Errors lists the rejected records.
func (c *Client) MarkAttendance(ctx context.Context, req MarkRequest) (*MarkResult, error) {
	if req.CourseID == "" {
		return nil, errors.New("course id is required")
	}
	if len(req.AttendanceRecords) == 0 {
		return nil, errors.New("no attendance records to submit")
	}
	var res MarkResult
	if _, err := c.call(ctx, http.MethodPost, "/attendance", req, &res); err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		c.logger.Warn("attendance partially saved", "course_id", req.CourseID, "marked", res.MarkedCount, "rejected", len(res.Errors))
	}
	return &res, nil
}

// CourseAttendance returns stored records of a course, optionally bounded by
// from and to (YYYY-MM-DD, inclusive).
func (c *Client) CourseAttendance(ctx context.Context, courseID string, page, perPage int, from, to string) (*RecordPage, error) {
	var p RecordPage
	endpoint := "/attendance/course/" + escape(courseID) + pageQuery(page, perPage, map[string]string{
		"from_date": from,
		"to_date":   to,
	})
	if _, err := c.call(ctx, http.MethodGet, endpoint, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CourseRoster returns one page of the enrolled students of a course with
// their status on date (YYYY-MM-DD, empty for today).
func (c *Client) CourseRoster(ctx context.Context, courseID, date string, page, perPage int) (*Roster, error) {
	var r Roster
	endpoint := "/attendance/course/" + escape(courseID) + "/today" + pageQuery(page, perPage, map[string]string{"date": date})
	if _, err := c.call(ctx, http.MethodGet, endpoint, nil, &r); err != nil {
		return nil, err
	}
	for i := range r.Students {
		if r.Students[i].Status == "" {
			r.Students[i].Status = model.StatusNotMarked
		}
	}
	return &r, nil
}

// StudentAttendance returns a student's records and overall statistics,
// optionally limited to one course.
func (c *Client) StudentAttendance(ctx context.Context, studentID string, page, perPage int, courseID string) (*StudentAttendance, error) {
	var sa StudentAttendance
	endpoint := "/attendance/student/" + escape(studentID) + pageQuery(page, perPage, map[string]string{"course_id": courseID})
	if _, err := c.call(ctx, http.MethodGet, endpoint, nil, &sa); err != nil {
		return nil, err
	}
	return &sa, nil
}

// StudentMonthly returns a student's per-day series for one month
func (c *Client) StudentMonthly(ctx context.Context, studentID string, year, month int) (*model.Monthly, error) {
	if month < 1 || month > 12 {
		return nil, errors.New("month must be between 1 and 12")
	}
	var m model.Monthly
	endpoint := "/attendance/student/" + escape(studentID) + "/monthly" + pageQuery(0, 0, map[string]string{
		"year":  strconv.Itoa(year),
		"month": strconv.Itoa(month),
	})
	if _, err := c.call(ctx, http.MethodGet, endpoint, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) UpdateAttendance(ctx context.Context, id string, upd AttendanceUpdate) (*model.AttendanceRecord, error) {
	if upd.Status != nil && (!upd.Status.Valid() || *upd.Status == model.StatusNotMarked) {
		return nil, errors.New("invalid status")
	}
	var rec model.AttendanceRecord
	if _, err := c.call(ctx, http.MethodPut, "/attendance/"+escape(id), upd, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) DeleteAttendance(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/attendance/"+escape(id), nil, nil)
	return err
}

// AttendanceSummary returns per-student aggregates for a course
func (c *Client) AttendanceSummary(ctx context.Context, courseID string) ([]model.SummaryRow, error) {
	var rows []model.SummaryRow
	if _, err := c.call(ctx, http.MethodGet, "/attendance/course/"+escape(courseID)+"/summary", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
