package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/studenttracker/client/internal/model"
)

// ListCourses returns one page of courses, optionally only those of teacherID
func (c *Client) ListCourses(ctx context.Context, page, perPage int, teacherID string) (*CoursePage, error) {
	var p CoursePage
	endpoint := "/courses" + pageQuery(page, perPage, map[string]string{"teacher_id": teacherID})
	if _, err := c.call(ctx, http.MethodGet, endpoint, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetCourse returns a course with its enrolled students
func (c *Client) GetCourse(ctx context.Context, id string) (*model.CourseDetail, error) {
	var d model.CourseDetail
	if _, err := c.call(ctx, http.MethodGet, "/courses/"+escape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateCourse creates a course taught by the signed-in teacher
func (c *Client) CreateCourse(ctx context.Context, in CourseInput) (*model.Course, error) {
	if in.CourseCode == "" || in.CourseName == "" {
		return nil, errors.New("course code and name are required")
	}
	var course model.Course
	if _, err := c.call(ctx, http.MethodPost, "/courses", in, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) UpdateCourse(ctx context.Context, id string, upd CourseUpdate) (*model.Course, error) {
	var course model.Course
	if _, err := c.call(ctx, http.MethodPut, "/courses/"+escape(id), upd, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// DeleteCourse deactivates a course
func (c *Client) DeleteCourse(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/courses/"+escape(id), nil, nil)
	return err
}

// Enroll enrolls the signed-in student in a course
func (c *Client) Enroll(ctx context.Context, courseID string) (*model.Enrollment, error) {
	var e model.Enrollment
	if _, err := c.call(ctx, http.MethodPost, "/courses/"+escape(courseID)+"/enroll", nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Unenroll removes the signed-in student from a course
func (c *Client) Unenroll(ctx context.Context, courseID string) error {
	_, err := c.call(ctx, http.MethodPost, "/courses/"+escape(courseID)+"/unenroll", nil, nil)
	return err
}
