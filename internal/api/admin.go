package api

import (
	"context"
	"net/http"

	"github.com/studenttracker/client/internal/model"
)

// ListUsers returns one page of users, optionally filtered by role
func (c *Client) ListUsers(ctx context.Context, page, perPage int, role model.Role) (*UserPage, error) {
	var p UserPage
	endpoint := "/admin/users" + pageQuery(page, perPage, map[string]string{"role": string(role)})
	if _, err := c.call(ctx, http.MethodGet, endpoint, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if _, err := c.call(ctx, http.MethodGet, "/admin/users/"+escape(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*model.User, error) {
	var u model.User
	if _, err := c.call(ctx, http.MethodPut, "/admin/users/"+escape(id), upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUser deactivates a user
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/admin/users/"+escape(id), nil, nil)
	return err
}

func (c *Client) ListStudents(ctx context.Context, page, perPage int) (*StudentPage, error) {
	var p StudentPage
	if _, err := c.call(ctx, http.MethodGet, "/admin/students"+pageQuery(page, perPage, nil), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetStudent(ctx context.Context, id string) (*model.Student, error) {
	var s model.Student
	if _, err := c.call(ctx, http.MethodGet, "/admin/students/"+escape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) UpdateStudent(ctx context.Context, id string, upd StudentUpdate) (*model.Student, error) {
	var s model.Student
	if _, err := c.call(ctx, http.MethodPut, "/admin/students/"+escape(id), upd, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteStudent deactivates a student profile
func (c *Client) DeleteStudent(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/admin/students/"+escape(id), nil, nil)
	return err
}

func (c *Client) ListTeachers(ctx context.Context, page, perPage int) (*TeacherPage, error) {
	var p TeacherPage
	if _, err := c.call(ctx, http.MethodGet, "/admin/teachers"+pageQuery(page, perPage, nil), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetTeacher(ctx context.Context, id string) (*model.Teacher, error) {
	var t model.Teacher
	if _, err := c.call(ctx, http.MethodGet, "/admin/teachers/"+escape(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *Client) UpdateTeacher(ctx context.Context, id string, upd TeacherUpdate) (*model.Teacher, error) {
	var t model.Teacher
	if _, err := c.call(ctx, http.MethodPut, "/admin/teachers/"+escape(id), upd, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTeacher deactivates a teacher profile
func (c *Client) DeleteTeacher(ctx context.Context, id string) error {
	_, err := c.call(ctx, http.MethodDelete, "/admin/teachers/"+escape(id), nil, nil)
	return err
}

// Dashboard returns the admin counters
func (c *Client) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	var s model.DashboardStats
	if _, err := c.call(ctx, http.MethodGet, "/admin/dashboard", nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
