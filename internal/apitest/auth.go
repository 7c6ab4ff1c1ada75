package apitest

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/studenttracker/client/internal/model"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

type claims struct {
	Role model.Role `json:"role"`
	Type string     `json:"type"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// caller is the authenticated identity of a request
type caller struct {
	userID string
	role   model.Role
}

func callerFrom(ctx context.Context) caller {
	c, _ := ctx.Value(ctxKey{}).(caller)
	return c
}

// IssueToken signs a token for userID the same way login does
func (s *Server) IssueToken(userID string, role model.Role, kind string, ttl time.Duration) string {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		Type: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func (s *Server) tokens(u model.User) map[string]string {
	return map[string]string{
		"access_token":  s.IssueToken(u.ID, u.Role, tokenAccess, time.Hour),
		"refresh_token": s.IssueToken(u.ID, u.Role, tokenRefresh, 30*24*time.Hour),
	}
}

// authenticate validates the bearer token and requires it to be of kind
func (s *Server) authenticate(kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			forced := s.force401
			s.mu.Unlock()
			if forced {
				respond(w, http.StatusUnauthorized, "Token has expired", nil)
				return
			}

			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				respond(w, http.StatusUnauthorized, "Authorization header is missing", nil)
				return
			}
			var c claims
			_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
				return s.secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, jwt.ErrTokenExpired) {
					msg = "Token has expired"
				}
				respond(w, http.StatusUnauthorized, msg, nil)
				return
			}
			if c.Type != kind {
				respond(w, http.StatusUnauthorized, "Invalid token", nil)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, caller{userID: c.Subject, role: c.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requireRole(role model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if callerFrom(r.Context()).role != role {
				respond(w, http.StatusForbidden, strings.ToUpper(string(role[:1]))+string(role[1:])+" access required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email          string     `json:"email"`
		Password       string     `json:"password"`
		FirstName      string     `json:"first_name"`
		LastName       string     `json:"last_name"`
		Role           model.Role `json:"role"`
		RollNumber     string     `json:"roll_number"`
		EmployeeID     string     `json:"employee_id"`
		Specialization string     `json:"specialization"`
	}
	if !decodeBody(r, &in) || in.Email == "" || in.Password == "" || in.FirstName == "" || in.LastName == "" || in.Role == "" {
		respond(w, http.StatusBadRequest, "Missing required fields", nil)
		return
	}
	if !strings.Contains(in.Email, "@") {
		respond(w, http.StatusBadRequest, "Invalid email format", nil)
		return
	}
	if !in.Role.Valid() {
		respond(w, http.StatusBadRequest, "Invalid role", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByEmail(in.Email) != nil {
		respond(w, http.StatusConflict, "Email already registered", nil)
		return
	}

	ts := s.stamp()
	u := &userRecord{
		User: model.User{ID: s.newID(), Email: in.Email, FirstName: in.FirstName, LastName: in.LastName, Role: in.Role, IsActive: true, CreatedAt: ts},
		hash: mustHash(in.Password),
	}
	switch in.Role {
	case model.RoleStudent:
		if in.RollNumber == "" {
			respond(w, http.StatusBadRequest, "Roll number required for student", nil)
			return
		}
		s.students = append(s.students, &model.Student{
			ID: s.newID(), UserID: u.ID, RollNumber: in.RollNumber, FirstName: in.FirstName, LastName: in.LastName,
			Email: in.Email, EnrollmentDate: ts[:10], IsActive: true, CreatedAt: ts,
		})
	case model.RoleTeacher:
		if in.EmployeeID == "" {
			respond(w, http.StatusBadRequest, "Employee ID required for teacher", nil)
			return
		}
		s.teachers = append(s.teachers, &model.Teacher{
			ID: s.newID(), UserID: u.ID, EmployeeID: in.EmployeeID, FirstName: in.FirstName, LastName: in.LastName,
			Email: in.Email, Specialization: in.Specialization, JoiningDate: ts[:10], IsActive: true, CreatedAt: ts,
		})
	}
	s.users = append(s.users, u)

	respond(w, http.StatusCreated, "User registered successfully", map[string]any{
		"user":   u.User,
		"tokens": s.tokens(u.User),
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(r, &in) || in.Email == "" || in.Password == "" {
		respond(w, http.StatusBadRequest, "Email and password required", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByEmail(in.Email)
	if u == nil || bcrypt.CompareHashAndPassword(u.hash, []byte(in.Password)) != nil {
		respond(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}
	if !u.IsActive {
		respond(w, http.StatusForbidden, "User account is inactive", nil)
		return
	}
	respond(w, http.StatusOK, "Login successful", map[string]any{
		"user":   u.User,
		"tokens": s.tokens(u.User),
	})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(callerFrom(r.Context()).userID)
	if u == nil {
		respond(w, http.StatusNotFound, "User not found", nil)
		return
	}
	respond(w, http.StatusOK, "Current user", s.hydrate(u.User))
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(callerFrom(r.Context()).userID)
	if u == nil {
		respond(w, http.StatusNotFound, "User not found", nil)
		return
	}
	respond(w, http.StatusOK, "Token refreshed", s.tokens(u.User))
}

// hydrate attaches the role profile to a user
func (s *Server) hydrate(u model.User) model.User {
	switch u.Role {
	case model.RoleStudent:
		if st := s.studentByUser(u.ID); st != nil {
			cp := *st
			u.Student = &cp
		}
	case model.RoleTeacher:
		if t := s.teacherByUser(u.ID); t != nil {
			cp := *t
			u.Teacher = &cp
		}
	}
	return u
}

func (s *Server) user(id string) *userRecord {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) userByEmail(email string) *userRecord {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func (s *Server) student(id string) *model.Student {
	for _, st := range s.students {
		if st.ID == id {
			return st
		}
	}
	return nil
}

func (s *Server) studentByUser(userID string) *model.Student {
	for _, st := range s.students {
		if st.UserID == userID {
			return st
		}
	}
	return nil
}

func (s *Server) teacher(id string) *model.Teacher {
	for _, t := range s.teachers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (s *Server) teacherByUser(userID string) *model.Teacher {
	for _, t := range s.teachers {
		if t.UserID == userID {
			return t
		}
	}
	return nil
}

func (s *Server) course(id string) *model.Course {
	for _, c := range s.courses {
		if c.ID == id {
			return c
		}
	}
	return nil
}
