// Package session holds the signed-in identity and its tokens, mirrored into a storage.Store.
package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/storage"
)

// Persisted keys
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyCurrentUser  = "currentUser"
)

// Session is the client-held identity and token pair.
// It is safe for concurrent use.
type Session struct {
	mu           sync.RWMutex
	store        storage.Store
	accessToken  string
	refreshToken string
	user         *model.User
}

// New creates an empty session backed by store
func New(store storage.Store) *Session {
	return &Session{store: store}
}

// Load restores a session from store. A stored user that no longer parses is treated as absent.
func Load(store storage.Store) (*Session, error) {
	s := New(store)

	access, _, err := store.Get(KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("load access token: %w", err)
	}
	refresh, _, err := store.Get(KeyRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	raw, ok, err := store.Get(KeyCurrentUser)
	if err != nil {
		return nil, fmt.Errorf("load current user: %w", err)
	}

	s.accessToken = access
	s.refreshToken = refresh
	if ok && raw != "" && raw != "null" {
		var u model.User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			s.user = &u
		}
	}
	return s, nil
}

// SetAuth overwrites tokens and user, in memory and in the store
func (s *Session) SetAuth(access, refresh string, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = cloneUser(user)
	if err := s.setTokens(access, refresh); err != nil {
		return err
	}
	return s.persistUser()
}

// SetTokens replaces both tokens and keeps the current user
func (s *Session) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTokens(access, refresh)
}

// SetUser replaces the current user and keeps the tokens
func (s *Session) SetUser(user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = cloneUser(user)
	return s.persistUser()
}

// ClearAuth removes all three persisted keys and the in-memory state
func (s *Session) ClearAuth() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accessToken = ""
	s.refreshToken = ""
	s.user = nil

	if err := s.store.Remove(KeyAccessToken, KeyRefreshToken, KeyCurrentUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether both an access token and a user are held
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != "" && s.user != nil
}

// HasRole reports whether the current user's role is any of roles.
// It is false when there is no user.
func (s *Session) HasRole(roles ...model.Role) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return false
	}
	for _, r := range roles {
		if s.user.Role == r {
			return true
		}
	}
	return false
}

// User returns a copy of the current user, or nil
func (s *Session) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneUser(s.user)
}

// UserName returns the current user's full name, or "" when signed out
func (s *Session) UserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.FullName()
}

// AccessToken returns the bearer token, or ""
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the refresh token, or ""
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// TokenExpiry returns the exp claim of the access token without verifying its signature.
// Expiry is still only acted on when the backend answers 401.
func (s *Session) TokenExpiry() (time.Time, bool) {
	token := s.AccessToken()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// setTokens updates and persists both tokens; caller holds mu
func (s *Session) setTokens(access, refresh string) error {
	s.accessToken = access
	s.refreshToken = refresh

	if err := s.store.Set(KeyAccessToken, access); err != nil {
		return fmt.Errorf("persist access token: %w", err)
	}
	if err := s.store.Set(KeyRefreshToken, refresh); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	return nil
}

// persistUser writes the user key; caller holds mu
func (s *Session) persistUser() error {
	if s.user == nil {
		if err := s.store.Remove(KeyCurrentUser); err != nil {
			return fmt.Errorf("persist user: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(s.user)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.store.Set(KeyCurrentUser, string(data)); err != nil {
		return fmt.Errorf("persist user: %w", err)
	}
	return nil
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Student != nil {
		st := *u.Student
		c.Student = &st
	}
	if u.Teacher != nil {
		tc := *u.Teacher
		c.Teacher = &tc
	}
	return &c
}
