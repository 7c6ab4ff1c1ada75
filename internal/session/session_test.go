package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/studenttracker/client/internal/model"
	"github.com/studenttracker/client/internal/storage"
)

func TestSetAuthPersistsAllKeys(t *testing.T) {
	store := storage.NewMemoryStore()
	s := New(store)

	user := &model.User{ID: "u1", FirstName: "Ada", LastName: "Admin", Role: model.RoleAdmin}
	if err := s.SetAuth("a", "r", user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !s.IsAuthenticated() {
		t.Error("expected session to be authenticated")
	}
	if !s.HasRole(model.RoleAdmin) {
		t.Error("expected admin role")
	}

	for key, want := range map[string]string{KeyAccessToken: "a", KeyRefreshToken: "r"} {
		got, ok, _ := store.Get(key)
		if !ok || got != want {
			t.Errorf("store[%s] = %q ok=%v, want %q", key, got, ok, want)
		}
	}
	if _, ok, _ := store.Get(KeyCurrentUser); !ok {
		t.Error("expected currentUser to be persisted")
	}

	// Mutating the caller's copy must not leak into the session
	user.Role = model.RoleStudent
	if !s.HasRole(model.RoleAdmin) {
		t.Error("session user changed through caller pointer")
	}
}

func TestLoadRestoresSession(t *testing.T) {
	store := storage.NewMemoryStore()
	first := New(store)
	if err := first.SetAuth("a", "r", &model.User{ID: "u1", FirstName: "Tom", LastName: "Teach", Role: model.RoleTeacher}); err != nil {
		t.Fatal(err)
	}

	s, err := Load(store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsAuthenticated() {
		t.Fatal("expected restored session to be authenticated")
	}
	if s.UserName() != "Tom Teach" {
		t.Errorf("UserName() = %q", s.UserName())
	}
	if s.RefreshToken() != "r" {
		t.Errorf("RefreshToken() = %q", s.RefreshToken())
	}
}

func TestLoadIgnoresCorruptUser(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Set(KeyAccessToken, "a")
	store.Set(KeyCurrentUser, "{broken")

	s, err := Load(store)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsAuthenticated() {
		t.Error("a token without a user must not count as authenticated")
	}
	if s.User() != nil {
		t.Error("expected nil user")
	}
}

func TestClearAuth(t *testing.T) {
	store := storage.NewMemoryStore()
	s := New(store)
	s.SetAuth("a", "r", &model.User{ID: "u1", Role: model.RoleStudent})

	if err := s.ClearAuth(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsAuthenticated() || s.AccessToken() != "" || s.RefreshToken() != "" || s.User() != nil {
		t.Error("expected in-memory state to be cleared")
	}
	if store.Len() != 0 {
		t.Errorf("expected store to be empty, has %d keys", store.Len())
	}
}

func TestHasRole(t *testing.T) {
	tests := []struct {
		name  string
		user  *model.User
		roles []model.Role
		want  bool
	}{
		{"no session", nil, []model.Role{model.RoleAdmin}, false},
		{"exact match", &model.User{Role: model.RoleAdmin}, []model.Role{model.RoleAdmin}, true},
		{"mismatch", &model.User{Role: model.RoleStudent}, []model.Role{model.RoleAdmin}, false},
		{"included in list", &model.User{Role: model.RoleTeacher}, []model.Role{model.RoleAdmin, model.RoleTeacher}, true},
		{"not in list", &model.User{Role: model.RoleStudent}, []model.Role{model.RoleAdmin, model.RoleTeacher}, false},
		{"empty list", &model.User{Role: model.RoleStudent}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(storage.NewMemoryStore())
			if tt.user != nil {
				s.SetAuth("a", "r", tt.user)
			}
			if got := s.HasRole(tt.roles...); got != tt.want {
				t.Errorf("HasRole(%v) = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}

func TestSetTokensKeepsUser(t *testing.T) {
	s := New(storage.NewMemoryStore())
	s.SetAuth("a1", "r1", &model.User{ID: "u1", Role: model.RoleStudent})

	if err := s.SetTokens("a2", "r2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.AccessToken() != "a2" || s.RefreshToken() != "r2" {
		t.Errorf("tokens not replaced: %q %q", s.AccessToken(), s.RefreshToken())
	}
	if u := s.User(); u == nil || u.ID != "u1" {
		t.Errorf("user lost after SetTokens: %+v", u)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	s := New(storage.NewMemoryStore())
	if _, ok := s.TokenExpiry(); ok {
		t.Error("expected no expiry without a token")
	}

	s.SetAuth(token, "r", &model.User{ID: "u1"})
	got, ok := s.TokenExpiry()
	if !ok {
		t.Fatal("expected expiry to be decoded")
	}
	if !got.Equal(exp) {
		t.Errorf("TokenExpiry() = %v, want %v", got, exp)
	}

	s.SetTokens("not-a-jwt", "r")
	if _, ok := s.TokenExpiry(); ok {
		t.Error("expected opaque token to have no expiry")
	}
}
