package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func openAll(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fileStore, err := NewFileStore(filepath.Join(dir, "state.json"))
	if err != nil {
		t.Fatalf("failed to open file store: %v", err)
	}
	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"file":   fileStore,
		"sqlite": sqliteStore,
		"memory": NewMemoryStore(),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, s := range openAll(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get("accessToken"); err != nil || ok {
				t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
			}

			if err := s.Set("accessToken", "a"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := s.Set("accessToken", "b"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			v, ok, err := s.Get("accessToken")
			if err != nil || !ok || v != "b" {
				t.Fatalf("got %q ok=%v err=%v, want %q", v, ok, err, "b")
			}

			if err := s.Set("refreshToken", "r"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := s.Remove("accessToken", "refreshToken", "never-set"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, k := range []string{"accessToken", "refreshToken"} {
				if _, ok, _ := s.Get(k); ok {
					t.Errorf("expected %s to be removed", k)
				}
			}
		})
	}
}

func TestFileStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set("currentUser", `{"id":"u1"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("state file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("state file mode = %o, want 600", perm)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok, _ := reopened.Get("currentUser")
	if !ok || v != `{"id":"u1"}` {
		t.Errorf("got %q ok=%v after reopen", v, ok)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path); err == nil {
		t.Fatal("expected error for corrupt state file")
	}
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Set("refreshToken", "r1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer reopened.Close()
	v, ok, err := reopened.Get("refreshToken")
	if err != nil || !ok || v != "r1" {
		t.Errorf("got %q ok=%v err=%v", v, ok, err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		kind    Kind
		path    string
		wantErr bool
	}{
		{KindFile, filepath.Join(dir, "a.json"), false},
		{KindSQLite, filepath.Join(dir, "a.db"), false},
		{KindMemory, "", false},
		{KindFile, "", true},
		{Kind("redis"), "x", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.path, func(t *testing.T) {
			s, err := Open(tt.kind, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s.Close()
		})
	}
}
