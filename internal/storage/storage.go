// Package storage persists small string values between runs of the client.
// It plays the role browser local storage plays for a web client.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Kind selects a Store implementation
type Kind string

const (
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
	KindMemory Kind = "memory"
)

// Store is a string key/value store
type Store interface {
	// Get returns the value for key and whether it was present
	Get(key string) (string, bool, error)

	// Set stores value under key, replacing any previous value
	Set(key, value string) error

	// Remove deletes the given keys; missing keys are not an error
	Remove(keys ...string) error

	// Close releases any underlying resources
	Close() error
}

// Open creates the store of the given kind at path
func Open(kind Kind, path string) (Store, error) {
	switch kind {
	case KindFile:
		return NewFileStore(path)
	case KindSQLite:
		return NewSQLiteStore(path)
	case KindMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage kind: %s", kind)
	}
}

// DefaultPath returns the default state location for kind (~/.studenttracker/state.*)
func DefaultPath(kind Kind) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	name := "state.json"
	if kind == KindSQLite {
		name = "state.db"
	}
	return filepath.Join(home, ".studenttracker", name), nil
}
