package syncer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// State is the single persisted syncer record.
type State struct {
	LastSyncedBlock uint64 `json:"lastSyncedBlock"`
}

// StateStore persists the watermark to a JSON file. Writes go through a
// temp file and rename so readers never observe a torn record.
type StateStore struct {
	path string
}

// NewStateStore creates a store backed by the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Load reads the persisted state. A missing file is a fresh start and yields
// the zero state.
func (s *StateStore) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("read state file %s: %w", s.path, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse state file %s: %w", s.path, err)
	}
	return st, nil
}

// Save writes the state atomically.
func (s *StateStore) Save(st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".asp-state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename state file: %w", err)
	}
	return nil
}
