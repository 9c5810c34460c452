package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// StorageKey is the fixed slot name the state tree is persisted under. The
// shape carries no version field; changing it means changing this key to
// force a clean reset.
const StorageKey = "chat-playground-storage-v2"

// Persister stores and retrieves the whole state tree. Last writer wins;
// there is no partial persistence and no concurrency versioning.
type Persister interface {
	// Load returns the persisted state, or (nil, nil) when the slot is empty.
	Load() (*State, error)
	// Save replaces the persisted state wholesale.
	Save(*State) error
}

// FilePersister keeps the state as one JSON document on disk.
type FilePersister struct {
	path string
}

// NewFilePersister creates a persister rooted at dir. The directory is
// created if absent.
func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FilePersister{path: filepath.Join(dir, StorageKey+".json")}, nil
}

// Path returns the backing file path.
func (p *FilePersister) Path() string {
	return p.path
}

// Load reads and decodes the state document.
func (p *FilePersister) Load() (*State, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// Save encodes the state and writes it atomically (temp file + rename) so a
// crash mid-write never corrupts the slot.
func (p *FilePersister) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, p.path); err != nil {
		return fmt.Errorf("failed to replace state: %w", err)
	}
	return nil
}
