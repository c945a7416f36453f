package models

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
)

// SnapshotVersion is written into every snapshot file
const SnapshotVersion = 1

// Snapshot is the persisted form of the queue. Playing state is deliberately absent:
// no deadline can survive a restart.
type Snapshot struct {
	Version                int          `json:"version"`
	Entries                []QueueEntry `json:"entries"`
	ActiveIndex            int          `json:"activeIndex"`
	OffsetMinutes          int          `json:"offsetMinutes"`
	SessionDurationMinutes int          `json:"sessionDurationMinutes"`
}

// SnapshotStore persists snapshots to a single JSON file in the config directory
type SnapshotStore struct {
	mu   sync.Mutex
	path string
}

// NewSnapshotStore creates a store writing to <configDir>/state.json
func NewSnapshotStore(configDir string) *SnapshotStore {
	return &SnapshotStore{
		path: filepath.Join(configDir, "state.json"),
	}
}

// Path returns the snapshot file location
func (s *SnapshotStore) Path() string {
	return s.path
}

// Load reads the last snapshot. Missing or unreadable data yields false, never an error.
func (s *SnapshotStore) Load() (*Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Snapshot: failed to read %s: %v", s.path, err)
		}
		return nil, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Printf("Snapshot: ignoring corrupt %s: %v", s.path, err)
		return nil, false
	}
	if snap.Entries == nil {
		snap.Entries = []QueueEntry{}
	}

	return &snap, true
}

// Save writes the snapshot. Failures are logged and dropped.
func (s *SnapshotStore) Save(snap *Snapshot) {
	if err := s.save(snap); err != nil {
		log.Printf("Snapshot: %v", err)
	}
}

func (s *SnapshotStore) save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated snapshot
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}

	return nil
}

// Remove deletes the snapshot file
func (s *SnapshotStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot file: %w", err)
	}
	return nil
}
