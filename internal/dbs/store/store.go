package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/OpenGG/asdbs/internal/dbs/domain"
	"github.com/OpenGG/asdbs/internal/dbs/paths"
	"github.com/OpenGG/asdbs/internal/dbs/snapshot"
	"github.com/OpenGG/asdbs/internal/dbs/storage"
)

// Store handles persistence of saved snapshots, one <label>.config.json file each.
type Store struct {
	storage *storage.Storage
	dir     string
}

// New creates a Store rooted at dir.
func New(storage *storage.Storage, dir string) *Store {
	return &Store{
		storage: storage,
		dir:     dir,
	}
}

// Dir returns the snapshot store directory path.
func (s *Store) Dir() string {
	return s.dir
}

// List returns the labels of all saved snapshots, sorted lexicographically.
//
// The function scans the store directory and returns the base names (without
// the .config.json suffix) of regular files. A store directory that does not
// exist yet holds no snapshots.
func (s *Store) List() ([]string, error) {
	entries, err := s.storage.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot store: %w", err)
	}
	var labels []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		label := strings.TrimSuffix(name, paths.SnapshotFileSuffix)
		if label == name || label == "" {
			continue
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}

// Path returns the full path to a saved snapshot file.
func (s *Store) Path(label string) string {
	return filepath.Join(s.dir, label+paths.SnapshotFileSuffix)
}

// Exists checks if a snapshot is saved under label.
func (s *Store) Exists(label string) (bool, error) {
	return s.storage.Exists(s.Path(label))
}

// Load reads and decodes the snapshot saved under label.
func (s *Store) Load(label string) (*snapshot.Snapshot, error) {
	data, err := s.storage.ReadFile(s.Path(label))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, label)
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", label, err)
	}
	snap, err := snapshot.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", label, err)
	}
	return snap, nil
}

// Save encodes snap and atomically writes it under label, replacing any
// previous snapshot with that label.
func (s *Store) Save(label string, snap *snapshot.Snapshot) error {
	data, err := snapshot.Serialize(snap)
	if err != nil {
		return err
	}
	path := s.Path(label)
	if err := s.storage.ValidatePathSafety(path); err != nil {
		return err
	}
	if err := s.storage.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", label, err)
	}
	return nil
}

// Delete removes the snapshot saved under label.
func (s *Store) Delete(label string) error {
	if err := s.storage.Remove(s.Path(label)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrSnapshotNotFound, label)
		}
		return fmt.Errorf("failed to delete snapshot %s: %w", label, err)
	}
	return nil
}
