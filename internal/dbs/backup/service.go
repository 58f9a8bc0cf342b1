package backup

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/OpenGG/asdbs/internal/dbs/paths"
	"github.com/OpenGG/asdbs/internal/dbs/storage"
)

// maxCollisionSuffix bounds the _N suffixes tried when two backups land in the same second.
const maxCollisionSuffix = 9

// Backup describes one timestamped copy of a configuration file.
type Backup struct {
	Path    string
	ModTime time.Time
}

// Service creates and prunes timestamped sibling copies of configuration files.
type Service struct {
	storage *storage.Storage
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a new backup Service.
func New(storage *storage.Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		storage: storage,
		now:     time.Now,
		logger:  logger,
	}
}

// SetNow allows overriding the clock for testing.
func (s *Service) SetNow(now func() time.Time) {
	if now == nil {
		s.now = time.Now
		return
	}
	s.now = now
}

// BackupConfig copies configPath to a timestamped sibling and returns its path.
//
// A missing configPath is not an error: there is nothing to lose, so the
// returned path is empty. Existing backups are never overwritten; if the
// timestamped name is taken a numeric suffix is appended:
//
//	DatabaseConfiguration.2019-05-01_134500.xml
//	DatabaseConfiguration.2019-05-01_134500_1.xml
//
// If the copy succeeds but its timestamp cannot be set, the backup path is
// returned together with the error.
func (s *Service) BackupConfig(configPath string) (string, error) {
	if _, err := s.storage.Stat(configPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("no configuration file to back up", "path", configPath)
			return "", nil
		}
		return "", fmt.Errorf("failed to stat configuration file: %w", err)
	}

	now := s.now()
	candidate := paths.BackupPath(configPath, now)
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			candidate = strings.TrimSuffix(paths.BackupPath(configPath, now), ".xml") + fmt.Sprintf("_%d.xml", attempt)
		}
		exists, err := s.storage.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check backup path: %w", err)
		}
		if !exists {
			break
		}
		if attempt == maxCollisionSuffix {
			return "", fmt.Errorf("no free backup name for %s", configPath)
		}
	}

	if err := s.storage.CopyNew(configPath, candidate); err != nil {
		return "", fmt.Errorf("failed to copy configuration file: %w", err)
	}
	if err := s.storage.Chtimes(candidate, now, now); err != nil {
		// The copy exists; callers still need to know where it is.
		s.logger.Warn("backup created without timestamp",
			"backup_path", candidate,
			"error", err)
		return candidate, fmt.Errorf("failed to update backup timestamp: %w", err)
	}

	s.logger.Info("backup created",
		"path", configPath,
		"backup_path", candidate)
	return candidate, nil
}

// ListBackups returns the timestamped backups of configPath, newest first.
func (s *Service) ListBackups(configPath string) ([]Backup, error) {
	dir := filepath.Dir(configPath)
	entries, err := s.storage.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	pattern := backupPattern(configPath)
	var backups []Backup
	for _, entry := range entries {
		if entry.IsDir() || !pattern.MatchString(entry.Name()) {
			continue
		}
		backups = append(backups, Backup{
			Path:    filepath.Join(dir, entry.Name()),
			ModTime: entry.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].ModTime.After(backups[j].ModTime)
	})
	return backups, nil
}

// PruneBackups removes backups of configPath older than the specified duration.
//
// Age is taken from the modification time, which BackupConfig sets to the
// moment the backup was made.
//
// Returns the number of backups deleted and any error encountered.
func (s *Service) PruneBackups(configPath string, olderThan time.Duration) (int, error) {
	backups, err := s.ListBackups(configPath)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-olderThan)
	deleted := 0
	for _, b := range backups {
		if !b.ModTime.Before(cutoff) {
			continue
		}
		if err := s.storage.Remove(b.Path); err != nil {
			return deleted, fmt.Errorf("failed to delete backup: %w", err)
		}
		s.logger.Debug("backup pruned", "backup_path", b.Path)
		deleted++
	}
	return deleted, nil
}

func backupPattern(configPath string) *regexp.Regexp {
	name := filepath.Base(configPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return regexp.MustCompile(`^` + regexp.QuoteMeta(stem) + `\.\d{4}-\d{2}-\d{2}_\d{6}(_\d+)?\.xml$`)
}
