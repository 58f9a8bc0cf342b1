// Package dbs coordinates reading, saving and switching Advance Steel and
// Revit Steel Connections database configurations.
package dbs

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"github.com/OpenGG/asdbs/internal/dbs/backup"
	"github.com/OpenGG/asdbs/internal/dbs/domain"
	"github.com/OpenGG/asdbs/internal/dbs/inventory"
	"github.com/OpenGG/asdbs/internal/dbs/paths"
	"github.com/OpenGG/asdbs/internal/dbs/snapshot"
	"github.com/OpenGG/asdbs/internal/dbs/state"
	"github.com/OpenGG/asdbs/internal/dbs/storage"
	"github.com/OpenGG/asdbs/internal/dbs/store"
	"github.com/OpenGG/asdbs/internal/dbs/swap"
	"github.com/OpenGG/asdbs/internal/dbs/validator"
)

// Options carries the settings the Manager needs to locate files.
type Options struct {
	// ProgramData is the OS common application data root, C:\ProgramData on Windows.
	ProgramData    string
	LanguagePrefix string
	RevitLocale    string
	// StoreDir holds the saved *.config.json snapshots.
	StoreDir string
}

// Manager coordinates configuration switching using focused services.
type Manager struct {
	fs        afero.Fs
	storage   *storage.Storage
	resolver  *paths.Resolver
	reader    *state.Reader
	engine    *swap.Engine
	backup    *backup.Service
	store     *store.Store
	validator *validator.Validator
	inventory inventory.Inventory
	logger    *slog.Logger
}

// NewManager creates a Manager. A nil inventory treats every product as
// installed; a nil logger discards output.
func NewManager(fs afero.Fs, opts Options, inv inventory.Inventory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if inv == nil {
		inv = inventory.AssumeInstalled{}
	}

	stor := storage.New(fs)
	resolver := paths.New(opts.ProgramData, opts.LanguagePrefix, opts.RevitLocale)
	backupSvc := backup.New(stor, logger)

	return &Manager{
		fs:        fs,
		storage:   stor,
		resolver:  resolver,
		reader:    state.NewReader(stor, resolver, logger),
		engine:    swap.NewEngine(stor, backupSvc, logger),
		backup:    backupSvc,
		store:     store.New(stor, opts.StoreDir),
		validator: validator.New(),
		inventory: inv,
		logger:    logger,
	}
}

// FileSystem returns the underlying filesystem.
func (m *Manager) FileSystem() afero.Fs {
	return m.fs
}

// StoreDir returns the directory holding saved snapshots.
func (m *Manager) StoreDir() string {
	return m.store.Dir()
}

// SetNow overrides the clock used to stamp backups.
func (m *Manager) SetNow(now func() time.Time) {
	m.backup.SetNow(now)
}

// InitInfra ensures the snapshot store directory exists.
func (m *Manager) InitInfra() error {
	if err := m.storage.MkdirAll(m.store.Dir()); err != nil {
		return fmt.Errorf("failed to create snapshot store directory: %w", err)
	}
	return nil
}

// Resolve returns the paths used by version v.
func (m *Manager) Resolve(v domain.Version) (paths.PathSet, error) {
	return m.resolver.Resolve(v)
}

// ReadCurrent returns the live configuration of v.
func (m *Manager) ReadCurrent(v domain.Version) (*snapshot.Snapshot, error) {
	return m.reader.ReadCurrent(v)
}

// IsCurrent reports whether s is the live configuration of its version.
func (m *Manager) IsCurrent(s *snapshot.Snapshot) bool {
	return m.reader.IsCurrent(s)
}

// IsValid reports whether s can currently be applied. For Advance Steel the
// live support path must resolve, through any links, to an existing directory.
// Revit snapshots are always valid.
func (m *Manager) IsValid(s *snapshot.Snapshot) bool {
	if s == nil {
		return false
	}
	return m.isVersionValid(s.Version)
}

func (m *Manager) isVersionValid(v domain.Version) bool {
	if v.IsRevit() {
		return true
	}
	p, err := m.resolver.Resolve(v)
	if err != nil {
		return false
	}
	final, err := m.storage.FinalPath(p.SupportPath)
	if err != nil {
		m.logger.Debug("support directory does not resolve", "path", p.SupportPath, "error", err)
		return false
	}
	info, err := m.storage.Stat(final)
	return err == nil && info.IsDir()
}

// IsInstalled reports whether the product s targets is installed. Inventory
// errors are logged and count as not installed.
func (m *Manager) IsInstalled(s *snapshot.Snapshot) bool {
	if s == nil {
		return false
	}
	return m.IsVersionInstalled(s.Version)
}

// IsVersionInstalled reports whether product version v is installed.
func (m *Manager) IsVersionInstalled(v domain.Version) bool {
	installed, err := m.inventory.IsProductInstalled(v.DisplayName())
	if err != nil {
		m.logger.Warn("software inventory query failed", "product", v.DisplayName(), "error", err)
		return false
	}
	return installed
}

// Apply makes s the live configuration of its version. See swap.Engine.Apply
// for the sequence and the partial failure contract.
func (m *Manager) Apply(s *snapshot.Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrInvalidSnapshot)
	}
	p, err := m.resolver.Resolve(s.Version)
	if err != nil {
		return err
	}
	return m.engine.Apply(s, p)
}

// Use loads the snapshot saved under label and applies it. Snapshots for
// products that are not installed are refused.
func (m *Manager) Use(label string) (*snapshot.Snapshot, error) {
	snap, err := m.LoadSnapshot(label)
	if err != nil {
		return nil, err
	}
	if !m.IsInstalled(snap) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotInstalled, snap.Version.DisplayName())
	}
	if err := m.Apply(snap); err != nil {
		return nil, err
	}
	m.logger.Info("snapshot activated", "label", label, "version", snap.Version)
	return snap, nil
}

// ValidateSnapshotName checks that label is usable as a snapshot file name.
func (m *Manager) ValidateSnapshotName(label string) (bool, error) {
	return m.validator.ValidateLabel(label)
}

// SnapshotExists reports whether a snapshot is saved under label.
func (m *Manager) SnapshotExists(label string) (bool, error) {
	return m.store.Exists(label)
}

// SnapshotLabels returns all saved snapshot labels regardless of version.
func (m *Manager) SnapshotLabels() ([]string, error) {
	return m.store.List()
}

// LoadSnapshot reads the snapshot saved under label.
func (m *Manager) LoadSnapshot(label string) (*snapshot.Snapshot, error) {
	label, err := m.validator.NormalizeLabel(label)
	if err != nil {
		return nil, err
	}
	return m.store.Load(label)
}

// SaveSnapshot stores s under label, replacing any snapshot with that label.
func (m *Manager) SaveSnapshot(label string, s *snapshot.Snapshot) error {
	label, err := m.validator.NormalizeLabel(label)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := m.InitInfra(); err != nil {
		return err
	}
	if err := m.store.Save(label, s); err != nil {
		return err
	}
	m.logger.Info("snapshot saved", "label", label, "path", m.store.Path(label))
	return nil
}

// SaveCurrent reads the live configuration of v and saves it under label.
// The saved snapshot is named after its label.
func (m *Manager) SaveCurrent(v domain.Version, label string) (*snapshot.Snapshot, error) {
	label, err := m.validator.NormalizeLabel(label)
	if err != nil {
		return nil, err
	}
	current, err := m.reader.ReadCurrent(v)
	if err != nil {
		return nil, err
	}
	current.Name = label
	if err := m.SaveSnapshot(label, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Compare lists the differences between a and b, ignoring names.
func (m *Manager) Compare(a, b *snapshot.Snapshot) []string {
	return snapshot.Diff(a, b)
}

// ListBackups returns the configuration backups of v, newest first.
func (m *Manager) ListBackups(v domain.Version) ([]backup.Backup, error) {
	p, err := m.resolver.Resolve(v)
	if err != nil {
		return nil, err
	}
	return m.backup.ListBackups(p.ConfigPath)
}

// PruneBackups removes configuration backups older than olderThan for every
// known version and returns the number removed.
func (m *Manager) PruneBackups(olderThan time.Duration) (int, error) {
	var errs []error
	total := 0
	for _, v := range domain.KnownVersions() {
		p, err := m.resolver.Resolve(v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n, err := m.backup.PruneBackups(p.ConfigPath, olderThan)
		total += n
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", v, err))
		}
	}
	return total, errors.Join(errs...)
}
