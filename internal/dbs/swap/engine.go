// Package swap replaces the live database configuration with a snapshot.
//
// The sequence is best effort and never rolled back. When Apply fails it
// returns a *domain.SwapError naming the failed step and the steps that had
// already changed the filesystem.
package swap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/OpenGG/asdbs/internal/dbs/backup"
	"github.com/OpenGG/asdbs/internal/dbs/dbconfig"
	"github.com/OpenGG/asdbs/internal/dbs/domain"
	"github.com/OpenGG/asdbs/internal/dbs/paths"
	"github.com/OpenGG/asdbs/internal/dbs/snapshot"
	"github.com/OpenGG/asdbs/internal/dbs/storage"
)

// Engine applies snapshots to the filesystem.
type Engine struct {
	storage *storage.Storage
	backup  *backup.Service
	logger  *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(storage *storage.Storage, backup *backup.Service, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		storage: storage,
		backup:  backup,
		logger:  logger,
	}
}

// Apply makes s the live configuration at p.
//
// Advance Steel:
//  1. back up the config file to a timestamped sibling
//  2. delete the config file
//  3. remove the support link, or park the support directory as <support>.bak
//  4. write the new config file
//  5. link the support directory to the snapshot target, or move .bak back
//
// Revit backs up and rewrites the config file only. All checks that can be
// made without touching the filesystem run first; a preflight failure leaves
// everything as it was.
func (e *Engine) Apply(s *snapshot.Snapshot, p paths.PathSet) error {
	if s == nil {
		r := &run{engine: e, logger: e.logger}
		return r.fail(domain.StepPreflight, domain.ErrInvalidSnapshot, errors.New("nil snapshot"))
	}
	r := &run{
		engine: e,
		logger: e.logger.With("snapshot", s.Name, "version", p.Version),
	}
	if err := s.Validate(); err != nil {
		return r.fail(domain.StepPreflight, domain.ErrInvalidSnapshot, err)
	}
	if s.Version != p.Version {
		return r.fail(domain.StepPreflight, domain.ErrInvalidSnapshot,
			fmt.Errorf("snapshot is for %s, paths are for %s", s.Version, p.Version))
	}

	r.logger.Info("applying snapshot", "config_path", p.ConfigPath)
	var err error
	switch t := s.Target.(type) {
	case snapshot.SteelTarget:
		err = r.applySteel(s, t, p)
	case snapshot.RevitTarget:
		err = r.applyRevit(s, t, p)
	}
	if err != nil {
		return err
	}
	r.logger.Info("snapshot applied")
	return nil
}

// run tracks the progress of a single Apply call.
type run struct {
	engine     *Engine
	logger     *slog.Logger
	completed  []domain.Step
	backupPath string
}

func (r *run) fail(step domain.Step, kind, err error) error {
	r.logger.Error("swap step failed",
		"step", step,
		"completed", len(r.completed),
		"error", err)
	return &domain.SwapError{
		Step:       step,
		Completed:  append([]domain.Step(nil), r.completed...),
		BackupPath: r.backupPath,
		Kind:       kind,
		Err:        err,
	}
}

func (r *run) begin(step domain.Step) {
	r.logger.Info("swap step", "step", step)
}

func (r *run) done(step domain.Step, args ...any) {
	r.completed = append(r.completed, step)
	r.logger.Debug("swap step done", append([]any{"step", step}, args...)...)
}

func (r *run) applySteel(s *snapshot.Snapshot, target snapshot.SteelTarget, p paths.PathSet) error {
	st := r.engine.storage
	supportBak := p.SupportBackupPath()

	currentIsLink, err := r.preflightSteel(target, p)
	if err != nil {
		return err
	}

	r.begin(domain.StepBackupConfig)
	if err := r.backupConfig(p.ConfigPath); err != nil {
		return err
	}

	r.begin(domain.StepDeleteConfig)
	if err := st.Remove(p.ConfigPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return r.fail(domain.StepDeleteConfig, domain.ErrDeleteFailed, err)
		}
		r.logger.Info("configuration file already absent", "path", p.ConfigPath)
	} else {
		r.done(domain.StepDeleteConfig, "path", p.ConfigPath)
	}

	r.begin(domain.StepBackupSupport)
	if currentIsLink {
		if err := st.RemoveLink(p.SupportPath); err != nil {
			return r.fail(domain.StepBackupSupport, domain.ErrBackupFailed, err)
		}
		r.done(domain.StepBackupSupport, "removed_link", p.SupportPath)
	} else {
		if err := st.Rename(p.SupportPath, supportBak); err != nil {
			return r.fail(domain.StepBackupSupport, domain.ErrDirectoryRenameFailed, err)
		}
		r.done(domain.StepBackupSupport, "parked_as", supportBak)
	}

	r.begin(domain.StepWriteConfig)
	if err := r.writeConfig(p.ConfigPath, s.DataSources); err != nil {
		return err
	}

	r.begin(domain.StepRestoreSupport)
	if target.SupportDirIsLink {
		if err := st.Symlink(target.SupportDirLinkTarget, p.SupportPath); err != nil {
			return r.fail(domain.StepRestoreSupport, domain.ErrLinkCreationFailed, err)
		}
		r.done(domain.StepRestoreSupport, "link", p.SupportPath, "target", target.SupportDirLinkTarget)
	} else {
		if err := st.Rename(supportBak, p.SupportPath); err != nil {
			return r.fail(domain.StepRestoreSupport, domain.ErrDirectoryRenameFailed, err)
		}
		r.done(domain.StepRestoreSupport, "restored_from", supportBak)
	}
	return nil
}

// preflightSteel checks the support directory layout and returns whether the
// live support path is currently a link.
func (r *run) preflightSteel(target snapshot.SteelTarget, p paths.PathSet) (bool, error) {
	st := r.engine.storage
	supportBak := p.SupportBackupPath()

	currentIsLink, err := st.IsLink(p.SupportPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, r.fail(domain.StepPreflight, domain.ErrSupportDirNotFound, err)
		}
		return false, r.fail(domain.StepPreflight, domain.ErrSupportDirNotFound,
			fmt.Errorf("inspect support directory: %w", err))
	}

	bakExists, err := st.Exists(supportBak)
	if err != nil {
		return false, r.fail(domain.StepPreflight, domain.ErrDirectoryRenameFailed,
			fmt.Errorf("inspect %s: %w", supportBak, err))
	}
	if !currentIsLink && bakExists {
		return false, r.fail(domain.StepPreflight, domain.ErrDirectoryRenameFailed,
			fmt.Errorf("%s already exists, refusing to overwrite it", supportBak))
	}
	if !target.SupportDirIsLink && currentIsLink && !bakExists {
		return false, r.fail(domain.StepPreflight, domain.ErrSupportDirNotFound,
			fmt.Errorf("snapshot needs the local support directory but %s does not exist", supportBak))
	}

	if target.SupportDirIsLink {
		info, err := st.Stat(target.SupportDirLinkTarget)
		if err != nil {
			return false, r.fail(domain.StepPreflight, domain.ErrSupportDirNotFound,
				fmt.Errorf("link target: %w", err))
		}
		if !info.IsDir() {
			return false, r.fail(domain.StepPreflight, domain.ErrSupportDirNotFound,
				fmt.Errorf("link target %s is not a directory", target.SupportDirLinkTarget))
		}
	}
	return currentIsLink, nil
}

func (r *run) applyRevit(s *snapshot.Snapshot, target snapshot.RevitTarget, p paths.PathSet) error {
	configPath := target.ConfigFileName
	if configPath == "" {
		configPath = p.ConfigPath
	}

	r.begin(domain.StepBackupConfig)
	if err := r.backupConfig(configPath); err != nil {
		return err
	}

	r.begin(domain.StepWriteConfig)
	return r.writeConfig(configPath, s.DataSources)
}

func (r *run) backupConfig(configPath string) error {
	backupPath, err := r.engine.backup.BackupConfig(configPath)
	if err != nil {
		r.backupPath = backupPath
		return r.fail(domain.StepBackupConfig, domain.ErrBackupFailed, err)
	}
	if backupPath == "" {
		r.logger.Debug("backup skipped", "path", configPath)
		return nil
	}
	r.backupPath = backupPath
	r.done(domain.StepBackupConfig, "backup_path", backupPath)
	return nil
}

func (r *run) writeConfig(configPath string, sources []snapshot.DataSource) error {
	data, err := dbconfig.Marshal(sources)
	if err != nil {
		return r.fail(domain.StepWriteConfig, domain.ErrWriteFailed, err)
	}
	if err := r.engine.storage.WriteFileAtomic(configPath, data, 0o644); err != nil {
		return r.fail(domain.StepWriteConfig, domain.ErrWriteFailed, err)
	}
	r.done(domain.StepWriteConfig, "path", configPath, "data_sources", len(sources))
	return nil
}
