// Package state reads the configuration a product is currently using.
package state

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/OpenGG/asdbs/internal/dbs/dbconfig"
	"github.com/OpenGG/asdbs/internal/dbs/domain"
	"github.com/OpenGG/asdbs/internal/dbs/paths"
	"github.com/OpenGG/asdbs/internal/dbs/snapshot"
	"github.com/OpenGG/asdbs/internal/dbs/storage"
)

// Reader builds snapshots of the live configuration.
//
// A missing configuration file is reported as domain.ErrConfigNotFound and a
// missing (or dangling) support directory as domain.ErrSupportDirNotFound.
// Callers tell "installed but not configured" apart from other I/O errors
// with errors.Is.
type Reader struct {
	storage  *storage.Storage
	resolver *paths.Resolver
	logger   *slog.Logger
}

// NewReader creates a Reader.
func NewReader(storage *storage.Storage, resolver *paths.Resolver, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reader{
		storage:  storage,
		resolver: resolver,
		logger:   logger,
	}
}

// ReadCurrent returns the active configuration of v, named after v.CurrentName().
func (r *Reader) ReadCurrent(v domain.Version) (*snapshot.Snapshot, error) {
	p, err := r.resolver.Resolve(v)
	if err != nil {
		return nil, err
	}

	if v.IsRevit() {
		return r.readRevit(v, p.ConfigPath)
	}

	isLink, target, err := r.readSupport(p.SupportPath)
	if err != nil {
		return nil, err
	}
	sources, err := r.readConfig(p.ConfigPath)
	if err != nil {
		return nil, err
	}
	return snapshot.NewSteel(v.CurrentName(), v, sources, isLink, target)
}

// IsCurrent reports whether s matches the live configuration of its version.
// Names are ignored. Any read failure counts as not current.
func (r *Reader) IsCurrent(s *snapshot.Snapshot) bool {
	if s == nil {
		return false
	}
	current, err := r.ReadFor(s)
	if err != nil {
		r.logger.Debug("current configuration unreadable", "version", s.Version, "error", err)
		return false
	}
	return snapshot.Equal(current, s, false)
}

// ReadFor returns the live configuration s is compared against. A Revit
// snapshot that names its own configuration file is read from that file,
// since applying it writes there instead of the resolved path.
func (r *Reader) ReadFor(s *snapshot.Snapshot) (*snapshot.Snapshot, error) {
	if s == nil {
		return nil, domain.ErrInvalidSnapshot
	}
	rt, ok := s.Revit()
	if !ok || rt.ConfigFileName == "" {
		return r.ReadCurrent(s.Version)
	}
	if _, err := r.resolver.Resolve(s.Version); err != nil {
		return nil, err
	}
	return r.readRevit(s.Version, rt.ConfigFileName)
}

func (r *Reader) readRevit(v domain.Version, configPath string) (*snapshot.Snapshot, error) {
	sources, err := r.readConfig(configPath)
	if err != nil {
		return nil, err
	}
	return snapshot.NewRevit(v.CurrentName(), v, sources, configPath)
}

func (r *Reader) readSupport(supportPath string) (bool, string, error) {
	isLink, err := r.storage.IsLink(supportPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, "", fmt.Errorf("%w: %s", domain.ErrSupportDirNotFound, supportPath)
		}
		return false, "", fmt.Errorf("failed to inspect support directory: %w", err)
	}
	if !isLink {
		return false, "", nil
	}

	final, err := r.storage.FinalPath(supportPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, "", fmt.Errorf("%w: %s links to a missing directory", domain.ErrSupportDirNotFound, supportPath)
		}
		return false, "", fmt.Errorf("failed to resolve support link: %w", err)
	}
	return true, snapshot.NormalizeLinkTarget(final), nil
}

func (r *Reader) readConfig(configPath string) (sources []snapshot.DataSource, err error) {
	f, err := r.storage.Open(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("failed to open configuration: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close configuration: %w", cerr)
		}
	}()

	sources, err = dbconfig.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return sources, nil
}
