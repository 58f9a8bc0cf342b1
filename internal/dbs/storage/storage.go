package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// maxLinkHops bounds link resolution so cycles cannot loop forever.
const maxLinkHops = 40

// ErrLinksUnsupported is returned when the filesystem cannot create or read links.
var ErrLinksUnsupported = errors.New("filesystem does not support symbolic links")

// Storage provides low-level file operations on an afero filesystem, including
// the link operations the support directory swap needs.
type Storage struct {
	fs afero.Fs
}

// New creates a new Storage instance.
func New(fs afero.Fs) *Storage {
	return &Storage{fs: fs}
}

// FileSystem returns the underlying filesystem.
func (s *Storage) FileSystem() afero.Fs {
	return s.fs
}

// ValidatePathSafety checks that the path is not a symlink, preventing symlink attacks.
// It returns nil if the path doesn't exist or is a regular file/directory.
func (s *Storage) ValidatePathSafety(path string) error {
	info, err := s.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // Non-existent paths are safe to write to
		}
		return fmt.Errorf("failed to check path: %w", err)
	}
	if isLinkMode(info.Mode()) {
		return fmt.Errorf("refusing to operate on symlink: %s", path)
	}
	return nil
}

// CopyFile copies a file from src to dst, atomically replacing the destination.
func (s *Storage) CopyFile(src, dst string) (err error) {
	if err := s.ValidatePathSafety(src); err != nil {
		return fmt.Errorf("validate source: %w", err)
	}
	if err := s.ValidatePathSafety(dst); err != nil {
		return fmt.Errorf("validate destination: %w", err)
	}

	source, err := s.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if cerr := source.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close source: %w", cerr)
		}
	}()

	return s.writeAtomic(dst, source, 0o644)
}

// CopyNew copies src to dst and fails if dst already exists.
func (s *Storage) CopyNew(src, dst string) (err error) {
	if err := s.ValidatePathSafety(src); err != nil {
		return fmt.Errorf("validate source: %w", err)
	}

	source, err := s.fs.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if cerr := source.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close source: %w", cerr)
		}
	}()

	dest, err := s.fs.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	_, copyErr := io.Copy(dest, source)
	closeErr := dest.Close()
	if copyErr != nil || closeErr != nil {
		s.fs.Remove(dst)
		if copyErr != nil {
			return fmt.Errorf("copy data: %w", copyErr)
		}
		return fmt.Errorf("close destination: %w", closeErr)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place.
func (s *Storage) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return s.writeAtomic(path, bytes.NewReader(data), perm)
}

func (s *Storage) writeAtomic(dst string, r io.Reader, perm os.FileMode) error {
	dir := filepath.Dir(dst)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	// Create temp file in same directory (enables atomic rename)
	tmp := dst + ".tmp"
	dest, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	_, copyErr := io.Copy(dest, r)
	closeErr := dest.Close()

	if copyErr != nil || closeErr != nil {
		s.fs.Remove(tmp)
		if copyErr != nil {
			return fmt.Errorf("copy data: %w", copyErr)
		}
		return fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := s.fs.Rename(tmp, dst); err != nil {
		s.fs.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// ReadFile reads the entire file.
func (s *Storage) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(s.fs, path)
}

// Open opens a file for reading.
func (s *Storage) Open(path string) (afero.File, error) {
	return s.fs.Open(path)
}

// WriteFile writes data to a file.
func (s *Storage) WriteFile(path string, data []byte) error {
	return afero.WriteFile(s.fs, path, data, 0o644)
}

// Exists checks if a path exists.
func (s *Storage) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

// Stat returns file information, following links.
func (s *Storage) Stat(path string) (os.FileInfo, error) {
	return s.fs.Stat(path)
}

// Lstat returns file information without following a final link when the
// filesystem supports it.
func (s *Storage) Lstat(path string) (os.FileInfo, error) {
	if lstater, ok := s.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return s.fs.Stat(path)
}

// MkdirAll creates a directory tree.
func (s *Storage) MkdirAll(path string) error {
	return s.fs.MkdirAll(path, 0o755)
}

// ReadDir reads directory contents.
func (s *Storage) ReadDir(path string) ([]os.FileInfo, error) {
	return afero.ReadDir(s.fs, path)
}

// Remove deletes a file, an empty directory or a link.
func (s *Storage) Remove(path string) error {
	return s.fs.Remove(path)
}

// Rename moves a file or directory.
func (s *Storage) Rename(oldPath, newPath string) error {
	return s.fs.Rename(oldPath, newPath)
}

// Chtimes changes file access and modification times.
func (s *Storage) Chtimes(path string, atime, mtime time.Time) error {
	return s.fs.Chtimes(path, atime, mtime)
}

// IsLink reports whether path is a symbolic link or junction.
func (s *Storage) IsLink(path string) (bool, error) {
	info, err := s.Lstat(path)
	if err != nil {
		return false, err
	}
	return isLinkMode(info.Mode()), nil
}

// Symlink creates link pointing at target.
func (s *Storage) Symlink(target, link string) error {
	linker, ok := s.fs.(afero.Linker)
	if !ok {
		return ErrLinksUnsupported
	}
	return linker.SymlinkIfPossible(target, link)
}

// Readlink returns the immediate destination of a link.
func (s *Storage) Readlink(path string) (string, error) {
	reader, ok := s.fs.(afero.LinkReader)
	if !ok {
		return "", ErrLinksUnsupported
	}
	return reader.ReadlinkIfPossible(path)
}

// RemoveLink deletes path only if it is a link, leaving any target untouched.
func (s *Storage) RemoveLink(path string) error {
	isLink, err := s.IsLink(path)
	if err != nil {
		return err
	}
	if !isLink {
		return fmt.Errorf("refusing to remove %s: not a link", path)
	}
	return s.fs.Remove(path)
}

// FinalPath follows links starting at path and returns the path of the
// existing file or directory they end at.
func (s *Storage) FinalPath(path string) (string, error) {
	current := filepath.Clean(path)
	for hop := 0; hop < maxLinkHops; hop++ {
		info, err := s.Lstat(current)
		if err != nil {
			return "", err
		}
		if !isLinkMode(info.Mode()) {
			return current, nil
		}
		next, err := s.Readlink(current)
		if err != nil {
			return "", fmt.Errorf("read link %s: %w", current, err)
		}
		if !filepath.IsAbs(next) && !isUNC(next) {
			next = filepath.Join(filepath.Dir(current), next)
		}
		current = filepath.Clean(next)
	}
	return "", fmt.Errorf("too many levels of links resolving %s", path)
}

// Junctions show up as irregular files on Windows since Go 1.23.
func isLinkMode(mode os.FileMode) bool {
	return mode&(os.ModeSymlink|os.ModeIrregular) != 0
}

func isUNC(p string) bool {
	return len(p) > 2 && p[0] == '\\' && p[1] == '\\'
}
