package paths

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/OpenGG/asdbs/internal/dbs/domain"
)

// Directory and file name constants for the Autodesk configuration tree.
const (
	AutodeskDirName     = "Autodesk"
	ConfigurationDir    = "Configuration"
	ConfigFileName      = "DatabaseConfiguration.xml"
	SharedDirName       = "Shared"
	SupportDirName      = "Support"
	SupportBackupSuffix = ".bak"
	SnapshotFileSuffix  = ".config.json"

	// BackupTimeLayout stamps config backups as <base>.<yyyy-MM-dd_HHmmss>.xml.
	BackupTimeLayout = "2006-01-02_150405"
)

// PathSet holds every path derived for one product version.
// SupportPath is empty for Revit.
type PathSet struct {
	Version     domain.Version
	BaseDir     string
	ConfigPath  string
	SupportPath string
}

// SupportBackupPath returns where the real support directory is parked during a swap.
func (p PathSet) SupportBackupPath() string {
	if p.SupportPath == "" {
		return ""
	}
	return p.SupportPath + SupportBackupSuffix
}

// Resolver derives product paths from the common application data root and
// the configured language segments.
type Resolver struct {
	programData    string
	languagePrefix string
	revitLocale    string
}

// New creates a Resolver. programData is the OS common application data root
// (C:\ProgramData on Windows).
func New(programData, languagePrefix, revitLocale string) *Resolver {
	return &Resolver{
		programData:    programData,
		languagePrefix: languagePrefix,
		revitLocale:    revitLocale,
	}
}

// AutodeskDir returns <programData>/Autodesk.
func (r *Resolver) AutodeskDir() string {
	return filepath.Join(r.programData, AutodeskDirName)
}

// Resolve computes the PathSet for v.
func (r *Resolver) Resolve(v domain.Version) (PathSet, error) {
	if !v.IsKnown() {
		return PathSet{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedVersion, v)
	}
	year := strconv.Itoa(v.Year)

	if v.IsRevit() {
		// Revit Steel Connections keeps its file directly under the locale
		// directory, outside the Advance Steel layout.
		base := filepath.Join(r.AutodeskDir(), "Revit Steel Connections "+year, r.revitLocale)
		return PathSet{
			Version:    v,
			BaseDir:    base,
			ConfigPath: filepath.Join(base, ConfigFileName),
		}, nil
	}

	base := filepath.Join(r.AutodeskDir(), "Advance Steel "+year, r.languagePrefix)
	return PathSet{
		Version:     v,
		BaseDir:     base,
		ConfigPath:  filepath.Join(base, ConfigurationDir, ConfigFileName),
		SupportPath: filepath.Join(base, SharedDirName, SupportDirName),
	}, nil
}

// BackupPath returns the timestamped sibling used to back up a config file:
// DatabaseConfiguration.xml becomes DatabaseConfiguration.2019-05-01_134500.xml.
func BackupPath(configPath string, at time.Time) string {
	ext := filepath.Ext(configPath)
	base := configPath[:len(configPath)-len(ext)]
	return base + "." + at.Format(BackupTimeLayout) + ".xml"
}
