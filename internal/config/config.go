// Package config loads asdbs settings from a TOML file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"

	"github.com/OpenGG/asdbs/internal/dbs/domain"
)

// Environment variables that override the config file.
const (
	EnvHome           = "ASDBS_HOME"
	EnvProgramData    = "ASDBS_PROGRAM_DATA"
	EnvLanguagePrefix = "ASDBS_LANGUAGE_PREFIX"
)

// FileName is the config file name inside the asdbs home directory.
const FileName = "config.toml"

// Config represents the asdbs configuration.
type Config struct {
	// ProgramData is the common application data root holding the Autodesk tree.
	ProgramData string `toml:"program_data"`
	// LanguagePrefix is the Advance Steel language directory, e.g. POL.
	LanguagePrefix string `toml:"language_prefix"`
	// RevitLocale is the Revit Steel Connections locale directory, e.g. pl-PL.
	RevitLocale string `toml:"revit_locale"`
	StoreDir    string `toml:"store_dir"`
	// DefaultVersion is used when --product is not given (AS2019, RVT2020, ...).
	DefaultVersion string `toml:"default_version"`
	LogLevel       string `toml:"log_level"` // debug, info, warn or error
	LogFile        string `toml:"log_file,omitempty"`
	// InstalledProducts replaces the software inventory lookup when set.
	InstalledProducts []string `toml:"installed_products,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default(home string, getenv func(string) string) *Config {
	return &Config{
		ProgramData:    defaultProgramData(getenv),
		LanguagePrefix: "POL",
		RevitLocale:    "pl-PL",
		StoreDir:       filepath.Join(home, "configs"),
		DefaultVersion: domain.DefaultVersion.Tag(),
		LogLevel:       "info",
	}
}

func defaultProgramData(getenv func(string) string) string {
	if dir := strings.TrimSpace(getenv("ProgramData")); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		return `C:\ProgramData`
	}
	return "/var/lib/asdbs/ProgramData"
}

// HomeDir returns $ASDBS_HOME, or the asdbs directory under the user config dir.
func HomeDir(getenv func(string) string) (string, error) {
	if custom := strings.TrimSpace(getenv(EnvHome)); custom != "" {
		return custom, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "asdbs"), nil
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(home, FileName)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r on top of base. Keys missing from r keep the
// values of base. Unknown keys are rejected.
func (m *Manager) Read(r io.Reader, base *Config) (*Config, error) {
	cfg := *base
	cfg.InstalledProducts = append([]string(nil), base.InstalledProducts...)
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Load reads the config file in home, if any, over the defaults and applies
// environment overrides.
func Load(fs afero.Fs, home string, getenv func(string) string) (*Config, error) {
	cfg := Default(home, getenv)
	path := Path(home)

	f, err := fs.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		m := &Manager{}
		cfg, err = m.Read(f, cfg)
		if err != nil {
			return nil, fmt.Errorf("reading config from %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	if v := strings.TrimSpace(getenv(EnvProgramData)); v != "" {
		cfg.ProgramData = v
	}
	if v := strings.TrimSpace(getenv(EnvLanguagePrefix)); v != "" {
		cfg.LanguagePrefix = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every value can be used.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ProgramData) == "" {
		return errors.New("program_data cannot be empty")
	}
	if strings.TrimSpace(c.LanguagePrefix) == "" {
		return errors.New("language_prefix cannot be empty")
	}
	if strings.ContainsAny(c.LanguagePrefix, `/\`) {
		return fmt.Errorf("language_prefix must be a single directory name: %q", c.LanguagePrefix)
	}
	if strings.TrimSpace(c.RevitLocale) == "" {
		return errors.New("revit_locale cannot be empty")
	}
	if strings.TrimSpace(c.StoreDir) == "" {
		return errors.New("store_dir cannot be empty")
	}
	if _, err := c.Version(); err != nil {
		return fmt.Errorf("default_version: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Version parses DefaultVersion.
func (c *Config) Version() (domain.Version, error) {
	return domain.ParseVersion(c.DefaultVersion)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, err
	}
	return level, nil
}

// Init writes cfg to path, refusing to overwrite an existing file.
func Init(fs afero.Fs, path string, cfg *Config) error {
	if exists, err := afero.Exists(fs, path); err != nil {
		return fmt.Errorf("failed to check config file: %w", err)
	} else if exists {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		f.Close()
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close config file: %w", err)
	}
	return nil
}
