package config

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/OpenGG/asdbs/internal/dbs/domain"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		ProgramData:       `C:\ProgramData`,
		LanguagePrefix:    "ENU",
		RevitLocale:       "en-US",
		StoreDir:          `C:\Users\me\asdbs\configs`,
		DefaultVersion:    "RVT2023",
		LogLevel:          "debug",
		LogFile:           `C:\Users\me\asdbs\asdbs.log`,
		InstalledProducts: []string{"Advance Steel 2019", "Autodesk Revit 2023"},
	}

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf, &Config{})
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.ProgramData != original.ProgramData {
		t.Errorf("ProgramData = %q, want %q", got.ProgramData, original.ProgramData)
	}
	if got.LanguagePrefix != "ENU" || got.RevitLocale != "en-US" {
		t.Errorf("locale fields = %q/%q", got.LanguagePrefix, got.RevitLocale)
	}
	if got.DefaultVersion != "RVT2023" {
		t.Errorf("DefaultVersion = %q", got.DefaultVersion)
	}
	if got.LogFile != original.LogFile {
		t.Errorf("LogFile = %q, want %q", got.LogFile, original.LogFile)
	}
	if len(got.InstalledProducts) != 2 {
		t.Fatalf("len(InstalledProducts) = %d, want 2", len(got.InstalledProducts))
	}
}

func TestManager_ReadKeepsBaseForMissingKeys(t *testing.T) {
	base := Default("/home/asdbs", env(nil))
	got, err := (&Manager{}).Read(strings.NewReader(`language_prefix = "DEU"`), base)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.LanguagePrefix != "DEU" {
		t.Errorf("LanguagePrefix = %q, want DEU", got.LanguagePrefix)
	}
	if got.RevitLocale != "pl-PL" {
		t.Errorf("RevitLocale = %q, want default", got.RevitLocale)
	}
	if base.LanguagePrefix != "POL" {
		t.Error("Read must not modify base")
	}
}

func TestManager_ReadRejectsUnknownKeys(t *testing.T) {
	_, err := (&Manager{}).Read(strings.NewReader("langauge_prefix = \"POL\"\n"), &Config{})
	if err == nil || !strings.Contains(err.Error(), "langauge_prefix") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default("/home/asdbs", env(map[string]string{"ProgramData": `D:\Data`}))

	if cfg.ProgramData != `D:\Data` {
		t.Errorf("ProgramData = %q", cfg.ProgramData)
	}
	if cfg.StoreDir != filepath.Join("/home/asdbs", "configs") {
		t.Errorf("StoreDir = %q", cfg.StoreDir)
	}
	v, err := cfg.Version()
	if err != nil || v != domain.AS2019 {
		t.Errorf("Version() = %v, %v", v, err)
	}
	level, err := cfg.Level()
	if err != nil || level != slog.LevelInfo {
		t.Errorf("Level() = %v, %v", level, err)
	}
}

func TestHomeDirPrefersEnv(t *testing.T) {
	home, err := HomeDir(env(map[string]string{EnvHome: "/custom/asdbs"}))
	if err != nil {
		t.Fatalf("HomeDir error: %v", err)
	}
	if home != "/custom/asdbs" {
		t.Fatalf("expected /custom/asdbs, got %s", home)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	cfg, err := Load(fs, "/home/asdbs", env(nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LanguagePrefix != "POL" {
		t.Errorf("LanguagePrefix = %q", cfg.LanguagePrefix)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `
program_data = "/srv/ProgramData"
language_prefix = "ENU"
default_version = "AS2023"
`
	if err := afero.WriteFile(fs, "/home/asdbs/config.toml", []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(fs, "/home/asdbs", env(map[string]string{EnvLanguagePrefix: "POL"}))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ProgramData != "/srv/ProgramData" {
		t.Errorf("ProgramData = %q", cfg.ProgramData)
	}
	if cfg.LanguagePrefix != "POL" {
		t.Errorf("env override lost: %q", cfg.LanguagePrefix)
	}
	if v, _ := cfg.Version(); v != domain.AS2023 {
		t.Errorf("Version() = %v", v)
	}

	cfg, err = Load(fs, "/home/asdbs", env(map[string]string{EnvProgramData: "/mnt/pd"}))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ProgramData != "/mnt/pd" {
		t.Errorf("ProgramData = %q", cfg.ProgramData)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"bad version":     `default_version = "AS1999"`,
		"bad level":       `log_level = "loud"`,
		"nested language": `language_prefix = "POL/x"`,
		"empty store":     `store_dir = ""`,
		"not toml":        `this is not toml`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "/home/asdbs/config.toml", []byte(content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(fs, "/home/asdbs", env(nil)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestInit(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := Path("/home/asdbs")
	cfg := Default("/home/asdbs", env(nil))

	if err := Init(fs, path, cfg); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	loaded, err := Load(fs, "/home/asdbs", env(nil))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.StoreDir != cfg.StoreDir {
		t.Errorf("StoreDir = %q, want %q", loaded.StoreDir, cfg.StoreDir)
	}

	if err := Init(fs, path, cfg); err == nil {
		t.Fatal("Init must refuse to overwrite an existing file")
	}
}
