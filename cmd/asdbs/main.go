package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/OpenGG/asdbs/internal/cli"
	"github.com/OpenGG/asdbs/internal/config"
	"github.com/OpenGG/asdbs/internal/dbs"
	"github.com/OpenGG/asdbs/internal/dbs/inventory"
)

var exitFunc = os.Exit

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(1)
	}
}

func run(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := afero.NewOsFs()

	home, err := config.HomeDir(getenv)
	if err != nil {
		return err
	}
	cfg, err := config.Load(fs, home, getenv)
	if err != nil {
		return err
	}

	level, err := logLevel(cfg)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(fs, cfg.LogFile, stderr, level)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeLog(); cerr != nil {
			fmt.Fprintf(stderr, "Warning: failed to close log file: %v\n", cerr)
		}
	}()

	mgr := dbs.NewManager(fs, dbs.Options{
		ProgramData:    cfg.ProgramData,
		LanguagePrefix: cfg.LanguagePrefix,
		RevitLocale:    cfg.RevitLocale,
		StoreDir:       cfg.StoreDir,
	}, inventory.Default(cfg.InstalledProducts, logger), logger)

	env := cli.Environment{Config: cfg, ConfigPath: config.Path(home), LogLevel: level}
	root := cli.NewRootCommand(mgr, env, cli.NewPromptUI(), stdout, stderr)
	root.SetArgs(args)
	return root.Execute()
}

// logLevel returns an adjustable level starting at the configured log_level.
func logLevel(cfg *config.Config) (*slog.LevelVar, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}
	level := new(slog.LevelVar)
	level.Set(lvl)
	return level, nil
}

// newLogger writes text logs to stderr and, when logFile is set, appends them to that file too.
func newLogger(fs afero.Fs, logFile string, stderr io.Writer, level slog.Leveler) (*slog.Logger, func() error, error) {
	w := stderr
	closeLog := func() error { return nil }
	if logFile != "" {
		f, err := fs.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(stderr, f)
		closeLog = f.Close
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeLog, nil
}
