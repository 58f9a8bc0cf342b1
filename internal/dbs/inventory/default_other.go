//go:build !windows

package inventory

import "log/slog"

// Default returns a Static inventory when names are configured. Without a
// list every product counts as installed, since there is no registry to ask.
func Default(configured []string, logger *slog.Logger) Inventory {
	if len(configured) > 0 {
		return NewStatic(configured)
	}
	if logger != nil {
		logger.Debug("no software registry on this platform, assuming products are installed")
	}
	return AssumeInstalled{}
}
