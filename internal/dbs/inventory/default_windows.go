//go:build windows

package inventory

import "log/slog"

// Default returns a Static inventory when names are configured and the
// Windows registry otherwise.
func Default(configured []string, logger *slog.Logger) Inventory {
	if len(configured) > 0 {
		return NewStatic(configured)
	}
	return NewRegistry(logger)
}
