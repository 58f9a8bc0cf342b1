//go:build windows

package inventory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sys/windows/registry"
)

// uninstallKeys lists the HKLM keys holding one subkey per installed program.
// 32-bit installers register under WOW6432Node on 64-bit Windows.
var uninstallKeys = []string{
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`,
	`SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
}

// Registry queries the Windows uninstall registry.
type Registry struct {
	logger *slog.Logger
}

// NewRegistry creates a registry-backed Inventory.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{logger: logger}
}

// IsProductInstalled reports whether any uninstall entry has a DisplayName
// equal to displayName.
func (r *Registry) IsProductInstalled(displayName string) (bool, error) {
	opened := 0
	for _, path := range uninstallKeys {
		found, err := r.scan(path, displayName)
		if err != nil {
			if errors.Is(err, registry.ErrNotExist) {
				continue
			}
			return false, err
		}
		opened++
		if found {
			return true, nil
		}
	}
	if opened == 0 {
		return false, fmt.Errorf("no uninstall registry key could be opened")
	}
	return false, nil
}

func (r *Registry) scan(path, displayName string) (bool, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, path, registry.ENUMERATE_SUB_KEYS|registry.QUERY_VALUE)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer key.Close()

	names, err := key.ReadSubKeyNames(-1)
	if err != nil {
		return false, fmt.Errorf("enumerate %s: %w", path, err)
	}
	for _, name := range names {
		sub, err := registry.OpenKey(key, name, registry.QUERY_VALUE)
		if err != nil {
			r.logger.Debug("skipping unreadable uninstall entry", "key", name, "error", err)
			continue
		}
		value, _, err := sub.GetStringValue("DisplayName")
		sub.Close()
		if err != nil {
			continue
		}
		if value == displayName {
			return true, nil
		}
	}
	return false, nil
}
