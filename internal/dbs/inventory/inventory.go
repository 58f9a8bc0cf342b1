// Package inventory answers whether a product is installed on this machine.
package inventory

import (
	"strings"
)

// Inventory looks up installed software by its display name, for example
// "Advance Steel 2019".
type Inventory interface {
	IsProductInstalled(displayName string) (bool, error)
}

// Static is an Inventory backed by a fixed list of display names.
type Static struct {
	names []string
}

// NewStatic creates a Static inventory. Names are matched exactly after
// trimming surrounding whitespace.
func NewStatic(names []string) *Static {
	cleaned := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			cleaned = append(cleaned, n)
		}
	}
	return &Static{names: cleaned}
}

// IsProductInstalled reports whether displayName is in the list.
func (s *Static) IsProductInstalled(displayName string) (bool, error) {
	for _, n := range s.names {
		if n == displayName {
			return true, nil
		}
	}
	return false, nil
}

// AssumeInstalled reports every product as installed. It is used on hosts
// without a software registry when no explicit list is configured.
type AssumeInstalled struct{}

// IsProductInstalled always returns true.
func (AssumeInstalled) IsProductInstalled(string) (bool, error) {
	return true, nil
}
