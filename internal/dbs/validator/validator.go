// Package validator checks snapshot labels before they reach the snapshot store.
package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/OpenGG/asdbs/internal/dbs/domain"
	"github.com/OpenGG/asdbs/internal/dbs/paths"
)

// maxFileNameUnits is the NTFS limit for one path component, in UTF-16 units.
const maxFileNameUnits = 255

var (
	deviceNamePattern  = regexp.MustCompile(`^(?i)(con|prn|aux|nul|com[1-9]|lpt[1-9])$`)
	forbiddenCharsPattern = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// Validator checks snapshot labels. The label is the stem of
// <label>.config.json in the store directory, and the store is usually shared
// with Windows machines, so the Windows file name rules apply everywhere.
type Validator struct{}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// ValidateLabel reports whether label can name a saved snapshot.
//
// Surrounding whitespace is ignored. Letters outside ASCII are fine, labels
// such as "Łódź serwer" are common. A rejected label comes back with an error
// wrapping one of the domain.ErrSnapshotName sentinels.
func (v *Validator) ValidateLabel(label string) (bool, error) {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return false, domain.ErrSnapshotNameEmpty
	}
	if trimmed == "." || trimmed == ".." {
		return false, domain.ErrSnapshotNameDot
	}
	if strings.ContainsRune(trimmed, 0) {
		return false, domain.ErrSnapshotNameNullByte
	}
	for _, r := range trimmed {
		if r == unicode.ReplacementChar || !unicode.IsPrint(r) {
			return false, fmt.Errorf("%w: %q", domain.ErrSnapshotNameNonPrintable, trimmed)
		}
	}
	if forbiddenCharsPattern.MatchString(trimmed) {
		return false, fmt.Errorf("%w: %q", domain.ErrSnapshotNameInvalidChars, trimmed)
	}
	// Windows resolves "nul.old.config.json" to the NUL device as well.
	stem, _, _ := strings.Cut(trimmed, ".")
	if deviceNamePattern.MatchString(stem) {
		return false, fmt.Errorf("%w: %q", domain.ErrSnapshotNameReserved, trimmed)
	}
	if n := len(utf16.Encode([]rune(trimmed + paths.SnapshotFileSuffix))); n > maxFileNameUnits {
		return false, fmt.Errorf("%w: %d characters over the limit", domain.ErrSnapshotNameTooLong, n-maxFileNameUnits)
	}
	return true, nil
}

// NormalizeLabel returns label without surrounding whitespace, or the reason
// it cannot be used.
func (v *Validator) NormalizeLabel(label string) (string, error) {
	trimmed := strings.TrimSpace(label)
	if ok, err := v.ValidateLabel(trimmed); !ok {
		return "", err
	}
	return trimmed, nil
}
