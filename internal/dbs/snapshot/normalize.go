package snapshot

import "strings"

const (
	extendedPathPrefix = `\\?\`
	uncMarker          = `UNC\`
)

// NormalizeLinkTarget turns a final-path result into the form stored in
// snapshots: the \\?\ prefix is dropped, a leading UNC\ becomes \\ and
// trailing separators are trimmed.
func NormalizeLinkTarget(p string) string {
	p = strings.TrimPrefix(p, extendedPathPrefix)
	if strings.HasPrefix(p, uncMarker) {
		p = `\\` + strings.TrimPrefix(p, uncMarker)
	}
	trimmed := strings.TrimRight(p, `\/`)
	if trimmed == "" || strings.HasSuffix(trimmed, ":") {
		// keep "/" and "C:\" intact
		return p
	}
	return trimmed
}
