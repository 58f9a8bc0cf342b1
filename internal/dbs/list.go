package dbs

import (
	"fmt"

	"github.com/OpenGG/asdbs/internal/dbs/domain"
	"github.com/OpenGG/asdbs/internal/dbs/snapshot"
)

// UnsavedLabel is shown when the live configuration matches no saved snapshot.
const UnsavedLabel = "(Current configuration is unsaved)"

// ListEntry describes a saved snapshot for list output.
type ListEntry struct {
	Label    string
	Snapshot *snapshot.Snapshot
	// Prefix is a visual indicator: * active, ! broken, - unavailable, space otherwise.
	Prefix     string
	Qualifiers []string
	Active     bool
	Valid      bool
	Installed  bool
	// Err is set when the snapshot file could not be decoded.
	Err error
	// Plain entries are informational lines rather than snapshots.
	Plain bool
}

// Broken reports whether the snapshot file could not be read.
func (e ListEntry) Broken() bool {
	return e.Err != nil
}

// Selectable reports whether the entry can be applied.
func (e ListEntry) Selectable() bool {
	return !e.Plain && !e.Broken() && e.Installed && e.Valid
}

// ListSnapshots returns the saved snapshots for v, annotated with their state.
//
// Files that fail to decode are listed as broken entries instead of failing
// the whole listing, since their version is unknown. When the live
// configuration is readable and matches no saved snapshot a plain entry
// saying so is appended.
func (m *Manager) ListSnapshots(v domain.Version) ([]ListEntry, error) {
	labels, err := m.store.List()
	if err != nil {
		return nil, err
	}

	current, currentErr := m.reader.ReadCurrent(v)
	if currentErr != nil {
		m.logger.Debug("current configuration unreadable", "version", v, "error", currentErr)
	}
	valid := m.isVersionValid(v)
	installed := m.IsVersionInstalled(v)

	var entries []ListEntry
	activeHandled := false
	for _, label := range labels {
		snap, err := m.store.Load(label)
		if err != nil {
			m.logger.Warn("skipping unreadable snapshot", "label", label, "error", err)
			entries = append(entries, ListEntry{
				Label:      label,
				Prefix:     "!",
				Qualifiers: []string{"broken"},
				Err:        err,
			})
			continue
		}
		if snap.Version != v {
			continue
		}

		entry := ListEntry{
			Label:     label,
			Snapshot:  snap,
			Prefix:    " ",
			Valid:     valid,
			Installed: installed,
		}
		if m.matchesLive(current, snap) {
			entry.Active = true
			entry.Prefix = "*"
			entry.Qualifiers = append(entry.Qualifiers, "active")
			activeHandled = true
		}
		if !installed {
			entry.Prefix = "-"
			entry.Qualifiers = append(entry.Qualifiers, "not installed")
		} else if !valid {
			entry.Prefix = "-"
			entry.Qualifiers = append(entry.Qualifiers, "support directory missing")
		}
		if missing := snap.MissingDataSources(); len(missing) > 0 {
			entry.Qualifiers = append(entry.Qualifiers, fmt.Sprintf("%d data source(s) missing", len(missing)))
		}
		entries = append(entries, entry)
	}

	if current != nil && !activeHandled {
		entries = append(entries, ListEntry{
			Label:    UnsavedLabel,
			Snapshot: current,
			Prefix:   "*",
			Active:   true,
			Plain:    true,
		})
	}
	return entries, nil
}

// matchesLive reports whether snap is the live configuration. Revit snapshots
// bound to their own configuration file are checked against that file.
func (m *Manager) matchesLive(current, snap *snapshot.Snapshot) bool {
	if rt, ok := snap.Revit(); ok && rt.ConfigFileName != "" {
		return m.reader.IsCurrent(snap)
	}
	return current != nil && snapshot.Equal(current, snap, false)
}
