// Package snapshot models a saved database configuration: the ordered list of
// data sources plus the product specific target state.
package snapshot

import (
	"fmt"

	"github.com/OpenGG/asdbs/internal/dbs/domain"
)

// DataSource is one logical database alias written to DatabaseConfiguration.xml.
type DataSource struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// Target holds the product specific part of a snapshot. It is either
// SteelTarget or RevitTarget.
type Target interface {
	family() domain.Family
}

// SteelTarget describes the Advance Steel support directory.
type SteelTarget struct {
	SupportDirIsLink bool
	// SupportDirLinkTarget is normalised and only meaningful when SupportDirIsLink is set.
	SupportDirLinkTarget string
}

func (SteelTarget) family() domain.Family { return domain.FamilyAdvanceSteel }

// RevitTarget names the configuration file Revit Steel Connections reads.
type RevitTarget struct {
	ConfigFileName string
}

func (RevitTarget) family() domain.Family { return domain.FamilyRevit }

// Snapshot is a named configuration bundle. Snapshots are never mutated by
// the swap engine.
type Snapshot struct {
	Name        string
	Version     domain.Version
	DataSources []DataSource
	Target      Target
}

// NewSteel builds an Advance Steel snapshot.
func NewSteel(name string, v domain.Version, sources []DataSource, isLink bool, linkTarget string) (*Snapshot, error) {
	if v.IsRevit() {
		return nil, fmt.Errorf("%w: %s is not an Advance Steel version", domain.ErrInvalidSnapshot, v)
	}
	target := SteelTarget{SupportDirIsLink: isLink}
	if isLink {
		target.SupportDirLinkTarget = NormalizeLinkTarget(linkTarget)
	}
	return &Snapshot{Name: name, Version: v, DataSources: sources, Target: target}, nil
}

// NewRevit builds a Revit snapshot.
func NewRevit(name string, v domain.Version, sources []DataSource, configFile string) (*Snapshot, error) {
	if !v.IsRevit() {
		return nil, fmt.Errorf("%w: %s is not a Revit version", domain.ErrInvalidSnapshot, v)
	}
	return &Snapshot{Name: name, Version: v, DataSources: sources, Target: RevitTarget{ConfigFileName: configFile}}, nil
}

// Steel returns the Advance Steel target and whether the snapshot has one.
func (s *Snapshot) Steel() (SteelTarget, bool) {
	t, ok := s.Target.(SteelTarget)
	return t, ok
}

// Revit returns the Revit target and whether the snapshot has one.
func (s *Snapshot) Revit() (RevitTarget, bool) {
	t, ok := s.Target.(RevitTarget)
	return t, ok
}

// Validate checks the structural invariants needed before a swap may touch the filesystem.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", domain.ErrInvalidSnapshot)
	}
	if !s.Version.IsKnown() {
		return fmt.Errorf("%w: %w: %s", domain.ErrInvalidSnapshot, domain.ErrUnsupportedVersion, s.Version)
	}
	if s.Target == nil {
		return fmt.Errorf("%w: missing target", domain.ErrInvalidSnapshot)
	}
	if s.Target.family() != s.Version.Family {
		return fmt.Errorf("%w: target does not match %s", domain.ErrInvalidSnapshot, s.Version)
	}
	if st, ok := s.Steel(); ok && st.SupportDirIsLink && st.SupportDirLinkTarget == "" {
		return fmt.Errorf("%w: support directory is a link but no link target is set", domain.ErrInvalidSnapshot)
	}

	seen := make(map[string]struct{}, len(s.DataSources))
	for i, ds := range s.DataSources {
		if ds.Name == "" {
			return fmt.Errorf("%w: data source %d has no name", domain.ErrInvalidSnapshot, i)
		}
		if _, dup := seen[ds.Name]; dup {
			return fmt.Errorf("%w: duplicate data source %q", domain.ErrInvalidSnapshot, ds.Name)
		}
		seen[ds.Name] = struct{}{}
	}
	return nil
}

// Equal compares data sources element-wise in order and, when both sides are
// Advance Steel, the support directory state. Names are compared only if withName is set.
func Equal(a, b *Snapshot, withName bool) bool {
	return len(differences(a, b, withName, true)) == 0
}

// Diff lists human readable differences between a and b, ignoring names.
// An empty result means Equal(a, b, false).
func Diff(a, b *Snapshot) []string {
	return differences(a, b, false, false)
}

func differences(a, b *Snapshot, withName, firstOnly bool) []string {
	if a == nil || b == nil {
		return []string{"missing snapshot"}
	}
	var diffs []string
	add := func(format string, args ...any) bool {
		diffs = append(diffs, fmt.Sprintf(format, args...))
		return firstOnly
	}

	if len(a.DataSources) != len(b.DataSources) {
		if add("data source count differs: %d vs %d", len(a.DataSources), len(b.DataSources)) {
			return diffs
		}
	}
	n := min(len(a.DataSources), len(b.DataSources))
	for i := 0; i < n; i++ {
		ads, bds := a.DataSources[i], b.DataSources[i]
		if ads.Name != bds.Name {
			if add("data source %d name differs: %q vs %q", i, ads.Name, bds.Name) {
				return diffs
			}
			continue
		}
		if ads.Value != bds.Value {
			if add("data source %s differs: %q vs %q", ads.Name, ads.Value, bds.Value) {
				return diffs
			}
		}
	}

	as, aok := a.Steel()
	bs, bok := b.Steel()
	if aok && bok {
		if as.SupportDirIsLink != bs.SupportDirIsLink {
			if add("support directory link differs: %t vs %t", as.SupportDirIsLink, bs.SupportDirIsLink) {
				return diffs
			}
		} else if as.SupportDirIsLink && NormalizeLinkTarget(as.SupportDirLinkTarget) != NormalizeLinkTarget(bs.SupportDirLinkTarget) {
			if add("support link target differs: %q vs %q", as.SupportDirLinkTarget, bs.SupportDirLinkTarget) {
				return diffs
			}
		}
	}

	if withName && a.Name != b.Name {
		add("name differs: %q vs %q", a.Name, b.Name)
	}
	return diffs
}
