package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Family separates the two products whose database configuration can be swapped.
type Family int

const (
	// FamilyAdvanceSteel is the CAD product. It owns a support directory.
	FamilyAdvanceSteel Family = iota + 1
	// FamilyRevit is Revit Steel Connections. It has no support directory.
	FamilyRevit
)

const (
	// revitCodeThreshold partitions integer version codes: codes at or above it are Revit.
	revitCodeThreshold = 3000
	// revitCodeOffset is subtracted from a Revit code to recover its year.
	revitCodeOffset = 90000
)

func (f Family) String() string {
	switch f {
	case FamilyAdvanceSteel:
		return "Advance Steel"
	case FamilyRevit:
		return "Revit"
	default:
		return "unknown"
	}
}

func (f Family) tagPrefix() string {
	if f == FamilyRevit {
		return "RVT"
	}
	return "AS"
}

// Version identifies one product release.
type Version struct {
	Family Family
	Year   int
}

var (
	AS2018  = Version{FamilyAdvanceSteel, 2018}
	AS2019  = Version{FamilyAdvanceSteel, 2019}
	AS2020  = Version{FamilyAdvanceSteel, 2020}
	AS2023  = Version{FamilyAdvanceSteel, 2023}
	RVT2020 = Version{FamilyRevit, 2020}
	RVT2023 = Version{FamilyRevit, 2023}
)

// DefaultVersion is used when a saved snapshot carries no version.
var DefaultVersion = AS2019

var knownVersions = []Version{AS2018, AS2019, AS2020, AS2023, RVT2020, RVT2023}

// KnownVersions returns every supported version in display order.
func KnownVersions() []Version {
	out := make([]Version, len(knownVersions))
	copy(out, knownVersions)
	return out
}

// IsKnown reports whether v is a supported version.
func (v Version) IsKnown() bool {
	for _, k := range knownVersions {
		if k == v {
			return true
		}
	}
	return false
}

// IsRevit reports whether v belongs to the Revit family.
func (v Version) IsRevit() bool {
	return v.Family == FamilyRevit
}

// Tag returns the short form used on the command line, e.g. AS2019 or RVT2020.
func (v Version) Tag() string {
	return fmt.Sprintf("%s%d", v.Family.tagPrefix(), v.Year)
}

func (v Version) String() string {
	return v.Tag()
}

// DisplayName is the exact name the product registers in the host software inventory.
func (v Version) DisplayName() string {
	if v.IsRevit() {
		return fmt.Sprintf("Autodesk Revit %d", v.Year)
	}
	return fmt.Sprintf("Advance Steel %d", v.Year)
}

// CurrentName is the derived name of a snapshot read from live state.
func (v Version) CurrentName() string {
	return "Current config for " + v.Tag()
}

// Code returns the integer encoding stored in snapshot files.
func (v Version) Code() int {
	if v.IsRevit() {
		return v.Year + revitCodeOffset
	}
	return v.Year
}

// VersionFromCode decodes the integer encoding stored in snapshot files.
func VersionFromCode(code int) (Version, error) {
	var v Version
	if code >= revitCodeThreshold {
		v = Version{Family: FamilyRevit, Year: code - revitCodeOffset}
	} else {
		v = Version{Family: FamilyAdvanceSteel, Year: code}
	}
	if !v.IsKnown() {
		return Version{}, fmt.Errorf("%w: code %d", ErrUnsupportedVersion, code)
	}
	return v, nil
}

// ParseVersion accepts a tag such as "AS2019" or "rvt2020", or a bare integer code.
func ParseVersion(input string) (Version, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if s == "" {
		return Version{}, fmt.Errorf("%w: empty version", ErrUnsupportedVersion)
	}
	if code, err := strconv.Atoi(s); err == nil {
		return VersionFromCode(code)
	}

	var family Family
	var rest string
	switch {
	case strings.HasPrefix(s, "RVT"):
		family, rest = FamilyRevit, strings.TrimPrefix(s, "RVT")
	case strings.HasPrefix(s, "AS"):
		family, rest = FamilyAdvanceSteel, strings.TrimPrefix(s, "AS")
	default:
		return Version{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, input)
	}
	year, err := strconv.Atoi(rest)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, input)
	}
	v := Version{Family: family, Year: year}
	if !v.IsKnown() {
		return Version{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, input)
	}
	return v, nil
}
