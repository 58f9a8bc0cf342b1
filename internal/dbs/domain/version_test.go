package domain

import (
	"errors"
	"testing"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input string
		want  Version
	}{
		{"AS2019", AS2019},
		{"as2018", AS2018},
		{" AS2023 ", AS2023},
		{"RVT2020", RVT2020},
		{"rvt2023", RVT2023},
		{"2020", AS2020},
		{"92020", RVT2020},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			if err != nil {
				t.Fatalf("ParseVersion(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseVersionUnsupported(t *testing.T) {
	for _, input := range []string{"", "AS", "AS1999", "RVT2019", "ACAD2019", "92019", "abc"} {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseVersion(input); !errors.Is(err, ErrUnsupportedVersion) {
				t.Fatalf("expected ErrUnsupportedVersion for %q, got %v", input, err)
			}
		})
	}
}

func TestVersionCodeRoundTrip(t *testing.T) {
	for _, v := range KnownVersions() {
		got, err := VersionFromCode(v.Code())
		if err != nil {
			t.Fatalf("VersionFromCode(%d): %v", v.Code(), err)
		}
		if got != v {
			t.Errorf("round trip %v -> %d -> %v", v, v.Code(), got)
		}
	}
}

func TestVersionCodeThreshold(t *testing.T) {
	if AS2023.Code() >= revitCodeThreshold {
		t.Fatalf("advance steel code must stay below threshold")
	}
	if RVT2020.Code() != 92020 {
		t.Fatalf("expected 92020, got %d", RVT2020.Code())
	}
	if !RVT2020.IsRevit() || AS2019.IsRevit() {
		t.Fatalf("family detection is wrong")
	}
}

func TestVersionNames(t *testing.T) {
	if got := AS2019.DisplayName(); got != "Advance Steel 2019" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := RVT2023.DisplayName(); got != "Autodesk Revit 2023" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := AS2019.CurrentName(); got != "Current config for AS2019" {
		t.Errorf("CurrentName = %q", got)
	}
	if got := RVT2020.CurrentName(); got != "Current config for RVT2020" {
		t.Errorf("CurrentName = %q", got)
	}
}

func TestSwapErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := error(&SwapError{
		Step:      StepWriteConfig,
		Completed: []Step{StepBackupConfig, StepDeleteConfig, StepBackupSupport},
		Kind:      ErrWriteFailed,
		Err:       cause,
	})
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("expected ErrWriteFailed in chain")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	var swapErr *SwapError
	if !errors.As(err, &swapErr) || !swapErr.Partial() {
		t.Fatalf("expected partial SwapError")
	}
	want := "swap failed at write-config: write failed: disk full (completed: backup-config, delete-config, backup-support)"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n%s", err.Error())
	}
}
