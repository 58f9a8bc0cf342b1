package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Exported error variables allow callers to use errors.Is() for error checking.
var (
	ErrUnsupportedVersion    = errors.New("unsupported product version")
	ErrConfigNotFound        = errors.New("database configuration file not found")
	ErrSupportDirNotFound    = errors.New("support directory not found")
	ErrBackupFailed          = errors.New("backup failed")
	ErrDeleteFailed          = errors.New("delete failed")
	ErrWriteFailed           = errors.New("write failed")
	ErrLinkCreationFailed    = errors.New("link creation failed")
	ErrDirectoryRenameFailed = errors.New("directory rename failed")
	ErrInvalidSnapshot       = errors.New("invalid snapshot")
	ErrSnapshotNotFound      = errors.New("snapshot not found")
	ErrProductNotInstalled   = errors.New("product is not installed")
)

// Snapshot label errors. Labels become file names in the snapshot store.
var (
	ErrSnapshotNameEmpty        = errors.New("snapshot name cannot be empty")
	ErrSnapshotNameDot          = errors.New("snapshot name cannot be '.' or '..'")
	ErrSnapshotNameNonPrintable = errors.New("snapshot name contains non-printable characters")
	ErrSnapshotNameInvalidChars = errors.New("snapshot name contains invalid characters (<>:\"/\\|?*)")
	ErrSnapshotNameReserved     = errors.New("snapshot name is a reserved system filename")
	ErrSnapshotNameNullByte     = errors.New("snapshot name contains null byte")
	ErrSnapshotNameTooLong      = errors.New("snapshot name is too long for a snapshot file name")
)

// Step names one stage of the swap sequence.
type Step string

const (
	StepPreflight      Step = "preflight"
	StepBackupConfig   Step = "backup-config"
	StepDeleteConfig   Step = "delete-config"
	StepBackupSupport  Step = "backup-support"
	StepWriteConfig    Step = "write-config"
	StepRestoreSupport Step = "restore-support"
)

// SwapError reports the step at which a swap stopped. Steps listed in
// Completed have already changed the filesystem and were not rolled back.
type SwapError struct {
	Step       Step
	Completed  []Step
	BackupPath string
	Kind       error
	Err        error
}

func (e *SwapError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "swap failed at %s: %v", e.Step, e.Kind)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Completed) > 0 {
		names := make([]string, len(e.Completed))
		for i, s := range e.Completed {
			names[i] = string(s)
		}
		fmt.Fprintf(&b, " (completed: %s)", strings.Join(names, ", "))
	}
	return b.String()
}

// Unwrap exposes both the taxonomy sentinel and the underlying cause.
func (e *SwapError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Partial reports whether the filesystem was modified before the failure.
func (e *SwapError) Partial() bool {
	return len(e.Completed) > 0
}
