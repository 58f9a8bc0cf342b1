package cli

import "errors"

var (
	// ErrPromptCancelled indicates that the user left an interactive menu or prompt.
	ErrPromptCancelled = errors.New("prompt cancelled")
	// ErrNoSelectableSnapshots is returned by use when no saved snapshot of
	// the product can be applied.
	ErrNoSelectableSnapshots = errors.New("no snapshots to choose from")
	// ErrNoConfiguration is returned by config subcommands run without a loaded asdbs config.
	ErrNoConfiguration = errors.New("no configuration loaded")
)
