package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenGG/asdbs/internal/config"
	"github.com/OpenGG/asdbs/internal/dbs"
	"github.com/OpenGG/asdbs/internal/dbs/domain"
)

// Environment carries what commands need besides the Manager.
type Environment struct {
	Config     *config.Config
	ConfigPath string
	// LogLevel is raised to debug by --verbose when set.
	LogLevel *slog.LevelVar
}

// rootOptions holds the persistent flag values shared by subcommands.
type rootOptions struct {
	env     Environment
	product string
	verbose bool
}

// version returns the product selected with --product, or the configured default.
func (o *rootOptions) version() (domain.Version, error) {
	if o.product != "" {
		return domain.ParseVersion(o.product)
	}
	if o.env.Config == nil {
		return domain.DefaultVersion, nil
	}
	return o.env.Config.Version()
}

// NewRootCommand constructs the root Cobra command for asdbs.
func NewRootCommand(mgr *dbs.Manager, env Environment, prompter Prompter, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{env: env}
	cmd := &cobra.Command{
		Use:   "asdbs",
		Short: "Advance Steel database switcher",
		Long:  "asdbs saves and switches the database configuration of Advance Steel and Revit Steel Connections.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose && opts.env.LogLevel != nil {
				opts.env.LogLevel.Set(slog.LevelDebug)
			}
			_, err := opts.version()
			return err
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.PersistentFlags().StringVarP(&opts.product, "product", "p", "", "Product version, e.g. AS2019 or RVT2020 (default from config)")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newVersionsCommand(mgr, opts, stdout))
	cmd.AddCommand(newShowCommand(mgr, opts, stdout))
	cmd.AddCommand(newListCommand(mgr, opts, stdout))
	cmd.AddCommand(newUseCommand(mgr, opts, prompter, stdout))
	cmd.AddCommand(newSaveCommand(mgr, opts, prompter))
	cmd.AddCommand(newDiffCommand(mgr, stdout))
	cmd.AddCommand(newPruneCommand(mgr, prompter, stdout))
	cmd.AddCommand(newConfigCommand(mgr, opts, stdout))

	return cmd
}

func newListCommand(mgr *dbs.Manager, opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved snapshots for the selected product",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := opts.version()
			if err != nil {
				return err
			}
			entries, err := mgr.ListSnapshots(v)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				qualifier := ""
				if len(entry.Qualifiers) > 0 {
					qualifier = " (" + strings.Join(entry.Qualifiers, ", ") + ")"
				}
				if entry.Plain {
					fmt.Fprintf(stdout, "%s %s%s\n", entry.Prefix, entry.Label, qualifier)
				} else {
					fmt.Fprintf(stdout, "%s [%s]%s\n", entry.Prefix, entry.Label, qualifier)
				}
			}
			if len(entries) == 0 {
				fmt.Fprintf(stdout, "No saved snapshots for %s.\n", v.DisplayName())
			}
			return nil
		},
	}
}

func newUseCommand(mgr *dbs.Manager, opts *rootOptions, prompter Prompter, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use [label]",
		Short: "Apply a saved snapshot to the live configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label := ""
			if len(args) > 0 {
				label = args[0]
				// Early validation of command-line argument
				if valid, err := mgr.ValidateSnapshotName(label); !valid {
					return fmt.Errorf("invalid snapshot name: %w", err)
				}
			} else {
				v, err := opts.version()
				if err != nil {
					return err
				}
				entries, err := mgr.ListSnapshots(v)
				if err != nil {
					return err
				}
				labels, active := selectableLabels(entries)
				if len(labels) == 0 {
					return fmt.Errorf("%w: %s has no usable snapshots in %s", ErrNoSelectableSnapshots, v.DisplayName(), mgr.StoreDir())
				}
				labels = reorderWithDefault(labels, active)
				_, selected, err := prompter.Select("Select snapshot to apply", labels, active)
				if err != nil {
					return err
				}
				label = selected
			}

			snap, err := mgr.Use(label)
			if err != nil {
				reportSwapFailure(cmd.ErrOrStderr(), err)
				return err
			}
			fmt.Fprintf(stdout, "Successfully switched %s to snapshot: %s\n", snap.Version.DisplayName(), label)
			return nil
		},
	}
	return cmd
}

// reportSwapFailure explains what a failed swap left behind.
func reportSwapFailure(w io.Writer, err error) {
	var swapErr *domain.SwapError
	if !errors.As(err, &swapErr) {
		return
	}
	if swapErr.Partial() {
		steps := make([]string, len(swapErr.Completed))
		for i, s := range swapErr.Completed {
			steps[i] = string(s)
		}
		fmt.Fprintf(w, "Warning: the configuration was partially switched (completed: %s).\n", strings.Join(steps, ", "))
	}
	if swapErr.BackupPath != "" {
		fmt.Fprintf(w, "Warning: the previous configuration file was backed up to %s\n", swapErr.BackupPath)
	}
}

// selectableLabels returns the labels that can be applied and the active one, if any.
func selectableLabels(entries []dbs.ListEntry) ([]string, string) {
	var labels []string
	active := ""
	for _, entry := range entries {
		if !entry.Selectable() {
			continue
		}
		labels = append(labels, entry.Label)
		if entry.Active {
			active = entry.Label
		}
	}
	return labels, active
}

const newSnapshotLabel = "[New Snapshot]"

func newSaveCommand(mgr *dbs.Manager, opts *rootOptions, prompter Prompter) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "save [label]",
		Short: "Save the live configuration of the selected product",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := opts.version()
			if err != nil {
				return err
			}
			if _, err := mgr.ReadCurrent(v); err != nil {
				return fmt.Errorf("nothing to save for %s: %w", v.DisplayName(), err)
			}

			target := ""
			overwrite := false
			if len(args) > 0 {
				target = strings.TrimSpace(args[0])
				if valid, err := mgr.ValidateSnapshotName(target); !valid {
					return fmt.Errorf("invalid snapshot name: %w", err)
				}
				exists, err := mgr.SnapshotExists(target)
				if err != nil {
					return err
				}
				overwrite = exists
			} else {
				target, overwrite, err = chooseSaveTarget(cmd, mgr, v, prompter)
				if err != nil {
					return err
				}
			}

			if overwrite && !force {
				confirm, err := prompter.Confirm(fmt.Sprintf("Overwrite snapshot %s", target), false)
				if err != nil {
					return err
				}
				if !confirm {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted saving snapshot.")
					return nil
				}
			}

			if _, err := mgr.SaveCurrent(v, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully saved current %s configuration as: %s\n", v.DisplayName(), target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing snapshot without asking")

	return cmd
}

// chooseSaveTarget asks for an existing snapshot to overwrite or a new label.
func chooseSaveTarget(cmd *cobra.Command, mgr *dbs.Manager, v domain.Version, prompter Prompter) (string, bool, error) {
	names, err := mgr.SnapshotLabels()
	if err != nil {
		return "", false, err
	}
	entries, err := mgr.ListSnapshots(v)
	if err != nil {
		return "", false, err
	}
	defaultValue := newSnapshotLabel
	for _, entry := range entries {
		if entry.Active && !entry.Plain {
			defaultValue = entry.Label
			break
		}
	}
	names = reorderWithDefault(names, defaultValue)
	items := append([]string{newSnapshotLabel}, names...)
	_, selection, err := prompter.Select("Select destination to save the current configuration", items, defaultValue)
	if err != nil {
		return "", false, err
	}
	if selection != newSnapshotLabel {
		return selection, true, nil
	}

	for {
		name, err := prompter.Prompt("Enter a name for the new snapshot")
		if err != nil {
			return "", false, err
		}
		name = strings.TrimSpace(name)
		valid, vErr := mgr.ValidateSnapshotName(name)
		if !valid {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", vErr.Error())
			continue
		}
		exists, err := mgr.SnapshotExists(name)
		if err != nil {
			return "", false, err
		}
		if exists {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: Snapshot '%s' already exists.\n", name)
			continue
		}
		return name, false, nil
	}
}

func newPruneCommand(mgr *dbs.Manager, prompter Prompter, stdout io.Writer) *cobra.Command {
	var olderThanStr string
	var force bool

	cmd := &cobra.Command{
		Use:   "prune-backups",
		Short: "Remove outdated configuration backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			choice := olderThanStr
			if choice == "" {
				options := []string{"30d", "90d", "180d", "Cancel"}
				_, selected, err := prompter.Select("Prune backups older than", options, "30d")
				if err != nil {
					return err
				}
				if selected == "Cancel" {
					fmt.Fprintln(stdout, "Prune cancelled.")
					return nil
				}
				choice = selected
			}
			duration, err := dbs.ParseRetentionInterval(choice)
			if err != nil {
				return err
			}

			if !force {
				confirm, err := prompter.Confirm(fmt.Sprintf("Delete backups older than %s", choice), false)
				if err != nil {
					return err
				}
				if !confirm {
					fmt.Fprintln(stdout, "Prune cancelled.")
					return nil
				}
			}

			count, err := mgr.PruneBackups(duration)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Deleted %d backup(s).\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThanStr, "older-than", "", "Delete backups older than the specified duration (e.g. 30d, 12h)")
	cmd.Flags().BoolVar(&force, "force", false, "Do not prompt for confirmation")

	return cmd
}

// reorderWithDefault moves the default value to the front of the list.
// If defaultValue is empty or not found, or already first, returns items unchanged.
func reorderWithDefault(items []string, defaultValue string) []string {
	if defaultValue == "" {
		return items
	}

	idx := -1
	for i, item := range items {
		if item == defaultValue {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return items
	}

	reordered := make([]string, 0, len(items))
	reordered = append(reordered, defaultValue)
	reordered = append(reordered, items[:idx]...)
	reordered = append(reordered, items[idx+1:]...)
	return reordered
}
