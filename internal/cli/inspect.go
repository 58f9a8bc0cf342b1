package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenGG/asdbs/internal/dbs"
	"github.com/OpenGG/asdbs/internal/dbs/domain"
	"github.com/OpenGG/asdbs/internal/dbs/snapshot"
)

func newVersionsCommand(mgr *dbs.Manager, opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "versions",
		Short: "List supported product versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := opts.version()
			if err != nil {
				return err
			}
			for _, v := range domain.KnownVersions() {
				marker := " "
				if v == selected {
					marker = "*"
				}
				status := "installed"
				if !mgr.IsVersionInstalled(v) {
					status = "not installed"
				}
				fmt.Fprintf(stdout, "%s %-8s %s (%s)\n", marker, v.Tag(), v.DisplayName(), status)
			}
			return nil
		},
	}
}

func newShowCommand(mgr *dbs.Manager, opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "show [label]",
		Short: "Show the live configuration or a saved snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snap *snapshot.Snapshot
			var err error
			if len(args) > 0 {
				snap, err = mgr.LoadSnapshot(args[0])
			} else {
				var v domain.Version
				if v, err = opts.version(); err != nil {
					return err
				}
				snap, err = mgr.ReadCurrent(v)
			}
			if err != nil {
				return err
			}
			printSnapshot(stdout, snap, mgr.IsCurrent(snap))
			return nil
		},
	}
}

func printSnapshot(w io.Writer, s *snapshot.Snapshot, active bool) {
	fmt.Fprintf(w, "Name:    %s\n", s.Name)
	fmt.Fprintf(w, "Product: %s (%s)\n", s.Version.DisplayName(), s.Version.Tag())
	if st, ok := s.Steel(); ok {
		if st.SupportDirIsLink {
			fmt.Fprintf(w, "Support: link -> %s\n", st.SupportDirLinkTarget)
		} else {
			fmt.Fprintln(w, "Support: directory")
		}
	}
	if rt, ok := s.Revit(); ok && rt.ConfigFileName != "" {
		fmt.Fprintf(w, "Config:  %s\n", rt.ConfigFileName)
	}
	fmt.Fprintf(w, "Active:  %s\n", yesNo(active))
	fmt.Fprintln(w, "Data sources:")
	for _, ds := range s.DataSources {
		fmt.Fprintf(w, "  %s = %s\n", ds.Name, ds.Value)
	}
	if missing := s.MissingDataSources(); len(missing) > 0 {
		fmt.Fprintf(w, "Missing required data sources: %s\n", strings.Join(missing, ", "))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newDiffCommand(mgr *dbs.Manager, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <label> [other]",
		Short: "Compare a saved snapshot with another one or with the live configuration",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := mgr.LoadSnapshot(args[0])
			if err != nil {
				return err
			}
			var b *snapshot.Snapshot
			if len(args) > 1 {
				b, err = mgr.LoadSnapshot(args[1])
			} else {
				b, err = mgr.ReadCurrent(a.Version)
			}
			if err != nil {
				return err
			}

			if a.Version != b.Version {
				fmt.Fprintf(stdout, "product differs: %s vs %s\n", a.Version, b.Version)
			}
			diffs := mgr.Compare(a, b)
			for _, d := range diffs {
				fmt.Fprintln(stdout, d)
			}
			if len(diffs) == 0 && a.Version == b.Version {
				fmt.Fprintf(stdout, "%s and %s are identical.\n", a.Name, b.Name)
			}
			return nil
		},
	}
}
