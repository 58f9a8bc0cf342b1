package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/OpenGG/asdbs/internal/config"
	"github.com/OpenGG/asdbs/internal/dbs"
)

func newConfigCommand(mgr *dbs.Manager, opts *rootOptions, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the asdbs configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.env.Config == nil || opts.env.ConfigPath == "" {
				return ErrNoConfiguration
			}
			if err := config.Init(mgr.FileSystem(), opts.env.ConfigPath, opts.env.Config); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Configuration written to %s\n", opts.env.ConfigPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.env.Config == nil {
				return ErrNoConfiguration
			}
			if opts.env.ConfigPath != "" {
				fmt.Fprintf(stdout, "# %s\n", opts.env.ConfigPath)
			}
			m := &config.Manager{}
			return m.Write(stdout, opts.env.Config)
		},
	})

	return cmd
}
