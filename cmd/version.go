package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X github.com/bnema/collab-lifecycle/cmd.Version=...".
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), Version)
			return err
		},
	}
}
