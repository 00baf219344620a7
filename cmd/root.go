package cmd

import (
	"errors"
	"fmt"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/spf13/cobra"
)

var errNoActor = errors.New("no acting account: pass --as or set CLC_ACTOR")

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "clc",
		Short:         "Collab lifecycle CLI (clc): run account lifecycle and quota operations",
		Long:          "clc drives the account lifecycle core: registration and review, plan expiry, monthly action quotas, dormancy and deletion reviews. It can also serve the same operations over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentFlags().String("as", "", "account id the command acts as (default $CLC_ACTOR)")
	rootCmd.PersistentFlags().Bool("json", false, "print machine-readable JSON")
	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRegisterCmd(app),
		newLoginCmd(app),
		newProfileCmd(app),
		newTransitionCmd(app),
		newConsumeCmd(app),
		newDormancyCmd(app),
		newDeletionCmd(app),
		newPlanCmd(app),
		newUpgradeCmd(app),
		newSettingsCmd(app),
		newAdminCmd(app),
		newStatusCmd(app),
		newTokenCmd(app),
		newServeCmd(app),
	)

	return rootCmd
}

// actorID returns the account the command acts as.
func (a *app) actorID(cmd *cobra.Command) (domain.AccountID, error) {
	actor, err := cmd.Flags().GetString("as")
	if err != nil {
		return "", fmt.Errorf("read --as: %w", err)
	}
	if actor == "" {
		actor = a.cfg.GetString("actor")
	}
	if actor == "" {
		return "", errNoActor
	}
	return domain.AccountID(actor), nil
}

func jsonOutput(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}
