package cmd

import (
	"fmt"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/spf13/cobra"
)

func newUpgradeCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Record and settle manual plan upgrade payments",
	}

	cmd.AddCommand(
		newUpgradeRequestCmd(app),
		newUpgradeListCmd(app),
		newUpgradeCompleteCmd(app),
	)
	return cmd
}

func newUpgradeRequestCmd(app *app) *cobra.Command {
	var depositor string

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Report a bank transfer for a plan upgrade",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			request, err := app.lifecycle.RequestUpgrade(cmd.Context(), actor, depositor)
			if err != nil {
				return err
			}

			app.publish(cmd.Context(), ports.LifecycleEvent{Type: ports.EventUpgradeRequested, AccountID: actor})
			return writeUpgradeRequests(cmd, []domain.UpgradeRequest{request})
		},
	}

	cmd.Flags().StringVar(&depositor, "depositor", "", "name on the bank transfer")
	_ = cmd.MarkFlagRequired("depositor")
	return cmd
}

func newUpgradeListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending upgrade requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			requests, err := app.lifecycle.PendingUpgrades(cmd.Context())
			if err != nil {
				return err
			}
			return writeUpgradeRequests(cmd, requests)
		},
	}
}

func newUpgradeCompleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "complete <request-id>",
		Short: "Mark an upgrade request as settled (administrator)",
		Long:  "Mark an upgrade request as settled. The plan itself is changed separately with 'plan set'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			request, err := app.lifecycle.CompleteUpgrade(cmd.Context(), actor, domain.UpgradeRequestID(args[0]))
			if err != nil {
				return err
			}

			app.publish(cmd.Context(), ports.LifecycleEvent{Type: ports.EventUpgradeCompleted, AccountID: request.AccountID, ActorID: actor})
			return writeUpgradeRequests(cmd, []domain.UpgradeRequest{request})
		},
	}
}

func writeUpgradeRequests(cmd *cobra.Command, requests []domain.UpgradeRequest) error {
	if jsonOutput(cmd) {
		if requests == nil {
			requests = []domain.UpgradeRequest{}
		}
		return writeJSON(cmd, requests)
	}

	if len(requests) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No pending upgrade requests.")
		return err
	}

	for _, request := range requests {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n",
			request.ID, request.AccountID, request.DepositorName, request.Status, request.CreatedAt.UTC().Format("2006-01-02 15:04"))
		if err != nil {
			return err
		}
	}
	return nil
}
