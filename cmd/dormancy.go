package cmd

import (
	"context"
	"fmt"

	statusadapter "github.com/bnema/collab-lifecycle/internal/adapters/render/status"
	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/spf13/cobra"
)

func newDormancyCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dormancy",
		Short: "Review and apply dormancy",
	}

	cmd.AddCommand(
		newDormancyScanCmd(app),
		newDormancyMarkCmd(app),
	)
	return cmd
}

func newDormancyScanCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "List accounts eligible for or approaching dormancy",
		Long:  "List active accounts without a login for twelve months (eligible) or eleven months (approaching). Nothing is changed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			var report application.DormancyReport
			err := withScanSpinner(cmd, "Scanning for inactive accounts...", func(ctx context.Context) error {
				var scanErr error
				report, scanErr = app.lifecycle.ScanDormancy(ctx)
				return scanErr
			})
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, report)
			}

			rendered, err := statusadapter.RenderDormancy(report)
			if err != nil {
				return fmt.Errorf("render dormancy report: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}

func newDormancyMarkCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <account-id>",
		Short: "Set an eligible account dormant (administrator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			target := domain.AccountID(args[0])
			snapshot, err := app.lifecycle.MarkDormant(cmd.Context(), actor, target)
			if err != nil {
				return err
			}

			app.publish(cmd.Context(), ports.LifecycleEvent{Type: ports.EventStatusChanged, AccountID: target, ActorID: actor, Status: snapshot.Account.Status})
			return writeSnapshotOutput(cmd, app, snapshot)
		},
	}
}
