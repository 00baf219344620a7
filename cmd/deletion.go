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

func newDeletionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deletion",
		Short: "Request, cancel and carry out account deletion",
	}

	cmd.AddCommand(
		newDeletionRequestCmd(app),
		newDeletionCancelCmd(app),
		newDeletionPurgeableCmd(app),
		newDeletionPurgeCmd(app),
	)
	return cmd
}

func newDeletionRequestCmd(app *app) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request deletion of the acting account",
		Long:  "Request deletion of the acting account. The account can be restored with 'deletion cancel' until the 30-day grace period ends.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			snapshot, err := app.lifecycle.RequestDeletion(cmd.Context(), actor, confirm)
			if err != nil {
				return err
			}

			app.afterTransition(cmd.Context(), actor, actor, snapshot)
			return writeSnapshotOutput(cmd, app, snapshot)
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the deletion request")
	return cmd
}

func newDeletionCancelCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Withdraw the acting account's deletion request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			snapshot, err := app.lifecycle.CancelDeletion(cmd.Context(), actor)
			if err != nil {
				return err
			}

			app.afterTransition(cmd.Context(), actor, actor, snapshot)
			return writeSnapshotOutput(cmd, app, snapshot)
		},
	}
}

func newDeletionPurgeableCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purgeable",
		Short: "List accounts whose deletion grace period has ended",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			var candidates []application.PurgeCandidate
			err := withScanSpinner(cmd, "Scanning deletion requests...", func(ctx context.Context) error {
				var scanErr error
				candidates, scanErr = app.lifecycle.ScanPurgeable(ctx)
				return scanErr
			})
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				if candidates == nil {
					candidates = []application.PurgeCandidate{}
				}
				return writeJSON(cmd, candidates)
			}

			rendered, err := statusadapter.RenderPurgeable(candidates, app.now())
			if err != nil {
				return fmt.Errorf("render purge review: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}

func newDeletionPurgeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <account-id>",
		Short: "Hard delete an account past its grace period (administrator)",
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
			snapshot, err := app.lifecycle.HardDelete(cmd.Context(), actor, target)
			if err != nil {
				return err
			}

			app.publish(cmd.Context(), ports.LifecycleEvent{Type: ports.EventDeleted, AccountID: target, ActorID: actor, Status: domain.StatusDeleted})
			if jsonOutput(cmd) {
				return writeJSON(cmd, snapshot)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", target)
			return err
		},
	}
}
