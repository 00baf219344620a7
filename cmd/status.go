package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/collab-lifecycle/internal/adapters/render/status"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show account lifecycle status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			snapshots, err := loadSnapshots(cmd, app, accountID)
			if err != nil {
				return err
			}
			return writeSnapshotsOutput(cmd, app, snapshots)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "show a single account")
	return cmd
}

func loadSnapshots(cmd *cobra.Command, app *app, accountID string) ([]domain.AccountSnapshot, error) {
	if accountID == "" {
		return app.lifecycle.Snapshots(cmd.Context())
	}

	snapshot, err := app.lifecycle.Snapshot(cmd.Context(), domain.AccountID(accountID))
	if err != nil {
		return nil, err
	}
	return []domain.AccountSnapshot{snapshot}, nil
}

func writeSnapshotsOutput(cmd *cobra.Command, app *app, snapshots []domain.AccountSnapshot) error {
	if jsonOutput(cmd) {
		return writeJSON(cmd, snapshots)
	}

	rendered, err := app.statusRenderer(snapshots, statusadapter.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func writeSnapshotOutput(cmd *cobra.Command, app *app, snapshot domain.AccountSnapshot) error {
	return writeSnapshotsOutput(cmd, app, []domain.AccountSnapshot{snapshot})
}

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
