package cmd

import (
	"fmt"
	"time"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/spf13/cobra"
)

func newPlanCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage account plans",
	}

	cmd.AddCommand(newPlanSetCmd(app))
	return cmd
}

func newPlanSetCmd(app *app) *cobra.Command {
	var (
		expires     string
		searchLimit int
	)

	cmd := &cobra.Command{
		Use:   "set <account-id> <free|pro|enterprise>",
		Short: "Assign a plan to an account (administrator)",
		Long:  "Assign a plan. Paid plans need --expires; the plan lasts through the end of that day in UTC.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}

			target := domain.AccountID(args[0])
			planCmd := application.SetPlanCommand{
				ActorID:  actor,
				TargetID: target,
				Plan:     domain.Plan(args[1]),
			}
			if expires != "" {
				day, err := time.Parse(time.DateOnly, expires)
				if err != nil {
					return fmt.Errorf("--expires must be YYYY-MM-DD: %w", err)
				}
				planCmd.ExpiryDate = &day
			}
			if cmd.Flags().Changed("follower-search-limit") {
				planCmd.FollowerSearchLimit = &searchLimit
			}

			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			snapshot, err := app.lifecycle.SetPlan(cmd.Context(), planCmd)
			if err != nil {
				return err
			}

			app.publish(cmd.Context(), ports.LifecycleEvent{Type: ports.EventPlanChanged, AccountID: target, ActorID: actor, Plan: snapshot.Account.Plan})
			return writeSnapshotOutput(cmd, app, snapshot)
		},
	}

	cmd.Flags().StringVar(&expires, "expires", "", "last day of a paid plan (YYYY-MM-DD)")
	cmd.Flags().IntVar(&searchLimit, "follower-search-limit", 0, "company follower search limit: 10000, 50000, 100000 or -1 for unlimited")
	return cmd
}
