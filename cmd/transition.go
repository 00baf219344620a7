package cmd

import (
	"context"
	"fmt"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/spf13/cobra"
)

func newTransitionCmd(app *app) *cobra.Command {
	var (
		expectFrom string
		confirm    bool
	)

	cmd := &cobra.Command{
		Use:   "transition <account-id> <status>",
		Short: "Move an account along a lifecycle edge",
		Long: "Move an account to another status. The acting account must be allowed to fire the edge:\n" +
			"approve, reject, suspend, reactivate and set dormant are administrator actions on other accounts;\n" +
			"profile completion and deletion requests are the owner's.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}

			to := domain.Status(args[1])
			if !to.Valid() {
				return fmt.Errorf("unknown status %q", args[1])
			}
			from := domain.Status(expectFrom)
			if from != "" && !from.Valid() {
				return fmt.Errorf("unknown status %q", expectFrom)
			}

			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			target := domain.AccountID(args[0])
			snapshot, err := app.lifecycle.RequestTransition(cmd.Context(), application.TransitionCommand{
				ActorID:      actor,
				TargetID:     target,
				To:           to,
				ExpectedFrom: from,
				Confirmed:    confirm,
			})
			if err != nil {
				return err
			}

			app.afterTransition(cmd.Context(), actor, target, snapshot)
			return writeSnapshotOutput(cmd, app, snapshot)
		},
	}

	cmd.Flags().StringVar(&expectFrom, "expect-from", "", "only apply when the account is still in this status")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm an action that needs explicit confirmation")
	return cmd
}

func (a *app) afterTransition(ctx context.Context, actor, target domain.AccountID, snapshot domain.AccountSnapshot) {
	eventType := ports.EventStatusChanged
	if snapshot.Account.Status == domain.StatusDeleted {
		eventType = ports.EventDeleted
	}
	a.publish(ctx, ports.LifecycleEvent{Type: eventType, AccountID: target, ActorID: actor, Status: snapshot.Account.Status})
}
