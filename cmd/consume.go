package cmd

import (
	"fmt"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/spf13/cobra"
)

func newConsumeCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "consume <proposal|request>",
		Short: "Count one monthly quota action for the acting account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			result, err := app.lifecycle.TryConsume(cmd.Context(), actor, domain.ActionKind(args[0]))
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				return writeJSON(cmd, result)
			}
			return writeConsumeResult(cmd, result)
		},
	}
}

func writeConsumeResult(cmd *cobra.Command, result domain.ConsumeResult) error {
	if result.Unlimited() {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s counted for %s (unlimited plan)\n", result.Action, result.Month)
		return err
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s counted for %s: %d/%d used, %d left\n",
		result.Action, result.Month, result.Count, result.Limit, result.Remaining())
	return err
}
