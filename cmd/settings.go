package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/spf13/cobra"
)

func newSettingsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change per-kind plan settings",
	}

	cmd.AddCommand(
		newSettingsShowCmd(app),
		newSettingsSetCmd(app),
	)
	return cmd
}

func newSettingsShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <influencer|company>",
		Short: "Show plan settings for an account kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			settings, err := app.lifecycle.PlanSettings(cmd.Context(), parseKind(args[0]))
			if err != nil {
				return err
			}
			return writeSettings(cmd, settings)
		},
	}
}

func newSettingsSetCmd(app *app) *cobra.Command {
	var (
		monthlyLimit int
		price        string
		instructions string
	)

	cmd := &cobra.Command{
		Use:   "set <influencer|company>",
		Short: "Change plan settings for an account kind (administrator)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			kind := parseKind(args[0])
			settings, err := app.lifecycle.PlanSettings(cmd.Context(), kind)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("monthly-limit") {
				settings.MonthlyLimit = &monthlyLimit
			}
			if cmd.Flags().Changed("price") {
				settings.Price = price
			}
			if cmd.Flags().Changed("payment-instructions") {
				settings.PaymentInstructions = instructions
			}

			err = app.lifecycle.SavePlanSettings(cmd.Context(), application.SaveSettingsCommand{ActorID: actor, Settings: settings})
			if err != nil {
				return err
			}
			return writeSettings(cmd, settings)
		},
	}

	cmd.Flags().IntVar(&monthlyLimit, "monthly-limit", 0, "monthly action limit for free accounts of this kind")
	cmd.Flags().StringVar(&price, "price", "", "displayed paid plan price")
	cmd.Flags().StringVar(&instructions, "payment-instructions", "", "displayed bank transfer instructions")
	return cmd
}

func parseKind(raw string) domain.Kind {
	return domain.Kind(strings.ToUpper(strings.TrimSpace(raw)))
}

func writeSettings(cmd *cobra.Command, settings domain.PlanSettings) error {
	if jsonOutput(cmd) {
		return writeJSON(cmd, settings)
	}

	configured := "default"
	if settings.MonthlyLimit != nil {
		configured = "configured"
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "kind: %s\nmonthly limit: %d (%s)\n", settings.Kind, settings.EffectiveLimit(), configured); err != nil {
		return err
	}
	if settings.Price != "" {
		if _, err := fmt.Fprintf(out, "price: %s\n", settings.Price); err != nil {
			return err
		}
	}
	if settings.PaymentInstructions != "" {
		if _, err := fmt.Fprintf(out, "payment instructions: %s\n", settings.PaymentInstructions); err != nil {
			return err
		}
	}
	return nil
}
