package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/spf13/cobra"
)

func newRegisterCmd(app *app) *cobra.Command {
	var (
		email string
		kind  string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create the account record for the acting principal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			snapshot, err := app.lifecycle.Register(cmd.Context(), application.Principal{ID: actor, Email: email}, domain.Kind(strings.ToUpper(kind)))
			if err != nil {
				return err
			}

			app.publish(cmd.Context(), ports.LifecycleEvent{Type: ports.EventRegistered, AccountID: actor, Status: snapshot.Account.Status})
			return writeSnapshotOutput(cmd, app, snapshot)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "contact email")
	cmd.Flags().StringVar(&kind, "kind", "", "account kind: influencer or company")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func newLoginCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Record a session for the acting account and show its snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			snapshot, err := app.lifecycle.OnLogin(cmd.Context(), actor)
			if err != nil {
				return err
			}
			return writeSnapshotOutput(cmd, app, snapshot)
		},
	}
}

func newProfileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the acting account's profile",
	}

	cmd.AddCommand(newProfileCompleteCmd(app))
	return cmd
}

func newProfileCompleteCmd(app *app) *cobra.Command {
	var profile domain.Profile

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Submit the profile and move the account to review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := app.actorID(cmd)
			if err != nil {
				return err
			}
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			snapshot, err := app.lifecycle.CompleteProfile(cmd.Context(), actor, profile)
			if err != nil {
				return err
			}

			app.publish(cmd.Context(), ports.LifecycleEvent{Type: ports.EventStatusChanged, AccountID: actor, ActorID: actor, Status: snapshot.Account.Status})
			return writeSnapshotOutput(cmd, app, snapshot)
		},
	}

	cmd.Flags().StringVar(&profile.DisplayName, "display-name", "", "public display name")
	cmd.Flags().StringVar(&profile.Bio, "bio", "", "short biography")
	cmd.Flags().StringSliceVar(&profile.Categories, "category", nil, "content category (repeatable)")
	cmd.Flags().StringVar(&profile.InstagramURL, "instagram-url", "", "Instagram profile URL (influencers)")
	cmd.Flags().IntVar(&profile.FollowerCount, "followers", 0, "follower count (influencers)")
	cmd.Flags().StringVar(&profile.WebsiteURL, "website-url", "", "company website URL (companies)")
	cmd.Flags().StringVar(&profile.CompanyDescription, "description", "", "company description (companies)")
	return cmd
}

// newAdminCmd holds operator commands that need direct store access. They
// bypass actor checks and are meant for whoever owns the store.
func newAdminCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Operator commands with direct store access",
	}

	cmd.AddCommand(newAdminGrantCmd(app))
	return cmd
}

func newAdminGrantCmd(app *app) *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "grant <account-id>",
		Short: "Give an account the administrator role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.open(cmd.Context()); err != nil {
				return err
			}

			role := domain.RoleAdmin
			if revoke {
				role = domain.RoleUser
			}

			account, err := app.store.Mutate(cmd.Context(), domain.AccountID(args[0]), func(account *domain.Account) error {
				account.Role = role
				account.UpdatedAt = app.now()
				return nil
			})
			if err != nil {
				return fmt.Errorf("set role for %s: %w", args[0], err)
			}

			app.logger.Info().Str("account_id", string(account.ID)).Str("role", string(role)).Msg("role changed")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", account.ID, account.Role)
			return err
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "return the account to the user role")
	return cmd
}
