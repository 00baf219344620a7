package cmd

import (
	"fmt"
	"time"

	"github.com/bnema/collab-lifecycle/internal/adapters/httpapi"
	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/spf13/cobra"
)

func newTokenCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue bearer tokens for the HTTP API",
	}

	cmd.AddCommand(newTokenIssueCmd(app))
	return cmd
}

func newTokenIssueCmd(app *app) *cobra.Command {
	var (
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "issue <account-id>",
		Short: "Sign a bearer token for a principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := app.signingKey(cmd.Context())
			if err != nil {
				return err
			}

			auth := httpapi.NewAuthenticator(key, app.cfg.GetString("http.issuer"))
			token, err := auth.Issue(application.Principal{ID: domain.AccountID(args[0]), Email: email}, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
