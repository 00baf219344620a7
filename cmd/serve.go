package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/collab-lifecycle/internal/adapters/httpapi"
	"github.com/bnema/collab-lifecycle/internal/adapters/schedule"
	"github.com/bnema/collab-lifecycle/internal/logging"
	"github.com/spf13/cobra"
)

const serveShutdownTimeout = 15 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var (
		listen   string
		scanSpec string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lifecycle operations over HTTP and run the review scans",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("listen") {
				listen = app.cfg.GetString("http.listen")
			}
			if !cmd.Flags().Changed("schedule") {
				scanSpec = app.cfg.GetString("scan.schedule")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.open(ctx); err != nil {
				return err
			}
			key, err := app.signingKey(ctx)
			if err != nil {
				return err
			}

			listener, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", listen, err)
			}
			return app.serve(ctx, listener, key, scanSpec)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from http.listen)")
	cmd.Flags().StringVar(&scanSpec, "schedule", "", "cron spec for review scans, \"off\" to disable (default from scan.schedule)")
	return cmd
}

// serve runs the HTTP API on listener until ctx ends, then drains requests
// and the scheduler.
func (a *app) serve(ctx context.Context, listener net.Listener, key []byte, spec string) error {
	logger := logging.Component(a.logger, "http")
	metrics := httpapi.NewMetrics()
	auth := httpapi.NewAuthenticator(key, a.cfg.GetString("http.issuer"))
	handler := httpapi.NewHandler(a.lifecycle, a.events, metrics, logger)

	srv := &http.Server{
		Handler:           httpapi.NewRouter(handler, auth, metrics, logger),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var scheduler *schedule.Scheduler
	if spec != "off" {
		scheduler = schedule.New(a.lifecycle, logging.Component(a.logger, "schedule"))
		if err := scheduler.Start(spec); err != nil {
			_ = listener.Close()
			return err
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", listener.Addr().String()).Msg("serving lifecycle API")
		serveErr <- srv.Serve(listener)
	}()

	var err error
	select {
	case err = <-serveErr:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serveShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		err = errors.Join(err, fmt.Errorf("shut down http server: %w", shutdownErr))
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
