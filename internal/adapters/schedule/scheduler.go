package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const DefaultSpec = "0 3 * * *"

// Reviewer is the read-only part of the lifecycle the scheduled jobs call.
type Reviewer interface {
	ScanDormancy(ctx context.Context) (application.DormancyReport, error)
	ScanPurgeable(ctx context.Context) ([]application.PurgeCandidate, error)
}

// Scheduler runs the dormancy and purge review scans on a cron spec. It only
// logs what an administrator should look at; it never changes an account.
type Scheduler struct {
	cron     *cron.Cron
	reviewer Reviewer
	logger   zerolog.Logger
	timeout  time.Duration
}

func New(reviewer Reviewer, logger zerolog.Logger) *Scheduler {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cronLogger{logger: logger})),
	)
	return &Scheduler{cron: c, reviewer: reviewer, logger: logger, timeout: time.Minute}
}

// Start registers the review job under spec and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := s.cron.AddFunc(spec, s.RunReview); err != nil {
		return fmt.Errorf("schedule review scan %q: %w", spec, err)
	}

	s.logger.Info().Str("schedule", spec).Msg("scheduled review scan")
	s.cron.Start()
	return nil
}

// Stop waits for a running scan to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) RunReview() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	report, err := s.reviewer.ScanDormancy(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("dormancy review scan failed")
	} else {
		event := s.logger.Info().
			Int("eligible", len(report.Eligible)).
			Int("approaching", len(report.Approaching))
		if len(report.Eligible) > 0 {
			event = event.Str("oldest_eligible", string(report.Eligible[0].Account.ID))
		}
		event.Msg("dormancy review ready")
	}

	candidates, err := s.reviewer.ScanPurgeable(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("purge review scan failed")
		return
	}
	s.logger.Info().Int("purgeable", len(candidates)).Msg("purge review ready")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
