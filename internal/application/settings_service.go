package application

import (
	"context"
	"fmt"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
)

// SettingsService reads and edits the per-kind plan settings.
type SettingsService struct {
	accounts     ports.AccountStore
	planSettings ports.SettingsStore
	settings     settings
}

func NewSettingsService(accounts ports.AccountStore, planSettings ports.SettingsStore, opts ...Option) *SettingsService {
	return &SettingsService{accounts: accounts, planSettings: planSettings, settings: newSettings(opts)}
}

func (s *SettingsService) Get(ctx context.Context, kind domain.Kind) (domain.PlanSettings, error) {
	if !kind.Valid() {
		return domain.PlanSettings{}, fmt.Errorf("%w: unknown account kind %q", domain.ErrInvalidSettings, kind)
	}

	planSettings, err := retry(ctx, s.settings, "get plan settings", func() (domain.PlanSettings, error) {
		return s.planSettings.GetPlanSettings(ctx, kind)
	})
	if err != nil {
		return domain.PlanSettings{}, fmt.Errorf("get plan settings: %w", err)
	}
	return planSettings, nil
}

func (s *SettingsService) Save(ctx context.Context, cmd SaveSettingsCommand) error {
	if err := requireAdmin(ctx, s.accounts, s.settings, cmd.ActorID, ""); err != nil {
		return err
	}
	if !cmd.Settings.Kind.Valid() {
		return fmt.Errorf("%w: unknown account kind %q", domain.ErrInvalidSettings, cmd.Settings.Kind)
	}
	if cmd.Settings.MonthlyLimit != nil && *cmd.Settings.MonthlyLimit < 0 {
		return fmt.Errorf("%w: monthly limit must not be negative", domain.ErrInvalidSettings)
	}

	_, err := retry(ctx, s.settings, "save plan settings", func() (struct{}, error) {
		return struct{}{}, s.planSettings.SavePlanSettings(ctx, cmd.Settings)
	})
	if err != nil {
		return fmt.Errorf("save plan settings: %w", err)
	}

	s.settings.logger.Info().Str("actor_id", string(cmd.ActorID)).Str("kind", string(cmd.Settings.Kind)).Msg("plan settings saved")
	return nil
}
