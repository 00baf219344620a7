package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/google/uuid"
)

// UpgradeService records manual-payment upgrade requests. Completing one is
// bookkeeping only; the plan itself changes through SetPlan.
type UpgradeService struct {
	accounts ports.AccountStore
	requests ports.UpgradeRequestStore
	clock    ports.Clock
	newID    func() string
	settings settings
}

func NewUpgradeService(accounts ports.AccountStore, requests ports.UpgradeRequestStore, clock ports.Clock, newID func() string, opts ...Option) *UpgradeService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if newID == nil {
		newID = uuid.NewString
	}

	return &UpgradeService{accounts: accounts, requests: requests, clock: clock, newID: newID, settings: newSettings(opts)}
}

func (s *UpgradeService) Request(ctx context.Context, id domain.AccountID, depositorName string) (domain.UpgradeRequest, error) {
	depositorName = strings.TrimSpace(depositorName)
	if depositorName == "" {
		return domain.UpgradeRequest{}, fmt.Errorf("%w: depositor name is required", domain.ErrInvalidUpgrade)
	}

	account, err := retry(ctx, s.settings, "get account", func() (domain.Account, error) {
		return s.accounts.GetByID(ctx, id)
	})
	if err != nil {
		return domain.UpgradeRequest{}, fmt.Errorf("get account by id: %w", err)
	}
	if account.Status != domain.StatusActive {
		return domain.UpgradeRequest{}, fmt.Errorf("%w: account %s is %s", domain.ErrUnauthorized, id, account.Status)
	}

	pending, err := retry(ctx, s.settings, "list upgrade requests", func() ([]domain.UpgradeRequest, error) {
		return s.requests.ListUpgradeRequests(ctx, domain.UpgradePending)
	})
	if err != nil {
		return domain.UpgradeRequest{}, fmt.Errorf("list upgrade requests: %w", err)
	}
	for _, existing := range pending {
		if existing.AccountID == id {
			return existing, nil
		}
	}

	request := domain.UpgradeRequest{
		ID:            domain.UpgradeRequestID(s.newID()),
		AccountID:     id,
		DepositorName: depositorName,
		Status:        domain.UpgradePending,
		CreatedAt:     s.clock.Now(),
	}
	_, err = retry(ctx, s.settings, "create upgrade request", func() (struct{}, error) {
		return struct{}{}, s.requests.CreateUpgradeRequest(ctx, request)
	})
	if err != nil {
		return domain.UpgradeRequest{}, fmt.Errorf("create upgrade request: %w", err)
	}

	s.settings.logger.Info().Str("account_id", string(id)).Str("request_id", string(request.ID)).Msg("upgrade requested")
	return request, nil
}

func (s *UpgradeService) Complete(ctx context.Context, actorID domain.AccountID, requestID domain.UpgradeRequestID) (domain.UpgradeRequest, error) {
	request, err := retry(ctx, s.settings, "get upgrade request", func() (domain.UpgradeRequest, error) {
		return s.requests.GetUpgradeRequest(ctx, requestID)
	})
	if err != nil {
		return domain.UpgradeRequest{}, fmt.Errorf("get upgrade request: %w", err)
	}

	if err := requireAdmin(ctx, s.accounts, s.settings, actorID, request.AccountID); err != nil {
		return domain.UpgradeRequest{}, err
	}
	if request.Status != domain.UpgradePending {
		return domain.UpgradeRequest{}, fmt.Errorf("%w: request %s is %s", domain.ErrInvalidUpgrade, requestID, request.Status)
	}

	request.Status = domain.UpgradeCompleted
	request.CompletedAt = domain.TimePtr(s.clock.Now())
	_, err = retry(ctx, s.settings, "save upgrade request", func() (struct{}, error) {
		return struct{}{}, s.requests.SaveUpgradeRequest(ctx, request)
	})
	if err != nil {
		return domain.UpgradeRequest{}, fmt.Errorf("save upgrade request: %w", err)
	}

	return request, nil
}

func (s *UpgradeService) Pending(ctx context.Context) ([]domain.UpgradeRequest, error) {
	requests, err := retry(ctx, s.settings, "list upgrade requests", func() ([]domain.UpgradeRequest, error) {
		return s.requests.ListUpgradeRequests(ctx, domain.UpgradePending)
	})
	if err != nil {
		return nil, fmt.Errorf("list upgrade requests: %w", err)
	}
	return requests, nil
}
