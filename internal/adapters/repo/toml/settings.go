package toml

import (
	"context"
	"sort"

	"github.com/bnema/collab-lifecycle/internal/domain"
)

func (r *Repository) GetPlanSettings(ctx context.Context, kind domain.Kind) (domain.PlanSettings, error) {
	file, err := r.view(ctx)
	if err != nil {
		return domain.PlanSettings{}, err
	}

	key := domain.SettingsKey(kind)
	for _, entry := range file.Settings {
		if entry.Key == key {
			return domain.PlanSettings{
				Kind:                kind,
				MonthlyLimit:        entry.MonthlyLimit,
				Price:               entry.Price,
				PaymentInstructions: entry.PaymentInstructions,
			}, nil
		}
	}

	return domain.PlanSettings{Kind: kind}, nil
}

func (r *Repository) SavePlanSettings(ctx context.Context, settings domain.PlanSettings) error {
	return r.update(ctx, func(file *fileSchema) error {
		encoded := planSettingsSchema{
			Key:                 domain.SettingsKey(settings.Kind),
			MonthlyLimit:        settings.MonthlyLimit,
			Price:               settings.Price,
			PaymentInstructions: settings.PaymentInstructions,
		}
		for i := range file.Settings {
			if file.Settings[i].Key == encoded.Key {
				file.Settings[i] = encoded
				return nil
			}
		}
		file.Settings = append(file.Settings, encoded)
		return nil
	})
}

func (r *Repository) CreateUpgradeRequest(ctx context.Context, request domain.UpgradeRequest) error {
	return r.update(ctx, func(file *fileSchema) error {
		file.UpgradeRequests = append(file.UpgradeRequests, toUpgradeRequestSchema(request))
		return nil
	})
}

func (r *Repository) GetUpgradeRequest(ctx context.Context, id domain.UpgradeRequestID) (domain.UpgradeRequest, error) {
	file, err := r.view(ctx)
	if err != nil {
		return domain.UpgradeRequest{}, err
	}

	for _, entry := range file.UpgradeRequests {
		if entry.ID == string(id) {
			return fromUpgradeRequestSchema(entry), nil
		}
	}

	return domain.UpgradeRequest{}, domain.ErrUpgradeRequestNotFound
}

func (r *Repository) ListUpgradeRequests(ctx context.Context, status domain.UpgradeStatus) ([]domain.UpgradeRequest, error) {
	file, err := r.view(ctx)
	if err != nil {
		return nil, err
	}

	requests := make([]domain.UpgradeRequest, 0, len(file.UpgradeRequests))
	for _, entry := range file.UpgradeRequests {
		if status != "" && entry.Status != string(status) {
			continue
		}
		requests = append(requests, fromUpgradeRequestSchema(entry))
	}

	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.Before(requests[j].CreatedAt)
	})

	return requests, nil
}

func (r *Repository) SaveUpgradeRequest(ctx context.Context, request domain.UpgradeRequest) error {
	return r.update(ctx, func(file *fileSchema) error {
		for i := range file.UpgradeRequests {
			if file.UpgradeRequests[i].ID == string(request.ID) {
				file.UpgradeRequests[i] = toUpgradeRequestSchema(request)
				return nil
			}
		}
		return domain.ErrUpgradeRequestNotFound
	})
}

func toUpgradeRequestSchema(request domain.UpgradeRequest) upgradeRequestSchema {
	return upgradeRequestSchema{
		ID:            string(request.ID),
		AccountID:     string(request.AccountID),
		DepositorName: request.DepositorName,
		Status:        string(request.Status),
		CreatedAt:     formatTime(request.CreatedAt),
		CompletedAt:   formatOptionalTime(request.CompletedAt),
	}
}

func fromUpgradeRequestSchema(schema upgradeRequestSchema) domain.UpgradeRequest {
	return domain.UpgradeRequest{
		ID:            domain.UpgradeRequestID(schema.ID),
		AccountID:     domain.AccountID(schema.AccountID),
		DepositorName: schema.DepositorName,
		Status:        domain.UpgradeStatus(schema.Status),
		CreatedAt:     parseTime(schema.CreatedAt),
		CompletedAt:   parseOptionalTime(schema.CompletedAt),
	}
}
