package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) GetPlanSettings(ctx context.Context, kind domain.Kind) (domain.PlanSettings, error) {
	settings := domain.PlanSettings{Kind: kind}
	err := r.db.QueryRow(ctx, `SELECT monthly_limit, price, payment_instructions FROM plan_settings WHERE key = $1`,
		domain.SettingsKey(kind)).Scan(&settings.MonthlyLimit, &settings.Price, &settings.PaymentInstructions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings, nil
		}
		return domain.PlanSettings{}, classify(fmt.Errorf("read plan settings: %w", err))
	}
	return settings, nil
}

func (r *Repository) SavePlanSettings(ctx context.Context, settings domain.PlanSettings) error {
	_, err := r.db.Exec(ctx, `INSERT INTO plan_settings (key, monthly_limit, price, payment_instructions)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET monthly_limit = EXCLUDED.monthly_limit, price = EXCLUDED.price,
		payment_instructions = EXCLUDED.payment_instructions`,
		domain.SettingsKey(settings.Kind), settings.MonthlyLimit, settings.Price, settings.PaymentInstructions)
	if err != nil {
		return classify(fmt.Errorf("save plan settings: %w", err))
	}
	return nil
}

const upgradeColumns = `id, account_id, depositor_name, status, created_at, completed_at`

func (r *Repository) CreateUpgradeRequest(ctx context.Context, request domain.UpgradeRequest) error {
	_, err := r.db.Exec(ctx, `INSERT INTO upgrade_requests (`+upgradeColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(request.ID), string(request.AccountID), request.DepositorName, string(request.Status),
		request.CreatedAt, request.CompletedAt)
	if err != nil {
		return classify(fmt.Errorf("create upgrade request: %w", err))
	}
	return nil
}

func (r *Repository) GetUpgradeRequest(ctx context.Context, id domain.UpgradeRequestID) (domain.UpgradeRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+upgradeColumns+` FROM upgrade_requests WHERE id = $1`, string(id))
	request, err := scanUpgradeRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UpgradeRequest{}, domain.ErrUpgradeRequestNotFound
		}
		return domain.UpgradeRequest{}, classify(fmt.Errorf("get upgrade request: %w", err))
	}
	return request, nil
}

func (r *Repository) ListUpgradeRequests(ctx context.Context, status domain.UpgradeStatus) ([]domain.UpgradeRequest, error) {
	rows, err := r.db.Query(ctx, `SELECT `+upgradeColumns+` FROM upgrade_requests
		WHERE $1 = '' OR status = $1 ORDER BY created_at, id`, string(status))
	if err != nil {
		return nil, classify(fmt.Errorf("list upgrade requests: %w", err))
	}
	defer rows.Close()

	var requests []domain.UpgradeRequest
	for rows.Next() {
		request, err := scanUpgradeRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upgrade request: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("list upgrade requests: %w", err))
	}
	return requests, nil
}

func (r *Repository) SaveUpgradeRequest(ctx context.Context, request domain.UpgradeRequest) error {
	tag, err := r.db.Exec(ctx, `UPDATE upgrade_requests SET account_id = $2, depositor_name = $3, status = $4,
		created_at = $5, completed_at = $6 WHERE id = $1`,
		string(request.ID), string(request.AccountID), request.DepositorName, string(request.Status),
		request.CreatedAt, request.CompletedAt)
	if err != nil {
		return classify(fmt.Errorf("save upgrade request: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUpgradeRequestNotFound
	}
	return nil
}

func scanUpgradeRequest(row pgx.Row) (domain.UpgradeRequest, error) {
	var (
		id, accountID, status string
		request               domain.UpgradeRequest
		completedAt           *time.Time
	)
	if err := row.Scan(&id, &accountID, &request.DepositorName, &status, &request.CreatedAt, &completedAt); err != nil {
		return domain.UpgradeRequest{}, err
	}

	request.ID = domain.UpgradeRequestID(id)
	request.AccountID = domain.AccountID(accountID)
	request.Status = domain.UpgradeStatus(status)
	request.CreatedAt = request.CreatedAt.UTC()
	request.CompletedAt = utcPtr(completedAt)
	return request, nil
}
