package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bnema/collab-lifecycle/internal/domain"
)

func (r *Repository) GetPlanSettings(ctx context.Context, kind domain.Kind) (domain.PlanSettings, error) {
	settings := domain.PlanSettings{Kind: kind}

	var limit sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT monthly_limit, price, payment_instructions FROM settings WHERE key = ?`,
		domain.SettingsKey(kind)).Scan(&limit, &settings.Price, &settings.PaymentInstructions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, nil
		}
		return domain.PlanSettings{}, classify(fmt.Errorf("read plan settings: %w", err))
	}

	if limit.Valid {
		value := int(limit.Int64)
		settings.MonthlyLimit = &value
	}
	return settings, nil
}

func (r *Repository) SavePlanSettings(ctx context.Context, settings domain.PlanSettings) error {
	var limit sql.NullInt64
	if settings.MonthlyLimit != nil {
		limit = sql.NullInt64{Int64: int64(*settings.MonthlyLimit), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO settings (key, monthly_limit, price, payment_instructions) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET monthly_limit = excluded.monthly_limit, price = excluded.price,
		payment_instructions = excluded.payment_instructions`,
		domain.SettingsKey(settings.Kind), limit, settings.Price, settings.PaymentInstructions)
	if err != nil {
		return classify(fmt.Errorf("save plan settings: %w", err))
	}
	return nil
}

const upgradeColumns = `id, account_id, depositor_name, status, created_at, completed_at`

func (r *Repository) CreateUpgradeRequest(ctx context.Context, request domain.UpgradeRequest) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO upgrade_requests (`+upgradeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		string(request.ID), string(request.AccountID), request.DepositorName, string(request.Status),
		toNanos(request.CreatedAt), toNullNanos(request.CompletedAt))
	if err != nil {
		return classify(fmt.Errorf("create upgrade request: %w", err))
	}
	return nil
}

func (r *Repository) GetUpgradeRequest(ctx context.Context, id domain.UpgradeRequestID) (domain.UpgradeRequest, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+upgradeColumns+` FROM upgrade_requests WHERE id = ?`, string(id))
	request, err := scanUpgradeRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UpgradeRequest{}, domain.ErrUpgradeRequestNotFound
		}
		return domain.UpgradeRequest{}, classify(fmt.Errorf("get upgrade request: %w", err))
	}
	return request, nil
}

func (r *Repository) ListUpgradeRequests(ctx context.Context, status domain.UpgradeStatus) ([]domain.UpgradeRequest, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+upgradeColumns+` FROM upgrade_requests
		WHERE ? = '' OR status = ? ORDER BY created_at, id`, string(status), string(status))
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
	res, err := r.db.ExecContext(ctx, `UPDATE upgrade_requests SET account_id = ?, depositor_name = ?, status = ?,
		created_at = ?, completed_at = ? WHERE id = ?`,
		string(request.AccountID), request.DepositorName, string(request.Status),
		toNanos(request.CreatedAt), toNullNanos(request.CompletedAt), string(request.ID))
	if err != nil {
		return classify(fmt.Errorf("save upgrade request: %w", err))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save upgrade request: %w", err)
	}
	if affected == 0 {
		return domain.ErrUpgradeRequestNotFound
	}
	return nil
}

func scanUpgradeRequest(row rowScanner) (domain.UpgradeRequest, error) {
	var (
		id, accountID, depositor, status string
		createdAt                        int64
		completedAt                      sql.NullInt64
	)
	if err := row.Scan(&id, &accountID, &depositor, &status, &createdAt, &completedAt); err != nil {
		return domain.UpgradeRequest{}, err
	}

	return domain.UpgradeRequest{
		ID:            domain.UpgradeRequestID(id),
		AccountID:     domain.AccountID(accountID),
		DepositorName: depositor,
		Status:        domain.UpgradeStatus(status),
		CreatedAt:     fromNanos(createdAt),
		CompletedAt:   fromNullNanos(completedAt),
	}, nil
}
