package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) Increment(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind, limit int) (int, error) {
	var count int
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		// Materialize the row first so FOR UPDATE has something to lock on the
		// month's first increment.
		_, err := tx.Exec(ctx, `INSERT INTO account_usage (account_id, month, action, count) VALUES ($1, $2, $3, 0)
			ON CONFLICT (account_id, month, action) DO NOTHING`, string(id), string(month), string(action))
		if err != nil {
			return fmt.Errorf("seed usage: %w", err)
		}

		var current int
		err = tx.QueryRow(ctx, `SELECT count FROM account_usage WHERE account_id = $1 AND month = $2 AND action = $3 FOR UPDATE`,
			string(id), string(month), string(action)).Scan(&current)
		if err != nil {
			return fmt.Errorf("lock usage: %w", err)
		}

		if limit != domain.Unlimited && current >= limit {
			return &domain.QuotaExceededError{Action: action, Month: month, Count: current, Limit: limit}
		}

		_, err = tx.Exec(ctx, `UPDATE account_usage SET count = count + 1 WHERE account_id = $1 AND month = $2 AND action = $3`,
			string(id), string(month), string(action))
		if err != nil {
			return fmt.Errorf("increment usage: %w", err)
		}
		count = current + 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) Count(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count FROM account_usage WHERE account_id = $1 AND month = $2 AND action = $3`,
		string(id), string(month), string(action)).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, classify(fmt.Errorf("read usage: %w", err))
	}
	return count, nil
}
