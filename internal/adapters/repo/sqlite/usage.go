package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bnema/collab-lifecycle/internal/domain"
)

func (r *Repository) Increment(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind, limit int) (int, error) {
	var count int
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		current, err := readCount(ctx, tx, id, month, action)
		if err != nil {
			return err
		}

		if limit != domain.Unlimited && current >= limit {
			return &domain.QuotaExceededError{Action: action, Month: month, Count: current, Limit: limit}
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO usage (account_id, month, action, count) VALUES (?, ?, ?, 1)
			ON CONFLICT(account_id, month, action) DO UPDATE SET count = count + 1`,
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
	err := r.db.QueryRowContext(ctx, `SELECT count FROM usage WHERE account_id = ? AND month = ? AND action = ?`,
		string(id), string(month), string(action)).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, classify(fmt.Errorf("read usage: %w", err))
	}
	return count, nil
}

func readCount(ctx context.Context, tx *sql.Tx, id domain.AccountID, month domain.MonthKey, action domain.ActionKind) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `SELECT count FROM usage WHERE account_id = ? AND month = ? AND action = ?`,
		string(id), string(month), string(action)).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return count, nil
}
