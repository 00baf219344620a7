package toml

import (
	"context"

	"github.com/bnema/collab-lifecycle/internal/domain"
)

func (r *Repository) Increment(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind, limit int) (int, error) {
	var count int
	err := r.update(ctx, func(file *fileSchema) error {
		idx := findUsage(file, id, month, action)
		current := 0
		if idx >= 0 {
			current = file.Usage[idx].Count
		}

		if limit != domain.Unlimited && current >= limit {
			return &domain.QuotaExceededError{Action: action, Month: month, Count: current, Limit: limit}
		}

		count = current + 1
		if idx >= 0 {
			file.Usage[idx].Count = count
			return nil
		}
		file.Usage = append(file.Usage, usageSchema{
			AccountID: string(id),
			Month:     string(month),
			Action:    string(action),
			Count:     count,
		})
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) Count(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind) (int, error) {
	file, err := r.view(ctx)
	if err != nil {
		return 0, err
	}

	idx := findUsage(&file, id, month, action)
	if idx < 0 {
		return 0, nil
	}
	return file.Usage[idx].Count, nil
}

func findUsage(file *fileSchema, id domain.AccountID, month domain.MonthKey, action domain.ActionKind) int {
	for i := range file.Usage {
		entry := file.Usage[i]
		if entry.AccountID == string(id) && entry.Month == string(month) && entry.Action == string(action) {
			return i
		}
	}
	return -1
}
