package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/redis/go-redis/v9"
)

// consumeScript checks the counter against the limit and bumps it in one
// server-side step. A negative limit means unlimited.
var consumeScript = redis.NewScript(`
local current = tonumber(redis.call("HGET", KEYS[1], ARGV[1]) or "0")
local limit = tonumber(ARGV[2])
if limit >= 0 and current >= limit then
  return {0, current}
end
local updated = redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
return {1, updated}
`)

// Store keeps monthly counters in one Redis hash per account, with a
// "<month>:<action>" field per counter.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var (
	_ ports.UsageStore  = (*Store)(nil)
	_ ports.UsagePurger = (*Store)(nil)
)

func NewStore(client redis.UniversalClient, prefix string) *Store {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "clc"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &Store{client: client, prefix: trimmedPrefix}
}

// Connect dials addr and verifies the connection.
func Connect(ctx context.Context, addr, prefix string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewStore(client, prefix), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Increment(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind, limit int) (int, error) {
	rawResult, err := consumeScript.Run(ctx, s.client, []string{s.key(id)}, field(month, action), limit).Result()
	if err != nil {
		return 0, classify(fmt.Errorf("increment usage: %w", err))
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return 0, fmt.Errorf("unexpected redis usage response shape: %T", rawResult)
	}
	accepted, ok := values[0].(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected redis usage flag type: %T", values[0])
	}
	count, ok := values[1].(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected redis usage count type: %T", values[1])
	}

	if accepted == 0 {
		return 0, &domain.QuotaExceededError{Action: action, Month: month, Count: int(count), Limit: limit}
	}
	return int(count), nil
}

func (s *Store) Count(ctx context.Context, id domain.AccountID, month domain.MonthKey, action domain.ActionKind) (int, error) {
	count, err := s.client.HGet(ctx, s.key(id), field(month, action)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, classify(fmt.Errorf("read usage: %w", err))
	}
	return count, nil
}

func (s *Store) PurgeUsage(ctx context.Context, id domain.AccountID) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return classify(fmt.Errorf("purge usage: %w", err))
	}
	return nil
}

func (s *Store) key(id domain.AccountID) string {
	return fmt.Sprintf("%s:usage:%s", s.prefix, id)
}

func field(month domain.MonthKey, action domain.ActionKind) string {
	return string(month) + ":" + string(action)
}

func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.Transient(err)
	}
	if strings.Contains(err.Error(), "BUSY") || strings.Contains(err.Error(), "LOADING") {
		return domain.Transient(err)
	}
	return err
}
