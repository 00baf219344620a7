package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the PostgreSQL store. Account mutations lock the row with
// SELECT ... FOR UPDATE and counters are checked and bumped inside the same
// transaction, so concurrent writers of one account serialize on the row.
type Repository struct {
	db *pgxpool.Pool
}

var _ ports.Store = (*Repository)(nil)

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Connect opens a pool for databaseURL, checks it and creates the schema.
func Connect(ctx context.Context, databaseURL string) (*Repository, error) {
	if databaseURL == "" {
		return nil, errors.New("database url is empty")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	repo := NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return repo, nil
}

func (r *Repository) Close() error {
	r.db.Close()
	return nil
}

func (r *Repository) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		kind TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		plan TEXT NOT NULL,
		plan_expiry TIMESTAMPTZ,
		last_login_at TIMESTAMPTZ,
		deletion_requested_at TIMESTAMPTZ,
		follower_search_limit INTEGER NOT NULL DEFAULT 0,
		profile JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_status ON accounts(status);
	CREATE TABLE IF NOT EXISTS account_usage (
		account_id TEXT NOT NULL,
		month TEXT NOT NULL,
		action TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (account_id, month, action)
	);
	CREATE TABLE IF NOT EXISTS plan_settings (
		key TEXT PRIMARY KEY,
		monthly_limit INTEGER,
		price TEXT NOT NULL DEFAULT '',
		payment_instructions TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS upgrade_requests (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		depositor_name TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ
	);
	`
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate postgres schema: %w", err)
	}
	return nil
}

const accountColumns = `id, email, kind, role, status, plan, plan_expiry, last_login_at,
	deletion_requested_at, follower_search_limit, profile, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, account domain.Account) error {
	if err := account.CheckInvariants(); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	_, err := r.db.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		string(account.ID), account.Email, string(account.Kind), string(account.Role),
		string(account.Status), string(account.Plan), account.PlanExpiry, account.LastLoginAt,
		account.DeletionRequestedAt, account.FollowerSearchLimit, account.Profile,
		account.CreatedAt, account.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAccountExists
		}
		return classify(fmt.Errorf("insert account: %w", err))
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, string(id))
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, classify(fmt.Errorf("get account: %w", err))
	}
	return account, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, classify(fmt.Errorf("list accounts: %w", err))
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

func (r *Repository) Mutate(ctx context.Context, id domain.AccountID, fn ports.MutateFunc) (domain.Account, error) {
	var result domain.Account
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, string(id))
		account, err := scanAccount(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("lock account: %w", err)
		}

		if err := fn(&account); err != nil {
			return err
		}
		account.ID = id
		if err := account.CheckInvariants(); err != nil {
			return fmt.Errorf("mutate account: %w", err)
		}

		_, err = tx.Exec(ctx, `UPDATE accounts SET email = $2, kind = $3, role = $4, status = $5, plan = $6,
			plan_expiry = $7, last_login_at = $8, deletion_requested_at = $9, follower_search_limit = $10,
			profile = $11, updated_at = $12 WHERE id = $1`,
			string(account.ID), account.Email, string(account.Kind), string(account.Role),
			string(account.Status), string(account.Plan), account.PlanExpiry, account.LastLoginAt,
			account.DeletionRequestedAt, account.FollowerSearchLimit, account.Profile, account.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}

		result = account
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return result, nil
}

func (r *Repository) Delete(ctx context.Context, id domain.AccountID, precondition func(domain.Account) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, string(id))
		account, err := scanAccount(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("lock account: %w", err)
		}
		if precondition != nil {
			if err := precondition(account); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM account_usage WHERE account_id = $1`, string(id)); err != nil {
			return fmt.Errorf("delete usage: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, string(id))
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAccountNotFound
		}
		return nil
	})
}

func (r *Repository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classify(fmt.Errorf("begin postgres tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classifyCommit(err)
	}
	return nil
}

// classify marks serialization failures, deadlocks, lock timeouts and lost
// connections as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return domain.Transient(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03", "57P01":
			return domain.Transient(err)
		}
	}
	return err
}

// classifyCommit retries a failed COMMIT only when the server cannot have
// applied it. A lost acknowledgement leaves the write in an unknown state.
func classifyCommit(err error) error {
	if err == nil {
		return nil
	}
	wrapped := fmt.Errorf("commit postgres tx: %w", err)
	if pgconn.SafeToRetry(err) {
		return domain.Transient(wrapped)
	}

	// The server answered, so the transaction was rolled back.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classify(wrapped)
	}
	return domain.OutcomeUnknown(wrapped)
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var (
		account                           domain.Account
		id, kind, role, status, plan      string
		planExpiry, lastLogin, deletionAt *time.Time
	)
	if err := row.Scan(&id, &account.Email, &kind, &role, &status, &plan, &planExpiry, &lastLogin,
		&deletionAt, &account.FollowerSearchLimit, &account.Profile, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return domain.Account{}, err
	}

	account.ID = domain.AccountID(id)
	account.Kind = domain.Kind(kind)
	account.Role = domain.Role(role)
	account.Status = domain.Status(status)
	account.Plan = domain.Plan(plan)
	account.PlanExpiry = utcPtr(planExpiry)
	account.LastLoginAt = utcPtr(lastLogin)
	account.DeletionRequestedAt = utcPtr(deletionAt)
	account.CreatedAt = account.CreatedAt.UTC()
	account.UpdatedAt = account.UpdatedAt.UTC()

	return account, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
