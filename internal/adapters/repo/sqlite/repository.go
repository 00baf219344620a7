package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	"github.com/spf13/viper"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	sqlitePathKey   = "store.sqlite_path"
	storeConfigDir  = ".collab"
	storeConfigFile = "lifecycle.db"
)

// Repository stores lifecycle records in an embedded SQLite database. A
// single connection with immediate transactions serializes writers, so every
// Mutate and Increment is one atomic read-check-write.
type Repository struct {
	db     *sql.DB
	dbPath string
}

var _ ports.Store = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	dbPath := strings.TrimSpace(cfg.GetString(sqlitePathKey))
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dbPath = filepath.Join(homeDir, storeConfigDir, storeConfigFile)
	}

	return Open(dbPath)
}

func Open(dbPath string) (*Repository, error) {
	dbPath = filepath.Clean(dbPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create sqlite data dir: %w", err)
	}

	dsn := dbPath + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		},
		"_txlock": []string{"immediate"},
	}.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	r := &Repository{db: db, dbPath: dbPath}
	if err := r.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return r, nil
}

func (r *Repository) Path() string {
	return r.dbPath
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		kind TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		plan TEXT NOT NULL,
		plan_expiry INTEGER,
		last_login_at INTEGER,
		deletion_requested_at INTEGER,
		follower_search_limit INTEGER NOT NULL DEFAULT 0,
		profile TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_accounts_status ON accounts(status);
	CREATE TABLE IF NOT EXISTS usage (
		account_id TEXT NOT NULL,
		month TEXT NOT NULL,
		action TEXT NOT NULL,
		count INTEGER NOT NULL,
		PRIMARY KEY (account_id, month, action)
	);
	CREATE TABLE IF NOT EXISTS settings (
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
		created_at INTEGER NOT NULL,
		completed_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_upgrade_requests_status ON upgrade_requests(status, created_at);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("init sqlite schema: %w", err)
	}
	return nil
}

const accountColumns = `id, email, kind, role, status, plan, plan_expiry, last_login_at,
	deletion_requested_at, follower_search_limit, profile, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, account domain.Account) error {
	if err := account.CheckInvariants(); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE id = ?`, string(account.ID)).Scan(&exists)
		if err == nil {
			return domain.ErrAccountExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check account: %w", err)
		}
		return insertAccount(ctx, tx, account)
	})
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, string(id))
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}
		return domain.Account{}, classify(fmt.Errorf("get account: %w", err))
	}
	return account, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
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
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, string(id))
		account, err := scanAccount(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("read account: %w", err)
		}

		if err := fn(&account); err != nil {
			return err
		}
		account.ID = id
		if err := account.CheckInvariants(); err != nil {
			return fmt.Errorf("mutate account: %w", err)
		}

		if err := updateAccount(ctx, tx, account); err != nil {
			return err
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
	return r.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, string(id))
		account, err := scanAccount(row)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("read account: %w", err)
		}
		if precondition != nil {
			if err := precondition(account); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM usage WHERE account_id = ?`, string(id)); err != nil {
			return fmt.Errorf("delete usage: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, string(id))
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if affected == 0 {
			return domain.ErrAccountNotFound
		}
		return nil
	})
}

// inTx runs fn in one transaction. Errors returned by fn roll it back;
// busy and locked database errors are reported as transient.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("begin sqlite tx: %w", err))
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(classify(err), fmt.Errorf("rollback sqlite tx: %w", rbErr))
		}
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("commit sqlite tx: %w", err))
	}
	return nil
}

// classify marks contention and deadline errors as transient.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Transient(err)
	}

	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return domain.Transient(err)
		}
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		id, email, kind, role, status, plan string
		planExpiry, lastLogin, deletionAt   sql.NullInt64
		followerLimit                       int
		profile                             string
		createdAt, updatedAt                int64
	)
	if err := row.Scan(&id, &email, &kind, &role, &status, &plan, &planExpiry, &lastLogin,
		&deletionAt, &followerLimit, &profile, &createdAt, &updatedAt); err != nil {
		return domain.Account{}, err
	}

	account := domain.Account{
		ID:                  domain.AccountID(id),
		Email:               email,
		Kind:                domain.Kind(kind),
		Role:                domain.Role(role),
		Status:              domain.Status(status),
		Plan:                domain.Plan(plan),
		PlanExpiry:          fromNullNanos(planExpiry),
		LastLoginAt:         fromNullNanos(lastLogin),
		DeletionRequestedAt: fromNullNanos(deletionAt),
		FollowerSearchLimit: followerLimit,
		CreatedAt:           fromNanos(createdAt),
		UpdatedAt:           fromNanos(updatedAt),
	}
	if err := json.Unmarshal([]byte(profile), &account.Profile); err != nil {
		return domain.Account{}, fmt.Errorf("decode profile: %w", err)
	}

	return account, nil
}

func insertAccount(ctx context.Context, tx *sql.Tx, account domain.Account) error {
	profile, err := json.Marshal(account.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(account.ID), account.Email, string(account.Kind), string(account.Role),
		string(account.Status), string(account.Plan), toNullNanos(account.PlanExpiry),
		toNullNanos(account.LastLoginAt), toNullNanos(account.DeletionRequestedAt),
		account.FollowerSearchLimit, string(profile), toNanos(account.CreatedAt), toNanos(account.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func updateAccount(ctx context.Context, tx *sql.Tx, account domain.Account) error {
	profile, err := json.Marshal(account.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE accounts SET email = ?, kind = ?, role = ?, status = ?, plan = ?,
		plan_expiry = ?, last_login_at = ?, deletion_requested_at = ?, follower_search_limit = ?,
		profile = ?, created_at = ?, updated_at = ? WHERE id = ?`,
		account.Email, string(account.Kind), string(account.Role), string(account.Status),
		string(account.Plan), toNullNanos(account.PlanExpiry), toNullNanos(account.LastLoginAt),
		toNullNanos(account.DeletionRequestedAt), account.FollowerSearchLimit, string(profile),
		toNanos(account.CreatedAt), toNanos(account.UpdatedAt), string(account.ID))
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

func toNullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func fromNullNanos(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromNanos(v.Int64)
	return &t
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}
