package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/bnema/collab-lifecycle/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	storePathKey    = "store.path"
	storeFileMode   = 0o600
	storeDirMode    = 0o700
	storeConfigDir  = ".collab"
	storeConfigFile = "lifecycle.toml"
	tempFilePattern = ".lifecycle-*.toml.tmp"
)

// Repository keeps every record in one TOML document guarded by a per-path
// lock. Mutations run read-modify-write under the exclusive lock, which makes
// them atomic for every Repository sharing the same path in this process.
type Repository struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.Store = (*Repository)(nil)

func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	path := cfg.GetString(storePathKey)
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(homeDir, storeConfigDir, storeConfigFile)
	}

	path, err := normalizeStorePath(path)
	if err != nil {
		return nil, err
	}

	return &Repository{path: path, mu: lockForPath(path)}, nil
}

func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) Close() error {
	return nil
}

func (r *Repository) Create(ctx context.Context, account domain.Account) error {
	if err := account.CheckInvariants(); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	return r.update(ctx, func(file *fileSchema) error {
		if findAccount(file, account.ID) >= 0 {
			return domain.ErrAccountExists
		}
		file.Accounts = append(file.Accounts, toAccountSchema(account))
		return nil
	})
}

func (r *Repository) GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	file, err := r.view(ctx)
	if err != nil {
		return domain.Account{}, err
	}

	idx := findAccount(&file, id)
	if idx < 0 {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return fromAccountSchema(file.Accounts[idx]), nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Account, error) {
	file, err := r.view(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		accounts = append(accounts, fromAccountSchema(entry))
	}

	return accounts, nil
}

func (r *Repository) Mutate(ctx context.Context, id domain.AccountID, fn ports.MutateFunc) (domain.Account, error) {
	var result domain.Account
	err := r.update(ctx, func(file *fileSchema) error {
		idx := findAccount(file, id)
		if idx < 0 {
			return domain.ErrAccountNotFound
		}

		account := fromAccountSchema(file.Accounts[idx])
		if err := fn(&account); err != nil {
			return err
		}
		account.ID = id
		if err := account.CheckInvariants(); err != nil {
			return fmt.Errorf("mutate account: %w", err)
		}

		file.Accounts[idx] = toAccountSchema(account)
		result = account
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}

	return result, nil
}

func (r *Repository) Delete(ctx context.Context, id domain.AccountID, precondition func(domain.Account) error) error {
	return r.update(ctx, func(file *fileSchema) error {
		idx := findAccount(file, id)
		if idx < 0 {
			return domain.ErrAccountNotFound
		}
		if precondition != nil {
			if err := precondition(fromAccountSchema(file.Accounts[idx])); err != nil {
				return err
			}
		}
		file.Accounts = append(file.Accounts[:idx], file.Accounts[idx+1:]...)

		kept := file.Usage[:0]
		for _, entry := range file.Usage {
			if entry.AccountID != string(id) {
				kept = append(kept, entry)
			}
		}
		file.Usage = kept
		return nil
	})
}

// view reads a consistent copy of the document under the shared lock.
func (r *Repository) view(ctx context.Context) (fileSchema, error) {
	if err := contextErr(ctx); err != nil {
		return fileSchema{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.readSchema()
}

// update applies fn to the document under the exclusive lock and writes it
// back only when fn succeeds.
func (r *Repository) update(ctx context.Context, fn func(file *fileSchema) error) error {
	if err := contextErr(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}

	if err := fn(&file); err != nil {
		return err
	}

	if err := contextErr(ctx); err != nil {
		return err
	}

	return r.writeSchema(file)
}

// contextErr reports a done context. An expired deadline is a store timeout
// and comes back transient.
func contextErr(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Transient(fmt.Errorf("toml store: %w", err))
	}
	return err
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{Version: currentSchemaVersion}, nil
		}
		return fileSchema{}, fmt.Errorf("read store file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode store file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.path), storeDirMode); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp store file: %w", err)
	}

	if err := tempFile.Chmod(storeFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp store file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.path, storeFileMode); err != nil {
		return fmt.Errorf("chmod store file: %w", err)
	}

	return nil
}

func normalizeStorePath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve store path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func findAccount(file *fileSchema, id domain.AccountID) int {
	for i := range file.Accounts {
		if file.Accounts[i].ID == string(id) {
			return i
		}
	}
	return -1
}

func toAccountSchema(account domain.Account) accountSchema {
	return accountSchema{
		ID:                  string(account.ID),
		Email:               account.Email,
		Kind:                string(account.Kind),
		Role:                string(account.Role),
		Status:              string(account.Status),
		Plan:                string(account.Plan),
		PlanExpiry:          formatOptionalTime(account.PlanExpiry),
		LastLoginAt:         formatOptionalTime(account.LastLoginAt),
		DeletionRequestedAt: formatOptionalTime(account.DeletionRequestedAt),
		FollowerSearchLimit: account.FollowerSearchLimit,
		Profile: profileSchema{
			DisplayName:        account.Profile.DisplayName,
			Bio:                account.Profile.Bio,
			Categories:         account.Profile.Categories,
			InstagramURL:       account.Profile.InstagramURL,
			FollowerCount:      account.Profile.FollowerCount,
			WebsiteURL:         account.Profile.WebsiteURL,
			CompanyDescription: account.Profile.CompanyDescription,
		},
		CreatedAt: formatTime(account.CreatedAt),
		UpdatedAt: formatTime(account.UpdatedAt),
	}
}

func fromAccountSchema(schema accountSchema) domain.Account {
	role := domain.Role(schema.Role)
	if role == "" {
		role = domain.RoleUser
	}
	plan := domain.Plan(schema.Plan)
	if plan == "" {
		plan = domain.PlanFree
	}
	status := domain.Status(schema.Status)
	if status == "" {
		status = domain.StatusProfilePending
	}

	return domain.Account{
		ID:                  domain.AccountID(schema.ID),
		Email:               schema.Email,
		Kind:                domain.Kind(schema.Kind),
		Role:                role,
		Status:              status,
		Plan:                plan,
		PlanExpiry:          parseOptionalTime(schema.PlanExpiry),
		LastLoginAt:         parseOptionalTime(schema.LastLoginAt),
		DeletionRequestedAt: parseOptionalTime(schema.DeletionRequestedAt),
		FollowerSearchLimit: schema.FollowerSearchLimit,
		Profile: domain.Profile{
			DisplayName:        schema.Profile.DisplayName,
			Bio:                schema.Profile.Bio,
			Categories:         schema.Profile.Categories,
			InstagramURL:       schema.Profile.InstagramURL,
			FollowerCount:      schema.Profile.FollowerCount,
			WebsiteURL:         schema.Profile.WebsiteURL,
			CompanyDescription: schema.Profile.CompanyDescription,
		},
		CreatedAt: parseTime(schema.CreatedAt),
		UpdatedAt: parseTime(schema.UpdatedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed.UTC()
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(raw string) *time.Time {
	parsed := parseTime(raw)
	if parsed.IsZero() {
		return nil
	}
	return &parsed
}

func formatOptionalTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTime(*value)
}
