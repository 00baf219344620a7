package toml

import "fmt"

const currentSchemaVersion = 1

// fileSchema is the whole store document. Accounts, their monthly counters,
// plan settings and upgrade requests share one file so a single lock covers
// every cross-record write.
type fileSchema struct {
	Version         int                    `toml:"version"`
	Accounts        []accountSchema        `toml:"accounts"`
	Usage           []usageSchema          `toml:"usage"`
	Settings        []planSettingsSchema   `toml:"settings"`
	UpgradeRequests []upgradeRequestSchema `toml:"upgrade_requests"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported store schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID                  string        `toml:"id"`
	Email               string        `toml:"email"`
	Kind                string        `toml:"kind"`
	Role                string        `toml:"role"`
	Status              string        `toml:"status"`
	Plan                string        `toml:"plan"`
	PlanExpiry          string        `toml:"plan_expiry,omitempty"`
	LastLoginAt         string        `toml:"last_login_at,omitempty"`
	DeletionRequestedAt string        `toml:"deletion_requested_at,omitempty"`
	FollowerSearchLimit int           `toml:"follower_search_limit,omitempty"`
	Profile             profileSchema `toml:"profile"`
	CreatedAt           string        `toml:"created_at"`
	UpdatedAt           string        `toml:"updated_at"`
}

type profileSchema struct {
	DisplayName        string   `toml:"display_name,omitempty"`
	Bio                string   `toml:"bio,omitempty"`
	Categories         []string `toml:"categories,omitempty"`
	InstagramURL       string   `toml:"instagram_url,omitempty"`
	FollowerCount      int      `toml:"follower_count,omitempty"`
	WebsiteURL         string   `toml:"website_url,omitempty"`
	CompanyDescription string   `toml:"company_description,omitempty"`
}

type usageSchema struct {
	AccountID string `toml:"account_id"`
	Month     string `toml:"month"`
	Action    string `toml:"action"`
	Count     int    `toml:"count"`
}

type planSettingsSchema struct {
	Key                 string `toml:"key"`
	MonthlyLimit        *int   `toml:"monthly_limit,omitempty"`
	Price               string `toml:"price,omitempty"`
	PaymentInstructions string `toml:"payment_instructions,omitempty"`
}

type upgradeRequestSchema struct {
	ID            string `toml:"id"`
	AccountID     string `toml:"account_id"`
	DepositorName string `toml:"depositor_name"`
	Status        string `toml:"status"`
	CreatedAt     string `toml:"created_at"`
	CompletedAt   string `toml:"completed_at,omitempty"`
}
