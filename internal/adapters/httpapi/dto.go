package httpapi

import (
	"time"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
)

type profileDTO struct {
	DisplayName        string   `json:"display_name"`
	Bio                string   `json:"bio,omitempty"`
	Categories         []string `json:"categories,omitempty"`
	InstagramURL       string   `json:"instagram_url,omitempty"`
	FollowerCount      int      `json:"follower_count,omitempty"`
	WebsiteURL         string   `json:"website_url,omitempty"`
	CompanyDescription string   `json:"company_description,omitempty"`
}

func (p profileDTO) toDomain() domain.Profile {
	return domain.Profile{
		DisplayName:        p.DisplayName,
		Bio:                p.Bio,
		Categories:         p.Categories,
		InstagramURL:       p.InstagramURL,
		FollowerCount:      p.FollowerCount,
		WebsiteURL:         p.WebsiteURL,
		CompanyDescription: p.CompanyDescription,
	}
}

func toProfileDTO(p domain.Profile) profileDTO {
	return profileDTO{
		DisplayName:        p.DisplayName,
		Bio:                p.Bio,
		Categories:         p.Categories,
		InstagramURL:       p.InstagramURL,
		FollowerCount:      p.FollowerCount,
		WebsiteURL:         p.WebsiteURL,
		CompanyDescription: p.CompanyDescription,
	}
}

type accountDTO struct {
	ID                  domain.AccountID `json:"id"`
	Email               string           `json:"email"`
	Kind                domain.Kind      `json:"kind"`
	Role                domain.Role      `json:"role"`
	Status              domain.Status    `json:"status"`
	Plan                domain.Plan      `json:"plan"`
	PlanExpiry          *time.Time       `json:"plan_expiry,omitempty"`
	LastLoginAt         *time.Time       `json:"last_login_at,omitempty"`
	DeletionRequestedAt *time.Time       `json:"deletion_requested_at,omitempty"`
	FollowerSearchLimit int              `json:"follower_search_limit,omitempty"`
	Profile             profileDTO       `json:"profile"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func toAccountDTO(a domain.Account) accountDTO {
	return accountDTO{
		ID:                  a.ID,
		Email:               a.Email,
		Kind:                a.Kind,
		Role:                a.Role,
		Status:              a.Status,
		Plan:                a.Plan,
		PlanExpiry:          a.PlanExpiry,
		LastLoginAt:         a.LastLoginAt,
		DeletionRequestedAt: a.DeletionRequestedAt,
		FollowerSearchLimit: a.FollowerSearchLimit,
		Profile:             toProfileDTO(a.Profile),
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

type snapshotDTO struct {
	Account      accountDTO        `json:"account"`
	Action       domain.ActionKind `json:"action"`
	Month        domain.MonthKey   `json:"month,omitempty"`
	MonthlyUsed  int               `json:"monthly_used"`
	MonthlyLimit int               `json:"monthly_limit"`
	PurgeAt      *time.Time        `json:"purge_at,omitempty"`
}

func toSnapshotDTO(s domain.AccountSnapshot) snapshotDTO {
	return snapshotDTO{
		Account:      toAccountDTO(s.Account),
		Action:       s.Action,
		Month:        s.Month,
		MonthlyUsed:  s.MonthlyUsed,
		MonthlyLimit: s.MonthlyLimit,
		PurgeAt:      s.PurgeAt,
	}
}

type consumeDTO struct {
	Action    domain.ActionKind `json:"action"`
	Month     domain.MonthKey   `json:"month"`
	Count     int               `json:"count"`
	Limit     int               `json:"limit"`
	Remaining int               `json:"remaining"`
}

func toConsumeDTO(r domain.ConsumeResult) consumeDTO {
	return consumeDTO{Action: r.Action, Month: r.Month, Count: r.Count, Limit: r.Limit, Remaining: r.Remaining()}
}

type candidateDTO struct {
	Account     accountDTO `json:"account"`
	LastLoginAt time.Time  `json:"last_login_at"`
	DormantFrom time.Time  `json:"dormant_from"`
}

type dormancyDTO struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Eligible    []candidateDTO `json:"eligible"`
	Approaching []candidateDTO `json:"approaching"`
}

func toDormancyDTO(r application.DormancyReport) dormancyDTO {
	convert := func(in []application.DormancyCandidate) []candidateDTO {
		out := make([]candidateDTO, 0, len(in))
		for _, c := range in {
			out = append(out, candidateDTO{Account: toAccountDTO(c.Account), LastLoginAt: c.LastLoginAt, DormantFrom: c.DormantFrom})
		}
		return out
	}
	return dormancyDTO{GeneratedAt: r.GeneratedAt, Eligible: convert(r.Eligible), Approaching: convert(r.Approaching)}
}

type purgeDTO struct {
	Account     accountDTO `json:"account"`
	RequestedAt time.Time  `json:"requested_at"`
	PurgeAt     time.Time  `json:"purge_at"`
}

func toPurgeDTOs(in []application.PurgeCandidate) []purgeDTO {
	out := make([]purgeDTO, 0, len(in))
	for _, c := range in {
		out = append(out, purgeDTO{Account: toAccountDTO(c.Account), RequestedAt: c.RequestedAt, PurgeAt: c.PurgeAt})
	}
	return out
}

type upgradeDTO struct {
	ID            domain.UpgradeRequestID `json:"id"`
	AccountID     domain.AccountID        `json:"account_id"`
	DepositorName string                  `json:"depositor_name"`
	Status        domain.UpgradeStatus    `json:"status"`
	CreatedAt     time.Time               `json:"created_at"`
	CompletedAt   *time.Time              `json:"completed_at,omitempty"`
}

func toUpgradeDTO(r domain.UpgradeRequest) upgradeDTO {
	return upgradeDTO{
		ID:            r.ID,
		AccountID:     r.AccountID,
		DepositorName: r.DepositorName,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		CompletedAt:   r.CompletedAt,
	}
}

type settingsDTO struct {
	Kind                domain.Kind `json:"kind"`
	MonthlyLimit        *int        `json:"monthly_limit"`
	EffectiveLimit      int         `json:"effective_limit"`
	Price               string      `json:"price,omitempty"`
	PaymentInstructions string      `json:"payment_instructions,omitempty"`
}

func toSettingsDTO(s domain.PlanSettings) settingsDTO {
	return settingsDTO{
		Kind:                s.Kind,
		MonthlyLimit:        s.MonthlyLimit,
		EffectiveLimit:      s.EffectiveLimit(),
		Price:               s.Price,
		PaymentInstructions: s.PaymentInstructions,
	}
}

type registerRequest struct {
	Kind domain.Kind `json:"kind"`
}

type consumeRequest struct {
	Action domain.ActionKind `json:"action"`
}

type deletionRequest struct {
	Confirmed bool `json:"confirmed"`
}

type upgradeRequest struct {
	DepositorName string `json:"depositor_name"`
}

type transitionRequest struct {
	To           domain.Status `json:"to"`
	ExpectedFrom domain.Status `json:"expected_from,omitempty"`
}

type planRequest struct {
	Plan domain.Plan `json:"plan"`
	// ExpiryDate is a calendar date, YYYY-MM-DD.
	ExpiryDate          string `json:"expiry_date,omitempty"`
	FollowerSearchLimit *int   `json:"follower_search_limit,omitempty"`
}

type settingsRequest struct {
	MonthlyLimit        *int   `json:"monthly_limit"`
	Price               string `json:"price,omitempty"`
	PaymentInstructions string `json:"payment_instructions,omitempty"`
}
