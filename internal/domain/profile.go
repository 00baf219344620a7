package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Profile struct {
	DisplayName        string
	Bio                string
	Categories         []string
	InstagramURL       string
	FollowerCount      int
	WebsiteURL         string
	CompanyDescription string
}

type influencerProfileRules struct {
	InstagramURL  string `validate:"required,url"`
	FollowerCount int    `validate:"gte=0"`
}

type companyProfileRules struct {
	WebsiteURL string `validate:"required,url"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func profileValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate checks the fields a profile of the given kind must carry before it
// can be submitted for review.
func (p Profile) Validate(kind Kind) error {
	var rules any
	switch kind {
	case KindInfluencer:
		rules = influencerProfileRules{InstagramURL: strings.TrimSpace(p.InstagramURL), FollowerCount: p.FollowerCount}
	case KindCompany:
		rules = companyProfileRules{WebsiteURL: strings.TrimSpace(p.WebsiteURL)}
	default:
		return fmt.Errorf("%w: unknown account kind %q", ErrInvalidProfile, kind)
	}

	err := profileValidator().Struct(rules)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fieldErr := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fieldErr.Field(), fieldErr.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(fields, ", "))
	}

	return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
}
