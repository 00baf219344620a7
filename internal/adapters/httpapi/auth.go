package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/collab-lifecycle/internal/application"
	"github.com/bnema/collab-lifecycle/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

type principalKey struct{}

var ErrMissingToken = errors.New("bearer token required")

// Claims are the identity-provider claims the API reads. The subject is the
// account id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens issued for this service.
type Authenticator struct {
	key    []byte
	issuer string
	now    func() time.Time
}

func NewAuthenticator(key []byte, issuer string) *Authenticator {
	return &Authenticator{key: key, issuer: issuer, now: time.Now}
}

// Issue signs a token for principal. Used by the CLI and tests; production
// tokens come from the identity provider sharing the key.
func (a *Authenticator) Issue(principal application.Principal, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Email: principal.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(principal.ID),
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (a *Authenticator) Verify(raw string) (application.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	var claims Claims
	if _, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return a.key, nil
	}, opts...); err != nil {
		return application.Principal{}, fmt.Errorf("verify token: %w", err)
	}
	if claims.Subject == "" {
		return application.Principal{}, errors.New("verify token: subject missing")
	}

	return application.Principal{ID: domain.AccountID(claims.Subject), Email: claims.Email}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			writeError(w, http.StatusUnauthorized, "unauthenticated", ErrMissingToken.Error())
			return
		}

		principal, err := a.Verify(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, principal)))
	})
}

func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(application.Principal)
	return principal, ok
}
