package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	filebackend "github.com/bnema/collab-lifecycle/internal/adapters/secrets/file"
	passbackend "github.com/bnema/collab-lifecycle/internal/adapters/secrets/pass"
	"github.com/bnema/collab-lifecycle/internal/ports"
)

const (
	SchemePass = "pass"
	SchemeFile = "file"
	SchemeEnv  = "env"
)

var (
	ErrUnsupportedRef = errors.New("unsupported secret reference")
	ErrEnvNotSet      = errors.New("environment variable not set")
)

// Resolver dispatches "scheme://key" references. pass:// lookups fall back to
// the file backend under the same key when pass fails.
type Resolver struct {
	pass      ports.SecretBackend
	file      ports.SecretBackend
	lookupEnv func(string) (string, bool)
}

var _ ports.SecretResolver = (*Resolver)(nil)

func New(pass ports.SecretBackend, file ports.SecretBackend) *Resolver {
	return &Resolver{pass: pass, file: file, lookupEnv: os.LookupEnv}
}

// NewPassFirstWithFileFallback resolves pass:// through the pass CLI and
// file:// (and pass:// fallbacks) under fileRoot.
func NewPassFirstWithFileFallback(fileRoot string) *Resolver {
	return New(passbackend.NewBackend(), filebackend.NewBackend(fileRoot))
}

func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	scheme, key, ok := strings.Cut(strings.TrimSpace(ref), "://")
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedRef, ref)
	}

	switch scheme {
	case SchemeEnv:
		value, ok := r.lookupEnv(key)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrEnvNotSet, key)
		}
		return value, nil
	case SchemeFile:
		return r.file.Get(ctx, key)
	case SchemePass:
		return r.passWithFallback(ctx, key)
	default:
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedRef, scheme)
	}
}

func (r *Resolver) passWithFallback(ctx context.Context, key string) (string, error) {
	value, err := r.pass.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}

	fallbackValue, fallbackErr := r.file.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}

	return "", fmt.Errorf("pass lookup failed: %w; file fallback failed: %w", err, fallbackErr)
}
