package ports

import "context"

// SecretResolver turns a "provider://path" reference into its secret value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// SecretBackend reads one secret by key from a single provider.
type SecretBackend interface {
	Get(ctx context.Context, key string) (string, error)
}
