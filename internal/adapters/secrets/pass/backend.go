package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/bnema/collab-lifecycle/internal/ports"
)

var ErrUnavailable = errors.New("pass command unavailable")

type runFunc func(ctx context.Context, args ...string) (stdout string, stderr string, err error)

// Backend reads secrets from the password-store CLI.
type Backend struct {
	run runFunc
}

var _ ports.SecretBackend = (*Backend)(nil)

func NewBackend() *Backend {
	return &Backend{run: runPassCommand}
}

func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := b.run(ctx, "show", key)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return "", err
		}
		if stderr == "" {
			return "", fmt.Errorf("pass show %q: %w", key, err)
		}
		return "", fmt.Errorf("pass show %q: %w: %s", key, err, stderr)
	}

	// Only the first line is the secret; pass keeps metadata below it.
	secret, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSuffix(secret, "\r"), nil
}

func runPassCommand(ctx context.Context, args ...string) (string, string, error) {
	path, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}
