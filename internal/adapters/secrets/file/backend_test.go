package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendReadsRelativeAndAbsoluteKeys(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "collab"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "collab", "signing-key"), []byte("s3cr3t\n"), 0o600))

	backend := NewBackend(root)

	value, err := backend.Get(context.Background(), "collab/signing-key")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", value)

	value, err = backend.Get(context.Background(), filepath.Join(root, "collab", "signing-key"))
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", value)
}

func TestBackendRejectsEscapingKeys(t *testing.T) {
	t.Parallel()

	backend := NewBackend(t.TempDir())

	for _, key := range []string{"", "  ", ".", "../outside"} {
		_, err := backend.Get(context.Background(), key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestBackendMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewBackend(t.TempDir()).Get(context.Background(), "collab/absent")
	require.ErrorIs(t, err, ErrNotFound)
}
