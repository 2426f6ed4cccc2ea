//go:build !windows

package execlock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSystemBackend(t *testing.T) Backend {
	return NewFileBackend(t.TempDir())
}

func TestFileBackendRemovesLockFile(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(dir)

	h, err := backend.TryCreate(InstallerMutexName)
	require.NoError(t, err)

	path := filepath.Join(dir, "Global__MSIExecute.lock")
	_, err = os.Stat(path)
	require.NoError(t, err, "lock file should exist while held")

	require.NoError(t, h.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "lock file should be gone after release")

	assert.NoError(t, h.Release())
}

func TestFileBackendIgnoresStaleFile(t *testing.T) {
	dir := t.TempDir()
	backend := NewFileBackend(dir)

	// A file left behind by a crashed holder carries no lock.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.lock"), nil, 0644))

	held, err := backend.Exists("stale")
	require.NoError(t, err)
	assert.False(t, held)

	h, err := backend.TryCreate("stale")
	require.NoError(t, err)
	require.NoError(t, h.Release())
}

func TestFileBackendCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "locks")
	backend := NewFileBackend(dir)

	held, err := backend.Exists("x")
	require.NoError(t, err)
	assert.False(t, held)

	h, err := backend.TryCreate("x")
	require.NoError(t, err)
	defer h.Release()

	held, err = backend.Exists("x")
	require.NoError(t, err)
	assert.True(t, held)
}
