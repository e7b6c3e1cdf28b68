package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTx_CommitNewFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "assessments.yaml")

	tx := NewFileTx()
	require.NoError(t, tx.WriteFile(target, []byte("records: []\n")))

	_, err := os.Stat(target)
	assert.True(t, os.IsNotExist(err), "target must not exist before commit")

	staged, err := tx.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "records: []\n", string(staged))

	require.NoError(t, tx.Commit())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "records: []\n", string(data))
	assertNoLeftovers(t, filepath.Dir(target))
}

func TestFileTx_CommitReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "assessments.yaml")
	require.NoError(t, os.WriteFile(target, []byte("old"), 0644))

	tx := NewFileTx()
	require.NoError(t, tx.WriteFile(target, []byte("first")))
	require.NoError(t, tx.WriteFile(target, []byte("second")))
	require.NoError(t, tx.Commit())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
	assertNoLeftovers(t, dir)
}

func TestFileTx_Rollback(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "assessments.yaml")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0644))

	tx := NewFileTx()
	require.NoError(t, tx.WriteFile(target, []byte("changed")))
	require.NoError(t, tx.Rollback())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assertNoLeftovers(t, dir)
}

func TestFileTx_CommittedTwice(t *testing.T) {
	dir := t.TempDir()
	tx := NewFileTx()
	require.NoError(t, tx.WriteFile(filepath.Join(dir, "a.yaml"), []byte("a")))
	require.NoError(t, tx.Commit())

	assert.Error(t, tx.Commit())
	assert.Error(t, tx.Rollback())
	assert.Error(t, tx.WriteFile(filepath.Join(dir, "b.yaml"), []byte("b")))
}

func TestFileTx_ReadMissing(t *testing.T) {
	tx := NewFileTx()
	_, err := tx.ReadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func assertNoLeftovers(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp.")
		assert.NotContains(t, e.Name(), ".backup.")
	}
}
