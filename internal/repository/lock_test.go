package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_AcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")
	lock := NewFileLock(path, "server")

	require.NoError(t, lock.TryAcquire())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var meta LockFile
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, os.Getpid(), meta.PID)
	assert.Equal(t, "server", meta.Owner)

	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release(), "second release is a no-op")

	_, err = os.Stat(path)
	assert.NoError(t, err, "lock file stays after release")

	require.NoError(t, lock.TryAcquire(), "lock can be reacquired")
	require.NoError(t, lock.Release())
}

func TestFileLock_Conflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")
	holder := NewFileLock(path, "server")
	other := NewFileLock(path, "cli")

	require.NoError(t, holder.TryAcquire())
	defer holder.Release()

	err := other.TryAcquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked by server")

	assert.Error(t, holder.TryAcquire(), "handle cannot acquire twice")
}

func TestFileLock_AcquireWaits(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")
	holder := NewFileLock(path, "server")
	waiter := NewFileLock(path, "cli")

	require.NoError(t, holder.TryAcquire())

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = holder.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, waiter.Acquire(ctx))
	require.NoError(t, waiter.Release())
}

func TestFileLock_AcquireTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")
	holder := NewFileLock(path, "server")
	waiter := NewFileLock(path, "cli")

	require.NoError(t, holder.TryAcquire())
	defer holder.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := waiter.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
