package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLock_PathNextToArtifact(t *testing.T) {
	l := NewBuildLock("/site/static/searchindex.db")

	assert.Equal(t, "/site/static/searchindex.db.lock", l.Path())
}

func TestBuildLock_TryLockContention(t *testing.T) {
	// Given: a held lock
	artifact := filepath.Join(t.TempDir(), "static", "searchindex.db")
	first := NewBuildLock(artifact)
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)

	// When: a second lock on the same artifact tries
	second := NewBuildLock(artifact)
	ok, err = second.TryLock()

	// Then: it is refused until the first is released
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, first.Unlock())
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
}

func TestBuildLock_LockHonoursContext(t *testing.T) {
	artifact := filepath.Join(t.TempDir(), "searchindex.db")
	holder := NewBuildLock(artifact)
	ok, err := holder.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = NewBuildLock(artifact).Lock(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBuildLock_UnlockIsIdempotent(t *testing.T) {
	l := NewBuildLock(filepath.Join(t.TempDir(), "searchindex.db"))

	assert.NoError(t, l.Unlock())
	require.NoError(t, l.Lock(context.Background()))
	assert.NoError(t, l.Unlock())
	assert.NoError(t, l.Unlock())
}
