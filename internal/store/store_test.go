package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, filepath.Join(dir, "renders.db"), ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndOpen(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	png := []byte("fake png bytes")
	name, err := s.Put(ctx, png, 400, 200)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9a-f-]{36}\.png$`, name)

	got, err := s.Open(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, png, got)
}

func TestOpenRejectsBadNames(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	for _, name := range []string{
		"",
		"../../etc/passwd",
		"renders.db",
		"deadbeef.png",
		"00000000-0000-0000-0000-000000000000.jpg",
	} {
		_, err := s.Open(ctx, name)
		assert.ErrorIs(t, err, ErrNotFound, "name %q", name)
	}
}

func TestOpenUnknownName(t *testing.T) {
	s := openTestStore(t, time.Hour)

	_, err := s.Open(context.Background(), "00000000-0000-0000-0000-000000000000.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpiredRenderNotServed(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	name, err := s.Put(ctx, []byte("x"), 10, 10)
	require.NoError(t, err)

	// Backdate the expiry instead of waiting.
	_, err = s.db.Exec(`UPDATE renders SET expires_at = ? WHERE name = ?`,
		time.Now().Add(-time.Minute).Unix(), name)
	require.NoError(t, err)

	_, err = s.Open(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSweepRemovesExpired(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	keep, err := s.Put(ctx, []byte("keep"), 10, 10)
	require.NoError(t, err)
	drop, err := s.Put(ctx, []byte("drop"), 10, 10)
	require.NoError(t, err)

	_, err = s.db.Exec(`UPDATE renders SET expires_at = ? WHERE name = ?`,
		time.Now().Add(-time.Minute).Unix(), drop)
	require.NoError(t, err)

	require.NoError(t, s.Sweep(ctx))

	_, err = s.Open(ctx, keep)
	assert.NoError(t, err)
	_, err = s.Open(ctx, drop)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(filepath.Join(s.dir, drop))
	assert.True(t, os.IsNotExist(err))
}

func TestZeroTTLKeepsForever(t *testing.T) {
	s := openTestStore(t, 0)
	ctx := context.Background()

	name, err := s.Put(ctx, []byte("x"), 10, 10)
	require.NoError(t, err)

	require.NoError(t, s.Sweep(ctx))

	_, err = s.Open(ctx, name)
	assert.NoError(t, err)
}

func TestStats(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	_, err := s.Put(ctx, []byte("abcd"), 10, 10)
	require.NoError(t, err)
	_, err = s.Put(ctx, []byte("efghij"), 10, 10)
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
	assert.Equal(t, int64(10), st.TotalBytes)
}
