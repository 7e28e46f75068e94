package fontdir

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/image/font/gofont/goregular"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFont(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), goregular.TTF, 0o644))
}

func TestOpenScansExistingFonts(t *testing.T) {
	dir := t.TempDir()
	writeFont(t, dir, "Roboto.ttf")
	writeFont(t, dir, "heading.otf")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	r, err := Open(dir, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.ElementsMatch(t, []string{"roboto", "heading"}, r.Names())
}

func TestLookupCaseAndExtensionInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFont(t, dir, "Roboto.ttf")

	r, err := Open(dir, nil)
	require.NoError(t, err)
	defer r.Close()

	for _, name := range []string{"roboto", "Roboto", "ROBOTO.TTF", "roboto.ttf"} {
		src, err := r.Lookup(name)
		require.NoError(t, err, "lookup %q", name)
		assert.NotEmpty(t, src.Name())
	}

	_, err = r.Lookup("missing")
	assert.ErrorIs(t, err, ErrUnknownFont)
}

func TestWatcherPicksUpNewFont(t *testing.T) {
	dir := t.TempDir()

	r, err := Open(dir, nil)
	require.NoError(t, err)
	defer r.Close()

	writeFont(t, dir, "late.ttf")

	require.Eventually(t, func() bool {
		_, err := r.Lookup("late")
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWatcherDropsRemovedFont(t *testing.T) {
	dir := t.TempDir()
	writeFont(t, dir, "gone.ttf")

	r, err := Open(dir, nil)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Lookup("gone")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "gone.ttf")))

	require.Eventually(t, func() bool {
		_, err := r.Lookup("gone")
		return err != nil
	}, 3*time.Second, 20*time.Millisecond)
}

func TestOpenMissingDir(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, err)
}

func TestSkipsCorruptFont(t *testing.T) {
	dir := t.TempDir()
	writeFont(t, dir, "good.ttf")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.ttf"), []byte("not a font"), 0o644))

	r, err := Open(dir, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.ElementsMatch(t, []string{"good"}, r.Names())
}
