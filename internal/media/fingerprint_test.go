package media

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIsPureInSizeAndModTime(t *testing.T) {
	mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, fingerprint(mod, 100), fingerprint(mod, 100))
	assert.Equal(t, fingerprint(mod, 100), fingerprint(mod.In(time.FixedZone("X", 7200)), 100))
	assert.NotEqual(t, fingerprint(mod, 100), fingerprint(mod, 101))
	assert.NotEqual(t, fingerprint(mod, 100), fingerprint(mod.Add(time.Second), 100))
	assert.NotEqual(t, fingerprint(mod, 100), fingerprint(mod.Add(time.Nanosecond), 100))
}

func TestFingerprintOf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.jpg")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	mod := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, mod, mod))

	first, err := FingerprintOf(path)
	require.NoError(t, err)
	second, err := FingerprintOf(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "repeated stats of an unchanged file")

	require.NoError(t, os.Chtimes(path, mod, mod.Add(time.Minute)))
	changed, err := FingerprintOf(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	require.NoError(t, os.WriteFile(path, []byte("one-two"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	resized, err := FingerprintOf(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, resized)
}

func TestFingerprintOfMissingFile(t *testing.T) {
	_, err := FingerprintOf(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.True(t, errors.Is(err, ErrIO))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHasChanged(t *testing.T) {
	assert.True(t, HasChanged("abc", ""))
	assert.True(t, HasChanged("abc", "def"))
	assert.False(t, HasChanged("abc", "abc"))
}
