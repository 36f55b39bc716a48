package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadState_MissingFile(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	assert.Empty(t, st.Entries)
}

func TestState_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")

	local := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(local, []byte("img"), 0o644))

	st := NewState()
	st.Record(Entry{
		URL:          "https://cdn-p.cian.site/1.jpg",
		LocalPath:    local,
		Bytes:        3,
		DownloadedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, SaveState(statePath, st))

	loaded, err := LoadState(statePath)
	require.NoError(t, err)
	require.Len(t, loaded.Entries, 1)
	assert.True(t, loaded.Has("https://cdn-p.cian.site/1.jpg"))
	assert.Equal(t, int64(3), loaded.Entries["https://cdn-p.cian.site/1.jpg"].Bytes)
}

func TestState_Has_LocalFileRemoved(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(local, []byte("img"), 0o644))

	st := NewState()
	st.Record(Entry{URL: "https://example.com/1.jpg", LocalPath: local})
	require.True(t, st.Has("https://example.com/1.jpg"))

	require.NoError(t, os.Remove(local))
	assert.False(t, st.Has("https://example.com/1.jpg"))
}

func TestLoadState_CorruptFile(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{not json"), 0o644))

	_, err := LoadState(statePath)
	assert.Error(t, err)
}
