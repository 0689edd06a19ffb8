package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/scenedl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(scene string) domain.InstallRecord {
	return domain.InstallRecord{
		Scene:       scene,
		URL:         "https://example.com/" + scene + ".zip",
		Archive:     scene + ".zip",
		Bytes:       1234,
		Dir:         "/scenes",
		InstalledAt: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC),
	}
}

func TestHistoryStore_MemoryOnly(t *testing.T) {
	s, err := NewHistoryStore("")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Record(record("rt5")))
	require.NoError(t, s.Record(record("cbox")))

	rec, ok := s.Get("rt5")
	require.True(t, ok)
	assert.Equal(t, "rt5.zip", rec.Archive)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "cbox", list[0].Scene)
	assert.Equal(t, "rt5", list[1].Scene)

	_, ok = s.Get("rt4")
	assert.False(t, ok)
}

func TestHistoryStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.db")

	s, err := NewHistoryStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(record("cbox_gloss")))
	require.NoError(t, s.Close())

	reopened, err := NewHistoryStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, ok := reopened.Get("cbox_gloss")
	require.True(t, ok)
	assert.Equal(t, record("cbox_gloss"), rec)
}

func TestHistoryStore_RecordReplaces(t *testing.T) {
	s, err := NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer s.Close()

	first := record("rt4")
	second := record("rt4")
	second.Bytes = 999

	require.NoError(t, s.Record(first))
	require.NoError(t, s.Record(second))

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, int64(999), list[0].Bytes)
}

func TestHistoryStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := NewHistoryStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Record(record("rt4")))
	require.NoError(t, s.Clear())
	assert.Empty(t, s.List())
	require.NoError(t, s.Close())

	reopened, err := NewHistoryStore(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Empty(t, reopened.List())
}

func TestHistoryStore_RejectsEmptyScene(t *testing.T) {
	s, err := NewHistoryStore("")
	require.NoError(t, err)

	assert.Error(t, s.Record(domain.InstallRecord{}))
}
