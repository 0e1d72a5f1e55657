package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *BoltStore {
	t.Helper()
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndGet(t *testing.T) {
	store := newStore(t)

	entry := &Entry{
		Module:    "oneview_fc_network",
		Name:      "fc-a",
		State:     "present",
		Changed:   true,
		Msg:       "CREATED",
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Duration:  1500 * time.Millisecond,
	}
	require.NoError(t, store.Record(entry))
	require.NotEmpty(t, entry.ID)

	got, err := store.GetEntry(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	_, err = store.GetEntry("missing")
	assert.Error(t, err)
}

func TestListNewestFirst(t *testing.T) {
	store := newStore(t)

	modules := []string{"oneview_scope", "oneview_volume", "oneview_scope"}
	for _, m := range modules {
		require.NoError(t, store.Record(&Entry{Module: m, Msg: "ALREADY_PRESENT"}))
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "oneview_scope", all[0].Module)
	assert.Equal(t, "oneview_volume", all[1].Module)
	assert.True(t, all[0].ID > all[1].ID)

	limited, err := store.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	scopes, err := store.ListByModule("oneview_scope", 0)
	require.NoError(t, err)
	assert.Len(t, scopes, 2)
}

func TestPrune(t *testing.T) {
	store := newStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(&Entry{Module: "oneview_scope"}))
		time.Sleep(2 * time.Millisecond)
	}
	newest, err := store.List(1)
	require.NoError(t, err)

	deleted, err := store.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	left, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, newest[0].ID, left[0].ID)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := NewBoltStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Record(&Entry{Module: "oneview_enclosure", Failed: true, Error: "boom"}))
	require.NoError(t, store.Close())

	store, err = NewBoltStore(path)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Failed)
	assert.Equal(t, "boom", entries[0].Error)
}
