package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// failingStore hides the batch path of a Memory store and fails the n-th
// SetItem call. failRemoves makes every RemoveItem fail as well.
type failingStore struct {
	mem         *Memory
	failOn      int
	sets        int
	failRemoves bool
}

func (f *failingStore) Available() bool { return f.mem.Available() }

func (f *failingStore) GetItem(key string) (string, bool, error) { return f.mem.GetItem(key) }

func (f *failingStore) SetItem(key, value string) error {
	f.sets++
	if f.sets == f.failOn {
		return ErrQuotaExceeded
	}
	return f.mem.SetItem(key, value)
}

func (f *failingStore) RemoveItem(key string) error {
	if f.failRemoves {
		return errors.New("remove refused")
	}
	return f.mem.RemoveItem(key)
}

func seed(t *testing.T, m *Memory, items ...Item) {
	t.Helper()
	require.NoError(t, m.SetItems(items))
}

func requireItems(t *testing.T, m *Memory, want map[string]string) {
	t.Helper()
	require.Equal(t, len(want), m.Len())
	for k, v := range want {
		got, ok, err := m.GetItem(k)
		require.NoError(t, err)
		require.True(t, ok, k)
		require.Equal(t, v, got, k)
	}
}

var triple = []Item{{Key: "d", Value: "99"}, {Key: "t", Value: "number"}, {Key: "e", Value: "2000"}}

func TestSetAllRestoresOnFault(t *testing.T) {
	mem := NewMemory(0)
	seed(t, mem, Item{Key: "d", Value: "old"}, Item{Key: "t", Value: "string"}, Item{Key: "e", Value: "1000"})

	err := SetAll(&failingStore{mem: mem, failOn: 3}, triple)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.NotErrorIs(t, err, ErrRollback)
	requireItems(t, mem, map[string]string{"d": "old", "t": "string", "e": "1000"})
}

func TestSetAllRemovesNewSlotsOnFault(t *testing.T) {
	mem := NewMemory(0)
	require.ErrorIs(t, SetAll(&failingStore{mem: mem, failOn: 2}, triple), ErrQuotaExceeded)
	require.Zero(t, mem.Len())
}

func TestSetAllReportsFailedRestore(t *testing.T) {
	mem := NewMemory(0)
	err := SetAll(&failingStore{mem: mem, failOn: 2, failRemoves: true}, triple)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.ErrorIs(t, err, ErrRollback)
}

func TestSetAllUsesBatch(t *testing.T) {
	mem := NewMemory(4)
	require.ErrorIs(t, SetAll(mem, triple), ErrQuotaExceeded)
	require.Zero(t, mem.Len())

	require.NoError(t, SetAll(NewMemory(0), triple))
}

func TestDaemonBatchOverUnbatchedStoreIsAllOrNothing(t *testing.T) {
	mem := NewMemory(0)
	seed(t, mem, Item{Key: "d", Value: "old"}, Item{Key: "t", Value: "string"}, Item{Key: "e", Value: "1000"})
	c := startDaemon(t, &failingStore{mem: mem, failOn: 2})

	require.ErrorIs(t, c.SetItems(triple), ErrQuotaExceeded)
	requireItems(t, mem, map[string]string{"d": "old", "t": "string", "e": "1000"})

	require.NoError(t, c.SetItems(triple))
	requireItems(t, mem, map[string]string{"d": "99", "t": "number", "e": "2000"})
}
