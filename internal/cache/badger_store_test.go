package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := OpenBadgerStore(filepath.Join(t.TempDir(), "badger"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_PutGetDelete(t *testing.T) {
	s := openTestBadger(t)

	_, ok, err := s.Get(BoxVideoCache, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(BoxVideoCache, "k1", []byte("v1"), 0))
	v, ok, err := s.Get(BoxVideoCache, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)

	require.NoError(t, s.Delete(BoxVideoCache, "k1"))
	_, ok, err = s.Get(BoxVideoCache, "k1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBadgerStore_TTLExpiry(t *testing.T) {
	s := openTestBadger(t)
	require.NoError(t, s.Put(BoxVideoCache, "ttl-key", []byte("v"), 50*time.Millisecond))

	_, ok, err := s.Get(BoxVideoCache, "ttl-key")
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok, _ := s.Get(BoxVideoCache, "ttl-key")
		return !ok
	}, 2*time.Second, 50*time.Millisecond)
}

func TestBadgerStore_DeletePrefixPurgesOnlyMatchingKeys(t *testing.T) {
	s := openTestBadger(t)
	require.NoError(t, s.Put(BoxPersonalEvents, "pk1:evt1", []byte("a"), 0))
	require.NoError(t, s.Put(BoxPersonalEvents, "pk1:evt2", []byte("b"), 0))
	require.NoError(t, s.Put(BoxPersonalEvents, "pk2:evt1", []byte("c"), 0))

	require.NoError(t, s.DeletePrefix(BoxPersonalEvents, "pk1:"))

	_, ok, _ := s.Get(BoxPersonalEvents, "pk1:evt1")
	require.False(t, ok)
	_, ok, _ = s.Get(BoxPersonalEvents, "pk2:evt1")
	require.True(t, ok)
}

func TestBadgerStore_ForEachVisitsEveryKeyInBoxOnly(t *testing.T) {
	s := openTestBadger(t)
	require.NoError(t, s.Put(BoxVideoCache, "a", []byte("1"), 0))
	require.NoError(t, s.Put(BoxVideoCache, "b", []byte("2"), 0))
	require.NoError(t, s.Put(BoxUserProfiles, "c", []byte("3"), 0))

	seen := map[string]string{}
	require.NoError(t, s.ForEach(BoxVideoCache, func(key string, value []byte) bool {
		seen[key] = string(value)
		return true
	}))
	require.Equal(t, map[string]string{"a": "1", "b": "2"}, seen)
}

func TestBadgerStore_ForEachStopsWhenFnReturnsFalse(t *testing.T) {
	s := openTestBadger(t)
	require.NoError(t, s.Put(BoxVideoCache, "a", []byte("1"), 0))
	require.NoError(t, s.Put(BoxVideoCache, "b", []byte("2"), 0))

	count := 0
	require.NoError(t, s.ForEach(BoxVideoCache, func(key string, value []byte) bool {
		count++
		return false
	}))
	require.Equal(t, 1, count)
}
