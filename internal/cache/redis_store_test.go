package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStore_PutGet(t *testing.T) {
	s := newTestRedisStore(t)
	require.NoError(t, s.Put(BoxUserProfiles, "pk1", []byte("payload"), 0))

	val, ok, err := s.Get(BoxUserProfiles, "pk1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "payload", string(val))
}

func TestRedisStore_MissingKey(t *testing.T) {
	s := newTestRedisStore(t)
	_, ok, err := s.Get(BoxUserProfiles, "ghost")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisStore_DeletePrefix(t *testing.T) {
	s := newTestRedisStore(t)
	require.NoError(t, s.Put(BoxPendingUploads, "author1/video1", []byte("a"), 0))
	require.NoError(t, s.Put(BoxPendingUploads, "author1/video2", []byte("b"), 0))
	require.NoError(t, s.Put(BoxPendingUploads, "author2/video1", []byte("c"), 0))

	require.NoError(t, s.DeletePrefix(BoxPendingUploads, "author1/"))

	_, ok, _ := s.Get(BoxPendingUploads, "author1/video1")
	require.False(t, ok)
	_, ok, _ = s.Get(BoxPendingUploads, "author2/video1")
	require.True(t, ok)
}

func TestRedisStore_BoxesAreNamespaced(t *testing.T) {
	s := newTestRedisStore(t)
	require.NoError(t, s.Put(BoxUserProfiles, "k", []byte("profile"), 0))
	require.NoError(t, s.Put(BoxVideoCache, "k", []byte("video"), 0))

	v1, _, _ := s.Get(BoxUserProfiles, "k")
	v2, _, _ := s.Get(BoxVideoCache, "k")
	require.Equal(t, "profile", string(v1))
	require.Equal(t, "video", string(v2))
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(BoxUserProfiles, "ephemeral", []byte("v"), time.Second))
	mr.FastForward(2 * time.Second)

	_, ok, err := store.Get(BoxUserProfiles, "ephemeral")
	require.NoError(t, err)
	require.False(t, ok)
}
