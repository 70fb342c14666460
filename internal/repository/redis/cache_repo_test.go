package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
)

func newTestRepo(t *testing.T) (*CacheRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	repo, err := NewCacheRepo(client)
	require.NoError(t, err)
	return repo, mr
}

func TestCacheRepo_SetGet(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Set("session:lock", "1", time.Minute)
	require.NoError(t, err)

	val, err := repo.Get("session:lock")
	require.NoError(t, err)
	assert.Equal(t, "1", val)
}

func TestCacheRepo_GetMissingKey(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get("missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCacheRepo_Exists(t *testing.T) {
	repo, _ := newTestRepo(t)

	ok, err := repo.Exists("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set("k", "v", 0))
	ok, err = repo.Exists("k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheRepo_IncrementAndExpire(t *testing.T) {
	repo, mr := newTestRepo(t)

	// Паттерн лимитера: INCR + EXPIRE на первом запросе в окне
	n, err := repo.Increment("rl:score:0xabc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Expire("rl:score:0xabc", time.Minute))

	n, err = repo.Increment("rl:score:0xabc")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// По истечении окна счетчик исчезает
	mr.FastForward(2 * time.Minute)
	ok, err := repo.Exists("rl:score:0xabc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheRepo_SetNX(t *testing.T) {
	repo, _ := newTestRepo(t)

	ok, err := repo.SetNX("creation:lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "Первый SetNX должен захватить ключ")

	ok, err = repo.SetNX("creation:lock", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "Повторный SetNX не должен перезахватить ключ")

	require.NoError(t, repo.Delete("creation:lock"))
	ok, err = repo.SetNX("creation:lock", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
