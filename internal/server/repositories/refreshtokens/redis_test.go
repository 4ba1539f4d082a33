package refreshtokens

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisRepository(rdb, "rt", DefaultRetention, nil), mr
}

func TestRedis_UpsertFindDelete(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "u1", "tok1"))

	rec, err := repo.Find(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, "tok1", rec.Token)
	assert.False(t, rec.CreatedAt.IsZero())

	require.NoError(t, repo.DeleteByToken(ctx, "tok1"))
	_, err = repo.Find(ctx, "tok1")
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, repo.DeleteByToken(ctx, "tok1"), "second delete is a no-op")
}

func TestRedis_UpsertOverwritesPreviousToken(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "u1", "old"))
	require.NoError(t, repo.Upsert(ctx, "u1", "new"))

	_, err := repo.Find(ctx, "old")
	require.ErrorIs(t, err, common.ErrorNotFound)
	assert.False(t, mr.Exists("rt:token:old"), "stale token index must be dropped")

	rec, err := repo.Find(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
}

func TestRedis_DeleteOfStaleTokenKeepsCurrent(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "u1", "old"))
	require.NoError(t, repo.Upsert(ctx, "u1", "new"))
	require.NoError(t, repo.DeleteByToken(ctx, "old"))

	_, err := repo.Find(ctx, "new")
	require.NoError(t, err)
}

func TestRedis_RecordsExpireAfterRetention(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "u1", "tok1"))
	assert.Equal(t, DefaultRetention, mr.TTL("rt:user:u1"))
	assert.Equal(t, DefaultRetention, mr.TTL("rt:token:tok1"))

	mr.FastForward(DefaultRetention - time.Minute)
	_, err := repo.Find(ctx, "tok1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)
	_, err = repo.Find(ctx, "tok1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRedis_ConcurrentUpsertLeavesSingleRecord(t *testing.T) {
	repo, mr := newRedisRepo(t)
	ctx := context.Background()

	tokens := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, tok := range tokens {
		wg.Add(1)
		go func(tok string) {
			defer wg.Done()
			assert.NoError(t, repo.Upsert(ctx, "u1", tok))
		}(tok)
	}
	wg.Wait()

	current, err := mr.Get("rt:user:u1")
	require.NoError(t, err)

	found := 0
	for _, tok := range tokens {
		if _, err := repo.Find(ctx, tok); err == nil {
			found++
			assert.Equal(t, current, tok)
		}
	}
	assert.Equal(t, 1, found)
}

func TestRedis_Unavailable(t *testing.T) {
	repo, mr := newRedisRepo(t)
	mr.Close()

	err := repo.Upsert(context.Background(), "u1", "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.Find(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}
