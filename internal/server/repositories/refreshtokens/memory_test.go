package refreshtokens

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_UpsertOverwrites(t *testing.T) {
	repo := NewMemoryRepository(DefaultRetention, nil)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "u1", "old"))
	require.NoError(t, repo.Upsert(ctx, "u1", "new"))

	_, err := repo.Find(ctx, "old")
	require.ErrorIs(t, err, common.ErrorNotFound)

	rec, err := repo.Find(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, 1, repo.Len())
}

func TestMemory_UpsertSameTokenIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository(DefaultRetention, nil)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "u1", "tok"))
	require.NoError(t, repo.Upsert(ctx, "u1", "tok"))

	_, err := repo.Find(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.Len())
}

func TestMemory_DeleteByTokenIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository(DefaultRetention, nil)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "u1", "tok"))
	require.NoError(t, repo.DeleteByToken(ctx, "tok"))
	require.NoError(t, repo.DeleteByToken(ctx, "tok"))
	require.NoError(t, repo.DeleteByToken(ctx, "never-existed"))
	assert.Equal(t, 0, repo.Len())
}

func TestMemory_RetentionHidesAndSweepRemoves(t *testing.T) {
	clock := timex.NewFixedClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	repo := NewMemoryRepository(DefaultRetention, clock.Now)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, "u1", "tok1"))
	clock.Advance(time.Hour)
	require.NoError(t, repo.Upsert(ctx, "u2", "tok2"))

	clock.Advance(DefaultRetention - 30*time.Minute)
	_, err := repo.Find(ctx, "tok1")
	require.ErrorIs(t, err, common.ErrorNotFound, "older than retention must be unfindable")
	_, err = repo.Find(ctx, "tok2")
	require.NoError(t, err)

	n, err := repo.DeleteExpired(ctx, clock.Now().Add(-DefaultRetention))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, repo.Len())
}

func TestMemory_ConcurrentUpsertLastWriterWins(t *testing.T) {
	repo := NewMemoryRepository(DefaultRetention, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, repo.Upsert(ctx, "u1", fmt.Sprintf("tok-%d", i)))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, repo.Len())

	found := 0
	for i := 0; i < 50; i++ {
		if _, err := repo.Find(ctx, fmt.Sprintf("tok-%d", i)); err == nil {
			found++
		}
	}
	assert.Equal(t, 1, found)
}

func TestRepositoriesSatisfyContracts(t *testing.T) {
	var _ Repository = (*PostgresRepository)(nil)
	var _ Repository = (*RedisRepository)(nil)
	var _ Repository = (*MemoryRepository)(nil)
	var _ Expirer = (*PostgresRepository)(nil)
	var _ Expirer = (*MemoryRepository)(nil)
}
