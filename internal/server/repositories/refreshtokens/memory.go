package refreshtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// MemoryRepository is a mutex-guarded in-process store. It has no native
// TTL: Find hides stale records and DeleteExpired removes them.
type MemoryRepository struct {
	mu        sync.Mutex
	byUser    map[string]models.RefreshToken
	byToken   map[string]string
	retention time.Duration
	now       func() time.Time
}

func NewMemoryRepository(retention time.Duration, now func() time.Time) *MemoryRepository {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryRepository{
		byUser:    make(map[string]models.RefreshToken),
		byToken:   make(map[string]string),
		retention: retention,
		now:       now,
	}
}

func (r *MemoryRepository) Upsert(ctx context.Context, userID string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok {
		delete(r.byToken, old.Token)
	}
	r.byUser[userID] = models.RefreshToken{UserID: userID, Token: token, CreatedAt: r.now()}
	r.byToken[token] = userID
	return nil
}

func (r *MemoryRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	rec := r.byUser[userID]
	if !rec.CreatedAt.After(r.now().Add(-r.retention)) {
		return nil, common.ErrorNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) DeleteByToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID, ok := r.byToken[token]; ok {
		delete(r.byToken, token)
		delete(r.byUser, userID)
	}
	return nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for userID, rec := range r.byUser {
		if !rec.CreatedAt.After(before) {
			delete(r.byToken, rec.Token)
			delete(r.byUser, userID)
			n++
		}
	}
	return n, nil
}

// Len reports how many records are held, stale ones included.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
