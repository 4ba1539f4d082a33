// Package refreshtokens declares the server-side repository contract for
// the single current refresh token of each user, plus its Postgres, Redis
// and in-memory implementations.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// DefaultRetention is how long a stored record stays findable, regardless of
// the token's own expiry claim.
const DefaultRetention = 7 * 24 * time.Hour

// Repository stores at most one refresh token per user.
type Repository interface {
	// Upsert replaces any record held for userID and resets its creation
	// time. Concurrent upserts for the same user leave exactly one record.
	Upsert(ctx context.Context, userID string, token string) error

	// Find looks up a record by its opaque token string. Absent or retired
	// records yield common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteByToken removes the record holding token. Deleting a
	// non-existent token is not an error.
	DeleteByToken(ctx context.Context, token string) error
}

// Expirer is implemented by stores without native TTL. A sweeper calls it
// periodically to physically drop records created before the cutoff.
type Expirer interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
