package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// PostgresRepository keeps refresh records in the refresh_tokens table,
// keyed by user_id. Records older than retention are invisible to Find even
// before the sweeper removes them.
type PostgresRepository struct {
	db        dbx.DBTX
	retention time.Duration
	now       func() time.Time
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, retention time.Duration, now func() time.Time) *PostgresRepository {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if now == nil {
		now = time.Now
	}
	return &PostgresRepository{db: db, retention: retention, now: now}
}

// Upsert inserts or overwrites the record of userID in a single statement.
func (r *PostgresRepository) Upsert(ctx context.Context, userID string, token string) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET token = EXCLUDED.token, created_at = EXCLUDED.created_at
	`
	if _, err := r.db.ExecContext(ctx, query, userID, token, r.now()); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// Find returns the record holding token if it is younger than retention.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		SELECT user_id, token, created_at
		FROM refresh_tokens
		WHERE token = $1 AND created_at > $2
	`
	rt := &models.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, token, r.now().Add(-r.retention)).
		Scan(&rt.UserID, &rt.Token, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rt, nil
}

// DeleteByToken removes a refresh token by its token string.
func (r *PostgresRepository) DeleteByToken(ctx context.Context, token string) error {
	query := `
		DELETE FROM refresh_tokens
		WHERE token = $1
	`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// DeleteExpired drops every record created at or before the cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE created_at <= $1
	`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
