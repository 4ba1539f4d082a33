// Package repomanager assembles the identity and refresh-token repositories
// for the configured backends and owns their connections.
package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users() users.Repository
	RefreshTokens() refreshtokens.Repository
	Close() error
}

// Options selects backends and carries their connection settings.
type Options struct {
	IdentityBackend  string
	RefreshBackend   string
	DatabaseDSN      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RefreshRetention time.Duration
	ConnectTimeout   time.Duration
	Now              func() time.Time
}

// Manager is the concrete RepositoryManager. db and rdb are nil when no
// repository needs them.
type Manager struct {
	db            *sql.DB
	rdb           *redis.Client
	users         users.Repository
	refreshTokens refreshtokens.Repository
}

// openPostgres and openRedis are seams for tests.
var (
	openPostgres = dbx.OpenPostgres
	openRedis    = func(ctx context.Context, o Options) (*redis.Client, error) {
		rdb := redis.NewClient(&redis.Options{Addr: o.RedisAddr, Password: o.RedisPassword, DB: o.RedisDB})
		pingCtx, cancel := context.WithTimeout(ctx, o.ConnectTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return rdb, nil
	}
)

// Open connects whatever the selected backends need and builds the
// repositories.
func Open(ctx context.Context, o Options) (*Manager, error) {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 10 * time.Second
	}
	m := &Manager{}

	if o.IdentityBackend == BackendPostgres || o.RefreshBackend == BackendPostgres {
		db, err := openPostgres(ctx, o.DatabaseDSN, o.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		m.db = db
	}
	if o.RefreshBackend == BackendRedis {
		rdb, err := openRedis(ctx, o)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		m.rdb = rdb
	}

	switch o.IdentityBackend {
	case BackendPostgres:
		m.users = users.NewPostgresRepository(m.db)
	case BackendMemory:
		m.users = users.NewMemoryRepository()
	default:
		_ = m.Close()
		return nil, fmt.Errorf("unknown identity backend %q", o.IdentityBackend)
	}

	switch o.RefreshBackend {
	case BackendPostgres:
		m.refreshTokens = refreshtokens.NewPostgresRepository(m.db, o.RefreshRetention, o.Now)
	case BackendRedis:
		m.refreshTokens = refreshtokens.NewRedisRepository(m.rdb, "rt", o.RefreshRetention, o.Now)
	case BackendMemory:
		m.refreshTokens = refreshtokens.NewMemoryRepository(o.RefreshRetention, o.Now)
	default:
		_ = m.Close()
		return nil, fmt.Errorf("unknown refresh backend %q", o.RefreshBackend)
	}

	return m, nil
}

func (m *Manager) Users() users.Repository {
	return m.users
}

func (m *Manager) RefreshTokens() refreshtokens.Repository {
	return m.refreshTokens
}

// RunMigrations applies the schema when a Postgres pool is in use.
func (m *Manager) RunMigrations(ctx context.Context) error {
	if m.db == nil {
		return nil
	}
	return RunMigrations(ctx, m.db)
}

func (m *Manager) Close() error {
	var errs []error
	if m.db != nil {
		errs = append(errs, m.db.Close())
	}
	if m.rdb != nil {
		errs = append(errs, m.rdb.Close())
	}
	return errors.Join(errs...)
}
