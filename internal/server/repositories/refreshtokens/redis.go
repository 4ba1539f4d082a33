package refreshtokens

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// The user key holds the current token; the token key is a hash pointing
// back at the user. Both carry the retention TTL, so Redis expires records
// without a sweeper.
const upsertScript = `
local old = redis.call("GET", KEYS[1])
if old and old ~= ARGV[1] then
  redis.call("DEL", ARGV[5] .. old)
end
local tk = ARGV[5] .. ARGV[1]
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[4])
redis.call("HSET", tk, "user_id", ARGV[2], "created_at", ARGV[3])
redis.call("PEXPIRE", tk, ARGV[4])
return 1
`

const deleteScript = `
local uid = redis.call("HGET", KEYS[1], "user_id")
redis.call("DEL", KEYS[1])
if uid then
  local uk = ARGV[2] .. uid
  if redis.call("GET", uk) == ARGV[1] then
    redis.call("DEL", uk)
  end
end
return 1
`

var (
	upsertLua = redis.NewScript(upsertScript)
	deleteLua = redis.NewScript(deleteScript)
)

// RedisRepository stores refresh records in Redis under prefix.
type RedisRepository struct {
	rdb       redis.UniversalClient
	prefix    string
	retention time.Duration
	now       func() time.Time
}

func NewRedisRepository(rdb redis.UniversalClient, prefix string, retention time.Duration, now func() time.Time) *RedisRepository {
	if prefix == "" {
		prefix = "rt"
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	if now == nil {
		now = time.Now
	}
	return &RedisRepository{rdb: rdb, prefix: prefix, retention: retention, now: now}
}

func (r *RedisRepository) userKeyPrefix() string  { return r.prefix + ":user:" }
func (r *RedisRepository) tokenKeyPrefix() string { return r.prefix + ":token:" }

func (r *RedisRepository) Upsert(ctx context.Context, userID string, token string) error {
	err := upsertLua.Run(ctx, r.rdb,
		[]string{r.userKeyPrefix() + userID},
		token, userID, r.now().UnixMilli(), r.retention.Milliseconds(), r.tokenKeyPrefix(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (r *RedisRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	fields, err := r.rdb.HGetAll(ctx, r.tokenKeyPrefix()+token).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	userID, ok := fields["user_id"]
	if !ok {
		return nil, common.ErrorNotFound
	}

	current, err := r.rdb.Get(ctx, r.userKeyPrefix()+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if current != token {
		return nil, common.ErrorNotFound
	}

	createdMs, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refresh record: %w", err)
	}
	return &models.RefreshToken{
		UserID:    userID,
		Token:     token,
		CreatedAt: time.UnixMilli(createdMs),
	}, nil
}

func (r *RedisRepository) DeleteByToken(ctx context.Context, token string) error {
	err := deleteLua.Run(ctx, r.rdb,
		[]string{r.tokenKeyPrefix() + token},
		token, r.userKeyPrefix(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
