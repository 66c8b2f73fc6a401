package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/autoservice-market/internal/models"

	"github.com/redis/go-redis/v9"
)

// RequestCache - кэш карточек заявок.
type RequestCache interface {
	// Get возвращает заявку и признак попадания в кэш.
	Get(ctx context.Context, id string) (*models.ServiceRequest, bool, error)
	Set(ctx context.Context, req *models.ServiceRequest) error
	Invalidate(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// ConnectRedis создает клиента Redis и проверяет соединение.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return rdb, nil
}

const defaultGuardTTL = 5 * time.Second

func keyRequest(id string) string { return "svcreq:" + id }

// keyGuard хранит момент последней инвалидации заявки.
func keyGuard(id string) string { return "svcreq:" + id + ":inv" }

// setIfFresh записывает заявку, только если она изменена позже последней инвалидации.
// KEYS[1] - ключ заявки, KEYS[2] - метка инвалидации.
// ARGV[1] - JSON, ARGV[2] - updatedAt в мс, ARGV[3] - TTL в мс (0 - без срока).
var setIfFresh = redis.NewScript(`
local guard = redis.call('GET', KEYS[2])
if guard and tonumber(ARGV[2]) <= tonumber(guard) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// RedisRequestCache хранит заявки в Redis в виде JSON.
// Invalidate оставляет метку на GuardTTL: пока она жива, Set не примет
// версию заявки, прочитанную до инвалидации.
type RedisRequestCache struct {
	R        *redis.Client
	TTL      time.Duration
	GuardTTL time.Duration
	now      func() time.Time
}

// NewRedisRequestCache создает новый экземпляр RedisRequestCache.
func NewRedisRequestCache(r *redis.Client, ttl time.Duration) *RedisRequestCache {
	return &RedisRequestCache{R: r, TTL: ttl, GuardTTL: defaultGuardTTL, now: time.Now}
}

func (c *RedisRequestCache) Get(ctx context.Context, id string) (*models.ServiceRequest, bool, error) {
	b, err := c.R.Get(ctx, keyRequest(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var req models.ServiceRequest
	if err := json.Unmarshal(b, &req); err != nil {
		return nil, false, fmt.Errorf("decode cached request: %w", err)
	}
	return &req, true, nil
}

func (c *RedisRequestCache) Set(ctx context.Context, req *models.ServiceRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	keys := []string{keyRequest(req.ID), keyGuard(req.ID)}
	return setIfFresh.Run(ctx, c.R, keys, b, req.UpdatedAt.UnixMilli(), c.TTL.Milliseconds()).Err()
}

func (c *RedisRequestCache) Invalidate(ctx context.Context, id string) error {
	_, err := c.R.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keyRequest(id))
		pipe.Set(ctx, keyGuard(id), c.now().UnixMilli(), c.GuardTTL)
		return nil
	})
	return err
}

func (c *RedisRequestCache) Ping(ctx context.Context) error {
	return c.R.Ping(ctx).Err()
}

// NopCache ничего не хранит. Используется, когда Redis не настроен.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*models.ServiceRequest, bool, error) {
	return nil, false, nil
}

func (NopCache) Set(context.Context, *models.ServiceRequest) error { return nil }

func (NopCache) Invalidate(context.Context, string) error { return nil }

func (NopCache) Ping(context.Context) error { return nil }
