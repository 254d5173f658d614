package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// countCacheTTL は購読者数キャッシュの有効期間。
const countCacheTTL = 5 * time.Minute

// CountCache はチャンネルの購読者数キャッシュ。
type CountCache interface {
	// Get はキャッシュ済みの購読者数を返す。未キャッシュの場合はokがfalse。
	Get(ctx context.Context, channelID string) (count int64, ok bool, err error)
	// Set は購読者数をキャッシュする。
	Set(ctx context.Context, channelID string, count int64) error
	// Invalidate はキャッシュを破棄する。
	Invalidate(ctx context.Context, channelID string) error
}

// noopCache はキャッシュを使わない場合の実装。
type noopCache struct{}

func (noopCache) Get(context.Context, string) (int64, bool, error) { return 0, false, nil }
func (noopCache) Set(context.Context, string, int64) error         { return nil }
func (noopCache) Invalidate(context.Context, string) error         { return nil }

// RedisCache はRedisに購読者数を保存するCountCache。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache はredis://形式のURLからRedisCacheを生成し、疎通を確認する。
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("REDIS_URLの解析に失敗: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redisへの接続に失敗: %w", err)
	}
	return &RedisCache{client: client, ttl: countCacheTTL}, nil
}

// countKey はチャンネルの購読者数を保存するキー。
func countKey(channelID string) string {
	return "neptube:subscribers:count:" + channelID
}

// Get はキャッシュ済みの購読者数を返す。
func (c *RedisCache) Get(ctx context.Context, channelID string) (int64, bool, error) {
	n, err := c.client.Get(ctx, countKey(channelID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Set は購読者数をTTL付きで保存する。
func (c *RedisCache) Set(ctx context.Context, channelID string, count int64) error {
	return c.client.Set(ctx, countKey(channelID), count, c.ttl).Err()
}

// Invalidate はキャッシュを削除する。
func (c *RedisCache) Invalidate(ctx context.Context, channelID string) error {
	return c.client.Del(ctx, countKey(channelID)).Err()
}

// Close はRedis接続を閉じる。
func (c *RedisCache) Close() error {
	return c.client.Close()
}
