package summary

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/metrics"
	"github.com/Sound58he4/studio-sub000/internal/profile"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// CacheTTL 是今日快照缓存的过期时间
	CacheTTL = 1 * time.Minute
	// snapshotKeyPrefix + userID 是一个 Redis String，保存 TodaySnapshot 的JSON
	snapshotKeyPrefix = "summary:today:"
	// generationKeyPrefix + userID 是用户快照的失效计数，每次 Invalidate 加一
	generationKeyPrefix = "summary:gen:"
	// snapshotEpochKey 是全局失效计数，每次 Flush 加一
	snapshotEpochKey = "summary:epoch"
	// generationTTL 必须远大于一次读库的耗时
	generationTTL = 10 * CacheTTL
)

var errSnapshotInvalidated = errors.New("读取之后快照已失效")

// CacheToken 是 Get 时观察到的失效计数。
// Set 只在计数没有变化时写入，避免把提交前读到的旧快照写回缓存。
type CacheToken struct {
	epoch string
	gen   string
	valid bool
}

// SnapshotCache 是今日快照的读缓存。缓存只是加速手段，任何失败都当作未命中。
type SnapshotCache interface {
	Get(ctx context.Context, userID string) (*profile.TodaySnapshot, CacheToken, bool)
	Set(ctx context.Context, snap *profile.TodaySnapshot, token CacheToken)
	Invalidate(ctx context.Context, userID string)
}

// NoopCache 在未启用Redis时使用
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*profile.TodaySnapshot, CacheToken, bool) {
	return nil, CacheToken{}, false
}
func (NoopCache) Set(context.Context, *profile.TodaySnapshot, CacheToken) {}
func (NoopCache) Invalidate(context.Context, string)                      {}

// RedisSnapshotCache 用Redis保存今日快照。Redis不健康时所有操作直接跳过。
type RedisSnapshotCache struct {
	rdb    *redis.Client
	status *database.Status
	logger *zap.Logger
}

func NewRedisSnapshotCache(rdb *redis.Client, status *database.Status, logger *zap.Logger) *RedisSnapshotCache {
	return &RedisSnapshotCache{rdb: rdb, status: status, logger: logger}
}

func snapshotKey(userID string) string {
	return snapshotKeyPrefix + userID
}

func generationKey(userID string) string {
	return generationKeyPrefix + userID
}

func counterValue(v any) string {
	s, _ := v.(string)
	return s
}

// Get 读取缓存的快照，同时返回当前的失效计数供随后的 Set 使用
func (c *RedisSnapshotCache) Get(ctx context.Context, userID string) (*profile.TodaySnapshot, CacheToken, bool) {
	if !c.status.IsRedisHealthy() {
		return nil, CacheToken{}, false
	}
	vals, err := c.rdb.MGet(ctx, snapshotKey(userID), generationKey(userID), snapshotEpochKey).Result()
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("读取快照缓存失败", zap.String("user_id", userID), zap.Error(err))
		return nil, CacheToken{}, false
	}
	token := CacheToken{gen: counterValue(vals[1]), epoch: counterValue(vals[2]), valid: true}

	raw, ok := vals[0].(string)
	if !ok {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, token, false
	}
	var snap profile.TodaySnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.logger.Warn("快照缓存格式错误，已忽略", zap.String("user_id", userID), zap.Error(err))
		return nil, token, false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return &snap, token, true
}

// Set 在失效计数仍等于 token 时写入快照，过期时间为 CacheTTL。
// 读取之后发生过 Invalidate 或 Flush 时放弃写入。
func (c *RedisSnapshotCache) Set(ctx context.Context, snap *profile.TodaySnapshot, token CacheToken) {
	if !token.valid || !c.status.IsRedisHealthy() {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("序列化快照失败", zap.String("user_id", snap.UserID), zap.Error(err))
		return
	}

	genKey := generationKey(snap.UserID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		vals, err := tx.MGet(ctx, genKey, snapshotEpochKey).Result()
		if err != nil {
			return err
		}
		if counterValue(vals[0]) != token.gen || counterValue(vals[1]) != token.epoch {
			return errSnapshotInvalidated
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotKey(snap.UserID), raw, CacheTTL)
			return nil
		})
		return err
	}, genKey, snapshotEpochKey)

	switch {
	case err == nil:
	case errors.Is(err, errSnapshotInvalidated), errors.Is(err, redis.TxFailedErr):
		metrics.CacheRequests.WithLabelValues("stale_set").Inc()
		c.logger.Debug("快照在读取后已失效，跳过写入缓存", zap.String("user_id", snap.UserID))
	default:
		c.logger.Warn("写入快照缓存失败", zap.String("user_id", snap.UserID), zap.Error(err))
	}
}

// Invalidate 在写事务提交后删除用户的快照缓存，并推进失效计数
func (c *RedisSnapshotCache) Invalidate(ctx context.Context, userID string) {
	if !c.status.IsRedisHealthy() {
		return
	}
	genKey := generationKey(userID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, generationTTL)
		pipe.Del(ctx, snapshotKey(userID))
		return nil
	})
	if err != nil {
		c.logger.Warn("删除快照缓存失败", zap.String("user_id", userID), zap.Error(err))
	}
}

// Flush 删除所有快照缓存。Redis从不可用恢复时调用，
// 因为不可用期间的写入没有使缓存失效。
func (c *RedisSnapshotCache) Flush(ctx context.Context) error {
	// 先推进全局计数，让不可用之前读到的快照无法再写入
	if err := c.rdb.Incr(ctx, snapshotEpochKey).Err(); err != nil {
		return err
	}
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, snapshotKeyPrefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info("已清空今日快照缓存", zap.Int("keys", deleted))
	return nil
}
