package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"evmobile/internal/models"
)

// DefaultTTL bounds how long a cached session survives without updates.
const DefaultTTL = 12 * time.Hour

// KV is the slice of the redis API the cache uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// SessionCache keeps the active session and its last merged snapshot so a
// restarted daemon can resume tracking it.
type SessionCache struct {
	client   KV
	deviceID string
	ttl      time.Duration
	logger   *zap.Logger
}

// NewSessionCache returns redis-backed cache scoped to one device.
func NewSessionCache(client KV, deviceID string, ttl time.Duration, logger *zap.Logger) *SessionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionCache{client: client, deviceID: deviceID, ttl: ttl, logger: logger}
}

func (c *SessionCache) key() string {
	return fmt.Sprintf("evmobile:session:%s", c.deviceID)
}

// Save caches snap as the active session.
func (c *SessionCache) Save(ctx context.Context, snap models.SessionSnapshot) error {
	if snap.SessionID == "" {
		return errors.New("redisstore: snapshot has no session id")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(), data, c.ttl).Err()
}

// Load returns the cached session, nil when nothing is cached.
func (c *SessionCache) Load(ctx context.Context) (*models.SessionSnapshot, error) {
	result, err := c.client.Get(ctx, c.key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(result), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Delete removes the cached session.
func (c *SessionCache) Delete(ctx context.Context) error {
	return c.client.Del(ctx, c.key()).Err()
}

// SnapshotMerged persists every merge.
func (c *SessionCache) SnapshotMerged(ctx context.Context, snap models.SessionSnapshot) {
	if err := c.Save(ctx, snap); err != nil {
		c.logger.Warn("failed to cache session snapshot", zap.String("session_id", snap.SessionID), zap.Error(err))
	}
}

// SessionCleared drops the cache when the session ends.
func (c *SessionCache) SessionCleared(ctx context.Context, sessionID string) {
	if err := c.Delete(ctx); err != nil {
		c.logger.Warn("failed to drop cached session", zap.String("session_id", sessionID), zap.Error(err))
	}
}
