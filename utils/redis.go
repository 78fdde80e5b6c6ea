package utils

import (
	"context"
	"time"

	"github.com/lvt17/planex-be/config"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisClient is an optional shared Redis client used for token revocation and
// chat fan-out across instances. It stays nil when REDIS_ADDR is not configured
// or the server does not answer.
var RedisClient *redis.Client

// InitRedis connects the shared client. Redis problems never fail startup.
func InitRedis(cfg *config.Config) {
	if cfg.RedisAddr == "" {
		return
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		zap.L().Warn("redis ping failed, falling back to database revocation", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = rc.Close()
		return
	}
	RedisClient = rc
	zap.L().Info("redis connected", zap.String("addr", cfg.RedisAddr))
}

// CloseRedis closes the shared client if one is open.
func CloseRedis() {
	if RedisClient != nil {
		_ = RedisClient.Close()
		RedisClient = nil
	}
}
