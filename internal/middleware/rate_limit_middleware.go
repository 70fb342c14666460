package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	apperrors "github.com/STKYFNGRS/trivia-box-api/internal/pkg/errors"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests — максимальное количество запросов за Window
	MaxRequests int
	// Window — временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix — префикс для ключей в Redis
	KeyPrefix string
}

// DefaultSubmissionRateLimitConfig - лимит на отправку ответов: раунд длится
// 15 секунд, честный игрок физически не отправляет больше нескольких ответов
// в минуту
func DefaultSubmissionRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 30,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:submit",
	}
}

// SessionCreateRateLimitConfig - строгий лимит на создание сессий
func SessionCreateRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 10,
		Window:      1 * time.Minute,
		KeyPrefix:   "rl:session",
	}
}

// RateLimiter реализует ограничение частоты на Redis (INCR + EXPIRE).
// При недоступном Redis запрос пропускается (fail-open): отказ лимитера
// не должен останавливать игру.
type RateLimiter struct {
	redisClient redis.UniversalClient
	config      RateLimitConfig
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(redisClient redis.UniversalClient, config RateLimitConfig) *RateLimiter {
	return &RateLimiter{redisClient: redisClient, config: config}
}

// Allow реализует gamesession.RateLimiter: проверка допуска по ключу
// identity+activity непосредственно перед начислением очков. Проверка,
// не резервирование: счетчик инкрементируется и сравнивается с лимитом.
func (rl *RateLimiter) Allow(ctx context.Context, identity, activity string) error {
	key := fmt.Sprintf("%s:%s:%s", rl.config.KeyPrefix, identity, activity)

	count, err := rl.redisClient.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[RateLimiter] Redis error for key %s: %v. Allowing request (fail-open).", key, err)
		return nil
	}
	if count == 1 {
		if err := rl.redisClient.Expire(ctx, key, rl.config.Window).Err(); err != nil {
			log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
		}
	}

	if int(count) > rl.config.MaxRequests {
		log.Printf("[RateLimiter] Rate limit exceeded for identity=%s activity=%s. Count=%d, Limit=%d",
			identity, activity, count, rl.config.MaxRequests)
		return apperrors.ErrRateLimitExceeded
	}
	return nil
}

// Limit возвращает Gin middleware. Ключ — адрес аутентифицированного игрока
// (до аутентификации — IP) плюс шаблон маршрута.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	cfg := rl.config
	return func(c *gin.Context) {
		identity, ok := PlayerAddress(c)
		if !ok {
			identity = c.ClientIP()
		}
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, identity, path)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		count, err := rl.redisClient.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("[RateLimiter] Redis error for key %s: %v. Allowing request (fail-open).", key, err)
			c.Next()
			return
		}
		if count == 1 {
			if err := rl.redisClient.Expire(ctx, key, cfg.Window).Err(); err != nil {
				log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
			}
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		ttl, _ := rl.redisClient.TTL(ctx, key).Result()
		retryAfter := int(ttl.Seconds())
		if retryAfter < 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", retryAfter))

		if int(count) > cfg.MaxRequests {
			log.Printf("[RateLimiter] Rate limit exceeded for identity=%s path=%s. Count=%d, Limit=%d",
				identity, path, count, cfg.MaxRequests)
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
