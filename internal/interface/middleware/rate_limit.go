package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/internal/application"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/metrics"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/bot"
	"github.com/oksasatya/pulse-correction-bot/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request
type KeyFunc func(c *gin.Context) string

// KeyByIP returns a key function that limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath returns a key function that limits by client IP and request path
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// atomic INCR, and set the window expiry on the first hit
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type AllowFunc func(*gin.Context) bool // return true for bypass limit

// RateLimit with:
// - atomic redis (lua)
// - standard headers (limit/remaining/reset)
// - optional allowlist bypass & method skip
func RateLimit(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := keyFn(c)

		count, err := hit(ctx, rdb, key, window)
		if err != nil {
			// fail open
			c.Next()
			return
		}

		ttl, _ := rdb.PTTL(ctx, key).Result()
		resetSec := 0
		if ttl > 0 {
			resetSec = int((ttl + time.Second - 1) / time.Second)
		}

		remaining := max - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(resetSec))

		if count > max {
			if resetSec > 0 {
				c.Header("Retry-After", strconv.Itoa(resetSec))
			}
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

// EventAllowFunc returns true for events that bypass the limit.
type EventAllowFunc func(ev *entity.Event) bool

func eventKey(ev *entity.Event) string {
	return "rl:tg:user:" + strconv.FormatInt(ev.Actor.ID, 10)
}

func albumRateKey(ev *entity.Event) string {
	return "rl:tg:album:" + strconv.FormatInt(ev.Actor.ID, 10) + ":" + ev.MediaGroupID
}

func throttleNoticeKey(ev *entity.Event) string {
	return "rl:tg:notice:" + strconv.FormatInt(ev.Actor.ID, 10)
}

const (
	albumAdmitted = "1"
	albumDropped  = "0"
)

// EventRateLimit drops inbound bot events of a user above max per window. An album counts
// as one event: the verdict for its first photo applies to every later photo, so an album
// is either delivered whole or not at all. Redis errors let the event through.
// When notify is set, a dropped button press is answered and the first dropped message
// of a window gets a reply.
func EventRateLimit(rdb *redis.Client, max int, window time.Duration, allow EventAllowFunc, notify application.Transport, logger *logrus.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		if rdb == nil || max <= 0 || window <= 0 {
			return next
		}
		return func(ctx context.Context, ev *entity.Event) error {
			if allow != nil && allow(ev) {
				return next(ctx, ev)
			}
			admitted, err := charge(ctx, rdb, ev, max, window)
			if err != nil {
				logger.WithError(err).WithField("user_id", ev.Actor.ID).Warn("rate limit check failed")
				return next(ctx, ev)
			}
			if admitted {
				return next(ctx, ev)
			}
			metrics.RateLimited.Inc()
			logger.WithFields(logrus.Fields{
				"user_id":        ev.Actor.ID,
				"media_group_id": ev.MediaGroupID,
				"trace_id":       bot.TraceID(ctx),
			}).Warn("event dropped by rate limit")
			if notify != nil {
				throttled(ctx, rdb, notify, ev, window, logger)
			}
			return nil
		}
	}
}

// charge counts ev against the user's window and reports whether it may pass.
func charge(ctx context.Context, rdb *redis.Client, ev *entity.Event, limit int, window time.Duration) (bool, error) {
	if ev.MediaGroupID != "" {
		verdict, err := rdb.Get(ctx, albumRateKey(ev)).Result()
		switch {
		case err == nil:
			return verdict == albumAdmitted, nil
		case !errors.Is(err, redis.Nil):
			return false, err
		}
	}
	count, err := hit(ctx, rdb, eventKey(ev), window)
	if err != nil {
		return false, err
	}
	admitted := count <= limit
	if ev.MediaGroupID != "" {
		verdict := albumDropped
		if admitted {
			verdict = albumAdmitted
		}
		// an album arrives within seconds; keep the verdict for at least a minute
		if err := rdb.Set(ctx, albumRateKey(ev), verdict, max(window, time.Minute)).Err(); err != nil {
			return admitted, err
		}
	}
	return admitted, nil
}

func throttled(ctx context.Context, rdb *redis.Client, t application.Transport, ev *entity.Event, window time.Duration, logger *logrus.Logger) {
	if !ev.IsCallback() {
		first, err := rdb.SetNX(ctx, throttleNoticeKey(ev), 1, window).Result()
		if err != nil || !first {
			return
		}
	}
	if err := application.NotifyThrottled(ctx, t, ev); err != nil {
		logger.WithError(err).WithField("user_id", ev.Actor.ID).Warn("rate limit notice failed")
	}
}

func hit(ctx context.Context, rdb *redis.Client, key string, window time.Duration) (int, error) {
	v, err := incrExpireScript.Run(ctx, rdb, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	return toInt(v), nil
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int:
		return x
	case string:
		i, _ := strconv.Atoi(x)
		return i
	}
	return 0
}
