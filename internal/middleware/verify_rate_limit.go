package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// VerifyRateLimit limits slip verification attempts per order reference or
// IP using Redis if available. A customer re-uploading a corrected slip is
// fine; a script hammering the endpoint with candidate payloads is not.
func VerifyRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			OrderRef string `json:"order_ref"`
		}
		_ = c.BodyParser(&req)
		ref := strings.TrimSpace(req.OrderRef)
		if ref == "" {
			ref = c.IP()
		}
		key := "rl:verify:" + ref
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many verification attempts, try again later")
		}
		return c.Next()
	}
}
