package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// PaymentRateLimit limits payment initiations per payer (falling back to IP)
// using Redis if available.
func PaymentRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next() // no-op without Redis
		}
		var req struct {
			PayerID int64 `json:"payer_id"`
		}
		_ = c.BodyParser(&req)
		key := "rl:pay:" + c.IP()
		if req.PayerID != 0 {
			key = "rl:pay:" + strconv.FormatInt(req.PayerID, 10)
		}
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err == nil && cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many payment attempts, try again later")
		}
		return c.Next()
	}
}
