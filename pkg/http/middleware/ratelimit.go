package middleware

import (
	"github.com/labstack/echo/v4"
)

// Allower is a keyed token bucket.
type Allower interface {
	Allow(key string, capacity, refillPerSec float64) bool
}

// RateLimit rejects requests with 429 once the client's bucket is empty.
// Clients are keyed by route and real IP.
func RateLimit(l Allower, capacity, refillPerSec float64, deny echo.HandlerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.Path()+"|"+c.RealIP(), capacity, refillPerSec) {
				return deny(c)
			}
			return next(c)
		}
	}
}
