package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ierr "github.com/netbill/netbill/internal/errors"
	"golang.org/x/time/rate"
)

// RateLimit caps a route group at perMinute requests with a burst of one.
// A non-positive limit disables it.
func RateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ierr.ErrorResponse{
				Error: ierr.ErrorDetail{Display: "Too many requests, try again later"},
			})
			return
		}
		c.Next()
	}
}
