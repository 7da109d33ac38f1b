package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := newRateLimiter(1) // burst floors at 10

	for i := 0; i < 10; i++ {
		require.True(t, rl.allow("ip:1.2.3.4"), "request %d within burst", i)
	}
	assert.False(t, rl.allow("ip:1.2.3.4"))
	assert.True(t, rl.allow("ip:5.6.7.8"), "buckets are per key")
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := newRateLimiter(5)
	rl.allow("a")
	rl.allow("b")

	rl.evict(time.Now().Add(time.Minute))
	assert.Empty(t, rl.buckets)
}

func TestRateLimitMiddleware_KeysByUser(t *testing.T) {
	r := gin.New()
	userID := uuid.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-User") != "" {
			c.Set(CtxUserID, userID)
		}
		c.Next()
	})
	r.Use(RateLimitMiddleware(1))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	do := func(user bool) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if user {
			req.Header.Set("X-User", "1")
		}
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusNoContent, do(true))
	}
	assert.Equal(t, http.StatusTooManyRequests, do(true))
	// Same client IP, but anonymous requests draw from the IP bucket.
	assert.Equal(t, http.StatusNoContent, do(false))
}

func TestRoleMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(CtxRole, c.GetHeader("X-Role"))
		c.Next()
	})
	r.GET("/", AdminMiddleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for role, want := range map[string]int{
		"admin": http.StatusNoContent,
		"user":  http.StatusForbidden,
		"":      http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Role", role)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, want, rr.Code, "role %q", role)
	}
}
