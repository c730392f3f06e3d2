package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/codyseavey/card-catalog/internal/metrics"
)

// MetricsMiddleware records request counts and latency per route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Authorizer decides whether a request may use the admin endpoints.
type Authorizer interface {
	// Enabled is false when no credential is configured; admin routes then refuse all requests.
	Enabled() bool
	Authorize(r *http.Request) bool
}

// TokenAuthorizer accepts requests carrying a static bearer token.
type TokenAuthorizer struct {
	token string
}

func NewTokenAuthorizer(token string) *TokenAuthorizer {
	return &TokenAuthorizer{token: strings.TrimSpace(token)}
}

func (a *TokenAuthorizer) Enabled() bool {
	return a.token != ""
}

func (a *TokenAuthorizer) Authorize(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	presented, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || a.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), []byte(a.token)) == 1
}

// RequireAdmin rejects requests the authorizer does not accept.
func RequireAdmin(auth Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.Enabled() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin endpoints are disabled"})
			return
		}
		if !auth.Authorize(c.Request) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid admin token"})
			return
		}
		c.Next()
	}
}

// ClientRateLimiter keeps one token bucket per client IP. The least recently
// seen clients are evicted once maxClients is reached.
type ClientRateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func NewClientRateLimiter(perSecond float64, burst, maxClients int) (*ClientRateLimiter, error) {
	cache, err := lru.New[string, *rate.Limiter](maxClients)
	if err != nil {
		return nil, err
	}
	if burst <= 0 {
		burst = 1
	}
	return &ClientRateLimiter{
		limiters: cache,
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}, nil
}

// Allow reports whether client may make a request now.
func (l *ClientRateLimiter) Allow(client string) bool {
	limiter, ok := l.limiters.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		// Another request for the same client may have raced us here.
		if prev, exists, _ := l.limiters.PeekOrAdd(client, limiter); exists {
			limiter = prev
		}
	}
	return limiter.Allow()
}

// Middleware returns 429 once a client exhausts its bucket.
func (l *ClientRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			metrics.AdminRateLimitedTotal.Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
