package middleware

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type RateLimitMiddlewareConfig struct {
	// Rate and Burst shape the per-client-IP token bucket.
	Rate  rate.Limit
	Burst int
	// Paths restricts limiting to matching path prefixes. Empty limits
	// everything the middleware is mounted on.
	Paths []string
	// CleanupInterval controls eviction of idle client buckets.
	CleanupInterval time.Duration
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimitMiddleware applies a per-client-IP token bucket to selected paths.
type RateLimitMiddleware struct {
	config  RateLimitMiddlewareConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func NewRateLimitMiddleware(config RateLimitMiddlewareConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		config:  config,
		clients: make(map[string]*clientLimiter),
	}
}

func (m *RateLimitMiddleware) Init() error {
	if m.config.Rate == 0 {
		m.config.Rate = rate.Limit(1)
	}

	if m.config.Burst == 0 {
		m.config.Burst = 10
	}

	if m.config.CleanupInterval == 0 {
		m.config.CleanupInterval = 5 * time.Minute
	}

	go m.cleanup()
	return nil
}

func (m *RateLimitMiddleware) limited(path string) bool {
	if len(m.config.Paths) == 0 {
		return true
	}

	for _, prefix := range m.config.Paths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	return false
}

func (m *RateLimitMiddleware) allow(clientIP string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, exists := m.clients[clientIP]

	if !exists {
		client = &clientLimiter{
			limiter: rate.NewLimiter(m.config.Rate, m.config.Burst),
		}
		m.clients[clientIP] = client
	}

	client.lastAccess = time.Now()
	return client.limiter.Allow()
}

func (m *RateLimitMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.limited(c.Request.URL.Path) {
			c.Next()
			return
		}

		if !m.allow(c.ClientIP()) {
			log.Warn().Str("clientIp", c.ClientIP()).Str("path", c.Request.URL.Path).Msg("Rate limit exceeded")
			c.AbortWithStatusJSON(429, gin.H{
				"status":  429,
				"message": "Too Many Requests",
			})
			return
		}

		c.Next()
	}
}

func (m *RateLimitMiddleware) cleanup() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		for ip, client := range m.clients {
			if time.Since(client.lastAccess) > m.config.CleanupInterval {
				delete(m.clients, ip)
			}
		}
		m.mu.Unlock()
	}
}
