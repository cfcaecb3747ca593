package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	apperrors "github.com/kurihiro0119/github-access-portal/internal/errors"
	"github.com/kurihiro0119/github-access-portal/internal/observability"
)

// DefaultPrincipal is the requester recorded when authentication is disabled
const DefaultPrincipal = "user:default/guest"

const principalKey = "principal"

// Logger returns a middleware that logs requests and records request metrics
func Logger(log logrus.FieldLogger) gin.HandlerFunc {
	log = log.WithField("component", "http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.RequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(statusCode)).Inc()
		observability.RequestDuration.WithLabelValues(route).Observe(latency.Seconds())

		if raw != "" {
			path = path + "?" + raw
		}

		entry := log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      path,
			"client_ip": c.ClientIP(),
			"latency":   latency.String(),
			"status":    statusCode,
		})
		if statusCode >= http.StatusInternalServerError {
			entry.Warn("Request failed")
			return
		}
		entry.Info("Request handled")
	}
}

// CORS returns a middleware that handles CORS
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Recovery returns a middleware that recovers from panics
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}

// Auth returns a middleware that requires an HS256 bearer token signed with
// secret. The token subject becomes the request principal. With an empty
// secret every request runs as DefaultPrincipal.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Set(principalKey, DefaultPrincipal)
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.NewUnauthorizedError("Authorization header required"))
			return
		}

		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") {
			abortWithError(c, apperrors.NewUnauthorizedError("Invalid authorization format"))
			return
		}

		subject, err := verifyToken(tokenParts[1], secret)
		if err != nil {
			abortWithError(c, apperrors.NewUnauthorizedError("Invalid token"))
			return
		}

		c.Set(principalKey, subject)
		c.Next()
	}
}

func verifyToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return subject, nil
}

// Principal returns the authenticated requester of the request
func Principal(c *gin.Context) string {
	if p := c.GetString(principalKey); p != "" {
		return p
	}
	return DefaultPrincipal
}

// RateLimiter provides per-principal rate limiting
type RateLimiter struct {
	log      logrus.FieldLogger
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter.
// requestsPerHour is the maximum requests per hour per principal.
func NewRateLimiter(log logrus.FieldLogger, requestsPerHour int) *RateLimiter {
	if requestsPerHour <= 0 {
		requestsPerHour = 100
	}

	burst := requestsPerHour / 10
	if burst < 10 {
		burst = 10
	}

	return &RateLimiter{
		log:   log.WithField("component", "rate_limiter"),
		rate:  rate.Limit(float64(requestsPerHour) / 3600.0),
		burst: burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	return limiter.(*rate.Limiter)
}

// Allow checks if a request is allowed for the given key
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Handler returns the rate limiting middleware. Requests are keyed by
// principal, falling back to the client IP for the guest principal.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "user:" + Principal(c)
		if Principal(c) == DefaultPrincipal {
			key = "ip:" + c.ClientIP()
		}

		if !rl.Allow(key) {
			rl.log.WithFields(logrus.Fields{
				"key":  key,
				"path": c.Request.URL.Path,
			}).Warn("Rate limit exceeded")

			c.Header("Retry-After", "60")
			abortWithError(c, apperrors.NewRateLimitedError("Too many requests. Please try again later."))
			return
		}

		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	respondError(c, err)
	c.Abort()
}
