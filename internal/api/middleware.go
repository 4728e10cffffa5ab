package api

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"bead-inventory-service/internal/idemcache"
	"bead-inventory-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	userIDKey            = "userID"
	idempotencyKeyHeader = "X-Idempotency-Key"
	userIDHeader         = "X-User-ID"
)

// authMiddleware resolves the caller identity. Authentication itself
// happens upstream; this service trusts the forwarded user id.
func authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(userIDHeader)
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

// bodyCapture tees the response body so a successful mutation can be
// cached for replay.
type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// idempotencyMiddleware deduplicates retried mutations. The key is the
// client token when one is sent, otherwise a hash of the request body; a
// fresh hit replays the original success response verbatim without
// touching the ledger.
func idempotencyMiddleware(cache idemcache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUserID(c)

		body, err := c.GetRawData()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		key := idemcache.KeyFromToken(userID, c.GetHeader(idempotencyKeyHeader))
		if key == "" {
			key = idemcache.KeyFromBody(userID, body)
		}

		ctx := c.Request.Context()
		if payload, ok, err := cache.Get(ctx, key); err != nil {
			util.GetLogger().Warn("Idempotency cache read failed", zap.Error(err))
		} else if ok {
			util.IdempotentReplaysTotal.Inc()
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			c.Abort()
			return
		}

		capture := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = capture
		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if err := cache.Set(ctx, key, capture.buf.Bytes()); err != nil {
				util.GetLogger().Warn("Idempotency cache write failed", zap.Error(err))
			}
		}
	}
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
