package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bead-inventory-service/internal/idemcache"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newIdemRouter(cache idemcache.Cache, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/mutate", authMiddleware(), idempotencyMiddleware(cache), handler)
	return r
}

func doMutate(r *gin.Engine, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/mutate", strings.NewReader(body))
	req.Header.Set("X-User-ID", "7")
	if token != "" {
		req.Header.Set("X-Idempotency-Key", token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", authMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": currentUserID(c)})
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("forwarded id is bound to the context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-User-ID", "42")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user":42}`, w.Body.String())
	})
}

func TestIdempotencyMiddlewareReplays(t *testing.T) {
	cache := idemcache.NewMemory(0, 0)

	calls := 0
	r := newIdemRouter(cache, func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"ok": true, "call": calls})
	})

	first := doMutate(r, `{"code":"H01","qty":1}`, "tok-1")
	assert.Equal(t, http.StatusOK, first.Code)

	// Same token replays the first response without reaching the handler.
	second := doMutate(r, `{"code":"H01","qty":1}`, "tok-1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	// A different token goes through.
	third := doMutate(r, `{"code":"H01","qty":1}`, "tok-2")
	assert.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddlewareBodyHashFallback(t *testing.T) {
	cache := idemcache.NewMemory(0, 0)

	calls := 0
	r := newIdemRouter(cache, func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	doMutate(r, `{"code":"H01","qty":1}`, "")
	doMutate(r, `{"code":"H01","qty":1}`, "")
	assert.Equal(t, 1, calls)

	doMutate(r, `{"code":"H01","qty":2}`, "")
	assert.Equal(t, 2, calls)
}

func TestIdempotencyMiddlewareSkipsFailures(t *testing.T) {
	cache := idemcache.NewMemory(0, 0)

	calls := 0
	r := newIdemRouter(cache, func(c *gin.Context) {
		calls++
		if calls == 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid qty"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	first := doMutate(r, `{"code":"H01"}`, "tok-1")
	assert.Equal(t, http.StatusBadRequest, first.Code)

	// Failures are not cached, so the retry executes for real.
	second := doMutate(r, `{"code":"H01"}`, "tok-1")
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 2, calls)
}
