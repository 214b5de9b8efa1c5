package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evently/evently-backend/internal/config"
)

func TestTokenBucketDisabledIsPassThrough(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/token", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	makeCtx := func(userID string) echo.Context {
		req := httptest.NewRequest(http.MethodPost, "/token", nil)
		req.RemoteAddr = "10.1.2.3:5555"
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/token")
		if userID != "" {
			c.Set("user_id", userID)
		}
		return c
	}

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
	k1 := buildRateKey(cfg, makeCtx(""))
	assert.Contains(t, k1, "rl:")

	cfg.KeyStrategy = "user"
	assert.NotEqual(t,
		buildRateKey(cfg, makeCtx("user-a")),
		buildRateKey(cfg, makeCtx("user-b")),
		"user strategy must separate users")

	cfg.KeyStrategy = "ip_route"
	a := buildRateKey(cfg, makeCtx(""))
	b := buildRateKey(cfg, makeCtx(""))
	assert.Equal(t, a, b, "same ip and route map to the same bucket")
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(7), asInt64(int64(7)))
	assert.Equal(t, int64(7), asInt64("7"))
	assert.Equal(t, int64(0), asInt64(nil))
}
