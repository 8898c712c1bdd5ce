package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRateLimiter(t *testing.T) (*RateLimitService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	svc := NewRateLimitService(NewRedisServiceWithClient(env.redis))
	svc.SetConfig(model.RateLimitConfig{
		EndpointType: RateLimitLogin,
		MaxRequests:  2,
		WindowSize:   time.Minute,
		BlockTime:    5 * time.Minute,
		IsActive:     true,
	})
	return svc, env
}

func TestIsAllowedBlocksAfterBudget(t *testing.T) {
	svc, env := newTestRateLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, info, err := svc.IsAllowed(ctx, "1.2.3.4", RateLimitLogin)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1-i, info.Remaining)
	}

	allowed, info, err := svc.IsAllowed(ctx, "1.2.3.4", RateLimitLogin)
	require.NoError(t, err)
	assert.False(t, allowed)
	require.NotNil(t, info.BlockedUntil)

	// other identifiers are unaffected
	allowed, _, err = svc.IsAllowed(ctx, "5.6.7.8", RateLimitLogin)
	require.NoError(t, err)
	assert.True(t, allowed)

	env.mr.FastForward(6 * time.Minute)
	allowed, _, err = svc.IsAllowed(ctx, "1.2.3.4", RateLimitLogin)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIsAllowedUnknownTypeIsUnlimited(t *testing.T) {
	svc, _ := newTestRateLimiter(t)

	allowed, info, err := svc.IsAllowed(context.Background(), "x", "unknown")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, -1, info.Remaining)
}

func TestResetClearsBlock(t *testing.T) {
	svc, _ := newTestRateLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := svc.IsAllowed(ctx, "ip", RateLimitLogin)
		require.NoError(t, err)
	}
	require.NoError(t, svc.Reset(ctx, "ip", RateLimitLogin))

	allowed, _, err := svc.IsAllowed(ctx, "ip", RateLimitLogin)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRateLimitMiddlewareKeysLoginByEmail(t *testing.T) {
	svc, _ := newTestRateLimiter(t)

	app := fiber.New()
	app.Post("/login", svc.RateLimit(RateLimitLogin), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})

	post := func(email string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"`+email+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	assert.Equal(t, http.StatusNoContent, post("a@example.com").StatusCode)
	assert.Equal(t, http.StatusNoContent, post("A@example.com").StatusCode)

	resp := post("a@example.com")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, post("b@example.com").StatusCode)
}
