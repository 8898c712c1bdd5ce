package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func guardedApp(svc *SystemService, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals(shared.UserRole, role)
		}
		return c.Next()
	})
	app.Use(svc.MaintenanceGuard("/api/v1/auth/login"))
	app.All("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusNoContent)
	})
	return app
}

func status(t *testing.T, app *fiber.App, path string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	return resp.StatusCode
}

func TestMaintenanceGuard(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSystemService(env.store.System(), env.store.Users())
	ctx := context.Background()

	users := guardedApp(svc, shared.RoleUser)
	admins := guardedApp(svc, shared.RoleAdmin)

	assert.Equal(t, http.StatusNoContent, status(t, users, "/api/v1/stories"))

	on, msg := true, "Planting trees, back soon"
	_, err := svc.UpdateSettings(ctx, "admin", dto.UpdateSettingsRequest{Maintenance: &on, Message: &msg}, "")
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, status(t, users, "/api/v1/stories"))
	assert.Equal(t, http.StatusNoContent, status(t, users, "/api/v1/auth/login"))
	assert.Equal(t, http.StatusNoContent, status(t, admins, "/api/v1/stories"))

	off := false
	_, err = svc.UpdateSettings(ctx, "admin", dto.UpdateSettingsRequest{Maintenance: &off}, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, status(t, users, "/api/v1/stories"))
}

func TestFollowPicksUpExternalChanges(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSystemService(env.store.System(), env.store.Users())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Follow(ctx))

	_, err := env.store.System().Save(context.Background(), model.SystemSettings{MaxUsers: 5, Maintenance: true}, "seed")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return svc.Settings().Maintenance
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 5, svc.Settings().MaxUsers)
}

func TestSettingsAndStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSystemService(env.store.System(), env.store.Users())
	ctx := context.Background()

	env.createUser(t, "u1", "Ana")
	env.createUser(t, "u2", "Binh")

	settings, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultMaxUsers, settings.MaxUsers)
	assert.Equal(t, 2, settings.UserCount)

	two := 2
	settings, err = svc.UpdateSettings(ctx, "admin", dto.UpdateSettingsRequest{MaxUsers: &two}, "")
	require.NoError(t, err)
	assert.Equal(t, 2, settings.MaxUsers)

	st := svc.Status(ctx)
	assert.Equal(t, false, st["registration_open"])
	assert.Equal(t, false, st["maintenance"])
}
