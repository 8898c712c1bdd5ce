package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/lac-hong-legacy/ecotale_api/achievement"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestUsers(t *testing.T) (*UserService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewUserService(env.store.Users(), env.stories.Catalog(), env.board, env.achievements, nil), env
}

func TestUpdateProfileUnlocksOpenBook(t *testing.T) {
	svc, env := newTestUsers(t)
	env.createUser(t, "u1", "Ana")
	ctx := context.Background()

	resp, err := svc.UpdateProfile(ctx, "u1", dto.UpdateProfileRequest{Bio: strPtr("  Loves forests  ")})
	require.NoError(t, err)
	assert.Equal(t, "Loves forests", resp.Bio)
	assert.Equal(t, 0, resp.UnlockedCount)

	resp, err = svc.UpdateProfile(ctx, "u1", dto.UpdateProfileRequest{
		Institution: strPtr("Lac Hong School"),
		Class:       strPtr("10A1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.UnlockedCount)

	profile, err := env.store.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, profile.HasUnlocked(achievement.ProfileComplete))

	_, err = svc.UpdateProfile(ctx, "u1", dto.UpdateProfileRequest{DisplayName: strPtr(" A ")})
	assertStatus(t, err, http.StatusBadRequest)

	_, err = svc.UpdateProfile(ctx, "ghost", dto.UpdateProfileRequest{Bio: strPtr("x")})
	assertStatus(t, err, http.StatusNotFound)
}

func TestProfileViews(t *testing.T) {
	svc, env := newTestUsers(t)
	env.createUser(t, "u1", "Ana")
	ctx := context.Background()

	_, err := env.stories.Complete(ctx, "u1", quizStory(), 10)
	require.NoError(t, err)

	own, err := svc.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", own.Email)
	assert.Equal(t, shared.ThemeLight, own.Theme)
	require.NotNil(t, own.Rank)
	assert.Equal(t, 1, *own.Rank)
	require.Len(t, own.CompletedStories, 1)
	assert.Equal(t, "Quiz", own.CompletedStories[0].Title)

	public, err := svc.GetPublicProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10, public.TotalScore)
	assert.Equal(t, "Ana", public.DisplayName)
}

func TestUpdatePreferences(t *testing.T) {
	svc, env := newTestUsers(t)
	env.createUser(t, "u1", "Ana")

	off := false
	prefs, err := svc.UpdatePreferences(context.Background(), "u1", dto.UpdatePreferencesRequest{
		Theme:         strPtr(shared.ThemeDark),
		Notifications: &off,
	})
	require.NoError(t, err)
	assert.Equal(t, shared.ThemeDark, prefs.Theme)
	assert.False(t, prefs.Notifications)

	profile, err := env.store.Users().Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, shared.ThemeDark, profile.Preferences.Theme)
}

func TestDeviceTokens(t *testing.T) {
	svc, env := newTestUsers(t)
	env.createUser(t, "u1", "Ana")
	ctx := context.Background()

	require.NoError(t, svc.RegisterDeviceToken(ctx, "u1", " token-1 "))
	profile, err := env.store.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, profile.DeviceTokens, 1)

	require.NoError(t, svc.RemoveDeviceToken(ctx, "u1", "token-1"))
	profile, err = env.store.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, profile.DeviceTokens)

	assertStatus(t, svc.RegisterDeviceToken(ctx, "ghost", "t"), http.StatusNotFound)
}

func TestWatchProfileStreamsChanges(t *testing.T) {
	svc, env := newTestUsers(t)
	env.createUser(t, "u1", "Ana")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, stop, err := svc.WatchProfile(ctx, "u1")
	require.NoError(t, err)
	defer stop()

	first := <-updates
	assert.Equal(t, 0, first.TotalScore)

	_, err = env.stories.Complete(context.Background(), "u1", quizStory(), 10)
	require.NoError(t, err)

	deadline := time.After(time.Second)
	for {
		select {
		case p := <-updates:
			if p.TotalScore == 10 {
				return
			}
		case <-deadline:
			t.Fatal("profile update not delivered")
		}
	}
}
