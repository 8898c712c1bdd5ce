package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(t *testing.T) (*UserRepository, string) {
	t.Helper()
	repo := NewUserRepository(NewMemoryStore())
	_, err := repo.Create(context.Background(), "u1", "lan@example.com", "Lan")
	require.NoError(t, err)
	return repo, "u1"
}

func TestUserRepositoryCreateDefaults(t *testing.T) {
	repo, uid := newTestUser(t)

	p, err := repo.Get(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "Lan", p.DisplayName)
	assert.Equal(t, 0, p.TotalScore)
	assert.Equal(t, "light", p.Preferences.Theme)
	assert.True(t, p.Preferences.Notifications)

	_, err = repo.Create(context.Background(), uid, "x@example.com", "X")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepositoryRecordCompletion(t *testing.T) {
	ctx := context.Background()
	repo, uid := newTestUser(t)

	_, done, err := repo.GetCompletedStory(ctx, uid, "mangrove")
	require.NoError(t, err)
	assert.False(t, done)

	p, err := repo.RecordCompletion(ctx, uid, "mangrove", model.CompletedStory{Score: 60})
	require.NoError(t, err)
	assert.Equal(t, 60, p.TotalScore)
	assert.Equal(t, 1, p.CompletedCount)

	p, err = repo.RecordCompletion(ctx, uid, "coral", model.CompletedStory{Score: -10})
	require.NoError(t, err)
	assert.Equal(t, 50, p.TotalScore)
	assert.Equal(t, 2, p.CompletedCount)

	c, done, err := repo.GetCompletedStory(ctx, uid, "mangrove")
	require.NoError(t, err)
	require.True(t, done)
	assert.Equal(t, 60, c.Score)
	assert.NotZero(t, c.CompletedAt)
}

func TestUserRepositoryUnlockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, uid := newTestUser(t)

	unlocked, err := repo.UnlockAchievement(ctx, uid, "first_story")
	require.NoError(t, err)
	assert.True(t, unlocked)

	unlocked, err = repo.UnlockAchievement(ctx, uid, "first_story")
	require.NoError(t, err)
	assert.False(t, unlocked)
}

func TestUserRepositoryDisplayedAchievements(t *testing.T) {
	ctx := context.Background()
	repo, uid := newTestUser(t)

	for _, id := range []string{"newcomer", "first_story", "points_50", "streak_3"} {
		_, err := repo.UnlockAchievement(ctx, uid, id)
		require.NoError(t, err)
	}

	require.NoError(t, repo.SetDisplayedAchievements(ctx, uid, []string{"newcomer", "first_story"}))

	err := repo.SetDisplayedAchievements(ctx, uid, []string{"newcomer", "ghost_id"})
	assert.ErrorIs(t, err, ErrNotUnlocked)

	err = repo.SetDisplayedAchievements(ctx, uid, []string{"newcomer", "first_story", "points_50", "streak_3"})
	assert.ErrorIs(t, err, ErrTooManyDisplayed)

	err = repo.SetDisplayedAchievements(ctx, uid, []string{"newcomer", "newcomer"})
	assert.ErrorIs(t, err, ErrDuplicateDisplay)

	p, err := repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, []string{"newcomer", "first_story"}, p.Achievements.Displayed, "rejected updates leave the showcase unchanged")

	require.NoError(t, repo.SetDisplayedAchievements(ctx, uid, nil))
	p, err = repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, p.Achievements.Displayed)
}

func TestUserRepositoryLoginStreak(t *testing.T) {
	ctx := context.Background()
	repo, uid := newTestUser(t)

	day := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.SetClock(func() time.Time { return day })

	streak, err := repo.RecordLogin(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, streak)

	streak, err = repo.RecordLogin(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, streak, "same day does not extend the streak")

	day = day.AddDate(0, 0, 1)
	streak, err = repo.RecordLogin(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 2, streak)

	day = day.AddDate(0, 0, 3)
	streak, err = repo.RecordLogin(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 1, streak, "a gap resets the streak")
}

func TestUserRepositoryUpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo, uid := newTestUser(t)

	bio, inst, class := "Loves trees", "Lac Hong", "10A"
	require.NoError(t, repo.UpdateProfile(ctx, uid, ProfileUpdate{Bio: &bio, Institution: &inst, Class: &class}))

	p, err := repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.True(t, p.ProfileComplete())

	empty := ""
	require.NoError(t, repo.UpdateProfile(ctx, uid, ProfileUpdate{Bio: &empty, DisplayName: &empty}))
	p, err = repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.Empty(t, p.Bio)
	assert.Equal(t, "Lan", p.DisplayName, "display name cannot be blanked")

	err = repo.UpdateProfile(ctx, "missing", ProfileUpdate{Bio: &bio})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepositoryDeviceTokens(t *testing.T) {
	ctx := context.Background()
	repo, uid := newTestUser(t)

	require.NoError(t, repo.AddDeviceToken(ctx, uid, "token-a"))
	require.NoError(t, repo.AddDeviceToken(ctx, uid, "token-a"))
	require.NoError(t, repo.AddDeviceToken(ctx, uid, "token-b"))

	p, err := repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, p.DeviceTokens, 2)

	require.NoError(t, repo.RemoveDeviceToken(ctx, uid, "token-a"))
	p, err = repo.Get(ctx, uid)
	require.NoError(t, err)
	assert.Len(t, p.DeviceTokens, 1)
}

func TestUserRepositoryWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo, uid := newTestUser(t)

	updates, stop, err := repo.Watch(ctx, uid)
	require.NoError(t, err)
	defer stop()

	select {
	case p := <-updates:
		assert.Equal(t, 0, p.TotalScore)
	case <-time.After(time.Second):
		t.Fatal("no initial profile")
	}

	_, err = repo.RecordCompletion(ctx, uid, "mangrove", model.CompletedStory{Score: 30})
	require.NoError(t, err)

	select {
	case p := <-updates:
		assert.Equal(t, 30, p.TotalScore)
	case <-time.After(time.Second):
		t.Fatal("no profile update")
	}
}
