package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/lac-hong-legacy/ecotale_api/achievement"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	titles []string
	bodies []string
}

func (n *recordingNotifier) Notify(ctx context.Context, profile *model.UserProfile, title, body string, data map[string]string) error {
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, body)
	return nil
}

func TestUnlockEventOnce(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "u1", "Ana")
	ctx := context.Background()

	_, err := env.achievements.UnlockEvent(ctx, "u1", "no_such_badge")
	assertStatus(t, err, http.StatusBadRequest)

	ids, err := env.achievements.UnlockEvent(ctx, "u1", achievement.Newcomer)
	require.NoError(t, err)
	assert.Equal(t, []string{achievement.Newcomer}, ids)

	ids, err = env.achievements.UnlockEvent(ctx, "u1", achievement.Newcomer)
	require.NoError(t, err)
	assert.Empty(t, ids)

	notifier := &recordingNotifier{}
	svc := NewAchievementService(env.store.Users(), env.board, notifier)
	env.createUser(t, "u2", "Binh")
	_, err = env.store.Users().RecordCompletion(ctx, "u2", "quiz", model.CompletedStory{Score: 5})
	require.NoError(t, err)
	unlocked, err := svc.Check(ctx, "u2")
	require.NoError(t, err)
	assert.Contains(t, unlocked, "first_story")
	require.Len(t, notifier.titles, 1)
	assert.Contains(t, notifier.bodies[0], "First Steps")

	list, err := env.achievements.List(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, list.UnlockedCount)
	assert.Equal(t, len(achievement.Definitions()), list.Total)
}

func TestSetDisplayedRules(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "u1", "Ana")
	ctx := context.Background()

	_, err := env.achievements.UnlockEvent(ctx, "u1", achievement.Newcomer)
	require.NoError(t, err)

	assertStatus(t, env.achievements.SetDisplayed(ctx, "u1", []string{achievement.ProfileComplete}), http.StatusBadRequest)
	assertStatus(t, env.achievements.SetDisplayed(ctx, "u1", []string{achievement.Newcomer, achievement.Newcomer}), http.StatusBadRequest)
	assertStatus(t, env.achievements.SetDisplayed(ctx, "u1", []string{"a", "b", "c", "d"}), http.StatusBadRequest)

	require.NoError(t, env.achievements.SetDisplayed(ctx, "u1", []string{achievement.Newcomer}))
	profile, err := env.store.Users().Get(ctx, "u1")
	require.NoError(t, err)
	shown := Displayed(profile)
	require.Len(t, shown, 1)
	assert.Equal(t, achievement.Newcomer, shown[0].ID)

	require.NoError(t, env.achievements.SetDisplayed(ctx, "u1", nil))
	profile, err = env.store.Users().Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, profile.Achievements.Displayed)
}
