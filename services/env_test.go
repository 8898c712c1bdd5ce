package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lac-hong-legacy/ecotale_api/content"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	mr           *miniredis.Miniredis
	redis        *redis.Client
	store        *StoreService
	board        *LeaderboardService
	achievements *AchievementService
	narration    *NarrationService
	stories      *StoryService
}

// quizStory is a short story: one line, one choice worth 10 or -10.
func quizStory() *model.Story {
	return &model.Story{
		ID:          "quiz",
		Title:       "Quiz",
		TotalPoints: 10,
		Scenes: []model.Scene{
			{Kind: model.SceneNarrative, Lines: []model.Line{{Speaker: "Lan", Text: "Hello"}}},
			{Kind: model.SceneChoice, Question: "Plant a tree?", Options: []model.Option{
				{Text: "Yes", Good: true, Points: 10, Feedback: "Great"},
				{Text: "No", Points: -10, Feedback: "Too bad"},
			}},
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewStoreService(repositories.NewMemoryStore())
	board := NewLeaderboardService(client, store.Users())
	achievements := NewAchievementService(store.Users(), board, nil)
	narration := NewNarrationService(nil, nil, "")

	catalog, err := content.NewCatalog(quizStory())
	require.NoError(t, err)

	stories := NewStoryService(catalog, store.Users(), board, achievements, narration)
	stories.revealTick = time.Hour
	t.Cleanup(stories.Shutdown)

	return &testEnv{
		mr:           mr,
		redis:        client,
		store:        store,
		board:        board,
		achievements: achievements,
		narration:    narration,
		stories:      stories,
	}
}

func (e *testEnv) createUser(t *testing.T, uid, name string) *model.UserProfile {
	t.Helper()
	profile, err := e.store.Users().Create(context.Background(), uid, uid+"@example.com", name)
	require.NoError(t, err)
	return profile
}
