package services

import (
	"context"
	"testing"

	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderboardRanksWithTies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scores := map[string]int{"u1": 50, "u2": 80, "u3": 50, "u4": 10}
	for uid, score := range scores {
		env.createUser(t, uid, "Player "+uid)
		require.NoError(t, env.board.Update(ctx, uid, score))
	}
	env.createUser(t, "u5", "Newbie")
	require.NoError(t, env.board.Update(ctx, "u5", 0))

	resp, err := env.board.Top(ctx, 3, "u4")
	require.NoError(t, err)
	assert.EqualValues(t, 4, resp.Total)
	require.Len(t, resp.Entries, 3)

	assert.Equal(t, "u2", resp.Entries[0].UserID)
	assert.Equal(t, 1, resp.Entries[0].Rank)
	assert.Equal(t, "Player u2", resp.Entries[0].DisplayName)
	assert.Equal(t, 2, resp.Entries[1].Rank)
	assert.Equal(t, 2, resp.Entries[2].Rank)
	assert.Equal(t, 50, resp.Entries[2].TotalScore)

	require.NotNil(t, resp.UserEntry)
	assert.Equal(t, 4, resp.UserEntry.Rank)
	assert.Equal(t, 10, resp.UserEntry.TotalScore)

	rank, ok, err := env.board.Rank(ctx, "u3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, rank)

	_, ok, err = env.board.Rank(ctx, "u5")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLeaderboardRebuildFromStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, uid := range []string{"a", "b", "c"} {
		env.createUser(t, uid, uid)
	}
	_, err := env.store.Users().RecordCompletion(ctx, "a", "quiz", model.CompletedStory{Score: 30})
	require.NoError(t, err)
	_, err = env.store.Users().RecordCompletion(ctx, "b", "quiz", model.CompletedStory{Score: 70})
	require.NoError(t, err)

	require.NoError(t, env.board.Update(ctx, "stale", 999))

	n, err := env.board.Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	resp, err := env.board.Top(ctx, 0, "")
	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "b", resp.Entries[0].UserID)
	assert.Equal(t, "a", resp.Entries[1].UserID)
	assert.Nil(t, resp.UserEntry)
}
