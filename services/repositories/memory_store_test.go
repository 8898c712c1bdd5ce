package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateReadDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, "users/u1", map[string]interface{}{"name": "Lan", "score": 5}))

	var out struct {
		Name  string `json:"name"`
		Score int    `json:"score"`
	}
	found, err := s.Read(ctx, "users/u1", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Lan", out.Name)
	assert.Equal(t, 5, out.Score)

	require.NoError(t, s.Delete(ctx, "users/u1"))
	found, err = s.Read(ctx, "users/u1", &out)
	require.NoError(t, err)
	assert.False(t, found)

	var root map[string]interface{}
	found, err = s.Read(ctx, "users", &root)
	require.NoError(t, err)
	assert.False(t, found, "empty parents are pruned")
}

func TestMemoryStoreUpdateNestedAndNil(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Create(ctx, "users/u1", map[string]interface{}{"bio": "hi", "score": 1}))
	require.NoError(t, s.Update(ctx, "users/u1", map[string]interface{}{
		"score":                   11,
		"bio":                     nil,
		"completedStories/story1": map[string]int{"score": 10},
	}))

	var out map[string]interface{}
	found, err := s.Read(ctx, "users/u1", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 11, out["score"])
	assert.NotContains(t, out, "bio")

	var score int
	found, err = s.Read(ctx, "users/u1/completedStories/story1/score", &score)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 10, score)
}

func TestMemoryStoreRejectsInvalidPaths(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Create(ctx, "users/a.b", 1)
	assert.ErrorIs(t, err, ErrInvalidPath)

	err = s.Update(ctx, "users/u1", map[string]interface{}{"x#y": 1})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestMemoryStorePushGeneratesOrderedKeys(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	k1, err := s.Push(ctx, "reports", map[string]string{"subject": "a"})
	require.NoError(t, err)
	k2, err := s.Push(ctx, "reports", map[string]string{"subject": "b"})
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.Less(t, k1, k2)
}

func nextSnapshot(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
	return Snapshot{}
}

func TestMemoryStoreSubscribe(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	sub, err := s.Subscribe(ctx, "system")
	require.NoError(t, err)
	defer sub.Close()

	first := nextSnapshot(t, sub)
	assert.False(t, first.Exists)

	require.NoError(t, s.Create(ctx, "system", map[string]interface{}{"maintenance": true}))
	snap := nextSnapshot(t, sub)
	require.True(t, snap.Exists)

	var out struct {
		Maintenance bool `json:"maintenance"`
	}
	require.NoError(t, snap.Decode(&out))
	assert.True(t, out.Maintenance)

	// writes to unrelated paths are not delivered
	require.NoError(t, s.Create(ctx, "users/u1", 1))
	select {
	case <-sub.C:
		t.Fatal("unexpected snapshot for unrelated path")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStoreSubscriptionClosesWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewMemoryStore()

	sub, err := s.Subscribe(ctx, "users/u1")
	require.NoError(t, err)
	nextSnapshot(t, sub)

	cancel()
	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	sub.Close()
}

func TestRelated(t *testing.T) {
	assert.True(t, related("users/u1", "users/u1/score"))
	assert.True(t, related("users/u1/score", "users"))
	assert.True(t, related("", "users"))
	assert.False(t, related("users/u1", "users/u10"))
	assert.False(t, related("system", "reports/1"))
}
