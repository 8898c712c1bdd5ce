package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rank(n int) *int { return &n }

func set(ids ...string) map[string]bool {
	m := map[string]bool{}
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestTableShape(t *testing.T) {
	defs := Definitions()
	assert.Len(t, defs, 16)

	seen := map[string]bool{}
	umbrellas := 0
	for _, d := range defs {
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
		if d.Type == All {
			umbrellas++
		}
	}
	assert.Equal(t, 1, umbrellas)
	assert.True(t, Exists(Newcomer))
	assert.False(t, Exists("ghost_id"))
}

func TestCountThresholds(t *testing.T) {
	for _, d := range Definitions() {
		if d.Type != StoriesCompleted && d.Type != TotalPoints && d.Type != PerfectStories && d.Type != LoginStreak {
			continue
		}
		below := Snapshot{}
		at := Snapshot{}
		switch d.Type {
		case StoriesCompleted:
			below.StoriesCompleted, at.StoriesCompleted = d.Threshold-1, d.Threshold
		case TotalPoints:
			below.TotalPoints, at.TotalPoints = d.Threshold-1, d.Threshold
		case PerfectStories:
			below.PerfectStories, at.PerfectStories = d.Threshold-1, d.Threshold
		case LoginStreak:
			below.LoginStreak, at.LoginStreak = d.Threshold-1, d.Threshold
		}

		assert.NotContains(t, Evaluate(below, nil), d.ID, "%s below threshold", d.ID)
		assert.Contains(t, Evaluate(at, nil), d.ID, "%s at threshold", d.ID)
	}
}

func TestRankUsesBetterOrEqual(t *testing.T) {
	got := Evaluate(Snapshot{BestRank: rank(3)}, nil)
	assert.Contains(t, got, "top_10")
	assert.Contains(t, got, "top_3")
	assert.NotContains(t, got, "champion")

	got = Evaluate(Snapshot{BestRank: rank(11)}, nil)
	assert.NotContains(t, got, "top_10")

	got = Evaluate(Snapshot{BestRank: nil}, nil)
	assert.NotContains(t, got, "top_10")

	got = Evaluate(Snapshot{BestRank: rank(1)}, nil)
	assert.Contains(t, got, "champion")
}

func TestAutoAchievementsNeverEvaluated(t *testing.T) {
	got := Evaluate(Snapshot{StoriesCompleted: 100, TotalPoints: 10000, BestRank: rank(1), PerfectStories: 10, LoginStreak: 30}, nil)
	assert.NotContains(t, got, Newcomer)
	assert.NotContains(t, got, ProfileComplete)
	assert.NotContains(t, got, EcoLegend, "umbrella needs the event achievements too")
}

func TestAlreadyUnlockedIsNoop(t *testing.T) {
	s := Snapshot{StoriesCompleted: 1}
	first := Evaluate(s, nil)
	require.Equal(t, []string{"first_story"}, first)

	assert.Empty(t, Evaluate(s, set(first...)))
}

func TestUmbrellaRunsLastAndOnlyWhenAllUnlocked(t *testing.T) {
	max := Snapshot{StoriesCompleted: 4, TotalPoints: 400, BestRank: rank(1), PerfectStories: 4, LoginStreak: 7}

	got := Evaluate(max, set(Newcomer, ProfileComplete))
	require.NotEmpty(t, got)
	assert.Equal(t, EcoLegend, got[len(got)-1])

	got = Evaluate(max, set(Newcomer))
	assert.NotContains(t, got, EcoLegend)

	var everything []string
	for _, d := range Definitions() {
		if d.Type != All {
			everything = append(everything, d.ID)
		}
	}
	assert.Equal(t, []string{EcoLegend}, Evaluate(Snapshot{}, set(everything...)))
	assert.Empty(t, Evaluate(Snapshot{}, set(append(everything, EcoLegend)...)))
}

func TestUnknownUnlockedIdsAreIgnored(t *testing.T) {
	got := Evaluate(Snapshot{}, set("legacy_badge"))
	assert.Empty(t, got)
}
