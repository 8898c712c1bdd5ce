// Package achievement holds the static badge table and the pure evaluator
// that decides which badges a progress snapshot unlocks.
package achievement

type RequirementType string

const (
	StoriesCompleted RequirementType = "stories_completed"
	TotalPoints      RequirementType = "total_points"
	LeaderboardRank  RequirementType = "leaderboard_rank"
	PerfectStories   RequirementType = "perfect_stories"
	LoginStreak      RequirementType = "login_streak"
	Event            RequirementType = "event"
	All              RequirementType = "all"
)

const (
	Newcomer        = "newcomer"
	ProfileComplete = "profile_complete"
	EcoLegend       = "eco_legend"
)

type Definition struct {
	ID          string
	Name        string
	Description string
	Category    string
	Rarity      string
	Type        RequirementType
	Threshold   int
}

// Auto achievements are unlocked by an event rather than by evaluation.
func (d Definition) Auto() bool {
	return d.Type == Event
}

var definitions = []Definition{
	{ID: Newcomer, Name: "Newcomer", Description: "Join the EcoTale community", Category: "community", Rarity: "common", Type: Event},
	{ID: ProfileComplete, Name: "Open Book", Description: "Fill in your bio, institution and class", Category: "community", Rarity: "common", Type: Event},

	{ID: "first_story", Name: "First Steps", Description: "Complete your first story", Category: "stories", Rarity: "common", Type: StoriesCompleted, Threshold: 1},
	{ID: "story_explorer", Name: "Explorer", Description: "Complete 2 stories", Category: "stories", Rarity: "rare", Type: StoriesCompleted, Threshold: 2},
	// Threshold equals the number of embedded stories in content/stories.
	{ID: "story_master", Name: "Storykeeper", Description: "Complete every story", Category: "stories", Rarity: "epic", Type: StoriesCompleted, Threshold: 4},

	{ID: "points_50", Name: "Seedling", Description: "Earn 50 points", Category: "points", Rarity: "common", Type: TotalPoints, Threshold: 50},
	{ID: "points_150", Name: "Sapling", Description: "Earn 150 points", Category: "points", Rarity: "rare", Type: TotalPoints, Threshold: 150},
	{ID: "points_300", Name: "Old Growth", Description: "Earn 300 points", Category: "points", Rarity: "epic", Type: TotalPoints, Threshold: 300},

	{ID: "perfect_first", Name: "Flawless", Description: "Finish a story with the best possible score", Category: "mastery", Rarity: "rare", Type: PerfectStories, Threshold: 1},
	{ID: "perfect_trio", Name: "Guardian", Description: "Finish 3 stories with the best possible score", Category: "mastery", Rarity: "legendary", Type: PerfectStories, Threshold: 3},

	{ID: "top_10", Name: "Rising Star", Description: "Reach the top 10 of the leaderboard", Category: "leaderboard", Rarity: "rare", Type: LeaderboardRank, Threshold: 10},
	{ID: "top_3", Name: "Podium", Description: "Reach the top 3 of the leaderboard", Category: "leaderboard", Rarity: "epic", Type: LeaderboardRank, Threshold: 3},
	{ID: "champion", Name: "Champion", Description: "Reach first place on the leaderboard", Category: "leaderboard", Rarity: "legendary", Type: LeaderboardRank, Threshold: 1},

	{ID: "streak_3", Name: "Regular", Description: "Log in 3 days in a row", Category: "dedication", Rarity: "common", Type: LoginStreak, Threshold: 3},
	{ID: "streak_7", Name: "Devoted", Description: "Log in 7 days in a row", Category: "dedication", Rarity: "rare", Type: LoginStreak, Threshold: 7},

	{ID: EcoLegend, Name: "Eco Legend", Description: "Unlock every other achievement", Category: "mastery", Rarity: "legendary", Type: All},
}

var byID = func() map[string]Definition {
	m := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		m[d.ID] = d
	}
	return m
}()

// Definitions returns a copy of the table in display order.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func Lookup(id string) (Definition, bool) {
	d, ok := byID[id]
	return d, ok
}

func Exists(id string) bool {
	_, ok := byID[id]
	return ok
}
