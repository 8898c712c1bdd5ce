package achievement

// Snapshot is the progress an evaluation pass looks at.
// BestRank is nil when the user has never been ranked.
type Snapshot struct {
	StoriesCompleted int
	TotalPoints      int
	BestRank         *int
	PerfectStories   int
	LoginStreak      int
}

// Satisfied reports whether a threshold rule holds for the snapshot.
// Counts compare with >=, rank with <= (a better or equal position).
func (d Definition) Satisfied(s Snapshot) bool {
	switch d.Type {
	case StoriesCompleted:
		return s.StoriesCompleted >= d.Threshold
	case TotalPoints:
		return s.TotalPoints >= d.Threshold
	case PerfectStories:
		return s.PerfectStories >= d.Threshold
	case LoginStreak:
		return s.LoginStreak >= d.Threshold
	case LeaderboardRank:
		return s.BestRank != nil && *s.BestRank >= 1 && *s.BestRank <= d.Threshold
	}
	return false
}

// Evaluate returns the ids newly unlocked by s, given the already unlocked set.
// The umbrella achievement is checked last, after every individual rule.
func Evaluate(s Snapshot, unlocked map[string]bool) []string {
	have := make(map[string]bool, len(unlocked)+len(definitions))
	for id, ok := range unlocked {
		if ok {
			have[id] = true
		}
	}

	var newly []string
	for _, d := range definitions {
		if d.Auto() || d.Type == All || have[d.ID] {
			continue
		}
		if d.Satisfied(s) {
			have[d.ID] = true
			newly = append(newly, d.ID)
		}
	}

	for _, d := range definitions {
		if d.Type != All || have[d.ID] {
			continue
		}
		if allOthersUnlocked(d.ID, have) {
			have[d.ID] = true
			newly = append(newly, d.ID)
		}
	}

	return newly
}

func allOthersUnlocked(umbrella string, have map[string]bool) bool {
	for _, d := range definitions {
		if d.ID == umbrella || d.Type == All {
			continue
		}
		if !have[d.ID] {
			return false
		}
	}
	return true
}
