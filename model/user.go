package model

// UserProfile is the document stored at users/{uid}.
type UserProfile struct {
	ID               string                    `json:"id"`
	DisplayName      string                    `json:"displayName"`
	Email            string                    `json:"email"`
	Role             string                    `json:"role,omitempty"`
	TotalScore       int                       `json:"totalScore"`
	CompletedCount   int                       `json:"completedCount"`
	Bio              string                    `json:"bio,omitempty"`
	Institution      string                    `json:"institution,omitempty"`
	Class            string                    `json:"class,omitempty"`
	Photo            string                    `json:"photo,omitempty"`
	CompletedStories map[string]CompletedStory `json:"completedStories,omitempty"`
	Preferences      Preferences               `json:"preferences"`
	Achievements     Achievements              `json:"achievements"`
	DeviceTokens     map[string]string         `json:"deviceTokens,omitempty"`
	LoginStreak      int                       `json:"loginStreak,omitempty"`
	LastLoginDate    string                    `json:"lastLoginDate,omitempty"`
	BestRank         int                       `json:"bestRank,omitempty"`
	CreatedAt        int64                     `json:"createdAt"`
}

type Preferences struct {
	Theme         string `json:"theme"`
	Notifications bool   `json:"notifications"`
}

// Achievements holds unlock timestamps (unix millis) and up to three showcased ids.
type Achievements struct {
	Unlocked  map[string]int64 `json:"unlocked,omitempty"`
	Displayed []string         `json:"displayed,omitempty"`
}

type CompletedStory struct {
	Score       int   `json:"score"`
	CompletedAt int64 `json:"completedAt"`
	Perfect     bool  `json:"perfect,omitempty"`
}

func (p *UserProfile) IsAdmin() bool {
	return p.Role == "admin"
}

func (p *UserProfile) HasUnlocked(id string) bool {
	_, ok := p.Achievements.Unlocked[id]
	return ok
}

func (p *UserProfile) PerfectCount() int {
	n := 0
	for _, c := range p.CompletedStories {
		if c.Perfect {
			n++
		}
	}
	return n
}

// ProfileComplete reports whether the optional profile fields are all filled in.
func (p *UserProfile) ProfileComplete() bool {
	return p.Bio != "" && p.Institution != "" && p.Class != ""
}
