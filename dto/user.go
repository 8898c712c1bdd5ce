package dto

// ==================== PROFILE ====================

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=2,max=50"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Institution *string `json:"institution,omitempty" validate:"omitempty,max=120"`
	Class       *string `json:"class,omitempty" validate:"omitempty,max=50"`
	Photo       *string `json:"photo,omitempty" validate:"omitempty,data_image"`
}

func (r UpdateProfileRequest) Validate() error {
	return GetValidator().Struct(r)
}

type UpdatePreferencesRequest struct {
	Theme         *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
	Notifications *bool   `json:"notifications,omitempty"`
}

func (r UpdatePreferencesRequest) Validate() error {
	return GetValidator().Struct(r)
}

type DeviceTokenRequest struct {
	Token string `json:"token" validate:"required,min=10,max=4096"`
}

func (r DeviceTokenRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CompletedStoryInfo struct {
	StoryID     string `json:"story_id"`
	Title       string `json:"title"`
	Score       int    `json:"score"`
	Perfect     bool   `json:"perfect"`
	CompletedAt int64  `json:"completed_at"`
}

type UserProfileResponse struct {
	ID               string               `json:"id"`
	DisplayName      string               `json:"display_name"`
	Email            string               `json:"email"`
	Role             string               `json:"role"`
	TotalScore       int                  `json:"total_score"`
	CompletedCount   int                  `json:"completed_count"`
	Bio              string               `json:"bio,omitempty"`
	Institution      string               `json:"institution,omitempty"`
	Class            string               `json:"class,omitempty"`
	Photo            string               `json:"photo,omitempty"`
	Theme            string               `json:"theme"`
	Notifications    bool                 `json:"notifications"`
	LoginStreak      int                  `json:"login_streak"`
	Rank             *int                 `json:"rank,omitempty"`
	UnlockedCount    int                  `json:"unlocked_count"`
	Displayed        []AchievementInfo    `json:"displayed_achievements"`
	CompletedStories []CompletedStoryInfo `json:"completed_stories"`
	CreatedAt        int64                `json:"created_at"`
}

// PublicProfileResponse is what other users see at /users/:id.
type PublicProfileResponse struct {
	ID             string            `json:"id"`
	DisplayName    string            `json:"display_name"`
	TotalScore     int               `json:"total_score"`
	CompletedCount int               `json:"completed_count"`
	Bio            string            `json:"bio,omitempty"`
	Institution    string            `json:"institution,omitempty"`
	Class          string            `json:"class,omitempty"`
	Photo          string            `json:"photo,omitempty"`
	Rank           *int              `json:"rank,omitempty"`
	Displayed      []AchievementInfo `json:"displayed_achievements"`
}

// ==================== ACHIEVEMENTS ====================

type AchievementInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Rarity      string `json:"rarity"`
	Requirement string `json:"requirement"`
	Threshold   int    `json:"threshold,omitempty"`
	Unlocked    bool   `json:"unlocked"`
	UnlockedAt  int64  `json:"unlocked_at,omitempty"`
	Displayed   bool   `json:"displayed"`
}

type AchievementListResponse struct {
	Achievements  []AchievementInfo `json:"achievements"`
	UnlockedCount int               `json:"unlocked_count"`
	Total         int               `json:"total"`
	Displayed     []string          `json:"displayed"`
}

type SetDisplayedRequest struct {
	IDs []string `json:"ids" validate:"max=3,dive,required"`
}

func (r SetDisplayedRequest) Validate() error {
	return GetValidator().Struct(r)
}

type AchievementCheckResponse struct {
	Unlocked []AchievementInfo `json:"unlocked"`
}

// ==================== LEADERBOARD ====================

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Institution string `json:"institution,omitempty"`
	TotalScore  int    `json:"total_score"`
}

type LeaderboardResponse struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UserEntry *LeaderboardEntry  `json:"user_entry,omitempty"`
	Total     int64              `json:"total"`
}
