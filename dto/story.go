package dto

import "github.com/lac-hong-legacy/ecotale_api/engine"

type StorySummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Synopsis    string `json:"synopsis"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty"`
	Cover       string `json:"cover,omitempty"`
	TotalPoints int    `json:"total_points"`
	SceneCount  int    `json:"scene_count"`
	Completed   bool   `json:"completed"`
	Score       *int   `json:"score,omitempty"`
}

type StoryListResponse struct {
	Stories        []StorySummary `json:"stories"`
	CompletedCount int            `json:"completed_count"`
	TotalScore     int            `json:"total_score"`
}

type PrepareStoryResponse struct {
	Story            StorySummary `json:"story"`
	AlreadyCompleted bool         `json:"already_completed"`
	CanStart         bool         `json:"can_start"`
	Message          string       `json:"message,omitempty"`
}

type StartStoryRequest struct {
	Consent bool `json:"consent"`
}

type ChooseRequest struct {
	Option *int `json:"option" validate:"required,min=0"`
}

func (r ChooseRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CompletionResult struct {
	StoryID          string   `json:"story_id"`
	Score            int      `json:"score"`
	GoodEnding       bool     `json:"good_ending"`
	Progress         float64  `json:"progress"`
	AlreadyCompleted bool     `json:"already_completed"`
	Perfect          bool     `json:"perfect"`
	TotalScore       int      `json:"total_score"`
	Unlocked         []string `json:"unlocked_achievements,omitempty"`
}

// Narration points the client at generated audio, or tells it to use the local synthesizer.
type Narration struct {
	Text     string `json:"text"`
	Voice    string `json:"voice"`
	AudioURL string `json:"audio_url,omitempty"`
	Fallback bool   `json:"fallback"`
	Pending  bool   `json:"pending,omitempty"`
}

// PlaySessionResponse is the state of a play session after an action.
type PlaySessionResponse struct {
	SessionID string            `json:"session_id"`
	View      engine.View       `json:"view"`
	Result    *CompletionResult `json:"result,omitempty"`
}

// PlayEvent is one message on a play session stream.
type PlayEvent struct {
	Type      string            `json:"type"`
	View      *engine.View      `json:"view,omitempty"`
	Revealed  string            `json:"revealed,omitempty"`
	Narration *Narration        `json:"narration,omitempty"`
	Result    *CompletionResult `json:"result,omitempty"`
}
