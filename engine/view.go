package engine

import "github.com/lac-hong-legacy/ecotale_api/model"

type OptionView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type FeedbackView struct {
	Good     bool   `json:"good"`
	Points   int    `json:"points"`
	Feedback string `json:"feedback"`
}

// View is a read-only snapshot of a playback for rendering.
type View struct {
	State         State           `json:"state"`
	StoryID       string          `json:"story_id"`
	SceneIndex    int             `json:"scene_index"`
	SceneCount    int             `json:"scene_count"`
	DialogueIndex int             `json:"dialogue_index"`
	SceneKind     model.SceneKind `json:"scene_kind,omitempty"`
	Speaker       string          `json:"speaker,omitempty"`
	Text          string          `json:"text,omitempty"`
	Revealed      string          `json:"revealed"`
	RevealDone    bool            `json:"reveal_done"`
	Options       []OptionView    `json:"options,omitempty"`
	Feedback      *FeedbackView   `json:"feedback,omitempty"`
	Score         int             `json:"score"`
	Progress      float64         `json:"progress"`
	GoodEnding    *bool           `json:"good_ending,omitempty"`
}

func (p *Playback) View() View {
	v := View{
		State:         p.state,
		StoryID:       p.story.ID,
		SceneIndex:    p.sceneIndex,
		SceneCount:    len(p.story.Scenes),
		DialogueIndex: p.dialogueIndex,
		Score:         p.score,
		Progress:      ProgressPercent(p.score, p.story.TotalPoints),
	}

	switch p.state {
	case StatePlaying:
		scene := p.currentScene()
		v.SceneKind = scene.Kind
		if scene.Kind == model.SceneChoice {
			v.Text = scene.Question
			for i, o := range scene.Options {
				v.Options = append(v.Options, OptionView{Index: i, Text: o.Text})
			}
		} else {
			line := scene.Lines[p.dialogueIndex]
			v.Speaker = line.Speaker
			v.Text = line.Text
		}
		if p.reveal != nil {
			v.Revealed = p.reveal.Text()
			v.RevealDone = p.reveal.Done()
		}
		if p.chosen != nil {
			v.Feedback = &FeedbackView{
				Good:     p.chosen.Good,
				Points:   p.chosen.Points,
				Feedback: p.chosen.Feedback,
			}
		}
	case StateResult:
		good := GoodEnding(p.score)
		v.GoodEnding = &good
	}

	return v
}
