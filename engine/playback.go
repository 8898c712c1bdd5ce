// Package engine implements story playback: walking the scene list,
// accumulating score and revealing text.
package engine

import (
	"errors"

	"github.com/lac-hong-legacy/ecotale_api/model"
)

type State string

const (
	StatePreparation State = "preparation"
	StatePlaying     State = "playing"
	StateResult      State = "result"
)

// GoodEndingThreshold is exclusive: a score must exceed it.
const GoodEndingThreshold = 50

var (
	ErrConsentRequired  = errors.New("consent is required to start the story")
	ErrAlreadyCompleted = errors.New("story already completed")
	ErrNotPlaying       = errors.New("story is not being played")
	ErrAwaitingChoice   = errors.New("an option must be chosen")
	ErrAwaitingContinue = errors.New("feedback must be dismissed first")
	ErrNotChoiceScene   = errors.New("current scene has no options")
	ErrInvalidOption    = errors.New("option out of range")
	ErrNoFeedback       = errors.New("no feedback is shown")
	ErrAlreadyStarted   = errors.New("story already started")
)

// TextListener is told about every new line or question, e.g. to narrate it.
type TextListener func(text string, reveal *Reveal)

// FinishFunc receives the final score, exactly once.
type FinishFunc func(score int)

// Playback is a single play session of one story. It is not safe for
// concurrent use; callers serialize access.
type Playback struct {
	story *model.Story

	state         State
	sceneIndex    int
	dialogueIndex int
	score         int

	reveal   *Reveal
	chosen   *model.Option
	onText   TextListener
	onFinish FinishFunc
	finished bool
}

type PlaybackOption func(*Playback)

func WithTextListener(fn TextListener) PlaybackOption {
	return func(p *Playback) { p.onText = fn }
}

func WithFinish(fn FinishFunc) PlaybackOption {
	return func(p *Playback) { p.onFinish = fn }
}

func NewPlayback(story *model.Story, opts ...PlaybackOption) *Playback {
	p := &Playback{story: story, state: StatePreparation}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Playback) State() State { return p.state }
func (p *Playback) Score() int   { return p.score }

func (p *Playback) Story() *model.Story { return p.story }

// Reveal is the producer for the text currently on screen, nil outside PLAYING.
func (p *Playback) Reveal() *Reveal { return p.reveal }

// Start leaves PREPARATION. Consent is mandatory and a completed story cannot be replayed.
func (p *Playback) Start(consent, alreadyCompleted bool) error {
	if p.state != StatePreparation {
		return ErrAlreadyStarted
	}
	if !consent {
		return ErrConsentRequired
	}
	if alreadyCompleted {
		return ErrAlreadyCompleted
	}

	p.state = StatePlaying
	p.score = 0
	p.sceneIndex = 0
	p.dialogueIndex = 0
	p.enterScene()
	return nil
}

// Advance completes an in-progress reveal, otherwise moves to the next line or scene.
func (p *Playback) Advance() error {
	if p.state != StatePlaying {
		return ErrNotPlaying
	}
	if p.chosen != nil {
		return ErrAwaitingContinue
	}
	if p.reveal != nil && !p.reveal.Done() {
		p.reveal.Complete()
		return nil
	}

	scene := p.currentScene()
	if scene.Kind == model.SceneChoice {
		return ErrAwaitingChoice
	}

	if p.dialogueIndex+1 < len(scene.Lines) {
		p.dialogueIndex++
		p.setText(scene.Lines[p.dialogueIndex].Text)
		return nil
	}

	p.nextScene()
	return nil
}

// Choose applies the option's score delta and shows its feedback.
func (p *Playback) Choose(index int) (model.Option, error) {
	if p.state != StatePlaying {
		return model.Option{}, ErrNotPlaying
	}
	if p.chosen != nil {
		return model.Option{}, ErrAwaitingContinue
	}

	scene := p.currentScene()
	if scene.Kind != model.SceneChoice {
		return model.Option{}, ErrNotChoiceScene
	}
	if index < 0 || index >= len(scene.Options) {
		return model.Option{}, ErrInvalidOption
	}

	if p.reveal != nil {
		p.reveal.Complete()
	}

	option := scene.Options[index]
	p.score += option.Points
	p.chosen = &option
	return option, nil
}

// Continue dismisses the feedback overlay.
func (p *Playback) Continue() error {
	if p.state != StatePlaying {
		return ErrNotPlaying
	}
	if p.chosen == nil {
		return ErrNoFeedback
	}

	p.chosen = nil
	p.nextScene()
	return nil
}

func (p *Playback) currentScene() model.Scene {
	return p.story.Scenes[p.sceneIndex]
}

func (p *Playback) nextScene() {
	if p.sceneIndex+1 >= len(p.story.Scenes) {
		p.finish()
		return
	}
	p.sceneIndex++
	p.dialogueIndex = 0
	p.enterScene()
}

func (p *Playback) enterScene() {
	scene := p.currentScene()
	switch scene.Kind {
	case model.SceneChoice:
		p.setText(scene.Question)
	default:
		p.setText(scene.Lines[0].Text)
	}
}

func (p *Playback) setText(text string) {
	p.reveal = NewReveal(text)
	if p.onText != nil {
		p.onText(text, p.reveal)
	}
}

func (p *Playback) finish() {
	p.state = StateResult
	p.reveal = nil
	if p.finished {
		return
	}
	p.finished = true
	if p.onFinish != nil {
		p.onFinish(p.score)
	}
}

// GoodEnding classifies a final score.
func GoodEnding(score int) bool {
	return score > GoodEndingThreshold
}

// ProgressPercent scales a score against the story's printed total, clamped to [0,100].
func ProgressPercent(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(score) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
