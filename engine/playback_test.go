package engine

import (
	"testing"

	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoSceneStory() *model.Story {
	return &model.Story{
		ID:          "two-scenes",
		Title:       "Two scenes",
		TotalPoints: 10,
		Scenes: []model.Scene{
			{Kind: model.SceneNarrative, Lines: []model.Line{{Speaker: "Lan", Text: "Hello"}}},
			{Kind: model.SceneChoice, Question: "Plant a tree?", Options: []model.Option{
				{Text: "Yes", Good: true, Points: 10, Feedback: "Great"},
				{Text: "No", Good: false, Points: -10, Feedback: "Too bad"},
			}},
		},
	}
}

func longerStory() *model.Story {
	return &model.Story{
		ID:          "longer",
		Title:       "Longer",
		TotalPoints: 60,
		Scenes: []model.Scene{
			{Kind: model.SceneNarrative, Lines: []model.Line{{Text: "one"}, {Text: "two"}, {Text: "three"}}},
			{Kind: model.SceneChoice, Question: "A?", Options: []model.Option{{Text: "a1", Points: 30}, {Text: "a2", Points: -5}}},
			{Kind: model.SceneChoice, Question: "B?", Options: []model.Option{{Text: "b1", Points: 30}, {Text: "b2", Points: 1}}},
			{Kind: model.SceneEnding, Lines: []model.Line{{Text: "the end"}}},
		},
	}
}

// advanceFully skips the reveal and then advances.
func advanceFully(t *testing.T, p *Playback) {
	t.Helper()
	if r := p.Reveal(); r != nil && !r.Done() {
		require.NoError(t, p.Advance())
	}
	require.NoError(t, p.Advance())
}

func TestTwoSceneScenario(t *testing.T) {
	var finished []int
	p := NewPlayback(twoSceneStory(), WithFinish(func(score int) { finished = append(finished, score) }))
	require.Equal(t, StatePreparation, p.State())

	require.NoError(t, p.Start(true, false))
	assert.Equal(t, StatePlaying, p.State())
	assert.Equal(t, "Hello", p.View().Text)

	advanceFully(t, p)
	v := p.View()
	assert.Equal(t, model.SceneChoice, v.SceneKind)
	assert.Len(t, v.Options, 2)

	opt, err := p.Choose(0)
	require.NoError(t, err)
	assert.Equal(t, 10, opt.Points)
	require.NotNil(t, p.View().Feedback)
	assert.Equal(t, "Great", p.View().Feedback.Feedback)

	require.NoError(t, p.Continue())
	assert.Equal(t, StateResult, p.State())
	assert.Equal(t, 10, p.Score())
	assert.Equal(t, []int{10}, finished)

	v = p.View()
	require.NotNil(t, v.GoodEnding)
	assert.False(t, *v.GoodEnding)
	assert.Equal(t, float64(100), v.Progress)
}

func TestGoodEndingBoundary(t *testing.T) {
	assert.True(t, GoodEnding(51))
	assert.False(t, GoodEnding(50))
	assert.False(t, GoodEnding(-20))
}

func TestStartGuards(t *testing.T) {
	p := NewPlayback(twoSceneStory())
	assert.ErrorIs(t, p.Start(false, false), ErrConsentRequired)
	assert.ErrorIs(t, p.Start(true, true), ErrAlreadyCompleted)
	assert.Equal(t, StatePreparation, p.State())

	require.NoError(t, p.Start(true, false))
	assert.ErrorIs(t, p.Start(true, false), ErrAlreadyStarted)
}

func TestAdvanceShortCircuitsReveal(t *testing.T) {
	p := NewPlayback(longerStory())
	require.NoError(t, p.Start(true, false))

	r := p.Reveal()
	require.NotNil(t, r)
	r.Next()
	assert.False(t, r.Done())

	require.NoError(t, p.Advance())
	v := p.View()
	assert.Equal(t, 0, v.DialogueIndex, "first advance only completes the reveal")
	assert.True(t, v.RevealDone)
	assert.Equal(t, "one", v.Revealed)

	require.NoError(t, p.Advance())
	assert.Equal(t, 1, p.View().DialogueIndex)
}

func TestNarrativeWalksLinesThenScenes(t *testing.T) {
	p := NewPlayback(longerStory())
	require.NoError(t, p.Start(true, false))

	advanceFully(t, p)
	advanceFully(t, p)
	v := p.View()
	assert.Equal(t, 0, v.SceneIndex)
	assert.Equal(t, 2, v.DialogueIndex)

	advanceFully(t, p)
	v = p.View()
	assert.Equal(t, 1, v.SceneIndex)
	assert.Equal(t, 0, v.DialogueIndex)
	assert.Equal(t, "A?", v.Text)
}

func TestChoiceSceneDoesNotAutoAdvance(t *testing.T) {
	p := NewPlayback(twoSceneStory())
	require.NoError(t, p.Start(true, false))
	advanceFully(t, p)

	p.Reveal().Complete()
	assert.ErrorIs(t, p.Advance(), ErrAwaitingChoice)

	_, err := p.Choose(5)
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = p.Choose(1)
	require.NoError(t, err)
	_, err = p.Choose(0)
	assert.ErrorIs(t, err, ErrAwaitingContinue)
	assert.ErrorIs(t, p.Advance(), ErrAwaitingContinue)
	assert.Equal(t, -10, p.Score())
}

func TestChooseOutsideChoiceScene(t *testing.T) {
	p := NewPlayback(twoSceneStory())
	require.NoError(t, p.Start(true, false))
	_, err := p.Choose(0)
	assert.ErrorIs(t, err, ErrNotChoiceScene)
	assert.ErrorIs(t, p.Continue(), ErrNoFeedback)
}

func TestScoreIsSumOfChosenDeltas(t *testing.T) {
	paths := []struct {
		a, b  int
		score int
	}{
		{0, 0, 60},
		{0, 1, 31},
		{1, 0, 25},
		{1, 1, -4},
	}

	for _, path := range paths {
		var final *int
		p := NewPlayback(longerStory(), WithFinish(func(s int) { final = &s }))
		require.NoError(t, p.Start(true, false))
		for i := 0; i < 3; i++ {
			advanceFully(t, p)
		}
		_, err := p.Choose(path.a)
		require.NoError(t, err)
		require.NoError(t, p.Continue())
		_, err = p.Choose(path.b)
		require.NoError(t, err)
		require.NoError(t, p.Continue())

		assert.Equal(t, model.SceneEnding, p.View().SceneKind)
		advanceFully(t, p)

		require.Equal(t, StateResult, p.State())
		require.NotNil(t, final)
		assert.Equal(t, path.score, *final)
		assert.Equal(t, GoodEnding(path.score), *p.View().GoodEnding)
	}
}

func TestNoTransitionsAfterResult(t *testing.T) {
	calls := 0
	p := NewPlayback(twoSceneStory(), WithFinish(func(int) { calls++ }))
	require.NoError(t, p.Start(true, false))
	advanceFully(t, p)
	_, err := p.Choose(0)
	require.NoError(t, err)
	require.NoError(t, p.Continue())

	assert.ErrorIs(t, p.Advance(), ErrNotPlaying)
	assert.ErrorIs(t, p.Continue(), ErrNotPlaying)
	_, err = p.Choose(0)
	assert.ErrorIs(t, err, ErrNotPlaying)
	assert.Equal(t, 1, calls)
}

func TestTextListenerSeesEveryText(t *testing.T) {
	var texts []string
	p := NewPlayback(twoSceneStory(), WithTextListener(func(text string, _ *Reveal) {
		texts = append(texts, text)
	}))
	require.NoError(t, p.Start(true, false))
	advanceFully(t, p)
	assert.Equal(t, []string{"Hello", "Plant a tree?"}, texts)
}

func TestProgressPercentClamps(t *testing.T) {
	assert.Equal(t, float64(0), ProgressPercent(-30, 100))
	assert.Equal(t, float64(100), ProgressPercent(130, 100))
	assert.Equal(t, float64(50), ProgressPercent(50, 100))
	assert.Equal(t, float64(0), ProgressPercent(10, 0))
}
