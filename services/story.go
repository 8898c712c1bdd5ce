package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	"github.com/lac-hong-legacy/ecotale_api/content"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/engine"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	STORY_SVC = "story_svc"

	SessionIdleTimeout = 2 * time.Hour
	playEventBuffer    = 64
)

var (
	ErrSessionNotFound = errors.New("play session not found")
	ErrSessionClosed   = errors.New("play session closed")
)

// ScoreBoard receives a user's new total after a completion.
type ScoreBoard interface {
	Update(ctx context.Context, uid string, totalScore int) error
}

// AchievementChecker runs the achievement evaluator for a user.
type AchievementChecker interface {
	Check(ctx context.Context, uid string) ([]string, error)
}

type StoryService struct {
	appContext.DefaultService

	catalog      *content.Catalog
	users        *repositories.UserRepository
	board        ScoreBoard
	achievements AchievementChecker
	narration    *NarrationService

	revealTick time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*playSession
	group    singleflight.Group
	stop     chan struct{}
}

func NewStoryService(catalog *content.Catalog, users *repositories.UserRepository, board ScoreBoard, achievements AchievementChecker, narration *NarrationService) *StoryService {
	return &StoryService{
		catalog:      catalog,
		users:        users,
		board:        board,
		achievements: achievements,
		narration:    narration,
		revealTick:   engine.DefaultRevealTick,
		now:          time.Now,
		sessions:     map[string]*playSession{},
	}
}

func (svc StoryService) Id() string {
	return STORY_SVC
}

func (svc *StoryService) Configure(ctx *appContext.Context) error {
	catalog, err := content.Load()
	if err != nil {
		return fmt.Errorf("failed to load stories: %w", err)
	}
	svc.catalog = catalog
	svc.revealTick = engine.DefaultRevealTick
	svc.now = time.Now
	svc.sessions = map[string]*playSession{}
	return svc.DefaultService.Configure(ctx)
}

func (svc *StoryService) Start() error {
	svc.users = svc.Service(STORE_SVC).(*StoreService).Users()
	svc.board = svc.Service(LEADERBOARD_SVC).(*LeaderboardService)
	svc.achievements = svc.Service(ACHIEVEMENT_SVC).(*AchievementService)
	svc.narration = svc.Service(NARRATION_SVC).(*NarrationService)

	svc.stop = make(chan struct{})
	go svc.expireLoop()

	log.WithField("stories", svc.catalog.Len()).Info("Story catalog loaded")
	return nil
}

func (svc *StoryService) Shutdown() {
	if svc.stop != nil {
		close(svc.stop)
	}

	svc.mu.Lock()
	sessions := make([]*playSession, 0, len(svc.sessions))
	for id, s := range svc.sessions {
		sessions = append(sessions, s)
		delete(svc.sessions, id)
	}
	svc.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

func (svc *StoryService) Catalog() *content.Catalog {
	return svc.catalog
}

// ==================== CATALOG ====================

func summary(story *model.Story) dto.StorySummary {
	return dto.StorySummary{
		ID:          story.ID,
		Title:       story.Title,
		Synopsis:    story.Synopsis,
		Category:    story.Category,
		Difficulty:  story.Difficulty,
		Cover:       story.Cover,
		TotalPoints: story.TotalPoints,
		SceneCount:  len(story.Scenes),
	}
}

func (svc *StoryService) ListStories(ctx context.Context, uid string) (*dto.StoryListResponse, error) {
	profile, err := svc.users.Get(ctx, uid)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, shared.NewInternalError(err, "Failed to load progress")
	}

	resp := &dto.StoryListResponse{Stories: []dto.StorySummary{}}
	for _, story := range svc.catalog.List() {
		s := summary(story)
		if profile != nil {
			if c, ok := profile.CompletedStories[story.ID]; ok {
				score := c.Score
				s.Completed = true
				s.Score = &score
			}
		}
		resp.Stories = append(resp.Stories, s)
	}
	if profile != nil {
		resp.CompletedCount = profile.CompletedCount
		resp.TotalScore = profile.TotalScore
	}
	return resp, nil
}

func (svc *StoryService) GetStory(id string) (*dto.StorySummary, error) {
	story, ok := svc.catalog.Get(id)
	if !ok {
		return nil, shared.NewNotFoundError(fmt.Errorf("story %q", id), "Story not found")
	}
	s := summary(story)
	return &s, nil
}

// Prepare is the pre-start screen: synopsis and whether the story can be played.
func (svc *StoryService) Prepare(ctx context.Context, uid, storyID string) (*dto.PrepareStoryResponse, error) {
	story, ok := svc.catalog.Get(storyID)
	if !ok {
		return nil, shared.NewNotFoundError(fmt.Errorf("story %q", storyID), "Story not found")
	}

	completed, done, err := svc.users.GetCompletedStory(ctx, uid, storyID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load progress")
	}

	resp := &dto.PrepareStoryResponse{
		Story:    summary(story),
		CanStart: !done,
	}
	if done {
		score := completed.Score
		resp.AlreadyCompleted = true
		resp.Story.Completed = true
		resp.Story.Score = &score
		resp.Message = "You have already completed this story."
	}
	return resp, nil
}

// ==================== PLAY SESSIONS ====================

type playSession struct {
	id      string
	uid     string
	storyID string
	svc     *StoryService

	mu         sync.Mutex
	playback   *engine.Playback
	narrator   *Narrator
	stopReveal context.CancelFunc
	lastSeen   time.Time
	finished   bool
	finalScore int
	result     *dto.CompletionResult
	closed     bool

	lmu       sync.Mutex
	listeners map[chan dto.PlayEvent]struct{}
}

func (s *playSession) broadcast(ev dto.PlayEvent) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	for ch := range s.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// onText starts revealing and narrating a new line. Runs under s.mu.
func (s *playSession) onText(text string, reveal *engine.Reveal) {
	if s.stopReveal != nil {
		s.stopReveal()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopReveal = cancel

	go reveal.Run(ctx, s.svc.revealTick, func(prefix string) {
		s.broadcast(dto.PlayEvent{Type: "reveal", Revealed: prefix})
	})

	if s.narrator != nil {
		s.narrator.Say(text)
	}
}

func (s *playSession) onFinish(score int) {
	s.finished = true
	s.finalScore = score
	if s.stopReveal != nil {
		s.stopReveal()
		s.stopReveal = nil
	}
}

// close tears the session down: reveal timer, narration and streams.
func (s *playSession) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.stopReveal != nil {
		s.stopReveal()
		s.stopReveal = nil
	}
	if s.narrator != nil {
		s.narrator.Stop()
	}
	s.mu.Unlock()

	s.lmu.Lock()
	for ch := range s.listeners {
		close(ch)
		delete(s.listeners, ch)
	}
	s.lmu.Unlock()

	activePlaySessions.Dec()
}

func (s *playSession) response() *dto.PlaySessionResponse {
	return &dto.PlaySessionResponse{
		SessionID: s.id,
		View:      s.playback.View(),
		Result:    s.result,
	}
}

// StartSession begins playback after consent. A completed story cannot be replayed.
func (svc *StoryService) StartSession(ctx context.Context, uid, storyID string, consent bool) (*dto.PlaySessionResponse, error) {
	story, ok := svc.catalog.Get(storyID)
	if !ok {
		return nil, shared.NewNotFoundError(fmt.Errorf("story %q", storyID), "Story not found")
	}

	_, done, err := svc.users.GetCompletedStory(ctx, uid, storyID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load progress")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to create play session")
	}

	s := &playSession{
		id:        id.String(),
		uid:       uid,
		storyID:   storyID,
		svc:       svc,
		lastSeen:  svc.now(),
		listeners: map[chan dto.PlayEvent]struct{}{},
	}
	if svc.narration != nil {
		s.narrator = svc.narration.NewNarrator(func(n dto.Narration) {
			s.broadcast(dto.PlayEvent{Type: "narration", Narration: &n})
		})
	}
	s.playback = engine.NewPlayback(story,
		engine.WithTextListener(s.onText),
		engine.WithFinish(s.onFinish),
	)

	s.mu.Lock()
	err = s.playback.Start(consent, done)
	s.mu.Unlock()
	if err != nil {
		if s.narrator != nil {
			s.narrator.Stop()
		}
		return nil, playbackError(err)
	}

	// one live session per user and story
	svc.mu.Lock()
	var replaced []*playSession
	for sid, other := range svc.sessions {
		if other.uid == uid && other.storyID == storyID {
			replaced = append(replaced, other)
			delete(svc.sessions, sid)
		}
	}
	svc.sessions[s.id] = s
	svc.mu.Unlock()
	activePlaySessions.Inc()

	for _, other := range replaced {
		other.close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response(), nil
}

func (svc *StoryService) session(uid, sid string) (*playSession, error) {
	svc.mu.Lock()
	s, ok := svc.sessions[sid]
	svc.mu.Unlock()

	if !ok || s.uid != uid {
		return nil, shared.NewNotFoundError(ErrSessionNotFound, "Play session not found")
	}
	return s, nil
}

// act runs one playback operation and persists the result when it ends the story.
func (svc *StoryService) act(ctx context.Context, uid, sid string, op func(p *engine.Playback) error) (*dto.PlaySessionResponse, error) {
	s, err := svc.session(uid, sid)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, shared.NewNotFoundError(ErrSessionClosed, "Play session not found")
	}
	s.lastSeen = svc.now()

	// A finished story whose save failed retries the save instead of the move.
	if !s.finished || s.result != nil {
		if err := op(s.playback); err != nil {
			return nil, playbackError(err)
		}
	}

	if s.finished && s.result == nil {
		story := s.playback.Story()
		result, err := svc.Complete(ctx, uid, story, s.finalScore)
		if err != nil {
			return nil, err
		}
		s.result = result
	}

	resp := s.response()
	view := resp.View
	s.broadcast(dto.PlayEvent{Type: "state", View: &view, Result: s.result})
	return resp, nil
}

func (svc *StoryService) Advance(ctx context.Context, uid, sid string) (*dto.PlaySessionResponse, error) {
	return svc.act(ctx, uid, sid, func(p *engine.Playback) error {
		return p.Advance()
	})
}

func (svc *StoryService) Choose(ctx context.Context, uid, sid string, option int) (*dto.PlaySessionResponse, error) {
	return svc.act(ctx, uid, sid, func(p *engine.Playback) error {
		_, err := p.Choose(option)
		return err
	})
}

func (svc *StoryService) Continue(ctx context.Context, uid, sid string) (*dto.PlaySessionResponse, error) {
	return svc.act(ctx, uid, sid, func(p *engine.Playback) error {
		return p.Continue()
	})
}

func (svc *StoryService) GetSession(uid, sid string) (*dto.PlaySessionResponse, error) {
	s, err := svc.session(uid, sid)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = svc.now()
	return s.response(), nil
}

// Narration returns the latest narration of the session.
func (svc *StoryService) Narration(uid, sid string) (*dto.Narration, error) {
	s, err := svc.session(uid, sid)
	if err != nil {
		return nil, err
	}
	if s.narrator == nil {
		s.mu.Lock()
		text := s.playback.View().Text
		s.mu.Unlock()
		return &dto.Narration{Text: text, Fallback: true}, nil
	}
	n := s.narrator.Latest()
	return &n, nil
}

// CloseSession ends a session when the player leaves the story view.
func (svc *StoryService) CloseSession(uid, sid string) error {
	s, err := svc.session(uid, sid)
	if err != nil {
		return err
	}

	svc.mu.Lock()
	delete(svc.sessions, sid)
	svc.mu.Unlock()

	s.close()
	return nil
}

// Subscribe streams session events. The channel closes with the session or on stop.
func (svc *StoryService) Subscribe(uid, sid string) (<-chan dto.PlayEvent, func(), error) {
	s, err := svc.session(uid, sid)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan dto.PlayEvent, playEventBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil, shared.NewNotFoundError(ErrSessionClosed, "Play session not found")
	}
	view := s.playback.View()
	result := s.result
	s.mu.Unlock()

	ch <- dto.PlayEvent{Type: "state", View: &view, Result: result}

	s.lmu.Lock()
	s.listeners[ch] = struct{}{}
	s.lmu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			if _, ok := s.listeners[ch]; ok {
				delete(s.listeners, ch)
				close(ch)
			}
		})
	}
	return ch, stop, nil
}

func (svc *StoryService) expireLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-svc.stop:
			return
		case <-ticker.C:
			svc.ExpireIdle()
		}
	}
}

// ExpireIdle closes sessions idle for longer than SessionIdleTimeout.
func (svc *StoryService) ExpireIdle() int {
	cutoff := svc.now().Add(-SessionIdleTimeout)

	svc.mu.Lock()
	all := make([]*playSession, 0, len(svc.sessions))
	for _, s := range svc.sessions {
		all = append(all, s)
	}
	svc.mu.Unlock()

	// s.mu can be held across a completion write; svc.mu must not wait on it.
	var idle []*playSession
	for _, s := range all {
		s.mu.Lock()
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
		}
		s.mu.Unlock()
	}

	var expired []*playSession
	svc.mu.Lock()
	for _, s := range idle {
		if svc.sessions[s.id] == s {
			delete(svc.sessions, s.id)
			expired = append(expired, s)
		}
	}
	svc.mu.Unlock()

	for _, s := range expired {
		s.close()
	}
	return len(expired)
}

// ==================== COMPLETION ====================

// Complete credits a finished story once per user. Concurrent completions of
// the same story by the same user in this process share a single write; a
// later completion finds the stored record and is reported as already done.
func (svc *StoryService) Complete(ctx context.Context, uid string, story *model.Story, score int) (*dto.CompletionResult, error) {
	key := uid + ":" + story.ID
	v, err, _ := svc.group.Do(key, func() (interface{}, error) {
		return svc.persist(context.WithoutCancel(ctx), uid, story, score)
	})
	if err != nil {
		return nil, err
	}

	result := *v.(*dto.CompletionResult)
	return &result, nil
}

func (svc *StoryService) persist(ctx context.Context, uid string, story *model.Story, score int) (*dto.CompletionResult, error) {
	result := &dto.CompletionResult{
		StoryID:    story.ID,
		Score:      score,
		GoodEnding: engine.GoodEnding(score),
		Progress:   engine.ProgressPercent(score, story.TotalPoints),
	}

	existing, done, err := svc.users.GetCompletedStory(ctx, uid, story.ID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to save story progress")
	}
	if done {
		result.AlreadyCompleted = true
		result.Score = existing.Score
		result.Perfect = existing.Perfect
		result.GoodEnding = engine.GoodEnding(existing.Score)
		result.Progress = engine.ProgressPercent(existing.Score, story.TotalPoints)
		if profile, err := svc.users.Get(ctx, uid); err == nil {
			result.TotalScore = profile.TotalScore
		}
		return result, nil
	}

	best := story.MaxScore()
	result.Perfect = best > 0 && score >= best

	profile, err := svc.users.RecordCompletion(ctx, uid, story.ID, model.CompletedStory{
		Score:   score,
		Perfect: result.Perfect,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, shared.NewNotFoundError(err, "User not found")
		}
		return nil, shared.NewInternalError(err, "Failed to save story progress")
	}
	result.TotalScore = profile.TotalScore

	RecordStoryCompletion(story.ID, result.GoodEnding)

	log.WithFields(log.Fields{
		"uid":         uid,
		"story":       story.ID,
		"score":       score,
		"total_score": profile.TotalScore,
	}).Info("Story completed")

	if svc.board != nil {
		if err := svc.board.Update(ctx, uid, profile.TotalScore); err != nil {
			log.WithError(err).WithField("uid", uid).Error("Failed to update leaderboard")
		}
	}

	if svc.achievements != nil {
		unlocked, err := svc.achievements.Check(ctx, uid)
		if err != nil {
			log.WithError(err).WithField("uid", uid).Error("Achievement check after completion failed")
		}
		result.Unlocked = unlocked
	}

	return result, nil
}

func playbackError(err error) error {
	switch {
	case errors.Is(err, engine.ErrConsentRequired):
		return shared.NewBadRequestError(err, "Please confirm you are ready to start the story")
	case errors.Is(err, engine.ErrAlreadyCompleted):
		return shared.NewConflictError(err, "You have already completed this story")
	case errors.Is(err, engine.ErrInvalidOption):
		return shared.NewBadRequestError(err, "Invalid option")
	case errors.Is(err, engine.ErrNotPlaying),
		errors.Is(err, engine.ErrAwaitingChoice),
		errors.Is(err, engine.ErrAwaitingContinue),
		errors.Is(err, engine.ErrNotChoiceScene),
		errors.Is(err, engine.ErrNoFeedback),
		errors.Is(err, engine.ErrAlreadyStarted):
		return shared.NewConflictError(err, err.Error())
	default:
		return shared.NewInternalError(err, "Story playback failed")
	}
}
