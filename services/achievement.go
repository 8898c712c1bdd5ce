package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/ecotale_api/achievement"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	log "github.com/sirupsen/logrus"
)

// RankSource reports a user's current leaderboard position.
type RankSource interface {
	Rank(ctx context.Context, uid string) (int, bool, error)
}

type AchievementService struct {
	appContext.DefaultService

	users    *repositories.UserRepository
	ranks    RankSource
	notifier Notifier
}

const ACHIEVEMENT_SVC = "achievement_svc"

func NewAchievementService(users *repositories.UserRepository, ranks RankSource, notifier Notifier) *AchievementService {
	return &AchievementService{users: users, ranks: ranks, notifier: notifier}
}

func (svc AchievementService) Id() string {
	return ACHIEVEMENT_SVC
}

func (svc *AchievementService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *AchievementService) Start() error {
	svc.users = svc.Service(STORE_SVC).(*StoreService).Users()
	svc.ranks = svc.Service(LEADERBOARD_SVC).(*LeaderboardService)
	svc.notifier = svc.Service(NOTIFICATION_SVC).(*NotificationService)
	return nil
}

// Check evaluates the user's progress and writes every newly earned badge.
func (svc *AchievementService) Check(ctx context.Context, uid string) ([]string, error) {
	profile, err := svc.users.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, shared.NewNotFoundError(err, "User not found")
		}
		return nil, shared.NewInternalError(err, "Failed to load profile")
	}

	snapshot := achievement.Snapshot{
		StoriesCompleted: profile.CompletedCount,
		TotalPoints:      profile.TotalScore,
		PerfectStories:   profile.PerfectCount(),
		LoginStreak:      profile.LoginStreak,
	}
	if best := svc.bestRank(ctx, profile); best > 0 {
		snapshot.BestRank = &best
	}

	have := make(map[string]bool, len(profile.Achievements.Unlocked))
	for id := range profile.Achievements.Unlocked {
		have[id] = true
	}

	earned := achievement.Evaluate(snapshot, have)
	unlocked := svc.write(ctx, uid, earned)
	svc.announce(ctx, profile, unlocked)
	return unlocked, nil
}

// UnlockEvent grants an event achievement, then re-evaluates so the
// umbrella badge follows when it completes the set.
func (svc *AchievementService) UnlockEvent(ctx context.Context, uid, id string) ([]string, error) {
	if _, ok := achievement.Lookup(id); !ok {
		return nil, shared.NewBadRequestError(fmt.Errorf("unknown achievement %q", id), "Unknown achievement")
	}

	var unlocked []string
	ok, err := svc.users.UnlockAchievement(ctx, uid, id)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to unlock achievement")
	}
	if ok {
		RecordAchievementUnlock(id)
		unlocked = append(unlocked, id)
	}

	more, err := svc.Check(ctx, uid)
	if err != nil {
		return unlocked, err
	}
	return append(unlocked, more...), nil
}

// bestRank combines the stored best rank with the live one and persists improvements.
func (svc *AchievementService) bestRank(ctx context.Context, profile *model.UserProfile) int {
	best := profile.BestRank
	if svc.ranks == nil {
		return best
	}

	rank, ok, err := svc.ranks.Rank(ctx, profile.ID)
	if err != nil {
		log.WithError(err).WithField("uid", profile.ID).Warn("Leaderboard rank unavailable for achievement check")
		return best
	}
	if ok && (best == 0 || rank < best) {
		best = rank
		if err := svc.users.SetBestRank(ctx, profile.ID, best); err != nil {
			log.WithError(err).WithField("uid", profile.ID).Warn("Failed to store best rank")
		}
	}
	return best
}

func (svc *AchievementService) write(ctx context.Context, uid string, ids []string) []string {
	unlocked := make([]string, 0, len(ids))
	for _, id := range ids {
		ok, err := svc.users.UnlockAchievement(ctx, uid, id)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"uid": uid, "achievement": id}).Error("Failed to unlock achievement")
			continue
		}
		if ok {
			RecordAchievementUnlock(id)
			unlocked = append(unlocked, id)
		}
	}
	return unlocked
}

func (svc *AchievementService) announce(ctx context.Context, profile *model.UserProfile, ids []string) {
	if svc.notifier == nil || len(ids) == 0 {
		return
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if def, ok := achievement.Lookup(id); ok {
			names = append(names, def.Name)
		}
	}

	title := "Achievement unlocked!"
	body := strings.Join(names, ", ")
	data := map[string]string{"type": "achievement", "ids": strings.Join(ids, ",")}

	if err := svc.notifier.Notify(ctx, profile, title, body, data); err != nil {
		log.WithError(err).WithField("uid", profile.ID).Warn("Achievement notification failed")
	}
}

func (svc *AchievementService) List(ctx context.Context, uid string) (*dto.AchievementListResponse, error) {
	profile, err := svc.users.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, shared.NewNotFoundError(err, "User not found")
		}
		return nil, shared.NewInternalError(err, "Failed to load achievements")
	}

	displayed := make(map[string]bool, len(profile.Achievements.Displayed))
	for _, id := range profile.Achievements.Displayed {
		displayed[id] = true
	}

	defs := achievement.Definitions()
	resp := &dto.AchievementListResponse{
		Achievements: make([]dto.AchievementInfo, 0, len(defs)),
		Total:        len(defs),
		Displayed:    append([]string{}, profile.Achievements.Displayed...),
	}
	for _, def := range defs {
		info := AchievementInfo(def)
		if at, ok := profile.Achievements.Unlocked[def.ID]; ok {
			info.Unlocked = true
			info.UnlockedAt = at
			resp.UnlockedCount++
		}
		info.Displayed = displayed[def.ID]
		resp.Achievements = append(resp.Achievements, info)
	}
	return resp, nil
}

// SetDisplayed replaces the profile showcase; invalid selections change nothing.
func (svc *AchievementService) SetDisplayed(ctx context.Context, uid string, ids []string) error {
	err := svc.users.SetDisplayedAchievements(ctx, uid, ids)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrTooManyDisplayed):
		return shared.NewBadRequestError(err, "You can display at most 3 achievements")
	case errors.Is(err, repositories.ErrNotUnlocked):
		return shared.NewBadRequestError(err, "Only unlocked achievements can be displayed")
	case errors.Is(err, repositories.ErrDuplicateDisplay):
		return shared.NewBadRequestError(err, "Each achievement can be displayed once")
	case errors.Is(err, repositories.ErrNotFound):
		return shared.NewNotFoundError(err, "User not found")
	default:
		return shared.NewInternalError(err, "Failed to update displayed achievements")
	}
}

// Displayed resolves showcase ids to their definitions, in showcase order.
func Displayed(profile *model.UserProfile) []dto.AchievementInfo {
	out := make([]dto.AchievementInfo, 0, len(profile.Achievements.Displayed))
	for _, id := range profile.Achievements.Displayed {
		def, ok := achievement.Lookup(id)
		if !ok {
			continue
		}
		info := AchievementInfo(def)
		info.Unlocked = true
		info.UnlockedAt = profile.Achievements.Unlocked[id]
		info.Displayed = true
		out = append(out, info)
	}
	return out
}

func AchievementInfo(def achievement.Definition) dto.AchievementInfo {
	return dto.AchievementInfo{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Category:    def.Category,
		Rarity:      def.Rarity,
		Requirement: string(def.Type),
		Threshold:   def.Threshold,
	}
}

// InfoList maps ids to definitions, skipping unknown ids, sorted by id.
func InfoList(ids []string) []dto.AchievementInfo {
	out := make([]dto.AchievementInfo, 0, len(ids))
	for _, id := range ids {
		if def, ok := achievement.Lookup(id); ok {
			info := AchievementInfo(def)
			info.Unlocked = true
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
