package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/ecotale_api/achievement"
	"github.com/lac-hong-legacy/ecotale_api/content"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	log "github.com/sirupsen/logrus"
)

const USER_SVC = "user_svc"

type UserService struct {
	appContext.DefaultService

	users        *repositories.UserRepository
	catalog      *content.Catalog
	ranks        RankSource
	achievements AchievementGranter
	identity     IdentityProvider
}

func NewUserService(users *repositories.UserRepository, catalog *content.Catalog, ranks RankSource, achievements AchievementGranter, identity IdentityProvider) *UserService {
	return &UserService{
		users:        users,
		catalog:      catalog,
		ranks:        ranks,
		achievements: achievements,
		identity:     identity,
	}
}

func (svc UserService) Id() string {
	return USER_SVC
}

func (svc *UserService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *UserService) Start() error {
	svc.users = svc.Service(STORE_SVC).(*StoreService).Users()
	svc.catalog = svc.Service(STORY_SVC).(*StoryService).Catalog()
	svc.ranks = svc.Service(LEADERBOARD_SVC).(*LeaderboardService)
	svc.achievements = svc.Service(ACHIEVEMENT_SVC).(*AchievementService)
	svc.identity = svc.Service(AUTH_SVC).(*AuthService).Identity()
	return nil
}

func (svc *UserService) load(ctx context.Context, uid string) (*model.UserProfile, error) {
	profile, err := svc.users.Get(ctx, uid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, shared.NewNotFoundError(err, "User not found")
		}
		log.WithError(err).WithField("uid", uid).Error("Failed to read profile")
		return nil, shared.NewInternalError(err, "Failed to load profile")
	}
	return profile, nil
}

func (svc *UserService) rank(ctx context.Context, uid string) *int {
	if svc.ranks == nil {
		return nil
	}
	rank, ok, err := svc.ranks.Rank(ctx, uid)
	if err != nil {
		log.WithError(err).WithField("uid", uid).Warn("Leaderboard rank lookup failed")
		return nil
	}
	if !ok {
		return nil
	}
	return &rank
}

func (svc *UserService) storyTitle(id string) string {
	if svc.catalog != nil {
		if story, ok := svc.catalog.Get(id); ok {
			return story.Title
		}
	}
	return id
}

func (svc *UserService) toProfileResponse(profile *model.UserProfile, rank *int) *dto.UserProfileResponse {
	resp := &dto.UserProfileResponse{
		ID:               profile.ID,
		DisplayName:      profile.DisplayName,
		Email:            profile.Email,
		Role:             profile.Role,
		TotalScore:       profile.TotalScore,
		CompletedCount:   profile.CompletedCount,
		Bio:              profile.Bio,
		Institution:      profile.Institution,
		Class:            profile.Class,
		Photo:            profile.Photo,
		Theme:            profile.Preferences.Theme,
		Notifications:    profile.Preferences.Notifications,
		LoginStreak:      profile.LoginStreak,
		Rank:             rank,
		UnlockedCount:    len(profile.Achievements.Unlocked),
		Displayed:        Displayed(profile),
		CompletedStories: make([]dto.CompletedStoryInfo, 0, len(profile.CompletedStories)),
		CreatedAt:        profile.CreatedAt,
	}
	if resp.Role == "" {
		resp.Role = shared.RoleUser
	}
	if resp.Theme == "" {
		resp.Theme = shared.ThemeLight
	}

	for id, c := range profile.CompletedStories {
		resp.CompletedStories = append(resp.CompletedStories, dto.CompletedStoryInfo{
			StoryID:     id,
			Title:       svc.storyTitle(id),
			Score:       c.Score,
			Perfect:     c.Perfect,
			CompletedAt: c.CompletedAt,
		})
	}
	sort.Slice(resp.CompletedStories, func(i, j int) bool {
		return resp.CompletedStories[i].CompletedAt > resp.CompletedStories[j].CompletedAt
	})
	return resp
}

// ==================== PROFILE ====================

func (svc *UserService) GetProfile(ctx context.Context, uid string) (*dto.UserProfileResponse, error) {
	profile, err := svc.load(ctx, uid)
	if err != nil {
		return nil, err
	}
	return svc.toProfileResponse(profile, svc.rank(ctx, uid)), nil
}

// GetPublicProfile is the view other users get: no email or preferences.
func (svc *UserService) GetPublicProfile(ctx context.Context, uid string) (*dto.PublicProfileResponse, error) {
	profile, err := svc.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	return &dto.PublicProfileResponse{
		ID:             uid,
		DisplayName:    profile.DisplayName,
		TotalScore:     profile.TotalScore,
		CompletedCount: profile.CompletedCount,
		Bio:            profile.Bio,
		Institution:    profile.Institution,
		Class:          profile.Class,
		Photo:          profile.Photo,
		Rank:           svc.rank(ctx, uid),
		Displayed:      Displayed(profile),
	}, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}

func (svc *UserService) UpdateProfile(ctx context.Context, uid string, req dto.UpdateProfileRequest) (*dto.UserProfileResponse, error) {
	before, err := svc.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	upd := repositories.ProfileUpdate{
		DisplayName: trimmed(req.DisplayName),
		Bio:         trimmed(req.Bio),
		Institution: trimmed(req.Institution),
		Class:       trimmed(req.Class),
		Photo:       req.Photo,
	}
	if upd.DisplayName != nil && len(*upd.DisplayName) < 2 {
		return nil, shared.NewBadRequestError(nil, "Display name must be at least 2 characters")
	}

	if err := svc.users.UpdateProfile(ctx, uid, upd); err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to update profile")
		return nil, shared.NewInternalError(err, "Failed to update profile")
	}

	if upd.DisplayName != nil && *upd.DisplayName != before.DisplayName && svc.identity != nil {
		if err := svc.identity.UpdateDisplayName(ctx, uid, *upd.DisplayName); err != nil {
			log.WithError(err).WithField("uid", uid).Warn("Failed to sync display name to identity provider")
		}
	}

	profile, err := svc.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	if profile.ProfileComplete() && !profile.HasUnlocked(achievement.ProfileComplete) && svc.achievements != nil {
		if _, err := svc.achievements.UnlockEvent(ctx, uid, achievement.ProfileComplete); err != nil {
			log.WithError(err).WithField("uid", uid).Error("Failed to unlock profile achievement")
		} else if profile, err = svc.load(ctx, uid); err != nil {
			return nil, err
		}
	}

	return svc.toProfileResponse(profile, svc.rank(ctx, uid)), nil
}

func (svc *UserService) UpdatePreferences(ctx context.Context, uid string, req dto.UpdatePreferencesRequest) (*model.Preferences, error) {
	profile, err := svc.load(ctx, uid)
	if err != nil {
		return nil, err
	}

	prefs := profile.Preferences
	if prefs.Theme == "" {
		prefs.Theme = shared.ThemeLight
	}
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	if req.Notifications != nil {
		prefs.Notifications = *req.Notifications
	}

	if err := svc.users.UpdatePreferences(ctx, uid, prefs); err != nil {
		return nil, shared.NewInternalError(err, "Failed to update preferences")
	}
	return &prefs, nil
}

func (svc *UserService) RegisterDeviceToken(ctx context.Context, uid, token string) error {
	err := svc.users.AddDeviceToken(ctx, uid, strings.TrimSpace(token))
	if errors.Is(err, repositories.ErrNotFound) {
		return shared.NewNotFoundError(err, "User not found")
	}
	if err != nil {
		return shared.NewInternalError(err, "Failed to register device")
	}
	return nil
}

func (svc *UserService) RemoveDeviceToken(ctx context.Context, uid, token string) error {
	if err := svc.users.RemoveDeviceToken(ctx, uid, strings.TrimSpace(token)); err != nil {
		return shared.NewInternalError(err, "Failed to remove device")
	}
	return nil
}

// WatchProfile streams the caller's profile as it changes. The channel
// closes when stop is called or ctx ends.
func (svc *UserService) WatchProfile(ctx context.Context, uid string) (<-chan *dto.UserProfileResponse, func(), error) {
	updates, stop, err := svc.users.Watch(ctx, uid)
	if err != nil {
		return nil, nil, shared.NewInternalError(err, "Failed to subscribe to profile")
	}

	out := make(chan *dto.UserProfileResponse, 1)
	go func() {
		defer close(out)
		for profile := range updates {
			p := profile
			select {
			case out <- svc.toProfileResponse(&p, svc.rank(ctx, uid)):
			case <-ctx.Done():
				stop()
				return
			}
		}
	}()
	return out, stop, nil
}
