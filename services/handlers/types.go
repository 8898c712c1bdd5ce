package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
)

type AuthServiceInterface interface {
	Register(ctx context.Context, req dto.RegisterRequest, clientIP, userAgent string) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req dto.LoginRequest, clientIP, userAgent string) (*dto.LoginResponse, error)
	Logout(ctx context.Context, claims *dto.TokenClaims, clientIP, userAgent string) error
	ForgotPassword(ctx context.Context, email, clientIP string) error
	CurrentUser(ctx context.Context, uid string) (*dto.UserInfo, error)
}

type StoryServiceInterface interface {
	ListStories(ctx context.Context, uid string) (*dto.StoryListResponse, error)
	GetStory(id string) (*dto.StorySummary, error)
	Prepare(ctx context.Context, uid, storyID string) (*dto.PrepareStoryResponse, error)
	StartSession(ctx context.Context, uid, storyID string, consent bool) (*dto.PlaySessionResponse, error)
	Advance(ctx context.Context, uid, sid string) (*dto.PlaySessionResponse, error)
	Choose(ctx context.Context, uid, sid string, option int) (*dto.PlaySessionResponse, error)
	Continue(ctx context.Context, uid, sid string) (*dto.PlaySessionResponse, error)
	GetSession(uid, sid string) (*dto.PlaySessionResponse, error)
	Narration(uid, sid string) (*dto.Narration, error)
	CloseSession(uid, sid string) error
	Subscribe(uid, sid string) (<-chan dto.PlayEvent, func(), error)
}

type UserServiceInterface interface {
	GetProfile(ctx context.Context, uid string) (*dto.UserProfileResponse, error)
	GetPublicProfile(ctx context.Context, uid string) (*dto.PublicProfileResponse, error)
	UpdateProfile(ctx context.Context, uid string, req dto.UpdateProfileRequest) (*dto.UserProfileResponse, error)
	UpdatePreferences(ctx context.Context, uid string, req dto.UpdatePreferencesRequest) (*model.Preferences, error)
	RegisterDeviceToken(ctx context.Context, uid, token string) error
	RemoveDeviceToken(ctx context.Context, uid, token string) error
	WatchProfile(ctx context.Context, uid string) (<-chan *dto.UserProfileResponse, func(), error)
}

type AchievementServiceInterface interface {
	List(ctx context.Context, uid string) (*dto.AchievementListResponse, error)
	Check(ctx context.Context, uid string) ([]string, error)
	SetDisplayed(ctx context.Context, uid string, ids []string) error
}

type LeaderboardServiceInterface interface {
	Top(ctx context.Context, limit int, uid string) (*dto.LeaderboardResponse, error)
}

type ReportServiceInterface interface {
	Create(ctx context.Context, uid string, req dto.CreateReportRequest) (*dto.ReportResponse, error)
	ListMine(ctx context.Context, uid string) (*dto.ReportListResponse, error)
	List(ctx context.Context, status string) (*dto.ReportListResponse, error)
	UpdateStatus(ctx context.Context, actorID, id, status, clientIP string) (*dto.ReportResponse, error)
	Delete(ctx context.Context, actorID, id, clientIP string) error
}

type SystemServiceInterface interface {
	GetSettings(ctx context.Context) (*dto.SettingsResponse, error)
	UpdateSettings(ctx context.Context, actorID string, req dto.UpdateSettingsRequest, clientIP string) (*dto.SettingsResponse, error)
	Status(ctx context.Context) fiber.Map
}

type AdminServiceInterface interface {
	ListUsers(ctx context.Context, page, limit int, search string) (*dto.AdminUserListResponse, error)
	UpdateRole(ctx context.Context, actorID, uid, role, clientIP string) (*dto.AdminUserInfo, error)
	DeleteUser(ctx context.Context, actorID, uid, clientIP string) error
	Stats(ctx context.Context) (*dto.AdminStats, error)
	AuditLogs(ctx context.Context, filter repositories.AuditFilter) (*dto.AuditLogResponse, error)
	RebuildLeaderboard(ctx context.Context) (int, error)
}

type ContactServiceInterface interface {
	Submit(req dto.ContactRequest) error
}
