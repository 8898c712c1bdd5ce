package services

import (
	"context"
	"errors"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	log "github.com/sirupsen/logrus"
)

const ADMIN_SVC = "admin_svc"

// LeaderboardAdmin is the part of the leaderboard the admin console drives.
type LeaderboardAdmin interface {
	Remove(ctx context.Context, uid string) error
	Rebuild(ctx context.Context) (int, error)
}

// AdminService backs the central admin console: users, stats and audit history.
type AdminService struct {
	appContext.DefaultService

	users    *repositories.UserRepository
	reports  *repositories.ReportRepository
	system   *SystemService
	board    LeaderboardAdmin
	identity IdentityProvider
	audit    *repositories.AuditRepository
}

func NewAdminService(store *StoreService, system *SystemService, board LeaderboardAdmin, identity IdentityProvider) *AdminService {
	return &AdminService{
		users:    store.Users(),
		reports:  store.Reports(),
		system:   system,
		board:    board,
		identity: identity,
		audit:    repositories.NewAuditRepository(nil),
	}
}

func (svc AdminService) Id() string {
	return ADMIN_SVC
}

func (svc *AdminService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *AdminService) Start() error {
	storeSvc := svc.Service(STORE_SVC).(*StoreService)
	svc.users = storeSvc.Users()
	svc.reports = storeSvc.Reports()
	svc.system = svc.Service(SYSTEM_SVC).(*SystemService)
	svc.board = svc.Service(LEADERBOARD_SVC).(*LeaderboardService)
	svc.identity = svc.Service(AUTH_SVC).(*AuthService).Identity()
	svc.audit = svc.Service(POSTGRES_SVC).(*PostgresService).Audit()
	return nil
}

func (svc *AdminService) record(ctx context.Context, entry model.AuditLog) {
	if err := svc.audit.Create(ctx, &entry); err != nil {
		log.WithError(err).WithField("action", entry.Action).Error("Failed to write audit log")
	}
}

func toAdminUserInfo(p *model.UserProfile) dto.AdminUserInfo {
	role := p.Role
	if role == "" {
		role = shared.RoleUser
	}
	return dto.AdminUserInfo{
		ID:             p.ID,
		DisplayName:    p.DisplayName,
		Email:          p.Email,
		Role:           role,
		TotalScore:     p.TotalScore,
		CompletedCount: p.CompletedCount,
		UnlockedCount:  len(p.Achievements.Unlocked),
		CreatedAt:      p.CreatedAt,
	}
}

func (svc *AdminService) ListUsers(ctx context.Context, page, limit int, search string) (*dto.AdminUserListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	all, err := svc.users.List(ctx)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load users")
	}

	search = strings.ToLower(strings.TrimSpace(search))
	matched := make([]dto.AdminUserInfo, 0, len(all))
	for i := range all {
		p := &all[i]
		if search != "" &&
			!strings.Contains(strings.ToLower(p.DisplayName), search) &&
			!strings.Contains(strings.ToLower(p.Email), search) {
			continue
		}
		matched = append(matched, toAdminUserInfo(p))
	}

	resp := &dto.AdminUserListResponse{
		Users: []dto.AdminUserInfo{},
		Total: len(matched),
		Page:  page,
		Limit: limit,
	}
	start := (page - 1) * limit
	if start < len(matched) {
		end := start + limit
		if end > len(matched) {
			end = len(matched)
		}
		resp.Users = matched[start:end]
	}
	return resp, nil
}

func (svc *AdminService) UpdateRole(ctx context.Context, actorID, uid, role, clientIP string) (*dto.AdminUserInfo, error) {
	if actorID == uid && role != shared.RoleAdmin {
		return nil, shared.NewBadRequestError(nil, "You cannot remove your own admin role")
	}

	err := svc.users.SetRole(ctx, uid, role)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, shared.NewNotFoundError(err, "User not found")
	}
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to update role")
	}

	svc.record(ctx, model.AuditLog{UserID: uid, ActorID: actorID, Action: model.AuditRoleChanged, Target: uid, IP: clientIP, Success: true, Details: role})

	profile, err := svc.users.Get(ctx, uid)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load user")
	}
	info := toAdminUserInfo(profile)
	return &info, nil
}

// DeleteUser removes the profile, the credentials and the leaderboard entry.
func (svc *AdminService) DeleteUser(ctx context.Context, actorID, uid, clientIP string) error {
	if actorID == uid {
		return shared.NewBadRequestError(nil, "You cannot delete your own account here")
	}

	if _, err := svc.users.Get(ctx, uid); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return shared.NewNotFoundError(err, "User not found")
		}
		return shared.NewInternalError(err, "Failed to load user")
	}

	if svc.identity != nil {
		if err := svc.identity.Delete(ctx, uid); err != nil && IdentityCode(err) != IdentityUserNotFound {
			return shared.NewInternalError(err, "Failed to delete account")
		}
	}
	if err := svc.users.Delete(ctx, uid); err != nil {
		return shared.NewInternalError(err, "Failed to delete user profile")
	}
	if err := svc.board.Remove(ctx, uid); err != nil {
		log.WithError(err).WithField("uid", uid).Warn("Failed to remove user from leaderboard")
	}

	svc.record(ctx, model.AuditLog{UserID: uid, ActorID: actorID, Action: model.AuditUserDeleted, Target: uid, IP: clientIP, Success: true})
	return nil
}

func (svc *AdminService) Stats(ctx context.Context) (*dto.AdminStats, error) {
	users, err := svc.users.List(ctx)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load users")
	}
	byStatus, err := svc.reports.CountByStatus(ctx)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load reports")
	}

	stats := &dto.AdminStats{
		Users:            len(users),
		ReportsByStatus:  byStatus,
		StoryCompletions: map[string]int{},
		Maintenance:      svc.system.Settings().Maintenance,
	}
	for i := range users {
		if users[i].IsAdmin() {
			stats.Admins++
		}
		stats.Completions += users[i].CompletedCount
		stats.TotalScore += users[i].TotalScore
		for storyID := range users[i].CompletedStories {
			stats.StoryCompletions[storyID]++
		}
	}
	return stats, nil
}

func (svc *AdminService) AuditLogs(ctx context.Context, filter repositories.AuditFilter) (*dto.AuditLogResponse, error) {
	logs, total, err := svc.audit.List(ctx, filter)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load audit logs")
	}

	resp := &dto.AuditLogResponse{
		Logs:  make([]dto.AuditLogEntry, 0, len(logs)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for _, l := range logs {
		resp.Logs = append(resp.Logs, dto.AuditLogEntry{
			ID:        l.ID,
			UserID:    l.UserID,
			ActorID:   l.ActorID,
			Action:    l.Action,
			Target:    l.Target,
			IP:        l.IP,
			Location:  l.Location,
			Success:   l.Success,
			Details:   l.Details,
			CreatedAt: l.CreatedAt.UnixMilli(),
		})
	}
	return resp, nil
}

func (svc *AdminService) RebuildLeaderboard(ctx context.Context) (int, error) {
	n, err := svc.board.Rebuild(ctx)
	if err != nil {
		return 0, shared.NewInternalError(err, "Failed to rebuild leaderboard")
	}
	log.WithField("users", n).Info("Leaderboard rebuilt")
	return n, nil
}
