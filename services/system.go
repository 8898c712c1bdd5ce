package services

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	log "github.com/sirupsen/logrus"
)

const SYSTEM_SVC = "system_svc"

const defaultMaintenanceMessage = "EcoTale is under maintenance. Please come back later."

// SystemService caches the system singleton and follows its changes.
type SystemService struct {
	appContext.DefaultService

	repo  *repositories.SystemRepository
	users *repositories.UserRepository
	audit *repositories.AuditRepository

	current atomic.Pointer[model.SystemSettings]
	sub     *repositories.Subscription
	cancel  context.CancelFunc
}

func NewSystemService(repo *repositories.SystemRepository, users *repositories.UserRepository) *SystemService {
	svc := &SystemService{repo: repo, users: users, audit: repositories.NewAuditRepository(nil)}
	defaults := model.DefaultSystemSettings()
	svc.current.Store(&defaults)
	return svc
}

func (svc SystemService) Id() string {
	return SYSTEM_SVC
}

func (svc *SystemService) Configure(ctx *appContext.Context) error {
	defaults := model.DefaultSystemSettings()
	svc.current.Store(&defaults)
	return svc.DefaultService.Configure(ctx)
}

func (svc *SystemService) Start() error {
	storeSvc := svc.Service(STORE_SVC).(*StoreService)
	svc.repo = storeSvc.System()
	svc.users = storeSvc.Users()
	svc.audit = svc.Service(POSTGRES_SVC).(*PostgresService).Audit()

	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	return svc.Follow(ctx)
}

func (svc *SystemService) Shutdown() {
	if svc.cancel != nil {
		svc.cancel()
	}
	if svc.sub != nil {
		svc.sub.Close()
	}
}

// Follow subscribes to the settings document and keeps the cache current.
func (svc *SystemService) Follow(ctx context.Context) error {
	sub, err := svc.repo.Watch(ctx)
	if err != nil {
		return err
	}
	svc.sub = sub

	go func() {
		for snap := range sub.C {
			settings, err := repositories.DecodeSettings(snap)
			if err != nil {
				log.WithError(err).Warn("Ignoring malformed system settings")
				continue
			}
			prev := svc.current.Swap(&settings)
			if prev == nil || prev.Maintenance != settings.Maintenance {
				log.WithField("maintenance", settings.Maintenance).Info("System maintenance mode changed")
			}
		}
	}()
	return nil
}

func (svc *SystemService) Settings() model.SystemSettings {
	if s := svc.current.Load(); s != nil {
		return *s
	}
	return model.DefaultSystemSettings()
}

func (svc *SystemService) GetSettings(ctx context.Context) (*dto.SettingsResponse, error) {
	settings, err := svc.repo.Get(ctx)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load system settings")
	}
	count, err := svc.users.Count(ctx)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to count users")
	}
	return &dto.SettingsResponse{
		MaxUsers:    settings.MaxUsers,
		Maintenance: settings.Maintenance,
		Message:     settings.Message,
		UserCount:   count,
	}, nil
}

func (svc *SystemService) UpdateSettings(ctx context.Context, actorID string, req dto.UpdateSettingsRequest, clientIP string) (*dto.SettingsResponse, error) {
	settings, err := svc.repo.Get(ctx)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load system settings")
	}

	if req.MaxUsers != nil {
		settings.MaxUsers = *req.MaxUsers
	}
	if req.Maintenance != nil {
		settings.Maintenance = *req.Maintenance
	}
	if req.Message != nil {
		settings.Message = strings.TrimSpace(*req.Message)
	}

	saved, err := svc.repo.Save(ctx, settings, actorID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to save system settings")
	}
	svc.current.Store(&saved)

	entry := model.AuditLog{UserID: actorID, ActorID: actorID, Action: model.AuditSettingsUpdate, Target: "system", IP: clientIP, Success: true}
	if err := svc.audit.Create(ctx, &entry); err != nil {
		log.WithError(err).Error("Failed to write audit log")
	}

	return svc.GetSettings(ctx)
}

// Status is the public view used by clients to show the maintenance banner.
func (svc *SystemService) Status(ctx context.Context) fiber.Map {
	settings := svc.Settings()
	open := !settings.Maintenance
	if open {
		if count, err := svc.users.Count(ctx); err == nil {
			open = count < settings.MaxUsers
		}
	}
	return fiber.Map{
		"maintenance":       settings.Maintenance,
		"message":           settings.Message,
		"registration_open": open,
	}
}

// MaintenanceGuard rejects non-admin calls while maintenance mode is on.
// Login stays open so admins can sign in.
func (svc *SystemService) MaintenanceGuard(exempt ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		settings := svc.Settings()
		if !settings.Maintenance {
			return c.Next()
		}
		if role, _ := c.Locals(shared.UserRole).(string); role == shared.RoleAdmin {
			return c.Next()
		}
		for _, prefix := range exempt {
			if strings.HasPrefix(c.Path(), prefix) {
				return c.Next()
			}
		}

		msg := settings.Message
		if msg == "" {
			msg = defaultMaintenanceMessage
		}
		return shared.ResponseJSON(c, http.StatusServiceUnavailable, msg, fiber.Map{"maintenance": true})
	}
}
