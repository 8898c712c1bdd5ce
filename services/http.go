package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/lac-hong-legacy/ecotale_api/services/handlers"
	"github.com/lac-hong-legacy/ecotale_api/shared"
	log "github.com/sirupsen/logrus"
)

type HttpService struct {
	appContext.DefaultService

	authSvc        *AuthService
	storySvc       *StoryService
	userSvc        *UserService
	achievementSvc *AchievementService
	leaderboardSvc *LeaderboardService
	reportSvc      *ReportService
	systemSvc      *SystemService
	adminSvc       *AdminService
	contactSvc     *ContactService
	rateLimitSvc   *RateLimitService
	monitoringSvc  *MonitoringService

	port   int
	sentry bool
	app    *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *appContext.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		})
		if err != nil {
			log.WithError(err).Error("Sentry init failed")
		} else {
			svc.sentry = true
		}
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.storySvc = svc.Service(STORY_SVC).(*StoryService)
	svc.userSvc = svc.Service(USER_SVC).(*UserService)
	svc.achievementSvc = svc.Service(ACHIEVEMENT_SVC).(*AchievementService)
	svc.leaderboardSvc = svc.Service(LEADERBOARD_SVC).(*LeaderboardService)
	svc.reportSvc = svc.Service(REPORT_SVC).(*ReportService)
	svc.systemSvc = svc.Service(SYSTEM_SVC).(*SystemService)
	svc.adminSvc = svc.Service(ADMIN_SVC).(*AdminService)
	svc.contactSvc = svc.Service(CONTACT_SVC).(*ContactService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.monitoringSvc = svc.Service(MONITORING_SVC).(*MonitoringService)

	svc.app = svc.newApp()

	log.WithField("port", svc.port).Info("HTTP server starting")
	return svc.app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.ShutdownWithTimeout(10 * time.Second)
	}
	if svc.sentry {
		sentry.Flush(2 * time.Second)
	}
}

func (svc *HttpService) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "EcoTale API",
		BodyLimit:             2 * 1024 * 1024,
		DisableStartupMessage: true,
		JSONEncoder:           shared.JSONMarshal,
		JSONDecoder:           shared.JSONUnmarshal,
		ErrorHandler:          svc.errorHandler,
	})

	if svc.sentry {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}
	app.Use(recover.New())
	if os.Getenv("LOG_LEVEL") == "TRACE" {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	if svc.monitoringSvc != nil {
		app.Use(MonitoringMiddleware(svc.monitoringSvc))
	}

	svc.routes(app)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseJSON(c, http.StatusNotFound, "Not Found", nil)
	})

	return app
}

func (svc *HttpService) routes(app *fiber.App) {
	authHandler := handlers.NewAuthHandler(svc.authSvc)
	storyHandler := handlers.NewStoryHandler(svc.storySvc)
	userHandler := handlers.NewUserHandler(svc.userSvc)
	achievementHandler := handlers.NewAchievementHandler(svc.achievementSvc, InfoList)
	leaderboardHandler := handlers.NewLeaderboardHandler(svc.leaderboardSvc)
	reportHandler := handlers.NewReportHandler(svc.reportSvc)
	adminHandler := handlers.NewAdminHandler(svc.adminSvc, svc.systemSvc, svc.reportSvc)
	contactHandler := handlers.NewContactHandler(svc.contactSvc)

	rl := svc.rateLimitSvc
	required := svc.authSvc.RequiredAuth()

	//Validation endpoints
	app.Get("/ping", svc.ping)

	v1 := app.Group("/api/v1",
		svc.authSvc.OptionalAuth(),
		svc.systemSvc.MaintenanceGuard("/api/v1/auth/login", "/api/v1/system", "/api/v1/ping"),
		rl.IPRateLimit(),
	)

	v1.Get("/ping", svc.ping)
	v1.Get("/system/status", svc.systemStatus)

	auth := v1.Group("/auth")
	auth.Post("/register", rl.RateLimit(RateLimitRegister), authHandler.Register)
	auth.Post("/login", rl.RateLimit(RateLimitLogin), authHandler.Login)
	auth.Post("/forgot-password", rl.RateLimit(RateLimitForgotPassword), authHandler.ForgotPassword)
	auth.Post("/logout", required, authHandler.Logout)
	auth.Get("/me", required, authHandler.Me)

	stories := v1.Group("/stories", required)
	stories.Get("/", storyHandler.ListStories)
	stories.Get("/:id", storyHandler.GetStory)
	stories.Get("/:id/prepare", storyHandler.Prepare)
	stories.Post("/:id/start", storyHandler.Start)

	play := v1.Group("/play", required)
	play.Get("/:sid", storyHandler.GetSession)
	play.Delete("/:sid", storyHandler.Close)
	play.Post("/:sid/advance", storyHandler.Advance)
	play.Post("/:sid/choose", rl.UserBasedRateLimit(RateLimitStoryComplete), storyHandler.Choose)
	play.Post("/:sid/continue", storyHandler.Continue)
	play.Get("/:sid/narration", storyHandler.Narration)
	play.Get("/:sid/stream", storyHandler.Stream)

	profile := v1.Group("/profile", required)
	profile.Get("/", userHandler.GetProfile)
	profile.Put("/", rl.UserBasedRateLimit(RateLimitProfileUpdate), userHandler.UpdateProfile)
	profile.Put("/preferences", userHandler.UpdatePreferences)
	profile.Post("/device-token", userHandler.RegisterDeviceToken)
	profile.Delete("/device-token", userHandler.RemoveDeviceToken)
	profile.Get("/stream", userHandler.StreamProfile)

	v1.Get("/users/:id", required, userHandler.GetPublicProfile)
	v1.Get("/leaderboard", leaderboardHandler.GetLeaderboard)

	achievements := v1.Group("/achievements", required)
	achievements.Get("/", achievementHandler.List)
	achievements.Post("/check", achievementHandler.Check)
	achievements.Put("/displayed", achievementHandler.SetDisplayed)

	reports := v1.Group("/reports", required)
	reports.Post("/", rl.UserBasedRateLimit(RateLimitReport), reportHandler.Create)
	reports.Get("/mine", reportHandler.ListMine)

	v1.Post("/contact", rl.RateLimit(RateLimitContact), contactHandler.Submit)

	admin := v1.Group("/admin", required, svc.authSvc.RequireAdmin())
	admin.Get("/settings", adminHandler.GetSettings)
	admin.Put("/settings", adminHandler.UpdateSettings)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Put("/users/:userId", adminHandler.UpdateUser)
	admin.Delete("/users/:userId", adminHandler.DeleteUser)
	admin.Get("/stats", adminHandler.Stats)
	admin.Get("/audit-logs", adminHandler.AuditLogs)
	admin.Post("/leaderboard/rebuild", adminHandler.RebuildLeaderboard)
	admin.Get("/reports", adminHandler.ListReports)
	admin.Put("/reports/:id", adminHandler.UpdateReportStatus)
	admin.Delete("/reports/:id", adminHandler.DeleteReport)
}

func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")
	return shared.ResponseJSON(c, http.StatusOK, "Success", "pong")
}

func (svc *HttpService) systemStatus(c *fiber.Ctx) error {
	return shared.ResponseJSON(c, http.StatusOK, "Success", svc.systemSvc.Status(c.Context()))
}

// errorHandler renders every returned error in the response envelope.
func (svc *HttpService) errorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= http.StatusInternalServerError {
			log.WithError(err).WithFields(log.Fields{"method": c.Method(), "path": c.Path()}).Error("Request failed")
			if hub := sentryfiber.GetHubFromContext(c); hub != nil {
				hub.CaptureException(err)
			}
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).WithFields(log.Fields{"method": c.Method(), "path": c.Path()}).Error("Unhandled error")
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	return shared.ResponseJSON(c, http.StatusInternalServerError, "Internal Server Error", nil)
}
