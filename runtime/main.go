package main

import (
	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/lac-hong-legacy/ecotale_api/services"
	"github.com/rs/zerolog/log"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded, using process environment")
	}

	ctx, err := context.NewCtx(
		&services.MonitoringService{},
		&services.RedisService{},
		&services.FirebaseService{},
		&services.PostgresService{},
		&services.MinIOService{},
		&services.StoreService{},

		&services.JWTService{},
		&services.EmailService{},
		&services.RateLimitService{},
		&services.GeolocationService{},
		&services.NotificationService{},

		&services.LeaderboardService{},
		&services.AchievementService{},
		&services.NarrationService{},
		&services.StoryService{},

		&services.AuthService{},
		&services.UserService{},
		&services.SystemService{},
		&services.ReportService{},
		&services.AdminService{},
		&services.ContactService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure services")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Service context stopped")
		return
	}
}
