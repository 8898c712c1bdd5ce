package seeders

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/lac-hong-legacy/ecotale_api/content"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	log "github.com/sirupsen/logrus"
)

const seedActor = "seed"

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	users  *repositories.UserRepository
	system *repositories.SystemRepository
}

// NewMainSeeder creates a new main seeder
func NewMainSeeder(store repositories.Store) *MainSeeder {
	return &MainSeeder{
		users:  repositories.NewUserRepository(store),
		system: repositories.NewSystemRepository(store),
	}
}

// SettingsOptions overrides the stored settings; nil fields keep their value.
type SettingsOptions struct {
	MaxUsers    *int
	Maintenance *bool
	Message     *string
}

// SeedSettings writes the system document, filling defaults for anything unset.
func (s *MainSeeder) SeedSettings(ctx context.Context, opts SettingsOptions) (model.SystemSettings, error) {
	settings, err := s.system.Get(ctx)
	if err != nil {
		return settings, err
	}

	if opts.MaxUsers != nil {
		if *opts.MaxUsers <= 0 {
			return settings, fmt.Errorf("max users must be positive, got %d", *opts.MaxUsers)
		}
		settings.MaxUsers = *opts.MaxUsers
	}
	if opts.Maintenance != nil {
		settings.Maintenance = *opts.Maintenance
	}
	if opts.Message != nil {
		settings.Message = *opts.Message
	}

	saved, err := s.system.Save(ctx, settings, seedActor)
	if err != nil {
		return settings, err
	}
	log.WithFields(log.Fields{
		"max_users":   saved.MaxUsers,
		"maintenance": saved.Maintenance,
	}).Info("System settings seeded")
	return saved, nil
}

// PromoteAdmin grants the admin role to an existing profile.
func (s *MainSeeder) PromoteAdmin(ctx context.Context, uid string) error {
	if err := s.users.SetRole(ctx, uid, "admin"); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("no profile for user %s; the user must sign up first", uid)
		}
		return err
	}
	log.WithField("uid", uid).Info("User promoted to admin")
	return nil
}

// StorySummary describes one validated story.
type StorySummary struct {
	ID       string
	Title    string
	Scenes   int
	MaxScore int
}

// ValidateContent parses and validates story scripts. With a nil fsys the
// embedded stories are checked.
func ValidateContent(fsys fs.FS, dir string) ([]StorySummary, error) {
	var (
		catalog *content.Catalog
		err     error
	)
	if fsys == nil {
		catalog, err = content.Load()
	} else {
		catalog, err = content.LoadFS(fsys, dir)
	}
	if err != nil {
		return nil, err
	}

	summaries := make([]StorySummary, 0, catalog.Len())
	for _, story := range catalog.List() {
		summaries = append(summaries, StorySummary{
			ID:       story.ID,
			Title:    story.Title,
			Scenes:   len(story.Scenes),
			MaxScore: story.MaxScore(),
		})
	}
	return summaries, nil
}
