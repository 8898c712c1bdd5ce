package repositories

import (
	"context"

	"github.com/lac-hong-legacy/ecotale_api/model"
)

const systemPath = "system"

type SystemRepository struct {
	BaseRepository
}

func NewSystemRepository(store Store) *SystemRepository {
	return &SystemRepository{
		BaseRepository: NewBaseRepository(store),
	}
}

// Get returns the settings, falling back to defaults for anything unset.
func (r *SystemRepository) Get(ctx context.Context) (model.SystemSettings, error) {
	settings := model.DefaultSystemSettings()
	if _, err := r.store.Read(ctx, systemPath, &settings); err != nil {
		return model.DefaultSystemSettings(), err
	}
	if settings.MaxUsers <= 0 {
		settings.MaxUsers = model.DefaultMaxUsers
	}
	return settings, nil
}

func (r *SystemRepository) Save(ctx context.Context, settings model.SystemSettings, updatedBy string) (model.SystemSettings, error) {
	settings.UpdatedAt = r.millis()
	settings.UpdatedBy = updatedBy
	if err := r.store.Create(ctx, systemPath, settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// Watch streams the settings as they change.
func (r *SystemRepository) Watch(ctx context.Context) (*Subscription, error) {
	return r.store.Subscribe(ctx, systemPath)
}

// DecodeSettings turns a subscription snapshot into settings with defaults applied.
func DecodeSettings(snap Snapshot) (model.SystemSettings, error) {
	settings := model.DefaultSystemSettings()
	if !snap.Exists {
		return settings, nil
	}
	if err := snap.Decode(&settings); err != nil {
		return model.DefaultSystemSettings(), err
	}
	if settings.MaxUsers <= 0 {
		settings.MaxUsers = model.DefaultMaxUsers
	}
	return settings, nil
}
