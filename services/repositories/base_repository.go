package repositories

import (
	"context"
	"time"
)

// BaseRepository provides common store functionality
type BaseRepository struct {
	store Store
	now   func() time.Time
}

func NewBaseRepository(store Store) BaseRepository {
	return BaseRepository{store: store, now: time.Now}
}

// Store returns the underlying document store
func (r *BaseRepository) Store() Store {
	return r.store
}

// SetClock replaces the time source, used by tests.
func (r *BaseRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *BaseRepository) millis() int64 {
	return r.now().UnixMilli()
}

func (r *BaseRepository) mustExist(ctx context.Context, path string) error {
	var probe interface{}
	found, err := r.store.Read(ctx, path, &probe)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}
