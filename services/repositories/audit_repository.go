package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lac-hong-legacy/ecotale_api/model"
	"gorm.io/gorm"
)

// AuditRepository persists audit entries in Postgres. With no database it
// drops writes and lists nothing.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Enabled() bool {
	return r != nil && r.db != nil
}

func (r *AuditRepository) Create(ctx context.Context, entry *model.AuditLog) error {
	if !r.Enabled() {
		return nil
	}
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		entry.ID = id.String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

type AuditFilter struct {
	UserID string
	Action string
	Page   int
	Limit  int
}

func (r *AuditRepository) List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error) {
	if !r.Enabled() {
		return []model.AuditLog{}, 0, nil
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	query := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.AuditLog
	err := query.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// DeleteOlderThan trims entries past the retention window.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if !r.Enabled() {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.AuditLog{})
	return res.RowsAffected, res.Error
}
