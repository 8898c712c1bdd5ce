package repositories

import (
	"context"
	"errors"
	"sort"

	"github.com/lac-hong-legacy/ecotale_api/model"
)

const reportsPath = "reports"

var ErrInvalidTransition = errors.New("report status cannot move backwards")

type ReportRepository struct {
	BaseRepository
}

func NewReportRepository(store Store) *ReportRepository {
	return &ReportRepository{
		BaseRepository: NewBaseRepository(store),
	}
}

// Create stores a new pending report under a generated key.
func (r *ReportRepository) Create(ctx context.Context, report *model.Report) (*model.Report, error) {
	report.Status = "pending"
	report.CreatedAt = r.millis()
	report.UpdatedAt = 0
	report.HandledBy = ""

	id, err := r.store.Push(ctx, reportsPath, report)
	if err != nil {
		return nil, err
	}
	report.ID = id
	if err := r.store.Update(ctx, Join(reportsPath, id), map[string]interface{}{"id": id}); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *ReportRepository) Get(ctx context.Context, id string) (*model.Report, error) {
	var report model.Report
	found, err := r.store.Read(ctx, Join(reportsPath, id), &report)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	report.ID = id
	return &report, nil
}

// List returns reports newest first, optionally filtered by status.
func (r *ReportRepository) List(ctx context.Context, status string) ([]model.Report, error) {
	return r.list(ctx, func(rep *model.Report) bool {
		return status == "" || rep.Status == status
	})
}

func (r *ReportRepository) ListByAuthor(ctx context.Context, authorID string) ([]model.Report, error) {
	return r.list(ctx, func(rep *model.Report) bool {
		return rep.AuthorID == authorID
	})
}

func (r *ReportRepository) list(ctx context.Context, keep func(*model.Report) bool) ([]model.Report, error) {
	var all map[string]model.Report
	if _, err := r.store.Read(ctx, reportsPath, &all); err != nil {
		return nil, err
	}

	reports := make([]model.Report, 0, len(all))
	for id, rep := range all {
		rep.ID = id
		if keep(&rep) {
			reports = append(reports, rep)
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].CreatedAt != reports[j].CreatedAt {
			return reports[i].CreatedAt > reports[j].CreatedAt
		}
		return reports[i].ID > reports[j].ID
	})
	return reports, nil
}

// UpdateStatus moves a report forward through pending, process and done.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id, status, handledBy string) (*model.Report, error) {
	report, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(report.Status, status) {
		return nil, ErrInvalidTransition
	}

	report.Status = status
	report.UpdatedAt = r.millis()
	report.HandledBy = handledBy

	err = r.store.Update(ctx, Join(reportsPath, id), map[string]interface{}{
		"status":    report.Status,
		"updatedAt": report.UpdatedAt,
		"handledBy": report.HandledBy,
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	if err := r.mustExist(ctx, Join(reportsPath, id)); err != nil {
		return err
	}
	return r.store.Delete(ctx, Join(reportsPath, id))
}

// CountByStatus backs the admin dashboard.
func (r *ReportRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	reports, err := r.List(ctx, "")
	if err != nil {
		return nil, err
	}
	counts := map[string]int{"pending": 0, "process": 0, "done": 0}
	for _, rep := range reports {
		counts[rep.Status]++
	}
	return counts, nil
}
