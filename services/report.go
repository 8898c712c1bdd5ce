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

const REPORT_SVC = "report_svc"

// ReportMailer tells authors their report was resolved.
type ReportMailer interface {
	SendReportResolvedEmail(email, displayName, subject, reportID string) error
}

type ReportService struct {
	appContext.DefaultService

	reports *repositories.ReportRepository
	users   *repositories.UserRepository
	mailer  ReportMailer
	audit   *repositories.AuditRepository
}

func NewReportService(reports *repositories.ReportRepository, users *repositories.UserRepository, mailer ReportMailer) *ReportService {
	return &ReportService{
		reports: reports,
		users:   users,
		mailer:  mailer,
		audit:   repositories.NewAuditRepository(nil),
	}
}

func (svc ReportService) Id() string {
	return REPORT_SVC
}

func (svc *ReportService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *ReportService) Start() error {
	storeSvc := svc.Service(STORE_SVC).(*StoreService)
	svc.reports = storeSvc.Reports()
	svc.users = storeSvc.Users()
	svc.mailer = svc.Service(EMAIL_SVC).(*EmailService)
	svc.audit = svc.Service(POSTGRES_SVC).(*PostgresService).Audit()
	return nil
}

func toReportResponse(r *model.Report, authorName string) dto.ReportResponse {
	return dto.ReportResponse{
		ID:          r.ID,
		AuthorID:    r.AuthorID,
		AuthorName:  authorName,
		Category:    r.Category,
		Subject:     r.Subject,
		Description: r.Description,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (svc *ReportService) Create(ctx context.Context, uid string, req dto.CreateReportRequest) (*dto.ReportResponse, error) {
	report, err := svc.reports.Create(ctx, &model.Report{
		AuthorID:    uid,
		Category:    req.Category,
		Subject:     strings.TrimSpace(req.Subject),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		log.WithError(err).WithField("uid", uid).Error("Failed to create report")
		return nil, shared.NewInternalError(err, "Failed to submit report")
	}

	resp := toReportResponse(report, "")
	return &resp, nil
}

func (svc *ReportService) ListMine(ctx context.Context, uid string) (*dto.ReportListResponse, error) {
	reports, err := svc.reports.ListByAuthor(ctx, uid)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load reports")
	}

	resp := &dto.ReportListResponse{Reports: make([]dto.ReportResponse, 0, len(reports))}
	for i := range reports {
		resp.Reports = append(resp.Reports, toReportResponse(&reports[i], ""))
	}
	resp.Total = len(resp.Reports)
	return resp, nil
}

// List is the admin queue, optionally filtered by status.
func (svc *ReportService) List(ctx context.Context, status string) (*dto.ReportListResponse, error) {
	status = strings.ToLower(status)
	if status != "" && !model.ValidReportStatus(status) {
		return nil, shared.NewBadRequestError(nil, "Status must be one of: pending process done")
	}

	reports, err := svc.reports.List(ctx, status)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to load reports")
	}

	names := map[string]string{}
	resp := &dto.ReportListResponse{Reports: make([]dto.ReportResponse, 0, len(reports))}
	for i := range reports {
		author := reports[i].AuthorID
		name, ok := names[author]
		if !ok {
			if profile, err := svc.users.Get(ctx, author); err == nil {
				name = profile.DisplayName
			}
			names[author] = name
		}
		resp.Reports = append(resp.Reports, toReportResponse(&reports[i], name))
	}
	resp.Total = len(resp.Reports)
	return resp, nil
}

// UpdateStatus moves a report forward. Resolving it emails the author.
func (svc *ReportService) UpdateStatus(ctx context.Context, actorID, id, status, clientIP string) (*dto.ReportResponse, error) {
	status = strings.ToLower(status)
	if !model.ValidReportStatus(status) {
		return nil, shared.NewBadRequestError(nil, "Status must be one of: pending process done")
	}

	report, err := svc.reports.UpdateStatus(ctx, id, status, actorID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return nil, shared.NewNotFoundError(err, "Report not found")
	case errors.Is(err, repositories.ErrInvalidTransition):
		return nil, shared.NewConflictError(err, "Report status can only move forward")
	case err != nil:
		return nil, shared.NewInternalError(err, "Failed to update report")
	}

	entry := model.AuditLog{UserID: report.AuthorID, ActorID: actorID, Action: model.AuditReportStatus, Target: id, IP: clientIP, Success: true, Details: status}
	if err := svc.audit.Create(ctx, &entry); err != nil {
		log.WithError(err).Error("Failed to write audit log")
	}

	var authorName string
	if profile, err := svc.users.Get(ctx, report.AuthorID); err == nil {
		authorName = profile.DisplayName
		if status == shared.ReportStatusDone && svc.mailer != nil {
			go func(email, name, subject, reportID string) {
				if err := svc.mailer.SendReportResolvedEmail(email, name, subject, reportID); err != nil {
					log.WithError(err).WithField("report", reportID).Warn("Failed to send report resolved email")
				}
			}(profile.Email, profile.DisplayName, report.Subject, report.ID)
		}
	}

	resp := toReportResponse(report, authorName)
	return &resp, nil
}

// Delete removes a resolved report.
func (svc *ReportService) Delete(ctx context.Context, actorID, id, clientIP string) error {
	report, err := svc.reports.Get(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return shared.NewNotFoundError(err, "Report not found")
	}
	if err != nil {
		return shared.NewInternalError(err, "Failed to load report")
	}
	if report.Status != shared.ReportStatusDone {
		return shared.NewConflictError(nil, "Only resolved reports can be deleted")
	}

	if err := svc.reports.Delete(ctx, id); err != nil {
		return shared.NewInternalError(err, "Failed to delete report")
	}

	entry := model.AuditLog{UserID: report.AuthorID, ActorID: actorID, Action: model.AuditReportDeleted, Target: id, IP: clientIP, Success: true}
	if err := svc.audit.Create(ctx, &entry); err != nil {
		log.WithError(err).Error("Failed to write audit log")
	}
	return nil
}
