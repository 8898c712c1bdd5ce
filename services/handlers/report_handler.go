package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/shared"
)

type ReportHandler struct {
	reportSvc ReportServiceInterface
}

func NewReportHandler(reportSvc ReportServiceInterface) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// @Summary Submit report
// @Tags reports
// @Security Bearer
// @Param createReportRequest body dto.CreateReportRequest true "Report"
// @Success 201 {object} shared.Response{data=dto.ReportResponse}
// @Router /api/v1/reports [post]
func (h *ReportHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateReportRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	resp, err := h.reportSvc.Create(c.Context(), userID(c), req)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusCreated, "Report submitted", resp)
}

// @Summary My reports
// @Tags reports
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.ReportListResponse}
// @Router /api/v1/reports/mine [get]
func (h *ReportHandler) ListMine(c *fiber.Ctx) error {
	resp, err := h.reportSvc.ListMine(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}
