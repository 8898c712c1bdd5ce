package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/services/repositories"
	"github.com/lac-hong-legacy/ecotale_api/shared"
)

type AdminHandler struct {
	adminSvc  AdminServiceInterface
	systemSvc SystemServiceInterface
	reportSvc ReportServiceInterface
}

func NewAdminHandler(adminSvc AdminServiceInterface, systemSvc SystemServiceInterface, reportSvc ReportServiceInterface) *AdminHandler {
	return &AdminHandler{
		adminSvc:  adminSvc,
		systemSvc: systemSvc,
		reportSvc: reportSvc,
	}
}

// @Summary Get system settings (Admin)
// @Tags admin
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.SettingsResponse}
// @Router /api/v1/admin/settings [get]
func (h *AdminHandler) GetSettings(c *fiber.Ctx) error {
	resp, err := h.systemSvc.GetSettings(c.Context())
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Update system settings (Admin)
// @Description Set the user limit and toggle maintenance mode
// @Tags admin
// @Security Bearer
// @Param updateSettingsRequest body dto.UpdateSettingsRequest true "Settings"
// @Success 200 {object} shared.Response{data=dto.SettingsResponse}
// @Router /api/v1/admin/settings [put]
func (h *AdminHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	resp, err := h.systemSvc.UpdateSettings(c.Context(), userID(c), req, c.IP())
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Settings updated", resp)
}

// @Summary Get all users (Admin)
// @Tags admin
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param search query string false "Name or email"
// @Success 200 {object} shared.Response{data=dto.AdminUserListResponse}
// @Router /api/v1/admin/users [get]
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	resp, err := h.adminSvc.ListUsers(c.Context(), page, limit, c.Query("search"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, fiber.StatusOK, "Users retrieved successfully", resp)
}

// @Summary Update user role (Admin)
// @Tags admin
// @Security Bearer
// @Param userId path string true "User ID"
// @Param updateRequest body dto.AdminUpdateUserRequest true "Role"
// @Success 200 {object} shared.Response{data=dto.AdminUserInfo}
// @Router /api/v1/admin/users/{userId} [put]
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	var req dto.AdminUpdateUserRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	resp, err := h.adminSvc.UpdateRole(c.Context(), userID(c), c.Params("userId"), req.Role, c.IP())
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "User updated successfully", resp)
}

// @Summary Delete user (Admin)
// @Tags admin
// @Security Bearer
// @Param userId path string true "User ID"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/admin/users/{userId} [delete]
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.adminSvc.DeleteUser(c.Context(), userID(c), c.Params("userId"), c.IP()); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "User deleted successfully", nil)
}

// @Summary Dashboard statistics (Admin)
// @Tags admin
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.AdminStats}
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	resp, err := h.adminSvc.Stats(c.Context())
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Audit log (Admin)
// @Tags admin
// @Security Bearer
// @Param user_id query string false "Filter by user"
// @Param action query string false "Filter by action"
// @Success 200 {object} shared.Response{data=dto.AuditLogResponse}
// @Router /api/v1/admin/audit-logs [get]
func (h *AdminHandler) AuditLogs(c *fiber.Ctx) error {
	resp, err := h.adminSvc.AuditLogs(c.Context(), repositories.AuditFilter{
		UserID: c.Query("user_id"),
		Action: c.Query("action"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	})
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Rebuild leaderboard (Admin)
// @Tags admin
// @Security Bearer
// @Success 200 {object} shared.Response{data=object}
// @Router /api/v1/admin/leaderboard/rebuild [post]
func (h *AdminHandler) RebuildLeaderboard(c *fiber.Ctx) error {
	n, err := h.adminSvc.RebuildLeaderboard(c.Context())
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Leaderboard rebuilt", fiber.Map{"ranked_users": n})
}

// ==================== REPORTS ====================

// @Summary List reports (Admin)
// @Tags admin
// @Security Bearer
// @Param status query string false "pending, process or done"
// @Success 200 {object} shared.Response{data=dto.ReportListResponse}
// @Router /api/v1/admin/reports [get]
func (h *AdminHandler) ListReports(c *fiber.Ctx) error {
	resp, err := h.reportSvc.List(c.Context(), c.Query("status"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Update report status (Admin)
// @Tags admin
// @Security Bearer
// @Param id path string true "Report ID"
// @Param updateReportStatusRequest body dto.UpdateReportStatusRequest true "Status"
// @Success 200 {object} shared.Response{data=dto.ReportResponse}
// @Router /api/v1/admin/reports/{id} [put]
func (h *AdminHandler) UpdateReportStatus(c *fiber.Ctx) error {
	var req dto.UpdateReportStatusRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	resp, err := h.reportSvc.UpdateStatus(c.Context(), userID(c), c.Params("id"), req.Status, c.IP())
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Report updated", resp)
}

// @Summary Delete report (Admin)
// @Description Only resolved reports can be deleted
// @Tags admin
// @Security Bearer
// @Param id path string true "Report ID"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/admin/reports/{id} [delete]
func (h *AdminHandler) DeleteReport(c *fiber.Ctx) error {
	if err := h.reportSvc.Delete(c.Context(), userID(c), c.Params("id"), c.IP()); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Report deleted", nil)
}
