package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/shared"
)

type AchievementHandler struct {
	achievementSvc AchievementServiceInterface
	infoList       func(ids []string) []dto.AchievementInfo
}

func NewAchievementHandler(achievementSvc AchievementServiceInterface, infoList func(ids []string) []dto.AchievementInfo) *AchievementHandler {
	return &AchievementHandler{achievementSvc: achievementSvc, infoList: infoList}
}

// @Summary List achievements
// @Description Every achievement with the caller's unlock state
// @Tags achievements
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.AchievementListResponse}
// @Router /api/v1/achievements [get]
func (h *AchievementHandler) List(c *fiber.Ctx) error {
	resp, err := h.achievementSvc.List(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Check achievements
// @Description Evaluate progress and unlock newly earned achievements
// @Tags achievements
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.AchievementCheckResponse}
// @Router /api/v1/achievements/check [post]
func (h *AchievementHandler) Check(c *fiber.Ctx) error {
	ids, err := h.achievementSvc.Check(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", dto.AchievementCheckResponse{Unlocked: h.infoList(ids)})
}

// @Summary Set displayed achievements
// @Description Up to three unlocked achievements shown on the profile
// @Tags achievements
// @Security Bearer
// @Param setDisplayedRequest body dto.SetDisplayedRequest true "Achievement IDs"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/achievements/displayed [put]
func (h *AchievementHandler) SetDisplayed(c *fiber.Ctx) error {
	var req dto.SetDisplayedRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.ResponseJSON(c, http.StatusBadRequest, "Invalid request body", nil)
	}

	if err := h.achievementSvc.SetDisplayed(c.Context(), userID(c), req.IDs); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Displayed achievements updated", nil)
}
