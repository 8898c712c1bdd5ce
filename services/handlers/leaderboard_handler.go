package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/shared"
)

type LeaderboardHandler struct {
	leaderboardSvc LeaderboardServiceInterface
}

func NewLeaderboardHandler(leaderboardSvc LeaderboardServiceInterface) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardSvc: leaderboardSvc}
}

// @Summary Leaderboard
// @Description Top players by total score, plus the caller's own entry
// @Tags leaderboard
// @Param limit query int false "Number of entries (default 50, max 100)"
// @Success 200 {object} shared.Response{data=dto.LeaderboardResponse}
// @Router /api/v1/leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	resp, err := h.leaderboardSvc.Top(c.Context(), limit, userID(c))
	if err != nil {
		return shared.NewInternalError(err, "Failed to load leaderboard")
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}
