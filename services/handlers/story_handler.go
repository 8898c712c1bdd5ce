package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/shared"
)

type StoryHandler struct {
	storySvc StoryServiceInterface
}

func NewStoryHandler(storySvc StoryServiceInterface) *StoryHandler {
	return &StoryHandler{storySvc: storySvc}
}

// @Summary List stories
// @Description Story catalogue with the caller's completion state
// @Tags stories
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.StoryListResponse}
// @Router /api/v1/stories [get]
func (h *StoryHandler) ListStories(c *fiber.Ctx) error {
	resp, err := h.storySvc.ListStories(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Get story
// @Tags stories
// @Param id path string true "Story ID"
// @Success 200 {object} shared.Response{data=dto.StorySummary}
// @Router /api/v1/stories/{id} [get]
func (h *StoryHandler) GetStory(c *fiber.Ctx) error {
	resp, err := h.storySvc.GetStory(c.Params("id"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Prepare story
// @Description Pre-start screen: synopsis and whether the story can still be played
// @Tags stories
// @Security Bearer
// @Param id path string true "Story ID"
// @Success 200 {object} shared.Response{data=dto.PrepareStoryResponse}
// @Router /api/v1/stories/{id}/prepare [get]
func (h *StoryHandler) Prepare(c *fiber.Ctx) error {
	resp, err := h.storySvc.Prepare(c.Context(), userID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Start story
// @Description Begin a play session. Requires consent; completed stories cannot be replayed.
// @Tags stories
// @Security Bearer
// @Param id path string true "Story ID"
// @Param startRequest body dto.StartStoryRequest true "Consent"
// @Success 201 {object} shared.Response{data=dto.PlaySessionResponse}
// @Router /api/v1/stories/{id}/start [post]
func (h *StoryHandler) Start(c *fiber.Ctx) error {
	var req dto.StartStoryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return shared.ResponseJSON(c, http.StatusBadRequest, "Invalid request body", nil)
		}
	}

	resp, err := h.storySvc.StartSession(c.Context(), userID(c), c.Params("id"), req.Consent)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusCreated, "Story started", resp)
}

// ==================== PLAY SESSIONS ====================

// @Summary Get play session
// @Tags play
// @Security Bearer
// @Param sid path string true "Session ID"
// @Success 200 {object} shared.Response{data=dto.PlaySessionResponse}
// @Router /api/v1/play/{sid} [get]
func (h *StoryHandler) GetSession(c *fiber.Ctx) error {
	resp, err := h.storySvc.GetSession(userID(c), c.Params("sid"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Advance dialogue
// @Description Finish the text reveal, or move to the next line or scene
// @Tags play
// @Security Bearer
// @Param sid path string true "Session ID"
// @Success 200 {object} shared.Response{data=dto.PlaySessionResponse}
// @Router /api/v1/play/{sid}/advance [post]
func (h *StoryHandler) Advance(c *fiber.Ctx) error {
	resp, err := h.storySvc.Advance(c.Context(), userID(c), c.Params("sid"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Choose option
// @Tags play
// @Security Bearer
// @Param sid path string true "Session ID"
// @Param chooseRequest body dto.ChooseRequest true "Option index"
// @Success 200 {object} shared.Response{data=dto.PlaySessionResponse}
// @Router /api/v1/play/{sid}/choose [post]
func (h *StoryHandler) Choose(c *fiber.Ctx) error {
	var req dto.ChooseRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	resp, err := h.storySvc.Choose(c.Context(), userID(c), c.Params("sid"), *req.Option)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Dismiss feedback
// @Tags play
// @Security Bearer
// @Param sid path string true "Session ID"
// @Success 200 {object} shared.Response{data=dto.PlaySessionResponse}
// @Router /api/v1/play/{sid}/continue [post]
func (h *StoryHandler) Continue(c *fiber.Ctx) error {
	resp, err := h.storySvc.Continue(c.Context(), userID(c), c.Params("sid"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Latest narration
// @Description Audio URL for the current line, or a fallback to the local synthesizer
// @Tags play
// @Security Bearer
// @Param sid path string true "Session ID"
// @Success 200 {object} shared.Response{data=dto.Narration}
// @Router /api/v1/play/{sid}/narration [get]
func (h *StoryHandler) Narration(c *fiber.Ctx) error {
	resp, err := h.storySvc.Narration(userID(c), c.Params("sid"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Close play session
// @Tags play
// @Security Bearer
// @Param sid path string true "Session ID"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/play/{sid} [delete]
func (h *StoryHandler) Close(c *fiber.Ctx) error {
	if err := h.storySvc.CloseSession(userID(c), c.Params("sid")); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", nil)
}

// @Summary Stream play session
// @Description Server-sent events: state, reveal and narration
// @Tags play
// @Security Bearer
// @Param sid path string true "Session ID"
// @Router /api/v1/play/{sid}/stream [get]
func (h *StoryHandler) Stream(c *fiber.Ctx) error {
	events, stop, err := h.storySvc.Subscribe(userID(c), c.Params("sid"))
	if err != nil {
		return err
	}
	return stream(c, events, stop, func(ev dto.PlayEvent) string { return ev.Type })
}
