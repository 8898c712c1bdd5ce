package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/shared"
)

type ContactHandler struct {
	contactSvc ContactServiceInterface
}

func NewContactHandler(contactSvc ContactServiceInterface) *ContactHandler {
	return &ContactHandler{contactSvc: contactSvc}
}

// @Summary Contact form
// @Tags contact
// @Param contactRequest body dto.ContactRequest true "Message"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/contact [post]
func (h *ContactHandler) Submit(c *fiber.Ctx) error {
	var req dto.ContactRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if err := h.contactSvc.Submit(req); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Thanks! Your message has been sent.", nil)
}
