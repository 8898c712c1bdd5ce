package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/shared"
)

// bind parses and validates a request body. A false return means the
// response has already been written.
func bind[T dto.Validator](c *fiber.Ctx, req *T) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, shared.ResponseJSON(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := (*req).Validate(); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.CreateValidationErrorResponse(err))
	}
	return true, nil
}

func userID(c *fiber.Ctx) string {
	uid, _ := c.Locals(shared.UserID).(string)
	return uid
}

// claims rebuilds the verified token claims stored by the auth middleware.
func claims(c *fiber.Ctx) *dto.TokenClaims {
	tc := &dto.TokenClaims{}
	tc.UserID, _ = c.Locals(shared.UserID).(string)
	tc.Role, _ = c.Locals(shared.UserRole).(string)
	tc.TokenID, _ = c.Locals(shared.TokenID).(string)
	tc.ExpiresAt, _ = c.Locals(shared.TokenExp).(time.Time)
	return tc
}
