package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/lac-hong-legacy/ecotale_api/dto"
	"github.com/lac-hong-legacy/ecotale_api/shared"
)

type UserHandler struct {
	userSvc UserServiceInterface
}

func NewUserHandler(userSvc UserServiceInterface) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// @Summary Get own profile
// @Tags profile
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.UserProfileResponse}
// @Router /api/v1/profile [get]
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	resp, err := h.userSvc.GetProfile(c.Context(), userID(c))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Update own profile
// @Description Empty optional fields are cleared; photo is an inline image of at most 512KB
// @Tags profile
// @Security Bearer
// @Param updateProfileRequest body dto.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} shared.Response{data=dto.UserProfileResponse}
// @Router /api/v1/profile [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	resp, err := h.userSvc.UpdateProfile(c.Context(), userID(c), req)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Profile updated successfully", resp)
}

// @Summary Update preferences
// @Tags profile
// @Security Bearer
// @Param updatePreferencesRequest body dto.UpdatePreferencesRequest true "Theme and notifications"
// @Success 200 {object} shared.Response{data=model.Preferences}
// @Router /api/v1/profile/preferences [put]
func (h *UserHandler) UpdatePreferences(c *fiber.Ctx) error {
	var req dto.UpdatePreferencesRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	resp, err := h.userSvc.UpdatePreferences(c.Context(), userID(c), req)
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Preferences updated", resp)
}

// @Summary Register push device
// @Tags profile
// @Security Bearer
// @Param deviceTokenRequest body dto.DeviceTokenRequest true "FCM token"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/profile/device-token [post]
func (h *UserHandler) RegisterDeviceToken(c *fiber.Ctx) error {
	var req dto.DeviceTokenRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if err := h.userSvc.RegisterDeviceToken(c.Context(), userID(c), req.Token); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Device registered", nil)
}

// @Summary Remove push device
// @Tags profile
// @Security Bearer
// @Param deviceTokenRequest body dto.DeviceTokenRequest true "FCM token"
// @Success 200 {object} shared.Response{data=nil}
// @Router /api/v1/profile/device-token [delete]
func (h *UserHandler) RemoveDeviceToken(c *fiber.Ctx) error {
	var req dto.DeviceTokenRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	if err := h.userSvc.RemoveDeviceToken(c.Context(), userID(c), req.Token); err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Device removed", nil)
}

// @Summary Stream own profile
// @Description Server-sent events with the profile after every change
// @Tags profile
// @Security Bearer
// @Router /api/v1/profile/stream [get]
func (h *UserHandler) StreamProfile(c *fiber.Ctx) error {
	ctx, cancel := context.WithCancel(context.Background())

	updates, stop, err := h.userSvc.WatchProfile(ctx, userID(c))
	if err != nil {
		cancel()
		return err
	}

	return stream(c, updates, func() {
		stop()
		cancel()
	}, func(*dto.UserProfileResponse) string { return "profile" })
}

// @Summary Public profile
// @Tags users
// @Param id path string true "User ID"
// @Success 200 {object} shared.Response{data=dto.PublicProfileResponse}
// @Router /api/v1/users/{id} [get]
func (h *UserHandler) GetPublicProfile(c *fiber.Ctx) error {
	resp, err := h.userSvc.GetPublicProfile(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}
