package handler

import (
	"errors"
	"net/http"

	"github.com/prepwise/prepwise-api/internal/api/respond"
	"github.com/prepwise/prepwise-api/internal/device"
)

const (
	testTitle = "Test Notification"
	testBody  = "This is a test notification from PrepWise."
)

// TestNotificationResponse is returned by SendTestNotification.
type TestNotificationResponse struct {
	Message string `json:"message"`
	Device  string `json:"device"`
}

// RegisterDevice registers or refreshes the caller's push token.
// @Summary Register device
// @Tags devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param device body device.Registration true "Push token"
// @Success 201 {object} device.Device
// @Failure 400 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /api/v1/devices/register [post]
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var in device.Registration
	if !decodeJSON(w, r, &in, false) || !validateStruct(w, in) {
		return
	}

	d, err := h.devices.Register(r.Context(), actor(r).UserID, in)
	if errors.Is(err, device.ErrTokenTaken) {
		respond.WriteError(w, http.StatusConflict, "CONFLICT", "Push token is already registered to another user")
		return
	}
	if err != nil {
		h.internalError(w, r, "register device", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusCreated, d)
}

// ListDevices returns the caller's devices, most recently used first.
// @Summary List devices
// @Tags devices
// @Produce json
// @Security BearerAuth
// @Success 200 {array} device.Device
// @Router /api/v1/devices [get]
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.ListByOwner(r.Context(), actor(r).UserID)
	if err != nil {
		h.internalError(w, r, "list devices", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, devices)
}

// SendTestNotification pushes a test message to one of the caller's devices.
// @Summary Send test notification
// @Tags devices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Success 200 {object} TestNotificationResponse
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/devices/{id}/test [post]
func (h *Handler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Device")
	if !ok {
		return
	}
	d, err := h.devices.Get(r.Context(), actor(r).UserID, id)
	if err != nil {
		h.deviceError(w, r, "get device", err)
		return
	}

	res := h.push.SendTest(r.Context(), d.Token, testTitle, testBody)
	if len(res.Unregistered) > 0 {
		if _, err := h.devices.DeactivateTokens(r.Context(), res.Unregistered); err != nil {
			h.logger.Warn("deactivate unregistered device", "device_id", d.ID, "error", err)
		}
	}
	if err := res.Err(); err != nil {
		h.logger.Warn("test notification failed", "device_id", d.ID, "error", err)
		respond.WriteErrorDetail(w, http.StatusBadRequest, "NOTIFICATION_FAILED", "Failed to send test notification", err.Error())
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, TestNotificationResponse{
		Message: "Test notification sent",
		Device:  d.ID.String(),
	})
}

// TouchDevice refreshes last_used on one of the caller's devices.
// @Summary Refresh device last-used time
// @Tags devices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Success 200 {object} device.Device
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/devices/{id}/touch [post]
func (h *Handler) TouchDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Device")
	if !ok {
		return
	}
	d, err := h.devices.Touch(r.Context(), actor(r).UserID, id)
	if err != nil {
		h.deviceError(w, r, "touch device", err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, d)
}

// DeactivateDevice stops notifications to one of the caller's devices.
// @Summary Deactivate device
// @Tags devices
// @Security BearerAuth
// @Param id path string true "Device ID"
// @Success 204
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/devices/{id} [delete]
func (h *Handler) DeactivateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "Device")
	if !ok {
		return
	}
	if err := h.devices.Deactivate(r.Context(), actor(r).UserID, id); err != nil {
		h.deviceError(w, r, "deactivate device", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deviceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, device.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Device not found")
		return
	}
	h.internalError(w, r, msg, err)
}
