package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skycastd/skycast/internal/auth"
	"github.com/skycastd/skycast/internal/model"
	"github.com/skycastd/skycast/internal/server/middleware"
	"github.com/skycastd/skycast/internal/store"
)

// DeviceHandler serves device CRUD and the display document that the wall
// units poll. Every route below List/Create performs an ownership check on
// the resolved principal before touching the resource.
type DeviceHandler struct {
	store  *store.Store
	logger *slog.Logger
}

// NewDeviceHandler creates a DeviceHandler.
func NewDeviceHandler(st *store.Store, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{store: st, logger: logger}
}

type devicesResponse struct {
	Success bool           `json:"success"`
	Devices []model.Device `json:"devices"`
}

type deviceResponse struct {
	Success bool         `json:"success"`
	Device  model.Device `json:"device"`
}

// List returns the principal's own devices; admins see the whole fleet.
// GET /api/devices
func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	var (
		devices []model.Device
		err     error
	)
	if principal.IsAdmin() {
		devices, err = h.store.ListDevices(r.Context())
	} else {
		devices, err = h.store.ListDevicesByOwner(r.Context(), principal.User.ID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list devices")
		return
	}
	if devices == nil {
		devices = []model.Device{}
	}

	writeJSON(w, http.StatusOK, devicesResponse{Success: true, Devices: devices})
}

type createDeviceRequest struct {
	Name            string  `json:"name"`
	Address         string  `json:"address"`
	Timezone        string  `json:"timezone"`
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	DisplaySettings *string `json:"display_settings,omitempty"`
}

// Create registers a new device owned by the principal. Coordinates come
// from the client; address geocoding happens upstream of this API.
// POST /api/devices
func (h *DeviceHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	var req createDeviceRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name == "" || req.Address == "" || req.Timezone == "" {
		writeError(w, http.StatusBadRequest, "Name, address, and timezone are required")
		return
	}

	dev := &model.Device{
		DeviceID:        uuid.NewString(),
		OwnerID:         principal.User.ID,
		Name:            req.Name,
		Address:         req.Address,
		Lat:             req.Lat,
		Lon:             req.Lon,
		Timezone:        req.Timezone,
		DisplaySettings: req.DisplaySettings,
	}
	if err := h.store.CreateDevice(r.Context(), dev); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create device")
		return
	}

	h.logger.Info("device created", "device_id", dev.DeviceID, "owner_id", dev.OwnerID)
	writeJSON(w, http.StatusOK, deviceResponse{Success: true, Device: *dev})
}

// loadOwned fetches the device from the path parameter and enforces the
// ownership check for the principal. It writes the error response and
// returns nil when the caller should stop.
func (h *DeviceHandler) loadOwned(w http.ResponseWriter, r *http.Request) *model.Device {
	principal, _ := middleware.GetPrincipal(r.Context())

	dev, err := h.store.GetDeviceByDeviceID(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Device not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to load device")
		}
		return nil
	}

	if err := auth.RequireOwner(principal, dev.OwnerID); err != nil {
		writeNotOwner(w)
		return nil
	}
	return dev
}

// Get returns a single device.
// GET /api/devices/{deviceID}
func (h *DeviceHandler) Get(w http.ResponseWriter, r *http.Request) {
	dev := h.loadOwned(w, r)
	if dev == nil {
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse{Success: true, Device: *dev})
}

type updateDeviceRequest struct {
	Name            *string  `json:"name"`
	Address         *string  `json:"address"`
	Timezone        *string  `json:"timezone"`
	Lat             *float64 `json:"lat"`
	Lon             *float64 `json:"lon"`
	DisplaySettings *string  `json:"display_settings"`
}

// Update modifies a device's mutable fields. Only fields present in the
// request body change.
// PUT /api/devices/{deviceID}
func (h *DeviceHandler) Update(w http.ResponseWriter, r *http.Request) {
	dev := h.loadOwned(w, r)
	if dev == nil {
		return
	}

	var req updateDeviceRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Name != nil {
		dev.Name = *req.Name
	}
	if req.Address != nil {
		dev.Address = *req.Address
	}
	if req.Timezone != nil {
		dev.Timezone = *req.Timezone
	}
	if req.Lat != nil {
		dev.Lat = *req.Lat
	}
	if req.Lon != nil {
		dev.Lon = *req.Lon
	}
	if req.DisplaySettings != nil {
		dev.DisplaySettings = req.DisplaySettings
	}

	if err := h.store.UpdateDevice(r.Context(), dev); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update device")
		return
	}

	writeJSON(w, http.StatusOK, deviceResponse{Success: true, Device: *dev})
}

// Delete removes a device.
// DELETE /api/devices/{deviceID}
func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	dev := h.loadOwned(w, r)
	if dev == nil {
		return
	}

	if err := h.store.DeleteDevice(r.Context(), dev.DeviceID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete device")
		return
	}

	h.logger.Info("device deleted", "device_id", dev.DeviceID)
	writeMessage(w, "Device deleted successfully")
}

// Display returns the document the display hardware polls with its API key.
// The device's last_seen timestamp is touched best-effort; a dropped update
// never fails the poll.
// GET /api/devices/{deviceID}/display
func (h *DeviceHandler) Display(w http.ResponseWriter, r *http.Request) {
	dev := h.loadOwned(w, r)
	if dev == nil {
		return
	}

	go func(deviceID string) {
		if err := h.store.TouchDeviceLastSeen(context.Background(), deviceID); err != nil {
			h.logger.Debug("last_seen update dropped", "device_id", deviceID, "error", err)
		}
	}(dev.DeviceID)

	writeJSON(w, http.StatusOK, deviceResponse{Success: true, Device: *dev})
}

// ListForUser returns all devices owned by the user in the path. Callers may
// only view their own devices unless they are admins.
// GET /api/users/{userID}/devices
func (h *DeviceHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := auth.RequireOwner(principal, userID); err != nil {
		writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	devices, err := h.store.ListDevicesByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list devices")
		return
	}
	if devices == nil {
		devices = []model.Device{}
	}

	writeJSON(w, http.StatusOK, devicesResponse{Success: true, Devices: devices})
}
