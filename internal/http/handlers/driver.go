package handlers

import (
	"errors"
	"net/http"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/logx"
)

// DriverHandler serves the driver presence endpoints.
type DriverHandler struct {
	usecase presenceUsecase
	logger  logx.Logger
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(logger logx.Logger, uc presenceUsecase) *DriverHandler {
	return &DriverHandler{usecase: uc, logger: logger}
}

// SetPresence handles POST /drivers/{id}/presence.
func (h *DriverHandler) SetPresence(w http.ResponseWriter, r *http.Request) {
	driverID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid driver id")
		return
	}
	var req setPresenceRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	state, err := h.usecase.SetPresence(r.Context(), driverID, req.Online, req.MaxConcurrent, req.ZoneID)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, driverStateToDTO(state))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "driver not found")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// Heartbeat handles POST /drivers/{id}/heartbeat.
func (h *DriverHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	driverID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid driver id")
		return
	}
	var req heartbeatRequest
	if ok := decodeJSON(h.logger, w, r, &req); !ok {
		return
	}

	state, err := h.usecase.Heartbeat(r.Context(), driverID, req.Lat, req.Lng, req.ZoneID)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, driverStateToDTO(state))
	case errors.Is(err, apperr.ErrInvalid):
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid input")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "driver not found")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}

// GetState handles GET /drivers/{id}/state.
func (h *DriverHandler) GetState(w http.ResponseWriter, r *http.Request) {
	driverID, err := idFromURL(r, "id")
	if err != nil {
		writeError(h.logger, w, r, http.StatusBadRequest, "invalid driver id")
		return
	}

	state, err := h.usecase.Get(r.Context(), driverID)
	switch {
	case err == nil:
		writeJSON(h.logger, w, r, http.StatusOK, driverStateToDTO(state))
	case errors.Is(err, apperr.ErrNotFound):
		writeError(h.logger, w, r, http.StatusNotFound, "driver not found")
	default:
		writeError(h.logger, w, r, http.StatusInternalServerError, "internal error")
	}
}
