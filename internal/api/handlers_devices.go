package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gamenethq/gamenet-pos/internal/lifecycle"
	"github.com/gamenethq/gamenet-pos/internal/model"
	"github.com/gamenethq/gamenet-pos/internal/notify"
	"github.com/gamenethq/gamenet-pos/internal/store"
)

type createDeviceRequest struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	HourlyRate int64  `json:"hourly_rate"`
}

type startSessionRequest struct {
	CustomerName *string `json:"customer_name"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	devices, err := s.store.ListDevices(r.Context(), id.CenterID)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list devices")
		return
	}
	sessions, err := s.store.ListOpenSessions(r.Context(), id.CenterID)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
		return
	}
	byDevice := make(map[string]*model.Session, len(sessions))
	for i := range sessions {
		byDevice[sessions[i].DeviceID] = &sessions[i]
	}

	out := make([]map[string]any, 0, len(devices))
	for _, d := range devices {
		entry := toDeviceResponse(&d)
		if sess := byDevice[d.ID]; sess != nil {
			entry["current_session"] = toSessionResponse(sess)
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": out})
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if !model.ValidDeviceType(model.DeviceType(req.Type)) {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "type must be one of pc|playstation|billiard|other")
		return
	}
	// Negative rates are a configuration error; rejected here so the cost
	// calculator never sees one.
	if req.HourlyRate < 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "hourly_rate must be >= 0")
		return
	}

	dev, err := s.store.CreateDevice(r.Context(), store.CreateDeviceInput{
		CenterID:   id.CenterID,
		Name:       req.Name,
		Type:       model.DeviceType(req.Type),
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to create device")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"device": toDeviceResponse(dev)})
}

func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if !model.ValidDeviceType(model.DeviceType(req.Type)) {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "type must be one of pc|playstation|billiard|other")
		return
	}
	if req.HourlyRate < 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "hourly_rate must be >= 0")
		return
	}

	dev, err := s.store.UpdateDevice(r.Context(), store.UpdateDeviceInput{
		CenterID:   id.CenterID,
		DeviceID:   chi.URLParam(r, "deviceID"),
		Name:       req.Name,
		Type:       model.DeviceType(req.Type),
		HourlyRate: req.HourlyRate,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeAPIError(w, http.StatusNotFound, "not_found", "device not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to update device")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"device": toDeviceResponse(dev)})
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	err := s.lc.Delete(r.Context(), id.CenterID, chi.URLParam(r, "deviceID"))
	if err != nil {
		s.writeLifecycleError(w, err, "failed to delete device")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	deviceID := chi.URLParam(r, "deviceID")
	status, err := s.lc.ToggleMaintenance(r.Context(), id.CenterID, deviceID)
	if err != nil {
		s.writeLifecycleError(w, err, "failed to toggle maintenance")
		return
	}
	s.hub.Publish(notify.Event{Kind: notify.EventDeviceChanged, CenterID: id.CenterID, DeviceID: deviceID})
	writeJSON(w, http.StatusOK, map[string]any{"device_id": deviceID, "status": string(status)})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req startSessionRequest
	if r.Body != nil {
		// Body is optional; a bare start means an anonymous customer.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	deviceID := chi.URLParam(r, "deviceID")
	sess, err := s.lc.Start(r.Context(), id.CenterID, deviceID, req.CustomerName)
	if err != nil {
		s.writeLifecycleError(w, err, "failed to start session")
		return
	}
	s.hub.Publish(notify.Event{Kind: notify.EventDeviceChanged, CenterID: id.CenterID, DeviceID: deviceID})
	writeJSON(w, http.StatusCreated, map[string]any{"session": toSessionResponse(sess)})
}

func (s *Server) handleTogglePause(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	deviceID := chi.URLParam(r, "deviceID")
	sess, err := s.lc.TogglePause(r.Context(), id.CenterID, deviceID)
	if err != nil {
		s.writeLifecycleError(w, err, "failed to toggle pause")
		return
	}
	s.hub.Publish(notify.Event{Kind: notify.EventDeviceChanged, CenterID: id.CenterID, DeviceID: deviceID})
	writeJSON(w, http.StatusOK, map[string]any{"session": toSessionResponse(sess)})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	deviceID := chi.URLParam(r, "deviceID")
	inv, err := s.lc.Stop(r.Context(), id.CenterID, deviceID)
	if err != nil {
		s.writeLifecycleError(w, err, "failed to stop session")
		return
	}
	s.hub.Publish(notify.Event{Kind: notify.EventDeviceChanged, CenterID: id.CenterID, DeviceID: deviceID})
	s.hub.Publish(notify.Event{
		Kind:     notify.EventNotification,
		CenterID: id.CenterID,
		DeviceID: deviceID,
		Message:  fmt.Sprintf("%s session ended, total %d", inv.DeviceName, inv.GrandTotal),
	})
	writeJSON(w, http.StatusOK, map[string]any{"invoice": toInvoiceResponse(inv)})
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	err := s.store.UpdateSessionCustomer(r.Context(), id.CenterID, chi.URLParam(r, "sessionID"), req.CustomerName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeAPIError(w, http.StatusNotFound, "not_found", "open session not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to update customer name")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) writeLifecycleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeAPIError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, lifecycle.ErrDeviceBusy):
		writeAPIError(w, http.StatusConflict, "device_busy", err.Error())
	case errors.Is(err, lifecycle.ErrNoActiveSession):
		writeAPIError(w, http.StatusNotFound, "no_active_session", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeAPIError(w, http.StatusNotFound, "not_found", "device not found")
	default:
		s.log.Error().Err(err).Msg(fallback)
		writeAPIError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func toDeviceResponse(d *model.Device) map[string]any {
	return map[string]any{
		"id":          d.ID,
		"name":        d.Name,
		"type":        string(d.Type),
		"status":      string(d.Status),
		"hourly_rate": d.HourlyRate,
		"created_at":  formatTime(d.CreatedAt),
	}
}

func toSessionResponse(sess *model.Session) map[string]any {
	return map[string]any{
		"id":                   sess.ID,
		"device_id":            sess.DeviceID,
		"customer_name":        sess.CustomerName,
		"start_time":           formatTime(sess.StartTime),
		"end_time":             formatTimePtr(sess.EndTime),
		"is_paused":            sess.IsPaused,
		"paused_at":            formatTimePtr(sess.PausedAt),
		"total_paused_seconds": sess.TotalPausedSeconds,
		"total_cost":           sess.TotalCost,
	}
}

func toInvoiceResponse(inv *model.Invoice) map[string]any {
	lines := make([]map[string]any, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, map[string]any{
			"product_name": l.ProductName,
			"quantity":     l.Quantity,
			"unit_price":   l.UnitPrice,
			"total_price":  l.TotalPrice,
		})
	}
	return map[string]any{
		"session_id":    inv.SessionID,
		"device_name":   inv.DeviceName,
		"device_type":   string(inv.DeviceType),
		"customer_name": inv.CustomerName,
		"start_time":    formatTime(inv.StartTime),
		"end_time":      formatTime(inv.EndTime),
		"total_seconds": inv.TotalSeconds,
		"hourly_rate":   inv.HourlyRate,
		"device_cost":   inv.DeviceCost,
		"lines":         lines,
		"buffet_total":  inv.BuffetTotal,
		"grand_total":   inv.GrandTotal,
	}
}
