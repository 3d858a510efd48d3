package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gamenethq/gamenet-pos/internal/billing"
	"github.com/gamenethq/gamenet-pos/internal/model"
	"github.com/gamenethq/gamenet-pos/internal/receipt"
	"github.com/gamenethq/gamenet-pos/internal/store"
)

func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	rows, err := s.store.DailyRevenue(r.Context(), id.CenterID, s.cfg.ReportDays)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to read daily revenue")
		return
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, map[string]any{
			"date":            row.Day.Format("2006-01-02"),
			"devices_revenue": row.DevicesRevenue,
			"buffet_revenue":  row.BuffetRevenue,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": out})
}

func (s *Server) handleSummaryReport(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	summary, err := s.store.RevenueSummary(r.Context(), id.CenterID, s.cfg.ReportDays)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to read revenue summary")
		return
	}
	byType, err := s.store.RevenueByDeviceType(r.Context(), id.CenterID, s.cfg.ReportDays)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to read device type revenue")
		return
	}
	types := make([]map[string]any, 0, len(byType))
	for _, t := range byType {
		types = append(types, map[string]any{"type": string(t.Type), "revenue": t.Revenue})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices_revenue": summary.DevicesRevenue,
		"buffet_revenue":  summary.BuffetRevenue,
		"total_revenue":   summary.TotalRevenue,
		"average_daily":   summary.AverageDaily,
		"by_device_type":  types,
	})
}

type ratesRequest struct {
	PC          int64 `json:"pc"`
	Playstation int64 `json:"playstation"`
	Billiard    int64 `json:"billiard"`
}

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	rates, err := s.store.GetDefaultRates(r.Context(), id.CenterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// No row yet: serve the stock defaults rather than a 404.
			rates = &model.DefaultRates{PC: 50000, Playstation: 80000, Billiard: 120000}
		} else {
			writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to read rates")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pc":          rates.PC,
		"playstation": rates.Playstation,
		"billiard":    rates.Billiard,
	})
}

func (s *Server) handlePutRates(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req ratesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}
	if req.PC < 0 || req.Playstation < 0 || req.Billiard < 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "rates must be >= 0")
		return
	}
	err := s.store.UpsertDefaultRates(r.Context(), id.CenterID, model.DefaultRates{
		PC:          req.PC,
		Playstation: req.Playstation,
		Billiard:    req.Billiard,
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to save rates")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	notifications, err := s.store.ListNotifications(r.Context(), id.CenterID, 50)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list notifications")
		return
	}
	out := make([]map[string]any, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, map[string]any{
			"id":         n.ID,
			"kind":       string(n.Kind),
			"message":    n.Message,
			"is_read":    n.Read,
			"created_at": formatTime(n.CreatedAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	err := s.store.MarkNotificationRead(r.Context(), id.CenterID, chi.URLParam(r, "notificationID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeAPIError(w, http.StatusNotFound, "not_found", "notification not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to mark notification read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleReceipt rebuilds the invoice for a closed session by re-querying its
// sales window, then streams it as a PDF slip.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	sess, err := s.store.GetSession(r.Context(), id.CenterID, chi.URLParam(r, "sessionID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeAPIError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to read session")
		return
	}
	if sess.EndTime == nil || sess.TotalCost == nil {
		writeAPIError(w, http.StatusConflict, "session_open", "receipt is only available after stop")
		return
	}
	dev, err := s.store.GetDevice(r.Context(), id.CenterID, sess.DeviceID)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to read device")
		return
	}
	lines, err := s.store.SalesForWindow(r.Context(), id.CenterID, sess.DeviceID, sess.StartTime, *sess.EndTime)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to read sales")
		return
	}

	pdf, err := receipt.Render(billing.AssembleInvoice(dev, sess, lines))
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID).Msg("receipt render failed")
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to render receipt")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	s.hub.Serve(w, r, id.CenterID)
}
