package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gamenethq/gamenet-pos/internal/auth"
	"github.com/gamenethq/gamenet-pos/internal/config"
	"github.com/gamenethq/gamenet-pos/internal/model"
	"github.com/gamenethq/gamenet-pos/internal/notify"
	"github.com/gamenethq/gamenet-pos/internal/store"
)

type Store interface {
	ListDevices(ctx context.Context, centerID string) ([]model.Device, error)
	ListOpenSessions(ctx context.Context, centerID string) ([]model.Session, error)
	GetDevice(ctx context.Context, centerID, deviceID string) (*model.Device, error)
	CreateDevice(ctx context.Context, in store.CreateDeviceInput) (*model.Device, error)
	UpdateDevice(ctx context.Context, in store.UpdateDeviceInput) (*model.Device, error)
	GetSession(ctx context.Context, centerID, sessionID string) (*model.Session, error)
	UpdateSessionCustomer(ctx context.Context, centerID, sessionID string, customerName *string) error
	SalesForWindow(ctx context.Context, centerID, deviceID string, from, to time.Time) ([]model.Sale, error)
	ListProducts(ctx context.Context, centerID string, activeOnly bool) ([]model.Product, error)
	CreateProduct(ctx context.Context, in store.CreateProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, in store.UpdateProductInput) (*model.Product, error)
	DeactivateProduct(ctx context.Context, centerID, productID string) error
	RecordSale(ctx context.Context, in store.RecordSaleInput) ([]model.Sale, error)
	ListSales(ctx context.Context, centerID string, limit int) ([]model.Sale, error)
	GetDefaultRates(ctx context.Context, centerID string) (*model.DefaultRates, error)
	UpsertDefaultRates(ctx context.Context, centerID string, rates model.DefaultRates) error
	DailyRevenue(ctx context.Context, centerID string, days int) ([]model.DailyRevenue, error)
	RevenueSummary(ctx context.Context, centerID string, days int) (*model.RevenueSummary, error)
	RevenueByDeviceType(ctx context.Context, centerID string, days int) ([]model.DeviceTypeRevenue, error)
	ListNotifications(ctx context.Context, centerID string, limit int) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, centerID, notificationID string) error
}

type Lifecycle interface {
	Start(ctx context.Context, centerID, deviceID string, customerName *string) (*model.Session, error)
	TogglePause(ctx context.Context, centerID, deviceID string) (*model.Session, error)
	Stop(ctx context.Context, centerID, deviceID string) (*model.Invoice, error)
	ToggleMaintenance(ctx context.Context, centerID, deviceID string) (model.DeviceStatus, error)
	Delete(ctx context.Context, centerID, deviceID string) error
}

type Server struct {
	cfg   config.Config
	store Store
	lc    Lifecycle
	hub   *notify.Hub
	now   func() time.Time
	log   zerolog.Logger
}

func NewRouter(cfg config.Config, st Store, lc Lifecycle, hub *notify.Hub, now func() time.Time, log zerolog.Logger) http.Handler {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	s := &Server{cfg: cfg, store: st, lc: lc, hub: hub, now: now, log: log}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "ws_clients": s.hub.ClientCount()})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(auth.Middleware(cfg.JWTSecret))

		// The websocket stream lives outside the request timeout; the
		// connection is expected to stay open for the whole shift.
		v1.Get("/ws", s.handleWS)

		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.Timeout(30 * time.Second))
			authed.Get("/devices", s.handleListDevices)
			authed.Post("/devices/{deviceID}/start", s.handleStart)
			authed.Post("/devices/{deviceID}/pause", s.handleTogglePause)
			authed.Post("/devices/{deviceID}/stop", s.handleStop)
			authed.Get("/sessions/{sessionID}/receipt.pdf", s.handleReceipt)
			authed.Get("/products", s.handleListProducts)
			authed.Post("/sales", s.handleRecordSale)
			authed.Get("/sales", s.handleListSales)
			authed.Get("/reports/daily", s.handleDailyReport)
			authed.Get("/reports/summary", s.handleSummaryReport)
			authed.Get("/rates", s.handleGetRates)
			authed.Get("/notifications", s.handleListNotifications)
			authed.Post("/notifications/{notificationID}/read", s.handleMarkNotificationRead)

			authed.Group(func(staff chi.Router) {
				staff.Use(s.requireStaff)
				staff.Post("/devices", s.handleCreateDevice)
				staff.Patch("/devices/{deviceID}", s.handleUpdateDevice)
				staff.Delete("/devices/{deviceID}", s.handleDeleteDevice)
				staff.Post("/devices/{deviceID}/maintenance", s.handleToggleMaintenance)
				staff.Patch("/sessions/{sessionID}/customer", s.handleUpdateCustomer)
				staff.Post("/products", s.handleCreateProduct)
				staff.Patch("/products/{productID}", s.handleUpdateProduct)
				staff.Delete("/products/{productID}", s.handleDeleteProduct)
				staff.Put("/rates", s.handlePutRates)
			})
		})
	})

	return r
}

func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.IdentityFromContext(r.Context())
		if !ok || !id.StaffOrAdmin() {
			writeAPIError(w, http.StatusForbidden, "forbidden", "staff role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type apiError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	var payload apiError
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "unauthorized", "missing identity")
	}
	return id, ok
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
