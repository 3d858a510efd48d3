package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gamenethq/gamenet-pos/internal/metrics"
	"github.com/gamenethq/gamenet-pos/internal/model"
	"github.com/gamenethq/gamenet-pos/internal/store"
)

type productRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Price    int64  `json:"price"`
	Stock    int    `json:"stock"`
}

type recordSaleRequest struct {
	DeviceID *string `json:"device_id"`
	Items    []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	activeOnly := r.URL.Query().Get("all") == ""
	products, err := s.store.ListProducts(r.Context(), id.CenterID, activeOnly)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}
	out := make([]map[string]any, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(&p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if req.Price < 0 || req.Stock < 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "price and stock must be >= 0")
		return
	}
	p, err := s.store.CreateProduct(r.Context(), store.CreateProductInput{
		CenterID: id.CenterID,
		Name:     req.Name,
		Category: req.Category,
		Price:    req.Price,
		Stock:    req.Stock,
	})
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to create product")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": toProductResponse(p)})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if req.Price < 0 || req.Stock < 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "price and stock must be >= 0")
		return
	}
	p, err := s.store.UpdateProduct(r.Context(), store.UpdateProductInput{
		CenterID:  id.CenterID,
		ProductID: chi.URLParam(r, "productID"),
		Name:      req.Name,
		Category:  req.Category,
		Price:     req.Price,
		Stock:     req.Stock,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeAPIError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to update product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": toProductResponse(p)})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	err := s.store.DeactivateProduct(r.Context(), id.CenterID, chi.URLParam(r, "productID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeAPIError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to deactivate product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req recordSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid_request", "items are required")
		return
	}

	in := store.RecordSaleInput{
		CenterID: id.CenterID,
		DeviceID: req.DeviceID,
		SoldBy:   id.UserID,
		SoldAt:   s.now(),
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, store.SaleItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	sales, err := s.store.RecordSale(r.Context(), in)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			writeAPIError(w, http.StatusConflict, "insufficient_stock", "not enough stock for one of the items")
			return
		}
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to record sale")
		return
	}

	for range sales {
		metrics.SalesRecorded.Inc()
	}
	out := make([]map[string]any, 0, len(sales))
	for _, sale := range sales {
		out = append(out, toSaleResponse(&sale))
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sales": out})
}

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	sales, err := s.store.ListSales(r.Context(), id.CenterID, s.cfg.SalesHistoryLimit)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "internal_error", "failed to list sales")
		return
	}
	out := make([]map[string]any, 0, len(sales))
	for _, sale := range sales {
		out = append(out, toSaleResponse(&sale))
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": out})
}

func toProductResponse(p *model.Product) map[string]any {
	return map[string]any{
		"id":        p.ID,
		"name":      p.Name,
		"category":  p.Category,
		"price":     p.Price,
		"stock":     p.Stock,
		"is_active": p.Active,
	}
}

func toSaleResponse(sale *model.Sale) map[string]any {
	return map[string]any{
		"id":           sale.ID,
		"product_id":   sale.ProductID,
		"product_name": sale.ProductName,
		"device_id":    sale.DeviceID,
		"quantity":     sale.Quantity,
		"unit_price":   sale.UnitPrice,
		"total_price":  sale.TotalPrice,
		"created_at":   formatTime(sale.CreatedAt),
	}
}
