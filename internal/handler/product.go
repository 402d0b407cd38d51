package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmcampos/despensa/internal/auth"
	"github.com/jmcampos/despensa/internal/model"
	"github.com/jmcampos/despensa/internal/pantry"
	"github.com/jmcampos/despensa/internal/store"
	"github.com/jmcampos/despensa/internal/websocket"
)

type ProductHandler struct {
	productStore *store.ProductStore
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewProductHandler(ps *store.ProductStore, hub *websocket.Hub, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{productStore: ps, hub: hub, logger: logger}
}

type productRequest struct {
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	QuantityUnit string `json:"quantity_unit"`
	Category     string `json:"category"`
	AddedAt      string `json:"added_at"`
}

// parseAddedAt accepts a plain date or a full timestamp. An empty value
// means "now" and is resolved by the store.
func parseAddedAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity cannot be negative")
		return
	}

	// Suggest a category when the client leaves it blank
	if req.Category == "" {
		req.Category = pantry.SuggestCategory(req.Name)
	}
	if !model.ValidCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	addedAt, err := parseAddedAt(req.AddedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid added_at")
		return
	}

	userID := auth.UserID(r.Context())
	product, err := h.productStore.Create(userID, req.Name, req.Quantity, req.QuantityUnit, req.Category, addedAt)
	if err != nil {
		h.logger.Error("create product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("product", "created", product.ID, nil))
	writeJSON(w, http.StatusCreated, product)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Sort:     q.Get("sort"),
	}

	products, err := h.productStore.List(auth.UserID(r.Context()), filter)
	if err != nil {
		h.logger.Error("list products", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	product, err := h.productStore.GetByID(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.productStore.GetByID(id, userID)
	if err != nil {
		h.logger.Error("get product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "quantity cannot be negative")
		return
	}
	if req.Category == "" {
		req.Category = existing.Category
	}
	if !model.ValidCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	product, err := h.productStore.Update(id, userID, req.Name, req.Quantity, req.QuantityUnit, req.Category)
	if err != nil {
		h.logger.Error("update product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("product", "updated", id, nil))
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.productStore.GetByID(id, userID)
	if err != nil {
		h.logger.Error("get product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.productStore.Delete(id, userID); err != nil {
		h.logger.Error("delete product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("product", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// ToggleShopping flips a product in or out of the shopping list.
func (h *ProductHandler) ToggleShopping(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	// Body is optional; toggling off carries no quantity.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := auth.UserID(r.Context())
	product, err := h.productStore.ToggleShopping(id, userID, req.Quantity)
	if err != nil {
		h.logger.Error("toggle shopping", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle shopping")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("shopping", "toggled", id, nil))
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) ListShopping(w http.ResponseWriter, r *http.Request) {
	products, err := h.productStore.ListShopping(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list shopping", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shopping list")
		return
	}
	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// Purchase moves the shopping quantity into stock and removes the product
// from the shopping list.
func (h *ProductHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	product, err := h.productStore.Purchase(id, userID)
	if err != nil {
		h.logger.Error("purchase product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to purchase product")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("shopping", "purchased", id, nil))
	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) ClearShopping(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	count, err := h.productStore.ClearShopping(userID)
	if err != nil {
		h.logger.Error("clear shopping", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear shopping list")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("shopping", "cleared", 0, nil))
	writeJSON(w, http.StatusOK, map[string]int64{"cleared": count})
}
