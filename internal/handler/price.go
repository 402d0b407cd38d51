package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmcampos/despensa/internal/auth"
	"github.com/jmcampos/despensa/internal/model"
	"github.com/jmcampos/despensa/internal/price"
	"github.com/jmcampos/despensa/internal/store"
	"github.com/jmcampos/despensa/internal/websocket"
)

type PriceHandler struct {
	priceStore *store.PriceStore
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewPriceHandler(ps *store.PriceStore, hub *websocket.Hub, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{priceStore: ps, hub: hub, logger: logger}
}

type priceEntryRequest struct {
	ProductName string  `json:"product_name"`
	Brand       string  `json:"brand"`
	TotalPrice  float64 `json:"total_price"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	Supermarket string  `json:"supermarket"`
	IsOffer     bool    `json:"is_offer"`
	OfferNotes  string  `json:"offer_notes"`
	PurchasedAt string  `json:"purchased_at"`
}

// validate normalizes the request and returns the store payload, or an error
// message for the client.
func (req *priceEntryRequest) validate() (store.NewPriceEntry, string) {
	req.ProductName = strings.TrimSpace(req.ProductName)
	req.Supermarket = strings.TrimSpace(req.Supermarket)

	if req.ProductName == "" {
		return store.NewPriceEntry{}, "product_name is required"
	}
	if req.Supermarket == "" {
		return store.NewPriceEntry{}, "supermarket is required"
	}
	if req.TotalPrice <= 0 {
		return store.NewPriceEntry{}, "total_price must be positive"
	}
	if req.Quantity <= 0 {
		return store.NewPriceEntry{}, "quantity must be positive"
	}

	unit, ok := price.ParseUnit(req.Unit)
	if !ok {
		return store.NewPriceEntry{}, "unit must be one of kg, l, docena, unidad"
	}

	var purchasedAt time.Time
	if req.PurchasedAt != "" {
		t, err := time.Parse("2006-01-02", req.PurchasedAt)
		if err != nil {
			t, err = time.Parse(time.RFC3339, req.PurchasedAt)
		}
		if err != nil {
			return store.NewPriceEntry{}, "invalid purchased_at"
		}
		purchasedAt = t
	}

	return store.NewPriceEntry{
		ProductName:  req.ProductName,
		Brand:        strings.TrimSpace(req.Brand),
		TotalPrice:   req.TotalPrice,
		Quantity:     req.Quantity,
		Unit:         string(unit),
		PricePerUnit: price.Normalize(req.TotalPrice, req.Quantity, unit),
		Supermarket:  req.Supermarket,
		IsOffer:      req.IsOffer,
		OfferNotes:   strings.TrimSpace(req.OfferNotes),
		PurchasedAt:  purchasedAt,
	}, ""
}

func (h *PriceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req priceEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	payload, errMsg := req.validate()
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	userID := auth.UserID(r.Context())
	entry, err := h.priceStore.Create(userID, payload)
	if err != nil {
		h.logger.Error("create price entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create price entry")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("price_entry", "created", entry.ID, nil))
	writeJSON(w, http.StatusCreated, entry)
}

func (h *PriceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PriceFilter{
		Product:     q.Get("product"),
		Supermarket: q.Get("supermarket"),
		Search:      q.Get("search"),
		Sort:        q.Get("sort"),
	}

	entries, err := h.priceStore.List(auth.UserID(r.Context()), filter)
	if err != nil {
		h.logger.Error("list price entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list price entries")
		return
	}
	if entries == nil {
		entries = []model.PriceEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *PriceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	entry, err := h.priceStore.GetByID(id, auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("get price entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get price entry")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "price entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *PriceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.priceStore.GetByID(id, userID)
	if err != nil {
		h.logger.Error("get price entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get price entry")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "price entry not found")
		return
	}

	var req priceEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	payload, errMsg := req.validate()
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	entry, err := h.priceStore.Update(id, userID, payload)
	if err != nil {
		h.logger.Error("update price entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update price entry")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("price_entry", "updated", id, nil))
	writeJSON(w, http.StatusOK, entry)
}

func (h *PriceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.priceStore.GetByID(id, userID)
	if err != nil {
		h.logger.Error("get price entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get price entry")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "price entry not found")
		return
	}

	if err := h.priceStore.Delete(id, userID); err != nil {
		h.logger.Error("delete price entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete price entry")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("price_entry", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete removes a batch of the user's price entries in one statement.
func (h *PriceHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids is required")
		return
	}

	userID := auth.UserID(r.Context())
	deleted, err := h.priceStore.DeleteMany(userID, req.IDs)
	if err != nil {
		h.logger.Error("bulk delete price entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete price entries")
		return
	}

	h.hub.Broadcast(userID, websocket.NewMessage("price_entry", "bulk_deleted", 0, map[string]any{"count": deleted}))
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// Stats returns min/max/avg normalized prices for one product.
func (h *PriceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	product := strings.TrimSpace(r.URL.Query().Get("product"))
	if product == "" {
		writeError(w, http.StatusBadRequest, "product is required")
		return
	}

	entries, err := h.priceStore.List(auth.UserID(r.Context()), store.PriceFilter{Product: product})
	if err != nil {
		h.logger.Error("stats list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, price.Summarize(product, entries))
}

// Best returns the cheapest recorded entry per product.
func (h *PriceHandler) Best(w http.ResponseWriter, r *http.Request) {
	entries, err := h.priceStore.List(auth.UserID(r.Context()), store.PriceFilter{})
	if err != nil {
		h.logger.Error("best list", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute best prices")
		return
	}

	best := price.BestByProduct(entries)
	if best == nil {
		best = []model.PriceEntry{}
	}
	writeJSON(w, http.StatusOK, best)
}

func (h *PriceHandler) Supermarkets(w http.ResponseWriter, r *http.Request) {
	names, err := h.priceStore.ListSupermarkets(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list supermarkets", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list supermarkets")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}
