package httpx

import (
	"errors"
	"net/http"

	"github.com/ariefcatur/go-smartorder/internal/apperr"
	"github.com/ariefcatur/go-smartorder/internal/auth"
	"github.com/ariefcatur/go-smartorder/internal/inventory"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	Ledger *inventory.Ledger
	Log    *zap.Logger
}

type stockReq struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=2147483647"`
}

type provisionReq struct {
	ProductID string `json:"productId" validate:"required"`
	StoreID   string `json:"storeId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=0,lte=2147483647"`
}

// Register mounts the ledger routes. Reads are anonymous; writes need a caller.
func (h *InventoryHandler) Register(r chi.Router) {
	r.Route("/inventory", func(r chi.Router) {
		r.Get("/product/{productId}", h.quantity)
		r.Get("/all", h.all)
		r.Group(func(r chi.Router) {
			r.Use(auth.Require)
			r.Post("/", h.provision)
			r.Post("/reserve", h.reserve)
			r.Post("/release", h.release)
		})
	})
}

func (h *InventoryHandler) reserve(w http.ResponseWriter, r *http.Request) {
	var req stockReq
	if err := decode(r, &req); err != nil {
		h.writeStockError(w, r, err)
		return
	}
	if err := h.Ledger.Reserve(r.Context(), req.ProductID, req.Quantity); err != nil {
		h.writeStockError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *InventoryHandler) release(w http.ResponseWriter, r *http.Request) {
	var req stockReq
	if err := decode(r, &req); err != nil {
		h.writeStockError(w, r, err)
		return
	}
	if err := h.Ledger.Release(r.Context(), req.ProductID, req.Quantity); err != nil {
		h.writeStockError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// writeStockError answers malformed reserve and release requests with 422 so
// that 400 keeps meaning insufficient stock to ledger clients.
func (h *InventoryHandler) writeStockError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperr.ErrInvalid) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": apperr.Public(err)})
		return
	}
	writeError(w, r, h.Log, err)
}

func (h *InventoryHandler) quantity(w http.ResponseWriter, r *http.Request) {
	n, err := h.Ledger.GetQuantity(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *InventoryHandler) all(w http.ResponseWriter, r *http.Request) {
	m, err := h.Ledger.GetAllQuantities(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *InventoryHandler) provision(w http.ResponseWriter, r *http.Request) {
	var req provisionReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	rec := inventory.StockRecord{ProductID: req.ProductID, StoreID: req.StoreID, QuantityOnHand: req.Quantity}
	if err := h.Ledger.Provision(r.Context(), rec); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
