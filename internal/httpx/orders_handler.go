package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/go-smartorder/internal/auth"
	"github.com/ariefcatur/go-smartorder/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrdersHandler struct {
	Orders *orders.Orchestrator
	Log    *zap.Logger
}

type itemReq struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=2147483647"`
	// Accepted for compatibility; the catalog price is what gets recorded.
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

type createOrderReq struct {
	CustomerName string     `json:"customerName" validate:"max=200"`
	OrderDate    *time.Time `json:"orderDate"`
	Items        []itemReq  `json:"items" validate:"required,min=1,dive"`
}

type lineItemReq struct {
	ProductID   string          `json:"productId" validate:"required"`
	ProductName string          `json:"productName" validate:"max=200"`
	Quantity    int             `json:"quantity" validate:"gt=0,lte=2147483647"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type updateOrderReq struct {
	CustomerName string        `json:"customerName" validate:"max=200"`
	OrderDate    *time.Time    `json:"orderDate"`
	Items        []lineItemReq `json:"items" validate:"required,min=1,dive"`
}

// Register mounts the order routes. Every route needs a resolved caller.
func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Use(auth.Require)
		r.Get("/", h.listOrders)
		r.Post("/", h.createOrder)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}", h.updateOrder)
		r.Delete("/{id}", h.deleteOrder)
		r.Put("/{id}/cancel", h.cancelOrder)
	})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	in := orders.CreateOrderInput{CustomerName: req.CustomerName}
	if req.OrderDate != nil {
		in.OrderDate = *req.OrderDate
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := h.Orders.CreateOrder(r.Context(), auth.Actor(r.Context()), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.Header().Set("Location", "/orders/"+order.ID)
	writeJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	in := orders.UpdateOrderInput{CustomerName: req.CustomerName}
	if req.OrderDate != nil {
		in.OrderDate = *req.OrderDate
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.LineItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	order, err := h.Orders.UpdateOrder(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.Orders.CancelOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
