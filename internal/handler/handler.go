// Package handler exposes the order service over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
)

const maxBodyBytes = 1 << 20

// OrderService is the subset of *order.Service used by the HTTP layer.
type OrderService interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.PlaceOrderResult, error)
	Get(ctx context.Context, id string) (*order.Detail, error)
	List(ctx context.Context, f order.Filter) ([]order.Order, error)
	UpdateStatus(ctx context.Context, id string, t order.Transition) (*order.Order, error)
	UpdatePayment(ctx context.Context, id string, p order.PaymentUpdate) (*order.Order, error)
	RequestReturn(ctx context.Context, id, reason, by string) (*order.Order, error)
}

var _ OrderService = (*order.Service)(nil)

// Handler serves the /api/orders routes.
type Handler struct {
	orders   OrderService
	security *SecurityHandler
}

// NewHandler constructs a Handler. Every order route is guarded by the API
// key check of security.
func NewHandler(orders OrderService, security *SecurityHandler) *Handler {
	return &Handler{orders: orders, security: security}
}

// Routes mounts the order API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(h.security.Middleware)

		r.Post("/", h.placeOrder)
		r.Get("/", h.listOrders)
		r.Get("/{id}", h.getOrder)
		r.Put("/status/{id}", h.updateStatus)
		r.Put("/payment/{id}", h.updatePayment)
		r.Put("/return/{id}", h.requestReturn)
	})
}

// Router returns a chi router serving only the order API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

