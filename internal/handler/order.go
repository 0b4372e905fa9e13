package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
	"github.com/deepglam/marketplace-orders/internal/requestctx"
)

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func actorLabel(r *http.Request) string {
	a, _ := requestctx.ActorFrom(r.Context())
	return a.Label()
}

// badBody reports a request body that could not be read or decoded.
func badBody(w http.ResponseWriter, r *http.Request, err error) {
	var ve *order.ValidationError
	if errors.As(err, &ve) {
		writeError(r.Context(), w, http.StatusBadRequest, "validation_error", ve.Error())
		return
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large")
		return
	}
	writeError(r.Context(), w, http.StatusBadRequest, "invalid_json", errInvalidJSON.Error())
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := readBody(w, r)
	if err != nil {
		badBody(w, r, err)
		return
	}
	req, err := parsePlaceOrder(data)
	if err != nil {
		badBody(w, r, err)
		return
	}
	req.Actor = actorLabel(r)

	res, err := h.orders.PlaceOrder(ctx, req)
	if err != nil {
		writeDomainError(ctx, w, err, "Order placement failed")
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Order placed & multiple bills generated")
	e.FieldStart("order")
	encodeOrder(&e, res.Order)
	e.FieldStart("bills")
	encodeBills(&e, res.Bills)
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, e.Bytes())
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	f := order.Filter{
		BuyerID:   strings.TrimSpace(q.Get("buyerId")),
		SellerID:  strings.TrimSpace(q.Get("sellerId")),
		StaffCode: strings.TrimSpace(q.Get("staffCode")),
	}
	if s := q.Get("status"); s != "" {
		st, err := order.ParseStatus(s)
		if err != nil {
			writeDomainError(ctx, w, err, "Fetch failed")
			return
		}
		f.Status = st
	}
	if s := q.Get("paymentStatus"); s != "" {
		ps, err := order.ParsePaymentStatus(s)
		if err != nil {
			writeDomainError(ctx, w, err, "Fetch failed")
			return
		}
		f.PaymentStatus = ps
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(ctx, w, http.StatusBadRequest, "validation_error", "limit must be a non-negative integer")
			return
		}
		f.Limit = n
	}

	orders, err := h.orders.List(ctx, f)
	if err != nil {
		writeDomainError(ctx, w, err, "Fetch failed")
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orders")
	e.ArrStart()
	for i := range orders {
		encodeOrder(&e, &orders[i])
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := h.orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(ctx, w, err, "Fetch failed")
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("order")
	encodeOrder(&e, d.Order)
	e.FieldStart("buyer")
	encodeBuyer(&e, d.Buyer)
	e.FieldStart("bills")
	e.ArrStart()
	for i := range d.Bills {
		encodeBill(&e, &d.Bills[i])
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := readBody(w, r)
	if err != nil {
		badBody(w, r, err)
		return
	}
	req, err := parseStatusRequest(data)
	if err != nil {
		badBody(w, r, err)
		return
	}
	st, err := order.ParseStatus(req.Status)
	if err != nil {
		writeDomainError(ctx, w, err, "Status update failed")
		return
	}

	o, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "id"), order.Transition{
		To:      st,
		Note:    req.Note,
		Reason:  req.Reason,
		Courier: req.Courier,
		AWB:     req.AWB,
		By:      actorLabel(r),
	})
	if err != nil {
		writeDomainError(ctx, w, err, "Status update failed")
		return
	}
	writeOrderMessage(w, "Order marked as "+string(st), o)
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := readBody(w, r)
	if err != nil {
		badBody(w, r, err)
		return
	}
	req, err := parsePaymentRequest(data)
	if err != nil {
		badBody(w, r, err)
		return
	}
	ps, err := order.ParsePaymentStatus(req.Status)
	if err != nil {
		writeDomainError(ctx, w, err, "Payment update failed")
		return
	}

	o, err := h.orders.UpdatePayment(ctx, chi.URLParam(r, "id"), order.PaymentUpdate{
		Status:     ps,
		PaidAmount: req.PaidAmount,
	})
	if err != nil {
		writeDomainError(ctx, w, err, "Payment update failed")
		return
	}
	writeOrderMessage(w, "Payment marked as "+string(ps), o)
}

func (h *Handler) requestReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := readBody(w, r)
	if err != nil {
		badBody(w, r, err)
		return
	}
	reason, err := parseReturnRequest(data)
	if err != nil {
		badBody(w, r, err)
		return
	}

	o, err := h.orders.RequestReturn(ctx, chi.URLParam(r, "id"), reason, actorLabel(r))
	if err != nil {
		writeDomainError(ctx, w, err, "Return request failed")
		return
	}
	writeOrderMessage(w, "Return requested", o)
}

func writeOrderMessage(w http.ResponseWriter, message string, o *order.Order) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str(message)
	e.FieldStart("order")
	encodeOrder(&e, o)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}
