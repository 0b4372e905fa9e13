package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
	"github.com/deepglam/marketplace-orders/pkg/httpmiddleware"
)

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	httpmiddleware.WriteError(ctx, w, status, code, message)
}

// writeDomainError maps service errors onto HTTP statuses. Unexpected errors
// are logged and reported with fallback, never verbatim.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	var (
		ve *order.ValidationError
		nf *order.NotFoundError
		ce *order.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		writeError(ctx, w, http.StatusBadRequest, "validation_error", ve.Error())
	case errors.As(err, &nf):
		writeError(ctx, w, http.StatusNotFound, "not_found", nf.Error())
	case errors.As(err, &ce):
		writeError(ctx, w, http.StatusConflict, "conflict", ce.Error())
	default:
		zctx.From(ctx).Error(fallback, zap.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
