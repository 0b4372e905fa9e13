package handler

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/deepglam/marketplace-orders/internal/domain/auth"
	"github.com/deepglam/marketplace-orders/internal/requestctx"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "api_key"

var errUnauthorized = errors.New("unauthorized")

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API keys.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Authenticate resolves key to the actor it belongs to. The stored hash is
// compared in constant time.
func (s *SecurityHandler) Authenticate(ctx context.Context, key string) (requestctx.Actor, error) {
	if key == "" {
		return requestctx.Actor{}, errUnauthorized
	}
	hash := auth.Sum(s.pepper, key)

	info, err := s.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			return requestctx.Actor{}, errUnauthorized
		}
		return requestctx.Actor{}, errors.Wrap(err, "find api key")
	}

	stored, err := hex.DecodeString(info.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
		return requestctx.Actor{}, errUnauthorized
	}

	return requestctx.Actor{ID: info.ID, Name: info.Name, Role: info.Role}, nil
}

// Middleware rejects requests without a valid API key and stores the actor
// on the request context.
func (s *SecurityHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := strings.TrimSpace(r.Header.Get(APIKeyHeader))

		actor, err := s.Authenticate(ctx, key)
		switch {
		case errors.Is(err, errUnauthorized):
			writeError(ctx, w, http.StatusUnauthorized, "unauthorized", "missing or invalid api key")
			return
		case err != nil:
			zctx.From(ctx).Error("API key lookup failed", zap.Error(err))
			writeError(ctx, w, http.StatusInternalServerError, "internal_error", "authentication unavailable")
			return
		}

		zctx.From(ctx).Debug("Authenticated", zap.String("key_id", actor.ID), zap.String("role", actor.Role))
		next.ServeHTTP(w, r.WithContext(requestctx.WithActor(ctx, actor)))
	})
}
