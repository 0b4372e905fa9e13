// Package auth identifies the staff behind API requests. Keys are stored only
// as peppered HMAC-SHA256 hashes.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// Roles recognised on API keys. Roles are recorded, not enforced.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// ParseRole normalises role, rejecting unknown values.
func ParseRole(role string) (string, error) {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case RoleAdmin, RoleStaff:
		return r, nil
	case "":
		return RoleStaff, nil
	default:
		return "", errors.Errorf("unknown role %q", role)
	}
}

// APIKeyInfo is a stored key: who holds it and what it may be used for.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Role    string
	Scopes  []string
}

// Repository finds active keys by hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// HashKey is the hex form of Sum, as stored in the key table.
func HashKey(pepper []byte, key string) string {
	return hex.EncodeToString(Sum(pepper, key))
}

// Sum returns the HMAC-SHA256 of key under pepper.
func Sum(pepper []byte, key string) []byte {
	mac := hmac.New(sha256.New, pepper)
	_, _ = mac.Write([]byte(key))
	return mac.Sum(nil)
}
