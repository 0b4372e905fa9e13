package seller

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/deepglam/marketplace-orders/internal/domain/address"
)

// ErrNotFound is returned when a requested seller does not exist.
var ErrNotFound = errors.New("seller not found")

// Seller is a brand selling through the marketplace. Each seller gets its own
// bill for every order containing its products.
type Seller struct {
	ID          string
	BrandName   string
	GSTNumber   string
	Phone       string
	FullAddress address.Address
}

// Repository defines read operations for sellers.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Seller, error)
	// GetByIDs returns the sellers that exist among ids. Missing ids are
	// silently skipped; callers compare lengths to detect them.
	GetByIDs(ctx context.Context, ids []string) ([]Seller, error)
}
