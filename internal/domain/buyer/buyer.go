package buyer

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/deepglam/marketplace-orders/internal/domain/address"
)

// ErrNotFound is returned when a requested buyer does not exist.
var ErrNotFound = errors.New("buyer not found")

// Buyer is a retail shop placing orders on the marketplace.
type Buyer struct {
	ID          string
	Name        string
	Phone       string
	Email       string
	ShopName    string
	GSTNumber   string
	ShopAddress address.Address
	// DueAmount is the outstanding balance in minor units. It only grows
	// here: every placed order adds its final amount.
	DueAmount int64
}

// Repository defines read operations for buyers. The due balance is
// incremented by the order placement transaction, not through this interface.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Buyer, error)
}
