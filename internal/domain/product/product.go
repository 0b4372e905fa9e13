// Package product describes catalog items. Pricing belongs to the catalog;
// orders only copy the price current at placement.
package product

import "context"

// Product is a catalog item sold by exactly one seller. Price is in currency
// units.
type Product struct {
	ID       string
	Name     string
	SellerID string
	Brand    string
	HSN      string
	Price    int64
}

// Repository looks products up for order placement.
type Repository interface {
	// GetByIDs returns the products that exist among ids, in no particular
	// order. Missing ids are simply absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Writer loads catalog rows, replacing rows with the same ID.
type Writer interface {
	UpsertBatch(ctx context.Context, products []Product) error
}
