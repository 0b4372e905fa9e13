package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepglam/marketplace-orders/internal/domain/product"
)

const productColumns = `id, name, seller_id, brand, hsn, price`

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Writer     = (*ProductRepository)(nil)
)

// ProductRepository reads and loads the catalog.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByIDs returns the products among ids.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query products")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (product.Product, error) {
		var p product.Product
		err := row.Scan(&p.ID, &p.Name, &p.SellerID, &p.Brand, &p.HSN, &p.Price)
		return p, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "scan products")
	}
	return out, nil
}

// UpsertBatch writes products in one transaction: either every row of the
// batch lands or none does. A product whose seller is unknown fails the
// batch with the foreign key violation.
func (r *ProductRepository) UpsertBatch(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var b pgx.Batch
		for _, p := range products {
			b.Queue(`INSERT INTO products (`+productColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					seller_id = EXCLUDED.seller_id,
					brand = EXCLUDED.brand,
					hsn = EXCLUDED.hsn,
					price = EXCLUDED.price,
					updated_at = NOW()`,
				p.ID, p.Name, p.SellerID, p.Brand, p.HSN, p.Price)
		}
		if err := tx.SendBatch(ctx, &b).Close(); err != nil {
			return errors.Wrapf(err, "upsert %d products", len(products))
		}
		return nil
	})
}
