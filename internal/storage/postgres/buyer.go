package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepglam/marketplace-orders/internal/domain/buyer"
)

const (
	getBuyerByIDSQL = `SELECT id, name, phone, email, shop_name, gst_number, shop_address, due_amount
		FROM buyers WHERE id = $1`

	upsertBuyerSQL = `INSERT INTO buyers (id, name, phone, email, shop_name, gst_number, shop_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			shop_name = EXCLUDED.shop_name,
			gst_number = EXCLUDED.gst_number,
			shop_address = EXCLUDED.shop_address,
			updated_at = NOW()`

	incrementBuyerDueSQL = `UPDATE buyers SET due_amount = due_amount + $2, updated_at = NOW()
		WHERE id = $1`
)

var _ buyer.Repository = (*BuyerRepository)(nil)

// BuyerRepository implements buyer.Repository backed by PostgreSQL.
type BuyerRepository struct {
	pool *pgxpool.Pool
}

// NewBuyerRepository returns a BuyerRepository that uses the given pool.
func NewBuyerRepository(pool *pgxpool.Pool) *BuyerRepository {
	return &BuyerRepository{pool: pool}
}

// GetByID returns a single buyer by its identifier.
func (r *BuyerRepository) GetByID(ctx context.Context, id string) (*buyer.Buyer, error) {
	var (
		b    buyer.Buyer
		addr []byte
	)
	err := r.pool.QueryRow(ctx, getBuyerByIDSQL, id).Scan(
		&b.ID, &b.Name, &b.Phone, &b.Email, &b.ShopName, &b.GSTNumber, &addr, &b.DueAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, buyer.ErrNotFound
		}
		return nil, fmt.Errorf("getting buyer %q: %w", id, err)
	}
	if err := json.Unmarshal(addr, &b.ShopAddress); err != nil {
		return nil, fmt.Errorf("decoding buyer %q address: %w", id, err)
	}
	return &b, nil
}

// Upsert creates or updates a buyer profile. The due balance is left as is.
func (r *BuyerRepository) Upsert(ctx context.Context, b *buyer.Buyer) error {
	addr, err := json.Marshal(b.ShopAddress)
	if err != nil {
		return fmt.Errorf("marshaling buyer address: %w", err)
	}
	if _, err := r.pool.Exec(ctx, upsertBuyerSQL,
		b.ID, b.Name, b.Phone, b.Email, b.ShopName, b.GSTNumber, addr,
	); err != nil {
		return fmt.Errorf("upserting buyer %q: %w", b.ID, err)
	}
	return nil
}
