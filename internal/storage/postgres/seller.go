package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepglam/marketplace-orders/internal/domain/seller"
)

const (
	getSellerByIDSQL = `SELECT id, brand_name, gst_number, phone, full_address
		FROM sellers WHERE id = $1`

	getSellersByIDsSQL = `SELECT id, brand_name, gst_number, phone, full_address
		FROM sellers WHERE id = ANY($1)`

	upsertSellerSQL = `INSERT INTO sellers (id, brand_name, gst_number, phone, full_address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			brand_name = EXCLUDED.brand_name,
			gst_number = EXCLUDED.gst_number,
			phone = EXCLUDED.phone,
			full_address = EXCLUDED.full_address`
)

var _ seller.Repository = (*SellerRepository)(nil)

// SellerRepository implements seller.Repository backed by PostgreSQL.
type SellerRepository struct {
	pool *pgxpool.Pool
}

// NewSellerRepository returns a SellerRepository that uses the given pool.
func NewSellerRepository(pool *pgxpool.Pool) *SellerRepository {
	return &SellerRepository{pool: pool}
}

// GetByID returns a single seller by its identifier.
func (r *SellerRepository) GetByID(ctx context.Context, id string) (*seller.Seller, error) {
	rows, err := r.pool.Query(ctx, getSellerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting seller %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSeller)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, seller.ErrNotFound
		}
		return nil, fmt.Errorf("getting seller %q: %w", id, err)
	}
	return &s, nil
}

// GetByIDs returns sellers matching any of the given IDs.
func (r *SellerRepository) GetByIDs(ctx context.Context, ids []string) ([]seller.Seller, error) {
	rows, err := r.pool.Query(ctx, getSellersByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting sellers by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanSeller)
}

// Upsert creates or updates a seller.
func (r *SellerRepository) Upsert(ctx context.Context, s *seller.Seller) error {
	addr, err := json.Marshal(s.FullAddress)
	if err != nil {
		return fmt.Errorf("marshaling seller address: %w", err)
	}
	if _, err := r.pool.Exec(ctx, upsertSellerSQL,
		s.ID, s.BrandName, s.GSTNumber, s.Phone, addr,
	); err != nil {
		return fmt.Errorf("upserting seller %q: %w", s.ID, err)
	}
	return nil
}

func scanSeller(row pgx.CollectableRow) (seller.Seller, error) {
	var (
		s    seller.Seller
		addr []byte
	)
	if err := row.Scan(&s.ID, &s.BrandName, &s.GSTNumber, &s.Phone, &addr); err != nil {
		return s, err
	}
	if err := json.Unmarshal(addr, &s.FullAddress); err != nil {
		return s, fmt.Errorf("decoding seller %q address: %w", s.ID, err)
	}
	return s, nil
}
