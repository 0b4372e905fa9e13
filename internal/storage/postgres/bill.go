package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
)

const billColumns = `id, order_id, buyer_id, seller_id, bill_number, items, total_amount,
	discount_amount, gst_amount, coupon_amount, shipping_amount, round_off_amount, final_amount,
	status, pdf_url, created_at, updated_at`

const (
	insertBillSQL = `INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	listBillsByOrderSQL = `SELECT ` + billColumns + ` FROM bills
		WHERE order_id = $1 ORDER BY created_at, bill_number`

	listBillsMissingPDFSQL = `SELECT ` + billColumns + ` FROM bills
		WHERE pdf_url = '' ORDER BY created_at LIMIT $1`

	setBillPDFURLSQL = `UPDATE bills SET pdf_url = $2, updated_at = NOW() WHERE id = $1`
)

var _ order.BillRepository = (*BillRepository)(nil)

// BillRepository implements order.BillRepository backed by PostgreSQL. Bills
// are inserted by OrderRepository.Place.
type BillRepository struct {
	pool *pgxpool.Pool
}

// NewBillRepository returns a BillRepository that uses the given pool.
func NewBillRepository(pool *pgxpool.Pool) *BillRepository {
	return &BillRepository{pool: pool}
}

// ListByOrder returns the bills of an order.
func (r *BillRepository) ListByOrder(ctx context.Context, orderID string) ([]order.Bill, error) {
	rows, err := r.pool.Query(ctx, listBillsByOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing bills of order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanBill)
}

// ListMissingInvoice returns up to limit bills without a pdf url, oldest first.
func (r *BillRepository) ListMissingInvoice(ctx context.Context, limit int) ([]order.Bill, error) {
	rows, err := r.pool.Query(ctx, listBillsMissingPDFSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing bills without invoice: %w", err)
	}
	return pgx.CollectRows(rows, scanBill)
}

// SetPDFURL records the invoice location of a bill.
func (r *BillRepository) SetPDFURL(ctx context.Context, billID, url string) error {
	tag, err := r.pool.Exec(ctx, setBillPDFURLSQL, billID, url)
	if err != nil {
		return fmt.Errorf("setting bill %q pdf url: %w", billID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("setting bill %q pdf url: %w", billID, pgx.ErrNoRows)
	}
	return nil
}

func billArgs(b *order.Bill) ([]any, error) {
	items, err := json.Marshal(b.Items)
	if err != nil {
		return nil, fmt.Errorf("marshaling bill items: %w", err)
	}
	return []any{
		b.ID, b.OrderID, b.BuyerID, b.SellerID, b.BillNumber, items, b.TotalAmount,
		b.DiscountAmount, b.GSTAmount, b.CouponAmount, b.ShippingAmount, b.RoundOffAmount, b.FinalAmount,
		string(b.Status), b.PDFURL, b.CreatedAt, b.UpdatedAt,
	}, nil
}

func scanBill(row pgx.CollectableRow) (order.Bill, error) {
	var (
		b      order.Bill
		items  []byte
		status string
	)
	if err := row.Scan(
		&b.ID, &b.OrderID, &b.BuyerID, &b.SellerID, &b.BillNumber, &items, &b.TotalAmount,
		&b.DiscountAmount, &b.GSTAmount, &b.CouponAmount, &b.ShippingAmount, &b.RoundOffAmount, &b.FinalAmount,
		&status, &b.PDFURL, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return b, err
	}
	b.Status = order.BillStatus(status)
	if err := json.Unmarshal(items, &b.Items); err != nil {
		return b, fmt.Errorf("decoding bill %q items: %w", b.ID, err)
	}
	return b, nil
}
