package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
)

const uniqueViolation = "23505"

const orderColumns = `id, order_no, buyer_id, staff_code, created_by, shipping, items, gst_rate,
	total_amount, discount_amount, gst_amount, coupon_amount, shipping_amount, round_off_amount,
	final_amount, brand_breakdown, status, payment_status, paid_amount, is_return_requested,
	return_reason, dispatch_info, logs, created_at, updated_at`

const (
	insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	lockOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	updateOrderLifecycleSQL = `UPDATE orders SET
			status = $2,
			payment_status = $3,
			paid_amount = $4,
			is_return_requested = $5,
			return_reason = $6,
			dispatch_info = $7,
			logs = $8,
			updated_at = $9
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Place inserts the order, its bills and the buyer due increment in one
// transaction. Any failure rolls back all three.
func (r *OrderRepository) Place(ctx context.Context, o *order.Order, bills []*order.Bill) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning placement: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	args, err := orderArgs(o)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insertOrderSQL, args...); err != nil {
		return translateWriteError(err, fmt.Sprintf("inserting order %q", o.ID))
	}

	for _, b := range bills {
		args, err := billArgs(b)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertBillSQL, args...); err != nil {
			return translateWriteError(err, fmt.Sprintf("inserting bill %q", b.BillNumber))
		}
	}

	tag, err := tx.Exec(ctx, incrementBuyerDueSQL, o.BuyerID, o.FinalAmount)
	if err != nil {
		return fmt.Errorf("incrementing buyer %q due: %w", o.BuyerID, err)
	}
	if tag.RowsAffected() != 1 {
		return &order.NotFoundError{Kind: "buyer", ID: o.BuyerID}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing placement: %w", err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, getOrderByIDSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return o, nil
}

// List returns orders matching f, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	query, args := listOrdersQuery(f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		o, err := scanOrder(row)
		if err != nil {
			return order.Order{}, err
		}
		return *o, nil
	})
}

// Update locks the order row, applies fn and writes back the lifecycle
// fields. Totals are never rewritten.
func (r *OrderRepository) Update(ctx context.Context, id string, fn func(*order.Order) error) (*order.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("beginning order update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, lockOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("locking order %q: %w", id, err)
	}

	if err := fn(o); err != nil {
		return nil, err
	}

	dispatch, err := marshalNullable(o.DispatchInfo)
	if err != nil {
		return nil, err
	}
	logs, err := json.Marshal(o.Logs)
	if err != nil {
		return nil, fmt.Errorf("marshaling order logs: %w", err)
	}
	if _, err := tx.Exec(ctx, updateOrderLifecycleSQL,
		o.ID, string(o.Status), string(o.PaymentStatus), o.PaidAmount,
		o.IsReturnRequested, o.ReturnReason, dispatch, logs, o.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing order update: %w", err)
	}
	return o, nil
}

func listOrdersQuery(f order.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.BuyerID != "" {
		add("buyer_id = $%d", f.BuyerID)
	}
	if f.SellerID != "" {
		add("EXISTS (SELECT 1 FROM bills b WHERE b.order_id = orders.id AND b.seller_id = $%d)", f.SellerID)
	}
	if f.StaffCode != "" {
		add("staff_code = $%d", f.StaffCode)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.PaymentStatus != "" {
		add("payment_status = $%d", string(f.PaymentStatus))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + orderColumns + ` FROM orders`)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, f.Limit)
	fmt.Fprintf(&sb, " ORDER BY created_at DESC, id LIMIT $%d", len(args))
	return sb.String(), args
}

func orderArgs(o *order.Order) ([]any, error) {
	shipping, err := json.Marshal(o.Shipping)
	if err != nil {
		return nil, fmt.Errorf("marshaling shipping address: %w", err)
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("marshaling order items: %w", err)
	}
	breakdown, err := json.Marshal(nonNil(o.BrandBreakdown))
	if err != nil {
		return nil, fmt.Errorf("marshaling brand breakdown: %w", err)
	}
	dispatch, err := marshalNullable(o.DispatchInfo)
	if err != nil {
		return nil, err
	}
	logs, err := json.Marshal(nonNil(o.Logs))
	if err != nil {
		return nil, fmt.Errorf("marshaling order logs: %w", err)
	}

	return []any{
		o.ID, o.OrderNo, o.BuyerID, o.StaffCode, o.CreatedBy, shipping, items, o.GSTRate,
		o.TotalAmount, o.DiscountAmount, o.GSTAmount, o.CouponAmount, o.ShippingAmount, o.RoundOffAmount,
		o.FinalAmount, breakdown, string(o.Status), string(o.PaymentStatus), o.PaidAmount, o.IsReturnRequested,
		o.ReturnReason, dispatch, logs, o.CreatedAt, o.UpdatedAt,
	}, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o                     order.Order
		status, paymentStatus string
		shipping, items       []byte
		breakdown, logs       []byte
		dispatch              []byte
	)
	if err := row.Scan(
		&o.ID, &o.OrderNo, &o.BuyerID, &o.StaffCode, &o.CreatedBy, &shipping, &items, &o.GSTRate,
		&o.TotalAmount, &o.DiscountAmount, &o.GSTAmount, &o.CouponAmount, &o.ShippingAmount, &o.RoundOffAmount,
		&o.FinalAmount, &breakdown, &status, &paymentStatus, &o.PaidAmount, &o.IsReturnRequested,
		&o.ReturnReason, &dispatch, &logs, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)

	if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
		return nil, fmt.Errorf("decoding order %q shipping: %w", o.ID, err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decoding order %q items: %w", o.ID, err)
	}
	if err := json.Unmarshal(breakdown, &o.BrandBreakdown); err != nil {
		return nil, fmt.Errorf("decoding order %q brand breakdown: %w", o.ID, err)
	}
	if err := json.Unmarshal(logs, &o.Logs); err != nil {
		return nil, fmt.Errorf("decoding order %q logs: %w", o.ID, err)
	}
	if dispatch != nil {
		o.DispatchInfo = new(order.DispatchInfo)
		if err := json.Unmarshal(dispatch, o.DispatchInfo); err != nil {
			return nil, fmt.Errorf("decoding order %q dispatch info: %w", o.ID, err)
		}
	}
	return &o, nil
}

// marshalNullable encodes v for a nullable JSONB column.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling %T: %w", v, err)
	}
	return data, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// translateWriteError turns unique violations on order and bill numbers into
// conflicts the caller can report.
func translateWriteError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case "bills_bill_number_key":
			return &order.ConflictError{Message: "bill number already exists"}
		case "orders_order_no_key":
			return &order.ConflictError{Message: "order number already exists"}
		default:
			return &order.ConflictError{Message: "duplicate record"}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
