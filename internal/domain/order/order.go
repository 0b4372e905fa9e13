package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/deepglam/marketplace-orders/internal/domain/allocation"
	"github.com/deepglam/marketplace-orders/internal/domain/buyer"
)

// DefaultCountry is recorded on the shipping snapshot when none is supplied.
const DefaultCountry = "India"

// Order is the buyer-facing aggregate of a purchase spanning one or more
// sellers. Amounts are minor currency units.
type Order struct {
	ID        string
	OrderNo   string
	BuyerID   string
	StaffCode string
	CreatedBy string
	Shipping  ShippingAddress
	Items     []LineItem

	GSTRate        decimal.Decimal
	TotalAmount    int64
	DiscountAmount int64
	GSTAmount      int64
	CouponAmount   int64
	ShippingAmount int64
	RoundOffAmount int64
	FinalAmount    int64
	BrandBreakdown []BrandAmount

	Status            Status
	PaymentStatus     PaymentStatus
	PaidAmount        int64
	IsReturnRequested bool
	ReturnReason      string
	DispatchInfo      *DispatchInfo
	Logs              []LogEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is a single product line embedded in an order and copied into the
// seller's bill.
type LineItem struct {
	ProductID       string          `json:"productId,omitempty"`
	SellerID        string          `json:"sellerId"`
	Name            string          `json:"name"`
	Brand           string          `json:"brand,omitempty"`
	HSN             string          `json:"hsn,omitempty"`
	Quantity        int64           `json:"quantity"`
	Price           int64           `json:"price"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Total           int64           `json:"total"`
}

func (li LineItem) line() allocation.Line {
	return allocation.Line{
		Price:           li.Price,
		Quantity:        li.Quantity,
		DiscountPercent: li.DiscountPercent,
	}
}

// ShippingAddress is the delivery address captured at order time. Later buyer
// profile edits do not affect it.
type ShippingAddress struct {
	FullAddress string `json:"fullAddress"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Pincode     string `json:"pincode"`
	Country     string `json:"country,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// BrandAmount is one entry of the brand-wise summary of an order.
type BrandAmount struct {
	Brand  string `json:"brand"`
	Amount int64  `json:"amount"`
}

// LogEntry is an append-only audit record of a status change.
type LogEntry struct {
	Action string    `json:"action"`
	Note   string    `json:"note,omitempty"`
	By     string    `json:"by,omitempty"`
	At     time.Time `json:"at"`
}

// DispatchInfo records the courier hand-off.
type DispatchInfo struct {
	Courier string    `json:"courier,omitempty"`
	AWB     string    `json:"awb,omitempty"`
	Note    string    `json:"note,omitempty"`
	At      time.Time `json:"at"`
	By      string    `json:"by,omitempty"`
}

// Summary returns the order-level allocation figures.
func (o *Order) Summary() allocation.Summary {
	return allocation.Summary{
		SubTotal:     o.TotalAmount,
		LineDiscount: o.DiscountAmount,
		Taxable:      o.TotalAmount - o.DiscountAmount,
		GST:          o.GSTAmount,
		Coupon:       o.CouponAmount,
		Shipping:     o.ShippingAmount,
		RoundOff:     o.RoundOffAmount,
		Final:        o.FinalAmount,
	}
}

// Filter narrows an order listing. Zero values are ignored.
type Filter struct {
	BuyerID       string
	SellerID      string
	StaffCode     string
	Status        Status
	PaymentStatus PaymentStatus
	Limit         int
}

// Detail is an order with its referenced buyer and bills.
type Detail struct {
	Order *Order
	Buyer *buyer.Buyer
	Bills []Bill
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Place stores the order, its bills and the buyer due increment as one
	// atomic unit.
	Place(ctx context.Context, o *Order, bills []*Bill) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// List returns orders matching f, newest first.
	List(ctx context.Context, f Filter) ([]Order, error)
	// Update loads the order under a row lock, applies fn and stores the
	// mutable lifecycle fields. fn errors abort the update.
	Update(ctx context.Context, id string, fn func(o *Order) error) (*Order, error)
}

// BillRepository defines persistence operations for bills outside of order
// placement.
type BillRepository interface {
	ListByOrder(ctx context.Context, orderID string) ([]Bill, error)
	// ListMissingInvoice returns up to limit bills whose pdf url is empty,
	// oldest first.
	ListMissingInvoice(ctx context.Context, limit int) ([]Bill, error)
	SetPDFURL(ctx context.Context, billID, url string) error
}
