package order

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/deepglam/marketplace-orders/internal/domain/allocation"
	"github.com/deepglam/marketplace-orders/internal/domain/seller"
)

// BillStatus is the settlement state of a bill.
type BillStatus string

// Bill statuses.
const (
	BillUnpaid BillStatus = "unpaid"
	BillPaid   BillStatus = "paid"
)

// Bill is the seller-scoped financial record derived from an order. An order
// has exactly one bill per participating seller.
type Bill struct {
	ID         string
	OrderID    string
	BuyerID    string
	SellerID   string
	BillNumber string
	Items      []LineItem

	TotalAmount    int64
	DiscountAmount int64
	GSTAmount      int64
	CouponAmount   int64
	ShippingAmount int64
	RoundOffAmount int64
	FinalAmount    int64

	Status BillStatus
	PDFURL string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NumberFunc generates a bill number for a seller.
type NumberFunc func(sellerID string, at time.Time) string

// NewBillNumber returns BILL-<unix millis>-<seller suffix>-<random>. The
// random part comes from a monotonic ULID so numbers generated in the same
// millisecond for the same seller still differ.
func NewBillNumber(sellerID string, at time.Time) string {
	id := ulid.Make().String()
	return fmt.Sprintf("BILL-%d-%s-%s", at.UnixMilli(), sellerSuffix(sellerID), id[len(id)-8:])
}

// NewOrderNumber returns a sortable human-facing order number.
func NewOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}

func sellerSuffix(id string) string {
	var b strings.Builder
	for _, r := range id {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	s := b.String()
	switch {
	case s == "":
		return "XXXX"
	case len(s) > 4:
		return s[len(s)-4:]
	default:
		return s
	}
}

type sellerGroup struct {
	sellerID string
	items    []LineItem
}

// groupBySeller partitions items by seller, keeping sellers in the order
// they first appear.
func groupBySeller(items []LineItem) []sellerGroup {
	idx := make(map[string]int)
	var groups []sellerGroup
	for _, it := range items {
		i, ok := idx[it.SellerID]
		if !ok {
			i = len(groups)
			idx[it.SellerID] = i
			groups = append(groups, sellerGroup{sellerID: it.SellerID})
		}
		groups[i].items = append(groups[i].items, it)
	}
	return groups
}

// SplitBills builds one bill per seller of o. Order-level coupon, shipping
// and round-off are shared by taxable value; the last seller absorbs the
// rounding residue so the bill final amounts sum to the order exactly. Every seller in o
// must be present in sellers.
func SplitBills(o *Order, sellers map[string]*seller.Seller, number NumberFunc) ([]*Bill, error) {
	groups := groupBySeller(o.Items)
	lines := make([][]allocation.Line, len(groups))
	for i, g := range groups {
		if _, ok := sellers[g.sellerID]; !ok {
			return nil, &NotFoundError{Kind: "seller", ID: g.sellerID}
		}
		lines[i] = make([]allocation.Line, len(g.items))
		for j, it := range g.items {
			lines[i][j] = it.line()
		}
	}

	shares := allocation.Split(o.Summary(), lines, o.GSTRate)
	bills := make([]*Bill, len(groups))
	for i, g := range groups {
		sh := shares[i]
		bills[i] = &Bill{
			ID:             uuid.New().String(),
			OrderID:        o.ID,
			BuyerID:        o.BuyerID,
			SellerID:       g.sellerID,
			BillNumber:     number(g.sellerID, o.CreatedAt),
			Items:          g.items,
			TotalAmount:    sh.SubTotal,
			DiscountAmount: sh.LineDiscount,
			GSTAmount:      sh.GST,
			CouponAmount:   sh.Coupon,
			ShippingAmount: sh.Shipping,
			RoundOffAmount: sh.RoundOff,
			FinalAmount:    sh.Final,
			Status:         BillUnpaid,
			CreatedAt:      o.CreatedAt,
			UpdatedAt:      o.CreatedAt,
		}
	}
	return bills, nil
}
