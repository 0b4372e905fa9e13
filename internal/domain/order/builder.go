package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/deepglam/marketplace-orders/internal/domain/allocation"
	"github.com/deepglam/marketplace-orders/internal/domain/buyer"
	"github.com/deepglam/marketplace-orders/internal/domain/product"
	"github.com/deepglam/marketplace-orders/internal/domain/seller"
)

const defaultItemName = "Item"

// Input bounds. A line of MaxQuantity at MaxAmount fits in int64, and with
// the subtotal and every charge capped at MaxAmount so does the final amount.
const (
	MaxAmount   int64 = 1_000_000_000_000
	MaxQuantity int64 = 1_000_000
)

var (
	maxDiscount = decimal.NewFromInt(100)
	maxGSTRate  = decimal.NewFromInt(100)
)

var tooLarge = fmt.Sprintf("must not exceed %d", MaxAmount)

// PlaceOrderRequest holds the normalized input for placing an order.
type PlaceOrderRequest struct {
	BuyerID   string
	StaffCode string
	Items     []ItemInput
	Shipping  ShippingAddress

	GSTRate        decimal.Decimal
	CouponAmount   int64
	ShippingAmount int64
	RoundOffAmount int64
	// BrandBreakdown is stored as given. When empty it is derived from the
	// line items.
	BrandBreakdown []BrandAmount

	// Actor is the identity placing the order, recorded in the audit log.
	Actor string
}

// ItemInput is a requested line item. Empty fields fall back to the
// referenced product.
type ItemInput struct {
	ProductID string
	SellerID  string
	Name      string
	Brand     string
	HSN       string
	Quantity  int64
	// Price is nil when the client did not send one.
	Price           *int64
	DiscountPercent decimal.Decimal
}

// draft is a fully validated order ready to be split and persisted.
type draft struct {
	order   *Order
	buyer   *buyer.Buyer
	sellers map[string]*seller.Seller
}

// build validates req against the directories and assembles the order. No
// writes happen here, so every failure leaves the store untouched.
func (s *Service) build(ctx context.Context, req PlaceOrderRequest) (*draft, error) {
	if strings.TrimSpace(req.BuyerID) == "" {
		return nil, ErrMissingBuyer
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := validateCharges(req); err != nil {
		return nil, err
	}

	b, err := s.buyers.GetByID(ctx, req.BuyerID)
	if err != nil {
		if errors.Is(err, buyer.ErrNotFound) {
			return nil, &NotFoundError{Kind: "buyer", ID: req.BuyerID}
		}
		return nil, errors.Wrap(err, "get buyer")
	}

	products, err := s.lookupProducts(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	items := make([]LineItem, len(req.Items))
	var subTotal int64
	for i, in := range req.Items {
		item, err := normalizeItem(i, in, products[in.ProductID])
		if err != nil {
			return nil, err
		}
		if subTotal += item.Total; subTotal > MaxAmount {
			return nil, &ValidationError{Field: "products", Reason: "order total " + tooLarge}
		}
		items[i] = item
	}

	sellers, err := s.lookupSellers(ctx, items)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Brand == "" {
			items[i].Brand = sellers[items[i].SellerID].BrandName
		}
	}

	shipping, err := shippingSnapshot(req.Shipping, b)
	if err != nil {
		return nil, err
	}

	lines := make([]allocation.Line, len(items))
	for i, it := range items {
		lines[i] = it.line()
	}
	sum := allocation.Summarize(lines, allocation.Charges{
		GSTRate:  req.GSTRate,
		Coupon:   req.CouponAmount,
		Shipping: req.ShippingAmount,
		RoundOff: req.RoundOffAmount,
	})

	breakdown := req.BrandBreakdown
	if len(breakdown) == 0 {
		breakdown = brandBreakdown(items)
	}

	now := s.now().UTC()
	o := &Order{
		ID:             uuid.New().String(),
		OrderNo:        NewOrderNumber(),
		BuyerID:        b.ID,
		StaffCode:      strings.TrimSpace(req.StaffCode),
		CreatedBy:      req.Actor,
		Shipping:       shipping,
		Items:          items,
		GSTRate:        req.GSTRate,
		TotalAmount:    sum.SubTotal,
		DiscountAmount: sum.LineDiscount,
		GSTAmount:      sum.GST,
		CouponAmount:   sum.Coupon,
		ShippingAmount: sum.Shipping,
		RoundOffAmount: sum.RoundOff,
		FinalAmount:    sum.Final,
		BrandBreakdown: breakdown,
		Status:         StatusConfirmed,
		PaymentStatus:  PaymentUnpaid,
		Logs: []LogEntry{{
			Action: StatusConfirmed.Action(),
			Note:   "order placed",
			By:     req.Actor,
			At:     now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	return &draft{order: o, buyer: b, sellers: sellers}, nil
}

func validateCharges(req PlaceOrderRequest) error {
	switch {
	case req.GSTRate.IsNegative() || req.GSTRate.GreaterThan(maxGSTRate):
		return &ValidationError{Field: "gstRate", Reason: "must be between 0 and 100"}
	case req.CouponAmount < 0:
		return &ValidationError{Field: "couponAmount", Reason: "must not be negative"}
	case req.CouponAmount > MaxAmount:
		return &ValidationError{Field: "couponAmount", Reason: tooLarge}
	case req.ShippingAmount < 0:
		return &ValidationError{Field: "shipping", Reason: "must not be negative"}
	case req.ShippingAmount > MaxAmount:
		return &ValidationError{Field: "shipping", Reason: tooLarge}
	case req.RoundOffAmount < -MaxAmount || req.RoundOffAmount > MaxAmount:
		return &ValidationError{Field: "roundOff", Reason: fmt.Sprintf("must be between -%d and %d", MaxAmount, MaxAmount)}
	}
	return nil
}

// lookupProducts fetches every referenced product in one batch.
func (s *Service) lookupProducts(ctx context.Context, items []ItemInput) (map[string]*product.Product, error) {
	var ids []string
	seen := make(map[string]struct{})
	for _, in := range items {
		if in.ProductID == "" {
			continue
		}
		if _, ok := seen[in.ProductID]; ok {
			continue
		}
		seen[in.ProductID] = struct{}{}
		ids = append(ids, in.ProductID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, &NotFoundError{Kind: "product", ID: id}
		}
	}
	return byID, nil
}

// lookupSellers resolves every distinct seller of items. A missing seller
// fails the whole placement.
func (s *Service) lookupSellers(ctx context.Context, items []LineItem) (map[string]*seller.Seller, error) {
	groups := groupBySeller(items)
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.sellerID
	}

	fetched, err := s.sellers.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get sellers")
	}
	byID := make(map[string]*seller.Seller, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, &NotFoundError{Kind: "seller", ID: id}
		}
	}
	return byID, nil
}

func normalizeItem(i int, in ItemInput, p *product.Product) (LineItem, error) {
	var fallback product.Product
	if p != nil {
		fallback = *p
	}

	item := LineItem{
		ProductID:       in.ProductID,
		SellerID:        firstNonEmpty(in.SellerID, fallback.SellerID),
		Name:            firstNonEmpty(in.Name, fallback.Name, defaultItemName),
		Brand:           firstNonEmpty(in.Brand, fallback.Brand),
		HSN:             firstNonEmpty(in.HSN, fallback.HSN),
		Quantity:        in.Quantity,
		Price:           fallback.Price,
		DiscountPercent: in.DiscountPercent,
	}
	if in.Price != nil {
		item.Price = *in.Price
	}

	field := func(name string) string { return fmt.Sprintf("products[%d].%s", i, name) }
	switch {
	case item.SellerID == "":
		return LineItem{}, &ValidationError{Field: field("sellerId"), Reason: "is required when productId does not resolve a seller"}
	case item.Quantity <= 0:
		return LineItem{}, &ValidationError{Field: field("quantity"), Reason: "must be greater than 0"}
	case item.Quantity > MaxQuantity:
		return LineItem{}, &ValidationError{Field: field("quantity"), Reason: fmt.Sprintf("must not exceed %d", MaxQuantity)}
	case item.Price < 0:
		return LineItem{}, &ValidationError{Field: field("price"), Reason: "must not be negative"}
	case item.Price > MaxAmount:
		return LineItem{}, &ValidationError{Field: field("price"), Reason: tooLarge}
	case item.DiscountPercent.IsNegative() || item.DiscountPercent.GreaterThan(maxDiscount):
		return LineItem{}, &ValidationError{Field: field("discountPercent"), Reason: "must be between 0 and 100"}
	}

	item.Total = item.Price * item.Quantity
	return item, nil
}

// shippingSnapshot copies the requested address, filling blanks from the
// buyer's shop address.
func shippingSnapshot(req ShippingAddress, b *buyer.Buyer) (ShippingAddress, error) {
	shop := b.ShopAddress
	out := ShippingAddress{
		FullAddress: firstNonEmpty(req.FullAddress, shop.String()),
		City:        firstNonEmpty(req.City, shop.City),
		State:       firstNonEmpty(req.State, shop.State),
		Pincode:     firstNonEmpty(req.Pincode, shop.PostalCode),
		Country:     firstNonEmpty(req.Country, shop.Country, DefaultCountry),
		Phone:       firstNonEmpty(req.Phone, b.Phone),
	}
	switch {
	case out.FullAddress == "":
		return ShippingAddress{}, &ValidationError{Field: "fullAddress", Reason: "is required"}
	case out.Pincode == "":
		return ShippingAddress{}, &ValidationError{Field: "pincode", Reason: "is required"}
	}
	return out, nil
}

// brandBreakdown sums the taxable value of items per brand, in order of first
// appearance.
func brandBreakdown(items []LineItem) []BrandAmount {
	idx := make(map[string]int)
	var brands []string
	var lines [][]allocation.Line
	for _, it := range items {
		i, ok := idx[it.Brand]
		if !ok {
			i = len(brands)
			idx[it.Brand] = i
			brands = append(brands, it.Brand)
			lines = append(lines, nil)
		}
		lines[i] = append(lines[i], it.line())
	}

	out := make([]BrandAmount, len(brands))
	for i, brand := range brands {
		out[i] = BrandAmount{
			Brand:  brand,
			Amount: allocation.Summarize(lines[i], allocation.Charges{}).Taxable,
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
