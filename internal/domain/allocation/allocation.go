// Package allocation computes order totals and distributes order-level charges
// across the sellers participating in an order.
//
// All amounts are integer minor currency units. Every value is rounded to an
// integer at the point it is allocated; the rounding residue of a split is
// absorbed by the last seller so that per-seller final amounts always sum to
// the order final amount.
package allocation

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Line is the arithmetic view of a single line item.
type Line struct {
	Price           int64
	Quantity        int64
	DiscountPercent decimal.Decimal
}

// Gross returns price × quantity.
func (l Line) Gross() int64 {
	return l.Price * l.Quantity
}

// Charges holds the order-level inputs that are not attached to any line.
type Charges struct {
	GSTRate  decimal.Decimal
	Coupon   int64
	Shipping int64
	RoundOff int64
}

// Summary holds the amounts derived for a set of lines, either a whole order
// or one seller's share of it.
type Summary struct {
	SubTotal     int64
	LineDiscount int64
	Taxable      int64
	GST          int64
	Coupon       int64
	Shipping     int64
	RoundOff     int64
	Final        int64
}

// Summarize computes the order-level totals for lines and applies charges in
// full.
func Summarize(lines []Line, ch Charges) Summary {
	sub, disc := subTotal(lines), lineDiscount(lines)
	taxable := sub - disc
	s := Summary{
		SubTotal:     sub,
		LineDiscount: disc,
		Taxable:      taxable,
		GST:          gst(taxable, ch.GSTRate),
		Coupon:       ch.Coupon,
		Shipping:     ch.Shipping,
		RoundOff:     ch.RoundOff,
	}
	s.Final = s.final()
	return s
}

// Split distributes order across groups, one group per seller, in the order
// given. Line discount and GST are computed from each group's own lines, so
// no bill shows a negative discount or tax. Coupon, shipping and round-off
// are shared in proportion to each group's taxable value, or equally when the
// order's taxable value is zero. The last group receives order value minus
// the sum of the others for coupon and shipping, and its round-off absorbs
// the rest, including the difference between per-group and order-level
// discount and GST rounding. Final amounts therefore reconcile exactly with
// order.
func Split(order Summary, groups [][]Line, rate decimal.Decimal) []Summary {
	n := len(groups)
	if n == 0 {
		return nil
	}

	out := make([]Summary, n)
	var acc Summary
	for i, lines := range groups {
		s := Summary{SubTotal: subTotal(lines), LineDiscount: lineDiscount(lines)}
		s.Taxable = s.SubTotal - s.LineDiscount
		s.GST = gst(s.Taxable, rate)

		if i == n-1 {
			s.Coupon = order.Coupon - acc.Coupon
			s.Shipping = order.Shipping - acc.Shipping
			s.Final = order.Final - acc.Final
			s.RoundOff = s.Final - s.final()
			out[i] = s
			break
		}

		s.Coupon = share(order.Coupon, s.Taxable, order.Taxable, n)
		s.Shipping = share(order.Shipping, s.Taxable, order.Taxable, n)
		s.RoundOff = share(order.RoundOff, s.Taxable, order.Taxable, n)
		s.Final = s.final()
		out[i] = s

		acc.Coupon += s.Coupon
		acc.Shipping += s.Shipping
		acc.Final += s.Final
	}
	return out
}

func (s Summary) final() int64 {
	return s.Taxable + s.GST - s.Coupon + s.Shipping + s.RoundOff
}

// share returns amount × part / whole rounded to an integer, or amount / n
// when whole is zero.
func share(amount, part, whole int64, n int) int64 {
	if amount == 0 {
		return 0
	}
	a := decimal.NewFromInt(amount)
	if whole == 0 {
		return a.Div(decimal.NewFromInt(int64(n))).Round(0).IntPart()
	}
	return a.Mul(decimal.NewFromInt(part)).Div(decimal.NewFromInt(whole)).Round(0).IntPart()
}

func subTotal(lines []Line) int64 {
	var sum int64
	for _, l := range lines {
		sum += l.Gross()
	}
	return sum
}

// lineDiscount sums the exact per-line discounts and rounds once.
func lineDiscount(lines []Line) int64 {
	sum := decimal.Zero
	for _, l := range lines {
		if l.DiscountPercent.IsZero() {
			continue
		}
		sum = sum.Add(decimal.NewFromInt(l.Gross()).Mul(l.DiscountPercent))
	}
	return sum.Div(hundred).Round(0).IntPart()
}

func gst(taxable int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(taxable).Mul(rate).Div(hundred).Round(0).IntPart()
}
