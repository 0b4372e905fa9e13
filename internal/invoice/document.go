// Package invoice renders seller bills as PDF invoices and publishes them to
// a file store.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
)

const placeholder = "-"

// Company is the issuing seller block at the top of an invoice.
type Company struct {
	Name      string
	GSTNumber string
	Phone     string
	State     string
	Address   string
}

// Party is the buyer and delivery block.
type Party struct {
	Name     string
	ShopName string
	GST      string
	Address  string
	City     string
	State    string
	Pincode  string
	Phone    string
}

// Payment holds the bank and UPI details printed for settlement.
type Payment struct {
	UPI         string
	AccountName string
	BankName    string
	AccountNo   string
	IFSC        string
}

func (p Payment) empty() bool {
	return p.UPI == "" && p.AccountName == "" && p.BankName == "" && p.AccountNo == "" && p.IFSC == ""
}

// Charges are the allocated amounts of the bill.
type Charges struct {
	SubTotal int64
	Discount int64
	GSTRate  decimal.Decimal
	GST      int64
	Coupon   int64
	Shipping int64
	RoundOff int64
	Final    int64
}

// Document is everything printed on one invoice.
type Document struct {
	BillNumber string
	OrderNo    string
	Date       time.Time
	Company    Company
	BillTo     Party
	Items      []order.LineItem
	Charges    Charges
	Payment    Payment
}

// NewDocument assembles the printable document of one bill.
func NewDocument(inv order.Invoice, payment Payment) Document {
	doc := Document{
		BillNumber: inv.Bill.BillNumber,
		Date:       inv.Bill.CreatedAt,
		Items:      inv.Bill.Items,
		Payment:    payment,
		Company: Company{
			Name:      "My Brand",
			GSTNumber: placeholder,
			Phone:     placeholder,
			State:     placeholder,
			Address:   placeholder,
		},
		Charges: Charges{
			SubTotal: inv.Bill.TotalAmount,
			Discount: inv.Bill.DiscountAmount,
			GST:      inv.Bill.GSTAmount,
			Coupon:   inv.Bill.CouponAmount,
			Shipping: inv.Bill.ShippingAmount,
			RoundOff: inv.Bill.RoundOffAmount,
			Final:    inv.Bill.FinalAmount,
		},
	}

	if s := inv.Seller; s != nil {
		doc.Company = Company{
			Name:      orDefault(s.BrandName, "My Brand"),
			GSTNumber: orDefault(s.GSTNumber, placeholder),
			Phone:     orDefault(s.Phone, placeholder),
			State:     orDefault(s.FullAddress.State, placeholder),
			Address:   orDefault(s.FullAddress.String(), placeholder),
		}
	}

	if o := inv.Order; o != nil {
		doc.OrderNo = o.OrderNo
		doc.Charges.GSTRate = o.GSTRate
		doc.BillTo = Party{
			Address: o.Shipping.FullAddress,
			City:    o.Shipping.City,
			State:   o.Shipping.State,
			Pincode: o.Shipping.Pincode,
			Phone:   o.Shipping.Phone,
		}
	}
	if b := inv.Buyer; b != nil {
		doc.BillTo.Name = b.Name
		doc.BillTo.ShopName = b.ShopName
		doc.BillTo.GST = b.GSTNumber
		doc.BillTo.Phone = orDefault(doc.BillTo.Phone, b.Phone)
	}
	return doc
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
