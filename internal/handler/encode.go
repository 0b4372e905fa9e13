package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/deepglam/marketplace-orders/internal/domain/address"
	"github.com/deepglam/marketplace-orders/internal/domain/buyer"
	"github.com/deepglam/marketplace-orders/internal/domain/order"
)

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.String()))
}

func encodeItems(e *jx.Encoder, items []order.LineItem) {
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		if it.ProductID != "" {
			e.FieldStart("productId")
			e.Str(it.ProductID)
		}
		e.FieldStart("sellerId")
		e.Str(it.SellerID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("brand")
		e.Str(it.Brand)
		e.FieldStart("hsn")
		e.Str(it.HSN)
		e.FieldStart("quantity")
		e.Int64(it.Quantity)
		e.FieldStart("price")
		e.Int64(it.Price)
		e.FieldStart("discountPercent")
		encodeDecimal(e, it.DiscountPercent)
		e.FieldStart("total")
		e.Int64(it.Total)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("orderNo")
	e.Str(o.OrderNo)
	e.FieldStart("buyerId")
	e.Str(o.BuyerID)
	e.FieldStart("staffCode")
	e.Str(o.StaffCode)
	e.FieldStart("createdBy")
	e.Str(o.CreatedBy)

	e.FieldStart("shippingAddress")
	e.ObjStart()
	e.FieldStart("fullAddress")
	e.Str(o.Shipping.FullAddress)
	e.FieldStart("city")
	e.Str(o.Shipping.City)
	e.FieldStart("state")
	e.Str(o.Shipping.State)
	e.FieldStart("pincode")
	e.Str(o.Shipping.Pincode)
	e.FieldStart("country")
	e.Str(o.Shipping.Country)
	e.FieldStart("phone")
	e.Str(o.Shipping.Phone)
	e.ObjEnd()

	e.FieldStart("products")
	encodeItems(e, o.Items)

	e.FieldStart("gstRate")
	encodeDecimal(e, o.GSTRate)
	for _, f := range []struct {
		name  string
		value int64
	}{
		{"totalAmount", o.TotalAmount},
		{"discountAmount", o.DiscountAmount},
		{"gstAmount", o.GSTAmount},
		{"couponAmount", o.CouponAmount},
		{"shippingAmount", o.ShippingAmount},
		{"roundOffAmount", o.RoundOffAmount},
		{"finalAmount", o.FinalAmount},
	} {
		e.FieldStart(f.name)
		e.Int64(f.value)
	}

	e.FieldStart("brandBreakdown")
	e.ArrStart()
	for _, b := range o.BrandBreakdown {
		e.ObjStart()
		e.FieldStart("brand")
		e.Str(b.Brand)
		e.FieldStart("amount")
		e.Int64(b.Amount)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("paymentStatus")
	e.Str(string(o.PaymentStatus))
	e.FieldStart("paidAmount")
	e.Int64(o.PaidAmount)
	e.FieldStart("isReturnRequested")
	e.Bool(o.IsReturnRequested)
	e.FieldStart("returnReason")
	e.Str(o.ReturnReason)

	e.FieldStart("dispatchInfo")
	if di := o.DispatchInfo; di != nil {
		e.ObjStart()
		e.FieldStart("courier")
		e.Str(di.Courier)
		e.FieldStart("awb")
		e.Str(di.AWB)
		e.FieldStart("note")
		e.Str(di.Note)
		e.FieldStart("at")
		encodeTime(e, di.At)
		e.FieldStart("by")
		e.Str(di.By)
		e.ObjEnd()
	} else {
		e.Null()
	}

	e.FieldStart("logs")
	e.ArrStart()
	for _, l := range o.Logs {
		e.ObjStart()
		e.FieldStart("action")
		e.Str(l.Action)
		e.FieldStart("note")
		e.Str(l.Note)
		e.FieldStart("by")
		e.Str(l.By)
		e.FieldStart("at")
		encodeTime(e, l.At)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, o.UpdatedAt)
	e.ObjEnd()
}

func encodeBill(e *jx.Encoder, b *order.Bill) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(b.ID)
	e.FieldStart("orderId")
	e.Str(b.OrderID)
	e.FieldStart("buyerId")
	e.Str(b.BuyerID)
	e.FieldStart("sellerId")
	e.Str(b.SellerID)
	e.FieldStart("billNumber")
	e.Str(b.BillNumber)
	e.FieldStart("items")
	encodeItems(e, b.Items)
	for _, f := range []struct {
		name  string
		value int64
	}{
		{"totalAmount", b.TotalAmount},
		{"discountAmount", b.DiscountAmount},
		{"gstAmount", b.GSTAmount},
		{"couponAmount", b.CouponAmount},
		{"shippingAmount", b.ShippingAmount},
		{"roundOffAmount", b.RoundOffAmount},
		{"finalAmount", b.FinalAmount},
	} {
		e.FieldStart(f.name)
		e.Int64(f.value)
	}
	e.FieldStart("status")
	e.Str(string(b.Status))
	e.FieldStart("pdfUrl")
	e.Str(b.PDFURL)
	e.FieldStart("createdAt")
	encodeTime(e, b.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, b.UpdatedAt)
	e.ObjEnd()
}

func encodeBills(e *jx.Encoder, bills []*order.Bill) {
	e.ArrStart()
	for _, b := range bills {
		encodeBill(e, b)
	}
	e.ArrEnd()
}

func encodeAddress(e *jx.Encoder, a address.Address) {
	e.ObjStart()
	e.FieldStart("line1")
	e.Str(a.Line1)
	e.FieldStart("line2")
	e.Str(a.Line2)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("state")
	e.Str(a.State)
	e.FieldStart("postalCode")
	e.Str(a.PostalCode)
	e.FieldStart("country")
	e.Str(a.Country)
	e.ObjEnd()
}

func encodeBuyer(e *jx.Encoder, b *buyer.Buyer) {
	if b == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("id")
	e.Str(b.ID)
	e.FieldStart("name")
	e.Str(b.Name)
	e.FieldStart("phone")
	e.Str(b.Phone)
	e.FieldStart("email")
	e.Str(b.Email)
	e.FieldStart("shopName")
	e.Str(b.ShopName)
	e.FieldStart("gstNumber")
	e.Str(b.GSTNumber)
	e.FieldStart("shopAddress")
	encodeAddress(e, b.ShopAddress)
	e.FieldStart("dueAmount")
	e.Int64(b.DueAmount)
	e.ObjEnd()
}
