package handler

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
)

var (
	defaultGSTRate = decimal.NewFromInt(5)
	errNotArray    = errors.New("not an array of objects")
)

// parsePlaceOrder decodes a placement body. Field decoding is lenient: only
// structurally broken JSON is rejected here; semantic checks belong to the
// order service.
func parsePlaceOrder(data []byte) (order.PlaceOrderRequest, error) {
	req := order.PlaceOrderRequest{GSTRate: defaultGSTRate}
	var productsErr error

	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "buyerId":
			req.BuyerID, err = readString(d)
		case "staffCode":
			req.StaffCode, err = readString(d)
		case "fullAddress":
			req.Shipping.FullAddress, err = readString(d)
		case "city":
			req.Shipping.City, err = readString(d)
		case "state":
			req.Shipping.State, err = readString(d)
		case "pincode":
			req.Shipping.Pincode, err = readString(d)
		case "country":
			req.Shipping.Country, err = readString(d)
		case "buyerPhone":
			req.Shipping.Phone, err = readString(d)
		case "gstRate":
			var v decimal.Decimal
			var ok bool
			if v, ok, err = readDecimal(d); ok {
				req.GSTRate = v
			}
		case "couponAmount":
			req.CouponAmount, _, err = readAmount(d)
		case "shipping":
			req.ShippingAmount, _, err = readAmount(d)
		case "roundOff":
			req.RoundOffAmount, _, err = readAmount(d)
		case "products":
			req.Items, err = readItems(d)
			if errors.Is(err, errNotArray) || errors.Is(err, errEmbedded) {
				productsErr = err
				err = nil
			}
		case "brandBreakdown":
			req.BrandBreakdown, err = readBrandBreakdown(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return order.PlaceOrderRequest{}, errInvalidJSON
	}
	if productsErr != nil {
		return order.PlaceOrderRequest{}, &order.ValidationError{Field: "products", Reason: "must be a JSON array"}
	}
	return req, nil
}

// readItems reads the products array, accepting it embedded in a string.
// A value that is not an array of objects is reported through errNotArray
// after being consumed, so decoding of the enclosing object can continue.
func readItems(d *jx.Decoder) ([]order.ItemInput, error) {
	var (
		items    []order.ItemInput
		notArray bool
	)
	err := readEmbedded(d, func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.Array:
		case jx.Null:
			return d.Null()
		default:
			notArray = true
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			if d.Next() != jx.Object {
				notArray = true
				return d.Skip()
			}
			item, err := readItem(d)
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	})
	switch {
	case err != nil:
		return nil, err
	case notArray:
		return nil, errNotArray
	}
	return items, nil
}

func readItem(d *jx.Decoder) (order.ItemInput, error) {
	item := order.ItemInput{Quantity: 1}
	var (
		qtySet      bool
		discountSet bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId", "_id":
			var v string
			if v, err = readString(d); v != "" && item.ProductID == "" {
				item.ProductID = v
			}
		case "sellerId", "seller":
			var v string
			if v, err = readString(d); v != "" && item.SellerID == "" {
				item.SellerID = v
			}
		case "name", "productname":
			var v string
			if v, err = readString(d); v != "" && item.Name == "" {
				item.Name = v
			}
		case "brand":
			item.Brand, err = readString(d)
		case "hsn", "hsnCode":
			var v string
			if v, err = readString(d); v != "" && item.HSN == "" {
				item.HSN = v
			}
		case "quantity", "qty":
			var v int64
			var ok bool
			if v, ok, err = readAmount(d); ok && (!qtySet || key == "quantity") {
				item.Quantity = v
				qtySet = true
			}
		case "price":
			var v int64
			var ok bool
			if v, ok, err = readAmount(d); ok {
				item.Price = &v
			}
		case "discountPercent", "disc":
			var v decimal.Decimal
			if v, _, err = readDecimal(d); !v.IsZero() && !discountSet {
				item.DiscountPercent = v
				discountSet = true
			}
		default:
			err = d.Skip()
		}
		return err
	})
	return item, err
}

func readBrandBreakdown(d *jx.Decoder) ([]order.BrandAmount, error) {
	var out []order.BrandAmount
	err := readEmbedded(d, func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.Array:
			return d.Arr(func(d *jx.Decoder) error {
				var ba order.BrandAmount
				if d.Next() != jx.Object {
					return d.Skip()
				}
				err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "brand":
						ba.Brand, err = readString(d)
					case "amount":
						ba.Amount, _, err = readAmount(d)
					default:
						err = d.Skip()
					}
					return err
				})
				if err == nil && ba.Brand != "" {
					out = append(out, ba)
				}
				return err
			})
		case jx.Object:
			// {"brand": amount} map form.
			return d.Obj(func(d *jx.Decoder, key string) error {
				amount, _, err := readAmount(d)
				if err == nil && key != "" {
					out = append(out, order.BrandAmount{Brand: key, Amount: amount})
				}
				return err
			})
		default:
			return d.Skip()
		}
	})
	return out, err
}

type statusRequest struct {
	Status  string
	Note    string
	Reason  string
	Courier string
	AWB     string
}

func parseStatusRequest(data []byte) (statusRequest, error) {
	var req statusRequest
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			req.Status, err = readString(d)
		case "note":
			req.Note, err = readString(d)
		case "reason":
			req.Reason, err = readString(d)
		case "courier":
			req.Courier, err = readString(d)
		case "awb":
			req.AWB, err = readString(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return statusRequest{}, errInvalidJSON
	}
	return req, nil
}

type paymentRequest struct {
	Status     string
	PaidAmount int64
}

func parsePaymentRequest(data []byte) (paymentRequest, error) {
	var req paymentRequest
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			req.Status, err = readString(d)
		case "paidAmount":
			req.PaidAmount, _, err = readAmount(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return paymentRequest{}, errInvalidJSON
	}
	return req, nil
}

func parseReturnRequest(data []byte) (string, error) {
	var reason string
	err := decodeObject(data, func(d *jx.Decoder, key string) error {
		if key != "reason" {
			return d.Skip()
		}
		var err error
		reason, err = readString(d)
		return err
	})
	if err != nil {
		return "", errInvalidJSON
	}
	return reason, nil
}
