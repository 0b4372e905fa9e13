package handler

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepglam/marketplace-orders/internal/domain/order"
)

func ptr[T any](v T) *T { return &v }

func TestParsePlaceOrder_Fields(t *testing.T) {
	req, err := parsePlaceOrder([]byte(`{
		"buyerId": " buyer-1 ",
		"staffCode": 42,
		"fullAddress": "12 Residency Road",
		"city": "Jaipur",
		"state": "RJ",
		"pincode": 302001,
		"country": "India",
		"buyerPhone": "9800000001",
		"gstRate": "12",
		"couponAmount": 199.5,
		"shipping": "40",
		"roundOff": -0.4,
		"brandBreakdown": {"Aarna": 1000, "Bela": "500"},
		"unknown": {"nested": [1, 2, 3]},
		"products": [{"productId": "p-a"}]
	}`))
	require.NoError(t, err)

	assert.Equal(t, "buyer-1", req.BuyerID)
	assert.Equal(t, "42", req.StaffCode)
	assert.Equal(t, order.ShippingAddress{
		FullAddress: "12 Residency Road",
		City:        "Jaipur",
		State:       "RJ",
		Pincode:     "302001",
		Country:     "India",
		Phone:       "9800000001",
	}, req.Shipping)
	assert.True(t, decimal.NewFromInt(12).Equal(req.GSTRate))
	assert.Equal(t, int64(200), req.CouponAmount)
	assert.Equal(t, int64(40), req.ShippingAmount)
	assert.Equal(t, int64(0), req.RoundOffAmount)
	assert.Equal(t, []order.BrandAmount{{Brand: "Aarna", Amount: 1000}, {Brand: "Bela", Amount: 500}}, req.BrandBreakdown)
	assert.Equal(t, []order.ItemInput{{ProductID: "p-a", Quantity: 1}}, req.Items)
}

func TestParsePlaceOrder_GSTRate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want decimal.Decimal
	}{
		{name: "absent defaults", body: `{}`, want: decimal.NewFromInt(5)},
		{name: "null defaults", body: `{"gstRate": null}`, want: decimal.NewFromInt(5)},
		{name: "zero is kept", body: `{"gstRate": 0}`, want: decimal.Zero},
		{name: "fractional", body: `{"gstRate": 2.5}`, want: decimal.RequireFromString("2.5")},
		{name: "non numeric coerces to zero", body: `{"gstRate": "abc"}`, want: decimal.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parsePlaceOrder([]byte(tt.body))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(req.GSTRate), "got %s", req.GSTRate)
		})
	}
}

func TestParsePlaceOrder_ItemAliases(t *testing.T) {
	tests := []struct {
		name string
		item string
		want order.ItemInput
	}{
		{
			name: "canonical names",
			item: `{"productId":"p1","sellerId":"s1","name":"Kurta","brand":"Aarna","hsn":"6204","quantity":3,"price":1000,"discountPercent":10}`,
			want: order.ItemInput{ProductID: "p1", SellerID: "s1", Name: "Kurta", Brand: "Aarna", HSN: "6204", Quantity: 3, Price: ptr(int64(1000)), DiscountPercent: decimal.NewFromInt(10)},
		},
		{
			name: "legacy names",
			item: `{"_id":"p1","seller":"s1","productname":"Kurta","hsnCode":6204,"qty":"2","price":"999.5","disc":"7.5"}`,
			want: order.ItemInput{ProductID: "p1", SellerID: "s1", Name: "Kurta", HSN: "6204", Quantity: 2, Price: ptr(int64(1000)), DiscountPercent: decimal.RequireFromString("7.5")},
		},
		{
			name: "quantity wins over qty",
			item: `{"quantity":4,"qty":9}`,
			want: order.ItemInput{Quantity: 4},
		},
		{
			name: "quantity wins regardless of order",
			item: `{"qty":9,"quantity":4}`,
			want: order.ItemInput{Quantity: 4},
		},
		{
			name: "null price means absent",
			item: `{"productId":"p1","price":null}`,
			want: order.ItemInput{ProductID: "p1", Quantity: 1},
		},
		{
			name: "zero price is explicit",
			item: `{"productId":"p1","price":0}`,
			want: order.ItemInput{ProductID: "p1", Quantity: 1, Price: ptr(int64(0))},
		},
		{
			name: "non numeric quantity coerces to zero",
			item: `{"quantity":"many"}`,
			want: order.ItemInput{Quantity: 0},
		},
		{
			name: "oversized numbers saturate",
			item: `{"price":99999999999999999999999,"quantity":"1e30"}`,
			want: order.ItemInput{Quantity: math.MaxInt64, Price: ptr(int64(math.MaxInt64))},
		},
		{
			name: "zero discount falls through to alias",
			item: `{"discountPercent":0,"disc":5}`,
			want: order.ItemInput{Quantity: 1, DiscountPercent: decimal.NewFromInt(5)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parsePlaceOrder([]byte(`{"products":[` + tt.item + `]}`))
			require.NoError(t, err)
			require.Len(t, req.Items, 1)

			got := req.Items[0]
			assert.True(t, tt.want.DiscountPercent.Equal(got.DiscountPercent), "discount %s", got.DiscountPercent)
			got.DiscountPercent, tt.want.DiscountPercent = decimal.Zero, decimal.Zero
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePlaceOrder_AmountsSaturate(t *testing.T) {
	req, err := parsePlaceOrder([]byte(`{
		"couponAmount": 1e30,
		"shipping": 4611686018427387904,
		"roundOff": "-1e30"
	}`))
	require.NoError(t, err)

	assert.Equal(t, int64(math.MaxInt64), req.CouponAmount)
	assert.Equal(t, int64(1<<62), req.ShippingAmount)
	assert.Equal(t, int64(math.MinInt64), req.RoundOffAmount)
}

func TestParsePlaceOrder_EmbeddedProducts(t *testing.T) {
	req, err := parsePlaceOrder([]byte(`{"products":"[{\"productId\":\"p1\",\"qty\":2},{\"productId\":\"p2\"}]"}`))
	require.NoError(t, err)
	require.Len(t, req.Items, 2)
	assert.Equal(t, "p1", req.Items[0].ProductID)
	assert.Equal(t, int64(2), req.Items[0].Quantity)
	assert.Equal(t, "p2", req.Items[1].ProductID)
}

func TestParsePlaceOrder_ProductsRejected(t *testing.T) {
	for _, body := range []string{
		`{"products": 5}`,
		`{"products": {"productId": "p1"}}`,
		`{"products": [1, 2]}`,
		`{"products": "not json"}`,
		`{"products": "[{\"productId\": }]"}`,
	} {
		t.Run(body, func(t *testing.T) {
			_, err := parsePlaceOrder([]byte(body))
			var ve *order.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "products", ve.Field)
		})
	}
}

func TestParsePlaceOrder_MissingProducts(t *testing.T) {
	for _, body := range []string{`{}`, `{"products": null}`, `{"products": []}`} {
		req, err := parsePlaceOrder([]byte(body))
		require.NoError(t, err, body)
		assert.Empty(t, req.Items, body)
	}
}

func TestParsePlaceOrder_InvalidJSON(t *testing.T) {
	for _, body := range []string{``, `null`, `"x"`, `{"buyerId": }`, `{"products": [`} {
		_, err := parsePlaceOrder([]byte(body))
		assert.ErrorIs(t, err, errInvalidJSON, body)
	}
}

func TestParseBrandBreakdown_List(t *testing.T) {
	req, err := parsePlaceOrder([]byte(`{"brandBreakdown":[{"brand":"Aarna","amount":"250"},{"amount":5},"junk",{"brand":"Bela"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []order.BrandAmount{{Brand: "Aarna", Amount: 250}, {Brand: "Bela"}}, req.BrandBreakdown)
}

func TestParseStatusRequest(t *testing.T) {
	req, err := parseStatusRequest([]byte(`{"status":"returned","reason":"damaged","note":"n","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, statusRequest{Status: "returned", Reason: "damaged", Note: "n"}, req)

	_, err = parseStatusRequest([]byte(`nope`))
	assert.ErrorIs(t, err, errInvalidJSON)
}

func TestParsePaymentRequest(t *testing.T) {
	req, err := parsePaymentRequest([]byte(`{"status":"partial","paidAmount":"1500.6"}`))
	require.NoError(t, err)
	assert.Equal(t, paymentRequest{Status: "partial", PaidAmount: 1501}, req)
}

func TestParseReturnRequest(t *testing.T) {
	reason, err := parseReturnRequest([]byte(`{"reason":"wrong size","status":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, "wrong size", reason)

	reason, err = parseReturnRequest([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, reason)
}
