//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

const testAPIKey = "integration-test-key"

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// twoSellerOrder buys 2 kurtas from Aarna (1000 each) and 1 stole from Bela (500).
func twoSellerOrder() placeOrderRequest {
	return placeOrderRequest{
		BuyerID:   "buyer-asha",
		StaffCode: "ST-01",
		GSTRate:   5,
		Products: []orderItemRequest{
			{ProductID: "prod-aarna-kurta", Quantity: 2},
			{ProductID: "prod-bela-stole", Quantity: 1},
		},
	}
}

func placeOrder(t *testing.T, req placeOrderRequest) placeOrderResponse {
	t.Helper()

	resp := doPostWithAuth(t, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body := decodeJSON[errorResponse](t, resp)
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body.Message)
	}
	return decodeJSON[placeOrderResponse](t, resp)
}

func getOrder(t *testing.T, id string) orderDetailResponse {
	t.Helper()

	resp := doGetWithAuth(t, "/api/orders/"+id)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	return decodeJSON[orderDetailResponse](t, resp)
}

func TestPlaceOrder_NoAuth(t *testing.T) {
	resp := doPost(t, "/api/orders", twoSellerOrder())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_InvalidKey(t *testing.T) {
	resp := doPostWithAuth(t, "/api/orders", twoSellerOrder(), "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*placeOrderRequest)
		status int
	}{
		{"empty products", func(r *placeOrderRequest) { r.Products = nil }, http.StatusBadRequest},
		{"missing buyer", func(r *placeOrderRequest) { r.BuyerID = "" }, http.StatusBadRequest},
		{"zero quantity", func(r *placeOrderRequest) { r.Products[0].Quantity = -1 }, http.StatusBadRequest},
		{"unknown buyer", func(r *placeOrderRequest) { r.BuyerID = "buyer-nobody" }, http.StatusNotFound},
		{"unknown product", func(r *placeOrderRequest) { r.Products[0].ProductID = "prod-missing" }, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := twoSellerOrder()
			tt.mutate(&req)

			resp := doPostWithAuth(t, "/api/orders", req, testAPIKey)
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			body := decodeJSON[errorResponse](t, resp)
			if body.Message == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestPlaceOrder_SplitsBillsPerSeller(t *testing.T) {
	before := getBuyerDue(t)

	res := placeOrder(t, twoSellerOrder())

	if res.Message != "Order placed & multiple bills generated" {
		t.Errorf("message: got %q", res.Message)
	}
	if !uuidPattern.MatchString(res.Order.ID) {
		t.Errorf("order ID %q is not a valid UUID", res.Order.ID)
	}
	if res.Order.CreatedBy != "Integration" {
		t.Errorf("createdBy: got %q, want %q", res.Order.CreatedBy, "Integration")
	}
	if res.Order.TotalAmount != 2500 || res.Order.GSTAmount != 125 || res.Order.FinalAmount != 2625 {
		t.Errorf("order totals: got total=%d gst=%d final=%d, want 2500/125/2625",
			res.Order.TotalAmount, res.Order.GSTAmount, res.Order.FinalAmount)
	}
	if res.Order.Status != "confirmed" || res.Order.PaymentStatus != "unpaid" {
		t.Errorf("initial state: got %s/%s", res.Order.Status, res.Order.PaymentStatus)
	}

	if len(res.Bills) != 2 {
		t.Fatalf("expected 2 bills, got %d", len(res.Bills))
	}
	want := map[string]int64{"seller-aarna": 2100, "seller-bela": 525}
	var sum int64
	for _, b := range res.Bills {
		if b.OrderID != res.Order.ID {
			t.Errorf("bill %s: orderId %q, want %q", b.ID, b.OrderID, res.Order.ID)
		}
		if b.BillNumber == "" {
			t.Errorf("bill %s has no bill number", b.ID)
		}
		if got := b.FinalAmount; got != want[b.SellerID] {
			t.Errorf("bill for %s: final %d, want %d", b.SellerID, got, want[b.SellerID])
		}
		for _, it := range b.Items {
			if it.SellerID != b.SellerID {
				t.Errorf("bill for %s carries item of %s", b.SellerID, it.SellerID)
			}
		}
		sum += b.FinalAmount
	}
	if sum != res.Order.FinalAmount {
		t.Errorf("bill finals sum to %d, order final is %d", sum, res.Order.FinalAmount)
	}

	if after := getBuyerDue(t); after-before != res.Order.FinalAmount {
		t.Errorf("buyer due grew by %d, want %d", after-before, res.Order.FinalAmount)
	}
}

func TestPlaceOrder_InvoicesServed(t *testing.T) {
	res := placeOrder(t, twoSellerOrder())

	d := getOrder(t, res.Order.ID)
	if len(d.Bills) != 2 {
		t.Fatalf("expected 2 bills, got %d", len(d.Bills))
	}
	for _, b := range d.Bills {
		if b.PDFURL == "" {
			t.Errorf("bill %s has no invoice", b.BillNumber)
			continue
		}
		resp := doGet(t, b.PDFURL)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d", b.PDFURL, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("GET %s: content type %q", b.PDFURL, ct)
		}
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGetWithAuth(t, "/api/orders/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestListOrders_BySeller(t *testing.T) {
	res := placeOrder(t, placeOrderRequest{
		BuyerID: "buyer-kiran",
		GSTRate: 5,
		Products: []orderItemRequest{
			{ProductID: "prod-chitra-saree", Quantity: 1},
		},
	})

	resp := doGetWithAuth(t, "/api/orders?sellerId=seller-chitra&buyerId=buyer-kiran")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	list := decodeJSON[orderListResponse](t, resp)

	found := false
	for _, o := range list.Orders {
		if o.BuyerID != "buyer-kiran" {
			t.Errorf("order %s belongs to %s", o.ID, o.BuyerID)
		}
		found = found || o.ID == res.Order.ID
	}
	if !found {
		t.Errorf("order %s missing from seller listing", res.Order.ID)
	}
}

func TestOrderLifecycle(t *testing.T) {
	res := placeOrder(t, twoSellerOrder())
	id := res.Order.ID

	resp := doPutWithAuth(t, "/api/orders/status/"+id, map[string]string{
		"status":  "dispatched",
		"courier": "Delhivery",
		"awb":     "AWB123",
	})
	msg := decodeJSON[orderMessageResponse](t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status update: expected 200, got %d", resp.StatusCode)
	}
	if msg.Message != "Order marked as dispatched" {
		t.Errorf("message: got %q", msg.Message)
	}
	if msg.Order.DispatchInfo == nil || msg.Order.DispatchInfo.AWB != "AWB123" {
		t.Errorf("dispatch info not recorded: %+v", msg.Order.DispatchInfo)
	}

	resp = doPutWithAuth(t, "/api/orders/payment/"+id, map[string]any{
		"status":     "partial",
		"paidAmount": 1000,
	})
	msg = decodeJSON[orderMessageResponse](t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("payment update: expected 200, got %d", resp.StatusCode)
	}
	if msg.Order.PaymentStatus != "partial" || msg.Order.PaidAmount != 1000 {
		t.Errorf("payment: got %s/%d, want partial/1000", msg.Order.PaymentStatus, msg.Order.PaidAmount)
	}

	resp = doPutWithAuth(t, "/api/orders/return/"+id, map[string]string{"reason": "damaged"})
	msg = decodeJSON[orderMessageResponse](t, resp)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("return: expected 200, got %d", resp.StatusCode)
	}
	if !msg.Order.IsReturnRequested || msg.Order.ReturnReason != "damaged" {
		t.Errorf("return not recorded: %v %q", msg.Order.IsReturnRequested, msg.Order.ReturnReason)
	}

	d := getOrder(t, id)
	if len(d.Order.Logs) == 0 {
		t.Fatal("expected audit log entries")
	}
	for _, l := range d.Order.Logs {
		if l.By != "Integration" {
			t.Errorf("log %q by %q, want Integration", l.Action, l.By)
		}
	}
}

func TestUpdateStatus_Invalid(t *testing.T) {
	res := placeOrder(t, twoSellerOrder())

	resp := doPutWithAuth(t, "/api/orders/status/"+res.Order.ID, map[string]string{"status": "teleported"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// getBuyerDue reads buyer-asha's outstanding balance through any of their orders.
func getBuyerDue(t *testing.T) int64 {
	t.Helper()

	resp := doGetWithAuth(t, "/api/orders?buyerId=buyer-asha&limit=1")
	list := decodeJSON[orderListResponse](t, resp)
	resp.Body.Close()
	if len(list.Orders) == 0 {
		return 0
	}
	return getOrder(t, list.Orders[0].ID).Buyer.DueAmount
}
