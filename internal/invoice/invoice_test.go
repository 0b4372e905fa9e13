package invoice

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/deepglam/marketplace-orders/internal/domain/address"
	"github.com/deepglam/marketplace-orders/internal/domain/buyer"
	"github.com/deepglam/marketplace-orders/internal/domain/order"
	"github.com/deepglam/marketplace-orders/internal/domain/seller"
	"github.com/deepglam/marketplace-orders/internal/filestore"
)

func sampleInvoice() order.Invoice {
	created := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)
	return order.Invoice{
		Order: &order.Order{
			OrderNo: "ORD-01J0000000000000000000000",
			GSTRate: decimal.NewFromInt(5),
			Shipping: order.ShippingAddress{
				FullAddress: "12 Station Road",
				City:        "Jaipur",
				State:       "RJ",
				Pincode:     "302006",
			},
		},
		Bill: &order.Bill{
			BillNumber: "BILL-1770712200000-LERA-01ABCDEF",
			Items: []order.LineItem{
				{Name: "Kurta", HSN: "6204", Quantity: 2, Price: 1000, DiscountPercent: decimal.NewFromInt(10), Total: 2000},
			},
			TotalAmount:    2000,
			DiscountAmount: 200,
			GSTAmount:      90,
			CouponAmount:   157,
			FinalAmount:    1733,
			CreatedAt:      created,
		},
		Buyer: &buyer.Buyer{Name: "Asha", ShopName: "Asha Stores", Phone: "9800000001", GSTNumber: "08ABCDE1234F1Z5"},
		Seller: &seller.Seller{
			BrandName: "Aarna",
			GSTNumber: "27AAAAA0000A1Z5",
			FullAddress: address.Address{
				Line1: "Plot 4", City: "Surat", State: "GJ", PostalCode: "395003",
			},
		},
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(sampleInvoice(), Payment{UPI: "shop@upi"})

	assert.Equal(t, Company{
		Name:      "Aarna",
		GSTNumber: "27AAAAA0000A1Z5",
		Phone:     "-",
		State:     "GJ",
		Address:   "Plot 4, Surat, GJ, 395003",
	}, doc.Company)
	assert.Equal(t, Party{
		Name:     "Asha",
		ShopName: "Asha Stores",
		GST:      "08ABCDE1234F1Z5",
		Address:  "12 Station Road",
		City:     "Jaipur",
		State:    "RJ",
		Pincode:  "302006",
		Phone:    "9800000001",
	}, doc.BillTo)
	assert.Equal(t, int64(1733), doc.Charges.Final)
	assert.True(t, decimal.NewFromInt(5).Equal(doc.Charges.GSTRate))
	assert.Equal(t, "shop@upi", doc.Payment.UPI)
}

func TestNewDocument_MissingSeller(t *testing.T) {
	inv := sampleInvoice()
	inv.Seller = nil

	doc := NewDocument(inv, Payment{})
	assert.Equal(t, "My Brand", doc.Company.Name)
	assert.Equal(t, "-", doc.Company.GSTNumber)
}

func TestRender(t *testing.T) {
	r := NewRenderer(language.Und)

	var buf bytes.Buffer
	require.NoError(t, r.Render(NewDocument(sampleInvoice(), Payment{UPI: "shop@upi", IFSC: "HDFC0000001"}), &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderer_Amount(t *testing.T) {
	r := NewRenderer(language.English)
	assert.Equal(t, "Rs. 2,215", r.amount(2215))
	assert.Equal(t, "- Rs. 157", r.amount(-157))
	assert.Equal(t, "Rs. 0", r.amount(0))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "BILL-1-AB-XYZ.pdf", fileName("BILL-1-AB-XYZ"))
	assert.Equal(t, "a_b_c.pdf", fileName("a/b c"))
	assert.Equal(t, "invoice.pdf", fileName(""))
}

type failingStore struct{}

func (failingStore) Upload(context.Context, string, filestore.UploadOptions) (filestore.Object, error) {
	return filestore.Object{}, errors.New("bucket unavailable")
}

func TestPublisher_Publish(t *testing.T) {
	uploads := t.TempDir()
	store, err := filestore.NewLocal(uploads, "/uploads")
	require.NoError(t, err)

	tmp := t.TempDir()
	p := NewPublisher(NewRenderer(language.Und), store, PublisherConfig{TempDir: tmp})

	url, err := p.Publish(context.Background(), sampleInvoice())
	require.NoError(t, err)
	assert.Equal(t, "/uploads/invoices/BILL-1770712200000-LERA-01ABCDEF.pdf", url)

	data, err := os.ReadFile(filepath.Join(uploads, "invoices", "BILL-1770712200000-LERA-01ABCDEF.pdf"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))

	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestPublisher_UploadFailure(t *testing.T) {
	tmp := t.TempDir()
	p := NewPublisher(NewRenderer(language.Und), failingStore{}, PublisherConfig{TempDir: tmp})

	_, err := p.Publish(context.Background(), sampleInvoice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")

	left, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestPublisher_RequiresBill(t *testing.T) {
	p := NewPublisher(NewRenderer(language.Und), failingStore{}, PublisherConfig{})
	_, err := p.Publish(context.Background(), order.Invoice{})
	require.Error(t, err)
}
