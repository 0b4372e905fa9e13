package invoice

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-pdf/fpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	pageMargin = 12.0
	lineHeight = 6.0
	dateLayout = "02 Jan 2006"
)

// itemColumns are the line item table columns and their widths in mm.
var itemColumns = []struct {
	title string
	width float64
	align string
}{
	{"#", 8, "C"},
	{"Item", 62, "L"},
	{"HSN", 20, "C"},
	{"Qty", 14, "R"},
	{"Price", 26, "R"},
	{"Disc %", 18, "R"},
	{"Amount", 38, "R"},
}

// Renderer draws invoice documents as PDF.
type Renderer struct {
	printer *message.Printer
}

// NewRenderer returns a Renderer formatting amounts for tag. An undefined
// tag uses Indian digit grouping.
func NewRenderer(tag language.Tag) *Renderer {
	if tag == language.Und {
		tag = language.MustParse("en-IN")
	}
	return &Renderer{printer: message.NewPrinter(tag)}
}

// RenderFile writes doc to <dir>/<bill number>.pdf and returns the path.
func (r *Renderer) RenderFile(ctx context.Context, doc Document, dir string) (_ string, rerr error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := fileName(doc.BillNumber)
	p := filepath.Join(dir, name)

	f, err := os.Create(p)
	if err != nil {
		return "", errors.Wrap(err, "create invoice file")
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrap(err, "close invoice file")
		}
	}()

	if err := r.Render(doc, f); err != nil {
		return "", err
	}
	return p, nil
}

// Render writes doc as a single PDF to w.
func (r *Renderer) Render(doc Document, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle("Invoice "+doc.BillNumber, true)
	pdf.SetCreator("marketplace-orders", true)
	if !doc.Date.IsZero() {
		pdf.SetCreationDate(doc.Date)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	r.header(pdf, tr, doc)
	r.billTo(pdf, tr, doc.BillTo)
	r.items(pdf, tr, doc)
	r.charges(pdf, doc.Charges)
	r.payment(pdf, tr, doc.Payment)

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "render invoice")
	}
	return nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	c := doc.Company
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(120, 8, tr(c.Name), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "TAX INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(120, 5, "GSTIN: "+tr(c.GSTNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Bill No: "+tr(doc.BillNumber), "", 1, "R", false, 0, "")
	pdf.CellFormat(120, 5, "Phone: "+tr(c.Phone), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Date: "+doc.Date.Format(dateLayout), "", 1, "R", false, 0, "")
	pdf.CellFormat(120, 5, "State: "+tr(c.State), "", 0, "L", false, 0, "")
	if doc.OrderNo != "" {
		pdf.CellFormat(0, 5, "Order: "+tr(doc.OrderNo), "", 0, "R", false, 0, "")
	}
	pdf.Ln(5)
	pdf.MultiCell(120, 5, tr(c.Address), "", "L", false)
	pdf.Ln(3)
}

func (r *Renderer) billTo(pdf *fpdf.Fpdf, tr func(string) string, p Party) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, lineHeight, "Bill To / Ship To", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)

	var lines []string
	if name := strings.TrimSpace(strings.Join(nonEmpty(p.ShopName, p.Name), " - ")); name != "" {
		lines = append(lines, name)
	}
	if p.GST != "" {
		lines = append(lines, "GSTIN: "+p.GST)
	}
	lines = append(lines, orDefault(p.Address, placeholder))
	if loc := strings.Join(nonEmpty(p.City, p.State, p.Pincode), ", "); loc != "" {
		lines = append(lines, loc)
	}
	if p.Phone != "" {
		lines = append(lines, "Phone: "+p.Phone)
	}
	for _, l := range lines {
		pdf.MultiCell(0, 5, tr(l), "", "L", false)
	}
	pdf.Ln(3)
}

func (r *Renderer) items(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for _, col := range itemColumns {
		pdf.CellFormat(col.width, lineHeight, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, it := range doc.Items {
		values := []string{
			r.printer.Sprintf("%d", i+1),
			tr(it.Name),
			tr(orDefault(it.HSN, placeholder)),
			r.printer.Sprintf("%d", it.Quantity),
			r.amount(it.Price),
			it.DiscountPercent.String(),
			r.amount(it.Total),
		}
		for j, col := range itemColumns {
			pdf.CellFormat(col.width, lineHeight, values[j], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)
}

func (r *Renderer) charges(pdf *fpdf.Fpdf, c Charges) {
	rows := []struct {
		label  string
		amount int64
		bold   bool
	}{
		{"Sub Total", c.SubTotal, false},
		{"Discount", -c.Discount, false},
		{"GST @ " + c.GSTRate.String() + "%", c.GST, false},
		{"Coupon", -c.Coupon, false},
		{"Shipping", c.Shipping, false},
		{"Round Off", c.RoundOff, false},
		{"Total Payable", c.Final, true},
	}
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(148, lineHeight, row.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(38, lineHeight, r.amount(row.amount), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func (r *Renderer) payment(pdf *fpdf.Fpdf, tr func(string) string, p Payment) {
	if p.empty() {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, lineHeight, "Payment Details", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, kv := range [][2]string{
		{"UPI", p.UPI},
		{"Account Name", p.AccountName},
		{"Bank", p.BankName},
		{"Account No", p.AccountNo},
		{"IFSC", p.IFSC},
	} {
		if kv[1] == "" {
			continue
		}
		pdf.CellFormat(35, 5, kv[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, tr(kv[1]), "", 1, "L", false, 0, "")
	}
}

// amount formats v with digit grouping, e.g. "Rs. 1,23,456".
func (r *Renderer) amount(v int64) string {
	if v < 0 {
		return r.printer.Sprintf("- Rs. %d", -v)
	}
	return r.printer.Sprintf("Rs. %d", v)
}

func fileName(billNumber string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, billNumber)
	if clean == "" {
		clean = "invoice"
	}
	return clean + ".pdf"
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
