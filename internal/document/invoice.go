package document

import (
	"bytes"
	"fmt"
	"strings"

	"storefront/internal/domain/model"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// InvoiceRenderer draws order invoices as A4 PDFs.
type InvoiceRenderer struct {
	SellerName string
}

func NewInvoiceRenderer(sellerName string) *InvoiceRenderer {
	return &InvoiceRenderer{SellerName: sellerName}
}

func rupees(v float64) string {
	return "Rs. " + decimal.NewFromFloat(v).StringFixed(2)
}

// Render returns the PDF bytes for o. A waybill QR is added when the order has one.
func (r *InvoiceRenderer) Render(o model.Order) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+o.ID, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, r.SellerName+" - Tax Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, "Order: "+o.ID)
	pdf.Ln(6)
	pdf.Cell(0, 7, "Date: "+o.CreatedAt.Format("2006-01-02"))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Payment: %s (%s)", o.PaymentMethod, paidLabel(o)))
	pdf.Ln(6)
	pdf.Cell(0, 7, "Status: "+string(o.Status))
	pdf.Ln(10)

	if a := o.ShippingAddress; a != nil {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 7, "Ship to")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 11)
		for _, line := range addressLines(*a) {
			pdf.Cell(0, 6, line)
			pdf.Ln(5)
		}
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Size", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 8, "Unit", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Amount", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, it := range o.Items {
		line := decimal.NewFromFloat(it.UnitPrice).Mul(decimal.NewFromInt(int64(it.Quantity)))
		pdf.CellFormat(90, 8, it.ProductName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, it.Size, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprint(it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, rupees(it.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, rupees(line.InexactFloat64()), "1", 1, "R", false, 0, "")
	}

	totals := []struct {
		label string
		value float64
	}{
		{"Items", o.ItemsPrice},
		{"Shipping", o.ShippingPrice},
		{"Tax", o.TaxPrice},
		{"Total", o.TotalPrice},
	}
	for i, t := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Arial", "B", 11)
		}
		pdf.CellFormat(160, 8, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, rupees(t.value), "", 1, "R", false, 0, "")
	}

	if o.HasWaybill() {
		png, err := qrcode.Encode(o.Waybill(), qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("waybill qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("waybill", opts, bytes.NewReader(png))
		y := pdf.GetY() + 6
		pdf.ImageOptions("waybill", 15, y, 35, 35, false, opts, 0, "")
		pdf.SetXY(55, y+14)
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(0, 7, "Waybill: "+o.Waybill())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", o.ID, err)
	}
	return buf.Bytes(), nil
}

func paidLabel(o model.Order) string {
	if o.IsPaid {
		return "paid"
	}
	return "unpaid"
}

func addressLines(a model.ShippingAddress) []string {
	lines := []string{a.Name, a.Line1}
	if a.Line2 != "" {
		lines = append(lines, a.Line2)
	}
	lines = append(lines, strings.TrimSpace(fmt.Sprintf("%s, %s %s", a.City, a.State, a.PostalCode)))
	if a.Country != "" {
		lines = append(lines, a.Country)
	}
	if a.Phone != "" {
		lines = append(lines, "Phone: "+a.Phone)
	}
	return lines
}
