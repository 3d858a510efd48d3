// Package receipt renders a closed session's invoice as a printable PDF
// slip with a QR code carrying the session id.
package receipt

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/gamenethq/gamenet-pos/internal/model"
)

var deviceTypeLabels = map[model.DeviceType]string{
	model.DevicePC:          "PC",
	model.DevicePlaystation: "PlayStation",
	model.DeviceBilliard:    "Billiard",
	model.DeviceOther:       "Other",
}

// Render produces an 80mm receipt-printer style PDF for the invoice.
func Render(inv *model.Invoice) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: 80, Ht: 200},
	})
	pdf.SetMargins(6, 8, 6)
	pdf.SetAutoPageBreak(true, 8)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 6, "Session Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 4, fmt.Sprintf("%s (%s)", inv.DeviceName, label(inv.DeviceType)), "", 1, "C", false, 0, "")
	if inv.CustomerName != nil && *inv.CustomerName != "" {
		pdf.CellFormat(0, 4, "Customer: "+*inv.CustomerName, "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 4, fmt.Sprintf("%s - %s",
		inv.StartTime.Format("2006-01-02 15:04"),
		inv.EndTime.Format("15:04"),
	), "", 1, "C", false, 0, "")
	pdf.Ln(2)
	divider(pdf)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(0, 5, "Device usage", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	line(pdf, "Duration", formatDuration(inv.TotalSeconds))
	line(pdf, "Hourly rate", formatAmount(inv.HourlyRate))
	line(pdf, "Device cost", formatAmount(inv.DeviceCost))

	if len(inv.Lines) > 0 {
		pdf.Ln(1)
		divider(pdf)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 5, "Buffet", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		for _, l := range inv.Lines {
			line(pdf, fmt.Sprintf("%s x%d", l.ProductName, l.Quantity), formatAmount(l.TotalPrice))
		}
		line(pdf, "Buffet total", formatAmount(inv.BuffetTotal))
	}

	pdf.Ln(1)
	divider(pdf)
	pdf.SetFont("Helvetica", "B", 10)
	line(pdf, "Total", formatAmount(inv.GrandTotal))
	pdf.Ln(3)

	qr, err := qrcode.Encode(inv.SessionID, qrcode.Low, 256)
	if err != nil {
		return nil, err
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("session_qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("session_qr", (80-22)/2, pdf.GetY(), 22, 22, false, opts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func label(t model.DeviceType) string {
	if l, ok := deviceTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

func line(pdf *gofpdf.Fpdf, name, value string) {
	pdf.CellFormat(44, 5, name, "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, value, "", 1, "R", false, 0, "")
}

func divider(pdf *gofpdf.Fpdf) {
	x, y := pdf.GetXY()
	pdf.Line(6, y, 74, y)
	pdf.SetXY(x, y+1)
}

func formatAmount(v int64) string {
	s := fmt.Sprintf("%d", v)
	if v < 0 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}

func formatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	sec := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, sec)
	}
	return fmt.Sprintf("%ds", sec)
}
