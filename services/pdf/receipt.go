package pdfsvc

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/canteraproject/cantera/core"
	"github.com/canteraproject/cantera/core/fee"
)

type receiptGenerator struct {
	schoolName string
}

var _ fee.ReceiptGenerator = (*receiptGenerator)(nil)

func NewReceiptGenerator() *receiptGenerator {
	return &receiptGenerator{schoolName: core.Conf.AppName}
}

// PaymentReceipt renders a one-page A5 receipt for a paid fee.
func (gen receiptGenerator) PaymentReceipt(f fee.Fee, studentName string) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, gen.schoolName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, "Payment receipt", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Receipt no.", f.ReceiptNumber},
		{"Student", studentName},
		{"Period", f.Period},
		{"Amount", fmt.Sprintf("%s %d", f.Currency, f.Amount)},
		{"Payment date", f.PaymentDate.Format("2006-01-02")},
	}
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(35, 7, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "This receipt certifies the payment of the fee above.", "", 1, "L", false, 0, "")

	var buff bytes.Buffer
	if err := pdf.Output(&buff); err != nil {
		return nil, errors.Wrap(err, "rendering receipt PDF")
	}
	return &buff, nil
}
