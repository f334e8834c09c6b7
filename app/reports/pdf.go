package reports

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"balancebot/m/v2/app/models"

	"github.com/go-pdf/fpdf"
)

var pdfColumnWidths = []float64{33, 28, 30, 30, 31, 38}

// fpdf only embeds cp1250/cp1252 descriptors, so the cp1251 one is carried
// here and fed to the translator directly.
//
//go:embed cp1251.map
var cp1251Map []byte

// GeneratePDF renders one reconciliation act as a PDF. Core fonts only, the
// Cyrillic text goes through the cp1251 translator.
func GeneratePDF(report *models.PeriodReport) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 20)
	tr, err := fpdf.UnicodeTranslator(bytes.NewReader(cp1251Map))
	if err != nil {
		return nil, fmt.Errorf("GeneratePDF: failed to load cp1251 descriptor: %w", err)
	}
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, tr(reportTitle), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, tr("Аккаунт: "+report.AccountLogin), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, tr("Организация:"), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(report.Organization), "", 1, "L", false, 0, "")

	periodField := "Период:"
	if report.Month == 0 {
		periodField = "Год:"
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(30, 6, tr(periodField), "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(report.PeriodLabel()), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range tableHeaders {
		// header cells are single-line in the PDF grid
		flat := strings.ReplaceAll(header, "\n", " ")
		pdf.CellFormat(pdfColumnWidths[i], 10, tr(flat), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range report.Rows {
		values := []string{
			row.Label,
			objectsCell(row.Objects),
			amountCell(row.Tariff),
			amountCell(row.Charge),
			amountCell(row.Payment),
			row.Balance.StringFixed(2),
		}
		for i, value := range values {
			align := "R"
			if i == 0 {
				align = "C"
			}
			pdf.CellFormat(pdfColumnWidths[i], 6, tr(value), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, tr(totalsTitle), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s %s руб", totalChargesLabel, report.TotalCharges.StringFixed(2))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s %s руб", totalPaymentLabel, report.TotalPayments.StringFixed(2))), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("GeneratePDF: failed to render: %w", err)
	}
	return buf.Bytes(), nil
}
