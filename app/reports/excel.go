package reports

import (
	"bytes"
	"fmt"

	"balancebot/m/v2/app/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Акт сверки"

var columnWidths = []float64{21, 18, 18, 17, 18, 22}

// GenerateExcel renders one reconciliation act as an xlsx workbook.
func GenerateExcel(report *models.PeriodReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("GenerateExcel: failed to rename sheet: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return nil, fmt.Errorf("GenerateExcel: failed to build style: %w", err)
	}
	labelStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 11}})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thinBorder(),
	})
	cellStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorder(),
	})

	f.SetCellValue(sheetName, "A1", reportTitle)
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetCellValue(sheetName, "A2", "Аккаунт: "+report.AccountLogin)

	f.SetCellValue(sheetName, "A4", "Организация:")
	f.SetCellStyle(sheetName, "A4", "A4", labelStyle)
	f.SetCellValue(sheetName, "B4", report.Organization)

	periodField := "Период:"
	if report.Month == 0 {
		periodField = "Год:"
	}
	f.SetCellValue(sheetName, "A6", periodField)
	f.SetCellStyle(sheetName, "A6", "A6", labelStyle)
	f.SetCellValue(sheetName, "B6", report.PeriodLabel())

	for col, header := range tableHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 8)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	rowNum := 9
	for _, row := range report.Rows {
		values := []string{
			row.Label,
			objectsCell(row.Objects),
			amountCell(row.Tariff),
			amountCell(row.Charge),
			amountCell(row.Payment),
			row.Balance.StringFixed(2),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			f.SetCellValue(sheetName, cell, value)
			f.SetCellStyle(sheetName, cell, cell, cellStyle)
		}
		rowNum++
	}

	rowNum++
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), totalsTitle)
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("A%d", rowNum), labelStyle)
	rowNum++
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), totalChargesLabel)
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), report.TotalCharges.StringFixed(2))
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), "руб")
	rowNum++
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", rowNum), totalPaymentLabel)
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", rowNum), report.TotalPayments.StringFixed(2))
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", rowNum), "руб")

	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, width)
	}

	// portrait A4, whole act on one page
	a4 := 9
	portrait := "portrait"
	one := 1
	f.SetPageLayout(sheetName, &excelize.PageLayoutOptions{
		Size:        &a4,
		Orientation: &portrait,
		FitToWidth:  &one,
		FitToHeight: &one,
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("GenerateExcel: failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}
}
