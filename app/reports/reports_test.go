package reports

import (
	"bytes"
	"testing"

	"balancebot/m/v2/app/models"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func sampleReport(month int) *models.PeriodReport {
	return &models.PeriodReport{
		AccountLogin:   "acme",
		Organization:   "ООО Ромашка",
		Year:           2026,
		Month:          month,
		InitialBalance: decimal.RequireFromString("1150"),
		CurrentBalance: decimal.RequireFromString("1000"),
		TotalCharges:   decimal.RequireFromString("-300"),
		TotalPayments:  decimal.RequireFromString("150"),
		Rows: []models.ReportRow{
			{
				Label:   "10.08.2026",
				Objects: 5,
				Tariff:  decimal.RequireFromString("10"),
				Charge:  decimal.RequireFromString("-300"),
				Payment: decimal.RequireFromString("150"),
				Balance: decimal.RequireFromString("1000"),
			},
		},
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "Статистика_acme_Август_2026.xlsx", FileName(sampleReport(8), "xlsx"))
	assert.Equal(t, "Статистика_acme_2026.pdf", FileName(sampleReport(0), "pdf"))
}

func TestGenerateExcel(t *testing.T) {
	data, err := GenerateExcel(sampleReport(8))
	assert.NoError(t, err)
	assert.NotEmpty(t, data)
	// xlsx is a zip container
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestGeneratePDF(t *testing.T) {
	data, err := GeneratePDF(sampleReport(8))
	assert.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestCyrillicTranslator(t *testing.T) {
	tr, err := fpdf.UnicodeTranslator(bytes.NewReader(cp1251Map))
	assert.NoError(t, err)
	// cp1251: А=0xC0, к=0xEA, т=0xF2
	assert.Equal(t, "\xc0\xea\xf2", tr("Акт"))
	assert.Equal(t, "abc 123", tr("abc 123"))
}

func TestGeneratePDFYearly(t *testing.T) {
	data, err := GeneratePDF(sampleReport(0))
	assert.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestAmountCellBlanksZero(t *testing.T) {
	assert.Equal(t, "", amountCell(decimal.Zero))
	assert.Equal(t, "-300.00", amountCell(decimal.RequireFromString("-300")))
	assert.Equal(t, "", objectsCell(0))
	assert.Equal(t, "5", objectsCell(5))
}
