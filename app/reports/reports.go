// Package reports renders period reports («Акт сверки расчётов») as Excel
// and PDF files ready to be sent as telegram documents.
package reports

import (
	"fmt"
	"time"

	"balancebot/m/v2/app/models"

	"github.com/shopspring/decimal"
)

const (
	reportTitle       = "Акт сверки расчётов за период"
	totalsTitle       = "Итого за период:"
	totalChargesLabel = "Сумма списаний:"
	totalPaymentLabel = "Сумма поступлений:"
)

var tableHeaders = []string{
	"Дата",
	"Кол-во Активных\nобъектов, шт",
	"Тариф за 1 объект\nв сутки, руб",
	"Сумма Списания,\nруб",
	"Сумма Поступлений,\nруб",
	"Остаток баланса\nна конец дня, руб",
}

// FileName builds the document name sent to the chat, ext without a dot.
func FileName(report *models.PeriodReport, ext string) string {
	if report.Month == 0 {
		return fmt.Sprintf("Статистика_%s_%d.%s", report.AccountLogin, report.Year, ext)
	}
	monthName := models.MonthNamesRu[time.Month(report.Month)]
	return fmt.Sprintf("Статистика_%s_%s_%d.%s", report.AccountLogin, monthName, report.Year, ext)
}

// amountCell formats a monetary cell, zero renders blank like the upstream acts.
func amountCell(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.StringFixed(2)
}

func objectsCell(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}
