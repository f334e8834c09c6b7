package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonthNamesRu maps month numbers to the Russian labels used in reports.
var MonthNamesRu = map[time.Month]string{
	time.January:   "Январь",
	time.February:  "Февраль",
	time.March:     "Март",
	time.April:     "Апрель",
	time.May:       "Май",
	time.June:      "Июнь",
	time.July:      "Июль",
	time.August:    "Август",
	time.September: "Сентябрь",
	time.October:   "Октябрь",
	time.November:  "Ноябрь",
	time.December:  "Декабрь",
}

// DailyCharge is one row of the usage-export ledger: the total debit for one
// account on one calendar day. Charge is zero or negative.
type DailyCharge struct {
	Date    time.Time
	Objects int
	Tariff  decimal.Decimal
	Charge  decimal.Decimal
}

// DailyPayment is the summed balance top-up credited to one account on one
// calendar day. Amount is zero or positive.
type DailyPayment struct {
	Date   time.Time
	Amount decimal.Decimal
}

// ReportRow is one emitted line of a period report: a day for month reports,
// a month for year reports.
type ReportRow struct {
	Label   string
	Objects int
	Tariff  decimal.Decimal
	Charge  decimal.Decimal
	Payment decimal.Decimal
	Balance decimal.Decimal
}

// PeriodReport is the aggregation engine output consumed by the renderers.
// Month == 0 means a full-year report. Never persisted, recomputed per request.
type PeriodReport struct {
	AccountLogin   string
	Organization   string
	Year           int
	Month          int
	InitialBalance decimal.Decimal
	CurrentBalance decimal.Decimal
	Rows           []ReportRow
	TotalCharges   decimal.Decimal
	TotalPayments  decimal.Decimal
}

// PeriodLabel returns "Январь 2026" for month reports and "2026" for year reports.
func (r *PeriodReport) PeriodLabel() string {
	if r.Month == 0 {
		return fmt.Sprintf("%d", r.Year)
	}
	return fmt.Sprintf("%s %d", MonthNamesRu[time.Month(r.Month)], r.Year)
}
