// Package ledger reconstructs per-period billing statements from the raw
// usage and cashflow exports. The exports only carry daily movements, so the
// opening balance of a period is derived backwards from the current balance
// snapshot.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrNoData means the period has no charges and no payments at all.
var ErrNoData = errors.New("no activity for period")

// ErrInvalidPeriod means the requested year/month is outside the supported range.
var ErrInvalidPeriod = errors.New("invalid report period")

// Store is the slice of the data layer the engine needs.
type Store interface {
	GetAccountBalance(ctx context.Context, accountLogin string) (*models.AccountBalance, error)
	GetChargesForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyCharge, error)
	GetPaymentsForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyPayment, error)
	GetActivityTotalsForRange(ctx context.Context, accountLogin string, from, to time.Time) (decimal.Decimal, decimal.Decimal, error)
}

type Engine struct {
	Store Store
}

// Request describes one report. Month == 0 asks for the whole year.
type Request struct {
	Account string
	Year    int
	Month   int
}

func NewEngine(store Store) *Engine {
	return &Engine{Store: store}
}

// BuildReport assembles a period report. Charges are negative amounts,
// payments positive, so the balance walk is a plain sum in both directions:
// the opening balance is the current balance minus every movement between
// the period start and today, and the forward walk over in-scope movements
// lands back on the current balance when there is no gap.
func (e *Engine) BuildReport(ctx context.Context, req Request) (*models.PeriodReport, error) {
	now := time.Now()
	if err := validate(req, now); err != nil {
		return nil, err
	}

	months := monthsInScope(req, now)
	var charges []models.DailyCharge
	var payments []models.DailyPayment
	for _, m := range months {
		monthCharges, err := e.Store.GetChargesForMonth(ctx, req.Account, req.Year, m)
		if err != nil {
			return nil, fmt.Errorf("BuildReport: failed to load charges for %d-%02d: %w", req.Year, m, err)
		}
		monthPayments, err := e.Store.GetPaymentsForMonth(ctx, req.Account, req.Year, m)
		if err != nil {
			return nil, fmt.Errorf("BuildReport: failed to load payments for %d-%02d: %w", req.Year, m, err)
		}
		charges = append(charges, monthCharges...)
		payments = append(payments, monthPayments...)
	}
	if len(charges) == 0 && len(payments) == 0 {
		return nil, ErrNoData
	}

	currentBalance := decimal.Zero
	organization := ""
	snapshot, err := e.Store.GetAccountBalance(ctx, req.Account)
	if err == nil {
		currentBalance = models.ParseAmount(snapshot.Balance)
		organization = snapshot.Organization
	} else {
		logrus.WithError(err).WithField("account", req.Account).Warn("no balance snapshot, reporting from zero")
	}

	totalCharges := decimal.Zero
	for _, c := range charges {
		totalCharges = totalCharges.Add(c.Charge)
	}
	totalPayments := decimal.Zero
	for _, p := range payments {
		totalPayments = totalPayments.Add(p.Amount)
	}

	gapCharges, gapPayments, err := e.gapTotals(ctx, req, now)
	if err != nil {
		return nil, err
	}

	initial := currentBalance.
		Sub(totalCharges).Sub(gapCharges).
		Sub(totalPayments).Sub(gapPayments)

	report := &models.PeriodReport{
		AccountLogin:   req.Account,
		Organization:   organization,
		Year:           req.Year,
		Month:          req.Month,
		InitialBalance: initial,
		CurrentBalance: currentBalance,
		TotalCharges:   totalCharges,
		TotalPayments:  totalPayments,
	}
	if req.Month == 0 {
		report.Rows = yearlyRows(charges, payments, months, initial)
	} else {
		report.Rows = monthlyRows(charges, payments, req.Year, req.Month, initial)
	}
	return report, nil
}

func validate(req Request, now time.Time) error {
	if req.Year < config.CONFIG.StatisticsStartYear || req.Year > now.Year() {
		return ErrInvalidPeriod
	}
	if req.Month < 0 || req.Month > 12 {
		return ErrInvalidPeriod
	}
	if req.Month != 0 && req.Year == now.Year() && req.Month > int(now.Month()) {
		return ErrInvalidPeriod
	}
	return nil
}

// monthsInScope lists the months the report covers. A year report for the
// current year stops at the current month, future months have no rows yet.
func monthsInScope(req Request, now time.Time) []int {
	if req.Month != 0 {
		return []int{req.Month}
	}
	maxMonth := 12
	if req.Year == now.Year() {
		maxMonth = int(now.Month())
	}
	months := make([]int, 0, maxMonth)
	for m := 1; m <= maxMonth; m++ {
		months = append(months, m)
	}
	return months
}

// gapTotals sums the movements between the end of the reported period and
// today. Without them the derived opening balance would absorb activity that
// happened after the period.
func (e *Engine) gapTotals(ctx context.Context, req Request, now time.Time) (decimal.Decimal, decimal.Decimal, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var gapStart time.Time
	if req.Month == 0 {
		if req.Year >= now.Year() {
			return decimal.Zero, decimal.Zero, nil
		}
		gapStart = time.Date(req.Year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	} else {
		periodEnd := time.Date(req.Year, time.Month(req.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
		if !periodEnd.Before(today) {
			return decimal.Zero, decimal.Zero, nil
		}
		gapStart = periodEnd.AddDate(0, 0, 1)
	}
	// range query is [from, to), today itself counts
	gapCharges, gapPayments, err := e.Store.GetActivityTotalsForRange(ctx, req.Account, gapStart, today.AddDate(0, 0, 1))
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("gapTotals: failed to load range totals: %w", err)
	}
	return gapCharges, gapPayments, nil
}

// monthlyRows walks every calendar day of the month in order and emits a row
// only for days with movements. Balance is the running end-of-day balance.
func monthlyRows(charges []models.DailyCharge, payments []models.DailyPayment, year, month int, initial decimal.Decimal) []models.ReportRow {
	chargesByDay := make(map[int]models.DailyCharge, len(charges))
	for _, c := range charges {
		chargesByDay[c.Date.Day()] = c
	}
	paymentsByDay := make(map[int]decimal.Decimal, len(payments))
	for _, p := range payments {
		paymentsByDay[p.Date.Day()] = p.Amount
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	running := initial
	var rows []models.ReportRow
	for day := 1; day <= daysInMonth; day++ {
		charge, hasCharge := chargesByDay[day]
		payment, hasPayment := paymentsByDay[day]
		if !hasCharge && !hasPayment {
			continue
		}
		running = running.Add(payment).Add(charge.Charge)
		rows = append(rows, models.ReportRow{
			Label:   time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC).Format("02.01.2006"),
			Objects: charge.Objects,
			Tariff:  charge.Tariff,
			Charge:  charge.Charge,
			Payment: payment,
			Balance: running,
		})
	}
	return rows
}

// yearlyRows consolidates the movements per month and emits one row per
// in-scope month, including empty ones. Objects and tariff are the month's
// daily averages.
func yearlyRows(charges []models.DailyCharge, payments []models.DailyPayment, months []int, initial decimal.Decimal) []models.ReportRow {
	chargesByMonth := make(map[int][]models.DailyCharge)
	for _, c := range charges {
		m := int(c.Date.Month())
		chargesByMonth[m] = append(chargesByMonth[m], c)
	}
	paymentsByMonth := make(map[int]decimal.Decimal)
	for _, p := range payments {
		m := int(p.Date.Month())
		paymentsByMonth[m] = paymentsByMonth[m].Add(p.Amount)
	}

	running := initial
	rows := make([]models.ReportRow, 0, len(months))
	for _, m := range months {
		monthCharges := chargesByMonth[m]
		var objects int
		tariff := decimal.Zero
		charge := decimal.Zero
		if n := len(monthCharges); n > 0 {
			sumObjects := decimal.Zero
			for _, c := range monthCharges {
				sumObjects = sumObjects.Add(decimal.NewFromInt(int64(c.Objects)))
				tariff = tariff.Add(c.Tariff)
				charge = charge.Add(c.Charge)
			}
			count := decimal.NewFromInt(int64(n))
			objects = int(sumObjects.Div(count).Round(0).IntPart())
			tariff = tariff.Div(count).Round(2)
		}
		payment := paymentsByMonth[m]
		running = running.Add(payment).Add(charge)
		rows = append(rows, models.ReportRow{
			Label:   models.MonthNamesRu[time.Month(m)],
			Objects: objects,
			Tariff:  tariff,
			Charge:  charge,
			Payment: payment,
			Balance: running,
		})
	}
	return rows
}
