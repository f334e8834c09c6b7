package mongo

import (
	"context"
	"fmt"
	"time"

	"balancebot/m/v2/app/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const dateLayout = "2006-01-02"

// topUpCategory marks cashflow rows that are account payments, everything
// else in the collection is internal movements and is ignored.
const topUpCategory = "Пополнение счёта"

type chargeRow struct {
	AccountLogin string `bson:"account_login"`
	Date         string `bson:"date"`
	Objects      int    `bson:"objects"`
	Tariff       string `bson:"tariff"`
	Amount       string `bson:"amount"`
}

type cashflowRow struct {
	AccountLogin string `bson:"account_login"`
	Date         string `bson:"date"`
	Category     string `bson:"category"`
	Amount       string `bson:"amount"`
}

// monthBounds returns [first day of month, first day of next month) as
// dateLayout strings. Stored dates are ISO so string compare is date compare.
func monthBounds(year, month int) (string, string) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from.Format(dateLayout), from.AddDate(0, 1, 0).Format(dateLayout)
}

// GetChargesForMonth returns per-day charge rows for one account, ascending by
// date. Amounts are decoded here so callers never see raw strings.
func (c *Client) GetChargesForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyCharge, error) {
	from, to := monthBounds(year, month)
	filter := bson.M{
		"account_login": accountLogin,
		"date":          bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.M{"date": 1})
	cursor, err := c.collection("charges").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("GetChargesForMonth: failed to scan charges: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []chargeRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("GetChargesForMonth: failed to decode charges: %w", err)
	}
	return decodeChargeRows(rows, accountLogin), nil
}

func decodeChargeRows(rows []chargeRow, accountLogin string) []models.DailyCharge {
	charges := make([]models.DailyCharge, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse(dateLayout, row.Date)
		if err != nil {
			// one mangled export row must not take the whole month down
			log.Warnf("decodeChargeRows: skipping row with bad date %q for %s", row.Date, accountLogin)
			continue
		}
		charges = append(charges, models.DailyCharge{
			Date:    date,
			Objects: row.Objects,
			Tariff:  models.ParseAmount(row.Tariff),
			Charge:  models.ParseAmount(row.Amount),
		})
	}
	return charges
}

// GetPaymentsForMonth returns per-day payment totals for one account,
// ascending by date. Only top-up cashflow rows count, same-day rows are
// summed into one entry.
func (c *Client) GetPaymentsForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyPayment, error) {
	from, to := monthBounds(year, month)
	filter := bson.M{
		"account_login": accountLogin,
		"category":      topUpCategory,
		"date":          bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.M{"date": 1})
	cursor, err := c.collection("cashflow").Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("GetPaymentsForMonth: failed to scan cashflow: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []cashflowRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("GetPaymentsForMonth: failed to decode cashflow: %w", err)
	}
	return decodePaymentRows(rows, accountLogin), nil
}

func decodePaymentRows(rows []cashflowRow, accountLogin string) []models.DailyPayment {
	var payments []models.DailyPayment
	for _, row := range rows {
		date, err := time.Parse(dateLayout, row.Date)
		if err != nil {
			log.Warnf("decodePaymentRows: skipping row with bad date %q for %s", row.Date, accountLogin)
			continue
		}
		amount := models.ParseAmount(row.Amount)
		if n := len(payments); n > 0 && payments[n-1].Date.Equal(date) {
			payments[n-1].Amount = payments[n-1].Amount.Add(amount)
			continue
		}
		payments = append(payments, models.DailyPayment{Date: date, Amount: amount})
	}
	return payments
}

// GetActivityTotalsForRange sums charges and top-up payments for one account
// over [from, to). Used for gap correction between the report period and now.
func (c *Client) GetActivityTotalsForRange(ctx context.Context, accountLogin string, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	charges := decimal.Zero
	payments := decimal.Zero
	if !from.Before(to) {
		return charges, payments, nil
	}
	dateFilter := bson.M{"$gte": from.Format(dateLayout), "$lt": to.Format(dateLayout)}

	cursor, err := c.collection("charges").Find(ctx, bson.M{
		"account_login": accountLogin,
		"date":          dateFilter,
	})
	if err != nil {
		return charges, payments, fmt.Errorf("GetActivityTotalsForRange: failed to scan charges: %w", err)
	}
	var chargeRows []chargeRow
	if err := cursor.All(ctx, &chargeRows); err != nil {
		return charges, payments, fmt.Errorf("GetActivityTotalsForRange: failed to decode charges: %w", err)
	}
	for _, row := range chargeRows {
		charges = charges.Add(models.ParseAmount(row.Amount))
	}

	cursor, err = c.collection("cashflow").Find(ctx, bson.M{
		"account_login": accountLogin,
		"category":      topUpCategory,
		"date":          dateFilter,
	})
	if err != nil {
		return charges, payments, fmt.Errorf("GetActivityTotalsForRange: failed to scan cashflow: %w", err)
	}
	var cashflowRows []cashflowRow
	if err := cursor.All(ctx, &cashflowRows); err != nil {
		return charges, payments, fmt.Errorf("GetActivityTotalsForRange: failed to decode cashflow: %w", err)
	}
	for _, row := range cashflowRows {
		payments = payments.Add(models.ParseAmount(row.Amount))
	}

	return charges, payments, nil
}
