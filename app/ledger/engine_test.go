package ledger

import (
	"context"
	"testing"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/db/mongo"
	"balancebot/m/v2/app/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/undefinedlabs/go-mpatch"
)

func setupEngineTest(t *testing.T) (*Engine, *mongo.MockMongoClient) {
	config.CONFIG = &config.Config{
		StatisticsStartYear: 2026,
		DefaultUTCOffset:    3,
	}
	patch, err := mpatch.PatchMethod(time.Now, func() time.Time {
		return time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)
	})
	assert.NoError(t, err)
	t.Cleanup(func() { patch.Unpatch() })

	mock := mongo.NewMockMongoClient()
	return NewEngine(mock), mock
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestBuildReportInitialBalance(t *testing.T) {
	engine, mock := setupEngineTest(t)
	mock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "1 000,00", Organization: "ООО Ромашка"}
	mock.Charges = []models.DailyCharge{
		{Date: day(2026, time.August, 10), Objects: 5, Tariff: dec("10"), Charge: dec("-300")},
	}
	mock.Payments = []models.DailyPayment{
		{Date: day(2026, time.August, 12), Amount: dec("150")},
	}

	report, err := engine.BuildReport(context.Background(), Request{Account: "acme", Year: 2026, Month: 8})
	assert.NoError(t, err)
	assert.Equal(t, "1150", report.InitialBalance.String())
	assert.Equal(t, "1000", report.CurrentBalance.String())
	assert.Equal(t, "ООО Ромашка", report.Organization)

	// forward walk over all in-scope movements must land on the current balance
	last := report.Rows[len(report.Rows)-1]
	assert.Equal(t, report.CurrentBalance.String(), last.Balance.String())
}

func TestBuildReportMonthlyRowsAreSparse(t *testing.T) {
	engine, mock := setupEngineTest(t)
	mock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "500,00"}
	mock.Charges = []models.DailyCharge{
		{Date: day(2026, time.August, 3), Objects: 4, Tariff: dec("12.5"), Charge: dec("-50")},
		{Date: day(2026, time.August, 20), Objects: 4, Tariff: dec("12.5"), Charge: dec("-50")},
	}
	mock.Payments = []models.DailyPayment{
		{Date: day(2026, time.August, 3), Amount: dec("200")},
	}

	report, err := engine.BuildReport(context.Background(), Request{Account: "acme", Year: 2026, Month: 8})
	assert.NoError(t, err)
	assert.Len(t, report.Rows, 2, "days without movements are skipped")
	assert.Equal(t, "03.08.2026", report.Rows[0].Label)
	assert.Equal(t, "20.08.2026", report.Rows[1].Label)

	// initial = 500 - (-100) - 200 = 400; day 3: 400+200-50=550; day 20: 550-50=500
	assert.Equal(t, "400", report.InitialBalance.String())
	assert.Equal(t, "550", report.Rows[0].Balance.String())
	assert.Equal(t, "500", report.Rows[1].Balance.String())
	assert.Equal(t, "-100", report.TotalCharges.String())
	assert.Equal(t, "200", report.TotalPayments.String())
}

func TestBuildReportGapCorrection(t *testing.T) {
	engine, mock := setupEngineTest(t)
	mock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "900,00"}
	mock.Charges = []models.DailyCharge{
		// reported month
		{Date: day(2026, time.July, 5), Objects: 2, Tariff: dec("10"), Charge: dec("-100")},
		// gap between the period and today
		{Date: day(2026, time.August, 10), Objects: 2, Tariff: dec("10"), Charge: dec("-40")},
	}
	mock.Payments = []models.DailyPayment{
		{Date: day(2026, time.August, 15), Amount: dec("60")},
	}

	report, err := engine.BuildReport(context.Background(), Request{Account: "acme", Year: 2026, Month: 7})
	assert.NoError(t, err)
	// initial = 900 - (-100) - (-40) - 0 - 60 = 980
	assert.Equal(t, "980", report.InitialBalance.String())
	// walk covers only July: 980 - 100 = 880
	assert.Equal(t, "880", report.Rows[len(report.Rows)-1].Balance.String())
}

func TestBuildReportYearlyRowsAreDense(t *testing.T) {
	engine, mock := setupEngineTest(t)
	mock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "0,00"}
	mock.Charges = []models.DailyCharge{
		{Date: day(2026, time.February, 1), Objects: 3, Tariff: dec("10"), Charge: dec("-30")},
		{Date: day(2026, time.February, 2), Objects: 4, Tariff: dec("11"), Charge: dec("-44")},
	}
	mock.Payments = []models.DailyPayment{
		{Date: day(2026, time.May, 9), Amount: dec("74")},
	}

	report, err := engine.BuildReport(context.Background(), Request{Account: "acme", Year: 2026, Month: 0})
	assert.NoError(t, err)
	// clock is pinned to August, year report for the current year stops there
	assert.Len(t, report.Rows, 8)
	assert.Equal(t, "Январь", report.Rows[0].Label)
	assert.Equal(t, "Август", report.Rows[7].Label)

	february := report.Rows[1]
	assert.Equal(t, 4, february.Objects, "3.5 objects round up")
	assert.Equal(t, "10.5", february.Tariff.String())
	assert.Equal(t, "-74", february.Charge.String())

	may := report.Rows[4]
	assert.Equal(t, "74", may.Payment.String())
	assert.True(t, may.Charge.IsZero())

	// empty months still get a row carrying the running balance
	january := report.Rows[0]
	assert.True(t, january.Charge.IsZero())
	assert.Equal(t, report.InitialBalance.String(), january.Balance.String())
}

func TestBuildReportNoData(t *testing.T) {
	engine, mock := setupEngineTest(t)
	mock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "100,00"}

	_, err := engine.BuildReport(context.Background(), Request{Account: "acme", Year: 2026, Month: 3})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestBuildReportMissingSnapshotReportsFromZero(t *testing.T) {
	engine, mock := setupEngineTest(t)
	mock.Charges = []models.DailyCharge{
		{Date: day(2026, time.August, 1), Objects: 1, Tariff: dec("10"), Charge: dec("-10")},
	}

	report, err := engine.BuildReport(context.Background(), Request{Account: "ghost", Year: 2026, Month: 8})
	assert.NoError(t, err)
	assert.Equal(t, "10", report.InitialBalance.String())
	assert.True(t, report.CurrentBalance.IsZero())
}

func TestBuildReportInvalidPeriods(t *testing.T) {
	engine, _ := setupEngineTest(t)
	ctx := context.Background()

	_, err := engine.BuildReport(ctx, Request{Account: "acme", Year: 2025, Month: 1})
	assert.ErrorIs(t, err, ErrInvalidPeriod, "years before the statistics start are rejected")

	_, err = engine.BuildReport(ctx, Request{Account: "acme", Year: 2027, Month: 1})
	assert.ErrorIs(t, err, ErrInvalidPeriod, "future years are rejected")

	_, err = engine.BuildReport(ctx, Request{Account: "acme", Year: 2026, Month: 13})
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = engine.BuildReport(ctx, Request{Account: "acme", Year: 2026, Month: 11})
	assert.ErrorIs(t, err, ErrInvalidPeriod, "future months of the current year are rejected")
}
