package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDecodeChargeRowsSkipsBadDates(t *testing.T) {
	rows := []chargeRow{
		{AccountLogin: "acme", Date: "2026-08-03", Objects: 5, Tariff: "10,00", Amount: "-50,00"},
		{AccountLogin: "acme", Date: "не дата", Objects: 5, Tariff: "10,00", Amount: "-50,00"},
		{AccountLogin: "acme", Date: "2026-08-20", Objects: 4, Tariff: "р.10,00", Amount: "-40,00"},
	}

	charges := decodeChargeRows(rows, "acme")
	assert.Len(t, charges, 2, "a mangled row is dropped, the rest of the month survives")
	assert.Equal(t, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC), charges[0].Date)
	assert.Equal(t, "-50", charges[0].Charge.String())
	assert.Equal(t, "10", charges[1].Tariff.String())
}

func TestDecodePaymentRowsSkipsBadDatesAndSumsSameDay(t *testing.T) {
	rows := []cashflowRow{
		{AccountLogin: "acme", Date: "2026-08-05", Amount: "100,00"},
		{AccountLogin: "acme", Date: "2026-08-05", Amount: "50,00"},
		{AccountLogin: "acme", Date: "03.08.2026", Amount: "999,00"},
		{AccountLogin: "acme", Date: "2026-08-10", Amount: "25,00"},
	}

	payments := decodePaymentRows(rows, "acme")
	assert.Len(t, payments, 2)
	assert.Equal(t, "150", payments[0].Amount.String())
	assert.Equal(t, "25", payments[1].Amount.String())
}
