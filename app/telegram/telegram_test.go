package telegram

import (
	"context"
	"testing"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/db/redis"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/undefinedlabs/go-mpatch"
)

func init() {
	setupTestDatadog()
	setupTestBot()
	setupCommandHandlers()

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
	log.SetLevel(log.DebugLevel)
}

func setupTestBot() {
	BOT = &Bot{
		Name:  "testbot",
		Bot:   &telego.Bot{},
		Cache: redis.NewMockRedisClient(),
	}
}

func setupTestDatadog() {
	testClient, err := statsd.New("127.0.0.1:8125", statsd.WithNamespace("tests."))
	if err != nil {
		log.Fatalf("error creating test DataDog client: %v", err)
	}
	config.CONFIG = &config.Config{
		DataDogClient:       testClient,
		DefaultUTCOffset:    3,
		StatisticsStartYear: 2026,
	}
}

func pinClock(t *testing.T, at time.Time) {
	patch, err := mpatch.PatchMethod(time.Now, func() time.Time { return at })
	assert.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, patch.Unpatch())
	})
}

func TestIsValidTime(t *testing.T) {
	valid := []string{"00:00", "9:05", "09:30", "23:59"}
	for _, s := range valid {
		assert.True(t, isValidTime(s), s)
	}
	invalid := []string{"24:00", "12:60", "12", "12:5x", "ab:cd", "12:30:00", ""}
	for _, s := range invalid {
		assert.False(t, isValidTime(s), s)
	}
}

func TestFormatThreshold(t *testing.T) {
	assert.Equal(t, "500", formatThreshold(500))
	assert.Equal(t, "150.5", formatThreshold(150.5))
	assert.Equal(t, "0.01", formatThreshold(0.01))
}

func TestPeriodKeyboardCurrentYear(t *testing.T) {
	pinClock(t, time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC))

	kb := periodKeyboard(2026)
	// nav row, 4 month rows, cancel row
	assert.Len(t, kb.InlineKeyboard, 6)

	nav := kb.InlineKeyboard[0]
	assert.Equal(t, "stat_noop", nav[0].CallbackData)
	assert.Equal(t, "2026", nav[1].Text)
	assert.Equal(t, "stat_yearrpt_2026", nav[1].CallbackData)
	assert.Equal(t, "stat_noop", nav[2].CallbackData)

	// August is the last selectable month
	aug := kb.InlineKeyboard[3][1]
	assert.Equal(t, "Авг", aug.Text)
	assert.Equal(t, "stat_month_8", aug.CallbackData)
	sep := kb.InlineKeyboard[3][2]
	assert.Equal(t, "·", sep.Text)
	assert.Equal(t, "stat_noop", sep.CallbackData)
	dec := kb.InlineKeyboard[4][2]
	assert.Equal(t, "·", dec.Text)

	cancel := kb.InlineKeyboard[5][0]
	assert.Equal(t, "stat_cancel", cancel.CallbackData)
}

func TestPeriodKeyboardPastYear(t *testing.T) {
	pinClock(t, time.Date(2027, 3, 1, 12, 0, 0, 0, time.UTC))

	kb := periodKeyboard(2026)
	nav := kb.InlineKeyboard[0]
	assert.Equal(t, "stat_noop", nav[0].CallbackData, "left is inert at the start year")
	assert.Equal(t, "stat_nav_right", nav[2].CallbackData)

	// every month of a past year is selectable
	dec := kb.InlineKeyboard[4][2]
	assert.Equal(t, "Дек", dec.Text)
	assert.Equal(t, "stat_month_12", dec.CallbackData)
}

func TestDialogRoundTrip(t *testing.T) {
	cache := redis.NewMockRedisClient()

	dialog := getDialog(cache, "42")
	assert.Equal(t, StateNone, dialog.State)

	dialog.State = StateAwaitingThreshold
	dialog.AccountLogin = "acme"
	dialog.Threshold = 500
	saveDialog(cache, "42", dialog)

	loaded := getDialog(cache, "42")
	assert.Equal(t, StateAwaitingThreshold, loaded.State)
	assert.Equal(t, "acme", loaded.AccountLogin)
	assert.Equal(t, 500.0, loaded.Threshold)

	// other chats are isolated
	assert.Equal(t, StateNone, getDialog(cache, "43").State)

	clearDialog(cache, "42")
	assert.Equal(t, StateNone, getDialog(cache, "42").State)
}

func TestDialogCorruptStateResets(t *testing.T) {
	cache := redis.NewMockRedisClient()
	cache.Set(context.Background(), dialogKey("7"), "{not json", time.Hour)

	dialog := getDialog(cache, "7")
	assert.Equal(t, StateNone, dialog.State)
}

func TestEmailRegexp(t *testing.T) {
	assert.True(t, emailRegexp.MatchString("user@example.com"))
	assert.True(t, emailRegexp.MatchString("first.last+tag@sub.domain.ru"))
	assert.False(t, emailRegexp.MatchString("not-an-email"))
	assert.False(t, emailRegexp.MatchString("user@"))
	assert.False(t, emailRegexp.MatchString("@example.com"))
}
