package notifier

import (
	"context"
	"testing"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/db/mongo"
	"balancebot/m/v2/app/db/redis"
	"balancebot/m/v2/app/models"
	"balancebot/m/v2/app/store"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/undefinedlabs/go-mpatch"
)

func setupCheckerTest(t *testing.T) (*Checker, *mongo.MockMongoClient) {
	dd, err := statsd.New("127.0.0.1:8125")
	assert.NoError(t, err)
	config.CONFIG = &config.Config{
		DefaultUTCOffset: 3,
		DataDogClient:    dd,
	}
	mongoMock := mongo.NewMockMongoClient()
	s := store.New(mongoMock, redis.NewMockRedisClient(), time.Hour)
	return NewChecker(s, &telego.Bot{}), mongoMock
}

// pinClock fixes time.Now to 09:00 UTC, which is 12:00 in the default UTC+3 zone.
func pinClock(t *testing.T) {
	patch, err := mpatch.PatchMethod(time.Now, func() time.Time {
		return time.Date(2026, time.August, 26, 9, 0, 0, 0, time.UTC)
	})
	assert.NoError(t, err)
	t.Cleanup(func() { patch.Unpatch() })
}

func captureAlerts(t *testing.T) *[]string {
	var sent []string
	original := sendAlert
	sendAlert = func(bot *telego.Bot, chatID string, text string) error {
		sent = append(sent, chatID+": "+text)
		return nil
	}
	t.Cleanup(func() { sendAlert = original })
	return &sent
}

func TestShouldSendNow(t *testing.T) {
	now := time.Date(2026, time.August, 26, 4, 30, 0, 0, time.UTC)

	assert.True(t, shouldSendNow("09:30", 5, now), "04:30 UTC is 09:30 in UTC+5")
	assert.False(t, shouldSendNow("09:30", 3, now), "04:30 UTC is 07:30 in UTC+3")
	assert.False(t, shouldSendNow("09:31", 5, now))
	assert.False(t, shouldSendNow("", 5, now))
	assert.False(t, shouldSendNow("930", 5, now))
	assert.False(t, shouldSendNow("ab:cd", 5, now))
}

func TestAlertFiresExactlyOncePerCrossing(t *testing.T) {
	checker, mongoMock := setupCheckerTest(t)
	pinClock(t)
	sent := captureAlerts(t)

	mongoMock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "450,00"}
	mongoMock.Notifications = []models.Notification{{
		ID: 1, ChatID: "123", AccountLogin: "acme",
		Status: models.RuleStatusActive, Threshold: 500,
		Time: "12:00", SendState: models.SendStateArmed,
	}}

	checker.CheckNotifications()
	assert.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0], "450.00")
	assert.Contains(t, (*sent)[0], "500.00")
	assert.Equal(t, models.SendStateWaiting, mongoMock.Notifications[0].SendState)
	assert.Equal(t, "450", mongoMock.Notifications[0].ObservedBalance)
	assert.Len(t, mongoMock.Logs, 1)
	assert.Equal(t, "NOTIFICATION_SENT", mongoMock.Logs[0].Action)

	// same tick again, rule is waiting and balance still low
	checker.CheckNotifications()
	assert.Len(t, *sent, 1, "waiting rule must not fire again")
}

func TestWaitingRuleRearmsSilently(t *testing.T) {
	checker, mongoMock := setupCheckerTest(t)
	pinClock(t)
	sent := captureAlerts(t)

	mongoMock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "750,00"}
	mongoMock.Notifications = []models.Notification{{
		ID: 1, ChatID: "123", AccountLogin: "acme",
		Status: models.RuleStatusActive, Threshold: 500,
		Time: "12:00", SendState: models.SendStateWaiting,
	}}

	checker.CheckNotifications()
	assert.Empty(t, *sent, "recovery is silent")
	assert.Equal(t, models.SendStateArmed, mongoMock.Notifications[0].SendState)

	// the checker reads balances through the hour-long cache, same as the
	// interactive balance view; drop the cached snapshot so the next tick
	// sees the new value, the way the daily flush does after an export
	mongoMock.Balances["acme"].Balance = "400,00"
	_, err := checker.Store.FlushAll(context.Background())
	assert.NoError(t, err)

	// balance dropped again, the re-armed rule fires
	checker.CheckNotifications()
	assert.Len(t, *sent, 1)
}

func TestRuleOutsideItsTimeDoesNothing(t *testing.T) {
	checker, mongoMock := setupCheckerTest(t)
	pinClock(t)
	sent := captureAlerts(t)

	mongoMock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "100,00"}
	mongoMock.Notifications = []models.Notification{{
		ID: 1, ChatID: "123", AccountLogin: "acme",
		Status: models.RuleStatusActive, Threshold: 500,
		Time: "12:01", SendState: models.SendStateArmed,
	}}

	checker.CheckNotifications()
	assert.Empty(t, *sent)
	assert.Equal(t, models.SendStateArmed, mongoMock.Notifications[0].SendState)
}

func TestUnparseableBalanceSkipsRule(t *testing.T) {
	checker, mongoMock := setupCheckerTest(t)
	pinClock(t)
	sent := captureAlerts(t)

	mongoMock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "нет данных"}
	mongoMock.Notifications = []models.Notification{{
		ID: 1, ChatID: "123", AccountLogin: "acme",
		Status: models.RuleStatusActive, Threshold: 500,
		Time: "12:00", SendState: models.SendStateArmed,
	}}

	checker.CheckNotifications()
	assert.Empty(t, *sent, "a bad balance must not read as zero")
	assert.Equal(t, models.SendStateArmed, mongoMock.Notifications[0].SendState)
}

func TestFailingRuleDoesNotBlockOthers(t *testing.T) {
	checker, mongoMock := setupCheckerTest(t)
	pinClock(t)
	sent := captureAlerts(t)

	// first rule's account has no snapshot at all
	mongoMock.Balances["beta"] = &models.AccountBalance{AccountLogin: "beta", Balance: "10,00"}
	mongoMock.Notifications = []models.Notification{
		{ID: 1, ChatID: "111", AccountLogin: "ghost",
			Status: models.RuleStatusActive, Threshold: 500,
			Time: "12:00", SendState: models.SendStateArmed},
		{ID: 2, ChatID: "222", AccountLogin: "beta",
			Status: models.RuleStatusActive, Threshold: 500,
			Time: "12:00", SendState: models.SendStateArmed},
	}

	checker.CheckNotifications()
	assert.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0], "222")
}

func TestRuleUsesDeclaredOffset(t *testing.T) {
	checker, mongoMock := setupCheckerTest(t)
	pinClock(t)
	sent := captureAlerts(t)

	// account's directory entry declares UTC+5, 09:00 UTC is 14:00 there
	mongoMock.Directory["acme"] = &models.DirectoryEntry{Login: "acme", UTCOffset: "5"}
	mongoMock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "100,00"}
	mongoMock.Notifications = []models.Notification{{
		ID: 1, ChatID: "123", AccountLogin: "acme",
		Status: models.RuleStatusActive, Threshold: 500,
		Time: "14:00", SendState: models.SendStateArmed,
	}}

	checker.CheckNotifications()
	assert.Len(t, *sent, 1)
}
