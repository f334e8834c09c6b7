// Package notifier runs the balance-threshold notification scheduler. Every
// tick it scans active rules, matches each rule's HH:MM against the owner's
// local clock and walks the armed/waiting state machine so a crossing fires
// exactly once.
package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/models"
	"balancebot/m/v2/app/store"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const balanceAlertMessage = `ВНИМАНИЕ!

Баланс вашего аккаунта опустился ниже установленного порога!

Текущий баланс: %s руб
Порог уведомления: %s руб

Пожалуйста, пополните баланс.`

type Checker struct {
	Store *store.Store
	Bot   *telego.Bot
}

func NewChecker(s *store.Store, bot *telego.Bot) *Checker {
	return &Checker{Store: s, Bot: bot}
}

// sendAlert delivers the threshold message, swappable in tests.
var sendAlert = func(bot *telego.Bot, chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("sendAlert: bad chat id %q: %w", chatID, err)
	}
	_, err = bot.SendMessage(tu.Message(tu.ID(id), text))
	return err
}

// CheckNotifications is one scheduler tick. Each rule is isolated: a failure
// on one rule is logged and the scan moves on.
func (c *Checker) CheckNotifications() {
	runID := uuid.New().String()
	log := logrus.WithField("run_id", runID)
	ctx := context.Background()

	notifications, err := c.Store.GetAllActiveNotifications(ctx)
	if err != nil {
		log.WithError(err).Error("failed to scan active rules")
		return
	}
	if len(notifications) == 0 {
		return
	}
	config.CONFIG.DataDogClient.Gauge("notifier.active_rules", float64(len(notifications)), nil, 1)

	now := time.Now()
	due := 0
	for _, notification := range notifications {
		offset := c.Store.UserTimezone(ctx, notification.AccountLogin)
		if !shouldSendNow(notification.Time, offset, now) {
			continue
		}
		due++
		if err := c.processNotification(ctx, &notification); err != nil {
			log.WithError(err).WithFields(logrus.Fields{
				"rule_id": notification.ID,
				"chat_id": notification.ChatID,
			}).Error("failed to process rule")
		}
	}
	if due > 0 {
		log.WithField("due", due).Info("notification tick processed")
	}
}

// shouldSendNow matches the rule's HH:MM against the wall clock in the
// owner's declared UTC offset. Only an exact hour+minute match fires, there
// is no catch-up for missed ticks.
func shouldSendNow(notificationTime string, utcOffset int, now time.Time) bool {
	parts := strings.Split(notificationTime, ":")
	if len(parts) != 2 {
		return false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return false
	}
	local := now.In(time.FixedZone("user", utcOffset*60*60))
	return local.Hour() == hour && local.Minute() == minute
}

// processNotification walks one rule through the hysteresis state machine.
// An unparseable balance skips the rule, zero would be a false alarm.
func (c *Checker) processNotification(ctx context.Context, n *models.Notification) error {
	// cached read: snapshots change once per nightly export, the daily
	// flush refreshes them long before any rule's minute comes around
	snapshot, err := c.Store.GetAccountBalance(ctx, n.AccountLogin)
	if err != nil {
		return fmt.Errorf("processNotification: no balance snapshot for %s: %w", n.AccountLogin, err)
	}
	balance, err := models.ParseAmountStrict(snapshot.Balance)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"rule_id": n.ID,
			"account": n.AccountLogin,
			"balance": snapshot.Balance,
		}).Warn("unparseable balance, skipping rule")
		return nil
	}

	threshold := decimal.NewFromFloat(n.Threshold)
	switch {
	case balance.LessThanOrEqual(threshold) && n.SendState == models.SendStateArmed:
		text := fmt.Sprintf(balanceAlertMessage, balance.StringFixed(2), threshold.StringFixed(2))
		if err := sendAlert(c.Bot, n.ChatID, text); err != nil {
			return fmt.Errorf("processNotification: failed to send alert for rule %d: %w", n.ID, err)
		}
		config.CONFIG.DataDogClient.Incr("notifier.alerts_sent", nil, 1)
		err = c.Store.UpdateNotificationState(ctx, n.ChatID, n.ID, balance.String(), models.SendStateWaiting)
		if err != nil {
			return fmt.Errorf("processNotification: failed to persist waiting state for rule %d: %w", n.ID, err)
		}
		c.Store.AppendLog(ctx, "INFO", "NOTIFICATION_SENT", fmt.Sprintf(
			"Уведомление отправлено пользователю %s: баланс %s <= порог %s в %s",
			n.ChatID, balance.String(), threshold.String(), n.Time))
	case balance.GreaterThan(threshold) && n.SendState == models.SendStateWaiting:
		// silent re-arm, the next crossing may fire again
		err = c.Store.UpdateNotificationState(ctx, n.ChatID, n.ID, balance.String(), models.SendStateArmed)
		if err != nil {
			return fmt.Errorf("processNotification: failed to re-arm rule %d: %w", n.ID, err)
		}
		logrus.WithFields(logrus.Fields{
			"rule_id": n.ID,
			"account": n.AccountLogin,
		}).Info("balance recovered above threshold, rule re-armed")
	}
	return nil
}
