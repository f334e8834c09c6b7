package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/models"
	"balancebot/m/v2/app/util"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

func notificationsMenuHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)

	user, err := ensureAuthenticatedUser(ctx, bot, chatID, chatIDString)
	if err != nil {
		log.WithError(err).Errorf("Notifications guard failed for %s", chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageSaveError))
		return
	}
	if user == nil {
		return
	}

	bot.SendMessage(tu.Message(chatID, "🔔 Уведомления о балансе:").WithReplyMarkup(notificationsMenuKeyboard()))
}

func handleNotificationCallback(bot *Bot, callbackQuery *telego.CallbackQuery) {
	ctx := context.Background()
	chat := callbackQuery.Message.GetChat()
	chatID := tu.ID(chat.ID)
	chatIDString := fmt.Sprintf("%d", chat.ID)
	messageID := callbackQuery.Message.GetMessageID()
	data := callbackQuery.Data
	dialog := getDialog(bot.Cache, chatIDString)

	switch {
	case data == "notif_new":
		dialog.State = StateAwaitingThreshold
		saveDialog(bot.Cache, chatIDString, dialog)
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: MessageThresholdRequest,
		})

	case data == "notif_list":
		text := formatNotificationList(ctx, bot, chatIDString)
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: text,
		})

	case data == "notif_delete":
		notifications, err := bot.Store.GetUserNotifications(ctx, chatIDString)
		if err != nil {
			log.WithError(err).Errorf("Failed to list rules for %s", chatIDString)
			return
		}
		if len(notifications) == 0 {
			bot.EditMessageText(&telego.EditMessageTextParams{
				ChatID: chatID, MessageID: messageID, Text: MessageNoNotifications,
			})
			return
		}
		rows := make([][]telego.InlineKeyboardButton, 0, len(notifications))
		for _, n := range notifications {
			label := fmt.Sprintf("ID %d: %s руб в %s", n.ID, formatThreshold(n.Threshold), n.Time)
			rows = append(rows, tu.InlineKeyboardRow(
				tu.InlineKeyboardButton(label).WithCallbackData(fmt.Sprintf("notif_del_%d", n.ID)),
			))
		}
		bot.EditMessageText((&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: "Выберите уведомление для удаления:",
		}).WithReplyMarkup(&telego.InlineKeyboardMarkup{InlineKeyboard: rows}))

	case strings.HasPrefix(data, "notif_del_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, "notif_del_"), 10, 64)
		if err != nil {
			log.Errorf("Bad delete callback %q in chat %s", data, chatIDString)
			return
		}
		deleted, err := bot.Store.DeleteNotification(ctx, chatIDString, id)
		if err != nil {
			log.WithError(err).Errorf("Failed to delete rule %d for %s", id, chatIDString)
			return
		}
		if !deleted {
			bot.EditMessageText(&telego.EditMessageTextParams{
				ChatID: chatID, MessageID: messageID, Text: MessageNoNotifications,
			})
			return
		}
		bot.Store.AppendLog(ctx, "INFO", "NOTIFICATION_DELETED",
			fmt.Sprintf("Пользователь %s удалил уведомление %d", chatIDString, id))
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: fmt.Sprintf(MessageNotificationDeleted, id),
		})

	case strings.HasPrefix(data, "notif_time_"):
		dialog.Time = strings.TrimPrefix(data, "notif_time_")
		dialog.State = StateAwaitingConfirm
		saveDialog(bot.Cache, chatIDString, dialog)
		bot.EditMessageText((&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID,
			Text: fmt.Sprintf(MessageNotificationConfirm, formatThreshold(dialog.Threshold), dialog.Time),
		}).WithReplyMarkup(confirmNotificationKeyboard()))

	case data == "notif_custom_time":
		dialog.State = StateAwaitingTime
		saveDialog(bot.Cache, chatIDString, dialog)
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: MessageCustomTimeRequest,
		})

	case data == "notif_confirm":
		createNotification(ctx, bot, chatID, chatIDString, messageID, dialog)

	case data == "notif_cancel":
		clearDialog(bot.Cache, chatIDString)
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: "Создание уведомления отменено.",
		})

	default:
		log.Errorf("Unknown notification callback: %s", data)
	}
}

func receiveThreshold(ctx context.Context, bot *Bot, message *telego.Message, dialog *Dialog) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)

	threshold, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(message.Text), ",", "."), 64)
	if err != nil || threshold <= 0 {
		bot.SendMessage(tu.Message(chatID, MessageThresholdInvalid))
		return
	}

	dialog.Threshold = threshold
	dialog.State = StateAwaitingConfirm
	saveDialog(bot.Cache, chatIDString, dialog)
	bot.SendMessage(tu.Message(chatID, MessageTimeRequest).WithReplyMarkup(timeSelectionKeyboard()))
}

func receiveCustomTime(ctx context.Context, bot *Bot, message *telego.Message, dialog *Dialog) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)

	timeStr := strings.TrimSpace(message.Text)
	if !isValidTime(timeStr) {
		bot.SendMessage(tu.Message(chatID, MessageTimeInvalid))
		return
	}

	dialog.Time = timeStr
	dialog.State = StateAwaitingConfirm
	saveDialog(bot.Cache, chatIDString, dialog)
	bot.SendMessage(tu.Message(chatID,
		fmt.Sprintf(MessageNotificationConfirm, formatThreshold(dialog.Threshold), dialog.Time),
	).WithReplyMarkup(confirmNotificationKeyboard()))
}

func createNotification(ctx context.Context, bot *Bot, chatID telego.ChatID, chatIDString string, messageID int, dialog *Dialog) {
	if dialog.Threshold <= 0 || dialog.Time == "" {
		log.Warnf("Confirm with incomplete dialog in chat %s", chatIDString)
		clearDialog(bot.Cache, chatIDString)
		return
	}
	user, err := bot.Store.GetUser(ctx, chatIDString)
	if err != nil {
		log.WithError(err).Errorf("Failed to load user %s for rule creation", chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageSaveError))
		return
	}

	// new rules start waiting: the first alert needs an observed
	// above-threshold balance first
	notification := &models.Notification{
		ChatID:       chatIDString,
		AccountLogin: user.AccountLogin,
		Status:       models.RuleStatusActive,
		Threshold:    dialog.Threshold,
		Time:         dialog.Time,
		SendState:    models.SendStateWaiting,
		CreatedAt:    time.Now().Format(models.TimeLayout),
	}
	if err := bot.Store.AddNotification(ctx, notification); err != nil {
		log.WithError(err).Errorf("Failed to create rule for %s", chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageSaveError))
		return
	}

	clearDialog(bot.Cache, chatIDString)
	config.CONFIG.DataDogClient.Incr("telegram.notification_created", nil, 1)
	bot.Store.AppendLog(ctx, "INFO", "NOTIFICATION_CREATED",
		fmt.Sprintf("Пользователь %s создал уведомление %d: порог %s, время %s",
			chatIDString, notification.ID, formatThreshold(dialog.Threshold), dialog.Time))
	bot.EditMessageText(&telego.EditMessageTextParams{
		ChatID: chatID, MessageID: messageID,
		Text: fmt.Sprintf(MessageNotificationSet, formatThreshold(dialog.Threshold), dialog.Time),
	})
}

func formatNotificationList(ctx context.Context, bot *Bot, chatIDString string) string {
	notifications, err := bot.Store.GetUserNotifications(ctx, chatIDString)
	if err != nil {
		log.WithError(err).Errorf("Failed to list rules for %s", chatIDString)
		return MessageSaveError
	}
	if len(notifications) == 0 {
		return MessageNoNotifications
	}
	var b strings.Builder
	b.WriteString("Ваши уведомления:\n")
	for _, n := range notifications {
		fmt.Fprintf(&b, "\nID: %d\nПорог: %s руб\nВремя: %s\n", n.ID, formatThreshold(n.Threshold), n.Time)
	}
	return b.String()
}

func formatThreshold(threshold float64) string {
	return strconv.FormatFloat(threshold, 'f', -1, 64)
}

func isValidTime(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return false
	}
	return true
}
