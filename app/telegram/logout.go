package telegram

import (
	"context"
	"errors"
	"fmt"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/store"
	"balancebot/m/v2/app/util"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

func logoutCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)

	user, err := bot.Store.GetUser(ctx, chatIDString)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !user.IsAuthenticated()) {
		bot.SendMessage(tu.Message(chatID, MessageLogoutNotLoggedIn))
		return
	}
	if err != nil {
		log.WithError(err).Errorf("Failed to load user %s for logout", chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageSaveError))
		return
	}

	bot.SendMessage(tu.Message(chatID, MessageLogoutConfirm).WithReplyMarkup(logoutConfirmKeyboard()))
}

func handleLogoutCallback(bot *Bot, callbackQuery *telego.CallbackQuery) {
	ctx := context.Background()
	chat := callbackQuery.Message.GetChat()
	chatID := tu.ID(chat.ID)
	chatIDString := fmt.Sprintf("%d", chat.ID)
	messageID := callbackQuery.Message.GetMessageID()

	switch callbackQuery.Data {
	case "logout_confirm":
		count, err := bot.Store.LogoutUser(ctx, chatIDString)
		if err != nil {
			log.WithError(err).Errorf("Failed to log out %s", chatIDString)
			bot.EditMessageText(&telego.EditMessageTextParams{
				ChatID: chatID, MessageID: messageID, Text: MessageSaveError,
			})
			return
		}
		clearDialog(bot.Cache, chatIDString)
		config.CONFIG.DataDogClient.Incr("telegram.logout", nil, 1)
		bot.Store.AppendLog(ctx, "INFO", "LOGOUT",
			fmt.Sprintf("Пользователь %s вышел, удалено уведомлений: %d", chatIDString, count))
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: fmt.Sprintf(MessageLogoutSuccess, count),
		})

	case "logout_cancel":
		bot.EditMessageText(&telego.EditMessageTextParams{
			ChatID: chatID, MessageID: messageID, Text: MessageLogoutCancelled,
		})

	default:
		log.Errorf("Unknown logout callback: %s", callbackQuery.Data)
	}
}
