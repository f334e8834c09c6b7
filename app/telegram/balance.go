package telegram

import (
	"context"
	"errors"

	"balancebot/m/v2/app/store"
	"balancebot/m/v2/app/util"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

func showBalanceHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)

	user, err := ensureAuthenticatedUser(ctx, bot, chatID, chatIDString)
	if err != nil {
		log.WithError(err).Errorf("Balance guard failed for %s", chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageBalanceError))
		return
	}
	if user == nil {
		return
	}

	balance, err := bot.Store.GetAccountBalance(ctx, user.AccountLogin)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Errorf("Failed to fetch balance for %s", user.AccountLogin)
		}
		bot.SendMessage(tu.Message(chatID, MessageBalanceError))
		bot.Store.AppendLog(ctx, "ERROR", "BALANCE_VIEW",
			"Не удалось получить баланс для "+user.AccountLogin)
		return
	}

	bot.SendMessage(tu.Message(chatID, balance.FormatMessage(user.AccountLogin)).WithReplyMarkup(mainMenuKeyboard()))
	bot.Store.AppendLog(ctx, "INFO", "BALANCE_VIEW",
		"Пользователь "+chatIDString+" запросил баланс аккаунта "+user.AccountLogin)
}
