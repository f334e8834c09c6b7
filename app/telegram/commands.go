package telegram

import (
	"context"

	"balancebot/m/v2/app/util"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

type Command string

const (
	StartCommand  Command = "/start"
	HelpCommand   Command = "/help"
	LogoutCommand Command = "/logout"

	// commands setting for BotFather
	Commands string = `
start - 🚀 регистрация и аутентификация
logout - 🚪 выход и удаление уведомлений
help - 📖 справка
`
)

type CommandHandler struct {
	Command Command
	Handler func(context.Context, *Bot, *telego.Message)
}

type CommandHandlers []*CommandHandler

func setupCommandHandlers() {
	AllCommandHandlers = []*CommandHandler{
		newCommandHandler(StartCommand, startCommandHandler),
		newCommandHandler(HelpCommand, helpCommandHandler),
		newCommandHandler(LogoutCommand, logoutCommandHandler),
	}
}

func newCommandHandler(command Command, handler func(context.Context, *Bot, *telego.Message)) *CommandHandler {
	return &CommandHandler{
		Command: command,
		Handler: handler,
	}
}

func helpCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	bot.SendMessage(tu.Message(util.GetChatID(message), MessageHelp).WithReplyMarkup(mainMenuKeyboard()))
}

// handleDialogMessage routes plain text into whichever conversation the chat
// is in the middle of.
func handleDialogMessage(bot *Bot, message *telego.Message, dialog *Dialog) {
	ctx := context.Background()
	switch dialog.State {
	case StateAwaitingLogin:
		receiveLogin(ctx, bot, message, dialog)
	case StateAwaitingEmail:
		receiveEmail(ctx, bot, message, dialog)
	case StateAwaitingPassword:
		receivePassword(ctx, bot, message, dialog)
	case StateAwaitingThreshold:
		receiveThreshold(ctx, bot, message, dialog)
	case StateAwaitingTime:
		receiveCustomTime(ctx, bot, message, dialog)
	default:
		log.Warnf("Message in unexpected dialog state %s from chat %s", dialog.State, util.GetChatIDString(message))
		clearDialog(bot.Cache, util.GetChatIDString(message))
		bot.SendMessage(tu.Message(util.GetChatID(message), MessageHelp).WithReplyMarkup(mainMenuKeyboard()))
	}
}
