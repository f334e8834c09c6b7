// main package to control telegram bot
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"balancebot/m/v2/app/auth"
	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/db/redis"
	"balancebot/m/v2/app/ledger"
	"balancebot/m/v2/app/models"
	"balancebot/m/v2/app/store"
	"balancebot/m/v2/app/util"

	"github.com/fasthttp/router"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

type Bot struct {
	*telego.Bot
	*th.BotHandler
	Name   string
	Store  *store.Store
	Auth   *auth.Client
	Engine *ledger.Engine
	Cache  redis.Client
}

var AllCommandHandlers CommandHandlers = CommandHandlers{}
var BOT *Bot

func NewBot(rtr *router.Router, cfg *config.Config, dataStore *store.Store, authClient *auth.Client, engine *ledger.Engine, cache redis.Client) (*Bot, error) {
	bot, err := telego.NewBot(cfg.TelegramBotToken, telego.WithHealthCheck(), util.GetBotLoggerOption(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	botInfo, err := bot.GetMe()
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Infof("Bot info: %+v", botInfo)
	cfg.BotName = botInfo.Username

	setupCommandHandlers()
	updates, err := signBotForUpdates(bot, rtr)
	if err != nil {
		return nil, fmt.Errorf("failed to sign bot for updates: %w", err)
	}
	bh, err := th.NewBotHandler(bot, updates, th.WithStopTimeout(time.Second*10))
	if err != nil {
		return nil, fmt.Errorf("failed to setup bot handler: %w", err)
	}
	bh.HandleMessage(handleMessage)
	bh.HandleCallbackQuery(handleCallbackQuery)
	go bh.Start()

	BOT = &Bot{
		Bot:        bot,
		BotHandler: bh,
		Name:       cfg.BotName,
		Store:      dataStore,
		Auth:       authClient,
		Engine:     engine,
		Cache:      cache,
	}

	return BOT, nil
}

func signBotForUpdates(bot *telego.Bot, rtr *router.Router) (<-chan telego.Update, error) {
	updates, err := bot.UpdatesViaWebhook(
		"/bot"+bot.Token(),
		telego.WithWebhookSet(&telego.SetWebhookParams{
			URL: util.Env("BACKEND_BASE_URL") + "/bot" + bot.Token(),
			AllowedUpdates: []string{
				"message",
				"callback_query",
			},
		}),
		telego.WithWebhookServer(telego.FastHTTPWebhookServer{
			Logger: log.StandardLogger(),
			Server: &fasthttp.Server{},
			Router: rtr,
		}),
	)
	return updates, err
}

func handleMessage(bot *telego.Bot, message telego.Message) {
	chatIDString := util.GetChatIDString(&message)
	if message.Chat.Type != "private" {
		log.Infof("Ignoring message in non-private chat %s", chatIDString)
		return
	}
	config.CONFIG.DataDogClient.Incr("telegram.message", nil, 1)

	if strings.HasPrefix(message.Text, "/") {
		command := strings.Fields(message.Text)[0]
		for _, handler := range AllCommandHandlers {
			if string(handler.Command) == command {
				handler.Handler(context.Background(), BOT, &message)
				return
			}
		}
		log.Infof("Unknown command %s from %s", command, chatIDString)
		BOT.SendMessage(tu.Message(util.GetChatID(&message), MessageHelp))
		return
	}

	// an in-flight conversation consumes plain text first
	dialog := getDialog(BOT.Cache, chatIDString)
	if dialog.State != StateNone {
		handleDialogMessage(BOT, &message, dialog)
		return
	}

	switch message.Text {
	case ButtonShowBalance:
		showBalanceHandler(context.Background(), BOT, &message)
	case ButtonNotifications:
		notificationsMenuHandler(context.Background(), BOT, &message)
	case ButtonStatistics:
		statisticsStartHandler(context.Background(), BOT, &message)
	case ButtonHelp:
		BOT.SendMessage(tu.Message(util.GetChatID(&message), MessageHelp))
	default:
		BOT.SendMessage(tu.Message(util.GetChatID(&message), MessageHelp).WithReplyMarkup(mainMenuKeyboard()))
	}
}

func handleCallbackQuery(bot *telego.Bot, callbackQuery telego.CallbackQuery) {
	chat := callbackQuery.Message.GetChat()
	chatIDString := fmt.Sprintf("%d", chat.ID)
	data := callbackQuery.Data
	log.Infof("Received callback query: %s in chat %s", data, chatIDString)
	config.CONFIG.DataDogClient.Incr("telegram.callback_query", []string{"data:" + data}, 1)

	bot.AnswerCallbackQuery(&telego.AnswerCallbackQueryParams{
		CallbackQueryID: callbackQuery.ID,
	})

	switch {
	case strings.HasPrefix(data, "notif_"):
		handleNotificationCallback(BOT, &callbackQuery)
	case strings.HasPrefix(data, "stat_"):
		handleStatisticsCallback(BOT, &callbackQuery)
	case strings.HasPrefix(data, "logout_"):
		handleLogoutCallback(BOT, &callbackQuery)
	default:
		log.Errorf("Unknown callback query: %s", data)
	}
}

// ensureAuthenticatedUser runs the guard chain shared by every authenticated
// flow: registered, token alive, admin entitlement re-validated when due.
// A nil user with nil error means the guard already answered the chat.
func ensureAuthenticatedUser(ctx context.Context, bot *Bot, chatID telego.ChatID, chatIDString string) (*models.User, error) {
	user, err := bot.Store.GetUser(ctx, chatIDString)
	if errors.Is(err, store.ErrNotFound) {
		bot.SendMessage(tu.Message(chatID, MessageNotRegistered))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ensureAuthenticatedUser: %w", err)
	}
	if !user.IsAuthenticated() {
		bot.SendMessage(tu.Message(chatID, MessageAuthExpired))
		return nil, nil
	}
	if user.NeedsAdminRecheck() {
		log.Infof("Admin recheck due for %s", chatIDString)
		isAdmin, err := bot.Store.RecheckAdmin(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("ensureAuthenticatedUser: %w", err)
		}
		if !isAdmin {
			log.Warnf("Admin entitlement revoked for %s", chatIDString)
			bot.SendMessage(tu.Message(chatID, MessageAdminRevoked))
			return nil, nil
		}
	}
	bot.Store.TouchActivity(ctx, chatIDString)
	return user, nil
}
