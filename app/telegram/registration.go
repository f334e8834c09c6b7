package telegram

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"balancebot/m/v2/app/auth"
	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/models"
	"balancebot/m/v2/app/store"
	"balancebot/m/v2/app/util"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func startCommandHandler(ctx context.Context, bot *Bot, message *telego.Message) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)
	log.Infof("Start command from %s", chatIDString)

	user, err := bot.Store.GetUser(ctx, chatIDString)
	if err == nil && user.IsAuthenticated() {
		bot.SendMessage(tu.Message(chatID, MessageAlreadyRegistered).WithReplyMarkup(mainMenuKeyboard()))
		return
	}

	dialog := &Dialog{
		State:     StateAwaitingLogin,
		UserID:    message.From.ID,
		FirstName: message.From.FirstName,
		LastName:  message.From.LastName,
		Username:  message.From.Username,
	}
	saveDialog(bot.Cache, chatIDString, dialog)
	bot.SendMessage(tu.Message(chatID, MessageWelcome))
}

func receiveLogin(ctx context.Context, bot *Bot, message *telego.Message, dialog *Dialog) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)
	login := strings.TrimSpace(message.Text)

	entry, err := bot.Store.FindLogin(ctx, login)
	if errors.Is(err, store.ErrNotFound) {
		bot.SendMessage(tu.Message(chatID, MessageLoginNotFound))
		return
	}
	if err != nil {
		log.WithError(err).Errorf("Failed to look up login for chat %s", chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageSaveError))
		return
	}
	if !entry.IsAdminYes() {
		log.Warnf("Non-admin registration attempt: %s (is_admin=%q)", login, entry.IsAdmin)
		clearDialog(bot.Cache, chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageNotAdmin))
		return
	}

	dialog.State = StateAwaitingEmail
	dialog.UserLogin = login
	dialog.AccountLogin = entry.AccountName
	dialog.IsAdmin = entry.IsAdmin
	saveDialog(bot.Cache, chatIDString, dialog)
	bot.SendMessage(tu.Message(chatID, MessageEmailRequest))
}

func receiveEmail(ctx context.Context, bot *Bot, message *telego.Message, dialog *Dialog) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)
	email := strings.TrimSpace(message.Text)

	if !emailRegexp.MatchString(email) {
		bot.SendMessage(tu.Message(chatID, MessageEmailInvalid))
		return
	}

	dialog.Email = email
	dialog.State = StateAwaitingPassword
	prompt, err := bot.SendMessage(tu.Message(chatID, MessagePasswordRequest))
	if err == nil {
		// remembered so the prompt disappears along with the password
		dialog.PasswordPromptID = prompt.MessageID
	}
	saveDialog(bot.Cache, chatIDString, dialog)
}

func receivePassword(ctx context.Context, bot *Bot, message *telego.Message, dialog *Dialog) {
	chatID := util.GetChatID(message)
	chatIDString := util.GetChatIDString(message)
	password := strings.TrimSpace(message.Text)

	// the password must not stay in the chat history
	err := bot.DeleteMessage(&telego.DeleteMessageParams{ChatID: chatID, MessageID: message.MessageID})
	if err != nil {
		log.WithError(err).Errorf("Failed to delete password message in chat %s", chatIDString)
	}
	if dialog.PasswordPromptID != 0 {
		bot.DeleteMessage(&telego.DeleteMessageParams{ChatID: chatID, MessageID: dialog.PasswordPromptID})
	}

	token, err := bot.Auth.Authenticate(ctx, dialog.UserLogin, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			log.WithError(err).Errorf("Auth API failure for chat %s", chatIDString)
		}
		clearDialog(bot.Cache, chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageAuthFailed))
		return
	}

	now := time.Now()
	user := &models.User{
		ChatID:       chatIDString,
		UserID:       dialog.UserID,
		FirstName:    dialog.FirstName,
		LastName:     dialog.LastName,
		Username:     dialog.Username,
		UserLogin:    dialog.UserLogin,
		AccountLogin: dialog.AccountLogin,
		IsAdmin:      true,
		Email:        dialog.Email,
		Token:        token,
		AuthStatus:   models.AuthStatusPassed,
		LastCheck:    now.Format(models.TimeLayout),
		NextCheck:    now.AddDate(0, 0, 365).Format(models.TimeLayout),
		RegisteredAt: now.Format(models.TimeLayout),
		LastActivity: now.Format(models.TimeLayout),
	}
	if err := bot.Store.RegisterUser(ctx, user); err != nil {
		log.WithError(err).Errorf("Failed to register user %s", chatIDString)
		clearDialog(bot.Cache, chatIDString)
		bot.SendMessage(tu.Message(chatID, MessageSaveError))
		return
	}

	clearDialog(bot.Cache, chatIDString)
	config.CONFIG.DataDogClient.Incr("telegram.registration", nil, 1)
	bot.Store.AppendLog(ctx, "SUCCESS", "REGISTRATION",
		"Пользователь "+dialog.UserLogin+" (chat_id: "+chatIDString+") зарегистрирован")
	bot.SendMessage(tu.Message(chatID, MessageAuthSuccess).WithReplyMarkup(mainMenuKeyboard()))
}
