package telegram

import (
	"context"
	"encoding/json"
	"time"

	"balancebot/m/v2/app/db/redis"

	log "github.com/sirupsen/logrus"
)

type DialogState string

const (
	StateNone              DialogState = ""
	StateAwaitingLogin     DialogState = "awaiting_login"
	StateAwaitingEmail     DialogState = "awaiting_email"
	StateAwaitingPassword  DialogState = "awaiting_password"
	StateAwaitingThreshold DialogState = "awaiting_threshold"
	StateAwaitingTime      DialogState = "awaiting_custom_time"
	StateAwaitingConfirm   DialogState = "awaiting_confirm"
)

// abandoned conversations expire on their own
const dialogTTL = time.Hour

// Dialog is the per-chat conversation state, kept as JSON in redis so a
// restart does not lose a flow mid-step.
type Dialog struct {
	State DialogState `json:"state"`

	// telegram identity captured at /start
	UserID    int64  `json:"user_id,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`

	// registration flow
	UserLogin        string `json:"user_login,omitempty"`
	AccountLogin     string `json:"account_login,omitempty"`
	IsAdmin          string `json:"is_admin,omitempty"`
	Email            string `json:"email,omitempty"`
	PasswordPromptID int    `json:"password_prompt_id,omitempty"`

	// notification flow
	Threshold float64 `json:"threshold,omitempty"`
	Time      string  `json:"time,omitempty"`

	// statistics flow
	DisplayYear int `json:"display_year,omitempty"`
	StatYear    int `json:"stat_year,omitempty"`
	StatMonth   int `json:"stat_month,omitempty"`
}

func dialogKey(chatID string) string {
	return "dialog:" + chatID
}

func getDialog(client redis.Client, chatID string) *Dialog {
	data, err := client.Get(context.Background(), dialogKey(chatID)).Result()
	if err != nil {
		return &Dialog{}
	}
	var dialog Dialog
	if err := json.Unmarshal([]byte(data), &dialog); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("corrupt dialog state, resetting")
		return &Dialog{}
	}
	return &dialog
}

func saveDialog(client redis.Client, chatID string, dialog *Dialog) {
	data, err := json.Marshal(dialog)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("failed to marshal dialog state")
		return
	}
	if err := client.Set(context.Background(), dialogKey(chatID), string(data), dialogTTL).Err(); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("failed to save dialog state")
	}
}

func clearDialog(client redis.Client, chatID string) {
	if err := client.Del(context.Background(), dialogKey(chatID)).Err(); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("failed to clear dialog state")
	}
}
