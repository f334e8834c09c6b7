package models

import (
	"strings"
	"time"
)

// Context keys carried through request contexts.
type UserContext struct{}
type ClientContext struct{}

// TimeLayout is the human-readable timestamp format stored in user rows.
const TimeLayout = "2006-01-02 15:04:05"

type AuthStatus string

const (
	AuthStatusNone      AuthStatus = ""
	AuthStatusPassed    AuthStatus = "passed"
	AuthStatusExpired   AuthStatus = "expired"
	AuthStatusLoggedOut AuthStatus = "logged_out"
)

// User is a registered bot account, one per telegram chat.
type User struct {
	ChatID       string     `bson:"_id"`
	UserID       int64      `bson:"user_id"`
	FirstName    string     `bson:"first_name"`
	LastName     string     `bson:"last_name"`
	Username     string     `bson:"username"`
	UserLogin    string     `bson:"user_login"`
	AccountLogin string     `bson:"account_login"`
	IsAdmin      bool       `bson:"is_admin"`
	Email        string     `bson:"email"`
	Token        string     `bson:"token"`
	AuthStatus   AuthStatus `bson:"auth_status"`
	LastCheck    string     `bson:"last_check"`
	NextCheck    string     `bson:"next_check"`
	RegisteredAt string     `bson:"registered_at"`
	LastActivity string     `bson:"last_activity"`
}

// IsAuthenticated reports whether the user passed authentication and the
// entitlement has not expired yet.
func (u *User) IsAuthenticated() bool {
	if u.AuthStatus != AuthStatusPassed {
		return false
	}
	if u.NextCheck != "" {
		nextCheck, err := time.Parse(TimeLayout, u.NextCheck)
		if err == nil && time.Now().After(nextCheck) {
			return false
		}
	}
	return true
}

// NeedsAdminRecheck reports whether the admin entitlement must be re-validated
// against the directory before serving the user.
func (u *User) NeedsAdminRecheck() bool {
	if u.NextCheck == "" {
		return true
	}
	nextCheck, err := time.Parse(TimeLayout, u.NextCheck)
	if err != nil {
		return true
	}
	return time.Now().After(nextCheck)
}

// DirectoryEntry is one row of the upstream user directory: the source of
// truth for account binding, admin entitlement and declared UTC offset.
type DirectoryEntry struct {
	Login       string `bson:"_id"`
	AccountName string `bson:"account_name"`
	IsAdmin     string `bson:"is_admin"`
	UTCOffset   string `bson:"utc_offset"`
}

// IsAdminYes interprets the raw admin tag the directory carries.
func (e *DirectoryEntry) IsAdminYes() bool {
	return strings.ToLower(strings.TrimSpace(e.IsAdmin)) == "да"
}

// AccountBalance is the nightly-refreshed balance snapshot for one billing
// account. All monetary fields are raw strings exactly as exported upstream
// (comma-decimal, possible currency prefix); callers parse them.
type AccountBalance struct {
	AccountLogin  string `bson:"_id"`
	Organization  string `bson:"organization"`
	Tariff        string `bson:"tariff"`
	AvgCharge     string `bson:"avg_charge"`
	ActiveObjects string `bson:"active_objects"`
	Balance       string `bson:"balance"`
	DaysLeft      string `bson:"days_left"`
}

// FormatMessage renders the balance snapshot for the chat.
func (b *AccountBalance) FormatMessage(displayName string) string {
	if displayName == "" {
		displayName = b.AccountLogin
	}
	return "🏢 Аккаунт: " + displayName +
		"\n📅 Дата запроса: " + time.Now().Format("02.01.2006") +
		"\n\n📊 Тариф за 1 объект: " + b.Tariff + " руб/день" +
		"\n📦 Активных объектов: " + b.ActiveObjects +
		"\n💸 Средняя сумма списания: " + b.AvgCharge + " руб/день" +
		"\n\n💰 Текущий баланс: " + b.Balance + " руб" +
		"\n⏳ Баланса хватит на: " + b.DaysLeft + " дней" +
		"\n\nДанные обновляются 1 раз в сутки!"
}

type RuleStatus string

const (
	RuleStatusActive  RuleStatus = "active"
	RuleStatusDeleted RuleStatus = "deleted"
)

// SendState is the delivery-arm state of a notification rule. Armed rules may
// fire on the next threshold crossing; waiting rules already fired and re-arm
// only after the balance is observed above the threshold again.
type SendState string

const (
	SendStateArmed   SendState = "armed"
	SendStateWaiting SendState = "waiting"
)

// Notification is one balance-threshold rule owned by a user. Ids are
// monotonically assigned and never recycled; deleted rules are soft-deleted.
type Notification struct {
	ID              int64      `bson:"id"`
	ChatID          string     `bson:"chat_id"`
	AccountLogin    string     `bson:"account_login"`
	Status          RuleStatus `bson:"status"`
	Threshold       float64    `bson:"threshold"`
	Time            string     `bson:"time"`
	ObservedBalance string     `bson:"observed_balance"`
	SendState       SendState  `bson:"send_state"`
	CreatedAt       string     `bson:"created_at"`
}

func (n *Notification) IsActive() bool {
	return n.Status == RuleStatusActive
}

// LogEntry is one audit row appended to the logs collection.
type LogEntry struct {
	Date    string    `bson:"date"`
	Time    string    `bson:"time"`
	Status  string    `bson:"status"`
	Action  string    `bson:"action"`
	Message string    `bson:"message"`
	At      time.Time `bson:"at"`
}
