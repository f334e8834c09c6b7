package mongo

import (
	"context"
	"sync"
	"time"

	"balancebot/m/v2/app/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MockMongoClient is an in-memory MongoClient for tests.
type MockMongoClient struct {
	MongoClient

	mu            sync.RWMutex
	Users         map[string]*models.User
	Directory     map[string]*models.DirectoryEntry
	Balances      map[string]*models.AccountBalance
	Notifications []models.Notification
	Logs          []models.LogEntry
	Charges       []models.DailyCharge
	Payments      []models.DailyPayment
	seq           int64
}

func NewMockMongoClient() *MockMongoClient {
	return &MockMongoClient{
		Users:     make(map[string]*models.User),
		Directory: make(map[string]*models.DirectoryEntry),
		Balances:  make(map[string]*models.AccountBalance),
	}
}

func (m *MockMongoClient) Disconnect(ctx context.Context) error { return nil }

func (m *MockMongoClient) Ping(ctx context.Context, rp *readpref.ReadPref) error { return nil }

func (m *MockMongoClient) GetUser(ctx context.Context, chatID string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.Users[chatID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *MockMongoClient) UpsertUser(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *user
	m.Users[user.ChatID] = &copied
	return nil
}

func (m *MockMongoClient) UpdateUserFields(ctx context.Context, chatID string, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[chatID]
	if !ok {
		return ErrNotFound
	}
	for key, value := range fields {
		switch key {
		case "token":
			user.Token, _ = value.(string)
		case "auth_status":
			if s, ok := value.(models.AuthStatus); ok {
				user.AuthStatus = s
			} else if s, ok := value.(string); ok {
				user.AuthStatus = models.AuthStatus(s)
			}
		case "is_admin":
			user.IsAdmin, _ = value.(bool)
		case "last_check":
			user.LastCheck, _ = value.(string)
		case "next_check":
			user.NextCheck, _ = value.(string)
		case "last_activity":
			user.LastActivity, _ = value.(string)
		case "email":
			user.Email, _ = value.(string)
		}
	}
	return nil
}

func (m *MockMongoClient) FindLogin(ctx context.Context, login string) (*models.DirectoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.Directory[login]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (m *MockMongoClient) GetAccountBalance(ctx context.Context, accountLogin string) (*models.AccountBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	balance, ok := m.Balances[accountLogin]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *balance
	return &copied, nil
}

func (m *MockMongoClient) NextNotificationID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq, nil
}

func (m *MockMongoClient) AddNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, *n)
	return nil
}

func (m *MockMongoClient) GetUserNotifications(ctx context.Context, chatID string) ([]models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.Notification
	for _, n := range m.Notifications {
		if n.ChatID == chatID && n.IsActive() {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockMongoClient) GetAllActiveNotifications(ctx context.Context) ([]models.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.Notification
	for _, n := range m.Notifications {
		if n.IsActive() {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockMongoClient) UpdateNotificationState(ctx context.Context, chatID string, id int64, observedBalance string, state models.SendState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Notifications {
		if m.Notifications[i].ChatID == chatID && m.Notifications[i].ID == id {
			m.Notifications[i].ObservedBalance = observedBalance
			m.Notifications[i].SendState = state
			return nil
		}
	}
	return ErrNotFound
}

func (m *MockMongoClient) DeleteNotification(ctx context.Context, chatID string, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Notifications {
		if m.Notifications[i].ChatID == chatID && m.Notifications[i].ID == id && m.Notifications[i].IsActive() {
			m.Notifications[i].Status = models.RuleStatusDeleted
			return true, nil
		}
	}
	return false, nil
}

func (m *MockMongoClient) DeleteUserNotifications(ctx context.Context, chatID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for i := range m.Notifications {
		if m.Notifications[i].ChatID == chatID && m.Notifications[i].IsActive() {
			m.Notifications[i].Status = models.RuleStatusDeleted
			count++
		}
	}
	return count, nil
}

func (m *MockMongoClient) AppendLog(ctx context.Context, entry models.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, entry)
	return nil
}

func (m *MockMongoClient) DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []models.LogEntry
	var deleted int64
	for _, entry := range m.Logs {
		if entry.At.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	m.Logs = kept
	return deleted, nil
}

func (m *MockMongoClient) GetChargesForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyCharge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.DailyCharge
	for _, charge := range m.Charges {
		if charge.Date.Year() == year && int(charge.Date.Month()) == month {
			result = append(result, charge)
		}
	}
	return result, nil
}

func (m *MockMongoClient) GetPaymentsForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyPayment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.DailyPayment
	for _, payment := range m.Payments {
		if payment.Date.Year() == year && int(payment.Date.Month()) == month {
			result = append(result, payment)
		}
	}
	return result, nil
}

func (m *MockMongoClient) GetActivityTotalsForRange(ctx context.Context, accountLogin string, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	charges := decimal.Zero
	payments := decimal.Zero
	for _, charge := range m.Charges {
		if !charge.Date.Before(from) && charge.Date.Before(to) {
			charges = charges.Add(charge.Charge)
		}
	}
	for _, payment := range m.Payments {
		if !payment.Date.Before(from) && payment.Date.Before(to) {
			payments = payments.Add(payment.Amount)
		}
	}
	return charges, payments, nil
}
