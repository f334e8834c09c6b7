package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/db/mongo"
	"balancebot/m/v2/app/db/redis"
	"balancebot/m/v2/app/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound mirrors the adapter sentinel so callers depend on one package.
var ErrNotFound = mongo.ErrNotFound

const (
	userKeyPrefix    = "cache:user:"
	balanceKeyPrefix = "cache:balance:"
	loginKeyPrefix   = "cache:login:"
	cacheKeyPattern  = "cache:*"
)

// Store is the single data access surface for the bot: mongo rows behind a
// redis read-through cache. Reads of hot rows (users, balances, directory)
// are memoized with the configured TTL; every write invalidates its key
// before touching mongo.
type Store struct {
	Mongo mongo.MongoClient
	Redis redis.Client
	TTL   time.Duration
}

func New(mongoClient mongo.MongoClient, redisClient redis.Client, ttl time.Duration) *Store {
	return &Store{
		Mongo: mongoClient,
		Redis: redisClient,
		TTL:   ttl,
	}
}

// GetUser fetches a user row through the cache.
func (s *Store) GetUser(ctx context.Context, chatID string) (*models.User, error) {
	fetch := redis.WrapInCache(s.Redis, userKeyPrefix+chatID, s.TTL, func() (string, error) {
		user, err := s.Mongo.GetUser(ctx, chatID)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(user)
		if err != nil {
			return "", fmt.Errorf("GetUser: failed to marshal user: %w", err)
		}
		return string(data), nil
	})
	data, err := fetch()
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("GetUser: failed to unmarshal user: %w", err)
	}
	return &user, nil
}

// GetAccountBalance fetches the balance snapshot for one account through
// the cache.
func (s *Store) GetAccountBalance(ctx context.Context, accountLogin string) (*models.AccountBalance, error) {
	fetch := redis.WrapInCache(s.Redis, balanceKeyPrefix+accountLogin, s.TTL, func() (string, error) {
		balance, err := s.Mongo.GetAccountBalance(ctx, accountLogin)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(balance)
		if err != nil {
			return "", fmt.Errorf("GetAccountBalance: failed to marshal balance: %w", err)
		}
		return string(data), nil
	})
	data, err := fetch()
	if err != nil {
		return nil, err
	}
	var balance models.AccountBalance
	if err := json.Unmarshal([]byte(data), &balance); err != nil {
		return nil, fmt.Errorf("GetAccountBalance: failed to unmarshal balance: %w", err)
	}
	return &balance, nil
}

// FindLogin fetches a directory row through the cache.
func (s *Store) FindLogin(ctx context.Context, login string) (*models.DirectoryEntry, error) {
	fetch := redis.WrapInCache(s.Redis, loginKeyPrefix+login, s.TTL, func() (string, error) {
		entry, err := s.Mongo.FindLogin(ctx, login)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return "", fmt.Errorf("FindLogin: failed to marshal directory entry: %w", err)
		}
		return string(data), nil
	})
	data, err := fetch()
	if err != nil {
		return nil, err
	}
	var entry models.DirectoryEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, fmt.Errorf("FindLogin: failed to unmarshal directory entry: %w", err)
	}
	return &entry, nil
}

// UserTimezone resolves the declared UTC offset for a login. Missing entry,
// missing field or garbage all fall back to the default offset.
func (s *Store) UserTimezone(ctx context.Context, login string) int {
	entry, err := s.FindLogin(ctx, login)
	if err != nil {
		return config.CONFIG.DefaultUTCOffset
	}
	offset, err := strconv.Atoi(entry.UTCOffset)
	if err != nil {
		return config.CONFIG.DefaultUTCOffset
	}
	return offset
}

// RegisterUser writes a fresh user row and drops any stale cached copy.
func (s *Store) RegisterUser(ctx context.Context, user *models.User) error {
	s.invalidate(ctx, userKeyPrefix+user.ChatID)
	return s.Mongo.UpsertUser(ctx, user)
}

// UpdateUserFields applies a partial user update, invalidating first.
func (s *Store) UpdateUserFields(ctx context.Context, chatID string, fields bson.M) error {
	s.invalidate(ctx, userKeyPrefix+chatID)
	return s.Mongo.UpdateUserFields(ctx, chatID, fields)
}

// TouchActivity stamps the user's last activity. Cache is left alone, the
// stamp is diagnostics only and must not evict the hot row every message.
func (s *Store) TouchActivity(ctx context.Context, chatID string) {
	err := s.Mongo.UpdateUserFields(ctx, chatID, bson.M{
		"last_activity": time.Now().Format(models.TimeLayout),
	})
	if err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Warn("failed to stamp activity")
	}
}

// RecheckAdmin re-validates the admin entitlement against the directory,
// bypassing the login cache, and pushes the next check a year out.
func (s *Store) RecheckAdmin(ctx context.Context, user *models.User) (bool, error) {
	s.invalidate(ctx, loginKeyPrefix+user.UserLogin)
	entry, err := s.Mongo.FindLogin(ctx, user.UserLogin)
	if err != nil {
		return false, fmt.Errorf("RecheckAdmin: failed to read directory for %s: %w", user.UserLogin, err)
	}
	isAdmin := entry.IsAdminYes()
	now := time.Now()
	err = s.UpdateUserFields(ctx, user.ChatID, bson.M{
		"is_admin":   isAdmin,
		"last_check": now.Format(models.TimeLayout),
		"next_check": now.AddDate(0, 0, 365).Format(models.TimeLayout),
	})
	if err != nil {
		return false, fmt.Errorf("RecheckAdmin: failed to persist recheck for %s: %w", user.ChatID, err)
	}
	user.IsAdmin = isAdmin
	return isAdmin, nil
}

// LogoutUser clears the session token, marks the user logged out and
// soft-deletes all their active notification rules. Returns how many rules
// were deleted.
func (s *Store) LogoutUser(ctx context.Context, chatID string) (int64, error) {
	user, err := s.Mongo.GetUser(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("LogoutUser: failed to load user %s: %w", chatID, err)
	}
	// the directory entry is re-read on the next registration attempt
	s.invalidate(ctx, loginKeyPrefix+user.UserLogin)
	err = s.UpdateUserFields(ctx, chatID, bson.M{
		"token":       "",
		"auth_status": models.AuthStatusLoggedOut,
	})
	if err != nil {
		return 0, fmt.Errorf("LogoutUser: failed to clear session for %s: %w", chatID, err)
	}
	count, err := s.Mongo.DeleteUserNotifications(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("LogoutUser: failed to delete rules for %s: %w", chatID, err)
	}
	return count, nil
}

// Notification rule operations are uncached pass-throughs, the scheduler
// needs fresh state every tick.

func (s *Store) AddNotification(ctx context.Context, n *models.Notification) error {
	id, err := s.Mongo.NextNotificationID(ctx)
	if err != nil {
		return err
	}
	n.ID = id
	return s.Mongo.AddNotification(ctx, n)
}

func (s *Store) GetUserNotifications(ctx context.Context, chatID string) ([]models.Notification, error) {
	return s.Mongo.GetUserNotifications(ctx, chatID)
}

func (s *Store) GetAllActiveNotifications(ctx context.Context) ([]models.Notification, error) {
	return s.Mongo.GetAllActiveNotifications(ctx)
}

func (s *Store) UpdateNotificationState(ctx context.Context, chatID string, id int64, observedBalance string, state models.SendState) error {
	return s.Mongo.UpdateNotificationState(ctx, chatID, id, observedBalance, state)
}

func (s *Store) DeleteNotification(ctx context.Context, chatID string, id int64) (bool, error) {
	return s.Mongo.DeleteNotification(ctx, chatID, id)
}

// Ledger reads are uncached, report builds are rare and must see the
// freshest rows.

func (s *Store) GetChargesForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyCharge, error) {
	return s.Mongo.GetChargesForMonth(ctx, accountLogin, year, month)
}

func (s *Store) GetPaymentsForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyPayment, error) {
	return s.Mongo.GetPaymentsForMonth(ctx, accountLogin, year, month)
}

func (s *Store) GetActivityTotalsForRange(ctx context.Context, accountLogin string, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	return s.Mongo.GetActivityTotalsForRange(ctx, accountLogin, from, to)
}

// AppendLog writes an audit row. Failures are logged, never propagated, the
// audit trail must not break user flows.
func (s *Store) AppendLog(ctx context.Context, status, action, message string) {
	now := time.Now()
	err := s.Mongo.AppendLog(ctx, models.LogEntry{
		Date:    now.Format("02.01.2006"),
		Time:    now.Format("15:04:05"),
		Status:  status,
		Action:  action,
		Message: message,
		At:      now,
	})
	if err != nil {
		logrus.WithError(err).WithField("action", action).Warn("failed to append audit log")
	}
}

func (s *Store) DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.Mongo.DeleteLogsBefore(ctx, cutoff)
}

// FlushAll drops every cached row. Runs daily after the upstream export
// lands so the bot picks up fresh balances.
func (s *Store) FlushAll(ctx context.Context) (int64, error) {
	keys, err := s.Redis.Keys(ctx, cacheKeyPattern).Result()
	if err != nil {
		return 0, fmt.Errorf("FlushAll: failed to list cache keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	deleted, err := s.Redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("FlushAll: failed to delete cache keys: %w", err)
	}
	return deleted, nil
}

func (s *Store) invalidate(ctx context.Context, key string) {
	if err := s.Redis.Del(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("failed to invalidate cache key")
	}
}
