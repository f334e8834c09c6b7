package store

import (
	"context"
	"testing"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/db/mongo"
	"balancebot/m/v2/app/db/redis"
	"balancebot/m/v2/app/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func setupTestStore() (*Store, *mongo.MockMongoClient, *redis.MockRedisClient) {
	config.CONFIG = &config.Config{
		DefaultUTCOffset: 3,
		CacheTTL:         time.Hour,
	}
	mongoMock := mongo.NewMockMongoClient()
	redisMock := redis.NewMockRedisClient()
	return New(mongoMock, redisMock, time.Hour), mongoMock, redisMock
}

func TestGetUserReadsThroughCache(t *testing.T) {
	s, mongoMock, _ := setupTestStore()
	ctx := context.Background()
	mongoMock.Users["123"] = &models.User{ChatID: "123", UserLogin: "ivanov", AccountLogin: "acme"}

	user, err := s.GetUser(ctx, "123")
	assert.NoError(t, err)
	assert.Equal(t, "ivanov", user.UserLogin)

	// mutate the backing row, the cached copy must win
	mongoMock.Users["123"].UserLogin = "petrov"
	user, err = s.GetUser(ctx, "123")
	assert.NoError(t, err)
	assert.Equal(t, "ivanov", user.UserLogin)
}

func TestGetUserNotFound(t *testing.T) {
	s, _, _ := setupTestStore()
	_, err := s.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUserFieldsInvalidatesCache(t *testing.T) {
	s, mongoMock, _ := setupTestStore()
	ctx := context.Background()
	mongoMock.Users["123"] = &models.User{ChatID: "123", Email: "old@example.com"}

	_, err := s.GetUser(ctx, "123")
	assert.NoError(t, err)

	err = s.UpdateUserFields(ctx, "123", bson.M{"email": "new@example.com"})
	assert.NoError(t, err)

	user, err := s.GetUser(ctx, "123")
	assert.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
}

func TestUserTimezone(t *testing.T) {
	s, mongoMock, _ := setupTestStore()
	ctx := context.Background()
	mongoMock.Directory["ivanov"] = &models.DirectoryEntry{Login: "ivanov", UTCOffset: "5"}
	mongoMock.Directory["sidorov"] = &models.DirectoryEntry{Login: "sidorov", UTCOffset: "москва"}

	assert.Equal(t, 5, s.UserTimezone(ctx, "ivanov"))
	assert.Equal(t, 3, s.UserTimezone(ctx, "sidorov"), "garbage offset falls back to default")
	assert.Equal(t, 3, s.UserTimezone(ctx, "missing"), "unknown login falls back to default")
}

func TestRecheckAdmin(t *testing.T) {
	s, mongoMock, _ := setupTestStore()
	ctx := context.Background()
	mongoMock.Users["123"] = &models.User{ChatID: "123", UserLogin: "ivanov"}
	mongoMock.Directory["ivanov"] = &models.DirectoryEntry{Login: "ivanov", IsAdmin: " Да "}

	user := &models.User{ChatID: "123", UserLogin: "ivanov"}
	isAdmin, err := s.RecheckAdmin(ctx, user)
	assert.NoError(t, err)
	assert.True(t, isAdmin)
	assert.True(t, user.IsAdmin)

	stored := mongoMock.Users["123"]
	assert.True(t, stored.IsAdmin)
	nextCheck, err := time.Parse(models.TimeLayout, stored.NextCheck)
	assert.NoError(t, err)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 365), nextCheck, time.Minute)
}

func TestLogoutUserDeletesRules(t *testing.T) {
	s, mongoMock, redisMock := setupTestStore()
	ctx := context.Background()
	mongoMock.Users["123"] = &models.User{ChatID: "123", UserLogin: "ivanov", Token: "secret", AuthStatus: models.AuthStatusPassed}
	mongoMock.Directory["ivanov"] = &models.DirectoryEntry{Login: "ivanov", IsAdmin: "да"}
	mongoMock.Notifications = []models.Notification{
		{ID: 1, ChatID: "123", Status: models.RuleStatusActive},
		{ID: 2, ChatID: "123", Status: models.RuleStatusActive},
		{ID: 3, ChatID: "456", Status: models.RuleStatusActive},
	}

	// warm the directory cache so logout has something to drop
	_, err := s.FindLogin(ctx, "ivanov")
	assert.NoError(t, err)
	assert.NoError(t, redisMock.Get(ctx, loginKeyPrefix+"ivanov").Err())

	count, err := s.LogoutUser(ctx, "123")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)

	stored := mongoMock.Users["123"]
	assert.Empty(t, stored.Token)
	assert.Equal(t, models.AuthStatusLoggedOut, stored.AuthStatus)
	assert.Error(t, redisMock.Get(ctx, loginKeyPrefix+"ivanov").Err(), "directory cache entry must be dropped")

	remaining, err := s.GetUserNotifications(ctx, "123")
	assert.NoError(t, err)
	assert.Empty(t, remaining)

	others, err := s.GetUserNotifications(ctx, "456")
	assert.NoError(t, err)
	assert.Len(t, others, 1)
}

func TestAddNotificationAssignsSequentialIDs(t *testing.T) {
	s, _, _ := setupTestStore()
	ctx := context.Background()

	first := &models.Notification{ChatID: "123", Status: models.RuleStatusActive}
	second := &models.Notification{ChatID: "123", Status: models.RuleStatusActive}
	assert.NoError(t, s.AddNotification(ctx, first))
	assert.NoError(t, s.AddNotification(ctx, second))
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestFlushAllDropsOnlyCacheKeys(t *testing.T) {
	s, mongoMock, redisMock := setupTestStore()
	ctx := context.Background()
	mongoMock.Users["123"] = &models.User{ChatID: "123"}
	mongoMock.Balances["acme"] = &models.AccountBalance{AccountLogin: "acme", Balance: "100,00"}

	_, err := s.GetUser(ctx, "123")
	assert.NoError(t, err)
	_, err = s.GetAccountBalance(ctx, "acme")
	assert.NoError(t, err)
	redisMock.Set(ctx, "dialog:123", "state", 0)

	deleted, err := s.FlushAll(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	dialog, err := redisMock.Get(ctx, "dialog:123").Result()
	assert.NoError(t, err)
	assert.Equal(t, "state", dialog)
}
