package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("not found")

// Client is a mongo client
type Client struct {
	*mongo.Client
}

// MongoClient is the store adapter contract: keyed lookups, scans, appends and
// field updates over the external row store. No business logic lives here.
type MongoClient interface {
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context, rp *readpref.ReadPref) error

	GetUser(ctx context.Context, chatID string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
	UpdateUserFields(ctx context.Context, chatID string, fields bson.M) error

	FindLogin(ctx context.Context, login string) (*models.DirectoryEntry, error)
	GetAccountBalance(ctx context.Context, accountLogin string) (*models.AccountBalance, error)

	NextNotificationID(ctx context.Context) (int64, error)
	AddNotification(ctx context.Context, n *models.Notification) error
	GetUserNotifications(ctx context.Context, chatID string) ([]models.Notification, error)
	GetAllActiveNotifications(ctx context.Context) ([]models.Notification, error)
	UpdateNotificationState(ctx context.Context, chatID string, id int64, observedBalance string, state models.SendState) error
	DeleteNotification(ctx context.Context, chatID string, id int64) (bool, error)
	DeleteUserNotifications(ctx context.Context, chatID string) (int64, error)

	AppendLog(ctx context.Context, entry models.LogEntry) error
	DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	GetChargesForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyCharge, error)
	GetPaymentsForMonth(ctx context.Context, accountLogin string, year, month int) ([]models.DailyPayment, error)
	GetActivityTotalsForRange(ctx context.Context, accountLogin string, from, to time.Time) (decimal.Decimal, decimal.Decimal, error)
}

// NewClient creates a new mongo client
func NewClient(connection string) *Client {
	return &Client{
		Client: mustConnect(connection),
	}
}

// mustConnect connects to mongo and panics on error
func mustConnect(connection string) *mongo.Client {
	client, err := mongo.NewClient(options.Client().ApplyURI(connection).SetMaxConnecting(25))
	if err != nil {
		logrus.WithError(err).Panic("failed to create mongo client")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		logrus.WithError(err).Panic("failed to connect to mongo")
	}

	return client
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.Database(config.CONFIG.MongoDBName).Collection(name)
}

func (c *Client) GetUser(ctx context.Context, chatID string) (*models.User, error) {
	var user models.User
	err := c.collection("users").FindOne(ctx, bson.M{"_id": chatID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUser: failed to find user: %w", err)
	}
	return &user, nil
}

func (c *Client) UpsertUser(ctx context.Context, user *models.User) error {
	opts := options.Replace().SetUpsert(true)
	_, err := c.collection("users").ReplaceOne(ctx, bson.M{"_id": user.ChatID}, user, opts)
	if err != nil {
		return fmt.Errorf("UpsertUser: failed to upsert user %s: %w", user.ChatID, err)
	}
	return nil
}

func (c *Client) UpdateUserFields(ctx context.Context, chatID string, fields bson.M) error {
	_, err := c.collection("users").UpdateOne(ctx, bson.M{"_id": chatID}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("UpdateUserFields: failed to update user %s: %w", chatID, err)
	}
	return nil
}

func (c *Client) FindLogin(ctx context.Context, login string) (*models.DirectoryEntry, error) {
	var entry models.DirectoryEntry
	err := c.collection("directory").FindOne(ctx, bson.M{"_id": login}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindLogin: failed to find login %s: %w", login, err)
	}
	return &entry, nil
}

func (c *Client) GetAccountBalance(ctx context.Context, accountLogin string) (*models.AccountBalance, error) {
	var balance models.AccountBalance
	err := c.collection("balances").FindOne(ctx, bson.M{"_id": accountLogin}).Decode(&balance)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetAccountBalance: failed to find account %s: %w", accountLogin, err)
	}
	return &balance, nil
}

// NextNotificationID returns a monotonically increasing rule id. Ids are never
// recycled, deleted rules keep theirs.
func (c *Client) NextNotificationID(ctx context.Context) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := c.collection("counters").FindOneAndUpdate(
		ctx,
		bson.M{"_id": "notification_id"},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("NextNotificationID: failed to increment counter: %w", err)
	}
	return counter.Seq, nil
}

func (c *Client) AddNotification(ctx context.Context, n *models.Notification) error {
	_, err := c.collection("notifications").InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("AddNotification: failed to insert rule %d: %w", n.ID, err)
	}
	return nil
}

func (c *Client) GetUserNotifications(ctx context.Context, chatID string) ([]models.Notification, error) {
	filter := bson.M{"chat_id": chatID, "status": models.RuleStatusActive}
	return c.findNotifications(ctx, filter)
}

func (c *Client) GetAllActiveNotifications(ctx context.Context) ([]models.Notification, error) {
	return c.findNotifications(ctx, bson.M{"status": models.RuleStatusActive})
}

func (c *Client) findNotifications(ctx context.Context, filter bson.M) ([]models.Notification, error) {
	cursor, err := c.collection("notifications").Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("findNotifications: failed to scan rules: %w", err)
	}
	defer cursor.Close(ctx)
	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("findNotifications: failed to decode rules: %w", err)
	}
	return notifications, nil
}

func (c *Client) UpdateNotificationState(ctx context.Context, chatID string, id int64, observedBalance string, state models.SendState) error {
	filter := bson.M{"chat_id": chatID, "id": id}
	update := bson.M{"$set": bson.M{
		"observed_balance": observedBalance,
		"send_state":       state,
	}}
	_, err := c.collection("notifications").UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("UpdateNotificationState: failed to update rule %d: %w", id, err)
	}
	return nil
}

// DeleteNotification soft-deletes one rule; the row stays for audit.
func (c *Client) DeleteNotification(ctx context.Context, chatID string, id int64) (bool, error) {
	filter := bson.M{"chat_id": chatID, "id": id, "status": models.RuleStatusActive}
	update := bson.M{"$set": bson.M{"status": models.RuleStatusDeleted}}
	result, err := c.collection("notifications").UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("DeleteNotification: failed to delete rule %d: %w", id, err)
	}
	return result.ModifiedCount > 0, nil
}

func (c *Client) DeleteUserNotifications(ctx context.Context, chatID string) (int64, error) {
	filter := bson.M{"chat_id": chatID, "status": models.RuleStatusActive}
	update := bson.M{"$set": bson.M{"status": models.RuleStatusDeleted}}
	result, err := c.collection("notifications").UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("DeleteUserNotifications: failed to delete rules for %s: %w", chatID, err)
	}
	return result.ModifiedCount, nil
}

func (c *Client) AppendLog(ctx context.Context, entry models.LogEntry) error {
	_, err := c.collection("logs").InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("AppendLog: failed to insert log entry: %w", err)
	}
	return nil
}

func (c *Client) DeleteLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := c.collection("logs").DeleteMany(ctx, bson.M{"at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("DeleteLogsBefore: failed to delete old logs: %w", err)
	}
	return result.DeletedCount, nil
}
