package status

import (
	"context"
	"time"

	"balancebot/m/v2/app/auth"
	"balancebot/m/v2/app/db/mongo"
	"balancebot/m/v2/app/db/redis"

	"github.com/sirupsen/logrus"
)

type SystemStatus struct {
	MongoDB *Status   `json:"mongodb"`
	Redis   *Status   `json:"redis"`
	AuthAPI *Status   `json:"auth_api"`
	Time    time.Time `json:"time"`
}

// Status
type Status struct {
	Available bool `json:"available"`
}

// SystemStatusHandler is a handler for system status
type SystemStatusHandler struct {
	MongoDB mongo.MongoClient
	Redis   redis.Client
	Auth    *auth.Client
}

// New creates a new instance of SystemStatusHandler
func New(mongoDB mongo.MongoClient, redisClient redis.Client, authClient *auth.Client) *SystemStatusHandler {
	return &SystemStatusHandler{
		MongoDB: mongoDB,
		Redis:   redisClient,
		Auth:    authClient,
	}
}

// GetSystemStatus gets a status of the system
func (h *SystemStatusHandler) GetSystemStatus() SystemStatus {
	mongoAvailable := false
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	err := h.MongoDB.Ping(ctxPing, nil)
	if err != nil {
		logrus.WithError(err).Warn("GetSystemStatus: failed to ping MongoDB")
	} else {
		mongoAvailable = true
	}

	authAvailable := false
	if h.Auth != nil {
		ctxAuth, cancelAuth := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelAuth()
		if err := h.Auth.Ping(ctxAuth); err != nil {
			logrus.WithError(err).Warn("GetSystemStatus: auth API unavailable")
		} else {
			authAvailable = true
		}
	}

	return SystemStatus{
		MongoDB: &Status{
			Available: mongoAvailable,
		},
		Redis: &Status{
			Available: h.Redis != nil && h.Redis.Ping(context.Background()).Err() == nil,
		},
		AuthAPI: &Status{
			Available: authAvailable,
		},
		Time: time.Now(),
	}
}
