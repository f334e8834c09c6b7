// Run regularly to check status of the system and persist it to the redis
package status

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/db/redis"
	"balancebot/m/v2/app/status"
	"balancebot/m/v2/app/workers"
)

var (
	WORKER  *workers.Worker
	Handler *status.SystemStatusHandler
	Cache   redis.Client
)

func Run() {
	systemStatus, err := redis.WrapInCache(Cache, "system-status", WORKER.Interval*10, FetchStatus)()
	if err != nil {
		log.Errorf("failed to fetch system status: %s", err)
		return
	}
	log.Debugf("system status: %s", systemStatus)
}

func FetchStatus() (string, error) {
	systemStatus := Handler.GetSystemStatus()
	config.CONFIG.DataDogClient.Gauge("status_worker.mongo_db_available", boolToFloat64(systemStatus.MongoDB.Available), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.redis_available", boolToFloat64(systemStatus.Redis.Available), nil, 1)
	config.CONFIG.DataDogClient.Gauge("status_worker.auth_api_available", boolToFloat64(systemStatus.AuthAPI.Available), nil, 1)
	if !systemStatus.MongoDB.Available {
		log.Error("MongoDB is down")
	}
	if !systemStatus.Redis.Available {
		log.Error("Redis is down")
	}
	if !systemStatus.AuthAPI.Available {
		log.Error("Auth API is down")
	}
	statusBytes, _ := json.Marshal(systemStatus)
	return string(statusBytes), nil
}

func boolToFloat64(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
