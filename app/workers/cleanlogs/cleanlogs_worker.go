// Runs daily and trims the audit log collection to the configured retention.
package cleanlogs

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/store"
)

var Store *store.Store

func Run() {
	cutoff := time.Now().AddDate(0, 0, -config.CONFIG.LogRetentionDays)
	deleted, err := Store.DeleteLogsBefore(context.Background(), cutoff)
	if err != nil {
		log.Errorf("failed to clean old logs: %s", err)
		config.CONFIG.DataDogClient.Incr("cleanlogs_worker.errors", nil, 1)
		return
	}
	config.CONFIG.DataDogClient.Gauge("cleanlogs_worker.rows_deleted", float64(deleted), nil, 1)
	log.Infof("log cleanup removed %d rows older than %s", deleted, cutoff.Format("2006-01-02"))
}
