// Runs daily after the upstream nightly export lands and drops every cached
// row so the bot serves fresh balances.
package flushcache

import (
	"context"

	log "github.com/sirupsen/logrus"

	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/store"
)

var Store *store.Store

func Run() {
	deleted, err := Store.FlushAll(context.Background())
	if err != nil {
		log.Errorf("failed to flush cache: %s", err)
		config.CONFIG.DataDogClient.Incr("flushcache_worker.errors", nil, 1)
		return
	}
	config.CONFIG.DataDogClient.Gauge("flushcache_worker.keys_flushed", float64(deleted), nil, 1)
	log.Infof("daily cache flush dropped %d keys", deleted)
}
