package config

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

var CONFIG *Config

type Config struct {
	AuthAPIURL           string
	AuthEndpoint         string
	BotName              string
	BotUrl               string
	CacheTTL             time.Duration
	CheckInterval        time.Duration
	DailyCacheFlushTime  string
	DailyLogCleanupTime  string
	DataDogClient        *statsd.Client
	DefaultUTCOffset     int
	Environment          string
	LogRetentionDays     int
	MongoDBConnection    string
	MongoDBName          string
	Redis                Redis
	StatisticsStartYear  int
	StatusWorkerInterval time.Duration
	TelegramBotToken     string
}

type Redis struct {
	Host     string
	Port     string
	Password string
}

// DefaultZone is the timezone used when a user has no declared UTC offset
// and for the fixed-time daily jobs.
func (c *Config) DefaultZone() *time.Location {
	return time.FixedZone("default", c.DefaultUTCOffset*60*60)
}
