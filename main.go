package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"balancebot/m/v2/app/auth"
	"balancebot/m/v2/app/config"
	"balancebot/m/v2/app/db/mongo"
	"balancebot/m/v2/app/db/redis"
	"balancebot/m/v2/app/ledger"
	"balancebot/m/v2/app/notifier"
	"balancebot/m/v2/app/status"
	"balancebot/m/v2/app/store"
	"balancebot/m/v2/app/telegram"
	"balancebot/m/v2/app/util"
	"balancebot/m/v2/app/workers"
	"balancebot/m/v2/app/workers/cleanlogs"
	"balancebot/m/v2/app/workers/flushcache"
	statusworker "balancebot/m/v2/app/workers/status"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

func main() {
	done := make(chan struct{}, 1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, relying on process environment")
	}

	env := util.Env("ENV", "dev")
	dataDogClient, err := statsd.New("datadog-agent.default.svc.cluster.local:8125", statsd.WithNamespace("balancebot."))
	if err != nil && env == "production" {
		log.Fatalf("error creating main DataDog client: %v", err)
	}

	config.CONFIG = &config.Config{
		AuthAPIURL:           util.Env("AUTH_API_URL", "https://axenta.cloud"),
		AuthEndpoint:         util.Env("AUTH_ENDPOINT", "/auth/login"),
		BotName:              util.Env("BOT_NAME", "balancebot"),
		BotUrl:               util.Env("BOT_URL", "https://t.me/balancebot"),
		CacheTTL:             time.Duration(util.EnvInt("CACHE_TTL_SECONDS", 3600)) * time.Second,
		CheckInterval:        time.Duration(util.EnvInt("CHECK_INTERVAL_MINUTES", 1)) * time.Minute,
		DailyCacheFlushTime:  util.Env("DAILY_CACHE_FLUSH_TIME", "03:05"),
		DailyLogCleanupTime:  util.Env("DAILY_LOG_CLEANUP_TIME", "03:10"),
		DataDogClient:        dataDogClient,
		DefaultUTCOffset:     util.EnvInt("DEFAULT_UTC_OFFSET", 3),
		Environment:          env,
		LogRetentionDays:     util.EnvInt("LOG_RETENTION_DAYS", 30),
		MongoDBConnection:    util.Env("MONGO_DB_CONNECTION_STRING"),
		MongoDBName:          util.Env("MONGO_DB_NAME", "balancebot"),
		Redis: config.Redis{
			Host:     util.Env("REDIS_HOST"),
			Port:     "6379",
			Password: util.Env("REDIS_PASSWORD"),
		},
		StatisticsStartYear:  util.EnvInt("STATISTICS_START_YEAR", 2026),
		StatusWorkerInterval: time.Minute,
		TelegramBotToken:     util.Env("TELEGRAM_BOT_TOKEN"),
	}

	err = dataDogClient.Count("main.start", 1, []string{"env:" + config.CONFIG.Environment}, 1)
	if err != nil {
		log.Errorf("error sending metric: %v", err)
	}
	if config.CONFIG.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{
			DisableTimestamp: true,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
			DisableColors: false,
		})
		log.SetLevel(log.TraceLevel)
	}

	redisClient := redis.NewClient(config.CONFIG.Redis)
	mongoClient := mongo.NewClient(config.CONFIG.MongoDBConnection)
	dataStore := store.New(mongoClient, redisClient, config.CONFIG.CacheTTL)
	authClient := auth.NewClient()
	engine := ledger.NewEngine(dataStore)

	rtr := router.New()
	rtr.GET("/", func(ctx *fasthttp.RequestCtx) {
		ctx.Redirect(config.CONFIG.BotUrl, fasthttp.StatusFound)
	})
	rtr.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.WriteString("❤️ from balancebot")
	})

	telegramBot, err := telegram.NewBot(rtr, config.CONFIG, dataStore, authClient, engine, redisClient)
	if err != nil {
		log.Fatalf("ERROR creating bot: %v", err)
	}

	// per-minute notification scheduler
	checker := notifier.NewChecker(dataStore, telegramBot.Bot)
	notifierWorker := workers.NewWorker("notifier", config.CONFIG.CheckInterval, checker.CheckNotifications)
	go notifierWorker.Start()

	// system status probe
	statusworker.Handler = status.New(mongoClient, redisClient, authClient)
	statusworker.Cache = redisClient
	statusworker.WORKER = workers.NewWorker("status", config.CONFIG.StatusWorkerInterval, statusworker.Run)
	go statusworker.WORKER.Start()

	// fixed-time daily jobs run in the default zone, after the nightly export
	flushcache.Store = dataStore
	cleanlogs.Store = dataStore
	dailyJobs := cron.New(cron.WithLocation(config.CONFIG.DefaultZone()))
	mustAddDailyJob(dailyJobs, config.CONFIG.DailyCacheFlushTime, flushcache.Run)
	mustAddDailyJob(dailyJobs, config.CONFIG.DailyLogCleanupTime, cleanlogs.Run)
	dailyJobs.Start()

	go TearDown(sigs, done, telegramBot, notifierWorker, statusworker.WORKER, dailyJobs, mongoClient)

	go func() {
		err := telegramBot.StartWebhook(util.Env("BACKEND_LISTEN_ADDRESS"))
		util.Assert(err == nil, "StartWebhook:", err)
	}()

	log.Infof("🤖 %s started successfully 🚀", config.CONFIG.BotName)

	<-done
	log.Info("Done")
}

// mustAddDailyJob schedules fn every day at "HH:MM".
func mustAddDailyJob(c *cron.Cron, at string, fn func()) {
	parts := strings.Split(at, ":")
	util.Assert(len(parts) == 2, "daily job time must be HH:MM, got", at)
	hour, err := strconv.Atoi(parts[0])
	util.Assert(err == nil, "daily job time must be HH:MM, got", at)
	minute, err := strconv.Atoi(parts[1])
	util.Assert(err == nil, "daily job time must be HH:MM, got", at)
	_, err = c.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), fn)
	util.Assert(err == nil, "failed to schedule daily job:", err)
}

func TearDown(sigs chan os.Signal, done chan struct{}, telegramBot *telegram.Bot, notifierWorker, statusWorker *workers.Worker, dailyJobs *cron.Cron, mongoClient *mongo.Client) {
	<-sigs
	log.Infof("🤖 %s shutting down", config.CONFIG.BotName)
	notifierWorker.StopWorker()
	statusWorker.StopWorker()
	dailyJobs.Stop()
	telegramBot.BotHandler.Stop()
	err := telegramBot.StopWebhook()
	if err != nil {
		log.Errorf("TearDown: StopWebhook: %v", err)
	}
	err = mongoClient.Disconnect(context.Background())
	if err != nil {
		log.Errorf("TearDown: Disconnecting from MongoDB: %v", err)
	}
	done <- struct{}{}
}
