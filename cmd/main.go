package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/pulse-correction-bot/config"
	"github.com/oksasatya/pulse-correction-bot/internal/application"
	"github.com/oksasatya/pulse-correction-bot/internal/container"
	"github.com/oksasatya/pulse-correction-bot/internal/domain/entity"
	repo "github.com/oksasatya/pulse-correction-bot/internal/domain/repository"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/archive"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/backend"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/memory"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/redisstore"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/search"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/telegram"
	"github.com/oksasatya/pulse-correction-bot/internal/infrastructure/userstore"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/bot"
	"github.com/oksasatya/pulse-correction-bot/internal/interface/middleware"
	"github.com/oksasatya/pulse-correction-bot/internal/router"
	"github.com/oksasatya/pulse-correction-bot/pkg/helpers"
	"github.com/oksasatya/pulse-correction-bot/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis backs the redis stores and the rate limits; nil when REDIS_ADDR is empty
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	store, err := userstore.Open(ctx, cfg, rdb, logger)
	if err != nil {
		log.Fatalf("user store: %v", err)
	}
	defer store.Close()

	var users repo.UserRepository = store.Users
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		if err := helpers.EnsureIndex(ctx, es, cfg.ESUsersIndex, search.UsersMapping); err != nil {
			helpers.LogWarn(logger, "users index not ensured; search may fail", err, logrus.Fields{"index": cfg.ESUsersIndex})
		}
		mirror := search.NewUserMirror(store.Users, es, cfg.ESUsersIndex, logger)
		users = mirror
		container.SetES(es)
		container.SetUserMirror(mirror)
	}

	replace, err := replaceStore(cfg, rdb)
	if err != nil {
		log.Fatalf("replace store: %v", err)
	}

	var mail application.MailQueue
	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQNotifyQueue)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer pub.Close()
		mail = pub
		container.SetRabbitPub(pub)
	}

	var photoArchive application.PhotoArchive
	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		defer func() { _ = gcsClient.Close() }()
		photoArchive = archive.NewGCSArchive(gcsClient, cfg.GCSBucket)
		container.SetGCS(gcsClient)
	}

	transport, err := telegram.New(cfg.BotToken, logger)
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	helpers.LogInfo(logger, "bot authorized", logrus.Fields{"bot": transport.Username()})

	reviewers := application.Reviewers{ChatID: cfg.AdminChatID, AdminIDs: cfg.AdminIDs, Emails: cfg.ReviewerEmails()}
	if reviewers.ChatID == 0 && len(reviewers.Emails) == 0 {
		helpers.LogWarn(logger, "no reviewer destination configured; verification notices go nowhere", nil, nil)
	}

	gate := application.NewAdmissionGate(users, reviewers, transport, logger)
	verification := application.NewVerificationWorkflow(users, reviewers, transport, mail, cfg.AppName, logger)
	orders := application.NewOrderService(
		backend.NewClient(cfg.BackendURL, cfg.BotSecretKey, cfg.BackendTimeout, cfg.ConfirmTimeout),
		transport, replace, photoArchive, logger,
	)
	albums := application.NewAlbumAggregator(application.AlbumConfig{
		QuietPeriod: cfg.AlbumQuietPeriod,
		MaxWait:     cfg.AlbumMaxWait,
		Policy:      application.AlbumPolicy(cfg.AlbumPolicy),
	}, application.WallClock, orders.HandleBatch, logger)

	routes := bot.NewRouter(logger)
	(&bot.Handlers{Verification: verification, Orders: orders, Albums: albums, Logger: logger}).Register(routes)

	pipeline := bot.Chain(routes.Dispatch,
		middleware.Recover(logger),
		middleware.EventTraceID(),
		middleware.EventLogger(logger, reviewers.IsAdmin),
		middleware.EventRateLimit(rdb, cfg.RateLimitMax, cfg.RateLimitWindow, middleware.AllowAdmins(reviewers), transport, logger),
		middleware.Admission(gate, logger),
	)
	// lanes outlive the signal so queued events can drain during shutdown
	lanes := bot.NewLanes(context.WithoutCancel(ctx), pipeline, logger)

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetPGPool(store.Pool)
	container.SetRedis(rdb)
	container.SetUsers(users)
	container.SetLanes(lanes)
	container.SetAlbums(albums)

	var srv *http.Server
	if cfg.HTTPEnabled || cfg.WebhookURL != "" {
		srv = startHTTP(cfg, logger)
	}

	if cfg.WebhookURL != "" {
		if err := transport.RegisterWebhook(cfg.WebhookURL + "/telegram/webhook/" + cfg.WebhookSecret); err != nil {
			log.Fatalf("webhook: %v", err)
		}
		<-ctx.Done()
	} else {
		helpers.LogInfo(logger, "long polling started", nil)
		if err := transport.Poll(ctx, func(ev entity.Event) { lanes.Submit(ev) }); err != nil {
			log.Fatalf("polling: %v", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			helpers.LogError(logger, "server forced to shutdown", err, nil)
		}
	}
	if err := lanes.Close(shutdownCtx); err != nil {
		helpers.LogWarn(logger, "lanes did not drain", err, nil)
	}
	albums.Close()
	logger.Info("bot exited properly")
}

func replaceStore(cfg *config.Config, rdb *redis.Client) (repo.ReplaceTargetRepository, error) {
	if cfg.ReplaceStore == "redis" {
		if rdb == nil {
			return nil, errors.New("REPLACE_STORE=redis requires REDIS_ADDR")
		}
		return redisstore.NewReplaceTargetStore(rdb, cfg.ReplaceTTL), nil
	}
	return memory.NewReplaceTargetStore(), nil
}

func startHTTP(cfg *config.Config, logger *logrus.Logger) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceID())
	r.Use(middleware.AccessLog(logger))

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()
	return srv
}
