package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/linkstash/linkstash/internal/collection"
	"github.com/linkstash/linkstash/internal/config"
	"github.com/linkstash/linkstash/internal/domain"
	"github.com/linkstash/linkstash/internal/httpserver"
	"github.com/linkstash/linkstash/internal/httpserver/deps"
	"github.com/linkstash/linkstash/internal/logger"
	"github.com/linkstash/linkstash/internal/metadata"
	"github.com/linkstash/linkstash/internal/mutation"
	"github.com/linkstash/linkstash/internal/pager"
	"github.com/linkstash/linkstash/internal/redis"
	"github.com/linkstash/linkstash/internal/scheduler"
	"github.com/linkstash/linkstash/internal/sharelink"
	"github.com/linkstash/linkstash/internal/sources/trackerlist"
	redisstore "github.com/linkstash/linkstash/internal/store/redis"
	"github.com/linkstash/linkstash/internal/store/sqlite"
	"github.com/linkstash/linkstash/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	sqliteStore *sqlite.Store
	dedupSyncer *scheduler.DedupSyncer
	retryPump   *scheduler.RetryPump
	sweeper     *scheduler.TombstoneSweeper
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Open the durable store first - nothing works without it
	sqliteStore, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		loggerClient.Errorf("Failed to open sqlite store at %s: %v", cfg.SQLitePath, err)
		os.Exit(1)
	}
	loggerClient.Info("sqlite store opened",
		logger.String("path", cfg.SQLitePath))

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	dedupStore := redisstore.NewStore(redisClient)

	// Normalizer: built-in tracker set plus the optional YAML list
	var extraParams []string
	if cfg.TrackerFile != "" {
		trackerConfig, err := trackerlist.NewLoader(cfg.TrackerFile).Load()
		if err != nil {
			loggerClient.Warn("failed to load tracker list, using built-ins only",
				logger.String("file", cfg.TrackerFile),
				logger.Error(err))
		} else {
			extraParams = trackerlist.NewMapper().MapParams(trackerConfig)
			loggerClient.Info("tracker list loaded",
				logger.String("file", cfg.TrackerFile),
				logger.Int("params", len(extraParams)))
		}
	}
	normalizer := domain.NewNormalizer(extraParams)

	// Core wiring: cache, engine, coordinator, pagers, mailbox
	cache := collection.NewCache()
	engine := mutation.New(sqliteStore, cache, dedupStore, normalizer, loggerClient)

	fetcher := metadata.NewFetcher(cfg.MetadataEndpoint, cfg.MetadataTimeout)
	coordinator := metadata.New(sqliteStore, fetcher, engine, loggerClient)
	engine.SetEnricher(coordinator)

	pagers := pager.NewRegistry(sqliteStore, cache, cfg.PageSize, loggerClient)
	mailbox := sharelink.NewMailbox(loggerClient)

	// Warm the Redis dedup sets from sqlite (best effort)
	dedupSyncer := scheduler.NewDedupSyncer(sqliteStore, dedupStore, loggerClient)
	if err := dedupSyncer.Sync(context.Background()); err != nil {
		loggerClient.Warn("failed to warm dedup cache on startup",
			logger.Error(err))
	}

	foregroundTrigger := make(chan struct{}, 1)
	retryPump := scheduler.NewRetryPump(coordinator, loggerClient, foregroundTrigger)
	sweeper := scheduler.NewTombstoneSweeper(cache, loggerClient, cfg.SweepInterval, cfg.TombstoneTTL)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:            loggerClient,
		StartTime:         time.Now(),
		Version:           version.Version,
		Commit:            version.Commit,
		BuildDate:         version.BuildDate,
		GoVersion:         version.GoVersion,
		TimeNow:           time.Now,
		AllowedHosts:      cfg.AllowedHosts,
		AllowedCIDRS:      cfg.AllowedCIDRS,
		TrustProxy:        cfg.TrustProxy,
		Store:             sqliteStore,
		RedisClient:       redisClient,
		Engine:            engine,
		Pagers:            pagers,
		Mailbox:           mailbox,
		Coordinator:       coordinator,
		ForegroundTrigger: foregroundTrigger,
		PageSize:          cfg.PageSize,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		sqliteStore: sqliteStore,
		dedupSyncer: dedupSyncer,
		retryPump:   retryPump,
		sweeper:     sweeper,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Linkstash v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Linkstash %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start retry pump (runs the initial sweep, then waits for triggers)
	if err := a.retryPump.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retry pump: %w", err)
	}
	a.logger.Info("metadata retry pump started")

	// Start tombstone sweeper
	a.sweeper.Start(ctx)
	a.logger.Info("tombstone sweeper started",
		logger.Duration("interval", a.cfg.SweepInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.retryPump.Stop()
	a.sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if err := a.sqliteStore.Close(); err != nil {
		a.logger.Warnf("failed to close sqlite store: %v", err)
	} else {
		a.logger.Info("✅ sqlite store closed cleanly")
	}

	a.logger.Info("✅ Linkstash stopped cleanly")
	return nil
}
