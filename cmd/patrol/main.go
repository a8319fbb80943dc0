package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/cyber-patrol/internal/alerts"
	"github.com/richxcame/cyber-patrol/internal/collector"
	"github.com/richxcame/cyber-patrol/internal/evidence"
	"github.com/richxcame/cyber-patrol/internal/patrol"
	"github.com/richxcame/cyber-patrol/internal/realtime"
	"github.com/richxcame/cyber-patrol/internal/reputation"
	"github.com/richxcame/cyber-patrol/internal/scoring"
	"github.com/richxcame/cyber-patrol/internal/supervisor"
	"github.com/richxcame/cyber-patrol/internal/triage"
	"github.com/richxcame/cyber-patrol/migrations"
	"github.com/richxcame/cyber-patrol/pkg/common"
	"github.com/richxcame/cyber-patrol/pkg/config"
	"github.com/richxcame/cyber-patrol/pkg/database"
	"github.com/richxcame/cyber-patrol/pkg/eventbus"
	"github.com/richxcame/cyber-patrol/pkg/health"
	"github.com/richxcame/cyber-patrol/pkg/logger"
	"github.com/richxcame/cyber-patrol/pkg/middleware"
	"github.com/richxcame/cyber-patrol/pkg/redis"
	"github.com/richxcame/cyber-patrol/pkg/storage"
	ws "github.com/richxcame/cyber-patrol/pkg/websocket"
	"go.uber.org/zap"
)

const serviceName = "patrol"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.Server.Environment, cfg.Server.ServiceName); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cyber patrol service",
		zap.String("environment", cfg.Server.Environment),
		zap.String("version", version),
		zap.Strings("platforms", cfg.Patrol.Platforms),
	)

	sentryEnabled := initSentry(cfg)
	if sentryEnabled {
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres
	db, err := database.NewPostgresPool(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if cfg.Database.MigrateOnStart {
		if err := database.RunMigrations(migrations.FS, cfg.Database.URL()); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// Redis committed-key ledger
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Warn("Redis unavailable, using in-process dedupe only", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// NATS
	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		bus, err = eventbus.Connect(eventbus.DefaultConfig(cfg.NATS.URL, serviceName))
		if err != nil {
			logger.Warn("NATS unavailable, scraper platforms and bus fan-out disabled", zap.Error(err))
			bus = nil
		} else {
			defer bus.Close()
		}
	}

	// Scoring
	engine, classifier := buildScoringEngine(cfg)
	analyzer := reputation.NewAnalyzer(reputation.DefaultConfig())

	// Alerts
	alertRepo := alerts.NewRepository(db)
	alertService := alerts.NewService(alertRepo)

	// Real-time fan-out
	hub := ws.NewHub()
	go hub.Run(ctx)

	var notifier *realtime.Notifier
	if bus != nil {
		notifier = realtime.NewNotifier(bus, hub)
	} else {
		notifier = realtime.NewNotifier(nil, hub)
	}

	// The manager is the real-time policy but needs the supervisor, which needs the pipeline.
	policy := &sessionPolicy{}

	pipelineOpts := []triage.Option{triage.WithNotifier(notifier, policy)}
	if redisClient != nil {
		pipelineOpts = append(pipelineOpts, triage.WithLedger(triage.NewRedisLedger(redisClient, cfg.Patrol.ClaimTTL)))
	}
	pipeline := triage.NewPipeline(triage.Config{
		KeepThreshold:  triage.Threshold(cfg.Patrol.KeepThreshold),
		Workers:        cfg.Patrol.Workers,
		DedupeCapacity: cfg.Patrol.DedupeCapacity,
	}, engine, analyzer, alertRepo, pipelineOpts...)

	sup := supervisor.New(supervisor.Config{
		StartTimeout: cfg.Patrol.StartTimeout,
		StopTimeout:  cfg.Patrol.StopTimeout,
	}, buildCollectors(cfg, bus), pipeline)

	manager := patrol.NewManager(sup)
	policy.manager = manager

	// Evidence
	var evidenceOpts []evidence.Option
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			logger.Warn("Evidence archive unavailable", zap.Error(err))
		} else {
			evidenceOpts = append(evidenceOpts, evidence.WithArchiver(archive))
		}
	}
	evidenceService := evidence.NewService(evidence.NewRepository(db), evidenceOpts...)

	// HTTP
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if sentryEnabled {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(serviceName))
	router.Use(cors.New(corsConfig(cfg)))

	checks := map[string]func() error{
		"postgres": health.DatabaseChecker(db, health.DefaultCheckerConfig()),
	}
	if redisClient != nil {
		checks["redis"] = health.RedisChecker(redisClient, health.DefaultCheckerConfig())
	}
	if bus != nil {
		checks["nats"] = health.NATSChecker(bus)
	}
	components := map[string]func() string{
		"classifier": engine.ClassifierHealth,
	}
	if classifier != nil {
		logger.Info("External classifier configured", zap.String("url", cfg.Scoring.ClassifierURL))
	}

	router.GET("/healthz", common.HealthCheckWithDeps(serviceName, version, checks, components))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	realtime.NewHandler(hub, allowedOrigins(cfg)).RegisterRoutes(router)

	api := router.Group("/api/v1")
	api.Use(middleware.SecurityHeaders(cfg.Server.Environment == "production"))
	{
		supervisor.NewHandler(sup).RegisterRoutes(api)
		patrol.NewHandler(manager).RegisterRoutes(api)
		triage.NewHandler(pipeline).RegisterRoutes(api)
		alerts.NewHandler(alertService).RegisterRoutes(api)
		evidence.NewHandler(evidenceService).RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Patrol.StopTimeout+5*time.Second)
	defer cancel()

	// Sessions first so their services stop through the manager, then anything left running.
	manager.Shutdown(shutdownCtx)
	sup.Shutdown(shutdownCtx)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}

// sessionPolicy defers to the session manager once it exists
type sessionPolicy struct {
	manager *patrol.Manager
}

func (p *sessionPolicy) RealTimeEnabled(service string) bool {
	return p.manager != nil && p.manager.RealTimeEnabled(service)
}

func initSentry(cfg *config.Config) bool {
	if cfg.Sentry.DSN == "" {
		return false
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Server.Environment,
		Release:          serviceName + "@" + version,
		AttachStacktrace: true,
	})
	if err != nil {
		logger.Warn("Failed to initialize Sentry", zap.Error(err))
		return false
	}
	return true
}

func buildScoringEngine(cfg *config.Config) (*scoring.Engine, *scoring.HTTPClassifier) {
	var rules *scoring.Rules
	if cfg.Scoring.RulesFile != "" {
		loaded, err := scoring.LoadRules(cfg.Scoring.RulesFile)
		if err != nil {
			logger.Fatal("Failed to load scoring rules", zap.String("file", cfg.Scoring.RulesFile), zap.Error(err))
		}
		rules = loaded
	}

	engineCfg := scoring.Config{
		Rules:             rules,
		ClassifierTimeout: cfg.Scoring.ClassifierTimeout,
		ClassifierWeight:  cfg.Scoring.ClassifierWeight,
	}
	var classifier *scoring.HTTPClassifier
	if cfg.Scoring.ClassifierURL != "" {
		classifier = scoring.NewHTTPClassifier(cfg.Scoring.ClassifierURL, cfg.Scoring.ClassifierTimeout)
		engineCfg.Classifier = classifier
	}

	engine, err := scoring.NewEngine(engineCfg)
	if err != nil {
		logger.Fatal("Failed to compile scoring rules", zap.Error(err))
	}
	return engine, classifier
}

// buildCollectors registers one collection service per configured platform.
// "domains" polls the watch list; every other platform is fed by scrapers over NATS.
func buildCollectors(cfg *config.Config, bus *eventbus.Bus) map[string]collector.Collector {
	collectors := make(map[string]collector.Collector, len(cfg.Patrol.Platforms))
	for _, platform := range cfg.Patrol.Platforms {
		if platform == "domains" {
			collectors[platform] = collector.NewDomainWatchCollector(platform,
				collector.StaticDomains(cfg.Patrol.WatchDomains), cfg.Patrol.ScrapeInterval, cfg.Patrol.BatchSize)
			continue
		}
		if bus == nil {
			logger.Warn("Skipping platform without NATS", zap.String("platform", platform))
			continue
		}
		collectors[platform] = collector.NewNATSCollector(platform, bus, cfg.Patrol.ScrapeInterval, cfg.Patrol.BatchSize)
	}
	return collectors
}

func allowedOrigins(cfg *config.Config) []string {
	var out []string
	for _, o := range strings.Split(cfg.Server.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	origins := allowedOrigins(cfg)
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	c.AllowHeaders = []string{"Origin", "Content-Type", middleware.CorrelationIDHeader}
	c.ExposeHeaders = []string{middleware.CorrelationIDHeader}
	return c
}
