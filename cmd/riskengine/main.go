package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/richxcame/trust-risk/internal/cache"
	"github.com/richxcame/trust-risk/internal/devicehistory"
	"github.com/richxcame/trust-risk/internal/deviceip"
	"github.com/richxcame/trust-risk/internal/fraud"
	"github.com/richxcame/trust-risk/internal/signals"
	"github.com/richxcame/trust-risk/internal/vendors"
	"github.com/richxcame/trust-risk/migrations"
	"github.com/richxcame/trust-risk/pkg/common"
	"github.com/richxcame/trust-risk/pkg/config"
	"github.com/richxcame/trust-risk/pkg/database"
	"github.com/richxcame/trust-risk/pkg/health"
	"github.com/richxcame/trust-risk/pkg/logger"
	"github.com/richxcame/trust-risk/pkg/middleware"
	"github.com/richxcame/trust-risk/pkg/redis"
	"github.com/richxcame/trust-risk/pkg/tracing"
	"go.uber.org/zap"
)

const (
	serviceName = "risk-engine"
	version     = "1.0.0"
	maxBodySize = 1 << 20
)

func main() {
	cfg, err := config.Load(serviceName)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		logger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync()
	log := logger.Get().With(zap.String("service", serviceName))

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Server.Environment,
			Release:     serviceName + "@" + version,
		}); err != nil {
			log.Warn("sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing, serviceName, cfg.Server.Environment, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}

	checks := map[string]common.CheckFunc{}
	optional := map[string]common.CheckFunc{}

	// Signal cache: Redis when configured, in-process otherwise.
	var backend cache.Backend
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		backend = cache.NewRedisBackend(redisClient)
		checks["redis"] = health.RedisChecker(redisClient.Client)
		log.Info("connected to redis", zap.String("addr", cfg.Redis.RedisAddr()))
	} else {
		mem := cache.NewMemoryBackend(time.Minute)
		defer mem.Close()
		backend = mem
		log.Warn("redis disabled, using in-memory signal cache")
	}
	signalCache := cache.New(backend, cfg.Cache.Prefix, log)

	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(pool)
	checks["postgres"] = health.PoolChecker(pool)

	if cfg.Database.AutoMigrate {
		if err := database.MigrateUp(&cfg.Database, migrations.FS); err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	auditDB, err := database.NewSQLDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to open audit database", zap.Error(err))
	}
	defer auditDB.Close()
	optional["audit_db"] = health.DatabaseChecker(auditDB)

	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		natsConn, err = nats.Connect(cfg.NATS.URL,
			nats.Name(serviceName),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer natsConn.Drain()
		optional["nats"] = health.NATSChecker(natsConn)
		log.Info("connected to nats", zap.String("url", cfg.NATS.URL))
	}

	registry, err := vendors.NewRegistry(cfg.Vendors, log)
	if err != nil {
		log.Fatal("failed to configure vendor adapters", zap.Error(err))
	}
	defer registry.Close()

	engine, err := buildEngine(cfg, signalCache, pool, auditDB, natsConn, registry, log)
	if err != nil {
		log.Fatal("failed to build risk engine", zap.Error(err))
	}

	router := setupRouter(cfg, fraud.NewHandler(engine), checks, optional)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting risk engine", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Warn("failed to flush traces", zap.Error(err))
	}

	log.Info("server exited")
}

func buildEngine(cfg *config.Config, c *cache.Cache, pool *pgxpool.Pool, auditDB *sql.DB, natsConn *nats.Conn, registry *vendors.Registry, log *zap.Logger) (*fraud.Engine, error) {
	var deviceOpts []devicehistory.Option
	if cfg.Cache.StrictDeviceLock {
		deviceOpts = append(deviceOpts, devicehistory.WithStrictLocking())
	}
	devices := devicehistory.NewStore(c, cfg.Cache.DeviceTTL, log, deviceOpts...)

	sc := scoringConfig(cfg)
	collector, composer := buildSignalSources(sc, c, signals.NewPostgresRepository(pool), devices, registry, log)

	opts := []fraud.Option{fraud.WithAuditStore(fraud.NewAuditRepository(auditDB))}
	if natsConn != nil {
		opts = append(opts, fraud.WithPublisher(fraud.NewNATSPublisher(natsConn, cfg.NATS.SubjectPrefix)))
	}

	return fraud.NewEngine(sc, c, collector, composer, registry.Identity, log, opts...)
}

// buildSignalSources builds the collector and composer from the same scoring
// config the engine receives, so every weight comes from one place.
func buildSignalSources(sc fraud.ScoringConfig, c *cache.Cache, repo signals.Repository, devices *devicehistory.Store, registry *vendors.Registry, log *zap.Logger) (*signals.Collector, *deviceip.Composer) {
	composerCfg := deviceip.DefaultConfig()
	composerCfg.Weights = sc.Composite
	composerCfg.ShortTTL = sc.ShortTTL
	composer := deviceip.NewComposer(c, registry.IPReputation, registry.ThreatIntel, devices, composerCfg, log)

	return signals.NewCollector(repo, devices, sc.Internal, log), composer
}

func scoringConfig(cfg *config.Config) fraud.ScoringConfig {
	w := cfg.Scoring.Weights
	sc := fraud.DefaultScoringConfig()
	sc.VendorAPIsEnabled = cfg.Scoring.VendorAPIsEnabled
	sc.MLScoringEnabled = cfg.Scoring.MLScoringEnabled
	sc.Thresholds = fraud.Thresholds{
		Medium:   cfg.Scoring.MediumThreshold,
		High:     cfg.Scoring.HighThreshold,
		Critical: cfg.Scoring.CriticalThreshold,
	}
	sc.Internal = signals.Weights{
		AccountAge:         w.AccountAge,
		TransactionHistory: w.TransactionHistory,
		DeviceFingerprint:  w.DeviceFingerprint,
		Velocity:           w.Velocity,
		BehaviorPattern:    w.BehaviorPattern,
	}
	sc.Vendor = fraud.VendorWeights{
		Identity:     w.Identity,
		IPReputation: w.IPReputation,
		ThreatIntel:  w.ThreatIntel,
	}
	sc.AnomalyWeight = w.Anomaly
	sc.Composite = deviceip.Weights{
		IPReputation:      w.CompositeIPReputation,
		DeviceFingerprint: w.CompositeDevice,
		ThreatIntel:       w.CompositeThreatIntel,
	}
	sc.ResultTTL = cfg.Cache.ResultTTL
	sc.ShortTTL = cfg.Cache.ShortTTL
	return sc
}

func setupRouter(cfg *config.Config, handler *fraud.Handler, checks, optional map[string]common.CheckFunc) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery())
	if cfg.Sentry.Enabled {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger("/healthz", "/health/ready", "/metrics"))
	router.Use(middleware.Metrics(serviceName))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.MaxBodySize(maxBodySize))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.AllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.CorrelationIDHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheck(serviceName, version))
	router.GET("/health/ready", common.HealthCheckWithDeps(serviceName, version, checks, optional))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("")
	if cfg.Server.RequestTimeout > 0 {
		api.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	}
	handler.RegisterRoutes(api)
	return router
}
