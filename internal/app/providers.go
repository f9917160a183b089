package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/taskboard/server/internal/module/auth"
	"github.com/taskboard/server/internal/module/board"
	"github.com/taskboard/server/internal/shared/cache"
	"github.com/taskboard/server/internal/shared/config"
	"github.com/taskboard/server/internal/shared/database"
	"github.com/taskboard/server/internal/shared/events"
	"github.com/taskboard/server/internal/shared/logger"
	"github.com/taskboard/server/internal/shared/metrics"
	"github.com/taskboard/server/internal/shared/middleware"
)

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideZapLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideDatabase,
	ProvideRedisClient,
	ProvideBroker,
)

// ProvideLogger creates the request logger.
func ProvideLogger(cfg *config.Config) *logger.Logger {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideZapLogger creates the zap logger used by services.
func ProvideZapLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	zl, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return zl, func() { _ = zl.Sync() }, nil
}

// ProvideRegistry creates the Prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics registers the application metrics.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New("taskboard", reg)
}

// ProvideDatabase opens the database and migrates the board schema.
func ProvideDatabase(cfg *config.Config, zapLog *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := board.Migrate(context.Background(), db); err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	cleanup := func() {
		if err := database.Close(db); err != nil {
			zapLog.Warn("close database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// ProvideRedisClient connects to Redis. Redis is optional unless it carries
// the change broker.
func ProvideRedisClient(cfg *config.Config, zapLog *zap.Logger) (goredis.UniversalClient, func(), error) {
	if cfg.Redis.Address == "" {
		if cfg.Events.Broker == "redis" {
			return nil, nil, fmt.Errorf("events.broker is redis but redis.address is empty")
		}
		return nil, func() {}, nil
	}

	client, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		if cfg.Events.Broker == "redis" {
			return nil, nil, err
		}
		zapLog.Warn("Redis connection failed, continuing without it", zap.Error(err))
		return nil, func() {}, nil
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideBroker selects the change broker.
func ProvideBroker(cfg *config.Config, client goredis.UniversalClient) (events.Broker, func(), error) {
	var broker events.Broker
	switch cfg.Events.Broker {
	case "redis":
		if client == nil {
			return nil, nil, fmt.Errorf("redis broker requires a redis client")
		}
		broker = events.NewRedisBroker(client)
	case "", "memory":
		broker = events.NewMemoryBroker()
	default:
		return nil, nil, fmt.Errorf("unknown events broker %q", cfg.Events.Broker)
	}
	return broker, func() { _ = broker.Close() }, nil
}

// ===== Auth Providers =====

// AuthSet provides token validation.
var AuthSet = wire.NewSet(
	ProvideJWTManager,
	wire.Bind(new(middleware.TokenValidator), new(*auth.JWTManager)),
)

// ProvideJWTManager creates the JWT manager.
func ProvideJWTManager(cfg *config.Config) (*auth.JWTManager, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, auth.ErrMissingSecret
	}
	return auth.NewJWTManager(&auth.JWTConfig{
		Secret:            cfg.Auth.JWTSecret,
		Issuer:            cfg.Auth.Issuer,
		AccessTokenExpiry: cfg.Auth.AccessTokenExpiry,
	}), nil
}

// ===== Board Providers =====

// BoardSet provides the board module.
var BoardSet = wire.NewSet(
	ProvideBoardRepository,
	ProvideEventBus,
	ProvideBoardService,
	ProvideBoardHandler,
)

// ProvideBoardRepository creates the board repository.
func ProvideBoardRepository(db *gorm.DB, cfg *config.Config, m *metrics.Metrics, zapLog *zap.Logger) board.Repository {
	return board.NewRepository(db,
		board.WithMaxRetries(cfg.Board.TxMaxRetries),
		board.WithRepositoryMetrics(m),
		board.WithRepositoryLogger(zapLog),
	)
}

// ProvideEventBus creates the after-commit bus with the activity and
// notification hooks. Its cleanup drains in-flight hooks before the broker
// and database close.
func ProvideEventBus(
	cfg *config.Config,
	zapLog *zap.Logger,
	m *metrics.Metrics,
	repo board.Repository,
	broker events.Broker,
) (*events.Bus, func()) {
	bus := events.NewBus(zapLog,
		events.WithAsync(cfg.Board.AsyncHooks),
		events.WithMetrics(m),
	)
	bus.Register(board.NewActivityRecorder(repo))
	bus.Register(board.NewNotifier(broker, board.NotifierConfig{
		TopicPrefix:      cfg.Events.TopicPrefix,
		PublishTimeout:   cfg.Events.PublishTimeout,
		FailureThreshold: cfg.Events.FailureThreshold,
		CircuitTimeout:   cfg.Events.CircuitTimeout,
	}, zapLog))
	return bus, bus.Close
}

// ProvideBoardService creates the board service.
func ProvideBoardService(
	cfg *config.Config,
	repo board.Repository,
	bus *events.Bus,
	broker events.Broker,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) *board.Service {
	return board.NewService(repo, bus, broker, m, zapLog, board.Config{
		ActivityPageSize: cfg.Board.ActivityPageSize,
		TopicPrefix:      cfg.Events.TopicPrefix,
	})
}

// ProvideBoardHandler creates the board HTTP handler.
func ProvideBoardHandler(svc *board.Service, m *metrics.Metrics) *board.Handler {
	return board.NewHandler(svc, board.WithHandlerMetrics(m))
}

// ===== HTTP Providers =====

// ProvideRouter creates the gin router with global middleware, probes and
// the authenticated API group.
func ProvideRouter(
	cfg *config.Config,
	log *logger.Logger,
	m *metrics.Metrics,
	reg *prometheus.Registry,
	db *gorm.DB,
	validator middleware.TokenValidator,
	boardHandler *board.Handler,
) *gin.Engine {
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID(log))
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.Metrics(m))

	r.GET("/health", func(c *gin.Context) {
		if err := database.Ping(c.Request.Context(), db); err != nil {
			log.Warn("health check failed", logger.Err(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	api := r.Group("/api/v1")
	api.Use(middleware.RequireAuth(validator))
	boardHandler.RegisterRoutes(api)

	return r
}

// AppSet is every provider of the application.
var AppSet = wire.NewSet(
	InfraSet,
	AuthSet,
	BoardSet,
	ProvideRouter,
	NewApp,
)
