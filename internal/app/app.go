package app

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskboard/server/internal/shared/config"
	"github.com/taskboard/server/internal/shared/events"
	"github.com/taskboard/server/internal/shared/logger"
)

// App represents the application.
type App struct {
	config    *config.Config
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	eventBus  *events.Bus
}

// NewApp assembles the application from its wired parts.
func NewApp(
	cfg *config.Config,
	router *gin.Engine,
	log *logger.Logger,
	zapLog *zap.Logger,
	bus *events.Bus,
) *App {
	return &App{
		config:    cfg,
		router:    router,
		logger:    log,
		zapLogger: zapLog,
		eventBus:  bus,
	}
}

// New builds the application. The returned cleanup releases the bus,
// broker, Redis and database in reverse order of creation.
func New(cfg *config.Config) (*App, func(), error) {
	return InitializeApp(cfg)
}

// Router returns the HTTP handler.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger {
	return a.logger
}

// Stop waits for in-flight change hooks and flushes the logger.
func (a *App) Stop() {
	a.eventBus.Wait()
	_ = a.zapLogger.Sync()
}
