// Package app wires configuration, storage, the publishing workflow, and the
// ops HTTP surface together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/quillmark/core/internal/config"
	"github.com/quillmark/core/internal/database"
	"github.com/quillmark/core/internal/modules/activity"
	"github.com/quillmark/core/internal/modules/eventbus"
	"github.com/quillmark/core/internal/modules/publishing"
	"github.com/quillmark/core/internal/modules/scheduler"
	"github.com/quillmark/core/internal/modules/webhook"
	pkgcron "github.com/quillmark/core/internal/pkg/cron"
	pkgredis "github.com/quillmark/core/internal/pkg/redis"
	"github.com/quillmark/core/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg     *config.AppConfig
	router  *gin.Engine
	db      *gorm.DB
	logger  *zap.Logger
	svc     *publishing.Service
	gateway *scheduler.Gateway
	sched   *pkgcron.Scheduler
	cancel  context.CancelFunc
}

// New initializes the application: config → DB → Redis → workflow → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	bus := eventbus.New(logger.Named("EventBus"))
	bus.Subscribe(eventbus.NewRedisFanout(rc, logger.Named("RedisFanout")))
	bus.Subscribe(webhook.NewService(db, logger.Named("WebhookService")).Handler())

	postStore := store.NewGormPostStore(db)
	activitySvc := activity.NewService(db)

	svc := publishing.NewService(postStore, activitySvc, bus,
		publishing.WithLogger(logger.Named("PublishingService")))
	worker := publishing.NewWorker(svc,
		publishing.WithWorkerLogger(logger.Named("DeferredPublishWorker")),
		publishing.WithRetryPolicy(nil, cfg.Publishing.RetryWindow()))

	gateway := scheduler.New(worker.Run,
		scheduler.WithEntryStore(scheduler.NewEntryStore(rc)),
		scheduler.WithGatewayLogger(logger.Named("SchedulerGateway")))
	svc.SetGateway(gateway)

	ctx, cancel := context.WithCancel(context.Background())
	if err := gateway.Start(ctx); err != nil {
		logger.Warn("scheduler restore failed", zap.Error(err))
	}

	sched := pkgcron.New()
	registerCronJobs(sched, svc, cfg, logger)
	go sched.Start(ctx)

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	app := &App{
		cfg:     cfg,
		router:  router,
		db:      db,
		logger:  logger,
		svc:     svc,
		gateway: gateway,
		sched:   sched,
		cancel:  cancel,
	}
	app.registerRoutes()
	return app, nil
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		c.AllowOrigins = cfg.AllowedOrigins
	} else {
		c.AllowOriginFunc = func(string) bool { return true }
	}
	return c
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Workflow returns the publishing workflow service.
func (a *App) Workflow() *publishing.Service { return a.svc }

// Shutdown stops background goroutines and pending timers.
func (a *App) Shutdown() {
	a.gateway.Stop()
	a.cancel()
}

var processStart = time.Now()
