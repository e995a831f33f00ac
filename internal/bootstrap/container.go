package bootstrap

import (
	"context"
	"fmt"
	"time"

	"helmet-orchestrator-be/internal/config"
	"helmet-orchestrator-be/internal/controller"
	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/handler"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/internal/repository/contract"
	"helmet-orchestrator-be/internal/repository/implementation"
	"helmet-orchestrator-be/internal/repository/memory"
	"helmet-orchestrator-be/internal/service"
	"helmet-orchestrator-be/internal/websocket"
	"helmet-orchestrator-be/pkg/broadcast"
	"helmet-orchestrator-be/pkg/database"
	"helmet-orchestrator-be/pkg/executor"
	"helmet-orchestrator-be/pkg/gateway"
	"helmet-orchestrator-be/pkg/intent"
	"helmet-orchestrator-be/pkg/mode"
	"helmet-orchestrator-be/pkg/sessionstore"
	"helmet-orchestrator-be/pkg/telemetry"

	pktNats "helmet-orchestrator-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const module = "Bootstrap"

// Worker is a long-running component supervised by the entry point.
type Worker struct {
	Name string
	Run  func(ctx context.Context) error
}

type Container struct {
	Logger logger.ILogger

	// Controllers
	CommandController controller.ICommandController
	IntentController  controller.IIntentController
	StatusController  controller.IStatusController

	StatusStreamHandler *handler.StatusStreamHandler

	// Background workers (exposed for main.go to run)
	Workers []Worker

	executor   *executor.Executor
	board      *broadcast.Broadcaster
	subscriber *pktNats.Subscriber
	nc         *nats.Conn
	rdb        *redis.Client
	db         *gorm.DB
	pubSub     *gochannel.GoChannel
	loggers    []logger.ILogger
}

func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	streamLogger := logger.NewIsolatedLogger(cfg.App.StreamLogFilePath)
	c := &Container{Logger: sysLogger, loggers: []logger.ILogger{sysLogger, streamLogger}}

	profile, err := config.LoadProfile(cfg.Orchestrator.ProfileDir, cfg.Orchestrator.ProfileName)
	if err != nil {
		sysLogger.Warn(module, "Failed to load profile, using defaults", map[string]interface{}{
			"profile": cfg.Orchestrator.ProfileName,
			"error":   err.Error(),
		})
		profile = config.DefaultProfile(cfg.Orchestrator.ProfileName)
	}

	// 2. Status view; degraded collaborators surface in every snapshot
	c.board = broadcast.New(cfg.Orchestrator.StatusQueueDepth, profile.Name)
	health := gateway.NewHealth(func(svc string, degraded bool) {
		c.board.Publish(broadcast.WithDegraded(svc, degraded))
	})

	// 3. Infrastructure
	// Redis
	var sessionRepo contract.SessionRepository
	c.rdb = connectRedis(ctx, cfg.App.RedisURL, sysLogger)
	if c.rdb != nil {
		sessionRepo = implementation.NewSessionRepository(c.rdb, cfg.Orchestrator.SessionKey)
	} else {
		sessionRepo = memory.NewSessionRepository(cfg.Orchestrator.SessionKey)
	}

	// Postgres (optional audit log)
	var commandLogs contract.CommandLogRepository
	var telemetryLogs contract.TelemetryLogRepository
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, cfg.App.Environment != "production")
		if err != nil {
			sysLogger.Warn(module, "Failed to connect to database, audit log disabled", map[string]interface{}{"error": err.Error()})
		} else {
			c.db = db
			commandLogs = implementation.NewCommandLogRepository(db)
			telemetryLogs = implementation.NewTelemetryLogRepository(db)
		}
	}

	// NATS
	c.nc, err = pktNats.Connect(cfg.App.NatsURL, sysLogger)
	if err != nil {
		return nil, err
	}
	var eventPublisher service.EventPublisher
	natsPub, err := pktNats.NewPublisher(c.nc, cfg.Subjects.Stream, sysLogger)
	if err != nil {
		sysLogger.Warn(module, "Failed to create NATS publisher, events disabled", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
	}
	c.subscriber, err = pktNats.NewSubscriber(c.nc, cfg.Subjects.Stream, sysLogger)
	if err != nil {
		return nil, err
	}

	// In-process audit bus
	c.pubSub = gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	auditService := service.NewAuditService(c.pubSub, commandLogs, eventPublisher, sysLogger)

	// 4. Session: restore, then hand it to the machine as the single writer
	store := sessionstore.New(sessionRepo, sysLogger, sessionstore.Options{
		WriteTimeout: cfg.Orchestrator.PersistTimeout,
	})
	initial, found, err := store.Load(ctx)
	if err != nil {
		sysLogger.Warn(module, "Failed to restore session, starting fresh", map[string]interface{}{"error": err.Error()})
	}
	sysLogger.Info(module, "Session restored", map[string]interface{}{
		"found":   found,
		"mode":    initial.CurrentMode,
		"version": initial.Version,
	})
	c.board.Publish(broadcast.WithSession(initial))

	machine := mode.NewMachine(initial, store, sysLogger,
		mode.ObserverFunc(func(_, next entity.Session) {
			c.board.Publish(broadcast.WithSession(next))
		}),
		auditService,
	)

	// 5. Command path
	gw := gateway.NewNatsGateway(c.nc, cfg.Subjects.RPCPrefix)
	c.executor = executor.New(executor.Deps{
		Machine:  machine,
		Gateway:  gw,
		Health:   health,
		Status:   c.board,
		Recorder: auditService,
		Logger:   sysLogger,
	}, executor.Options{
		CommandTimeout: cfg.Orchestrator.CommandTimeout,
		RetryBudget:    cfg.Orchestrator.RetryBudget,
		RetryBaseDelay: cfg.Orchestrator.RetryBaseDelay,
		ResultTTL:      cfg.Orchestrator.IdempotencyTTL,
	})

	rules, err := intent.LoadRules(cfg.Orchestrator.IntentsFile)
	if err != nil {
		return nil, fmt.Errorf("load intent rules: %w", err)
	}
	router, err := intent.NewRouter(rules, cfg.Orchestrator.MinIntentConfidence)
	if err != nil {
		return nil, fmt.Errorf("build intent router: %w", err)
	}

	commandService := service.NewCommandService(c.executor, router, gw.Voice, commandLogs, sysLogger)
	statusService := service.NewStatusService(c.board, machine, health, store, telemetryLogs)
	ingestionService := service.NewIngestionService(
		c.subscriber,
		c.board,
		health,
		commandService,
		cfg.Subjects,
		cfg.Orchestrator.PerceptionStaleAfter,
		sysLogger,
	)

	// 6. Telemetry
	collector := telemetry.NewCollector(
		telemetry.NewSystemReader(cfg.Telemetry.BatteryPath),
		c.board,
		telemetryLogs,
		sysLogger,
		telemetry.Options{
			Interval:         cfg.Telemetry.Interval,
			StaleAfterMisses: cfg.Telemetry.StaleAfterMisses,
			TrendWindow:      cfg.Telemetry.TrendWindow,
			ThermalAlarmRate: cfg.Telemetry.ThermalAlarmRate,
			LogEvery:         cfg.Telemetry.LogEvery,
		},
	)

	// 7. WebSocket hub
	hub := websocket.NewHub(c.board, streamLogger)

	c.Workers = []Worker{
		{Name: "mode-machine", Run: machine.Run},
		{Name: "session-store", Run: store.Run},
		{Name: "telemetry", Run: collector.Run},
		{Name: "websocket-hub", Run: hub.Run},
		{Name: "audit", Run: func(ctx context.Context) error {
			if err := auditService.Consume(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		}},
		{Name: "ingestion", Run: func(ctx context.Context) error {
			if err := ingestionService.Start(ctx); err != nil {
				return err
			}
			return ingestionService.Run(ctx)
		}},
	}

	// 8. Controllers
	c.CommandController = controller.NewCommandController(commandService)
	c.IntentController = controller.NewIntentController(commandService)
	c.StatusController = controller.NewStatusController(statusService)
	c.StatusStreamHandler = handler.NewStatusStreamHandler(hub, streamLogger)

	return c, nil
}

func connectRedis(ctx context.Context, url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(module, "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn(module, "Failed to connect to Redis, session kept in memory", map[string]interface{}{"error": err.Error()})
		rdb.Close()
		return nil
	}
	return rdb
}

// Close releases everything the workers leave behind. Call it after every
// worker has returned.
func (c *Container) Close() {
	c.executor.Close()
	c.board.Close()
	c.subscriber.Close()
	if err := c.pubSub.Close(); err != nil {
		c.Logger.Warn(module, "Failed to close audit bus", map[string]interface{}{"error": err.Error()})
	}
	if err := c.nc.Drain(); err != nil {
		c.Logger.Warn(module, "Failed to drain NATS", map[string]interface{}{"error": err.Error()})
	}
	if c.rdb != nil {
		c.rdb.Close()
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	for _, l := range c.loggers {
		_ = l.Sync()
	}
}
