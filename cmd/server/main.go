// Package main is the API server of Attendance Hub.
//
// Startup order: configuration, logging, PostgreSQL (with optional
// migrations), the report cache, the event bus, application handlers,
// background jobs and finally the HTTP server. Shutdown runs in reverse.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sekolah-hub/attendance-hub/config"

	// Application layer
	"github.com/sekolah-hub/attendance-hub/internal/application/command"
	"github.com/sekolah-hub/attendance-hub/internal/application/query"

	// Domain
	"github.com/sekolah-hub/attendance-hub/internal/domain/attendance"
	"github.com/sekolah-hub/attendance-hub/internal/domain/discipline"

	// Infrastructure layer
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/media"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/messaging"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/persistence/postgres"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/persistence/redis"
	"github.com/sekolah-hub/attendance-hub/internal/infrastructure/scheduler"

	// Interface layer
	httpserver "github.com/sekolah-hub/attendance-hub/internal/interface/http"
	"github.com/sekolah-hub/attendance-hub/internal/interface/http/handlers"

	// Packages
	"github.com/sekolah-hub/attendance-hub/pkg/logger"
	"github.com/sekolah-hub/attendance-hub/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger(cfg)
	log.Info("starting Attendance Hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Location.String()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	conn, err := postgres.NewConnection(ctx, postgresConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		conn.Close()
	}()
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed", logger.Int("applied", applied))
	}
	uow := postgres.NewStore(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REPORT CACHE
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache       query.ReportCache = query.NopCache{}
		reportCache *redis.ReportCache
	)
	if !cfg.Redis.Disabled {
		reportCache = redis.NewReportCache(redis.NewClient(redisConfig(cfg.Redis)), log)
		defer reportCache.Close()
		if err := reportCache.Ping(ctx); err != nil {
			// Reports are computed directly while Redis is down.
			log.Warn("redis unreachable, reports served uncached until it recovers", logger.Err(err))
		}
		cache = reportCache
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultConfig()
	busConfig.Logger = log
	bus := messaging.NewInMemoryEventBus(busConfig)
	defer func() {
		log.Info("closing event bus")
		_ = bus.Close()
	}()

	var invalidate messaging.PrefixDeleter
	if reportCache != nil {
		invalidate = reportCache
	}
	if err := messaging.Register(bus, invalidate, query.ReportCachePrefix, log); err != nil {
		return fmt.Errorf("failed to register subscribers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	clock := timeutil.SystemClock{}
	loc := cfg.App.Location

	files, err := media.NewLocalStore(media.Config{
		Dir:            cfg.Media.Dir,
		MaxBytes:       int64(cfg.Attendance.MaxImageKB) * 1024,
		ThumbnailWidth: cfg.Media.ThumbnailWidth,
	})
	if err != nil {
		return fmt.Errorf("failed to prepare media storage: %w", err)
	}

	cancelPolicy, err := discipline.CancelPolicyByName(cfg.Discipline.CancelPolicy)
	if err != nil {
		return fmt.Errorf("invalid discipline config: %w", err)
	}

	outcome := command.NewOutcomeApplier(log)
	submitConfig := command.SubmitAttendanceHandlerConfig{
		Policy: attendance.Policy{
			PresentBefore: cfg.Attendance.PresentBefore,
			ExcusedUntil:  cfg.Attendance.ExcusedUntil,
			Location:      loc,
		},
		MaxImages: cfg.Attendance.MaxImages,
	}
	closeDay := command.NewCloseAttendanceDayHandler(uow, clock, loc, bus, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. BACKGROUND JOBS
	// ─────────────────────────────────────────────────────────────────────────
	var jobs httpserver.JobRunner
	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(scheduler.Config{Logger: log, Timezone: loc, Clock: clock})
		job := scheduler.NewCloseAttendanceDayJob(closeDay, cfg.Scheduler.JobTimeout, log)
		if err := sched.RegisterCron(job, cfg.Scheduler.CloseDayCron); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name(), err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler")
			_ = sched.Stop()
		}()
		jobs = sched
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewHealthChecker(cfg.App.Version)
	health.AddCheck("database", handlers.PingCheck(conn))
	if reportCache != nil {
		health.AddCheck("redis", handlers.PingCheck(reportCache))
	}

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpConfig.AllowedOrigins = cfg.HTTP.CORSOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimit
	httpConfig.RateBurst = cfg.HTTP.RateBurst
	httpConfig.MediaDir = cfg.Media.Dir
	httpConfig.MediaPath = cfg.Media.PublicPath
	httpConfig.Version = cfg.App.Version

	server := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		Tokens: handlers.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL),
		Health: health,

		DirectoryCommands:  command.NewDirectoryHandler(uow, clock, bus, log),
		Rules:              command.NewRuleHandler(uow, log),
		Logs:               command.NewLogHandler(uow, clock, bus, log),
		ExecuteRecord:      command.NewExecuteRecordHandler(uow, cancelPolicy, clock, bus, log),
		SubmitAttendance:   command.NewSubmitAttendanceHandler(uow, files, outcome, clock, bus, submitConfig, log),
		RollbackAttendance: command.NewRollbackAttendanceHandler(uow, files, outcome, clock, bus, log),

		Directory:  query.NewDirectoryHandler(uow),
		Attendance: query.NewAttendanceHandler(uow, loc),
		Discipline: query.NewDisciplineHandler(uow),
		Reports:    query.NewReportHandler(uow, cache, clock, query.ReportHandlerConfig{CacheTTL: cfg.Redis.ReportTTL, Location: loc}, log),

		Jobs:   jobs,
		Logger: log,
	})
	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("http shutdown failed", logger.Err(err))
	}
	log.Info("Attendance Hub stopped")
	return nil
}

func newLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = logger.Format(strings.ToLower(cfg.Observability.LogFormat))
	return logger.New(opts).With(logger.String("app", cfg.App.Name))
}

func postgresConfig(c config.DatabaseConfig) postgres.Config {
	pc := postgres.DefaultConfig()
	pc.URL = c.URL
	pc.Host = c.Host
	pc.Port = c.Port
	pc.Database = c.Name
	pc.User = c.User
	pc.Password = c.Password
	pc.SSLMode = c.SSLMode
	pc.MaxConns = int32(c.MaxConns)
	pc.MinConns = int32(c.MinConns)
	pc.MaxConnLifetime = c.ConnMaxLifetime
	pc.MaxConnIdleTime = c.ConnMaxIdleTime
	pc.ConnectTimeout = c.ConnectTimeout
	return pc
}

func redisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.Addr = c.Addr
	rc.Password = c.Password
	rc.DB = c.DB
	rc.PoolSize = c.PoolSize
	rc.MinIdleConns = c.MinIdleConns
	rc.DialTimeout = c.DialTimeout
	rc.ReadTimeout = c.ReadTimeout
	rc.WriteTimeout = c.WriteTimeout
	return rc
}
