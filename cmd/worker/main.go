// Package main - точка входа для фоновых процессов (Worker) Engagement Hub.
//
// Worker отвечает за периодические задачи:
// - Пересчёт снапшотов лидерборда и публикация изменений рангов
// - Завершение просроченных квиз-сессий
// - Удаление устаревших снапшотов лидерборда
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/campus-pulse/engagement-hub/config"

	// Domain layer
	"github.com/campus-pulse/engagement-hub/internal/domain/challenge"
	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"

	// Infrastructure layer
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/messaging"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/memory"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/postgres"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/redis"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/scheduler"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/scheduler/jobs"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем приложение
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if !cfg.Scheduler.Enabled {
		return fmt.Errorf("scheduler is disabled (SCHEDULER_ENABLED=false), nothing to do")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Engagement Hub Worker",
		"env", cfg.App.Environment,
		"debug", cfg.App.Debug,
		"timezone", cfg.App.Timezone,
	)

	clock := shared.SystemClock{}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К ХРАНИЛИЩАМ
	// ─────────────────────────────────────────────────────────────────────────
	var (
		sessionStore challenge.SessionStore
		gamRepo      gamification.Repository
		lbRepo       leaderboard.Repository
	)

	if cfg.Database.Disabled || cfg.Database.URL == "" {
		log.Warn("persistent storage disabled, using in-memory stores (worker state will not survive restarts)")
		sessionStore = memory.NewChallengeStore()
		gamRepo = memory.NewGamificationRepo()
		lbRepo = memory.NewLeaderboardRepo()
	} else {
		log.Info("connecting to database...")
		dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		log.Info("database connection established")

		// Worker также должен иметь актуальную схему
		log.Info("checking database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")

		sessionStore = postgres.NewChallengeStore(dbConn)
		gamRepo = postgres.NewGamificationRepository(dbConn)
		lbRepo = postgres.NewLeaderboardRepository(dbConn)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var lbCache leaderboard.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, falling back to in-memory cache", "error", err)
		} else {
			defer redisCache.Close()
			lbCache = redis.NewLeaderboardCache(redisCache)
			sessionStore = redis.NewSessionStore(redisCache, cfg.Scheduler.ChallengeRetention)
			log.Info("Redis connection established")
		}
	}
	if lbCache == nil {
		lbCache = memory.NewLeaderboardCache(clock)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	eventBusConfig := messaging.DefaultInMemoryEventBusConfig()
	eventBusConfig.Logger = log
	eventBus := messaging.NewInMemoryEventBus(eventBusConfig)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ JOBS И SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing scheduler...")

	schedulerConfig := scheduler.DefaultSchedulerConfig()
	schedulerConfig.Logger = log
	schedulerConfig.Timezone = cfg.App.Location
	sched := scheduler.NewScheduler(schedulerConfig)

	rebuildConfig := jobs.DefaultRebuildLeaderboardConfig()
	rebuildConfig.CacheTopSize = cfg.Scheduler.LeaderboardCacheTopSize
	rebuildConfig.CacheTTL = cfg.Scheduler.LeaderboardCacheTTL
	rebuildConfig.Timeout = cfg.Scheduler.JobTimeout
	// XP изменяется в процессе API сервера - в worker свежесть не
	// отслеживается, пересборка выполняется каждый интервал.
	rebuildConfig.SkipWhenFresh = false

	rebuildJob := jobs.NewRebuildLeaderboardJob(
		gamRepo, lbRepo, lbCache, eventBus, nil, clock, log, rebuildConfig)

	expireConfig := jobs.DefaultExpireChallengesConfig()
	expireConfig.Retention = cfg.Scheduler.ChallengeRetention
	expireJob := jobs.NewExpireChallengesJob(sessionStore, eventBus, clock, log, expireConfig)

	pruneJob := jobs.NewPruneSnapshotsJob(lbRepo, eventBus, clock, log, cfg.Scheduler.SnapshotRetention)

	if err := sched.Register(rebuildJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RebuildLeaderboardInterval)); err != nil {
		return fmt.Errorf("failed to register rebuild job: %w", err)
	}
	if err := sched.Register(expireJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ExpireChallengesInterval)); err != nil {
		return fmt.Errorf("failed to register expire job: %w", err)
	}
	pruneSchedule, err := scheduler.ParseCronExpression(cfg.Scheduler.PruneSnapshotsCron)
	if err != nil {
		return fmt.Errorf("invalid prune cron expression %q: %w", cfg.Scheduler.PruneSnapshotsCron, err)
	}
	if err := sched.Register(pruneJob, pruneSchedule); err != nil {
		return fmt.Errorf("failed to register prune job: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	log.Info("Engagement Hub Worker is running",
		"rebuild_interval", cfg.Scheduler.RebuildLeaderboardInterval.String(),
		"expire_interval", cfg.Scheduler.ExpireChallengesInterval.String(),
		"prune_cron", cfg.Scheduler.PruneSnapshotsCron,
	)

	// Ожидаем сигнал завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	// Начинаем graceful shutdown
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}

	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
