// Package main - точка входа для API сервера Engagement Hub.
//
// Сервер принимает отметки посещаемости, ведёт серии и XP студентов,
// проводит квиз-челленджи и отдаёт лидерборды и каталог учебных групп.
//
// Архитектура следует принципам Clean Architecture и DDD:
// - Domain: чистая бизнес-логика без внешних зависимостей
// - Application: оркестрация use cases (Commands/Queries/Event Handlers)
// - Infrastructure: реализация репозиториев, внешние API
// - Interface: HTTP endpoints
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/campus-pulse/engagement-hub/config"

	// Application layer
	"github.com/campus-pulse/engagement-hub/internal/application/command"
	"github.com/campus-pulse/engagement-hub/internal/application/eventhandler"
	"github.com/campus-pulse/engagement-hub/internal/application/query"

	// Domain layer
	"github.com/campus-pulse/engagement-hub/internal/domain/attendance"
	"github.com/campus-pulse/engagement-hub/internal/domain/challenge"
	"github.com/campus-pulse/engagement-hub/internal/domain/gamification"
	"github.com/campus-pulse/engagement-hub/internal/domain/leaderboard"
	"github.com/campus-pulse/engagement-hub/internal/domain/shared"
	"github.com/campus-pulse/engagement-hub/internal/domain/studygroup"

	// Infrastructure layer
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/external/roster"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/messaging"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/memory"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/postgres"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/persistence/redis"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/scheduler"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/scheduler/jobs"
	"github.com/campus-pulse/engagement-hub/internal/infrastructure/service"

	// Interface layer
	httpserver "github.com/campus-pulse/engagement-hub/internal/interface/http"
	"github.com/campus-pulse/engagement-hub/internal/interface/http/handlers"

	// Packages
	"github.com/campus-pulse/engagement-hub/pkg/logger"
	"github.com/campus-pulse/engagement-hub/pkg/retry"
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

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting Engagement Hub API server",
		"env", cfg.App.Environment,
		"debug", cfg.App.Debug,
		"version", cfg.App.Version,
	)

	clock := shared.SystemClock{}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К ХРАНИЛИЩАМ
	// ─────────────────────────────────────────────────────────────────────────
	healthChecker := handlers.NewCompositeHealthChecker(cfg.App.Version)

	var (
		attendanceStore attendance.EventStore
		sessionStore    challenge.SessionStore
		questionBank    challenge.QuestionBank
		gamRepo         gamification.Repository
		quizStats       gamification.QuizStatsRepository
		lbRepo          leaderboard.Repository
		groupRepo       studygroup.Repository
	)

	if cfg.Database.Disabled || cfg.Database.URL == "" {
		log.Warn("persistent storage disabled, using in-memory stores")
		memGam := memory.NewGamificationRepo()
		attendanceStore = memory.NewAttendanceStore()
		sessionStore = memory.NewChallengeStore()
		questionBank = memory.NewQuestionBank(defaultQuestions())
		gamRepo = memGam
		quizStats = memGam
		lbRepo = memory.NewLeaderboardRepo()
		groupRepo = memory.NewStudyGroupRepo()
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

		log.Info("running database migrations...")
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		pgGam := postgres.NewGamificationRepository(dbConn)
		attendanceStore = postgres.NewAttendanceStore(dbConn)
		sessionStore = postgres.NewChallengeStore(dbConn)
		questionBank = postgres.NewQuestionBank(dbConn)
		gamRepo = pgGam
		quizStats = pgGam
		lbRepo = postgres.NewLeaderboardRepository(dbConn)
		groupRepo = postgres.NewStudyGroupRepository(dbConn)

		healthChecker.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var lbCache leaderboard.Cache
	var redisCache *redis.Cache

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

		cache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, falling back to in-memory cache", "error", err)
		} else {
			redisCache = cache
			defer redisCache.Close()
			lbCache = redis.NewLeaderboardCache(redisCache)
			sessionStore = redis.NewSessionStore(redisCache, cfg.Scheduler.ChallengeRetention)
			healthChecker.AddCheck("redis", handlers.NewCacheCheck(redisCache))
			log.Info("Redis connection established")
		}
	}
	if lbCache == nil {
		lbCache = memory.NewLeaderboardCache(clock)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. CAMPUS ROSTER API
	// ─────────────────────────────────────────────────────────────────────────
	var studentRoster attendance.Roster

	if cfg.Roster.BaseURL != "" {
		rosterCfg := roster.DefaultClientConfig(cfg.Roster.BaseURL)
		rosterCfg.APIKey = cfg.Roster.APIKey
		rosterCfg.Timeout = cfg.Roster.RequestTimeout
		rosterCfg.RateLimiterConfig.RequestsPerSecond = cfg.Roster.RequestsPerSecond
		rosterCfg.RateLimiterConfig.BurstSize = cfg.Roster.RateLimitBurst
		rosterCfg.RetryConfig = retry.Config{
			MaxAttempts:  cfg.Roster.MaxRetries,
			InitialDelay: cfg.Roster.RetryBaseDelay,
			MaxDelay:     cfg.Roster.RetryMaxDelay,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		}
		rosterCfg.Logger = log
		rosterCfg.Debug = cfg.App.Debug

		rosterClient := roster.NewClient(rosterCfg)
		studentRoster = rosterClient
		healthChecker.AddCheck("roster", handlers.NewExternalAPICheck(rosterClient))
		log.Info("roster client initialized", "base_url", cfg.Roster.BaseURL)
	} else {
		log.Warn("no roster configured, accepting all students and subjects")
		studentRoster = roster.NewPermissive()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ДОМЕННЫЕ СЕРВИСЫ
	// ─────────────────────────────────────────────────────────────────────────
	ledger := attendance.NewLedger(attendanceStore, studentRoster)
	tracker := attendance.NewTracker(attendanceStore, clock)
	statsSource := service.NewStatsAdapter(attendanceStore, tracker, quizStats, clock)

	engine, err := gamification.NewEngine(gamRepo, statsSource, nil, clock)
	if err != nil {
		return fmt.Errorf("failed to create gamification engine: %w", err)
	}

	directory := studygroup.NewDirectory(groupRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS И ОБРАБОТЧИКИ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	localBusConfig := messaging.DefaultInMemoryEventBusConfig()
	localBusConfig.Logger = log
	localBusConfig.AsyncMode = true

	// При наличии Redis события расходятся между инстансами через Pub/Sub
	var eventBus shared.EventBus
	var closeBus func() error
	if redisCache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         redis.NewPubSubClient(redisCache),
			InstanceID:     fmt.Sprintf("%s-%d", cfg.App.Name, os.Getpid()),
			LocalBusConfig: localBusConfig,
			Logger:         log,
		})
		if err != nil {
			return fmt.Errorf("failed to create redis event bus: %w", err)
		}
		eventBus = redisBus
		closeBus = redisBus.Close
	} else {
		memBus := messaging.NewInMemoryEventBus(localBusConfig)
		eventBus = memBus
		closeBus = memBus.Close
	}
	defer func() {
		log.Info("closing event bus...")
		_ = closeBus()
	}()

	awardXP := command.NewAwardXPHandler(engine, eventBus)

	attendanceReward := eventhandler.NewOnAttendanceRecordedHandler(awardXP, log,
		eventhandler.AttendanceRewardConfig{
			BaseXP:      cfg.Rewards.AttendanceBaseXP,
			OnTimeBonus: cfg.Rewards.OnTimeBonusXP,
		})
	challengeReward := eventhandler.NewOnChallengeSubmittedHandler(awardXP, quizStats, log)
	cacheInvalidator := eventhandler.NewOnXPGainedHandler(lbCache, log)

	// Диспетчер добавляет ретраи и dead letter queue поверх шины
	dispatcherConfig := messaging.DefaultDispatcherConfig(eventBus)
	dispatcherConfig.Logger = log
	dispatcher := messaging.NewDispatcher(dispatcherConfig)
	if cfg.App.Debug {
		dispatcher.Use(messaging.LoggingMiddleware(log))
	}
	defer func() { _ = dispatcher.Stop() }()

	registrations := []struct {
		eventType shared.EventType
		reg       messaging.HandlerRegistration
	}{
		{shared.EventAttendanceRecorded, messaging.HandlerRegistration{
			Name: "attendance_reward", Handler: attendanceReward.Handle,
		}},
		{shared.EventChallengeSubmitted, messaging.HandlerRegistration{
			Name: "challenge_reward", Handler: challengeReward.Handle,
		}},
		{shared.EventXPGained, messaging.HandlerRegistration{
			Name: "leaderboard_cache_invalidator", Handler: cacheInvalidator.Handle,
		}},
	}
	for _, r := range registrations {
		if err := dispatcher.RegisterHandler(r.eventType, r.reg); err != nil {
			return fmt.Errorf("failed to register event handler %s: %w", r.reg.Name, err)
		}
	}
	if err := dispatcher.Start(); err != nil {
		return fmt.Errorf("failed to start event dispatcher: %w", err)
	}

	// Встроенный scheduler для single-binary деплоя без отдельного
	// worker-процесса. Счётчик invalidator'а даёт пересборке лидерборда
	// пропускать интервалы без изменений XP.
	if cfg.Scheduler.Enabled {
		schedulerConfig := scheduler.DefaultSchedulerConfig()
		schedulerConfig.Logger = log
		schedulerConfig.Timezone = cfg.App.Location
		sched := scheduler.NewScheduler(schedulerConfig)

		rebuildConfig := jobs.DefaultRebuildLeaderboardConfig()
		rebuildConfig.CacheTopSize = cfg.Scheduler.LeaderboardCacheTopSize
		rebuildConfig.CacheTTL = cfg.Scheduler.LeaderboardCacheTTL
		rebuildConfig.Timeout = cfg.Scheduler.JobTimeout
		rebuildJob := jobs.NewRebuildLeaderboardJob(
			gamRepo, lbRepo, lbCache, eventBus, cacheInvalidator, clock, log, rebuildConfig)

		expireConfig := jobs.DefaultExpireChallengesConfig()
		expireConfig.Retention = cfg.Scheduler.ChallengeRetention
		expireJob := jobs.NewExpireChallengesJob(sessionStore, eventBus, clock, log, expireConfig)

		rebuildSchedule := scheduler.NewIntervalScheduleWithJitter(
			cfg.Scheduler.RebuildLeaderboardInterval, cfg.Scheduler.RebuildLeaderboardInterval/10)
		if err := sched.Register(rebuildJob, rebuildSchedule); err != nil {
			return fmt.Errorf("failed to register rebuild job: %w", err)
		}
		if err := sched.Register(expireJob, scheduler.NewIntervalSchedule(cfg.Scheduler.ExpireChallengesInterval)); err != nil {
			return fmt.Errorf("failed to register expire job: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() { _ = sched.Stop() }()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. APPLICATION LAYER (Commands и Queries)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application layer...")

	recordAttendance := command.NewRecordAttendanceHandler(ledger, tracker, clock, eventBus)
	challenges := command.NewChallengeHandler(sessionStore, questionBank, clock,
		shared.XP(cfg.Rewards.XPPerCorrectAnswer), eventBus)
	studyGroups := command.NewStudyGroupHandler(directory, eventBus)

	attendanceSummary := query.NewGetAttendanceSummaryHandler(ledger)
	streakQuery := query.NewGetStreakHandler(tracker)
	progressQuery := query.NewGetProgressHandler(engine)
	leaderboardQuery := query.NewGetLeaderboardHandler(lbRepo, lbCache, cfg.Scheduler.LeaderboardCacheTTL)
	groupSearch := query.NewSearchStudyGroupsHandler(directory)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing HTTP server...")

	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute
	httpConfig.APIKeyHeader = cfg.HTTP.APIKeyHeader
	httpConfig.APIKeys = cfg.HTTP.APIKeys
	httpConfig.EnableMetrics = cfg.HTTP.EnableMetrics

	httpDeps := httpserver.Dependencies{
		RecordAttendance:     recordAttendance,
		AwardXP:              awardXP,
		Challenges:           challenges,
		StudyGroups:          studyGroups,
		GetAttendanceSummary: attendanceSummary,
		GetStreak:            streakQuery,
		GetProgress:          progressQuery,
		GetLeaderboard:       leaderboardQuery,
		SearchStudyGroups:    groupSearch,
		Logger:               logger.Default(),
		HealthChecker:        healthChecker,
	}

	httpServer := httpserver.NewServer(httpConfig, httpDeps)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	errCh := make(chan error, 1)

	go func() {
		log.Info("starting HTTP server", "address", httpServer.Address())
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	log.Info("Engagement Hub API server is running", "http_address", httpServer.Address())

	// Ожидаем сигнал завершения или ошибку
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("service error", "error", err)
		return err
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	// Event bus и база данных закроются через defer

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

// defaultQuestions возвращает стартовый банк вопросов для режима
// разработки без базы данных.
func defaultQuestions() []challenge.Question {
	return []challenge.Question{
		{
			ID:           "gen-1",
			Category:     challenge.CategoryGeneral,
			Difficulty:   challenge.DifficultyEasy,
			Prompt:       "Сколько минут в академическом часе?",
			Options:      []string{"45", "60", "90"},
			CorrectIndex: 0,
		},
		{
			ID:           "gen-2",
			Category:     challenge.CategoryGeneral,
			Difficulty:   challenge.DifficultyEasy,
			Prompt:       "В каком году основан первый университет Европы?",
			Options:      []string{"1088", "1215", "1453"},
			CorrectIndex: 0,
		},
		{
			ID:           "gen-3",
			Category:     challenge.CategoryGeneral,
			Difficulty:   challenge.DifficultyMedium,
			Prompt:       "Какая планета ближайшая к Солнцу?",
			Options:      []string{"Венера", "Меркурий", "Марс"},
			CorrectIndex: 1,
		},
	}
}
