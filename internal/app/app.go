package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hifz_backend/internal/cache"
	"hifz_backend/internal/config"
	"hifz_backend/internal/controller"
	"hifz_backend/internal/notify"
	"hifz_backend/internal/progress"
	"hifz_backend/internal/remote"
	"hifz_backend/internal/service"
	"hifz_backend/internal/syncengine"
	"hifz_backend/pkg/database"
	"hifz_backend/pkg/logger"
	"hifz_backend/pkg/monitoring"
	"hifz_backend/pkg/security"
	"hifz_backend/pkg/tracing"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	Remote remote.Store
	Engine *syncengine.Engine

	services        *services
	limiters        []*security.Limiter
	tracer          *sdktrace.TracerProvider
	cancel          context.CancelFunc
	configCallbacks []func(*config.Config)
}

type services struct {
	auth     *service.AuthService
	school   *service.SchoolService
	progress *service.ProgressService
	quiz     *service.QuizAttemptService
	storage  service.StorageProvider
	backup   *service.BackupService
	hub      *service.SnapshotHub
}

type controllers struct {
	auth         *controller.AuthController
	teacher      *controller.TeacherController
	student      *controller.StudentController
	log          *controller.LogController
	quiz         *controller.QuizController
	announcement *controller.AnnouncementController
	adab         *controller.AdabController
	school       *controller.SchoolController
	backup       *controller.BackupController
	feed         *controller.FeedController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig hands a reloaded configuration to every registered callback.
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRemote(ctx context.Context, cfg *config.Config) (remote.Store, error) {
	switch cfg.Remote.Driver {
	case "firestore":
		return remote.NewFirestore(ctx, cfg.Remote.FirestoreProject, cfg.Remote.CredentialsFile)
	case "redis":
		rdb, err := database.InitRedis(ctx, &cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = rdb
		return remote.NewRedis(rdb, cfg.Remote.RedisPrefix), nil
	default:
		logger.Log.Warn("Using the in-memory remote store, data is lost on exit")
		return remote.NewMemory(), nil
	}
}

// initCache opens the durable cache. Without a database the cache lives in
// memory and nothing survives a restart.
func (a *App) initCache(cfg *config.Config) (cache.Store, error) {
	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	if db == nil {
		return cache.NewMemory(), nil
	}
	a.DB = db
	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db, cache.Models()...); err != nil {
			return nil, err
		}
	}
	return cache.NewGorm(db), nil
}

func (a *App) initPush(ctx context.Context, cfg *config.Config) notify.Sender {
	if !cfg.Push.Enabled {
		return notify.NoopSender{}
	}
	sender, err := notify.NewFirebaseSender(ctx, cfg.Push.CredentialsFile)
	if err != nil {
		logger.Log.Error("Push notifications disabled", zap.Error(err))
		return notify.NoopSender{}
	}
	return sender
}

func (a *App) initServices(ctx context.Context, cfg *config.Config, store cache.Store) (*services, error) {
	cal, err := progress.ParseCalendar(cfg.School.FirstWeekday, cfg.School.Timezone)
	if err != nil {
		return nil, err
	}

	s := &services{}
	a.Engine = syncengine.New(remote.WithRetry(a.Remote, remote.RetryPolicy{
		Attempts:   cfg.Sync.RetryAttempts,
		Backoff:    cfg.Sync.RetryBackoff,
		MaxBackoff: cfg.Sync.RetryMaxBackoff,
	}), syncengine.Options{
		Cache:        store,
		WriteTimeout: cfg.Sync.WriteTimeout,
		PingInterval: cfg.Sync.PingInterval,
		OnError: func(err error) {
			logger.Log.Error("Sync error", zap.Error(err))
			if s.hub != nil {
				s.hub.Notify(err)
			}
		},
	})

	s.progress = service.NewProgressService(a.Engine, cal, cfg.School.LeaderboardSize)
	s.school = service.NewSchoolService(a.Engine, a.initPush(ctx, cfg), s.progress.Location)
	s.auth = service.NewAuthService(a.Engine, store, cfg.JWT.Secret, cfg.JWT.ExpireTime, cfg.Admin.Password)
	s.quiz = service.NewQuizAttemptService(s.school)

	s.storage, err = service.NewStorageProvider(ctx, &cfg.Storage)
	if err != nil {
		logger.Log.Error("Object storage unavailable, backups go to local disk", zap.Error(err))
	}
	s.backup = service.NewBackupService(a.Engine, s.storage)

	s.hub = service.NewSnapshotHub(s.progress)
	a.Engine.Subscribe(s.hub.OnSnapshot)

	a.RegisterConfigCallback(func(next *config.Config) {
		cal, err := progress.ParseCalendar(next.School.FirstWeekday, next.School.Timezone)
		if err != nil {
			logger.Log.Error("Ignoring invalid school calendar", zap.Error(err))
			return
		}
		s.progress.SetCalendar(cal, next.School.LeaderboardSize)
	})
	return s, nil
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		teacher:      controller.NewTeacherController(s.school),
		student:      controller.NewStudentController(s.school, s.progress),
		log:          controller.NewLogController(s.school, s.progress),
		quiz:         controller.NewQuizController(s.quiz),
		announcement: controller.NewAnnouncementController(s.school, s.progress),
		adab:         controller.NewAdabController(s.school),
		school:       controller.NewSchoolController(s.school, s.progress),
		backup:       controller.NewBackupController(s.backup),
		feed:         controller.NewFeedController(s.hub),
		health:       controller.NewHealthController(a.Engine, a.DB),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.limiter("api", cfg.RateLimit.MaxRequests, cfg).Middleware())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// limiter builds a per-IP limiter over the configured window and keeps it
// for the idle-client sweep.
func (a *App) limiter(name string, maxRequests int, cfg *config.Config) *security.Limiter {
	l := security.NewLimiter(name, maxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	a.limiters = append(a.limiters, l)
	return l
}

func (a *App) startBackgroundTasks(ctx context.Context, s *services, cfg *config.Config) {
	go s.hub.Run(ctx)
	for _, l := range a.limiters {
		go l.Sweep(ctx)
	}

	interval := cfg.Sync.PurgeInterval
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.school.PurgeExpiredAnnouncements(ctx)
				if err != nil {
					logger.Log.Error("Announcement purge failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Log.Info("Purged expired announcements", zap.Int("count", n))
				}
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode, cfg.Log.File)
	logger.Log.Info("Logger initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{Config: cfg, cancel: cancel}

	store, err := app.initCache(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize cache database", zap.Error(err))
	}
	if cfg.MigrateOnly {
		return app
	}

	app.Remote, err = app.initRemote(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect to the remote store", zap.Error(err), zap.String("driver", cfg.Remote.Driver))
	}

	services, err := app.initServices(ctx, cfg, store)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	app.services = services

	if err := app.Engine.Start(ctx); err != nil {
		logger.Log.Fatal("Failed to start sync engine", zap.Error(err))
	}

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, app.initControllers(services), cfg)

	app.startBackgroundTasks(ctx, services, cfg)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// close websocket feeds before the server waits on them
	a.services.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close()
	logger.Log.Info("Server exiting")
}

// Close stops the engine and releases every connection. Writes not yet
// delivered stay queued in the cache.
func (a *App) Close() {
	a.cancel()
	if a.Engine != nil {
		_ = a.Engine.Close()
	}
	if a.Remote != nil {
		if err := a.Remote.Close(); err != nil {
			logger.Log.Warn("Failed to close remote store", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	_ = logger.Log.Sync()
}
