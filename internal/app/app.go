package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ops-api/internal/repository"
	"github.com/noah-isme/school-ops-api/internal/service"
	"github.com/noah-isme/school-ops-api/internal/validation"
	"github.com/noah-isme/school-ops-api/pkg/cache"
	"github.com/noah-isme/school-ops-api/pkg/config"
	"github.com/noah-isme/school-ops-api/pkg/database"
	"github.com/noah-isme/school-ops-api/pkg/jobs"
)

// App holds the wired services shared by the API server and the ops CLI.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Users   *repository.UserRepository
	Metrics *service.MetricsService
	Cache   *service.CacheService
	Rollups *jobs.Queue

	Auth           *service.AuthService
	Scheduler      *service.SessionSchedulerService
	Sessions       *service.SessionService
	Attendance     *service.AttendanceService
	ClassSchedules *service.ClassScheduleService
}

// New opens storage, applies migrations when enabled, and wires every service. The roll-up
// queue is built but not started.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	a := &App{Config: cfg, Logger: logger, DB: db, Metrics: service.NewMetricsService()}

	cacheRepo := repository.NewCacheRepository(nil)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, session listings will not be cached", zap.Error(err))
		} else {
			a.Redis = client
			cacheRepo = repository.NewCacheRepository(client)
		}
	}
	a.Cache = service.NewCacheService(cacheRepo, a.Metrics, cfg.Cache.TTL, logger, a.Redis != nil)

	validate := validation.New()
	a.Users = repository.NewUserRepository(db)
	classes := repository.NewClassRepository(db)
	sessions := repository.NewSessionRepository(db)
	students := repository.NewStudentRepository(db)
	records := repository.NewAttendanceRepository(db)

	a.Auth = service.NewAuthService(a.Users, validate, logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	a.Scheduler = service.NewSessionSchedulerService(classes, sessions, db, a.Cache, a.Metrics, logger, service.SessionSchedulerConfig{
		LookaheadMonths:  cfg.Scheduler.LookaheadMonths,
		DefaultStartTime: cfg.Scheduler.DefaultStartTime,
	})
	a.Attendance = service.NewAttendanceService(records, students, sessions, a.Metrics, validate, logger)
	a.Rollups = jobs.NewQueue("attendance-rollup", jobs.Mux{
		service.RollupJobType: a.Attendance.HandleRollupJob,
	}.Handle, jobs.QueueConfig{
		Workers:    cfg.Rollup.Workers,
		MaxRetries: cfg.Rollup.Retries,
		Logger:     logger,
	})
	a.Sessions = service.NewSessionService(sessions, classes, students, a.Rollups, a.Cache, validate, logger, service.SessionServiceConfig{
		DefaultStartTime: cfg.Scheduler.DefaultStartTime,
		CacheTTL:         cfg.Cache.TTL,
	})
	a.ClassSchedules = service.NewClassScheduleService(classes, validate, logger)

	return a, nil
}

// Close releases storage connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
