package app

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/school-ops-api/internal/handler"
	"github.com/noah-isme/school-ops-api/internal/middleware"
	"github.com/noah-isme/school-ops-api/internal/models"
	"github.com/noah-isme/school-ops-api/pkg/config"
	"github.com/noah-isme/school-ops-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/school-ops-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/school-ops-api/pkg/middleware/requestid"
)

// NewRouter mounts every HTTP endpoint.
func NewRouter(a *App) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.Logger))
	r.Use(corsmiddleware.New(a.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.Metrics))

	metricsHandler := handler.NewMetricsHandler(a.Metrics, nil, a.Rollups)
	if a.DB != nil {
		metricsHandler = handler.NewMetricsHandler(a.Metrics, a.DB, a.Rollups)
	}
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if a.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(a.Auth)
	schedulerHandler := handler.NewSchedulerHandler(a.Scheduler)
	sessionHandler := handler.NewSessionHandler(a.Sessions)
	attendanceHandler := handler.NewAttendanceHandler(a.Attendance)
	classScheduleHandler := handler.NewClassScheduleHandler(a.ClassSchedules)

	api := r.Group(a.Config.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(a.Auth))
	authed.GET("/auth/me", authHandler.Me)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	everyone := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleParent)

	admin := authed.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/scheduler/run", schedulerHandler.Run)
	admin.POST("/classes/:id/reconcile", schedulerHandler.ReconcileClass)
	admin.DELETE("/sessions", schedulerHandler.DeleteMonth)

	authed.GET("/classes/:id/schedule", staff, classScheduleHandler.Get)
	authed.PUT("/classes/:id/schedule", middleware.RequireRoles(models.RoleAdmin), classScheduleHandler.Put)

	authed.POST("/sessions", staff, sessionHandler.Create)
	authed.GET("/sessions", staff, sessionHandler.List)
	authed.GET("/sessions/export", staff, sessionHandler.Export)
	authed.GET("/sessions/:id", staff, sessionHandler.Get)
	authed.PATCH("/sessions/:id/status", staff, sessionHandler.UpdateStatus)
	authed.PUT("/sessions/:id/attendance", staff, attendanceHandler.Record)

	authed.POST("/students/:id/attendance/recompute", staff, attendanceHandler.Recompute)
	authed.GET("/students/:id/attendance", everyone, attendanceHandler.Report)

	return r
}
