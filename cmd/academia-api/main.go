package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/edusonrisas/academia-api/api/swagger"
	"github.com/edusonrisas/academia-api/internal/handler"
	"github.com/edusonrisas/academia-api/internal/middleware"
	"github.com/edusonrisas/academia-api/internal/models"
	"github.com/edusonrisas/academia-api/internal/repository"
	"github.com/edusonrisas/academia-api/internal/service"
	"github.com/edusonrisas/academia-api/pkg/cache"
	"github.com/edusonrisas/academia-api/pkg/config"
	"github.com/edusonrisas/academia-api/pkg/database"
	"github.com/edusonrisas/academia-api/pkg/export"
	"github.com/edusonrisas/academia-api/pkg/logger"
	corsmiddleware "github.com/edusonrisas/academia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/edusonrisas/academia-api/pkg/middleware/requestid"
)

// @title Academia API
// @version 1.0.0
// @description School administration backend: calendar, grades, attendance, enrollments and report cards
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	// Repositories.
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	userRepo := repository.NewUserRepository(db)
	yearRepo := repository.NewSchoolYearRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	gradeRepo := repository.NewGradeEntryRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	reportCardRepo := repository.NewReportCardRepository(db)
	scaleRepo := repository.NewGradingScaleRepository(db)

	// Services.
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Calendar.ListingTTL, logr, cfg.Redis.Enabled && redisClient != nil)
	configSvc := service.NewActiveConfigService(yearRepo, cacheSvc, cfg.Calendar.SnapshotTTL, logr)
	windowSvc := service.NewPeriodWindowService(periodRepo, configSvc, logr)
	aggregationSvc := service.NewAggregationService(gradeRepo, attendanceRepo, logr)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "academia-api",
	})
	calendarSvc := service.NewCalendarService(yearRepo, periodRepo, configSvc, userRepo, validate, logr)
	gradeSvc := service.NewGradeEntryService(gradeRepo, assignmentRepo, enrollmentRepo, windowSvc, configSvc, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, assignmentRepo, enrollmentRepo, windowSvc, configSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, assignmentRepo, configSvc, cacheSvc, userRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, configSvc, cacheSvc, validate, logr)
	scaleSvc := service.NewGradingScaleService(scaleRepo, configSvc, userRepo, validate, logr)
	renderer := export.NewReportCardPDF(export.SchoolHeader{
		Name:   cfg.School.Name,
		Slogan: cfg.School.Slogan,
		Phone:  cfg.School.Phone,
	})
	reportCardSvc := service.NewReportCardService(reportCardRepo, enrollmentRepo, assignmentRepo, periodRepo, scaleRepo, aggregationSvc, configSvc, renderer, metricsSvc, logr, cfg.Reports.PeriodsPerYear)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc, configSvc, windowSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	scaleHandler := handler.NewGradingScaleHandler(scaleSvc)
	reportCardHandler := handler.NewReportCardHandler(reportCardSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg.APIPrefix, authSvc, routeHandlers{
		auth:        authHandler,
		calendar:    calendarHandler,
		grades:      gradeHandler,
		attendance:  attendanceHandler,
		enrollments: enrollmentHandler,
		assignments: assignmentHandler,
		scale:       scaleHandler,
		reportCards: reportCardHandler,
		metrics:     metricsHandler,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}

type routeHandlers struct {
	auth        *handler.AuthHandler
	calendar    *handler.CalendarHandler
	grades      *handler.GradeHandler
	attendance  *handler.AttendanceHandler
	enrollments *handler.EnrollmentHandler
	assignments *handler.AssignmentHandler
	scale       *handler.GradingScaleHandler
	reportCards *handler.ReportCardHandler
	metrics     *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, prefix string, authSvc *service.AuthService, h routeHandlers) {
	v1 := r.Group(prefix)

	v1.POST("/auth/login", h.auth.Login)

	authed := v1.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", h.auth.Me)

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	calendar := authed.Group("/calendar")
	{
		calendar.GET("/years", staff, h.calendar.ListYears)
		calendar.POST("/years", admin, h.calendar.CreateYear)
		calendar.POST("/activate", admin, h.calendar.Activate)
		calendar.GET("/active", staff, h.calendar.GetActive)
		calendar.GET("/active/window", staff, h.calendar.GetActiveWindow)
		calendar.GET("/periods", staff, h.calendar.ListPeriods)
		calendar.POST("/periods", admin, h.calendar.CreatePeriod)
		calendar.PUT("/periods/:id", admin, h.calendar.UpdatePeriod)
		calendar.DELETE("/periods/:id", admin, h.calendar.DeletePeriod)
		calendar.GET("/years/:year/periods", staff, h.calendar.ListYearPeriods)
		calendar.PUT("/years/:year/periods/:periodId", admin, h.calendar.UpdateYearWindow)
	}

	grades := authed.Group("/grades", staff)
	{
		grades.GET("", h.grades.List)
		grades.POST("", h.grades.Upsert)
		grades.DELETE("/:id", h.grades.Delete)
	}

	attendance := authed.Group("/attendance", staff)
	{
		attendance.GET("", h.attendance.List)
		attendance.POST("", h.attendance.Upsert)
		attendance.GET("/summary/:enrollmentId", h.attendance.Summary)
	}

	enrollments := authed.Group("/enrollments")
	{
		enrollments.GET("", staff, h.enrollments.List)
		enrollments.GET("/:id", staff, h.enrollments.Get)
		enrollments.POST("", admin, h.enrollments.Create)
		enrollments.PUT("/:id/course", admin, h.enrollments.ReassignCourse)
		enrollments.POST("/:id/withdraw", admin, h.enrollments.Withdraw)
	}

	assignments := authed.Group("/assignments")
	{
		assignments.GET("", staff, h.assignments.List)
		assignments.POST("", admin, h.assignments.Create)
		assignments.PUT("/:id/hours", admin, h.assignments.UpdateTaughtHours)
		assignments.DELETE("/:id", admin, h.assignments.Delete)
	}
	authed.GET("/subjects", staff, h.assignments.ListSubjects)
	authed.GET("/courses", staff, h.assignments.ListCourses)

	reportCards := authed.Group("/report-cards")
	{
		reportCards.GET("", staff, h.reportCards.List)
		reportCards.GET("/:id", staff, h.reportCards.View)
		reportCards.GET("/:id/pdf", staff, h.reportCards.DownloadPDF)
		reportCards.PUT("/:id/comments", staff, h.reportCards.UpdateComments)
		reportCards.DELETE("/:id", admin, h.reportCards.Delete)
		reportCards.POST("/courses/:courseId/generate", staff, h.reportCards.BulkGenerate)
		reportCards.GET("/courses/:courseId/archive", admin, h.reportCards.DownloadCourseArchive)
		reportCards.GET("/courses/:courseId/standing", staff, h.reportCards.CourseStanding)
	}

	scale := authed.Group("/grading-scale")
	{
		scale.GET("", staff, h.scale.Get)
		scale.PUT("", admin, h.scale.Update)
	}

	authed.GET("/metrics/snapshot", admin, h.metrics.Snapshot)
}
