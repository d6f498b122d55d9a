package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/altius-academy/academy-api/api/swagger"
	"github.com/altius-academy/academy-api/internal/handler"
	"github.com/altius-academy/academy-api/internal/middleware"
	"github.com/altius-academy/academy-api/internal/models"
	"github.com/altius-academy/academy-api/internal/repository"
	"github.com/altius-academy/academy-api/internal/service"
	"github.com/altius-academy/academy-api/pkg/cache"
	"github.com/altius-academy/academy-api/pkg/config"
	"github.com/altius-academy/academy-api/pkg/database"
	"github.com/altius-academy/academy-api/pkg/logger"
	corsmiddleware "github.com/altius-academy/academy-api/pkg/middleware/cors"
	reqidmiddleware "github.com/altius-academy/academy-api/pkg/middleware/requestid"
	"github.com/altius-academy/academy-api/pkg/storage"
)

// @title Altius Academy API
// @version 1.0.0
// @description Task lifecycle and dashboard backend for the academy platform
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrations(cfg, os.Args[2:])
		return
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache", zap.Error(err))
	} else {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Content.CacheTTL, logr, cfg.Content.CacheEnabled && cacheRepo != nil)

	userRepo := repository.NewUserRepository(db)
	gradeRepo := repository.NewSchoolGradeRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	templateRepo := repository.NewTaskTemplateRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	authSvc := service.NewAuthService(cfg.JWT, logr)
	contentSvc := service.NewContentService(cfg.Content, cacheSvc, logr)
	gradeSvc := service.NewGradeService(gradeRepo, logr)

	fanoutSvc := service.NewFanoutService(service.FanoutServiceParams{
		Templates: templateRepo,
		Subjects:  subjectRepo,
		Grades:    gradeRepo,
		Students:  userRepo,
		Metrics:   metricsSvc,
		Logger:    logr,
		Config:    service.FanoutConfig{MaxTasksPerTemplate: cfg.Fanout.MaxTasksPerTemplate},
	})

	submissionSvc := service.NewSubmissionService(service.SubmissionServiceParams{
		Tasks:       taskRepo,
		Submissions: submissionRepo,
		Students:    userRepo,
		Logger:      logr,
	})

	taskSvc := service.NewTaskService(taskRepo, submissionRepo, userRepo, contentSvc, logr)

	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Users:        userRepo,
		Subjects:     subjectRepo,
		Submissions:  submissionRepo,
		Templates:    templateRepo,
		Tasks:        taskRepo,
		Institutions: institutionRepo,
		Attendance:   attendanceRepo,
		Logger:       logr,
		Config: service.DashboardServiceConfig{
			RecentTemplatesLimit:   cfg.Dashboard.RecentTemplatesLimit,
			UpcomingTemplatesLimit: cfg.Dashboard.UpcomingTemplatesLimit,
		},
	})

	exportStore, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	exportSvc := service.NewExportService(service.ExportServiceParams{
		Tasks:       taskRepo,
		Submissions: submissionRepo,
		Students:    userRepo,
		Store:       exportStore,
		Signer:      storage.NewSignedURLSigner(cfg.Export.URLSecret, cfg.Export.URLTTL),
		Workers:     cfg.Export.Workers,
		TTL:         cfg.Export.URLTTL,
		Logger:      logr,
	})
	exportSvc.Start(context.Background())
	defer exportSvc.Stop()

	taskHandler := handler.NewTaskHandler(fanoutSvc, taskSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/exports/download", exportHandler.Download)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	tasks := api.Group("/tasks")
	tasks.POST("", middleware.RequireRoles(models.RoleTeacher), taskHandler.Create)
	tasks.GET("", middleware.RequireRoles(models.RoleTeacher, models.RoleStudent), taskHandler.List)
	tasks.GET("/:id", taskHandler.Get)
	tasks.PUT("/:id", middleware.RequireRoles(models.RoleTeacher), taskHandler.Update)
	tasks.DELETE("/:id", middleware.RequireRoles(models.RoleTeacher), taskHandler.Delete)
	tasks.PUT("/:id/submit", middleware.RequireRoles(models.RoleStudent), submissionHandler.Submit)
	tasks.PUT("/:id/submission", middleware.RequireRoles(models.RoleStudent), submissionHandler.Update)
	tasks.PUT("/:id/grade", middleware.RequireRoles(models.RoleTeacher), submissionHandler.Grade)
	tasks.GET("/:id/submissions", middleware.RequireRoles(models.RoleTeacher), submissionHandler.List)
	tasks.POST("/:id/submissions/export", middleware.RequireRoles(models.RoleTeacher), exportHandler.Export)

	api.GET("/dashboard/stats", dashboardHandler.Stats)
	api.GET("/grades/available", gradeHandler.Available)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func runMigrations(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	direction := fs.String("direction", "up", "migration direction: up or down")
	dir := fs.String("dir", "migrations", "migrations directory")
	force := fs.Int("force", 0, "force schema version without running migrations")
	_ = fs.Parse(args)

	migrator, err := database.NewMigrator(cfg.Database, *dir)
	if err != nil {
		log.Fatalf("failed to init migrator: %v", err)
	}
	defer migrator.Close() //nolint:errcheck

	switch {
	case *force > 0:
		err = migrator.Force(*force)
	case *direction == "down":
		err = migrator.Down()
	default:
		err = migrator.Up()
	}
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Println("migrations applied")
}
