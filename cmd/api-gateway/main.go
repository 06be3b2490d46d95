package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/liu0521613/StudArch-sub001/api/swagger"
	"github.com/liu0521613/StudArch-sub001/internal/handler"
	"github.com/liu0521613/StudArch-sub001/internal/middleware"
	"github.com/liu0521613/StudArch-sub001/internal/models"
	"github.com/liu0521613/StudArch-sub001/internal/repository"
	"github.com/liu0521613/StudArch-sub001/internal/service"
	"github.com/liu0521613/StudArch-sub001/pkg/cache"
	"github.com/liu0521613/StudArch-sub001/pkg/config"
	"github.com/liu0521613/StudArch-sub001/pkg/database"
	"github.com/liu0521613/StudArch-sub001/pkg/logger"
	corsmiddleware "github.com/liu0521613/StudArch-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/liu0521613/StudArch-sub001/pkg/middleware/requestid"
	"github.com/liu0521613/StudArch-sub001/pkg/storage"
)

// @title StudArch Access API
// @version 0.1.0
// @description Role-scoped student records platform: sessions, rosters, reviews and batch imports
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, session cache and events disabled", "error", err)
		redisClient = nil
	}

	proofStore, err := storage.NewLocalStorage(cfg.Proofs.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare proof storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Proofs.SignedURLSecret, cfg.Proofs.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	importRepo := repository.NewImportJobRepository(db)

	validate := validator.New()

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.Events.Enabled && redisClient != nil {
		events = service.NewRedisPublisher(redisClient, cfg.Events.ChannelPrefix, logr)
	}

	metricsSvc := service.NewMetricsService()
	rosterSvc := service.NewRosterService(rosterRepo, userRepo, events, validate, logr)
	reviewSvc := service.NewReviewService(reviewRepo, rosterSvc, events, validate, logr,
		service.WithAuditLogger(userRepo))
	profileSvc := service.NewProfileService(profileRepo, reviewSvc, events, validate, logr, cfg.Profile.Placeholder)
	reviewSvc.RegisterDecisionHook(models.RecordKindStudentProfile, service.DecisionHookFunc(profileSvc.ApplyReviewDecision))

	authSvc := service.NewAuthService(userRepo, profileSvc, redisClient, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "studarch",
		SessionCacheTTL:    cfg.Profile.SessionCacheTTL,
	})
	guardSvc := service.NewGuardService(profileSvc, logr)
	importSvc := service.NewImportService(importRepo, studentRepo, rosterSvc, events, logr, cfg.Imports.MaxRows)
	proofSvc := service.NewProofService(proofStore, signer, logr, cfg.Proofs.MaxFileSizeBytes)
	exportSvc := service.NewExportService(reviewSvc, importSvc, logr)
	accountSvc := service.NewAccountService(userRepo, studentRepo, profileSvc, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	guardHandler := handler.NewGuardHandler(guardSvc, metricsSvc)
	profileHandler := handler.NewProfileHandler(profileSvc, rosterSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	reviewHandler := handler.NewReviewHandler(reviewSvc, proofSvc, metricsSvc)
	importHandler := handler.NewImportHandler(importSvc, exportSvc, metricsSvc, logr, handler.ImportHandlerConfig{
		Async:      cfg.Imports.Async,
		Workers:    cfg.Imports.WorkerConcurrency,
		MaxRetries: cfg.Imports.WorkerRetries,
	})
	exportHandler := handler.NewExportHandler(exportSvc)
	studentHandler := handler.NewStudentHandler(studentRepo, accountSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.Session(authSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.RequireSession(), authHandler.Logout)
		auth.POST("/change-password", middleware.RequireSession(), authHandler.ChangePassword)
		auth.GET("/me", middleware.RequireSession(), authHandler.Me)
	}

	access := api.Group("/access")
	{
		access.GET("/check", guardHandler.Check)
		access.GET("/home", middleware.RequireSession(), guardHandler.Home)
	}

	api.GET("/status", middleware.RequireSession(), metricsHandler.Status)

	// The onboarding endpoints bypass the completion gate; everything else a
	// student touches sits behind it.
	onboarding := api.Group("/profiles", middleware.GuardOnboarding(guardSvc, metricsSvc))
	{
		onboarding.GET("/me", profileHandler.GetMine)
		onboarding.PUT("/me", profileHandler.UpdateMine)
		onboarding.POST("/me/submit", profileHandler.SubmitMine)
	}

	records := api.Group("/records", middleware.RequireAnyAuthenticated(guardSvc, metricsSvc))
	{
		records.POST("", reviewHandler.Create)
		records.GET("", reviewHandler.List)
		records.GET("/export", exportHandler.ReviewLedger)
		records.POST("/proofs", reviewHandler.UploadProof)
		records.GET("/:id", reviewHandler.Get)
		records.POST("/:id/decision", reviewHandler.Decide)
		records.POST("/:id/reopen", reviewHandler.Reopen)
		records.GET("/:id/proof-link", reviewHandler.ProofLink)
	}
	// signed token is the authorization here
	api.GET("/records/proofs/download", reviewHandler.DownloadProof)

	teacherRole := models.RoleTeacher
	roster := api.Group("/roster", middleware.Guard(guardSvc, metricsSvc, &teacherRole))
	{
		roster.GET("", rosterHandler.List)
		roster.POST("", rosterHandler.Assign)
		roster.POST("/batch", rosterHandler.BatchAssign)
		roster.DELETE("/:id", rosterHandler.Unassign)
	}

	imports := api.Group("/imports", middleware.RequireAnyAuthenticated(guardSvc, metricsSvc))
	{
		imports.POST("", middleware.Audit(userRepo, models.AuditActionBatchImport, "batch_import"), importHandler.Submit)
		imports.GET("", importHandler.List)
		imports.GET("/:id", importHandler.Get)
		imports.GET("/:id/errors", importHandler.FailureReport)
	}

	adminRole := models.RoleAdmin
	students := api.Group("/students", middleware.Guard(guardSvc, metricsSvc, &adminRole))
	{
		students.GET("", studentHandler.List)
		students.POST("", studentHandler.Create)
		students.GET("/:id", studentHandler.Get)
	}
	api.GET("/teacher/students/:id/profile",
		middleware.Guard(guardSvc, metricsSvc, &teacherRole), profileHandler.GetStudent)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	importHandler.Start(rootCtx)
	defer importHandler.Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown error", "error", err)
	}
}
