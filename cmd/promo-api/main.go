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

	_ "github.com/bazarly/promo-api/api/swagger"
	"github.com/bazarly/promo-api/internal/handler"
	"github.com/bazarly/promo-api/internal/middleware"
	"github.com/bazarly/promo-api/internal/models"
	"github.com/bazarly/promo-api/internal/repository"
	"github.com/bazarly/promo-api/internal/service"
	"github.com/bazarly/promo-api/pkg/cache"
	"github.com/bazarly/promo-api/pkg/config"
	"github.com/bazarly/promo-api/pkg/database"
	"github.com/bazarly/promo-api/pkg/logger"
	corsmiddleware "github.com/bazarly/promo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/bazarly/promo-api/pkg/middleware/requestid"
)

// @title Bazarly Promo API
// @version 1.0.0
// @description Sponsored listing promotion lifecycle service
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
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		redisClient = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	promotionRepo := repository.NewPromotionRepository(db)
	listingRepo := repository.NewListingRepository(db)

	var catalogCache *repository.CacheRepository
	if redisClient != nil {
		catalogCache = repository.NewCacheRepository(redisClient, logr)
		defer catalogCache.Close()
	}

	metricsSvc := service.NewMetricsService()

	auditSvc := service.NewAuditService(userRepo, cfg.Audit.Workers, cfg.Audit.BufferSize, logr)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	catalogCfg := service.CatalogConfig{
		CacheTTL:     cfg.Catalog.CacheTTL,
		SeedDefaults: cfg.Catalog.SeedDefaults,
	}
	var catalogSvc *service.CatalogService
	if catalogCache != nil {
		catalogSvc = service.NewCatalogService(packageRepo, catalogCache, auditSvc, metricsSvc, validate, logr, catalogCfg)
	} else {
		catalogSvc = service.NewCatalogService(packageRepo, nil, auditSvc, metricsSvc, validate, logr, catalogCfg)
	}
	if cfg.Catalog.SeedDefaults {
		if err := catalogSvc.SeedDefaults(ctx); err != nil {
			logr.Sugar().Warnw("failed to seed default packages", "error", err)
		}
	}

	requestSvc := service.NewRequestService(requestRepo, listingRepo, packageRepo, auditSvc, metricsSvc, validate, logr)
	activationSvc := service.NewActivationService(promotionRepo, requestRepo, packageRepo, auditSvc, metricsSvc, validate, logr)
	sweeperSvc := service.NewSweeperService(promotionRepo, metricsSvc, logr, service.SweeperConfig{
		Interval:  cfg.Sweeper.Interval,
		BatchSize: cfg.Sweeper.BatchSize,
		OnBoot:    cfg.Sweeper.OnBoot,
	})
	if cfg.Sweeper.Enabled {
		sweeperSvc.Start(ctx)
	}
	exportSvc := service.NewExportService(requestRepo, service.ExportConfig{MaxRows: cfg.Exports.MaxRows}, logr, nil, nil)

	authHandler := handler.NewAuthHandler(authSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	requestHandler := handler.NewRequestHandler(requestSvc, exportSvc)
	promotionHandler := handler.NewPromotionHandler(activationSvc, sweeperSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

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
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	api.GET("/packages", catalogHandler.ListActive)
	api.GET("/packages/:id", catalogHandler.Get)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	poster := authed.Group("")
	poster.Use(middleware.RequireRoles(models.RolePoster, models.RoleAdmin))
	poster.POST("/requests", requestHandler.Submit)
	poster.GET("/requests/mine", requestHandler.ListMine)
	poster.GET("/requests/:id", requestHandler.Get)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleModerator))
	admin.GET("/packages", catalogHandler.ListAll)
	admin.POST("/packages", catalogHandler.Create)
	admin.POST("/packages/:id/retire", catalogHandler.Retire)
	admin.GET("/requests", requestHandler.ListAll)
	admin.GET("/requests/export", requestHandler.Export)
	admin.POST("/requests/:id/approve", promotionHandler.Approve)
	admin.POST("/requests/:id/reject", promotionHandler.Reject)
	admin.GET("/promotions", promotionHandler.List)
	admin.POST("/promotions/sweep", promotionHandler.Sweep)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
