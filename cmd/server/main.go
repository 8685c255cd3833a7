package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/yamakishi/tehai-ops/internal/acrossdb"
	"github.com/yamakishi/tehai-ops/internal/config"
	"github.com/yamakishi/tehai-ops/internal/entity"
	"github.com/yamakishi/tehai-ops/internal/handler"
	"github.com/yamakishi/tehai-ops/internal/middleware"
	"github.com/yamakishi/tehai-ops/internal/repository"
	"github.com/yamakishi/tehai-ops/internal/service"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting tehai-ops service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := entity.AutoMigrate(db); err != nil {
		zapLogger.Fatal("AutoMigrate failed", zap.Error(err))
	}

	rdb := initRedis(cfg.Redis)

	// 基幹DB（Across）。落ちていても起動はする。照会系APIが503を返すだけ。
	across, err := acrossdb.NewClient(cfg.Across.DSN())
	if err != nil {
		zapLogger.Fatal("Failed to init Across DB client", zap.Error(err))
	}
	defer across.Close()
	if err := across.Ping(context.Background()); err != nil {
		zapLogger.Warn("Across DB unreachable at startup", zap.Error(err))
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, across, cfg, zapLogger)
	handlers := handler.NewHandlers(services, across)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	registerRoutes(router, handlers, db)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, db *gorm.DB) {
	// ヘルスチェック
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	v1 := r.Group("/api/v1")
	{
		// マージ
		v1.POST("/merge", h.Merge.Merge)

		// ユニット（論理発注単位）
		orders := v1.Group("/orders")
		{
			orders.GET("", h.Order.List)
			orders.GET("/:id", h.Order.Get)
			orders.GET("/:id/details", h.Order.Details)
			orders.PUT("/:id", h.Order.Update)
			orders.DELETE("/:id", h.Order.Delete)
			orders.POST("/:id/archive", h.Order.Archive)
			orders.POST("/:id/unarchive", h.Order.Unarchive)
			orders.GET("/:id/export", h.Export.PickupList)
			orders.GET("/:id/labels", h.Export.Labels)
			orders.POST("/:id/image", h.Order.UploadImage)
			orders.GET("/:id/image", h.Order.ImageURL)
			orders.GET("/:id/logs", h.Order.EditLogs)
		}

		// 明細の受入操作
		details := v1.Group("/details")
		{
			details.POST("/:id/toggle-receive", h.Receiving.Toggle)
			details.POST("/:id/receive-with-quantity", h.Receiving.ReceiveWithQuantity)
			details.GET("/:id/logs", h.Order.EditLogs)
		}
		v1.POST("/receive-by-order-number", h.Receiving.ReceiveByOrderNumber)

		// マージ済み明細の横断検索
		search := v1.Group("/search")
		{
			search.GET("/by-order-number/:orderNumber", h.Order.SearchByOrderNumber)
			search.GET("/by-spec1/:spec1", h.Order.SearchBySpec1)
		}

		// 製番単位のビュー
		seibans := v1.Group("/seibans")
		{
			seibans.GET("/:seiban/orders", h.Order.ListBySeiban)
			seibans.GET("/:seiban/family", h.Order.SeibanFamily)
			seibans.GET("/:seiban/export", h.Export.SeibanWorkbook)
			seibans.GET("/:seiban/delivery", h.Receiving.DeliveryBySeiban)
		}

		// 基幹DB照会
		acrossGroup := v1.Group("/across")
		{
			acrossGroup.GET("/status", h.Across.Status)
			acrossGroup.GET("/check-updates", h.Across.CheckUpdates)
			acrossGroup.GET("/order/:orderNumber", h.Across.OrderLookup)
			acrossGroup.POST("/query", h.Across.Query)
		}
	}
}
