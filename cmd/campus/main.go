package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitfantasy/campus/internal/campus/entity"
	"github.com/bitfantasy/campus/internal/campus/handler"
	"github.com/bitfantasy/campus/internal/campus/repository"
	"github.com/bitfantasy/campus/internal/campus/service"
	"github.com/bitfantasy/campus/internal/config"
	"github.com/bitfantasy/campus/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
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
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting campus service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 建表
	if err := autoMigrate(db); err != nil {
		zapLogger.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services, repos.User)

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())

	// 注册路由
	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
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
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
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

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Budget{},
		&entity.BudgetTransaction{},
		&entity.InventoryItem{},
		&entity.InventoryRecord{},
		&entity.Procurement{},
		&entity.Notice{},
	)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func registerRoutes(r *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	// 健康检查
	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 版本信息
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    Version,
			"build_time": BuildTime,
		})
	})

	// 上传文件静态访问
	r.Static(cfg.Upload.ServePrefix, cfg.Upload.Dir)

	// API v1，全部需要认证
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 用户目录
		users := v1.Group("/users", middleware.RequireRole(entity.RoleAdmin))
		{
			users.GET("", h.User.List)
			users.GET("/:id", h.User.Get)
		}

		// 部门预算
		budgets := v1.Group("/budgets")
		{
			budgets.GET("", middleware.RequireRole(entity.RoleAdmin), h.Budget.List)
			budgets.POST("", middleware.RequireRole(entity.RoleAdmin), h.Budget.Create)
			budgets.GET("/:department", middleware.RequireRole(entity.RoleStaff), h.Budget.Get)
			budgets.GET("/:department/remaining", middleware.RequireRole(entity.RoleStaff), h.Budget.GetRemaining)
			budgets.PUT("/:department", middleware.RequireRole(entity.RoleAdmin), h.Budget.Update)
			budgets.DELETE("/:department", middleware.RequireRole(entity.RoleAdmin), h.Budget.Delete)
		}

		// 库存
		inventory := v1.Group("/inventory", middleware.RequireRole(entity.RoleStaff))
		{
			inventory.GET("", h.Inventory.List)
			inventory.POST("/add", h.Inventory.Add)
			inventory.POST("/consume/:itemId", h.Inventory.Consume)
			inventory.GET("/export", h.Inventory.Export)
			inventory.GET("/records", h.Inventory.ListRecords)
			inventory.DELETE("/records", middleware.RequireRole(entity.RoleAdmin), h.Inventory.PurgeRecords)
		}

		// 采购单
		procurements := v1.Group("/procurements", middleware.RequireRole(entity.RoleStaff))
		{
			procurements.GET("", h.Procurement.List)
			procurements.POST("", h.Procurement.Upload)
			procurements.POST("/accept", middleware.RequireRole(entity.RoleAdmin), h.Procurement.Accept)
			procurements.POST("/:id/deny", middleware.RequireRole(entity.RoleAdmin), h.Procurement.Deny)
			procurements.GET("/:id/download", h.Procurement.Download)
			procurements.DELETE("/:id", h.Procurement.Delete)
		}

		// 公告
		notices := v1.Group("/notices")
		{
			notices.GET("", h.Notice.List)
			notices.POST("", middleware.RequireRole(entity.RoleStaff), h.Notice.Create)
			notices.DELETE("/:id", middleware.RequireRole(entity.RoleStaff), h.Notice.Delete)
		}

		// 看板
		v1.GET("/dashboard/stats", middleware.RequireRole(entity.RoleStaff), h.Dashboard.Stats)
	}
}
