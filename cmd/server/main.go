package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"defense-scheduler/config"
	"defense-scheduler/internal/api/handler"
	"defense-scheduler/internal/api/middleware"
	"defense-scheduler/internal/api/router"
	"defense-scheduler/internal/repository"
	"defense-scheduler/internal/service"
	"defense-scheduler/pkg/database"
	"defense-scheduler/pkg/jwt"
	"defense-scheduler/pkg/lock"
	applogger "defense-scheduler/pkg/logger"
	"defense-scheduler/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("ready_rule", cfg.Scheduling.ReadyRule),
		zap.String("lock_backend", cfg.Scheduling.LockBackend),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，限流停用，排期锁降级为进程内锁", zap.Error(err))
			rdb = nil
		}
	}

	// 5. 排期锁：多实例部署需 redis 后端
	var locker lock.Locker
	if cfg.Scheduling.LockBackend == config.LockBackendRedis && rdb != nil {
		locker = lock.NewRedis(rdb, cfg.Scheduling.LockTTL, cfg.Scheduling.LockWait, logger)
	} else {
		if cfg.Scheduling.LockBackend == config.LockBackendRedis {
			logger.Warn("Redis 不可用，lock_backend=redis 降级为 local")
		}
		locker = lock.NewLocal(cfg.Scheduling.LockWait)
	}

	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}

	// 6. 依赖注入: Repository → Service → Handler
	loc, err := time.LoadLocation(cfg.Scheduling.Timezone)
	if err != nil {
		logger.Fatal("时区加载失败", zap.Error(err))
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, locker, logger)
	h := handler.NewHandler(svc, loc)

	// 7. 初始化路由
	gin.SetMode(gin.ReleaseMode)
	engine := router.Setup(cfg, h, jwtMgr, limiter, db, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if err := sqlDB.Close(); err != nil {
		logger.Warn("关闭数据库连接失败", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	logger.Info("服务器已关闭")
}
