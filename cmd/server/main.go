// Package main 是应用程序的入口点。
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
	"github.com/go-redis/redis/v8"

	"nursing-archive-go/internal/config"
	"nursing-archive-go/internal/handler"
	"nursing-archive-go/internal/middleware"
	"nursing-archive-go/internal/repository"
	"nursing-archive-go/internal/service"
	"nursing-archive-go/pkg/database"
	"nursing-archive-go/pkg/events"
	"nursing-archive-go/pkg/log"
	"nursing-archive-go/pkg/storage"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	// 3. 建立数据库与缓存连接（由 main 持有并注入，退出时统一关闭）
	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatal("MySQL 初始化失败", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("关闭 MySQL 连接失败", err)
		}
	}()

	var rdb *redis.Client
	if cfg.Database.Redis.Addr != "" {
		rdb, err = database.NewRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		if err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
		defer rdb.Close()
	} else {
		log.Info("未配置 Redis，分类缓存不启用")
	}

	// 4. 初始化文件存储后端
	var store storage.Storage
	switch cfg.Storage.Backend {
	case "minio":
		store, err = storage.NewMinIO(cfg.Storage.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
	default:
		store, err = storage.NewLocal(cfg.Storage.UploadPath)
		if err != nil {
			log.Fatal("本地存储初始化失败", err)
		}
		log.Infof("档案文件保存在本地目录: %s", cfg.Storage.UploadPath)
	}

	// 5. 初始化访问事件发布器
	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	// 6. 初始化 Repository
	archiveRepo := repository.NewArchiveRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	accessRepo := repository.NewAccessRepository(db)

	// 首次启动时种入默认分类
	if err := categoryRepo.SeedDefaults(); err != nil {
		log.Fatal("写入默认分类失败", err)
	}

	// 7. 初始化 Service (依赖注入)
	categoryService := service.NewCategoryService(categoryRepo, rdb)
	auditService := service.NewAuditService(accessRepo, archiveRepo, categoryRepo, publisher)
	archiveService := service.NewArchiveService(archiveRepo, categoryRepo, categoryService, auditService, store, cfg.Archive.MaxFileSize)

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	handler.RegisterRoutes(
		r,
		handler.NewArchiveHandler(archiveService, cfg.Archive.MaxFiles),
		handler.NewCategoryHandler(categoryService),
		handler.NewAuditHandler(auditService),
	)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
