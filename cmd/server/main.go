// Package main 是服务端的入口点
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"relay-chat-server/internal/cache"
	"relay-chat-server/internal/config"
	"relay-chat-server/internal/handler"
	"relay-chat-server/internal/logger"
	"relay-chat-server/internal/middleware"
	"relay-chat-server/internal/repository"
	"relay-chat-server/internal/service"
	"relay-chat-server/internal/websocket"
)

func main() {
	configDir := flag.String("config", "./configs", "directory containing config.yaml")
	flag.Parse()

	if err := run(*configDir); err != nil {
		logger.L().Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	// 加载配置
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Init(cfg.Log, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化消息存储
	store, db, err := repository.NewMessageStore(cfg)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
	}
	log.Info("storage ready", "driver", cfg.Storage.Driver)

	// 初始化 AI 服务
	provider, err := service.NewCompletionProvider(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	log.Info("ai provider ready", "provider", provider.Name(), "model", cfg.AI.Model)

	// 初始化 WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	// 初始化 Service 层
	chatService := service.NewChatService(store, provider, cfg.AI)
	sessionService := service.NewSessionService(store)

	// 开启 Redis 时消息经 Redis 广播，所有实例的 Hub 都能收到
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg)
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		defer redisCache.Close()

		chatService.SetPublisher(redisCache)
		go func() {
			if err := redisCache.RelayMessages(ctx, wsHub); err != nil {
				log.Error("redis relay stopped", "error", err)
			}
		}()
		log.Info("redis message bus enabled", "host", cfg.Redis.Host, "port", cfg.Redis.Port)
	} else {
		chatService.SetPublisher(wsHub)
	}

	// 初始化 Handler 层
	chatHandler := handler.NewChatHandler(chatService)
	sessionHandler := handler.NewSessionHandler(sessionService)
	wsHandler := websocket.NewHandler(wsHub)

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	corsCfg := middleware.NewCORSConfig(cfg.Server.CORS)

	// 全局中间件
	router.Use(
		middleware.RecoveryMiddleware(),    // 恢复 panic
		middleware.RequestIDMiddleware(),   // 请求 ID
		middleware.LoggerMiddleware(),      // 请求日志
		middleware.CORSMiddleware(corsCfg), // CORS
	)

	// 注册路由
	handler.RegisterRoutes(router, chatHandler, sessionHandler)
	wsHandler.RegisterRoutes(router)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 等待退出信号或启动失败
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
