// Package main runs the live polling server: WebSocket session gateway,
// moderator REST API and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pulsepoll/backend/config"
	"github.com/pulsepoll/backend/internal/auth"
	"github.com/pulsepoll/backend/internal/dashboard"
	"github.com/pulsepoll/backend/internal/middleware"
	"github.com/pulsepoll/backend/internal/realtime"
	"github.com/pulsepoll/backend/internal/session"
	"github.com/pulsepoll/backend/pkg/redis"
	"github.com/pulsepoll/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	// Optional Redis bridge for multi-instance broadcast fan-out.
	var publisher realtime.Publisher
	var subscriber realtime.Subscriber
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis bridge disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			bridge := realtime.NewRedisPubSub(rdb.Client, logger)
			publisher, subscriber = bridge, bridge
		}
	}

	hub := realtime.NewHub(logger, uuid.New().String(), publisher, subscriber)
	if err := hub.Start(); err != nil {
		logger.Warn("redis subscription failed, broadcasts stay local", zap.Error(err))
	}
	defer hub.Stop()

	coordinator := session.NewCoordinator(logger, hub)

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.ExpireHours)
	authHandler := auth.NewHandler(jwtService, cfg.Auth.ModeratorPasscode, logger)
	dashboardHandler := dashboard.NewHandler(coordinator)

	validateToken := func(token string) (string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })
	router.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{
			"name":   "Live Polling System API",
			"socket": "/ws",
			"health": "/health",
		})
	})

	router.POST("/auth/moderator", authHandler.ModeratorLogin)

	// Moderator dashboard (read-only; mutation goes over the WebSocket).
	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService), middleware.RequireRole(session.RoleModerator))
	{
		api.GET("/poll", dashboardHandler.CurrentPoll)
		api.GET("/participants", dashboardHandler.Participants)
		api.GET("/history", dashboardHandler.History)
	}

	router.GET("/ws", realtime.ServeWs(hub, coordinator, logger, validateToken))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
