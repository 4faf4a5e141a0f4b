// Package main runs the DevHost registration and payments HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/api/option"

	"github.com/SalmanNajah/devhost-2025/config"
	"github.com/SalmanNajah/devhost-2025/internal/events"
	"github.com/SalmanNajah/devhost-2025/internal/gateway"
	"github.com/SalmanNajah/devhost-2025/internal/identity"
	"github.com/SalmanNajah/devhost-2025/internal/middleware"
	"github.com/SalmanNajah/devhost-2025/internal/orders"
	"github.com/SalmanNajah/devhost-2025/internal/store"
	"github.com/SalmanNajah/devhost-2025/internal/teams"
	"github.com/SalmanNajah/devhost-2025/internal/users"
	"github.com/SalmanNajah/devhost-2025/pkg/lock"
	"github.com/SalmanNajah/devhost-2025/pkg/redis"
	"github.com/SalmanNajah/devhost-2025/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	var fsOpts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		fsOpts = append(fsOpts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	fsClient, err := firestore.NewClient(ctx, cfg.Firebase.ProjectID, fsOpts...)
	if err != nil {
		logger.Fatal("firestore", zap.Error(err))
	}
	defer fsClient.Close()
	db := store.NewFirestore(fsClient)

	verifier, err := identity.NewFirebase(ctx, identity.FirebaseConfig{
		ProjectID:       cfg.Firebase.ProjectID,
		CredentialsFile: cfg.Firebase.CredentialsFile,
	})
	if err != nil {
		logger.Fatal("identity", zap.Error(err))
	}

	// Per-team locks come from Redis when configured, otherwise stay
	// in-process (single-node deployments).
	var locker lock.Locker = lock.NewLocal()
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		locker = lock.NewRedis(rdb.Client)
	}

	baseURL := gateway.SandboxBaseURL
	if cfg.Cashfree.Mode == "production" {
		baseURL = gateway.ProductionBaseURL
	}
	gw, err := gateway.NewCashfree(gateway.CashfreeConfig{
		ClientID:     cfg.Cashfree.ClientID,
		ClientSecret: cfg.Cashfree.ClientSecret,
		BaseURL:      baseURL,
	}, logger)
	if err != nil {
		logger.Fatal("payment gateway", zap.Error(err))
	}

	policies := events.Defaults()

	teamService := teams.NewService(db.Teams(), db.Profiles(), policies, locker, logger)
	teamHandler := teams.NewHandler(teamService, logger)

	orderService := orders.NewService(db.Teams(), db.Profiles(), gw, policies, orders.PollConfig{
		Delay:       cfg.Payment.PollDelay,
		MaxAttempts: cfg.Payment.MaxPollAttempts,
	}, logger)
	orderHandler := orders.NewHandler(orderService, logger)

	userHandler := users.NewHandler(db.Profiles(), logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(verifier))
	{
		api.GET("/users/me", userHandler.Me)
		api.PUT("/users/me", userHandler.Update)

		api.POST("/orders", orderHandler.Create)
		api.GET("/orders/verify", orderHandler.Verify)

		api.POST("/events/:eventid/teams", teamHandler.Create)
		api.GET("/events/:eventid/teams/me", teamHandler.MyTeam)
		api.POST("/events/:eventid/teams/join", teamHandler.Join)
		api.POST("/events/:eventid/teams/leave", teamHandler.Leave)
		api.POST("/events/:eventid/teams/:teamid/remove", teamHandler.Remove)
		api.POST("/events/:eventid/teams/:teamid/finalize", teamHandler.Finalize)
		api.PUT("/events/:eventid/teams/:teamid/drive", teamHandler.SetDrive)
		api.DELETE("/events/:eventid/teams/:teamid", teamHandler.Delete)

		api.POST("/teams/checkdrivelink", teamHandler.CheckDriveLink)
	}

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
