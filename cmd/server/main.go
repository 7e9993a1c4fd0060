// Package main runs the Amphitryon HTTP server with WebSocket chat and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/amphitryon/backend/config"
	"github.com/amphitryon/backend/internal/assembler"
	"github.com/amphitryon/backend/internal/auth"
	"github.com/amphitryon/backend/internal/chats"
	"github.com/amphitryon/backend/internal/filter"
	"github.com/amphitryon/backend/internal/locations"
	"github.com/amphitryon/backend/internal/meetings"
	"github.com/amphitryon/backend/internal/membership"
	"github.com/amphitryon/backend/internal/middleware"
	"github.com/amphitryon/backend/internal/realtime"
	"github.com/amphitryon/backend/pkg/database"
	"github.com/amphitryon/backend/pkg/docstore"
	"github.com/amphitryon/backend/pkg/queue"
	"github.com/amphitryon/backend/pkg/redis"
	"github.com/amphitryon/backend/pkg/response"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	logger := newLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("docstore", zap.String("driver", cfg.DocStore.Driver), zap.Error(err))
	}
	defer closeStore()

	// Redis is optional: without it the hub stays single-instance and chat purges run inline.
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Warn("redis unavailable, running single-instance", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireMinutes)
	verifier, err := auth.NewGoogleVerifier(ctx, cfg.Google.Issuer, cfg.Google.ClientID, cfg.Google.TestToken, logger)
	if err != nil {
		logger.Fatal("google verifier", zap.Error(err))
	}

	var hub *realtime.Hub
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb.Client, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}

	// Repositories
	userRepo := auth.NewRepository(store)
	meetingRepo := meetings.NewRepository(store)
	locationRepo := locations.NewRepository(store)
	chatRepo := chats.NewRepository(store)

	var purger membership.ChatPurger = chats.NewInlinePurger(chatRepo)
	if cfg.Worker.ChatPurgeAsync {
		if rdb == nil {
			logger.Fatal("CHAT_PURGE_ASYNC requires redis")
		}
		purger = chats.NewQueuedPurger(queue.NewQueue(rdb.Client, logger))
		logger.Info("chat purges queued for the worker")
	}

	asm := assembler.New(locationRepo)
	engine := membership.NewEngine(meetingRepo, userRepo, chatRepo, purger, asm, logger)
	filterEngine := filter.NewEngine(locationRepo)
	sessions := auth.NewSessionResolver(jwtService, userRepo)

	authHandler := auth.NewHandler(userRepo, jwtService, verifier, cfg.JWT.Header, logger)
	meetingHandler := meetings.NewHandler(engine, filterEngine, meetingRepo, asm, logger)
	locationHandler := locations.NewHandler(locationRepo, logger)
	chatHandler := chats.NewHandler(chatRepo, hub, realtime.EventChatMessage, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins, cfg.JWT.Header))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "docstore": cfg.DocStore.Driver, "redis": "disabled"}
		if rdb != nil {
			status["redis"] = "ok"
			if !rdb.Healthy(c.Request.Context()) {
				status["redis"] = "down"
			}
		}
		response.OK(c, status)
	})
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// Auth (public)
	router.POST("/signUpStudent", authHandler.SignUpStudent)
	router.POST("/signUpHost", authHandler.SignUpHost)
	router.POST("/login", authHandler.Login)

	// WebSocket (token in query)
	router.GET("/ws", realtime.ServeWs(hub, sessions, chatRepo, logger))

	// Protected API
	api := router.Group("")
	api.Use(middleware.JWT(sessions, cfg.JWT.Header))
	{
		api.GET("/users", authHandler.List)
		api.GET("/user/:username", authHandler.GetByUsername)

		meetingHandler.Register(api)

		api.POST("/location", middleware.RequireHost(), locationHandler.Create)
		api.GET("/location/:id", locationHandler.GetByID)
		api.GET("/locations", locationHandler.List)
		api.GET("/locations/host/:hostID", locationHandler.ListByHost)

		api.GET("/chat/:chatID", chatHandler.GetByID)
		api.POST("/chat/createMessage/:chatID", middleware.RequireStudent(), chatHandler.CreateMessage)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("docstore", cfg.DocStore.Driver))
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

// openStore opens the configured document store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (docstore.Store, func(), error) {
	switch cfg.DocStore.Driver {
	case "mongo":
		m, err := docstore.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { _ = m.Close(context.Background()) }, nil
	case "memory":
		logger.Warn("using in-memory docstore, data is lost on restart")
		return docstore.NewMemory(), func() {}, nil
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return docstore.NewPostgres(pool), pool.Close, nil
	}
}

func newLogger(cfg config.LogConfig) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(os.Stdout), level),
	}
	if cfg.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotated), level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}
