// Package main runs the background chat purge worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/amphitryon/backend/config"
	"github.com/amphitryon/backend/internal/chats"
	"github.com/amphitryon/backend/internal/worker"
	"github.com/amphitryon/backend/pkg/database"
	"github.com/amphitryon/backend/pkg/docstore"
	"github.com/amphitryon/backend/pkg/queue"
	"github.com/amphitryon/backend/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}
	logger := newLogger(cfg.Log)
	defer logger.Sync()

	ctx := context.Background()
	var store docstore.Store
	switch cfg.DocStore.Driver {
	case "mongo":
		m, err := docstore.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
		if err != nil {
			logger.Fatal("mongo", zap.Error(err))
		}
		defer m.Close(context.Background())
		store = m
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		store = docstore.NewPostgres(pool)
	default:
		logger.Fatal("worker needs a shared docstore", zap.String("driver", cfg.DocStore.Driver))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	chatRepo := chats.NewRepository(store)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewChatPurgeProcessor(chatRepo, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started", zap.String("queue", queue.QueueChatPurge))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(queue.PollTimeout + 2*time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
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
		rotated := &lumberjack.Logger{Filename: cfg.File, MaxSize: 100, MaxBackups: 5, MaxAge: 28, Compress: true}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotated), level))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}
