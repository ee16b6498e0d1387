package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/config"
	"github.com/pageza/foodscan/backend/internal/database"
	"github.com/pageza/foodscan/backend/internal/logging"
	"github.com/pageza/foodscan/backend/internal/server"
	"github.com/pageza/foodscan/backend/internal/service"
)

func main() {
	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, config.IsProduction())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	rdb, err := database.NewRedisClient(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pipeline, err := service.NewPipeline(ctx, cfg, redisOrNil(rdb), logger)
	if err != nil {
		logger.Fatal("failed to build analysis pipeline", zap.Error(err))
	}

	srv := server.New(cfg, pipeline.Analysis, redisOrNil(rdb), logger)

	// Channel to listen for errors coming from the server
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	case sig := <-quit:
		logger.Info("received signal", zap.String("signal", fmt.Sprint(sig)))
	}

	logger.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}

// redisOrNil keeps a nil client from becoming a non-nil interface.
func redisOrNil(c *redis.Client) redis.Cmdable {
	if c == nil {
		return nil
	}
	return c
}
