package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/iyhunko/product-catalog/internal/cache"
	"github.com/iyhunko/product-catalog/internal/config"
	"github.com/iyhunko/product-catalog/internal/logger"
	sqspkg "github.com/iyhunko/product-catalog/internal/sqs"
)

// The listener drops the shared listing cache whenever any catalog instance reports a change.
func main() {
	conf, err := config.LoadListenerFromEnv()
	handleErr("loading config", err)
	logger.InitJSONLogger(conf.DebugMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewClient(ctx, conf.Cache)
	handleErr("connecting to redis", err)
	defer redisClient.Close()
	listingCache := cache.NewRedisCache(redisClient, conf.Cache.TTL)

	sqsClient, err := sqspkg.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
	handleErr("creating SQS client", err)

	consumer := sqspkg.NewConsumer(sqsClient, conf.AWS.SQSQueueURL, func(ctx context.Context, msg sqspkg.ProductMessage) error {
		if err := listingCache.Invalidate(ctx); err != nil {
			return err
		}
		slog.Info("listing cache invalidated", slog.String("action", string(msg.Action)), slog.String("product_id", msg.ProductID))
		return nil
	})

	slog.Info("Catalog listener started. Listening for messages...")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Consumer error", slog.Any("err", err))
	}
	slog.Info("Shutting down gracefully...")
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
