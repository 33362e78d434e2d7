package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/product-catalog/internal/auth"
	"github.com/iyhunko/product-catalog/internal/cache"
	"github.com/iyhunko/product-catalog/internal/config"
	httpAPI "github.com/iyhunko/product-catalog/internal/http"
	"github.com/iyhunko/product-catalog/internal/http/controller"
	"github.com/iyhunko/product-catalog/internal/http/middleware"
	"github.com/iyhunko/product-catalog/internal/image"
	"github.com/iyhunko/product-catalog/internal/logger"
	"github.com/iyhunko/product-catalog/internal/metrics"
	"github.com/iyhunko/product-catalog/internal/repository/sql"
	"github.com/iyhunko/product-catalog/internal/service"
	sqspkg "github.com/iyhunko/product-catalog/internal/sqs"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)
	logger.InitJSONLogger(conf.DebugMode)
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := sql.StartDB(ctx, conf.Database)
	handleErr("starting database", err)
	defer db.Close()

	productRepository := sql.NewProductRepository(db, sql.WithQueryTimeout(conf.Database.QueryTimeout))

	images, err := newImageManager(ctx, conf)
	handleErr("initializing image storage", err)

	var listingCache cache.ListingCache = cache.NoopCache{}
	if conf.Cache.RedisAddr != "" {
		redisClient, err := cache.NewClient(ctx, conf.Cache)
		if err != nil {
			// the listing still works straight from the database
			slog.Warn("running without listing cache", slog.Any("err", err))
		} else {
			defer redisClient.Close()
			listingCache = cache.NewRedisCache(redisClient, conf.Cache.TTL)
		}
	}

	var publisher service.Publisher
	if conf.AWS.SQSQueueURL != "" {
		sqsClient, err := sqspkg.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
		handleErr("creating SQS client", err)
		publisher = sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL)
	}

	productService := service.NewProductService(productRepository, images, listingCache, publisher)
	sessions := auth.NewSessions(conf.Admin.Password, conf.Admin.SessionSecret, conf.Admin.SessionTTL)

	engine := httpAPI.InitRouter(conf, gin.New(), httpAPI.Controllers{
		Health:   controller.New(productService),
		Products: controller.NewProductController(productService),
		Auth:     controller.NewAuthController(sessions),

		MaxUploadSize: images.MaxSize(),
	}, middleware.New(sessions))

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	metricsServer := metrics.StartMetricsServer(conf)

	<-ctx.Done()
	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to stop HTTP server", slog.Any("err", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to stop metrics server", slog.Any("err", err))
	}
}

func newImageManager(ctx context.Context, conf *config.Config) (*image.Manager, error) {
	var (
		store   image.ObjectStore
		baseURL string
	)
	switch conf.Storage.Backend {
	case config.StorageBackendLocal:
		local, err := image.NewLocalStore(conf.Storage.LocalUploadDir)
		if err != nil {
			return nil, err
		}
		store, baseURL = local, conf.Storage.LocalPublicBaseURL
	default:
		client, err := image.NewS3Client(ctx, conf.AWS.Region, conf.AWS.Endpoint)
		if err != nil {
			return nil, err
		}
		store, baseURL = image.NewS3Store(client, conf.AWS.S3Bucket), conf.AWS.S3PublicBaseURL
	}

	return image.NewManager(store, image.Options{
		MaxSize:       conf.Storage.MaxUploadSize,
		AllowedTypes:  conf.Storage.AllowedImageTypes,
		PublicBaseURL: baseURL,
		KeyPrefix:     conf.Storage.KeyPrefix,
		Timeout:       conf.Storage.Timeout,
	})
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
