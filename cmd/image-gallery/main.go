package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Application
	applicationPort "github.com/dreschagin/image-gallery/internal/application/port"
	"github.com/dreschagin/image-gallery/internal/application/usecase"

	// Domain
	"github.com/dreschagin/image-gallery/internal/domain/valueobject"

	// Infrastructure
	natsInfra "github.com/dreschagin/image-gallery/internal/infrastructure/messaging/nats"
	"github.com/dreschagin/image-gallery/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/image-gallery/internal/infrastructure/observability/metrics"
	s3storage "github.com/dreschagin/image-gallery/internal/infrastructure/storage/s3"

	// Interfaces
	httpInterface "github.com/dreschagin/image-gallery/internal/interfaces/http"
	"github.com/dreschagin/image-gallery/internal/interfaces/http/handler"
	"github.com/dreschagin/image-gallery/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/image-gallery/pkg/config"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

func main() {
	// 1. Загружаем конфигурацию
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.LogLevel)
	log.Info("Starting Image Gallery", "bucket", cfg.S3.Bucket, "region", cfg.S3.Region)

	location, err := valueobject.NewBucketLocation(cfg.S3.Bucket, cfg.S3.Region)
	if err != nil {
		log.Error("Invalid bucket location", err)
		os.Exit(1)
	}

	// 3. Infrastructure: S3 client is built once and shared
	bucketStorage, err := s3storage.NewBucketStorage(context.Background(), s3storage.Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UsePathStyle:    cfg.S3.UsePathStyle,
	})
	if err != nil {
		log.Error("Failed to initialize S3 bucket storage", err)
		os.Exit(1)
	}

	// 4. Observability

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMetrics := metrics.New(registry)

	// CloudWatch Metrics Publisher
	var metricsPublisher applicationPort.MetricsPublisher
	if cfg.CloudWatch.MetricsEnabled {
		publisherImpl, initErr := cloudwatch.NewMetricsPublisher(context.Background(),
			cloudwatch.MetricsPublisherConfig{
				Namespace:       cfg.CloudWatch.MetricsNamespace,
				Region:          cfg.CloudWatch.Region,
				Endpoint:        cfg.CloudWatch.Endpoint,
				AccessKeyID:     cfg.S3.AccessKeyID,
				SecretAccessKey: cfg.S3.SecretAccessKey,
				FlushInterval:   cfg.CloudWatch.MetricsFlushInterval,
			})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch metrics publisher", initErr)
			os.Exit(1)
		}
		metricsPublisher = publisherImpl
		log.Info("CloudWatch metrics publisher initialized")
	} else {
		log.Warn("CloudWatch metrics publishing is disabled")
	}

	// CloudWatch Logs Publisher
	var logsPublisher applicationPort.LogPublisher
	if cfg.CloudWatch.LogsEnabled {
		publisherImpl, initErr := cloudwatch.NewLogsPublisher(context.Background(),
			cloudwatch.LogsPublisherConfig{
				LogGroupName:    cfg.CloudWatch.LogGroupName,
				LogStreamName:   cfg.CloudWatch.LogStreamName,
				Region:          cfg.CloudWatch.Region,
				Endpoint:        cfg.CloudWatch.Endpoint,
				AccessKeyID:     cfg.S3.AccessKeyID,
				SecretAccessKey: cfg.S3.SecretAccessKey,
				FlushInterval:   cfg.CloudWatch.LogsFlushInterval,
				AutoCreate:      true,
			})
		if initErr != nil {
			log.Error("Failed to initialize CloudWatch logs publisher", initErr)
			os.Exit(1)
		}
		logsPublisher = publisherImpl
		log.SetLogPublisher(logsPublisher)
		log.Info("CloudWatch logs publisher initialized")
	} else {
		log.Warn("CloudWatch logs publishing is disabled")
	}

	// 5. NATS Event Publisher
	var eventPublisher applicationPort.EventPublisher
	if cfg.NATS.Enabled {
		publisherImpl, initErr := natsInfra.NewNATSPublisher(cfg.NATS.URL, log)
		if initErr != nil {
			log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
		} else {
			eventPublisher = publisherImpl
			defer eventPublisher.Close()
			log.Info("NATS event publisher initialized", "url", cfg.NATS.URL)
		}
	} else {
		log.Warn("NATS event publishing is disabled")
	}

	// 6. Application Layer (Use Cases)

	fetchOpts := []usecase.FetchImagesOption{usecase.WithFetchRecorder(promMetrics)}
	if metricsPublisher != nil {
		fetchOpts = append(fetchOpts, usecase.WithMetricsPublisher(metricsPublisher))
	}
	if eventPublisher != nil {
		fetchOpts = append(fetchOpts, usecase.WithEventPublisher(eventPublisher))
	}
	fetchImagesUC := usecase.NewFetchImagesUseCase(bucketStorage, location, log, fetchOpts...)

	uploadImageUC := usecase.NewUploadImageUseCase(
		bucketStorage,
		location,
		eventPublisher, // Can be nil if NATS disabled
		usecase.UploadImageConfig{
			KeyPrefix:   cfg.Upload.KeyPrefix,
			DefaultName: cfg.Upload.DefaultName,
		},
		log,
	)

	// 7. Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	galleryHandler := handler.NewGalleryHandler(fetchImagesUC, location.Bucket(), log)
	imagesAPIHandler := handler.NewImagesAPIHandler(
		fetchImagesUC,
		uploadImageUC,
		authConfig,
		cfg.Upload.MaxPayloadBytes,
		cfg.Upload.MaxImageBytes,
		log,
	)

	rateLimiter := middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.TrustProxy)
	defer rateLimiter.Stop()

	router := httpInterface.NewRouter(
		galleryHandler,
		imagesAPIHandler,
		authConfig,
		rateLimiter,
		promMetrics,
		log,
	)

	// 8. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Канал для получения сигналов ОС
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		log.Info("Gallery available at http://localhost:" + cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 9. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	// Flush CloudWatch buffers after the last request finished
	if metricsPublisher != nil {
		log.Info("Flushing CloudWatch metrics buffer...")
		if err := metricsPublisher.Flush(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch metrics", err)
		}
	}

	if logsPublisher != nil {
		log.Info("Flushing CloudWatch logs buffer...")
		log.SetLogPublisher(nil)
		if err := logsPublisher.Flush(shutdownCtx); err != nil {
			log.Error("Failed to flush CloudWatch logs", err)
		}
	}

	log.Info("Server stopped gracefully")
}
