package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	applicationPort "github.com/dreschagin/image-gallery/internal/application/port"
	"github.com/dreschagin/image-gallery/internal/application/usecase"
	"github.com/dreschagin/image-gallery/internal/domain/valueobject"
	"github.com/dreschagin/image-gallery/internal/infrastructure/chart"
	"github.com/dreschagin/image-gallery/internal/infrastructure/marketdata/alphavantage"
	natsInfra "github.com/dreschagin/image-gallery/internal/infrastructure/messaging/nats"
	s3storage "github.com/dreschagin/image-gallery/internal/infrastructure/storage/s3"
	"github.com/dreschagin/image-gallery/pkg/config"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

type chartFlags struct {
	Symbols  []string
	Pause    time.Duration
	Days     int
	Timeout  time.Duration
	LogLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &chartFlags{}

	cmd := &cobra.Command{
		Use:          "stock-chart",
		Short:        "Fetch daily closes from Alpha Vantage, plot them and upload the PNG to S3",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.StockChart.APIKey == "" {
				return fmt.Errorf("ALPHA_VANTAGE_API_KEY is required")
			}
			applyFlagOverrides(cmd, flags, &cfg.StockChart)

			level := cfg.LogLevel
			if flags.LogLevel != "" {
				level = flags.LogLevel
			}
			// stdout carries only the JSON result
			log := logger.NewWithWriter(level, cmd.ErrOrStderr())

			ctx, cancel := context.WithTimeout(cmd.Context(), flags.Timeout)
			defer cancel()

			// 1. Bucket storage
			location, err := valueobject.NewBucketLocation(cfg.S3.Bucket, cfg.S3.Region)
			if err != nil {
				return err
			}
			storage, err := s3storage.NewBucketStorage(ctx, s3storage.Config{
				Bucket:          cfg.S3.Bucket,
				Region:          cfg.S3.Region,
				Endpoint:        cfg.S3.Endpoint,
				AccessKeyID:     cfg.S3.AccessKeyID,
				SecretAccessKey: cfg.S3.SecretAccessKey,
				UsePathStyle:    cfg.S3.UsePathStyle,
			})
			if err != nil {
				return fmt.Errorf("failed to initialize S3 bucket storage: %w", err)
			}

			// 2. Market data
			provider, err := alphavantage.NewClient(alphavantage.Config{
				BaseURL: cfg.StockChart.BaseURL,
				APIKey:  cfg.StockChart.APIKey,
			})
			if err != nil {
				return err
			}

			// 3. Опциональная публикация событий
			var eventPublisher applicationPort.EventPublisher
			if cfg.NATS.Enabled {
				publisherImpl, initErr := natsInfra.NewNATSPublisher(cfg.NATS.URL, log)
				if initErr != nil {
					log.Warn("Failed to connect to NATS, continuing without event publishing", "error", initErr.Error())
				} else {
					eventPublisher = publisherImpl
					defer eventPublisher.Close()
				}
			}

			// 4. Use cases
			uploadUC := usecase.NewUploadImageUseCase(storage, location, eventPublisher, usecase.UploadImageConfig{
				KeyPrefix:   cfg.Upload.KeyPrefix,
				DefaultName: cfg.Upload.DefaultName,
			}, log)
			publishUC := usecase.NewPublishStockChartUseCase(provider, chart.NewStockChartRenderer(), uploadUC, usecase.PublishStockChartConfig{
				Symbols:      cfg.StockChart.Symbols,
				RequestPause: cfg.StockChart.RequestPause,
				LookbackDays: cfg.StockChart.LookbackDays,
			}, log)

			log.Info("Generating stock chart",
				"symbols", len(cfg.StockChart.Symbols),
				"pause", cfg.StockChart.RequestPause.String(),
				"days", cfg.StockChart.LookbackDays,
			)

			result, err := publishUC.Execute(ctx)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringSliceVar(&flags.Symbols, "symbols", nil, "Ticker symbols to plot (default from STOCK_SYMBOLS)")
	cmd.Flags().DurationVar(&flags.Pause, "pause", 0, "Pause between Alpha Vantage requests (default from STOCK_REQUEST_PAUSE)")
	cmd.Flags().IntVar(&flags.Days, "days", 0, "Days of history to plot (default from STOCK_LOOKBACK_DAYS)")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 10*time.Minute, "Overall timeout")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return cmd
}

func applyFlagOverrides(cmd *cobra.Command, flags *chartFlags, cfg *config.StockChartConfig) {
	if cmd.Flags().Changed("symbols") {
		cfg.Symbols = flags.Symbols
	}
	if cmd.Flags().Changed("pause") {
		cfg.RequestPause = flags.Pause
	}
	if cmd.Flags().Changed("days") {
		cfg.LookbackDays = flags.Days
	}
}

type resultJSON struct {
	Key     string   `json:"key"`
	URL     string   `json:"url"`
	Plotted []string `json:"plotted"`
	Skipped []string `json:"skipped"`
}

func writeResult(w io.Writer, result *usecase.PublishStockChartResult) error {
	out := resultJSON{
		Key:     result.Key,
		URL:     result.URL,
		Plotted: append([]string{}, result.Plotted...),
		Skipped: append([]string{}, result.Skipped...),
	}
	return json.NewEncoder(w).Encode(out)
}
