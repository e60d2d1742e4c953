package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dreschagin/image-gallery/internal/application/usecase"
	"github.com/dreschagin/image-gallery/internal/domain/entity"
	"github.com/dreschagin/image-gallery/internal/domain/valueobject"
	s3storage "github.com/dreschagin/image-gallery/internal/infrastructure/storage/s3"
	"github.com/dreschagin/image-gallery/pkg/config"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

type listFlags struct {
	Timeout  time.Duration
	LogLevel string
	Pretty   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:          "list-images",
		Short:        "List images in the configured S3 bucket, newest first",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			level := cfg.LogLevel
			if flags.LogLevel != "" {
				level = flags.LogLevel
			}
			// stdout carries only the JSON result
			log := logger.NewWithWriter(level, cmd.ErrOrStderr())

			location, err := valueobject.NewBucketLocation(cfg.S3.Bucket, cfg.S3.Region)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), flags.Timeout)
			defer cancel()

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

			images := usecase.NewFetchImagesUseCase(storage, location, log).FetchImages(ctx)
			return writeImages(cmd.OutOrStdout(), images, flags.Pretty)
		},
	}

	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 30*time.Second, "Listing timeout")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&flags.Pretty, "pretty", false, "Indent JSON output")

	return cmd
}

type imageJSON struct {
	URL          string    `json:"url"`
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
}

func writeImages(w io.Writer, images []entity.ImageDescriptor, pretty bool) error {
	out := make([]imageJSON, 0, len(images))
	for _, image := range images {
		out = append(out, imageJSON{
			URL:          image.URL,
			Key:          image.Key,
			LastModified: image.LastModified,
		})
	}

	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(out)
}
