package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/image-gallery/internal/application/port"
	"github.com/dreschagin/image-gallery/internal/domain/entity"
	"github.com/dreschagin/image-gallery/pkg/logger"
)

// ErrNoPriceData возвращается, когда ни по одному тикеру нет данных.
var ErrNoPriceData = errors.New("no price data available")

const defaultChartTitle = "Historical Stock Prices of Major Banks and Hedge Funds"

type PublishStockChartConfig struct {
	Symbols      []string
	RequestPause time.Duration
	LookbackDays int
	ChartName    string
	Title        string
}

type PublishStockChartResult struct {
	Key     string
	URL     string
	Plotted []string
	Skipped []string
}

// PublishStockChartUseCase собирает котировки, рисует график и загружает его в бакет.
type PublishStockChartUseCase struct {
	provider port.MarketDataProvider
	renderer port.ChartRenderer
	uploader *UploadImageUseCase
	config   PublishStockChartConfig
	logger   *logger.Logger

	now  func() time.Time
	wait func(ctx context.Context, d time.Duration) error
}

func NewPublishStockChartUseCase(
	provider port.MarketDataProvider,
	renderer port.ChartRenderer,
	uploader *UploadImageUseCase,
	config PublishStockChartConfig,
	log *logger.Logger,
) *PublishStockChartUseCase {
	if config.LookbackDays <= 0 {
		config.LookbackDays = 365
	}
	if config.RequestPause < 0 {
		config.RequestPause = 0
	}
	if strings.TrimSpace(config.ChartName) == "" {
		config.ChartName = "stock_prices"
	}
	if strings.TrimSpace(config.Title) == "" {
		config.Title = defaultChartTitle
	}
	return &PublishStockChartUseCase{
		provider: provider,
		renderer: renderer,
		uploader: uploader,
		config:   config,
		logger:   log,
		now:      time.Now,
		wait:     sleepContext,
	}
}

// Execute последовательно запрашивает тикеры с паузой между запросами.
// Тикеры с ошибкой или без данных за период пропускаются.
func (uc *PublishStockChartUseCase) Execute(ctx context.Context) (*PublishStockChartResult, error) {
	if uc.provider == nil || uc.renderer == nil || uc.uploader == nil {
		return nil, fmt.Errorf("stock chart pipeline is not configured")
	}

	end := uc.now().UTC()
	start := end.AddDate(0, 0, -uc.config.LookbackDays)
	result := &PublishStockChartResult{}

	series := make([]entity.PriceSeries, 0, len(uc.config.Symbols))
	for i, symbol := range uc.config.Symbols {
		if i > 0 && uc.config.RequestPause > 0 {
			if err := uc.wait(ctx, uc.config.RequestPause); err != nil {
				return nil, err
			}
		}

		points, err := uc.provider.DailyCloses(ctx, symbol)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			uc.logError("Error fetching data for symbol", err, "symbol", symbol)
			result.Skipped = append(result.Skipped, symbol)
			continue
		}

		window := entity.NewPriceSeries(symbol, points).Between(start, end)
		if window.IsEmpty() {
			uc.logWarn("No data available for symbol", "symbol", symbol)
			result.Skipped = append(result.Skipped, symbol)
			continue
		}

		uc.logInfo("Fetched data for symbol", "symbol", symbol, "points", len(window.Points))
		series = append(series, window)
		result.Plotted = append(result.Plotted, symbol)
	}

	if len(series) == 0 {
		uc.logWarn("No data available to plot or upload", "symbols", len(uc.config.Symbols))
		return nil, ErrNoPriceData
	}

	image, err := uc.renderer.RenderPNG(uc.config.Title, series)
	if err != nil {
		return nil, fmt.Errorf("failed to render stock chart: %w", err)
	}

	upload, err := uc.uploader.Execute(ctx, UploadImageCommand{
		Name:        uc.config.ChartName,
		ContentType: "image/png",
		Data:        image,
		CapturedAt:  end,
	})
	if err != nil {
		return nil, err
	}

	uc.logInfo("Plot successfully uploaded to S3", "key", upload.Key, "url", upload.URL)

	result.Key = upload.Key
	result.URL = upload.URL
	return result, nil
}

func (uc *PublishStockChartUseCase) logInfo(msg string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Info(msg, args...)
	}
}

func (uc *PublishStockChartUseCase) logWarn(msg string, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Warn(msg, args...)
	}
}

func (uc *PublishStockChartUseCase) logError(msg string, err error, args ...interface{}) {
	if uc.logger != nil {
		uc.logger.Error(msg, err, args...)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
