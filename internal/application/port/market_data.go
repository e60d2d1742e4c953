package port

import (
	"context"

	"github.com/dreschagin/image-gallery/internal/domain/entity"
)

// MarketDataProvider отдает историю дневных цен закрытия по тикеру.
type MarketDataProvider interface {
	DailyCloses(ctx context.Context, symbol string) ([]entity.PricePoint, error)
}

// ChartRenderer рисует несколько серий на одном графике и возвращает PNG.
type ChartRenderer interface {
	RenderPNG(title string, series []entity.PriceSeries) ([]byte, error)
}
