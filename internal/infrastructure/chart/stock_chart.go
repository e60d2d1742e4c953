package chart

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/dreschagin/image-gallery/internal/application/port"
	"github.com/dreschagin/image-gallery/internal/domain/entity"
)

var _ port.ChartRenderer = (*StockChartRenderer)(nil)

// StockChartRenderer draws closing price series as a multi-line PNG chart.
type StockChartRenderer struct {
	width  vg.Length
	height vg.Length
}

// NewStockChartRenderer returns a renderer producing 12x6 inch images.
func NewStockChartRenderer() *StockChartRenderer {
	return &StockChartRenderer{width: 12 * vg.Inch, height: 6 * vg.Inch}
}

func (r *StockChartRenderer) RenderPNG(title string, series []entity.PriceSeries) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no series to render")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Closing Price (USD)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if s.IsEmpty() {
			continue
		}

		xys := make(plotter.XYs, len(s.Points))
		for j, point := range s.Points {
			xys[j].X = float64(point.Date.Unix())
			xys[j].Y = point.Close
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("failed to build line for %s: %w", s.Symbol, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)

		p.Add(line)
		p.Legend.Add(s.Symbol, line)
	}

	writer, err := p.WriterTo(r.width, r.height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create png canvas: %w", err)
	}

	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}

	return buf.Bytes(), nil
}
