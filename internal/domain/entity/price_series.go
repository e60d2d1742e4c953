package entity

import (
	"sort"
	"time"
)

// PricePoint - цена закрытия тикера за один торговый день.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceSeries - дневные цены закрытия одного тикера.
// Точки упорядочены по возрастанию даты.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// NewPriceSeries создает серию и сортирует точки по дате.
func NewPriceSeries(symbol string, points []PricePoint) PriceSeries {
	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return PriceSeries{Symbol: symbol, Points: sorted}
}

// Between возвращает точки в интервале [from, to] включительно.
func (s PriceSeries) Between(from, to time.Time) PriceSeries {
	points := make([]PricePoint, 0, len(s.Points))
	for _, point := range s.Points {
		if point.Date.Before(from) || point.Date.After(to) {
			continue
		}
		points = append(points, point)
	}
	return PriceSeries{Symbol: s.Symbol, Points: points}
}

func (s PriceSeries) IsEmpty() bool {
	return len(s.Points) == 0
}
