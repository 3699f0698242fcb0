// Package chart renders spending aggregates as PNG images.
package chart

import (
	"errors"
	"fmt"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/finance-concierge/internal/analytics"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

// CategoryPie draws the category breakdown as a pie chart.
func CategoryPie(breakdown []analytics.CategorySpend, title string) ([]byte, error) {
	values := make([]float64, 0, len(breakdown))
	names := make([]string, 0, len(breakdown))
	for _, row := range breakdown {
		if !row.Total.IsPositive() {
			continue
		}
		values = append(values, row.Total.InexactFloat64())
		names = append(names, row.Name)
	}
	if len(values) == 0 {
		return nil, ErrNoData
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}
	return render(p)
}

// DailyLine draws a daily series as a line chart, one x label per day.
func DailyLine(points []analytics.DailyPoint, title string) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	values := make([]float64, len(points))
	labels := make([]string, len(points))
	for i, pt := range points {
		values[i] = pt.Total.InexactFloat64()
		labels[i] = pt.Date.Format("Jan 2")
	}

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.XAxisLabelsOptionFunc(labels),
		charts.LegendLabelsOptionFunc([]string{"Spend"}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}
	return render(p)
}

func render(p *charts.Painter) ([]byte, error) {
	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}
