package risk

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/bobmcallan/argus/internal/models"
)

// RenderAnomalyChart renders the close-price series with flagged anomaly
// dates marked as a scatter overlay. Returns raw PNG bytes.
func (s *Service) RenderAnomalyChart(ctx context.Context, ticker string, lookbackDays int) ([]byte, error) {
	if _, err := s.resolveAsset(ctx, ticker); err != nil {
		return nil, err
	}
	if lookbackDays <= 0 {
		lookbackDays = s.lookbackDays
	}

	report := s.detectAnomalies(ctx, ticker, lookbackDays)
	return renderAnomalyChart(ticker, report)
}

func renderAnomalyChart(ticker string, report *models.AnomalyReport) ([]byte, error) {
	if len(report.Series) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(report.Series))
	}

	xValues := make([]time.Time, len(report.Series))
	closeY := make([]float64, len(report.Series))
	closeByDate := make(map[string]float64, len(report.Series))

	for i, p := range report.Series {
		xValues[i] = p.Date
		closeY[i] = p.Close
		closeByDate[p.Date.Format("2006-01-02")] = p.Close
	}

	priceSeries := chart.TimeSeries{
		Name: "Close",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.0,
		},
		XValues: xValues,
		YValues: closeY,
	}

	series := []chart.Series{priceSeries}

	var flagX []time.Time
	var flagY []float64
	for _, f := range report.Flags {
		if c, ok := closeByDate[f.Date.Format("2006-01-02")]; ok {
			flagX = append(flagX, f.Date)
			flagY = append(flagY, c)
		}
	}
	if len(flagX) > 0 {
		series = append(series, chart.TimeSeries{
			Name: "Anomalies",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    5,
				DotColor:    drawing.ColorFromHex("dc2626"), // red-600
			},
			XValues: flagX,
			YValues: flagY,
		})
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s price anomalies (score %.1f)", ticker, report.AnomalyScore),
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 02")
				}
				return ""
			},
		},
		Series: series,
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}
