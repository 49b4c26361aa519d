package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/pedro-hbl/fraudshield-stream/internal/metrics"
	"github.com/pedro-hbl/fraudshield-stream/pkg/transactions"
)

// ErrNoData is returned when every bar of a chart would be zero
var ErrNoData = errors.New("no data to chart")

var (
	colorFraud   = drawing.Color{R: 220, G: 53, B: 69, A: 255}
	colorPending = drawing.Color{R: 252, G: 201, B: 100, A: 255}
	colorLegit   = drawing.Color{R: 165, G: 235, B: 91, A: 255}
	colorNeutral = drawing.Color{R: 77, G: 184, B: 255, A: 255}
)

func bar(label string, value float64, color drawing.Color) chart.Value {
	return chart.Value{
		Label: label,
		Value: value,
		Style: chart.Style{
			FillColor:   color,
			StrokeColor: color.WithAlpha(255),
			StrokeWidth: 0,
		},
	}
}

func renderBars(w io.Writer, title string, bars []chart.Value, format func(float64) string) error {
	peak := 0.0
	for _, b := range bars {
		if b.Value > peak {
			peak = b.Value
		}
	}
	if peak == 0 {
		return ErrNoData
	}

	barChart := chart.BarChart{
		Title: title,
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:    800,
		Height:   400,
		BarWidth: 60,
		Bars:     bars,
	}
	barChart.YAxis.Range = &chart.ContinuousRange{Min: 0, Max: peak * 1.1}
	barChart.YAxis.ValueFormatter = func(v interface{}) string {
		if vf, isFloat := v.(float64); isFloat {
			return format(vf)
		}
		return ""
	}

	if err := barChart.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render %q: %w", title, err)
	}
	return nil
}

// StatusChart draws how many generated transactions fell into each status
func StatusChart(w io.Writer, counters map[string]int64) error {
	bars := []chart.Value{
		bar("Fraudulent", float64(counters[metrics.CounterFraud]), colorFraud),
		bar("Pending", float64(counters[metrics.CounterPending]), colorPending),
		bar("Legitimate", float64(counters[metrics.CounterLegitimate]), colorLegit),
		bar("Skipped ticks", float64(counters[metrics.CounterSkipped]), colorNeutral),
	}
	return renderBars(w, "Transactions by Status", bars, func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	})
}

// RiskBandChart draws the risk band distribution of txs
func RiskBandChart(w io.Writer, txs []transactions.Transaction) error {
	counts := map[string]int{}
	for _, tx := range txs {
		counts[transactions.RiskBand(tx.RiskScore)]++
	}

	bars := []chart.Value{
		bar("Low (<30)", float64(counts["low"]), colorLegit),
		bar("Medium (30-69)", float64(counts["medium"]), colorPending),
		bar("High (70+)", float64(counts["high"]), colorFraud),
	}
	return renderBars(w, "Risk Band Distribution", bars, func(v float64) string {
		return fmt.Sprintf("%.0f", v)
	})
}

// LatencyChart draws the average duration of each operation type in a summary
func LatencyChart(w io.Writer, summary map[string]interface{}) error {
	var bars []chart.Value
	for key, v := range summary {
		if !strings.HasSuffix(key, ".avgDuration") {
			continue
		}
		var ns float64
		switch n := v.(type) {
		case int64:
			ns = float64(n)
		case float64:
			ns = n
		default:
			continue
		}
		bars = append(bars, bar(strings.TrimSuffix(key, ".avgDuration"), ns/1e6, colorNeutral))
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Label < bars[j].Label
	})

	return renderBars(w, "Average Operation Latency", bars, func(v float64) string {
		return fmt.Sprintf("%.3f ms", v)
	})
}
