package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var palette = []drawing.Color{
	{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff},
	{R: 0xf5, G: 0x9e, B: 0x0b, A: 0xff},
	{R: 0x10, G: 0xb9, B: 0x81, A: 0xff},
	{R: 0x6b, G: 0x72, B: 0x80, A: 0xff},
	{R: 0x8b, G: 0x5c, B: 0xf6, A: 0xff},
	{R: 0xef, G: 0x44, B: 0x44, A: 0xff},
}

// StatusChart renders the status distribution as a doughnut chart.
func StatusChart(buckets []Bucket) ([]byte, error) {
	values := chartValues(buckets)
	if len(values) == 0 {
		return nil, fmt.Errorf("no status data to chart")
	}
	pie := chart.DonutChart{
		Title:  "Tickets by Status",
		Width:  640,
		Height: 480,
		Values: values,
	}
	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render status chart: %w", err)
	}
	return buf.Bytes(), nil
}

// UnitChart renders the per-unit distribution as a bar chart.
func UnitChart(buckets []Bucket) ([]byte, error) {
	bars := chartValues(buckets)
	if len(bars) == 0 {
		return nil, fmt.Errorf("no unit data to chart")
	}
	bar := chart.BarChart{
		Title:    "Tickets by Unit",
		Width:    640,
		Height:   480,
		BarWidth: 60,
		Bars:     bars,
		XAxis:    chart.Style{FontSize: 8},
	}
	var buf bytes.Buffer
	if err := bar.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render unit chart: %w", err)
	}
	return buf.Bytes(), nil
}

// TrendChart renders the created/closed series over the trend window.
func TrendChart(points []TrendPoint) ([]byte, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("no trend data to chart")
	}
	xs := make([]float64, len(points))
	created := make([]float64, len(points))
	closed := make([]float64, len(points))
	ticks := make([]chart.Tick, len(points))
	for i, p := range points {
		xs[i] = float64(i)
		created[i] = float64(p.Created)
		closed[i] = float64(p.Closed)
		ticks[i] = chart.Tick{Value: float64(i), Label: p.Weekday}
	}

	graph := chart.Chart{
		Title:  "Ticket Trends",
		Width:  800,
		Height: 400,
		XAxis:  chart.XAxis{Ticks: ticks},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Created",
				XValues: xs,
				YValues: created,
				Style:   chart.Style{StrokeColor: palette[0], StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "Closed",
				XValues: xs,
				YValues: closed,
				Style:   chart.Style{StrokeColor: palette[2], StrokeWidth: 2},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render trend chart: %w", err)
	}
	return buf.Bytes(), nil
}

func chartValues(buckets []Bucket) []chart.Value {
	values := make([]chart.Value, 0, len(buckets))
	for i, bucket := range buckets {
		if bucket.Count == 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s (%d)", bucket.Label, bucket.Count),
			Value: float64(bucket.Count),
			Style: chart.Style{FillColor: palette[i%len(palette)], StrokeColor: palette[i%len(palette)]},
		})
	}
	return values
}
