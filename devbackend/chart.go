// ABOUTME: Renders the blood-pressure trend chart embedded in visualizer replies.
// ABOUTME: Produces a PNG data URI the console's formatter turns into a downloadable chart block.
package devbackend

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"hash/fnv"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	chartWidth  = 640
	chartHeight = 320
	chartDays   = 7
)

// readingsFor returns a week of systolic readings that stay stable per user.
func readingsFor(userID string) []float64 {
	h := fnv.New32a()
	h.Write([]byte(userID))
	seed := h.Sum32()
	out := make([]float64, chartDays)
	for i := range out {
		out[i] = 115 + float64((seed>>(i*3))%25)
	}
	return out
}

// TrendChart renders systolic readings as a line chart and returns it as a
// data:image/png;base64 URI.
func TrendChart(systolic []float64) (string, error) {
	if len(systolic) < 2 {
		return "", errors.New("trend chart needs at least two readings")
	}
	days := make([]float64, len(systolic))
	for i := range days {
		days[i] = float64(i + 1)
	}
	blue := drawing.ColorFromHex("3b82f6")
	ch := chart.Chart{
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "day"},
		YAxis:      chart.YAxis{Name: "mmHg"},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "systolic",
				XValues: days,
				YValues: systolic,
				Style:   chart.Style{StrokeColor: blue, StrokeWidth: 2, DotColor: blue, DotWidth: 3},
			},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return "", fmt.Errorf("rendering trend chart: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
