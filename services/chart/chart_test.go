package chart

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/libkiosk/core/stats"
	"github.com/trezcool/libkiosk/core/student"
)

func TestBar(t *testing.T) {
	tests := []struct {
		name       string
		v, peak    int
		wantHeight int
	}{
		{name: "peak fills height", v: 10, peak: 10, wantHeight: 100},
		{name: "half", v: 5, peak: 10, wantHeight: 50},
		{name: "zero", v: 0, peak: 10, wantHeight: 0},
		{name: "no data", v: 0, peak: 0, wantHeight: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Bar(10, 20, 200, tt.v, tt.peak, 100)
			assert.Equal(t, tt.wantHeight, r.Dy())
			assert.Equal(t, 200, r.Max.Y)
			assert.Equal(t, 10, r.Dx())
		})
	}
}

func TestRender(t *testing.T) {
	dashboards := map[string]Dashboard{
		"empty": {Title: "Library Kiosk"},
		"full": {
			Title: "Library Kiosk",
			Trend: []stats.TrendPoint{{Date: "2024-05-14", Visits: 3}, {Date: "2024-05-15", Visits: 8}},
			Breakdown: stats.Breakdown{
				student.Grade7:  {Male: 2, Female: 1},
				student.Grade10: {Female: 4},
			},
		},
	}
	for name, d := range dashboards {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, d))

			img, err := png.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, Width, Height), img.Bounds())
		})
	}
}

func TestDraw_trendBars(t *testing.T) {
	points := make([]stats.TrendPoint, 20)
	for i := range points {
		points[i] = stats.TrendPoint{Date: "2024-05-01", Visits: 1}
	}
	img := Draw(Dashboard{Trend: points})

	// the tallest bar reaches the top of the plot area of the trend panel
	plot := plotArea((Width-3*panelPadding)/2, Height-headerHeight-panelPadding)
	slot := plot.Dx() / MaxTrendPoints
	x := panelPadding + plot.Min.X + slot/2
	y := headerHeight + plot.Min.Y + 1
	assert.Equal(t, color.NRGBAModel.Convert(TrendColor), img.At(x, y))
}
