// Package chart renders the statistics dashboard as a PNG image.
package chart

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/trezcool/libkiosk/core/stats"
	"github.com/trezcool/libkiosk/core/student"
)

const (
	Width  = 960
	Height = 540

	// MaxTrendPoints is the number of most recent days drawn on the trend chart.
	MaxTrendPoints = 14

	headerHeight = 48
	panelPadding = 16
	axisHeight   = 20
	labelHeight  = 16
)

var (
	background = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	panelBG    = color.NRGBA{R: 0xf3, G: 0xf8, B: 0xf4, A: 0xff}
	textColor  = color.NRGBA{R: 0x22, G: 0x22, B: 0x22, A: 0xff}
	axisColor  = color.NRGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}

	TrendColor  = color.NRGBA{R: 0x3a, G: 0x8c, B: 0x4b, A: 0xff}
	MaleColor   = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	FemaleColor = color.NRGBA{R: 0xec, G: 0x48, B: 0x99, A: 0xff}
)

// Dashboard holds the data drawn on the dashboard image.
type Dashboard struct {
	Title     string
	Trend     []stats.TrendPoint
	Breakdown stats.Breakdown
}

// Render draws d and writes it to w as a PNG.
func Render(w io.Writer, d Dashboard) error {
	return errors.Wrap(imaging.Encode(w, Draw(d), imaging.PNG), "encoding dashboard")
}

// Draw returns the dashboard image: a title strip over the daily trend and the per-grade
// male/female breakdown, side by side.
func Draw(d Dashboard) *image.NRGBA {
	canvas := imaging.New(Width, Height, background)
	drawText(canvas, d.Title, panelPadding, 30, textColor)

	panelW := (Width - 3*panelPadding) / 2
	panelH := Height - headerHeight - panelPadding

	trend := d.Trend
	if len(trend) > MaxTrendPoints {
		trend = trend[len(trend)-MaxTrendPoints:]
	}
	canvas = imaging.Paste(canvas, trendPanel(trend, panelW, panelH), image.Pt(panelPadding, headerHeight))
	canvas = imaging.Paste(canvas, breakdownPanel(d.Breakdown, panelW, panelH), image.Pt(2*panelPadding+panelW, headerHeight))
	return canvas
}

func trendPanel(points []stats.TrendPoint, w, h int) *image.NRGBA {
	panel := imaging.New(w, h, panelBG)
	drawText(panel, "Daily visits", panelPadding, labelHeight, textColor)

	values := make([]int, len(points))
	for i, p := range points {
		values[i] = p.Visits
	}
	plot := plotArea(w, h)
	fillRect(panel, image.Rect(plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y+1), axisColor)
	if len(points) == 0 {
		drawText(panel, "no data", plot.Min.X, plot.Min.Y+plot.Dy()/2, axisColor)
		return panel
	}

	slot := plot.Dx() / len(points)
	peak := maxOf(values...)
	for i, p := range points {
		x := plot.Min.X + i*slot
		fillRect(panel, Bar(x+slot/6, x+slot-slot/6, plot.Max.Y, p.Visits, peak, plot.Dy()), TrendColor)
		drawText(panel, fmt.Sprint(p.Visits), x+slot/4, plot.Max.Y-barHeight(p.Visits, peak, plot.Dy())-4, textColor)
		if len(p.Date) >= 10 {
			drawText(panel, p.Date[8:10], x+slot/4, plot.Max.Y+axisHeight-4, textColor) // day of month
		}
	}
	return panel
}

func breakdownPanel(b stats.Breakdown, w, h int) *image.NRGBA {
	panel := imaging.New(w, h, panelBG)
	drawText(panel, "Visits by grade", panelPadding, labelHeight, textColor)
	drawText(panel, "Male", w-110, labelHeight, MaleColor)
	drawText(panel, "Female", w-70, labelHeight, FemaleColor)

	plot := plotArea(w, h)
	fillRect(panel, image.Rect(plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y+1), axisColor)

	values := make([]int, 0, 2*len(student.Grades))
	for _, g := range student.Grades {
		values = append(values, b[g].Male, b[g].Female)
	}
	peak := maxOf(values...)

	slot := plot.Dx() / len(student.Grades)
	for i, g := range student.Grades {
		x := plot.Min.X + i*slot
		mid := x + slot/2
		c := b[g]
		fillRect(panel, Bar(x+slot/8, mid, plot.Max.Y, c.Male, peak, plot.Dy()), MaleColor)
		fillRect(panel, Bar(mid, x+slot-slot/8, plot.Max.Y, c.Female, peak, plot.Dy()), FemaleColor)
		drawText(panel, "Grade "+string(g), x+slot/4, plot.Max.Y+axisHeight-4, textColor)
	}
	return panel
}

func plotArea(w, h int) image.Rectangle {
	return image.Rect(panelPadding, 2*labelHeight+panelPadding, w-panelPadding, h-axisHeight-panelPadding)
}

func barHeight(v, peak, height int) int {
	if peak <= 0 || v <= 0 {
		return 0
	}
	return v * height / peak
}

// Bar returns the rectangle of a bar of value v standing on baseline, scaled so that peak fills height.
func Bar(x0, x1, baseline, v, peak, height int) image.Rectangle {
	return image.Rect(x0, baseline-barHeight(v, peak, height), x1, baseline)
}

func maxOf(values ...int) int {
	peak := 0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	return peak
}

func fillRect(img draw.Image, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func drawText(img draw.Image, text string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
