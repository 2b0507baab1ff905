// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render draws published snapshots for humans: the false color image
// with its markers, the marker history chart and the histogram chart.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sort"
	"time"

	"github.com/maruel/go-thermal/marker"
	"github.com/maruel/go-thermal/pipeline"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrNoData is returned when a chart has nothing to plot yet.
var ErrNoData = errors.New("render: not enough data")

var (
	minColor  = color.RGBA{0, 160, 255, 255}
	maxColor  = color.RGBA{255, 40, 40, 255}
	userColor = color.RGBA{255, 255, 255, 255}
	shadow    = color.RGBA{0, 0, 0, 180}
)

// Overlay returns a copy of the snapshot image enlarged scale times with a
// crosshair and a label for every reading.
func Overlay(snap *pipeline.Snapshot, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	src := snap.Image
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	for y := 0; y < dst.Rect.Dy(); y++ {
		for x := 0; x < dst.Rect.Dx(); x++ {
			dst.SetRGBA(x, y, src.RGBAAt(b.Min.X+x/scale, b.Min.Y+y/scale))
		}
	}
	for _, m := range snap.Markers {
		r, ok := snap.Readings[m.ID]
		if !ok {
			continue
		}
		c := markerColor(m.Kind)
		center := image.Pt(r.Pos.X*scale+scale/2, r.Pos.Y*scale+scale/2)
		crosshair(dst, center, 3+scale, c)
		label := snap.Unit.Format(r.Temp)
		if m.Label != "" {
			label = m.Label + " " + label
		}
		text(dst, center.Add(image.Pt(4+scale, -2)), label, c)
	}
	return dst
}

func markerColor(k marker.Kind) color.RGBA {
	switch k {
	case marker.Min:
		return minColor
	case marker.Max:
		return maxColor
	default:
		return userColor
	}
}

func crosshair(dst *image.RGBA, p image.Point, size int, c color.RGBA) {
	for d := -size; d <= size; d++ {
		if d > -2 && d < 2 {
			continue
		}
		dst.SetRGBA(p.X+d, p.Y, c)
		dst.SetRGBA(p.X, p.Y+d, c)
	}
}

// text draws s with its baseline starting at p, kept inside dst.
func text(dst *image.RGBA, p image.Point, s string, c color.RGBA) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(shadow), Face: face}
	w := d.MeasureString(s).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	b := dst.Bounds()
	if p.X+w > b.Max.X {
		p.X = b.Max.X - w
	}
	if p.X < b.Min.X {
		p.X = b.Min.X
	}
	if p.Y-ascent < b.Min.Y {
		p.Y = b.Min.Y + ascent
	}
	if p.Y > b.Max.Y-2 {
		p.Y = b.Max.Y - 2
	}
	d.Dot = fixed.P(p.X+1, p.Y+1)
	d.DrawString(s)
	d.Src = image.NewUniform(c)
	d.Dot = fixed.P(p.X, p.Y)
	d.DrawString(s)
}

// HistoryChart writes a PNG chart of every marker's history, in the snapshot
// display unit.
func HistoryChart(w io.Writer, snap *pipeline.Snapshot, width, height int) error {
	names := labels(snap)
	var series []chart.Series
	var lo, hi float64
	var first, last time.Time
	for i, m := range snap.Markers {
		h := snap.History[m.ID]
		if len(h) < 2 {
			continue
		}
		ts := chart.TimeSeries{
			Name:    names[m.ID],
			XValues: make([]time.Time, len(h)),
			YValues: make([]float64, len(h)),
			Style:   lineStyle(i, m.Kind),
		}
		for j, r := range h {
			v := snap.Unit.FromKelvin(r.Temp)
			ts.XValues[j] = r.Time
			ts.YValues[j] = v
			if len(series) == 0 && j == 0 {
				lo, hi = v, v
			}
			lo = min(lo, v)
			hi = max(hi, v)
		}
		if first.IsZero() || h[0].Time.Before(first) {
			first = h[0].Time
		}
		if h[len(h)-1].Time.After(last) {
			last = h[len(h)-1].Time
		}
		series = append(series, ts)
	}
	if len(series) == 0 || !last.After(first) {
		return ErrNoData
	}
	if hi-lo < 1 {
		lo -= 0.5
		hi += 0.5
	}
	ch := chart.Chart{
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 12}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeValueFormatterWithFormat("15:04:05")},
		YAxis:      chart.YAxis{Name: snap.Unit.Suffix(), Range: &chart.ContinuousRange{Min: lo, Max: hi}},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}

// HistogramChart writes a PNG chart of the snapshot histogram. The X axis is
// the temperature in the display unit and the Y axis the percentage of all
// cells in each bucket.
func HistogramChart(w io.Writer, snap *pipeline.Snapshot, width, height int) error {
	if len(snap.Histogram) == 0 {
		return ErrNoData
	}
	// Each bucket is drawn as a step so a single bucket still has a width.
	xs := make([]float64, 0, 2*len(snap.Histogram))
	ys := make([]float64, 0, 2*len(snap.Histogram))
	top := 1.
	for _, b := range snap.Histogram {
		pct := b.Fraction * 100
		xs = append(xs, snap.Unit.FromKelvin(b.Low), snap.Unit.FromKelvin(b.High))
		ys = append(ys, pct, pct)
		top = max(top, pct)
	}
	if xs[len(xs)-1] <= xs[0] {
		return ErrNoData
	}
	ch := chart.Chart{
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 12}},
		XAxis:      chart.XAxis{Name: snap.Unit.Suffix()},
		YAxis:      chart.YAxis{Name: "%", Range: &chart.ContinuousRange{Min: 0, Max: top}},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("%d buckets", len(snap.Histogram)),
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: chart.ColorBlue,
					StrokeWidth: 1,
					FillColor:   chart.ColorBlue.WithAlpha(100),
				},
			},
		},
	}
	return ch.Render(chart.PNG, w)
}

// labels returns a unique legend entry per marker.
func labels(snap *pipeline.Snapshot) map[marker.ID]string {
	out := make(map[marker.ID]string, len(snap.Markers))
	seen := map[string]int{}
	for _, m := range snap.Markers {
		l := m.Label
		if l == "" {
			l = m.Kind.String()
		}
		if seen[l]++; seen[l] > 1 {
			l = fmt.Sprintf("%s #%d", l, seen[l])
		}
		out[m.ID] = l
	}
	return out
}

func lineStyle(i int, k marker.Kind) chart.Style {
	c := chart.GetDefaultColor(i)
	switch k {
	case marker.Min:
		c = toDrawing(minColor)
	case marker.Max:
		c = toDrawing(maxColor)
	}
	return chart.Style{StrokeColor: c, StrokeWidth: 2}
}

func toDrawing(c color.RGBA) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

// Legend returns the markers sorted by label, with their latest reading
// formatted in the display unit.
func Legend(snap *pipeline.Snapshot) [][2]string {
	names := labels(snap)
	var out [][2]string
	for _, m := range snap.Markers {
		if r, ok := snap.Readings[m.ID]; ok {
			out = append(out, [2]string{names[m.ID], fmt.Sprintf("%s @ %d,%d", snap.Unit.Format(r.Temp), r.Pos.X, r.Pos.Y)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
