// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermal holds the data model shared by the decoding and analysis
// packages: the calibrated temperature grid, display ranges and units.
package thermal

import (
	"fmt"
	"image"
)

// Grid is a dense row-major matrix of calibrated temperatures.
//
// Every cell holds a finite value. Samples the decoder could not make sense
// of are clamped to the sensor range and flagged in Invalid.
type Grid struct {
	Width   int
	Height  int
	Pix     []Kelvin
	Invalid []bool // nil when every sample is valid.
}

// NewGrid returns a zeroed grid.
func NewGrid(w, h int) *Grid {
	if w < 0 || h < 0 {
		panic(fmt.Sprintf("thermal: invalid grid size %dx%d", w, h))
	}
	return &Grid{Width: w, Height: h, Pix: make([]Kelvin, w*h)}
}

// GridFrom wraps values. It panics if len(values) != w*h.
func GridFrom(w, h int, values []Kelvin) *Grid {
	if w < 0 || h < 0 || len(values) != w*h {
		panic(fmt.Sprintf("thermal: %d values for a %dx%d grid", len(values), w, h))
	}
	return &Grid{Width: w, Height: h, Pix: values}
}

// Len is the number of cells.
func (g *Grid) Len() int {
	return len(g.Pix)
}

// Bounds returns the grid rectangle, anchored at (0, 0).
func (g *Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.Width, g.Height)
}

// Index returns the offset of (x, y) in Pix.
func (g *Grid) Index(x, y int) int {
	return y*g.Width + x
}

// At returns the temperature at (x, y).
func (g *Grid) At(x, y int) Kelvin {
	return g.Pix[y*g.Width+x]
}

// Set sets the temperature at (x, y).
func (g *Grid) Set(x, y int, k Kelvin) {
	g.Pix[y*g.Width+x] = k
}

// Clamp returns p moved inside the grid. The grid must not be empty.
func (g *Grid) Clamp(p image.Point) image.Point {
	if p.X < 0 {
		p.X = 0
	} else if p.X >= g.Width {
		p.X = g.Width - 1
	}
	if p.Y < 0 {
		p.Y = 0
	} else if p.Y >= g.Height {
		p.Y = g.Height - 1
	}
	return p
}

// Point returns the coordinate of offset i.
func (g *Grid) Point(i int) image.Point {
	return image.Point{X: i % g.Width, Y: i / g.Width}
}

// IsValid reports whether cell i decoded cleanly.
func (g *Grid) IsValid(i int) bool {
	return g.Invalid == nil || !g.Invalid[i]
}

// MarkInvalid flags cell i.
func (g *Grid) MarkInvalid(i int) {
	if g.Invalid == nil {
		g.Invalid = make([]bool, len(g.Pix))
	}
	g.Invalid[i] = true
}

// InvalidCount returns the number of flagged cells.
func (g *Grid) InvalidCount() int {
	n := 0
	for _, b := range g.Invalid {
		if b {
			n++
		}
	}
	return n
}

// Extrema returns the offsets of the coldest and hottest valid cells.
//
// Ties go to the first cell in row-major order. ok is false when the grid
// has no valid cell.
func (g *Grid) Extrema() (minIdx, maxIdx int, ok bool) {
	minIdx, maxIdx = -1, -1
	for i, v := range g.Pix {
		if !g.IsValid(i) {
			continue
		}
		if minIdx == -1 {
			minIdx, maxIdx = i, i
			continue
		}
		if v < g.Pix[minIdx] {
			minIdx = i
		}
		if v > g.Pix[maxIdx] {
			maxIdx = i
		}
	}
	if minIdx == -1 {
		return 0, 0, false
	}
	return minIdx, maxIdx, true
}

// Observed returns the range spanned by the valid cells. The returned range
// may be degenerate (Min == Max).
func (g *Grid) Observed() (Range, bool) {
	lo, hi, ok := g.Extrema()
	if !ok {
		return Range{}, false
	}
	return Range{Min: g.Pix[lo], Max: g.Pix[hi]}, true
}

// Mean returns the average of the valid cells.
func (g *Grid) Mean() (Kelvin, bool) {
	sum := 0.
	n := 0
	for i, v := range g.Pix {
		if g.IsValid(i) {
			sum += float64(v)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return Kelvin(sum / float64(n)), true
}

// Clone returns a deep copy, used to retain a frozen frame.
func (g *Grid) Clone() *Grid {
	out := &Grid{Width: g.Width, Height: g.Height, Pix: make([]Kelvin, len(g.Pix))}
	copy(out.Pix, g.Pix)
	if g.Invalid != nil {
		out.Invalid = make([]bool, len(g.Invalid))
		copy(out.Invalid, g.Invalid)
	}
	return out
}

// Equal returns true if both grids have the same shape, values and flags.
func (g *Grid) Equal(r *Grid) bool {
	if g.Width != r.Width || g.Height != r.Height || len(g.Pix) != len(r.Pix) {
		return false
	}
	for i := range g.Pix {
		if g.Pix[i] != r.Pix[i] || g.IsValid(i) != r.IsValid(i) {
			return false
		}
	}
	return true
}
