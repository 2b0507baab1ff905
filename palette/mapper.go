// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package palette

import (
	"image"
	"image/color"

	"github.com/maruel/go-thermal/thermal"
)

// LUTSize is the resolution of the Mapper lookup table.
const LUTSize = 256

// Mapper maps temperatures to colors through a precomputed lookup table.
//
// The zero value uses Iron with the identity curve. It is not safe for
// concurrent use.
type Mapper struct {
	gradient Gradient
	curve    Curve
	lut      [LUTSize]color.RGBA
	built    bool
}

// NewMapper returns a Mapper using g.
func NewMapper(g Gradient) *Mapper {
	m := &Mapper{}
	m.SetGradient(g)
	return m
}

// Gradient returns the selected gradient.
func (m *Mapper) Gradient() Gradient {
	m.ensure()
	return m.gradient
}

// Curve returns the selected dynamic range curve.
func (m *Mapper) Curve() Curve {
	return Curve{points: m.curve.Points()}
}

// SetGradient selects g and rebuilds the table.
func (m *Mapper) SetGradient(g Gradient) {
	m.gradient = Gradient{Name: g.Name, Stops: append([]Stop(nil), g.Stops...)}
	m.rebuild()
}

// SetCurve selects c and rebuilds the table.
func (m *Mapper) SetCurve(c Curve) {
	m.curve = Curve{points: c.Points()}
	if len(m.gradient.Stops) == 0 {
		m.gradient = Iron
	}
	m.rebuild()
}

// ColorAt returns the color of t when r is mapped onto the gradient.
// Temperatures outside r saturate to the end colors.
func (m *Mapper) ColorAt(t thermal.Kelvin, r thermal.Range) color.RGBA {
	m.ensure()
	return m.lut[index(r.Factor(t))]
}

// Render maps every cell of g. The returned image has the grid's bounds.
func (m *Mapper) Render(g *thermal.Grid, r thermal.Range) *image.RGBA {
	m.ensure()
	img := image.NewRGBA(g.Bounds())
	for i, t := range g.Pix {
		c := m.lut[index(r.Factor(t))]
		o := 4 * i
		img.Pix[o] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = c.A
	}
	return img
}

// Table returns a copy of the lookup table, from the coldest to the warmest
// color.
func (m *Mapper) Table() [LUTSize]color.RGBA {
	m.ensure()
	return m.lut
}

//

func (m *Mapper) ensure() {
	if !m.built {
		m.SetGradient(Iron)
	}
}

func (m *Mapper) rebuild() {
	for i := range m.lut {
		m.lut[i] = m.gradient.At(m.curve.Value(float64(i) / (LUTSize - 1)))
	}
	m.built = true
}

// index clamps f to [0, 1] and returns the nearest table entry.
func index(f float64) int {
	if !(f > 0) {
		return 0
	}
	if f >= 1 {
		return LUTSize - 1
	}
	return int(f*(LUTSize-1) + 0.5)
}
