// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package palette maps temperatures to colors.
//
// A Gradient is a list of color stops over [0, 1]. A Mapper precomputes a
// lookup table from the selected gradient and dynamic range curve so that
// mapping a whole grid costs one table lookup per cell.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Stop is one color anchor of a Gradient.
type Stop struct {
	Pos   float64
	Color color.RGBA
}

// Gradient is a named, ordered sequence of color stops. Use NewGradient to
// create one; a Gradient is immutable once created.
type Gradient struct {
	Name  string
	Stops []Stop
}

// ErrInvalidGradient is returned by NewGradient.
var ErrInvalidGradient = errors.New("palette: invalid gradient")

// NewGradient validates and sorts stops by position. Positions must be
// finite and within [0, 1].
func NewGradient(name string, stops ...Stop) (Gradient, error) {
	if name == "" {
		return Gradient{}, fmt.Errorf("%w: empty name", ErrInvalidGradient)
	}
	if len(stops) == 0 {
		return Gradient{}, fmt.Errorf("%w: %q has no stop", ErrInvalidGradient, name)
	}
	s := make([]Stop, len(stops))
	copy(s, stops)
	for _, p := range s {
		if math.IsNaN(p.Pos) || p.Pos < 0 || p.Pos > 1 {
			return Gradient{}, fmt.Errorf("%w: %q has stop at %g", ErrInvalidGradient, name, p.Pos)
		}
	}
	sort.SliceStable(s, func(i, j int) bool { return s[i].Pos < s[j].Pos })
	return Gradient{Name: name, Stops: s}, nil
}

// At returns the color at pos, interpolating linearly between the two
// bracketing stops. Positions outside the stops saturate to the end colors.
func (g *Gradient) At(pos float64) color.RGBA {
	if len(g.Stops) == 0 {
		return color.RGBA{A: 255}
	}
	first := g.Stops[0]
	if pos <= first.Pos || math.IsNaN(pos) {
		return first.Color
	}
	last := g.Stops[len(g.Stops)-1]
	if pos >= last.Pos {
		return last.Color
	}
	// First stop strictly after pos; i >= 1 given the checks above.
	i := sort.Search(len(g.Stops), func(i int) bool { return g.Stops[i].Pos > pos })
	a, b := g.Stops[i-1], g.Stops[i]
	f := (pos - a.Pos) / (b.Pos - a.Pos)
	return color.RGBA{
		R: lerp8(a.Color.R, b.Color.R, f),
		G: lerp8(a.Color.G, b.Color.G, f),
		B: lerp8(a.Color.B, b.Color.B, f),
		A: lerp8(a.Color.A, b.Color.A, f),
	}
}

func (g *Gradient) String() string {
	return g.Name
}

func lerp8(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}

// ParseHex parses "#rrggbb" or "#rrggbbaa".
func ParseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("palette: invalid color %q", s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("palette: invalid color %q", s)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Hex formats c as "#rrggbb", appending the alpha only when not opaque.
func Hex(c color.RGBA) string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Built-in gradients.
var (
	Iron = mustGradient("Iron",
		Stop{0, rgb(0, 0, 0)},
		Stop{0.2, rgb(32, 0, 140)},
		Stop{0.45, rgb(204, 0, 119)},
		Stop{0.7, rgb(255, 140, 0)},
		Stop{0.9, rgb(255, 230, 60)},
		Stop{1, rgb(255, 255, 255)},
	)
	Grayscale = mustGradient("Grayscale",
		Stop{0, rgb(0, 0, 0)},
		Stop{1, rgb(255, 255, 255)},
	)
	Inverted = mustGradient("Inverted",
		Stop{0, rgb(255, 255, 255)},
		Stop{1, rgb(0, 0, 0)},
	)
	Rainbow = mustGradient("Rainbow",
		Stop{0, rgb(0, 0, 255)},
		Stop{0.25, rgb(0, 255, 255)},
		Stop{0.5, rgb(0, 255, 0)},
		Stop{0.75, rgb(255, 255, 0)},
		Stop{1, rgb(255, 0, 0)},
	)
	// ColdWarm spans -20°C to 150°C when mapped over that range; skin
	// temperatures land in the green to red band.
	ColdWarm = mustGradient("Cold-warm",
		celsiusStop(-20, rgb(0, 0, 0)),
		celsiusStop(15, rgb(0, 0, 255)),
		celsiusStop(20, rgb(0, 255, 255)),
		celsiusStop(25, rgb(0, 255, 0)),
		celsiusStop(30, rgb(255, 255, 0)),
		celsiusStop(35, rgb(255, 128, 0)),
		celsiusStop(40, rgb(255, 0, 0)),
		celsiusStop(100, rgb(255, 0, 255)),
		celsiusStop(150, rgb(255, 255, 255)),
	)
)

// Builtins returns the built-in gradients, in display order.
func Builtins() []Gradient {
	return []Gradient{Iron, Grayscale, Inverted, Rainbow, ColdWarm}
}

// Lookup returns the built-in gradient with this name, case insensitive.
func Lookup(name string) (Gradient, bool) {
	for _, g := range Builtins() {
		if strings.EqualFold(g.Name, name) {
			return g, true
		}
	}
	return Gradient{}, false
}

//

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func celsiusStop(c float64, col color.RGBA) Stop {
	return Stop{Pos: (c + 20) / 170, Color: col}
}

func mustGradient(name string, stops ...Stop) Gradient {
	g, err := NewGradient(name, stops...)
	if err != nil {
		panic(err)
	}
	return g
}
