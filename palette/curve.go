// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package palette

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Point is a control point of a Curve, both coordinates in [0, 1].
type Point struct {
	X, Y float64
}

// Curve remaps the normalized temperature before the gradient lookup. It is
// piecewise linear between its points; outside them it holds the end values.
//
// The zero value is the identity.
type Curve struct {
	points []Point
}

// ErrInvalidCurve is returned when a control point is out of [0, 1].
var ErrInvalidCurve = errors.New("palette: invalid curve point")

// NewCurve returns a curve through points, sorted by X.
func NewCurve(points ...Point) (Curve, error) {
	var c Curve
	for _, p := range points {
		if err := c.Insert(p); err != nil {
			return Curve{}, err
		}
	}
	return c, nil
}

// Insert adds a control point, keeping the points sorted by X. A point with
// the same X as an existing one is placed after it, creating a step.
func (c *Curve) Insert(p Point) error {
	if !unit(p.X) || !unit(p.Y) {
		return fmt.Errorf("%w: (%g, %g)", ErrInvalidCurve, p.X, p.Y)
	}
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].X > p.X })
	c.points = append(c.points, Point{})
	copy(c.points[i+1:], c.points[i:])
	c.points[i] = p
	return nil
}

// Points returns a copy of the control points.
func (c Curve) Points() []Point {
	return append([]Point(nil), c.points...)
}

// IsIdentity reports whether Value(x) == x for all x in [0, 1].
func (c Curve) IsIdentity() bool {
	for _, p := range c.points {
		if p.X != p.Y {
			return false
		}
	}
	return len(c.points) == 0 || (c.points[0].X == 0 && c.points[len(c.points)-1].X == 1)
}

// Value maps x through the curve.
func (c Curve) Value(x float64) float64 {
	switch len(c.points) {
	case 0:
		return x
	case 1:
		return c.points[0].Y
	}
	if x <= c.points[0].X {
		return c.points[0].Y
	}
	last := c.points[len(c.points)-1]
	if x >= last.X {
		return last.Y
	}
	i := sort.Search(len(c.points), func(i int) bool { return c.points[i].X > x })
	a, b := c.points[i-1], c.points[i]
	return a.Y + (b.Y-a.Y)*(x-a.X)/(b.X-a.X)
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
