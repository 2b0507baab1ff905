// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidRange is returned when a range doesn't satisfy Min < Max.
var ErrInvalidRange = errors.New("thermal: invalid range")

// Range is the span of temperatures mapped onto a gradient.
type Range struct {
	Min Kelvin
	Max Kelvin
}

// NewRange returns a validated range.
func NewRange(min, max Kelvin) (Range, error) {
	r := Range{Min: min, Max: max}
	return r, r.Validate()
}

// Validate enforces finite bounds and Min < Max.
func (r Range) Validate() error {
	if !isFinite(r.Min) || !isFinite(r.Max) {
		return fmt.Errorf("%w: non finite bound %s", ErrInvalidRange, r)
	}
	if r.Min >= r.Max {
		return fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}
	return nil
}

// Span is Max - Min.
func (r Range) Span() Kelvin {
	return r.Max - r.Min
}

// Factor normalizes t into r without clamping. A degenerate range returns 0.
func (r Range) Factor(t Kelvin) float64 {
	d := float64(r.Max - r.Min)
	if d <= 0 {
		return 0
	}
	return float64(t-r.Min) / d
}

// Contains returns true if t is within [Min, Max].
func (r Range) Contains(t Kelvin) bool {
	return t >= r.Min && t <= r.Max
}

// ContainsRange returns true if o is entirely inside r.
func (r Range) ContainsRange(o Range) bool {
	return r.Contains(o.Min) && r.Contains(o.Max)
}

// Widen ensures the range spans at least eps by moving Max up.
func (r Range) Widen(eps Kelvin) Range {
	if r.Max-r.Min < eps {
		r.Max = r.Min + eps
	}
	return r
}

// Lerp moves r toward target by f in [0, 1].
func (r Range) Lerp(target Range, f float64) Range {
	return Range{
		Min: r.Min + Kelvin(float64(target.Min-r.Min)*f),
		Max: r.Max + Kelvin(float64(target.Max-r.Max)*f),
	}
}

func (r Range) String() string {
	return fmt.Sprintf("[%s - %s]", r.Min, r.Max)
}

func isFinite(k Kelvin) bool {
	return !math.IsNaN(float64(k)) && !math.IsInf(float64(k), 0)
}
