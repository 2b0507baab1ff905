// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package autorange tracks the temperature range mapped onto the color
// gradient, either fixed by the user or derived from each frame.
package autorange

import (
	"errors"
	"fmt"

	"github.com/maruel/go-thermal/thermal"
)

// Epsilon is the minimum span of a tracked range. A uniform frame is widened
// by this much so the gradient mapping never divides by zero.
const Epsilon thermal.Kelvin = 0.1

// Mode selects how the display range is derived.
//
// Use Fixed, Auto or AutoClamped to create one.
type Mode interface {
	fmt.Stringer
	target(observed thermal.Range) thermal.Range
	auto() bool
}

type fixedMode struct {
	r thermal.Range
}

func (f fixedMode) target(thermal.Range) thermal.Range { return f.r }
func (f fixedMode) auto() bool                         { return false }
func (f fixedMode) String() string                     { return "Fixed" + f.r.String() }

type autoMode struct{}

func (autoMode) target(o thermal.Range) thermal.Range { return o }
func (autoMode) auto() bool                           { return true }
func (autoMode) String() string                       { return "Auto" }

type clampedMode struct {
	bounds thermal.Range
}

func (c clampedMode) target(o thermal.Range) thermal.Range {
	r := o
	if r.Min < c.bounds.Min {
		r.Min = c.bounds.Min
	} else if r.Min > c.bounds.Max {
		r.Min = c.bounds.Max
	}
	if r.Max > c.bounds.Max {
		r.Max = c.bounds.Max
	} else if r.Max < c.bounds.Min {
		r.Max = c.bounds.Min
	}
	if r.Max-r.Min < Epsilon && r.Max+Epsilon > c.bounds.Max {
		// Pinned to the upper bound; grow downward to stay inside.
		r.Min = r.Max - Epsilon
	}
	return r
}

func (c clampedMode) auto() bool     { return true }
func (c clampedMode) String() string { return "AutoClamped" + c.bounds.String() }

// Fixed returns a mode holding [min, max]. It fails with
// thermal.ErrInvalidRange unless min < max.
func Fixed(min, max thermal.Kelvin) (Mode, error) {
	r, err := thermal.NewRange(min, max)
	if err != nil {
		return nil, err
	}
	return fixedMode{r: r}, nil
}

// Auto follows the observed extrema of each frame.
func Auto() Mode {
	return autoMode{}
}

// AutoClamped follows the observed extrema, clamped to [low, high].
func AutoClamped(low, high thermal.Kelvin) (Mode, error) {
	r, err := thermal.NewRange(low, high)
	if err != nil {
		return nil, err
	}
	return clampedMode{bounds: r}, nil
}

// IsAuto reports whether m tracks the frames.
func IsAuto(m Mode) bool {
	return m != nil && m.auto()
}

// ErrEmptyGrid is returned when an automatic mode is updated with a grid
// that has no valid cell.
var ErrEmptyGrid = errors.New("autorange: no valid cell in grid")

// Tracker retains the range between frames. It is owned by a single
// pipeline; it is not safe for concurrent use.
type Tracker struct {
	// Smoothing in [0, 1) blends the previous range into the new one with an
	// exponential moving average. 0 disables smoothing.
	Smoothing float64
	// Hysteresis keeps the previous range while the observed extrema stay
	// inside it and neither edge moved inward by more than this. 0 disables
	// it.
	Hysteresis thermal.Kelvin
	// Headroom is added on both sides of the observed extrema in automatic
	// modes.
	Headroom thermal.Kelvin

	current thermal.Range
	valid   bool
}

// Validate checks the tuning parameters.
func (t *Tracker) Validate() error {
	if t.Smoothing < 0 || t.Smoothing >= 1 {
		return fmt.Errorf("autorange: smoothing %g must be in [0, 1)", t.Smoothing)
	}
	if t.Hysteresis < 0 || t.Headroom < 0 {
		return fmt.Errorf("autorange: hysteresis %g and headroom %g must be positive", t.Hysteresis, t.Headroom)
	}
	return nil
}

// Current returns the last range returned by Update.
func (t *Tracker) Current() (thermal.Range, bool) {
	return t.current, t.valid
}

// Reset forgets the retained range; the next automatic update starts fresh.
func (t *Tracker) Reset() {
	t.current = thermal.Range{}
	t.valid = false
}

// Update returns the display range for g.
//
// In Fixed mode, g is ignored and the retained state is reset so switching
// back to an automatic mode doesn't blend with a stale range.
func (t *Tracker) Update(g *thermal.Grid, m Mode) (thermal.Range, error) {
	if m == nil {
		m = Auto()
	}
	if !m.auto() {
		t.Reset()
		r := m.target(thermal.Range{})
		return r, r.Validate()
	}
	observed, ok := g.Observed()
	if !ok {
		return thermal.Range{}, ErrEmptyGrid
	}
	observed.Min -= t.Headroom
	observed.Max += t.Headroom
	target := widen(m.target(observed))
	next := target
	if t.valid {
		prev := t.current
		if t.Hysteresis > 0 && prev.ContainsRange(observed) &&
			observed.Min-prev.Min <= t.Hysteresis && prev.Max-observed.Max <= t.Hysteresis {
			next = prev
		} else if t.Smoothing > 0 {
			next = widen(prev.Lerp(target, 1-t.Smoothing))
		}
	}
	t.current = next
	t.valid = true
	return next, nil
}

// widen guarantees Min < Max.
func widen(r thermal.Range) thermal.Range {
	return r.Widen(Epsilon)
}
