// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package stats computes per-frame temperature statistics.
package stats

import (
	"errors"
	"fmt"

	"github.com/maruel/go-thermal/thermal"
)

// ErrInvalidBucketCount is returned by Histogram when n < 1.
var ErrInvalidBucketCount = errors.New("stats: bucket count must be at least 1")

// Bucket is one histogram interval [Low, High). The last bucket is closed.
type Bucket struct {
	Low      thermal.Kelvin
	High     thermal.Kelvin
	Count    int
	Fraction float64 // Count over the number of cells.
}

// Histogram partitions r into n equal width buckets and counts the cells of
// g falling in each. Cells outside r are counted in the nearest edge bucket,
// the same way the palette saturates them, so the counts always sum to the
// number of cells.
func Histogram(g *thermal.Grid, r thermal.Range, n int) ([]Bucket, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBucketCount, n)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := make([]Bucket, n)
	width := r.Span() / thermal.Kelvin(n)
	for i := range out {
		out[i].Low = r.Min + thermal.Kelvin(i)*width
		out[i].High = r.Min + thermal.Kelvin(i+1)*width
	}
	out[n-1].High = r.Max
	for _, t := range g.Pix {
		i := 0
		if t >= r.Max {
			i = n - 1
		} else if t > r.Min {
			i = int((t - r.Min) / width)
			if i >= n {
				i = n - 1
			}
			// Rounding may put t one bucket off the edges reported above.
			for i > 0 && t < out[i].Low {
				i--
			}
			for i < n-1 && t >= out[i+1].Low {
				i++
			}
		}
		out[i].Count++
	}
	if l := g.Len(); l != 0 {
		for i := range out {
			out[i].Fraction = float64(out[i].Count) / float64(l)
		}
	}
	return out, nil
}

// Summary describes a grid.
type Summary struct {
	Min     thermal.Kelvin
	Max     thermal.Kelvin
	Mean    thermal.Kelvin
	Invalid int
	Cells   int
}

// Summarize computes the Summary of the valid cells of g. ok is false when
// no cell is valid.
func Summarize(g *thermal.Grid) (s Summary, ok bool) {
	s.Cells = g.Len()
	s.Invalid = g.InvalidCount()
	lo, hi, ok := g.Extrema()
	if !ok {
		return s, false
	}
	s.Min = g.Pix[lo]
	s.Max = g.Pix[hi]
	s.Mean, _ = g.Mean()
	return s, true
}
