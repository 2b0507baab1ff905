// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package stats

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/maruel/go-thermal/thermal"
)

func TestHistogram_example(t *testing.T) {
	g := thermal.GridFrom(2, 2, []thermal.Kelvin{10, 20, 30, 40})
	b, err := Histogram(g, thermal.Range{Min: 10, Max: 40}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []Bucket{
		{Low: 10, High: 20, Count: 1, Fraction: 0.25},
		{Low: 20, High: 30, Count: 1, Fraction: 0.25},
		{Low: 30, High: 40, Count: 2, Fraction: 0.5},
	}
	if len(b) != len(want) {
		t.Fatal(b)
	}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("#%d: %+v != %+v", i, b[i], want[i])
		}
	}
}

func TestHistogram_conservation(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for n := 0; n < 100; n++ {
		w, h := 1+rnd.Intn(20), 1+rnd.Intn(20)
		g := thermal.NewGrid(w, h)
		for i := range g.Pix {
			g.Pix[i] = thermal.Kelvin(200 + rnd.Float64()*200)
		}
		lo := thermal.Kelvin(250 + rnd.Float64()*50)
		r := thermal.Range{Min: lo, Max: lo + thermal.Kelvin(0.1+rnd.Float64()*80)}
		buckets := 1 + rnd.Intn(64)
		b, err := Histogram(g, r, buckets)
		if err != nil {
			t.Fatal(err)
		}
		if len(b) != buckets {
			t.Fatalf("#%d: %d buckets", n, len(b))
		}
		sum := 0
		for _, x := range b {
			sum += x.Count
		}
		if sum != w*h {
			t.Fatalf("#%d: %d != %d", n, sum, w*h)
		}
		if b[0].Low != r.Min || b[len(b)-1].High != r.Max {
			t.Fatalf("#%d: buckets don't cover %s", n, r)
		}
	}
}

func TestHistogram_clamps(t *testing.T) {
	g := thermal.GridFrom(4, 1, []thermal.Kelvin{0, 15, 25, 1000})
	b, err := Histogram(g, thermal.Range{Min: 10, Max: 30}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if b[0].Count != 2 || b[1].Count != 2 {
		t.Fatal(b)
	}
}

func TestHistogram_edges(t *testing.T) {
	for _, r := range []thermal.Range{{Min: 290.1, Max: 300.3}, {Min: 273.15, Max: 310.15}, {Min: 0.1, Max: 0.7}, {Min: 253.3, Max: 253.4}} {
		for _, n := range []int{3, 7, 10, 64} {
			edges, err := Histogram(thermal.NewGrid(0, 0), r, n)
			if err != nil {
				t.Fatal(err)
			}
			// Each cell sits exactly on the Low of its bucket.
			g := thermal.NewGrid(n, 1)
			for i := range edges {
				g.Pix[i] = edges[i].Low
			}
			b, err := Histogram(g, r, n)
			if err != nil {
				t.Fatal(err)
			}
			for i := range b {
				if b[i].Count != 1 {
					t.Fatalf("%s/%d: bucket #%d [%v, %v) has %d cells", r, n, i, b[i].Low, b[i].High, b[i].Count)
				}
			}
		}
	}
}

func TestHistogram_errors(t *testing.T) {
	g := thermal.GridFrom(1, 1, []thermal.Kelvin{1})
	for _, n := range []int{0, -1} {
		if _, err := Histogram(g, thermal.Range{Min: 0, Max: 1}, n); !errors.Is(err, ErrInvalidBucketCount) {
			t.Fatal(err)
		}
	}
	if _, err := Histogram(g, thermal.Range{Min: 1, Max: 1}, 1); !errors.Is(err, thermal.ErrInvalidRange) {
		t.Fatal(err)
	}
}

func TestSummarize(t *testing.T) {
	g := thermal.GridFrom(4, 1, []thermal.Kelvin{1, 2, 3, 100})
	g.MarkInvalid(3)
	s, ok := Summarize(g)
	if !ok {
		t.Fatal("no valid cell")
	}
	if s.Min != 1 || s.Max != 3 || s.Mean != 2 || s.Invalid != 1 || s.Cells != 4 {
		t.Fatalf("%+v", s)
	}
	g.MarkInvalid(0)
	g.MarkInvalid(1)
	g.MarkInvalid(2)
	if _, ok := Summarize(g); ok {
		t.Fatal("expected no valid cell")
	}
}
