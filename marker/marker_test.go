// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package marker

import (
	"errors"
	"image"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/go-thermal/thermal"
)

func TestTick_extrema(t *testing.T) {
	e := New()
	g := thermal.GridFrom(3, 2, []thermal.Kelvin{
		5, 1, 9,
		1, 9, 5,
	})
	ts := time.Unix(1, 0)
	r := e.Tick(g, ts)
	if len(r) != 2 {
		t.Fatal(r)
	}
	if m := r[e.MinID()]; m.Pos != image.Pt(1, 0) || m.Temp != 1 || !m.Time.Equal(ts) {
		t.Fatalf("%+v", m)
	}
	if m := r[e.MaxID()]; m.Pos != image.Pt(2, 0) || m.Temp != 9 {
		t.Fatalf("%+v", m)
	}
	if m, _ := e.Get(e.MaxID()); m.Pos != image.Pt(2, 0) {
		t.Fatalf("%+v", m)
	}
}

func TestTick_extremaRandom(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	e := New()
	for n := 0; n < 50; n++ {
		w, h := 1+rnd.Intn(8), 1+rnd.Intn(8)
		g := thermal.NewGrid(w, h)
		for i := range g.Pix {
			// Few distinct values to force ties.
			g.Pix[i] = thermal.Kelvin(rnd.Intn(4))
		}
		r := e.Tick(g, time.Time{})
		lo, hi := r[e.MinID()], r[e.MaxID()]
		for i, v := range g.Pix {
			p := g.Point(i)
			if v < lo.Temp || v > hi.Temp {
				t.Fatalf("#%d: %v outside [%v, %v]", n, v, lo.Temp, hi.Temp)
			}
			if v == lo.Temp && g.Index(lo.Pos.X, lo.Pos.Y) > i {
				t.Fatalf("#%d: min at %v, first occurrence at %v", n, lo.Pos, p)
			}
			if v == hi.Temp && g.Index(hi.Pos.X, hi.Pos.Y) > i {
				t.Fatalf("#%d: max at %v, first occurrence at %v", n, hi.Pos, p)
			}
		}
		if g.At(lo.Pos.X, lo.Pos.Y) != lo.Temp || g.At(hi.Pos.X, hi.Pos.Y) != hi.Temp {
			t.Fatalf("#%d: reading doesn't match its cell", n)
		}
	}
}

func TestTick_skipsInvalid(t *testing.T) {
	e := New()
	g := thermal.GridFrom(3, 1, []thermal.Kelvin{0, 5, 10})
	g.MarkInvalid(0)
	r := e.Tick(g, time.Time{})
	if m := r[e.MinID()]; m.Pos != image.Pt(1, 0) {
		t.Fatalf("%+v", m)
	}
}

func TestUser(t *testing.T) {
	e := New()
	id := e.Add(image.Pt(10, -3), "probe")
	g := thermal.GridFrom(2, 2, []thermal.Kelvin{1, 2, 3, 4})
	r := e.Tick(g, time.Time{})
	if m := r[id]; m.Pos != image.Pt(1, 0) || m.Temp != 2 {
		t.Fatalf("%+v", m)
	}
	// The stored coordinate is kept; only the reading is clamped.
	if m, _ := e.Get(id); m.Pos != image.Pt(10, -3) || m.Label != "probe" || m.Kind != User {
		t.Fatalf("%+v", m)
	}
	if !e.Rename(id, "p2") {
		t.Fatal("rename failed")
	}
	if m, _ := e.Get(id); m.Label != "p2" {
		t.Fatal(m.Label)
	}
	if e.Rename(uuid.New(), "x") {
		t.Fatal("unknown id")
	}
}

func TestAddWithID(t *testing.T) {
	e := New()
	id := uuid.New()
	if err := e.AddWithID(id, User, image.Pt(0, 0), ""); err != nil {
		t.Fatal(err)
	}
	if err := e.AddWithID(id, User, image.Pt(0, 0), ""); !errors.Is(err, ErrDuplicate) {
		t.Fatal(err)
	}
	if err := e.AddWithID(e.MinID(), Average, image.Pt(0, 0), ""); !errors.Is(err, ErrDuplicate) {
		t.Fatal(err)
	}
	if err := e.AddWithID(uuid.New(), Max, image.Pt(0, 0), ""); err == nil {
		t.Fatal("only one max marker")
	}
}

func TestRemove(t *testing.T) {
	e := New()
	id := e.Add(image.Pt(0, 0), "")
	if !e.Remove(id) {
		t.Fatal("first remove")
	}
	if e.Remove(id) {
		t.Fatal("second remove is a no-op")
	}
	if e.Remove(uuid.New()) {
		t.Fatal("unknown id")
	}
	if e.Remove(e.MinID()) || e.Remove(e.MaxID()) {
		t.Fatal("auto markers can't be removed")
	}
	if n := len(e.Markers()); n != 2 {
		t.Fatal(n)
	}
	r := e.Tick(thermal.GridFrom(1, 1, []thermal.Kelvin{3}), time.Time{})
	if _, ok := r[id]; ok {
		t.Fatal("removed marker still sampled")
	}
}

func TestAverage(t *testing.T) {
	e := New()
	id := e.AddAverage("avg")
	g := thermal.GridFrom(2, 2, []thermal.Kelvin{10, 20, 30, 100})
	g.MarkInvalid(3)
	r := e.Tick(g, time.Time{})
	if m := r[id]; m.Temp != 20 {
		t.Fatalf("%+v", m)
	}
	if m, _ := e.Get(id); m.Kind != Average || !m.Kind.IsAuto() {
		t.Fatalf("%+v", m)
	}
}

func TestTick_resize(t *testing.T) {
	e := New()
	id := e.Add(image.Pt(3, 1), "")
	e.Tick(thermal.NewGrid(4, 2), time.Time{})
	// Doubling the resolution keeps the marker over the same area.
	r := e.Tick(thermal.NewGrid(8, 4), time.Time{})
	if m := r[id]; m.Pos != image.Pt(7, 3) {
		t.Fatalf("%+v", m)
	}
	r = e.Tick(thermal.NewGrid(4, 2), time.Time{})
	if m := r[id]; m.Pos != image.Pt(3, 1) {
		t.Fatalf("%+v", m)
	}
}

func TestRotate(t *testing.T) {
	// 1 2 3
	// 4 9 6
	g := thermal.GridFrom(3, 2, []thermal.Kelvin{1, 2, 3, 4, 9, 6})
	e := New()
	// Rotating before the first frame is a no-op.
	e.Rotate(thermal.Rotate90)
	id := e.Add(image.Pt(2, 0), "")
	if r := e.Tick(g, time.Time{}); r[id].Temp != 3 {
		t.Fatalf("%+v", r[id])
	}
	for _, rot := range []thermal.Rotation{thermal.Rotate90, thermal.Rotate180, thermal.Rotate270} {
		e.Rotate(rot)
		g = g.Rotate(rot)
		// Stays on the same cell; a rescale to the swapped size would not.
		if r := e.Tick(g, time.Time{}); r[id].Temp != 3 {
			t.Fatalf("%s: %+v", rot, r[id])
		}
	}
	// 90 + 180 + 270 is a half turn.
	if m, _ := e.Get(id); m.Pos != image.Pt(0, 1) {
		t.Fatalf("%+v", m)
	}
}

func TestKind_String(t *testing.T) {
	data := map[Kind]string{User: "user", Min: "min", Max: "max", Average: "average", Kind(9): "Kind(9)"}
	for k, want := range data {
		if s := k.String(); s != want {
			t.Fatal(s)
		}
	}
}
