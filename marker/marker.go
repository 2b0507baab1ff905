// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package marker tracks point markers over temperature grids and samples
// them once per frame.
package marker

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/go-thermal/thermal"
)

// ID identifies a marker. It is stable for the marker's lifetime.
type ID = uuid.UUID

// Kind is the marker type.
type Kind uint8

// Marker kinds. User markers are placed by the user; the other kinds are
// relocated on every frame.
const (
	User Kind = iota
	Min
	Max
	Average
)

func (k Kind) String() string {
	switch k {
	case User:
		return "user"
	case Min:
		return "min"
	case Max:
		return "max"
	case Average:
		return "average"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsAuto returns true for markers relocated by the engine.
func (k Kind) IsAuto() bool {
	return k != User
}

// Marker is a point of interest over the grid.
type Marker struct {
	ID    ID
	Pos   image.Point
	Kind  Kind
	Label string
}

// Reading is one sample of a marker. It is immutable once produced.
type Reading struct {
	ID   ID
	Time time.Time
	Temp thermal.Kelvin
	Pos  image.Point
}

// ErrDuplicate is returned by AddWithID when the id is already in use.
var ErrDuplicate = errors.New("marker: duplicate id")

// Engine owns the marker set. It is not safe for concurrent use; the
// pipeline serializes all calls.
type Engine struct {
	markers []Marker
	size    image.Point
	min     ID
	max     ID
}

// New returns an Engine with the automatic global min and max markers.
func New() *Engine {
	e := &Engine{min: uuid.New(), max: uuid.New()}
	e.markers = []Marker{
		{ID: e.min, Kind: Min, Label: "Min"},
		{ID: e.max, Kind: Max, Label: "Max"},
	}
	return e
}

// MinID returns the id of the automatic minimum marker.
func (e *Engine) MinID() ID {
	return e.min
}

// MaxID returns the id of the automatic maximum marker.
func (e *Engine) MaxID() ID {
	return e.max
}

// Add places a user marker at pos and returns its new id.
func (e *Engine) Add(pos image.Point, label string) ID {
	id := uuid.New()
	e.markers = append(e.markers, Marker{ID: id, Pos: pos, Kind: User, Label: label})
	return id
}

// AddAverage adds a marker reporting the mean of the valid cells.
func (e *Engine) AddAverage(label string) ID {
	id := uuid.New()
	e.markers = append(e.markers, Marker{ID: id, Kind: Average, Label: label})
	return id
}

// AddWithID adds a User or Average marker with a caller provided id. It is
// used when the id must be known before the marker is committed, e.g. when
// the add is queued as a command.
func (e *Engine) AddWithID(id ID, kind Kind, pos image.Point, label string) error {
	if kind != User && kind != Average {
		return fmt.Errorf("marker: can't add a %s marker", kind)
	}
	if e.index(id) != -1 {
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	e.markers = append(e.markers, Marker{ID: id, Pos: pos, Kind: kind, Label: label})
	return nil
}

// Remove deletes a marker. It returns false if the id is unknown or if it is
// one of the automatic min and max markers, which can't be removed.
func (e *Engine) Remove(id ID) bool {
	i := e.index(id)
	if i == -1 || id == e.min || id == e.max {
		return false
	}
	e.markers = append(e.markers[:i], e.markers[i+1:]...)
	return true
}

// Rename changes the label of a marker.
func (e *Engine) Rename(id ID, label string) bool {
	i := e.index(id)
	if i == -1 {
		return false
	}
	e.markers[i].Label = label
	return true
}

// Get returns a marker.
func (e *Engine) Get(id ID) (Marker, bool) {
	if i := e.index(id); i != -1 {
		return e.markers[i], true
	}
	return Marker{}, false
}

// Markers returns a copy of the markers, in creation order.
func (e *Engine) Markers() []Marker {
	return append([]Marker(nil), e.markers...)
}

// Tick samples every marker over g.
//
// User markers are clamped to the grid and sampled at the nearest cell.
// When the grid size changed since the previous tick, their stored
// position is first rescaled proportionally. The min and max markers are
// moved to the first row-major occurrence of the grid extrema.
func (e *Engine) Tick(g *thermal.Grid, ts time.Time) map[ID]Reading {
	size := image.Pt(g.Width, g.Height)
	if e.size != size {
		if e.size.X > 0 && e.size.Y > 0 {
			e.rescale(e.size, size)
		}
		e.size = size
	}
	out := make(map[ID]Reading, len(e.markers))
	if g.Len() == 0 {
		return out
	}
	minIdx, maxIdx, ok := g.Extrema()
	mean, _ := g.Mean()
	for i := range e.markers {
		m := &e.markers[i]
		r := Reading{ID: m.ID, Time: ts}
		switch m.Kind {
		case Min, Max:
			if ok {
				idx := minIdx
				if m.Kind == Max {
					idx = maxIdx
				}
				m.Pos = g.Point(idx)
			}
			r.Pos = g.Clamp(m.Pos)
			r.Temp = g.At(r.Pos.X, r.Pos.Y)
		case Average:
			m.Pos = image.Pt(g.Width/2, g.Height/2)
			r.Pos = m.Pos
			r.Temp = mean
		default:
			r.Pos = g.Clamp(m.Pos)
			r.Temp = g.At(r.Pos.X, r.Pos.Y)
		}
		out[m.ID] = r
	}
	return out
}

// Rotate moves user markers along with an image rotated by r, so they keep
// sampling the same spot once the rotated grids come in. It is a no-op
// before the first Tick.
func (e *Engine) Rotate(r thermal.Rotation) {
	if e.size.X <= 0 || e.size.Y <= 0 || r%4 == thermal.RotateNone {
		return
	}
	bounds := image.Rectangle{Max: e.size}
	for i := range e.markers {
		m := &e.markers[i]
		if m.Kind != User {
			continue
		}
		p := m.Pos
		if !p.In(bounds) {
			p.X = min(max(p.X, 0), e.size.X-1)
			p.Y = min(max(p.Y, 0), e.size.Y-1)
		}
		m.Pos = r.Point(p, e.size.X, e.size.Y)
	}
	e.size = r.Size(e.size.X, e.size.Y)
}

//

func (e *Engine) index(id ID) int {
	for i := range e.markers {
		if e.markers[i].ID == id {
			return i
		}
	}
	return -1
}

// rescale maps user marker positions from a grid of size from to a grid of
// size to, keeping the relative position of the cell center.
func (e *Engine) rescale(from, to image.Point) {
	for i := range e.markers {
		m := &e.markers[i]
		if m.Kind != User {
			continue
		}
		m.Pos.X = (2*m.Pos.X + 1) * to.X / (2 * from.X)
		m.Pos.Y = (2*m.Pos.Y + 1) * to.Y / (2 * from.Y)
	}
}
