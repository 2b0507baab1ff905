// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package thermaltest implements a fake thermal camera.
package thermaltest

import (
	"math"
	"math/rand"
	"time"

	"github.com/maruel/go-thermal/frame"
	"github.com/maruel/go-thermal/thermal"
)

// Source delivers raw frames. It is implemented by Fake and rawio.Replay,
// and is what an acquisition layer is expected to provide.
type Source interface {
	NextFrame(raw *frame.Raw) error
	Close() error
}

// Fake is a deterministic Source generating a slowly drifting scene.
type Fake struct {
	// Interval is the delay between two frames. 0 means no delay.
	Interval time.Duration
	// CorruptEvery truncates every Nth frame so that it fails to decode.
	// 0 disables it.
	CorruptEvery int

	format frame.Format
	cal    frame.Calibration
	noise  *noise
	grid   *thermal.Grid
	start  time.Time
	count  int
}

// New returns a fake camera with a w×h sensor, encoding frames in f.
func New(f frame.Format, w, h int) *Fake {
	return &Fake{
		format: f,
		cal:    frame.DefaultCalibration(f),
		noise:  makeNoise(w, h),
		grid:   thermal.NewGrid(w, h),
		start:  time.Now().UTC(),
	}
}

// NewP2Pro returns a fake Infiray P2 Pro, 256×192 sensor.
func NewP2Pro() *Fake {
	return New(frame.FormatP2Pro, 256, 192)
}

// NextFrame renders the next frame into raw.
func (f *Fake) NextFrame(raw *frame.Raw) error {
	if f.Interval != 0 {
		time.Sleep(f.Interval)
	}
	f.count++
	f.noise.update()
	f.noise.render(f.grid)
	ts := f.start.Add(time.Duration(f.count) * time.Millisecond)
	if f.Interval != 0 {
		ts = time.Now().UTC()
	}
	r, err := frame.Encode(f.grid, f.format, f.cal, ts)
	if err != nil {
		return err
	}
	if f.CorruptEvery > 0 && f.count%f.CorruptEvery == 0 {
		r.Data = r.Data[:len(r.Data)-1]
	}
	*raw = *r
	return nil
}

// Grid returns a copy of the scene encoded in the last frame.
func (f *Fake) Grid() *thermal.Grid {
	return f.grid.Clone()
}

// Count returns the number of frames generated.
func (f *Fake) Count() int {
	return f.count
}

// Close implements Source.
func (f *Fake) Close() error {
	return nil
}

//

// Scene bounds.
var (
	ambient = thermal.FromCelsius(22)
	coldest = thermal.FromCelsius(5)
	hottest = thermal.FromCelsius(90)
)

type vector struct {
	intensity float64
	x         float64
	y         float64
}

// noise is cheezy but gets us going for testing without a device.
type noise struct {
	rand    *rand.Rand
	vectors []vector
	w, h    int
}

func makeNoise(w, h int) *noise {
	n := &noise{rand: rand.New(rand.NewSource(0)), w: w, h: h}
	n.vectors = make([]vector, 10)
	// Distances are in cells squared; scale the intensity with the sensor
	// area so the scene looks alike across resolutions.
	scale := float64(w*h) / 100
	for i := range n.vectors {
		n.vectors[i].intensity = n.rand.NormFloat64() * 4 * scale
		n.vectors[i].x = n.rand.NormFloat64()*float64(w)/6 + float64(w)/2
		n.vectors[i].y = n.rand.NormFloat64()*float64(h)/6 + float64(h)/2
	}
	return n
}

func (n *noise) update() {
	for i := range n.vectors {
		n.vectors[i].intensity += n.rand.NormFloat64() * 0.1
		n.vectors[i].x += n.rand.NormFloat64() * 0.1
		n.vectors[i].y += n.rand.NormFloat64() * 0.1
	}
}

func (n *noise) render(g *thermal.Grid) {
	for y := 0; y < n.h; y++ {
		fy := float64(y)
		for x := 0; x < n.w; x++ {
			fx := float64(x)
			value := float64(ambient)
			for _, vect := range n.vectors {
				distance := (vect.x-fx)*(vect.x-fx) + (vect.y-fy)*(vect.y-fy) + 1
				value += vect.intensity / distance
			}
			value = math.Min(math.Max(value, float64(coldest)), float64(hottest))
			g.Set(x, y, thermal.Kelvin(value))
		}
	}
}
