// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pipeline runs each raw frame through decoding and analysis and
// publishes the result as an immutable Snapshot.
//
// Process is called once per captured frame by a single goroutine; every
// stage runs synchronously in that call. Readers, like an HTTP server, get
// the results from the Slot and send user requests with Post.
package pipeline

import (
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/maruel/go-thermal/autorange"
	"github.com/maruel/go-thermal/config"
	"github.com/maruel/go-thermal/frame"
	"github.com/maruel/go-thermal/history"
	"github.com/maruel/go-thermal/marker"
	"github.com/maruel/go-thermal/palette"
	"github.com/maruel/go-thermal/stats"
	"github.com/maruel/go-thermal/thermal"
)

// Options configures a Pipeline.
type Options struct {
	Unit     thermal.Unit
	Gradient palette.Gradient // Zero value means palette.Iron.
	Mode     autorange.Mode   // nil means autorange.Auto().
	Tracker  autorange.Tracker
	Bins     int // 0 means 64.
	Rotation thermal.Rotation

	// HistoryCount and HistoryAge bound each marker time series.
	HistoryCount int
	HistoryAge   time.Duration

	Calibrations map[frame.Format]frame.Calibration
	MaxInvalid   float64
}

// OptionsFromConfig converts a loaded configuration.
func OptionsFromConfig(c *config.Config) (Options, error) {
	mode, err := c.RangeMode()
	if err != nil {
		return Options{}, err
	}
	g, err := c.SelectedGradient()
	if err != nil {
		return Options{}, err
	}
	rot, err := c.RotationValue()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Unit:         c.Unit,
		Gradient:     g,
		Mode:         mode,
		Tracker:      c.Tracker(),
		Bins:         c.Bins,
		Rotation:     rot,
		HistoryCount: c.History.MaxCount,
		HistoryAge:   time.Duration(c.History.MaxAge),
		Calibrations: c.Calibrations,
		MaxInvalid:   c.MaxInvalid,
	}, nil
}

// Stats counts processed frames.
type Stats struct {
	GoodFrames   int
	FailedFrames int
	LastFail     error
}

// Snapshot is the complete, read-only result of one frame. Nothing in it is
// modified after it is published. History shares storage with the pipeline's
// recorder, so its slices must not be modified either.
type Snapshot struct {
	Seq       uint64
	Time      time.Time
	Format    frame.Format
	Grid      *thermal.Grid
	Range     thermal.Range
	Image     *image.RGBA
	Histogram []stats.Bucket
	Summary   stats.Summary
	Readings  map[marker.ID]marker.Reading
	Markers   []marker.Marker
	History   map[marker.ID][]marker.Reading
	Unit      thermal.Unit
	Gradient  string
	Mode      string
	Rotation  thermal.Rotation
	Frozen    bool
}

// Pipeline owns all the per-camera state.
type Pipeline struct {
	slot *Slot

	// Owned by the goroutine calling Process.
	decoder    frame.Decoder
	tracker    autorange.Tracker
	mode       autorange.Mode
	mapper     *palette.Mapper
	markers    *marker.Engine
	history    history.Recorder
	bins       int
	unit       thermal.Unit
	rotation   thermal.Rotation
	last       *thermal.Grid // Last decoded grid, before rotation.
	frozen     *thermal.Grid
	freezeNext bool
	seq        uint64

	mu      sync.Mutex
	pending []Command
	stats   Stats
}

// New returns a Pipeline publishing to a new Slot.
func New(opts Options) (*Pipeline, error) {
	if err := opts.Tracker.Validate(); err != nil {
		return nil, err
	}
	if opts.Bins < 0 {
		return nil, fmt.Errorf("%w: %d", stats.ErrInvalidBucketCount, opts.Bins)
	}
	if opts.Bins == 0 {
		opts.Bins = 64
	}
	if opts.Mode == nil {
		opts.Mode = autorange.Auto()
	}
	if len(opts.Gradient.Stops) == 0 {
		opts.Gradient = palette.Iron
	}
	p := &Pipeline{
		slot:     NewSlot(),
		tracker:  opts.Tracker,
		mode:     opts.Mode,
		mapper:   palette.NewMapper(opts.Gradient),
		markers:  marker.New(),
		history:  history.Recorder{MaxCount: opts.HistoryCount, MaxAge: opts.HistoryAge},
		bins:     opts.Bins,
		unit:     opts.Unit,
		rotation: opts.Rotation,
	}
	p.decoder.MaxInvalid = opts.MaxInvalid
	for f, c := range opts.Calibrations {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("pipeline: calibration %s: %w", f, err)
		}
		p.decoder.SetCalibration(f, c)
	}
	return p, nil
}

// Slot returns where snapshots are published.
func (p *Pipeline) Slot() *Slot {
	return p.slot
}

// Post queues a command to be applied before the next frame. Invalid
// commands are rejected immediately. It is safe to call concurrently with
// Process.
func (p *Pipeline) Post(cmd Command) error {
	if err := cmd.validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.pending = append(p.pending, cmd)
	p.mu.Unlock()
	return nil
}

// Stats returns the frame counters. It is safe to call concurrently with
// Process.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// MinID and MaxID return the ids of the automatic extrema markers.
func (p *Pipeline) MinID() marker.ID {
	return p.markers.MinID()
}

func (p *Pipeline) MaxID() marker.ID {
	return p.markers.MaxID()
}

// Process runs raw through the pipeline and publishes the result.
//
// A frame that fails is counted and returned as an error; it leaves the
// pipeline state untouched so the next frame is processed normally.
func (p *Pipeline) Process(raw *frame.Raw) (*Snapshot, error) {
	p.applyPending()
	snap, err := p.process(raw)
	p.mu.Lock()
	if err != nil {
		p.stats.FailedFrames++
		p.stats.LastFail = err
	} else {
		p.stats.GoodFrames++
	}
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	p.slot.Store(snap)
	return snap, nil
}

// Close wakes up the Slot readers.
func (p *Pipeline) Close() {
	p.slot.Close()
}

//

func (p *Pipeline) applyPending() {
	p.mu.Lock()
	cmds := p.pending
	p.pending = nil
	p.mu.Unlock()
	for _, c := range cmds {
		if err := c.apply(p); err != nil {
			log.Printf("pipeline: %T: %v", c, err)
		}
	}
}

func (p *Pipeline) process(raw *frame.Raw) (*Snapshot, error) {
	decoded, err := p.decoder.Decode(raw)
	if err != nil {
		return nil, err
	}
	base := decoded
	if p.freezeNext {
		p.frozen = decoded.Clone()
		p.freezeNext = false
	}
	if p.frozen != nil {
		base = p.frozen
	}
	g := base.Rotate(p.rotation)
	r, err := p.tracker.Update(g, p.mode)
	if err != nil {
		return nil, err
	}
	hist, err := stats.Histogram(g, r, p.bins)
	if err != nil {
		return nil, err
	}
	// Nothing fails past this point.
	p.last = decoded
	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	readings := p.markers.Tick(g, ts)
	if p.frozen == nil {
		p.history.Record(readings)
	}
	sum, _ := stats.Summarize(g)
	p.seq++
	return &Snapshot{
		Seq:       p.seq,
		Time:      ts,
		Format:    raw.Format,
		Grid:      g,
		Range:     r,
		Image:     p.mapper.Render(g, r),
		Histogram: hist,
		Summary:   sum,
		Readings:  readings,
		Markers:   p.markers.Markers(),
		History:   p.history.Snapshot(),
		Unit:      p.unit,
		Gradient:  p.mapper.Gradient().Name,
		Mode:      p.mode.String(),
		Rotation:  p.rotation,
		Frozen:    p.frozen != nil,
	}, nil
}
