// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pipeline

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/go-thermal/autorange"
	"github.com/maruel/go-thermal/config"
	"github.com/maruel/go-thermal/frame"
	"github.com/maruel/go-thermal/marker"
	"github.com/maruel/go-thermal/palette"
	"github.com/maruel/go-thermal/stats"
	"github.com/maruel/go-thermal/thermal"
)

var epoch = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func encode(t *testing.T, n int, values ...thermal.Kelvin) *frame.Raw {
	g := thermal.GridFrom(2, len(values)/2, values)
	raw, err := frame.Encode(g, frame.FormatY16, frame.DefaultCalibration(frame.FormatY16), epoch.Add(time.Duration(n)*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func newPipeline(t *testing.T) *Pipeline {
	p, err := New(Options{Gradient: palette.Grayscale, Bins: 3})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProcess(t *testing.T) {
	p := newPipeline(t)
	snap, err := p.Process(encode(t, 0, 300, 310, 320, 330))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Seq != 1 || !snap.Time.Equal(epoch) || snap.Format != frame.FormatY16 {
		t.Fatalf("%+v", snap)
	}
	if snap.Range != (thermal.Range{Min: 300, Max: 330}) {
		t.Fatal(snap.Range)
	}
	want := []int{1, 1, 2}
	for i, b := range snap.Histogram {
		if b.Count != want[i] {
			t.Fatalf("#%d: %+v", i, b)
		}
	}
	if r := snap.Readings[p.MinID()]; r.Pos != image.Pt(0, 0) || r.Temp != 300 {
		t.Fatalf("%+v", r)
	}
	if r := snap.Readings[p.MaxID()]; r.Pos != image.Pt(1, 1) || r.Temp != 330 {
		t.Fatalf("%+v", r)
	}
	if len(snap.History[p.MaxID()]) != 1 || len(snap.Markers) != 2 {
		t.Fatalf("%+v", snap)
	}
	if c := snap.Image.RGBAAt(1, 1); c.R != 255 {
		t.Fatal(c)
	}
	if snap.Summary.Cells != 4 || snap.Gradient != "Grayscale" || snap.Mode != "Auto" {
		t.Fatalf("%+v", snap.Summary)
	}
	if p.Slot().Load() != snap {
		t.Fatal("snapshot not published")
	}
}

func TestProcess_failureIsolated(t *testing.T) {
	p := newPipeline(t)
	if _, err := p.Process(encode(t, 0, 300, 310, 320, 330)); err != nil {
		t.Fatal(err)
	}
	bad := encode(t, 1, 300, 310, 320, 330)
	bad.Data = bad.Data[:3]
	if _, err := p.Process(bad); !errors.Is(err, frame.ErrSizeMismatch) {
		t.Fatal(err)
	}
	if s := p.Slot().Load(); s.Seq != 1 {
		t.Fatal("failed frame published")
	}
	snap, err := p.Process(encode(t, 2, 290, 300, 310, 320))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Seq != 2 || snap.Range != (thermal.Range{Min: 290, Max: 320}) {
		t.Fatalf("%+v", snap)
	}
	if n := len(snap.History[p.MinID()]); n != 2 {
		t.Fatal(n)
	}
	st := p.Stats()
	if st.GoodFrames != 2 || st.FailedFrames != 1 || !errors.Is(st.LastFail, frame.ErrSizeMismatch) {
		t.Fatalf("%+v", st)
	}
}

func TestProcess_shapeChange(t *testing.T) {
	p := newPipeline(t)
	if _, err := p.Process(encode(t, 0, 300, 310, 320, 330)); err != nil {
		t.Fatal(err)
	}
	snap, err := p.Process(encode(t, 1, 300, 310, 320, 330, 340, 350))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Grid.Width != 2 || snap.Grid.Height != 3 {
		t.Fatal(snap.Grid.Bounds())
	}
}

func TestPost(t *testing.T) {
	p := newPipeline(t)
	bad := []Command{
		SetBins{0},
		SetRangeMode{},
		SetUnit{thermal.Unit(9)},
		SetRotation{thermal.Rotation(4)},
		SetGradient{},
		SetCalibration{frame.FormatY16, frame.Calibration{}},
		AddMarker{ID: uuid.New(), Kind: marker.Max},
	}
	for i, c := range bad {
		if err := p.Post(c); err == nil {
			t.Fatalf("#%d: expected failure", i)
		}
	}
	if err := p.Post(SetBins{0}); !errors.Is(err, stats.ErrInvalidBucketCount) {
		t.Fatal(err)
	}
}

func TestCommands(t *testing.T) {
	p := newPipeline(t)
	id := uuid.New()
	fixed, err := autorange.Fixed(250, 350)
	if err != nil {
		t.Fatal(err)
	}
	cmds := []Command{
		SetUnit{thermal.UnitFahrenheit},
		SetGradient{palette.Inverted},
		SetRangeMode{fixed},
		SetBins{5},
		AddMarker{ID: id, Pos: image.Pt(1, 0), Label: "probe"},
	}
	for _, c := range cmds {
		if err := p.Post(c); err != nil {
			t.Fatal(err)
		}
	}
	snap, err := p.Process(encode(t, 0, 300, 310, 320, 330))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Unit != thermal.UnitFahrenheit || snap.Gradient != "Inverted" || len(snap.Histogram) != 5 {
		t.Fatalf("%+v", snap)
	}
	if snap.Range != (thermal.Range{Min: 250, Max: 350}) {
		t.Fatal(snap.Range)
	}
	if r, ok := snap.Readings[id]; !ok || r.Temp != 310 {
		t.Fatalf("%+v", r)
	}
	if err := p.Post(RenameMarker{id, "renamed"}); err != nil {
		t.Fatal(err)
	}
	snap, _ = p.Process(encode(t, 1, 300, 310, 320, 330))
	if len(snap.History[id]) != 2 || snap.Markers[2].Label != "renamed" {
		t.Fatalf("%+v", snap.Markers)
	}

	// Duplicate ids are logged and ignored.
	p.Post(AddMarker{ID: id})
	p.Post(RemoveMarker{id})
	p.Post(RemoveMarker{id})
	p.Post(RemoveMarker{p.MinID()})
	snap, err = p.Process(encode(t, 2, 300, 310, 320, 330))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := snap.Readings[id]; ok {
		t.Fatal("removed marker still sampled")
	}
	if _, ok := snap.History[id]; ok {
		t.Fatal("removed marker history kept")
	}
	if len(snap.Markers) != 2 || len(snap.History[p.MinID()]) != 3 {
		t.Fatalf("%+v", snap.Markers)
	}
}

func TestCommands_rotationAndCalibration(t *testing.T) {
	p := newPipeline(t)
	p.Post(SetRotation{thermal.Rotate90})
	p.Post(SetCalibration{frame.FormatY16, frame.Calibration{Scale: 1. / 64, Offset: 10, Min: 200, Max: 900}})
	snap, err := p.Process(encode(t, 0, 300, 310, 320, 330, 340, 350))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Grid.Width != 3 || snap.Grid.Height != 2 || snap.Rotation != thermal.Rotate90 {
		t.Fatal(snap.Grid.Bounds())
	}
	if snap.Range != (thermal.Range{Min: 310, Max: 360}) {
		t.Fatal(snap.Range)
	}
}

func TestCommands_rotationMovesMarkers(t *testing.T) {
	p := newPipeline(t)
	id := uuid.New()
	p.Post(AddMarker{ID: id, Pos: image.Pt(1, 0)})
	data := []struct {
		r   thermal.Rotation
		pos image.Point
	}{
		{thermal.RotateNone, image.Pt(1, 0)},
		{thermal.Rotate90, image.Pt(2, 1)},
		{thermal.Rotate270, image.Pt(0, 0)},
		{thermal.RotateNone, image.Pt(1, 0)},
	}
	for i, line := range data {
		if err := p.Post(SetRotation{line.r}); err != nil {
			t.Fatal(err)
		}
		snap, err := p.Process(encode(t, i, 300, 400, 310, 320, 330, 340))
		if err != nil {
			t.Fatal(err)
		}
		if r := snap.Readings[id]; r.Pos != line.pos || r.Temp != 400 {
			t.Fatalf("#%d %s: %+v", i, line.r, r)
		}
	}
}

func TestFreeze(t *testing.T) {
	p := newPipeline(t)
	if _, err := p.Process(encode(t, 0, 300, 310, 320, 330)); err != nil {
		t.Fatal(err)
	}
	p.Post(Freeze{true})
	snap, err := p.Process(encode(t, 1, 280, 290, 300, 310))
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Frozen || snap.Range != (thermal.Range{Min: 300, Max: 330}) {
		t.Fatalf("%+v", snap)
	}
	if n := len(snap.History[p.MinID()]); n != 1 {
		t.Fatal(n)
	}
	// Decoding still validates the live frames.
	bad := encode(t, 2, 300, 310, 320, 330)
	bad.Format = frame.FormatUnknown
	if _, err := p.Process(bad); !errors.Is(err, frame.ErrUnsupportedFormat) {
		t.Fatal(err)
	}
	p.Post(Freeze{false})
	snap, err = p.Process(encode(t, 3, 280, 290, 300, 310))
	if err != nil {
		t.Fatal(err)
	}
	if snap.Frozen || snap.Range != (thermal.Range{Min: 280, Max: 310}) {
		t.Fatalf("%+v", snap)
	}
	if n := len(snap.History[p.MinID()]); n != 2 {
		t.Fatal(n)
	}
}

func TestFreeze_beforeFirstFrame(t *testing.T) {
	p := newPipeline(t)
	p.Post(Freeze{true})
	for i := 0; i < 3; i++ {
		snap, err := p.Process(encode(t, i, thermal.Kelvin(300+i), 310, 320, 330))
		if err != nil {
			t.Fatal(err)
		}
		if !snap.Frozen || snap.Range.Min != 300 {
			t.Fatalf("#%d: %+v", i, snap.Range)
		}
	}
}

func TestSlot(t *testing.T) {
	s := NewSlot()
	if s.Load() != nil {
		t.Fatal("expected empty")
	}
	got := make(chan *Snapshot)
	go func() {
		got <- s.Wait(1)
	}()
	s.Store(&Snapshot{Seq: 1})
	s.Store(&Snapshot{Seq: 2})
	s.Store(&Snapshot{Seq: 3})
	if snap := <-got; snap.Seq <= 1 {
		t.Fatal(snap.Seq)
	}
	// Replace, don't queue.
	if snap := s.Wait(0); snap.Seq != 3 {
		t.Fatal(snap.Seq)
	}
	go func() {
		got <- s.Wait(3)
	}()
	s.Close()
	if snap := <-got; snap != nil {
		t.Fatal(snap)
	}
	s.Store(&Snapshot{Seq: 4})
	if s.Load().Seq != 3 {
		t.Fatal("store after close")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	c := config.Default()
	c.Rotation = 180
	c.Range.Mode = "clamped"
	opts, err := OptionsFromConfig(c)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Rotation != thermal.Rotate180 || !autorange.IsAuto(opts.Mode) || opts.Bins != 64 || opts.HistoryAge != 5*time.Minute {
		t.Fatalf("%+v", opts)
	}
	if _, err := New(opts); err != nil {
		t.Fatal(err)
	}
	c.Range.Mode = "nope"
	if _, err := OptionsFromConfig(c); err == nil {
		t.Fatal("expected failure")
	}
}
