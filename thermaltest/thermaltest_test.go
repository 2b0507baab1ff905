// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermaltest

import (
	"errors"
	"testing"

	"github.com/maruel/go-thermal/frame"
)

func TestFake(t *testing.T) {
	f := NewP2Pro()
	cal := frame.DefaultCalibration(frame.FormatP2Pro)
	var d frame.Decoder
	var raw frame.Raw
	for i := 0; i < 3; i++ {
		if err := f.NextFrame(&raw); err != nil {
			t.Fatal(err)
		}
		if raw.Width != 256 || raw.Height != 384 || raw.Format != frame.FormatP2Pro {
			t.Fatalf("%dx%d %s", raw.Width, raw.Height, raw.Format)
		}
		g, err := d.Decode(&raw)
		if err != nil {
			t.Fatal(err)
		}
		worst, err := cal.Check(&raw, f.Grid())
		if err != nil {
			t.Fatal(err)
		}
		if worst > 1./64 {
			t.Fatal(worst)
		}
		if g.InvalidCount() != 0 {
			t.Fatal("scene is within the sensor range")
		}
	}
	if f.Count() != 3 {
		t.Fatal(f.Count())
	}
}

func TestFake_deterministic(t *testing.T) {
	a, b := New(frame.FormatY16, 32, 24), New(frame.FormatY16, 32, 24)
	var ra, rb frame.Raw
	for i := 0; i < 5; i++ {
		if err := a.NextFrame(&ra); err != nil {
			t.Fatal(err)
		}
		if err := b.NextFrame(&rb); err != nil {
			t.Fatal(err)
		}
	}
	if string(ra.Data) != string(rb.Data) {
		t.Fatal("fakes diverged")
	}
}

func TestFake_corrupt(t *testing.T) {
	f := New(frame.FormatY16, 8, 8)
	f.CorruptEvery = 2
	var d frame.Decoder
	var raw frame.Raw
	for i := 1; i <= 4; i++ {
		if err := f.NextFrame(&raw); err != nil {
			t.Fatal(err)
		}
		_, err := d.Decode(&raw)
		if i%2 == 0 {
			if !errors.Is(err, frame.ErrSizeMismatch) {
				t.Fatalf("#%d: %v", i, err)
			}
		} else if err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
	}
}
