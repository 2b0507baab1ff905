// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package rawio

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/maruel/go-thermal/frame"
)

// Replay plays back a dump file as a frame source.
type Replay struct {
	// Loop restarts from the first frame at the end of the dump.
	Loop bool
	// Realtime sleeps between frames as long as they were apart when
	// recorded, capped to one second.
	Realtime bool

	path  string
	f     *os.File
	r     *Reader
	last  time.Time
	count int
}

// OpenReplay opens the dump at path.
func OpenReplay(path string) (*Replay, error) {
	r := &Replay{path: path}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

// NextFrame reads the next frame. It returns io.EOF at the end of the dump
// unless Loop is set.
func (r *Replay) NextFrame(raw *frame.Raw) error {
	err := r.r.Next(raw)
	if errors.Is(err, io.EOF) && r.Loop && r.count != 0 {
		if err = r.reopen(); err == nil {
			err = r.r.Next(raw)
		}
	}
	if err != nil {
		return err
	}
	r.count++
	if r.Realtime && !r.last.IsZero() {
		if d := raw.Timestamp.Sub(r.last); d > 0 {
			if d > time.Second {
				d = time.Second
			}
			time.Sleep(d)
		}
	}
	r.last = raw.Timestamp
	return nil
}

// Close closes the dump file.
func (r *Replay) Close() error {
	r.r.Close()
	return r.f.Close()
}

//

func (r *Replay) open() error {
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	rd, err := NewReader(f)
	if err != nil {
		f.Close()
		return err
	}
	r.f = f
	r.r = rd
	return nil
}

func (r *Replay) reopen() error {
	if err := r.Close(); err != nil {
		return err
	}
	r.last = time.Time{}
	return r.open()
}
