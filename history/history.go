// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package history keeps bounded per-marker time series of readings.
package history

import (
	"sort"
	"time"

	"github.com/maruel/go-thermal/marker"
)

// Recorder accumulates marker readings into one series per marker.
//
// Each series is bounded by MaxCount entries and by MaxAge relative to its
// newest entry; the oldest entries violating either bound are evicted. A
// zero bound is disabled. Set both before the first Record.
//
// It is not safe for concurrent use.
type Recorder struct {
	MaxCount int
	MaxAge   time.Duration

	series map[marker.ID]*series
}

// Record appends each reading to its marker's series. A reading older than
// the newest entry of its series is dropped, keeping series ordered.
func (r *Recorder) Record(readings map[marker.ID]marker.Reading) {
	if r.series == nil {
		r.series = map[marker.ID]*series{}
	}
	for id, rd := range readings {
		s := r.series[id]
		if s == nil {
			s = &series{}
			r.series[id] = s
		}
		if s.len() != 0 && rd.Time.Before(s.at(s.len()-1).Time) {
			continue
		}
		s.push(rd, r.MaxCount)
		if r.MaxAge > 0 {
			limit := rd.Time.Add(-r.MaxAge)
			for s.len() > 1 && s.at(0).Time.Before(limit) {
				s.start++
			}
		}
	}
}

// History returns a copy of the series, oldest first. It is nil for an
// unknown marker.
func (r *Recorder) History(id marker.ID) []marker.Reading {
	s := r.series[id]
	if s == nil {
		return nil
	}
	return s.slice(0, s.len())
}

// Between returns a copy of the entries with from <= Time <= to, oldest
// first.
func (r *Recorder) Between(id marker.ID, from, to time.Time) []marker.Reading {
	s := r.series[id]
	if s == nil || to.Before(from) {
		return nil
	}
	lo := sort.Search(s.len(), func(i int) bool { return !s.at(i).Time.Before(from) })
	hi := sort.Search(s.len(), func(i int) bool { return s.at(i).Time.After(to) })
	if lo >= hi {
		return nil
	}
	return s.slice(lo, hi)
}

// Latest returns the newest entry of a series.
func (r *Recorder) Latest(id marker.ID) (marker.Reading, bool) {
	s := r.series[id]
	if s == nil || s.len() == 0 {
		return marker.Reading{}, false
	}
	return s.at(s.len() - 1), true
}

// Len returns the number of entries retained for a marker.
func (r *Recorder) Len(id marker.ID) int {
	if s := r.series[id]; s != nil {
		return s.len()
	}
	return 0
}

// Remove purges a marker's series.
func (r *Recorder) Remove(id marker.ID) {
	delete(r.series, id)
}

// Retain purges every series whose marker is not in ids.
func (r *Recorder) Retain(ids []marker.ID) {
	keep := make(map[marker.ID]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	for id := range r.series {
		if _, ok := keep[id]; !ok {
			delete(r.series, id)
		}
	}
}

// IDs returns the markers having a series, in no particular order.
func (r *Recorder) IDs() []marker.ID {
	out := make([]marker.ID, 0, len(r.series))
	for id := range r.series {
		out = append(out, id)
	}
	return out
}

// Snapshot returns every series, oldest first, without copying them.
//
// The slices share storage with the recorder and must not be modified. Later
// calls to Record never change what they contain, so they can be handed to
// other goroutines.
func (r *Recorder) Snapshot() map[marker.ID][]marker.Reading {
	out := make(map[marker.ID][]marker.Reading, len(r.series))
	for id, s := range r.series {
		out[id] = s.view()
	}
	return out
}

// series is an append-only buffer; buf[start:] holds the live entries.
//
// Entries before len(buf) are never written again: evicting only advances
// start and new entries go past len(buf), into a new array once the current
// one is full.
type series struct {
	buf   []marker.Reading
	start int
}

func (s *series) len() int {
	return len(s.buf) - s.start
}

func (s *series) at(i int) marker.Reading {
	return s.buf[s.start+i]
}

// push appends v, evicting the oldest entries so at most max are stored.
// max <= 0 means unbounded.
func (s *series) push(v marker.Reading, max int) {
	if max > 0 && s.len() >= max {
		s.start += s.len() - max + 1
	}
	if len(s.buf) == cap(s.buf) && s.start > 0 {
		// Compact into a new array; the old one may still be referenced.
		n := s.len()
		c := 2 * (n + 1)
		if c < 16 {
			c = 16
		}
		buf := make([]marker.Reading, n, c)
		copy(buf, s.buf[s.start:])
		s.buf = buf
		s.start = 0
	}
	s.buf = append(s.buf, v)
}

func (s *series) view() []marker.Reading {
	return s.buf[s.start:len(s.buf):len(s.buf)]
}

func (s *series) slice(lo, hi int) []marker.Reading {
	return append([]marker.Reading(nil), s.buf[s.start+lo:s.start+hi]...)
}
