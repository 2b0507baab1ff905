// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pipeline

import "sync"

// Slot holds the latest Snapshot. A new snapshot replaces the previous one;
// a reader that is too slow skips frames instead of queueing them.
//
// There is a single writer, the Pipeline, and any number of readers.
type Slot struct {
	cond   *sync.Cond
	snap   *Snapshot
	closed bool
}

// NewSlot returns an empty Slot.
func NewSlot() *Slot {
	return &Slot{cond: sync.NewCond(&sync.Mutex{})}
}

// Store publishes snap and wakes up the waiting readers. It is ignored once
// the slot is closed.
func (s *Slot) Store(snap *Snapshot) {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	if s.closed {
		return
	}
	s.snap = snap
	s.cond.Broadcast()
}

// Load returns the latest snapshot, nil if none was published yet.
func (s *Slot) Load() *Snapshot {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	return s.snap
}

// Wait blocks until a snapshot with a sequence number greater than after is
// available and returns it. It returns nil once the slot is closed.
func (s *Slot) Wait(after uint64) *Snapshot {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	for !s.closed && (s.snap == nil || s.snap.Seq <= after) {
		s.cond.Wait()
	}
	if s.closed {
		return nil
	}
	return s.snap
}

// Close wakes up every reader. Wait returns nil afterward.
func (s *Slot) Close() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.closed = true
	s.cond.Broadcast()
}
