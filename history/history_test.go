// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package history

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/go-thermal/marker"
	"github.com/maruel/go-thermal/thermal"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func reading(id marker.ID, sec int) map[marker.ID]marker.Reading {
	return map[marker.ID]marker.Reading{
		id: {ID: id, Time: epoch.Add(time.Duration(sec) * time.Second), Temp: thermal.Kelvin(sec)},
	}
}

func TestRecord_maxCount(t *testing.T) {
	id := uuid.New()
	r := Recorder{MaxCount: 5}
	for i := 0; i < 37; i++ {
		r.Record(reading(id, i))
		if n := r.Len(id); n > 5 {
			t.Fatalf("#%d: %d entries", i, n)
		}
	}
	h := r.History(id)
	if len(h) != 5 {
		t.Fatal(len(h))
	}
	for i, rd := range h {
		if rd.Temp != thermal.Kelvin(32+i) {
			t.Fatalf("#%d: %v", i, rd.Temp)
		}
	}
	if l, ok := r.Latest(id); !ok || l.Temp != 36 {
		t.Fatal(l, ok)
	}
}

func TestRecord_maxAge(t *testing.T) {
	id := uuid.New()
	r := Recorder{MaxAge: 10 * time.Second}
	for i := 0; i < 100; i++ {
		r.Record(reading(id, i))
	}
	h := r.History(id)
	if len(h) != 11 || h[0].Temp != 89 || h[10].Temp != 99 {
		t.Fatal(len(h), h[0].Temp)
	}
}

func TestRecord_unbounded(t *testing.T) {
	id := uuid.New()
	var r Recorder
	for i := 0; i < 1000; i++ {
		r.Record(reading(id, i))
	}
	h := r.History(id)
	if len(h) != 1000 {
		t.Fatal(len(h))
	}
	for i := range h {
		if h[i].Temp != thermal.Kelvin(i) {
			t.Fatalf("#%d: %v", i, h[i].Temp)
		}
	}
}

func TestRecord_outOfOrder(t *testing.T) {
	id := uuid.New()
	var r Recorder
	r.Record(reading(id, 5))
	r.Record(reading(id, 4))
	r.Record(reading(id, 5))
	if n := r.Len(id); n != 2 {
		t.Fatal(n)
	}
}

func TestHistory_snapshot(t *testing.T) {
	id := uuid.New()
	r := Recorder{MaxCount: 3}
	for i := 0; i < 3; i++ {
		r.Record(reading(id, i))
	}
	h := r.History(id)
	r.Record(reading(id, 3))
	h[0].Temp = -1
	if h2 := r.History(id); h2[0].Temp != 1 {
		t.Fatal(h2)
	}
	if h[1].Temp != 1 || h[2].Temp != 2 {
		t.Fatal("snapshot changed after a later Record")
	}
	if r.History(uuid.New()) != nil {
		t.Fatal("unknown id")
	}
}

func TestSnapshot_unchangedByRecord(t *testing.T) {
	for _, r := range []*Recorder{{MaxCount: 3}, {MaxAge: 2 * time.Second}, {}} {
		id := uuid.New()
		for i := 0; i < 3; i++ {
			r.Record(reading(id, i))
		}
		s := r.Snapshot()[id]
		if x := append(s, marker.Reading{Temp: -1}); &x[0] == &s[0] {
			t.Fatal("view is not capped")
		}
		var mid []marker.Reading
		for i := 3; i < 100; i++ {
			r.Record(reading(id, i))
			if i == 50 {
				mid = r.Snapshot()[id]
			}
		}
		if len(s) != 3 {
			t.Fatal(len(s))
		}
		for j, rd := range s {
			if rd.Temp != thermal.Kelvin(j) {
				t.Fatalf("%+v #%d: %v", r, j, rd.Temp)
			}
		}
		h := r.History(id)
		if len(mid) == 0 || mid[len(mid)-1].Temp != 50 || h[len(h)-1].Temp != 99 {
			t.Fatalf("%+v: %v %v", r, mid, h)
		}
		for j := 1; j < len(mid); j++ {
			if mid[j].Temp != mid[j-1].Temp+1 {
				t.Fatalf("%+v: %v", r, mid)
			}
		}
	}
}

func TestBetween(t *testing.T) {
	id := uuid.New()
	r := Recorder{MaxCount: 8}
	for i := 0; i < 20; i++ {
		r.Record(reading(id, i))
	}
	at := func(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }
	data := []struct {
		from, to int
		want     []thermal.Kelvin
	}{
		{14, 16, []thermal.Kelvin{14, 15, 16}},
		{0, 12, []thermal.Kelvin{12}},
		{19, 30, []thermal.Kelvin{19}},
		{0, 11, nil},
		{16, 14, nil},
	}
	for i, line := range data {
		got := r.Between(id, at(line.from), at(line.to))
		if len(got) != len(line.want) {
			t.Fatalf("#%d: %v", i, got)
		}
		for j := range got {
			if got[j].Temp != line.want[j] {
				t.Fatalf("#%d: %v", i, got)
			}
		}
	}
}

func TestRemoveRetain(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	var r Recorder
	for _, id := range []marker.ID{a, b, c} {
		r.Record(reading(id, 1))
	}
	r.Remove(a)
	r.Remove(a)
	if r.Len(a) != 0 || len(r.IDs()) != 2 {
		t.Fatal(r.IDs())
	}
	r.Retain([]marker.ID{c})
	ids := r.IDs()
	if len(ids) != 1 || ids[0] != c {
		t.Fatal(ids)
	}
	s := r.Snapshot()
	if len(s) != 1 || len(s[c]) != 1 {
		t.Fatal(s)
	}
}
