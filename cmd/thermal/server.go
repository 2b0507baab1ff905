// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/go-thermal/autorange"
	"github.com/maruel/go-thermal/marker"
	"github.com/maruel/go-thermal/palette"
	"github.com/maruel/go-thermal/pipeline"
	"github.com/maruel/go-thermal/render"
	"github.com/maruel/go-thermal/thermal"
	"golang.org/x/net/websocket"
)

//go:embed static
var static embed.FS

func read(name string) []byte {
	b, err := static.ReadFile("static/" + name)
	if err != nil {
		panic(err)
	}
	return b
}

// WebServer serves the published snapshots and forwards the user requests
// to the pipeline.
type WebServer struct {
	p *pipeline.Pipeline

	mu        sync.Mutex
	gradients []palette.Gradient
}

func newWebServer(p *pipeline.Pipeline, gradients []palette.Gradient) *WebServer {
	return &WebServer{p: p, gradients: gradients}
}

// StartWebServer listens on port in the background.
func StartWebServer(port int, p *pipeline.Pipeline, gradients []palette.Gradient) *WebServer {
	s := newWebServer(p, gradients)
	fmt.Printf("Listening on %d\n", port)
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), loggingHandler{s.mux()}); err != nil {
			log.Printf("http: %v", err)
		}
	}()
	return s
}

// SetGradients replaces the gradients selectable by name.
func (s *WebServer) SetGradients(g []palette.Gradient) {
	s.mu.Lock()
	s.gradients = g
	s.mu.Unlock()
}

func (s *WebServer) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.root)
	mux.HandleFunc("/favicon.ico", s.favicon)
	mux.HandleFunc("/still.png", s.still)
	mux.HandleFunc("/chart.png", s.chart)
	mux.HandleFunc("/histogram.png", s.histogram)
	mux.Handle("/stream", websocket.Handler(s.stream))
	mux.HandleFunc("/api/state", s.state)
	mux.HandleFunc("/api/gradients", s.listGradients)
	mux.HandleFunc("/api/unit", s.post(s.setUnit))
	mux.HandleFunc("/api/gradient", s.post(s.setGradient))
	mux.HandleFunc("/api/range", s.post(s.setRange))
	mux.HandleFunc("/api/bins", s.post(s.setBins))
	mux.HandleFunc("/api/rotate", s.post(s.rotate))
	mux.HandleFunc("/api/freeze", s.post(s.freeze))
	mux.HandleFunc("/api/marker", s.post(s.addMarker))
	mux.HandleFunc("/api/marker/remove", s.post(s.removeMarker))
	mux.HandleFunc("/api/marker/rename", s.post(s.renameMarker))
	return mux
}

func (s *WebServer) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	if _, err := w.Write(read("root.html")); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *WebServer) favicon(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := png.Encode(w, snap.Image); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *WebServer) still(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	scale := 3
	if v := r.FormValue("scale"); v != "" {
		var err error
		if scale, err = strconv.Atoi(v); err != nil || scale < 1 || scale > 8 {
			http.Error(w, "invalid scale", http.StatusBadRequest)
			return
		}
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	if err := png.Encode(w, render.Overlay(snap, scale)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *WebServer) chart(w http.ResponseWriter, r *http.Request) {
	s.renderChart(w, r, render.HistoryChart)
}

func (s *WebServer) histogram(w http.ResponseWriter, r *http.Request) {
	s.renderChart(w, r, render.HistogramChart)
}

func (s *WebServer) renderChart(w http.ResponseWriter, r *http.Request, fn func(w io.Writer, snap *pipeline.Snapshot, width, height int) error) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	width, height := 640, 320
	if v, err := strconv.Atoi(r.FormValue("w")); err == nil && v >= 100 && v <= 4096 {
		width = v
	}
	if v, err := strconv.Atoi(r.FormValue("h")); err == nil && v >= 100 && v <= 4096 {
		height = v
	}
	var buf bytes.Buffer
	if err := fn(&buf, snap, width, height); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, render.ErrNoData) {
			code = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), code)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Write(buf.Bytes())
}

// stream sends every snapshot as WebSocket frames. A slow client skips
// snapshots.
func (s *WebServer) stream(w *websocket.Conn) {
	log.Printf("websocket from %s", w.Request().RemoteAddr)
	defer w.Close()
	buf := &bytes.Buffer{}
	var seq uint64
	for {
		snap := s.p.Slot().Wait(seq)
		if snap == nil {
			return
		}
		seq = snap.Seq
		// Frame I is for Image.
		buf.WriteString("I")
		encoder := base64.NewEncoder(base64.StdEncoding, buf)
		err := png.Encode(encoder, snap.Image)
		if err == nil {
			encoder.Close()
			_, err = w.Write(buf.Bytes())
		}
		buf.Reset()
		// Frame M is for Metadata.
		if err == nil {
			buf.WriteString("M")
			if err = json.NewEncoder(buf).Encode(s.metadata(snap)); err == nil {
				_, err = w.Write(buf.Bytes())
			}
			buf.Reset()
		}
		if err != nil {
			log.Printf("websocket err: %s", err)
			return
		}
	}
}

func (s *WebServer) state(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, s.metadata(snap))
}

func (s *WebServer) listGradients(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	names := make([]string, 0, len(s.gradients))
	for _, g := range s.gradients {
		names = append(names, g.Name)
	}
	s.mu.Unlock()
	writeJSON(w, names)
}

// snapshot returns the latest snapshot or replies 503.
func (s *WebServer) snapshot(w http.ResponseWriter) *pipeline.Snapshot {
	snap := s.p.Slot().Load()
	if snap == nil {
		http.Error(w, "no frame yet", http.StatusServiceUnavailable)
	}
	return snap
}

// Requests.

// post wraps a handler that converts a form into a command. The reply is the
// handler's JSON value.
func (s *WebServer) post(fn func(r *http.Request) (pipeline.Command, any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}
		cmd, reply, err := fn(r)
		if err == nil {
			err = s.p.Post(cmd)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if reply == nil {
			reply = struct{}{}
		}
		writeJSON(w, reply)
	}
}

func (s *WebServer) setUnit(r *http.Request) (pipeline.Command, any, error) {
	u, err := thermal.ParseUnit(r.FormValue("unit"))
	return pipeline.SetUnit{Unit: u}, nil, err
}

func (s *WebServer) setGradient(r *http.Request) (pipeline.Command, any, error) {
	name := r.FormValue("name")
	s.mu.Lock()
	defer s.mu.Unlock()
	// The last definition of a name wins.
	for i := len(s.gradients) - 1; i >= 0; i-- {
		if s.gradients[i].Name == name {
			return pipeline.SetGradient{Gradient: s.gradients[i]}, nil, nil
		}
	}
	return nil, nil, fmt.Errorf("unknown gradient %q", name)
}

// setRange accepts mode=auto, or mode=clamped|fixed with min and max in the
// current display unit.
func (s *WebServer) setRange(r *http.Request) (pipeline.Command, any, error) {
	mode := r.FormValue("mode")
	if mode == "auto" {
		return pipeline.SetRangeMode{Mode: autorange.Auto()}, nil, nil
	}
	unit := thermal.UnitKelvin
	if snap := s.p.Slot().Load(); snap != nil {
		unit = snap.Unit
	}
	lo, err1 := strconv.ParseFloat(r.FormValue("min"), 64)
	hi, err2 := strconv.ParseFloat(r.FormValue("max"), 64)
	if err := errors.Join(err1, err2); err != nil {
		return nil, nil, err
	}
	var m autorange.Mode
	var err error
	switch mode {
	case "clamped":
		m, err = autorange.AutoClamped(unit.ToKelvin(lo), unit.ToKelvin(hi))
	case "fixed":
		m, err = autorange.Fixed(unit.ToKelvin(lo), unit.ToKelvin(hi))
	default:
		err = fmt.Errorf("unknown range mode %q", mode)
	}
	return pipeline.SetRangeMode{Mode: m}, nil, err
}

func (s *WebServer) setBins(r *http.Request) (pipeline.Command, any, error) {
	n, err := strconv.Atoi(r.FormValue("n"))
	return pipeline.SetBins{N: n}, nil, err
}

// rotate accepts dir=cw or dir=ccw.
func (s *WebServer) rotate(r *http.Request) (pipeline.Command, any, error) {
	var cur thermal.Rotation
	if snap := s.p.Slot().Load(); snap != nil {
		cur = snap.Rotation
	}
	switch r.FormValue("dir") {
	case "cw":
		return pipeline.SetRotation{Rotation: cur.Next()}, nil, nil
	case "ccw":
		return pipeline.SetRotation{Rotation: cur.Prev()}, nil, nil
	default:
		return nil, nil, errors.New("dir must be cw or ccw")
	}
}

func (s *WebServer) freeze(r *http.Request) (pipeline.Command, any, error) {
	on, err := strconv.ParseBool(r.FormValue("on"))
	return pipeline.Freeze{On: on}, nil, err
}

// addMarker accepts x and y in grid coordinates, or kind=average.
func (s *WebServer) addMarker(r *http.Request) (pipeline.Command, any, error) {
	c := pipeline.AddMarker{ID: uuid.New(), Label: r.FormValue("label")}
	if r.FormValue("kind") == "average" {
		c.Kind = marker.Average
	} else {
		x, err1 := strconv.Atoi(r.FormValue("x"))
		y, err2 := strconv.Atoi(r.FormValue("y"))
		if err := errors.Join(err1, err2); err != nil {
			return nil, nil, err
		}
		c.Pos = image.Pt(x, y)
	}
	return c, map[string]string{"ID": c.ID.String()}, nil
}

func (s *WebServer) removeMarker(r *http.Request) (pipeline.Command, any, error) {
	id, err := uuid.Parse(r.FormValue("id"))
	return pipeline.RemoveMarker{ID: id}, nil, err
}

func (s *WebServer) renameMarker(r *http.Request) (pipeline.Command, any, error) {
	id, err := uuid.Parse(r.FormValue("id"))
	return pipeline.RenameMarker{ID: id, Label: r.FormValue("label")}, nil, err
}

// Metadata.

type markerMeta struct {
	ID    string
	Kind  string
	Label string
	X, Y  int
	Temp  float64
}

type metadata struct {
	Seq      uint64
	Time     time.Time
	Format   string
	Width    int
	Height   int
	Unit     string
	Min      float64
	Max      float64
	Mean     float64
	RangeMin float64
	RangeMax float64
	Invalid  int
	Mode     string
	Gradient string
	Rotation string
	Frozen   bool
	Markers  []markerMeta
	Good     int
	Failed   int
	LastFail string `json:",omitempty"`
}

// metadata converts temperatures to the display unit.
func (s *WebServer) metadata(snap *pipeline.Snapshot) *metadata {
	u := snap.Unit
	m := &metadata{
		Seq:      snap.Seq,
		Time:     snap.Time,
		Format:   snap.Format.String(),
		Width:    snap.Grid.Width,
		Height:   snap.Grid.Height,
		Unit:     u.Suffix(),
		Min:      u.FromKelvin(snap.Summary.Min),
		Max:      u.FromKelvin(snap.Summary.Max),
		Mean:     u.FromKelvin(snap.Summary.Mean),
		RangeMin: u.FromKelvin(snap.Range.Min),
		RangeMax: u.FromKelvin(snap.Range.Max),
		Invalid:  snap.Summary.Invalid,
		Mode:     snap.Mode,
		Gradient: snap.Gradient,
		Rotation: snap.Rotation.String(),
		Frozen:   snap.Frozen,
	}
	for _, mk := range snap.Markers {
		r, ok := snap.Readings[mk.ID]
		if !ok {
			continue
		}
		m.Markers = append(m.Markers, markerMeta{
			ID:    mk.ID.String(),
			Kind:  mk.Kind.String(),
			Label: mk.Label,
			X:     r.Pos.X,
			Y:     r.Pos.Y,
			Temp:  u.FromKelvin(r.Temp),
		})
	}
	st := s.p.Stats()
	m.Good = st.GoodFrames
	m.Failed = st.FailedFrames
	if st.LastFail != nil {
		m.LastFail = st.LastFail.Error()
	}
	return m
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json: %v", err)
	}
}

// Private details.

type loggingHandler struct {
	handler http.Handler
}

type loggingResponseWriter struct {
	http.ResponseWriter
	length int
	status int
}

func (l *loggingResponseWriter) Write(data []byte) (size int, err error) {
	size, err = l.ResponseWriter.Write(data)
	l.length += size
	return
}

func (l *loggingResponseWriter) WriteHeader(status int) {
	l.ResponseWriter.WriteHeader(status)
	l.status = status
}

// Hijack is needed for websocket.
func (l *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h := l.ResponseWriter.(http.Hijacker)
	return h.Hijack()
}

// ServeHTTP logs each HTTP request if -v is passed.
func (l loggingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lrw := &loggingResponseWriter{ResponseWriter: w}
	l.handler.ServeHTTP(lrw, r)
	log.Printf("%s - %3d %6db %4s %s\n", r.RemoteAddr, lrw.status, lrw.length, r.Method, r.RequestURI)
}
