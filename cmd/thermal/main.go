// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermal runs a thermal camera stream through the analysis pipeline and
// serves it over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/maruel/go-thermal/config"
	"github.com/maruel/go-thermal/frame"
	"github.com/maruel/go-thermal/pipeline"
	"github.com/maruel/go-thermal/rawio"
	"github.com/maruel/go-thermal/thermaltest"
	"github.com/maruel/interrupt"
	"github.com/pterm/pterm"
)

// openSource returns the replayed dump at path, or the simulated camera when
// path is empty.
func openSource(path string, fps int, loop bool) (thermaltest.Source, error) {
	if path == "" {
		f := thermaltest.NewP2Pro()
		if fps > 0 {
			f.Interval = time.Second / time.Duration(fps)
		}
		return f, nil
	}
	r, err := rawio.OpenReplay(path)
	if err != nil {
		return nil, err
	}
	r.Loop = loop
	r.Realtime = true
	return r, nil
}

// capture feeds the pipeline until the source is exhausted or Ctrl-C.
func capture(src thermaltest.Source, p *pipeline.Pipeline, rec *rawio.Writer) error {
	raw := &frame.Raw{}
	for !interrupt.IsSet() {
		if err := src.NextFrame(raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if rec != nil {
			if err := rec.Write(raw); err != nil {
				return err
			}
		}
		if _, err := p.Process(raw); err != nil {
			log.Printf("frame: %v", err)
		}
	}
	return nil
}

// applyConfig queues the settings of a reloaded configuration.
func applyConfig(p *pipeline.Pipeline, s *WebServer, c *config.Config) {
	opts, err := pipeline.OptionsFromConfig(c)
	if err != nil {
		log.Printf("config: %v", err)
		return
	}
	if all, err := c.AllGradients(); err == nil {
		s.SetGradients(all)
	}
	cmds := []pipeline.Command{
		pipeline.SetUnit{Unit: opts.Unit},
		pipeline.SetGradient{Gradient: opts.Gradient},
		pipeline.SetRangeMode{Mode: opts.Mode},
		pipeline.SetBins{N: opts.Bins},
		pipeline.SetRotation{Rotation: opts.Rotation},
	}
	for f, cal := range opts.Calibrations {
		cmds = append(cmds, pipeline.SetCalibration{Format: f, Calibration: cal})
	}
	for _, cmd := range cmds {
		if err := p.Post(cmd); err != nil {
			log.Printf("config: %T: %v", cmd, err)
		}
	}
	pterm.Info.Println("Configuration reloaded")
}

func mainImpl() error {
	cpuprofile := flag.String("cpuprofile", "", "dump CPU profile in file")
	port := flag.Int("port", 0, "http port to listen on; defaults to the config value")
	replay := flag.String("replay", "", "replay a raw dump instead of the simulated camera")
	loop := flag.Bool("loop", true, "restart the replay at the end of the dump")
	record := flag.String("record", "", "record the raw frames into this file")
	fps := flag.Int("fps", 25, "simulated camera frame rate")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			return err
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	interrupt.HandleCtrlC()

	path, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	gradients, err := cfg.AllGradients()
	if err != nil {
		return err
	}
	p, err := pipeline.New(opts)
	if err != nil {
		return err
	}
	defer p.Close()

	src, err := openSource(*replay, *fps, *loop)
	if err != nil {
		return err
	}
	defer src.Close()
	var rec *rawio.Writer
	if *record != "" {
		f, err := os.Create(*record)
		if err != nil {
			return err
		}
		defer f.Close()
		if rec, err = rawio.NewWriter(f); err != nil {
			return err
		}
		defer rec.Close()
	}

	s := StartWebServer(cfg.Port, p, gradients)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := config.Watch(ctx, path, cfg, func(c *config.Config) { applyConfig(p, s, c) }); err != nil {
			log.Printf("watch: %v", err)
		}
	}()

	done := make(chan error, 1)
	go func() {
		done <- capture(src, p, rec)
	}()

	area, err := pterm.DefaultArea.Start()
	if err != nil {
		return err
	}
	defer area.Stop()
	t := time.NewTicker(time.Second)
	defer t.Stop()
	last := 0
	for {
		select {
		case <-interrupt.Channel:
			// Let capture stop before the recorder is closed.
			return <-done
		case err := <-done:
			if err != nil {
				pterm.Error.Println(err)
			}
			return err
		case <-t.C:
		}
		st := p.Stats()
		line := fmt.Sprintf("%d frames %d/s %d failed", st.GoodFrames, st.GoodFrames-last, st.FailedFrames)
		if st.LastFail != nil {
			line += fmt.Sprintf(" (last: %v)", st.LastFail)
		}
		if snap := p.Slot().Load(); snap != nil {
			line += fmt.Sprintf("\n%s  %s - %s  mean %s", snap.Mode, snap.Unit.Format(snap.Summary.Min), snap.Unit.Format(snap.Summary.Max), snap.Unit.Format(snap.Summary.Mean))
			if snap.Frozen {
				line += "  frozen"
			}
		}
		last = st.GoodFrames
		area.Update(line)
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermal: %s.\n", err)
		os.Exit(1)
	}
}
