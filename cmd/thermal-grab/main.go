// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermal-grab captures a single image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"

	"github.com/maruel/go-thermal/config"
	"github.com/maruel/go-thermal/frame"
	"github.com/maruel/go-thermal/pipeline"
	"github.com/maruel/go-thermal/rawio"
	"github.com/maruel/go-thermal/render"
	"github.com/maruel/go-thermal/thermaltest"
	"github.com/maruel/interrupt"
	"github.com/pterm/pterm"
)

// record writes n simulated frames into path.
func record(path string, n int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	got, err := recordFrames(f, thermaltest.NewP2Pro(), n)
	if err != nil {
		return err
	}
	pterm.Success.Printf("Recorded %d frames into %s\n", got, path)
	return f.Close()
}

// recordFrames writes up to n frames of src as a raw dump into w and returns
// the number written. It stops early on Ctrl-C or at the end of src.
func recordFrames(w io.Writer, src thermaltest.Source, n int) (int, error) {
	d, err := rawio.NewWriter(w)
	if err != nil {
		return 0, err
	}
	raw := &frame.Raw{}
	count := 0
	for ; count < n && !interrupt.IsSet(); count++ {
		if err := src.NextFrame(raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			d.Close()
			return count, err
		}
		if err := d.Write(raw); err != nil {
			d.Close()
			return count, err
		}
	}
	return count, d.Close()
}

// grab runs skip+1 frames through the pipeline and returns the last
// snapshot. Running a few frames lets the range tracker settle.
func grab(src thermaltest.Source, opts pipeline.Options, skip int) (*pipeline.Snapshot, error) {
	p, err := pipeline.New(opts)
	if err != nil {
		return nil, err
	}
	defer p.Close()
	raw := &frame.Raw{}
	var snap *pipeline.Snapshot
	for i := 0; i <= skip && !interrupt.IsSet(); i++ {
		if err := src.NextFrame(raw); err != nil {
			if errors.Is(err, io.EOF) && snap != nil {
				break
			}
			return nil, err
		}
		if snap, err = p.Process(raw); err != nil {
			return nil, err
		}
	}
	if snap == nil {
		return nil, errors.New("no frame")
	}
	return snap, nil
}

func printSnapshot(snap *pipeline.Snapshot, bins bool) error {
	u := snap.Unit
	pterm.Info.Printf("%s %dx%d at %s, range %s - %s\n", snap.Format, snap.Grid.Width, snap.Grid.Height, snap.Time.Format("15:04:05.000"), u.Format(snap.Range.Min), u.Format(snap.Range.Max))
	data := pterm.TableData{{"Marker", "Reading"}}
	for _, l := range render.Legend(snap) {
		data = append(data, []string{l[0], l[1]})
	}
	data = append(data, []string{"Mean", u.Format(snap.Summary.Mean)})
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	if !bins {
		return nil
	}
	data = pterm.TableData{{"Low", "High", "Count", "%"}}
	for _, b := range snap.Histogram {
		data = append(data, []string{u.Format(b.Low), u.Format(b.High), fmt.Sprint(b.Count), fmt.Sprintf("%.1f", b.Fraction*100)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func mainImpl() error {
	replay := flag.String("replay", "", "decode from a raw dump instead of the simulated camera")
	raw := flag.Int("raw", 0, "record this number of simulated frames into the path instead of saving a PNG")
	skip := flag.Int("skip", 0, "number of frames to process before the one saved")
	scale := flag.Int("scale", 2, "PNG enlargement factor")
	meta := flag.Bool("meta", false, "print marker readings")
	hist := flag.Bool("hist", false, "print the histogram, implies -meta")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	log.SetFlags(log.Lmicroseconds)

	if flag.NArg() != 1 {
		return errors.New("supply path to PNG to save")
	}
	interrupt.HandleCtrlC()
	if *raw > 0 {
		return record(flag.Arg(0), *raw)
	}

	path, err := config.Path()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	var src thermaltest.Source = thermaltest.NewP2Pro()
	if *replay != "" {
		if src, err = rawio.OpenReplay(*replay); err != nil {
			return err
		}
	}
	defer src.Close()
	snap, err := grab(src, opts, *skip)
	if err != nil {
		return err
	}
	if *meta || *hist {
		if err := printSnapshot(snap, *hist); err != nil {
			return err
		}
	}
	f, err := os.Create(flag.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, render.Overlay(snap, *scale)); err != nil {
		return err
	}
	return f.Close()
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermal-grab: %s.\n", err)
		os.Exit(1)
	}
}
