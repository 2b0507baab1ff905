// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package frame decodes raw frames captured from USB thermal cameras into
// calibrated temperature grids.
//
// The P2 class cameras (Infiray P2 Pro, Thermal Master P2) expose a YUYV
// video stream twice as tall as the sensor: the top half is an AGC'ed grey
// preview and the bottom half carries the raw 16 bits sensor codes, one per
// pixel, little endian, in 1/64 K.
//
// The decoder re-validates every frame; the acquisition layer may change
// resolution or format between two frames.
package frame

import (
	"errors"
	"fmt"
	"time"

	"github.com/maruel/go-thermal/thermal"
)

// Raw is one frame as delivered by the acquisition layer. It must not be
// modified while being decoded.
type Raw struct {
	Data      []byte
	Width     int
	Height    int
	Format    Format
	Timestamp time.Time
}

// Error kinds. Use errors.Is on the error returned by Decoder.Decode.
var (
	ErrSizeMismatch      = errors.New("size mismatch")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptSample     = errors.New("corrupt samples")
)

// DecodeError is returned when a frame can't be decoded. It only affects the
// frame it was returned for.
type DecodeError struct {
	Format Format
	Err    error
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("frame: %s: %s", e.Format, e.Err)
	}
	return fmt.Sprintf("frame: %s: %s: %s", e.Format, e.Err, e.Detail)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DefaultMaxInvalid is the fraction of out of range samples above which a
// frame is rejected.
const DefaultMaxInvalid = 0.5

// Decoder converts Raw frames into thermal.Grid. The zero value is usable and
// uses DefaultCalibration for every format.
type Decoder struct {
	// MaxInvalid is the fraction of flagged samples tolerated in a frame.
	// Zero means DefaultMaxInvalid.
	MaxInvalid float64

	calibrations map[Format]Calibration
}

// Calibration returns the transform used for f.
func (d *Decoder) Calibration(f Format) Calibration {
	if c, ok := d.calibrations[f]; ok {
		return c
	}
	return DefaultCalibration(f)
}

// SetCalibration overrides the transform for f. The caller is expected to
// have validated c.
func (d *Decoder) SetCalibration(f Format, c Calibration) {
	if d.calibrations == nil {
		d.calibrations = map[Format]Calibration{}
	}
	d.calibrations[f] = c
}

// Decode decodes raw. The same bytes always decode to the same grid.
func (d *Decoder) Decode(raw *Raw) (*thermal.Grid, error) {
	l, ok := layoutOf(raw.Format)
	if !ok {
		return nil, &DecodeError{Format: raw.Format, Err: ErrUnsupportedFormat}
	}
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, &DecodeError{Format: raw.Format, Err: ErrSizeMismatch, Detail: fmt.Sprintf("%dx%d", raw.Width, raw.Height)}
	}
	if want := raw.Width * raw.Height * bytesPerSample; len(raw.Data) != want {
		return nil, &DecodeError{Format: raw.Format, Err: ErrSizeMismatch, Detail: fmt.Sprintf("got %d bytes, want %d for %dx%d", len(raw.Data), want, raw.Width, raw.Height)}
	}
	start, rows, ok := l.thermalRows(raw.Height)
	if !ok {
		return nil, &DecodeError{Format: raw.Format, Err: ErrSizeMismatch, Detail: fmt.Sprintf("no thermal block in a %dx%d frame", raw.Width, raw.Height)}
	}
	cal := d.Calibration(raw.Format)
	g := thermal.NewGrid(raw.Width, rows)
	b := raw.Data[start*raw.Width*bytesPerSample:]
	invalid := 0
	for i := range g.Pix {
		k := cal.ToKelvin(l.order.Uint16(b[bytesPerSample*i:]))
		if k < cal.Min || k > cal.Max {
			if k < cal.Min {
				k = cal.Min
			} else {
				k = cal.Max
			}
			g.MarkInvalid(i)
			invalid++
		}
		g.Pix[i] = k
	}
	maxInvalid := d.MaxInvalid
	if maxInvalid <= 0 {
		maxInvalid = DefaultMaxInvalid
	}
	if float64(invalid) > maxInvalid*float64(len(g.Pix)) {
		return nil, &DecodeError{Format: raw.Format, Err: ErrCorruptSample, Detail: fmt.Sprintf("%d of %d samples out of the sensor range", invalid, len(g.Pix))}
	}
	return g, nil
}

// Encode is the inverse of Decode: it produces a raw frame in format f that
// decodes back to g within one code step. The preview block, when the
// format has one, is filled with a linear grey AGC of g.
func Encode(g *thermal.Grid, f Format, cal Calibration, ts time.Time) (*Raw, error) {
	l, ok := layoutOf(f)
	if !ok {
		return nil, &DecodeError{Format: f, Err: ErrUnsupportedFormat}
	}
	h := l.frameHeight(g.Height)
	raw := &Raw{
		Data:      make([]byte, g.Width*h*bytesPerSample),
		Width:     g.Width,
		Height:    h,
		Format:    f,
		Timestamp: ts,
	}
	start, _, _ := l.thermalRows(h)
	b := raw.Data[start*g.Width*bytesPerSample:]
	for i, k := range g.Pix {
		l.order.PutUint16(b[bytesPerSample*i:], cal.ToCode(k))
	}
	if l.preview {
		encodePreview(raw.Data[:g.Len()*bytesPerSample], g)
	}
	return raw, nil
}

// encodePreview writes g as YUYV grey, scaled linearly between its extrema.
func encodePreview(dst []byte, g *thermal.Grid) {
	r, ok := g.Observed()
	if !ok {
		return
	}
	delta := float64(r.Span())
	for i, k := range g.Pix {
		y := byte(0)
		if delta > 0 {
			y = byte(float64(k-r.Min) * 255 / delta)
		}
		dst[2*i] = y
		dst[2*i+1] = 128
	}
}
