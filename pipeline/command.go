// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pipeline

import (
	"errors"
	"fmt"
	"image"

	"github.com/maruel/go-thermal/autorange"
	"github.com/maruel/go-thermal/frame"
	"github.com/maruel/go-thermal/marker"
	"github.com/maruel/go-thermal/palette"
	"github.com/maruel/go-thermal/stats"
	"github.com/maruel/go-thermal/thermal"
)

// Command is a user request applied between two frames. Use Pipeline.Post
// to queue one.
type Command interface {
	// validate rejects the command before it is queued.
	validate() error
	apply(p *Pipeline) error
}

// SetUnit changes the display unit. The grid stays in Kelvin.
type SetUnit struct {
	Unit thermal.Unit
}

// SetGradient selects the gradient used for the following frames.
type SetGradient struct {
	Gradient palette.Gradient
}

// SetCurve selects the dynamic range curve.
type SetCurve struct {
	Curve palette.Curve
}

// SetRangeMode changes how the display range is derived.
type SetRangeMode struct {
	Mode autorange.Mode
}

// AddMarker adds a User or Average marker. ID must be unique; generate it
// with uuid.New() so the caller knows it before the command is applied.
type AddMarker struct {
	ID    marker.ID
	Kind  marker.Kind
	Pos   image.Point
	Label string
}

// RemoveMarker removes a marker and its history. Unknown ids are ignored.
type RemoveMarker struct {
	ID marker.ID
}

// RenameMarker changes a marker label.
type RenameMarker struct {
	ID    marker.ID
	Label string
}

// SetBins changes the histogram bucket count.
type SetBins struct {
	N int
}

// SetRotation changes the orientation of the grid. User markers move with
// the image.
type SetRotation struct {
	Rotation thermal.Rotation
}

// SetCalibration overrides the decoding transform for a format.
type SetCalibration struct {
	Format      frame.Format
	Calibration frame.Calibration
}

// Freeze holds the last decoded frame when On is true. Frames keep being
// decoded but the analysis runs over the held grid and the history is not
// recorded, until a Freeze with On false.
type Freeze struct {
	On bool
}

func (c SetUnit) validate() error {
	if c.Unit > thermal.UnitFahrenheit {
		return fmt.Errorf("pipeline: %w: %s", thermal.ErrUnknownUnit, c.Unit)
	}
	return nil
}

func (c SetUnit) apply(p *Pipeline) error {
	p.unit = c.Unit
	return nil
}

func (c SetGradient) validate() error {
	if len(c.Gradient.Stops) == 0 {
		return fmt.Errorf("%w: %q has no stop", palette.ErrInvalidGradient, c.Gradient.Name)
	}
	return nil
}

func (c SetGradient) apply(p *Pipeline) error {
	p.mapper.SetGradient(c.Gradient)
	return nil
}

func (c SetCurve) validate() error {
	return nil
}

func (c SetCurve) apply(p *Pipeline) error {
	p.mapper.SetCurve(c.Curve)
	return nil
}

func (c SetRangeMode) validate() error {
	if c.Mode == nil {
		return errors.New("pipeline: nil range mode")
	}
	return nil
}

func (c SetRangeMode) apply(p *Pipeline) error {
	p.mode = c.Mode
	return nil
}

func (c AddMarker) validate() error {
	if c.Kind != marker.User && c.Kind != marker.Average {
		return fmt.Errorf("pipeline: can't add a %s marker", c.Kind)
	}
	return nil
}

func (c AddMarker) apply(p *Pipeline) error {
	return p.markers.AddWithID(c.ID, c.Kind, c.Pos, c.Label)
}

func (c RemoveMarker) validate() error {
	return nil
}

func (c RemoveMarker) apply(p *Pipeline) error {
	if p.markers.Remove(c.ID) {
		p.history.Remove(c.ID)
	}
	return nil
}

func (c RenameMarker) validate() error {
	return nil
}

func (c RenameMarker) apply(p *Pipeline) error {
	p.markers.Rename(c.ID, c.Label)
	return nil
}

func (c SetBins) validate() error {
	if c.N < 1 {
		return fmt.Errorf("%w: %d", stats.ErrInvalidBucketCount, c.N)
	}
	return nil
}

func (c SetBins) apply(p *Pipeline) error {
	p.bins = c.N
	return nil
}

func (c SetRotation) validate() error {
	if c.Rotation > thermal.Rotate270 {
		return fmt.Errorf("pipeline: invalid rotation %s", c.Rotation)
	}
	return nil
}

func (c SetRotation) apply(p *Pipeline) error {
	p.markers.Rotate((c.Rotation + 4 - p.rotation) % 4)
	p.rotation = c.Rotation
	return nil
}

func (c SetCalibration) validate() error {
	return c.Calibration.Validate()
}

func (c SetCalibration) apply(p *Pipeline) error {
	p.decoder.SetCalibration(c.Format, c.Calibration)
	return nil
}

func (c Freeze) validate() error {
	return nil
}

func (c Freeze) apply(p *Pipeline) error {
	if !c.On {
		p.frozen = nil
		p.freezeNext = false
		return nil
	}
	if p.frozen != nil {
		return nil
	}
	if p.last != nil {
		p.frozen = p.last.Clone()
	} else {
		p.freezeNext = true
	}
	return nil
}
