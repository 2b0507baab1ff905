// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package frame

import (
	"errors"
	"fmt"
	"math"

	"github.com/maruel/go-thermal/thermal"
)

// Calibration is the linear transform from a sensor code to a temperature:
//
//	K = code*Scale + Offset
//
// Min and Max bound the sensor's usable range. Decoded values outside are
// clamped and flagged as invalid.
//
// The coefficients are firmware specific; they are configuration data and
// are expected to be validated against reference frames.
type Calibration struct {
	Scale  float64
	Offset float64
	Min    thermal.Kelvin
	Max    thermal.Kelvin
}

// ErrInvalidCalibration is returned by Calibration.Validate.
var ErrInvalidCalibration = errors.New("frame: invalid calibration")

// DefaultCalibration returns the documented transform for f.
func DefaultCalibration(f Format) Calibration {
	switch f {
	case FormatLepton:
		// TLinear radiometric output, 0.01 K resolution.
		return Calibration{Scale: 0.01, Min: thermal.FromCelsius(-40), Max: thermal.FromCelsius(600)}
	default:
		// The P2 class sensors advertise -20°C to 600°C.
		return Calibration{Scale: 1. / 64, Min: thermal.FromCelsius(-20), Max: thermal.FromCelsius(600)}
	}
}

// Validate checks the coefficients.
func (c *Calibration) Validate() error {
	for _, v := range []float64{c.Scale, c.Offset, float64(c.Min), float64(c.Max)} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non finite coefficient in %+v", ErrInvalidCalibration, *c)
		}
	}
	if c.Scale <= 0 {
		return fmt.Errorf("%w: scale %g must be positive", ErrInvalidCalibration, c.Scale)
	}
	if c.Min >= c.Max {
		return fmt.Errorf("%w: sensor range %s - %s", ErrInvalidCalibration, c.Min, c.Max)
	}
	return nil
}

// ToKelvin applies the transform.
func (c *Calibration) ToKelvin(code uint16) thermal.Kelvin {
	return thermal.Kelvin(float64(code)*c.Scale + c.Offset)
}

// ToCode is the inverse transform, saturated to the 16 bits code space.
func (c *Calibration) ToCode(k thermal.Kelvin) uint16 {
	v := math.Round((float64(k) - c.Offset) / c.Scale)
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 0xFFFF {
		return 0xFFFF
	}
	return uint16(v)
}

// Check decodes raw and compares it with the expected grid, returning the
// largest absolute difference. It is used to validate coefficients against
// known reference frames.
func (c *Calibration) Check(raw *Raw, want *thermal.Grid) (thermal.Kelvin, error) {
	d := Decoder{}
	d.SetCalibration(raw.Format, *c)
	g, err := d.Decode(raw)
	if err != nil {
		return 0, err
	}
	if g.Width != want.Width || g.Height != want.Height {
		return 0, fmt.Errorf("frame: reference is %dx%d, decoded %dx%d", want.Width, want.Height, g.Width, g.Height)
	}
	worst := thermal.Kelvin(0)
	for i := range g.Pix {
		diff := g.Pix[i] - want.Pix[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > worst {
			worst = diff
		}
	}
	return worst, nil
}
