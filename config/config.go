// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the thermal viewer configuration.
//
// The configuration lives in ~/.config/thermal/thermal.json. It is created
// on first use and rewritten normalized, with every default filled in, so
// the user can discover and edit the knobs. A .env file in the working
// directory and the process environment override a few fields.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/maruel/go-thermal/autorange"
	"github.com/maruel/go-thermal/frame"
	"github.com/maruel/go-thermal/palette"
	"github.com/maruel/go-thermal/thermal"
)

// Config is the on-disk configuration.
type Config struct {
	// Port is the HTTP port of the viewer.
	Port int
	// Unit is the display unit.
	Unit thermal.Unit
	// Gradient is the name of the selected gradient.
	Gradient string
	// Gradients are added to the built-in ones.
	Gradients []Gradient `json:",omitempty"`
	// Bins is the number of histogram buckets.
	Bins int
	// Rotation in degrees, clockwise: 0, 90, 180 or 270.
	Rotation int
	Range    Range
	History  History
	// Calibrations override the default transform per pixel format.
	Calibrations map[frame.Format]frame.Calibration `json:",omitempty"`
	// MaxInvalid is the fraction of out of range samples tolerated in a
	// frame.
	MaxInvalid float64
}

// Range configures the display range tracker. Temperatures are in Kelvin.
type Range struct {
	// Mode is "auto", "clamped" or "fixed".
	Mode       string
	Min        thermal.Kelvin
	Max        thermal.Kelvin
	Smoothing  float64
	Hysteresis thermal.Kelvin
	Headroom   thermal.Kelvin
}

// History bounds the per-marker time series.
type History struct {
	MaxCount int
	MaxAge   Duration
}

// Gradient is a user defined gradient.
type Gradient struct {
	Name  string
	Stops []Stop
}

// Stop is a gradient color stop; Color is "#rrggbb".
type Stop struct {
	Pos   float64
	Color string
}

// Duration is a time.Duration serialized as "1m30s".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used when none exists.
func Default() *Config {
	return &Config{
		Port:     8010,
		Unit:     thermal.UnitCelsius,
		Gradient: palette.Iron.Name,
		Bins:     64,
		Range: Range{
			Mode: "auto",
			Min:  thermal.FromCelsius(15),
			Max:  thermal.FromCelsius(45),
		},
		History: History{
			MaxCount: 3000,
			MaxAge:   Duration(5 * time.Minute),
		},
		MaxInvalid: frame.DefaultMaxInvalid,
	}
}

// Normalize fills zero values with their default.
func (c *Config) Normalize() {
	d := Default()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Gradient == "" {
		c.Gradient = d.Gradient
	}
	if c.Bins == 0 {
		c.Bins = d.Bins
	}
	if c.Range.Mode == "" {
		c.Range.Mode = d.Range.Mode
	}
	if c.Range.Min == 0 && c.Range.Max == 0 {
		c.Range.Min = d.Range.Min
		c.Range.Max = d.Range.Max
	}
	if c.History.MaxCount == 0 && c.History.MaxAge == 0 {
		c.History = d.History
	}
	if c.MaxInvalid == 0 {
		c.MaxInvalid = d.MaxInvalid
	}
}

// Validate returns the first inconsistency found.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	if c.Bins < 1 {
		return fmt.Errorf("config: invalid bins %d", c.Bins)
	}
	if _, err := c.RotationValue(); err != nil {
		return err
	}
	if _, err := c.RangeMode(); err != nil {
		return err
	}
	t := c.Tracker()
	if err := t.Validate(); err != nil {
		return err
	}
	if c.History.MaxCount < 0 || c.History.MaxAge < 0 {
		return errors.New("config: history bounds must be positive")
	}
	for f, cal := range c.Calibrations {
		if err := cal.Validate(); err != nil {
			return fmt.Errorf("config: calibration %s: %w", f, err)
		}
	}
	if c.MaxInvalid <= 0 || c.MaxInvalid > 1 {
		return fmt.Errorf("config: MaxInvalid %g must be in (0, 1]", c.MaxInvalid)
	}
	if _, err := c.SelectedGradient(); err != nil {
		return err
	}
	return nil
}

// RangeMode returns the autorange mode described by Range.
func (c *Config) RangeMode() (autorange.Mode, error) {
	switch c.Range.Mode {
	case "auto":
		return autorange.Auto(), nil
	case "clamped":
		return autorange.AutoClamped(c.Range.Min, c.Range.Max)
	case "fixed":
		return autorange.Fixed(c.Range.Min, c.Range.Max)
	default:
		return nil, fmt.Errorf("config: unknown range mode %q", c.Range.Mode)
	}
}

// Tracker returns a range tracker tuned by Range.
func (c *Config) Tracker() autorange.Tracker {
	return autorange.Tracker{
		Smoothing:  c.Range.Smoothing,
		Hysteresis: c.Range.Hysteresis,
		Headroom:   c.Range.Headroom,
	}
}

// RotationValue converts Rotation.
func (c *Config) RotationValue() (thermal.Rotation, error) {
	switch c.Rotation {
	case 0:
		return thermal.RotateNone, nil
	case 90:
		return thermal.Rotate90, nil
	case 180:
		return thermal.Rotate180, nil
	case 270:
		return thermal.Rotate270, nil
	default:
		return thermal.RotateNone, fmt.Errorf("config: invalid rotation %d", c.Rotation)
	}
}

// AllGradients returns the built-in gradients followed by the user defined
// ones.
func (c *Config) AllGradients() ([]palette.Gradient, error) {
	out := palette.Builtins()
	for _, g := range c.Gradients {
		stops := make([]palette.Stop, 0, len(g.Stops))
		for _, s := range g.Stops {
			col, err := palette.ParseHex(s.Color)
			if err != nil {
				return nil, fmt.Errorf("config: gradient %q: %w", g.Name, err)
			}
			stops = append(stops, palette.Stop{Pos: s.Pos, Color: col})
		}
		p, err := palette.NewGradient(g.Name, stops...)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// SelectedGradient returns the gradient named by Gradient.
func (c *Config) SelectedGradient() (palette.Gradient, error) {
	all, err := c.AllGradients()
	if err != nil {
		return palette.Gradient{}, err
	}
	return find(all, c.Gradient)
}

// Path returns the configuration file path: $THERMAL_CONFIG or
// ~/.config/thermal/thermal.json.
func Path() (string, error) {
	_ = godotenv.Load()
	if p := os.Getenv("THERMAL_CONFIG"); p != "" {
		return p, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, ".config", "thermal", "thermal.json"), nil
}

// Load reads the configuration at path or creates one if none exists.
// Fields absent from the file keep their default.
//
// The file is rewritten normalized when it differs. Environment overrides
// are applied afterward and are never written back.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()
	c := Default()
	srcData, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(srcData, c); err != nil {
			return nil, fmt.Errorf("config: %s is invalid json: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	c.Normalize()

	// Normalizes the config file.
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if !bytes.Equal(srcData, data) {
		if err := write(path, data); err != nil {
			log.Printf("failed to write %s: %v", path, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

//

func (c *Config) applyEnv() error {
	if s := os.Getenv("THERMAL_PORT"); s != "" {
		port, err := strconv.Atoi(s)
		if err != nil || port <= 0 {
			return fmt.Errorf("config: invalid THERMAL_PORT: %s", s)
		}
		c.Port = port
	}
	if s := os.Getenv("THERMAL_UNIT"); s != "" {
		u, err := thermal.ParseUnit(s)
		if err != nil {
			return fmt.Errorf("config: invalid THERMAL_UNIT: %w", err)
		}
		c.Unit = u
	}
	return nil
}

func write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func find(all []palette.Gradient, name string) (palette.Gradient, error) {
	// Later definitions win so a user gradient can shadow a built-in one.
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Name == name {
			return all[i], nil
		}
	}
	if g, ok := palette.Lookup(name); ok {
		return g, nil
	}
	return palette.Gradient{}, fmt.Errorf("config: unknown gradient %q", name)
}
