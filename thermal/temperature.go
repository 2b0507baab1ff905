// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"periph.io/x/periph/conn/physic"
)

// Kelvin is the canonical temperature unit used everywhere in the pipeline.
//
// Display units are a presentation concern; see Unit.
type Kelvin float64

// zeroCelsius is 0°C expressed in K.
var zeroCelsius = float64(physic.ZeroCelsius) / float64(physic.Kelvin)

// FromCelsius returns the canonical temperature for a value in °C.
func FromCelsius(c float64) Kelvin {
	return Kelvin(c + zeroCelsius)
}

// Celsius returns the temperature in °C.
func (k Kelvin) Celsius() float64 {
	return float64(k) - zeroCelsius
}

// Temperature converts to periph's fixed point representation.
func (k Kelvin) Temperature() physic.Temperature {
	return physic.Temperature(math.Round(float64(k) * float64(physic.Kelvin)))
}

func (k Kelvin) String() string {
	return k.Temperature().String()
}

// Unit is a display unit.
type Unit uint8

// Valid values for Unit.
const (
	UnitKelvin Unit = iota
	UnitCelsius
	UnitFahrenheit
)

// ErrUnknownUnit is returned by ParseUnit.
var ErrUnknownUnit = errors.New("thermal: unknown temperature unit")

// ParseUnit accepts "K", "C", "F" and the spelled out names, case
// insensitive.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "k", "kelvin":
		return UnitKelvin, nil
	case "c", "°c", "celsius":
		return UnitCelsius, nil
	case "f", "°f", "fahrenheit":
		return UnitFahrenheit, nil
	}
	return UnitCelsius, fmt.Errorf("%w: %q", ErrUnknownUnit, s)
}

// FromKelvin converts a canonical temperature into this unit.
func (u Unit) FromKelvin(k Kelvin) float64 {
	switch u {
	case UnitCelsius:
		return k.Celsius()
	case UnitFahrenheit:
		return k.Celsius()*1.8 + 32
	default:
		return float64(k)
	}
}

// ToKelvin converts a value in this unit into the canonical unit.
func (u Unit) ToKelvin(v float64) Kelvin {
	switch u {
	case UnitCelsius:
		return FromCelsius(v)
	case UnitFahrenheit:
		return FromCelsius((v - 32) / 1.8)
	default:
		return Kelvin(v)
	}
}

// Suffix is the short unit symbol.
func (u Unit) Suffix() string {
	switch u {
	case UnitCelsius:
		return "°C"
	case UnitFahrenheit:
		return "°F"
	default:
		return "K"
	}
}

// Format formats k in this unit with one decimal.
func (u Unit) Format(k Kelvin) string {
	return fmt.Sprintf("%.1f %s", u.FromKelvin(k), u.Suffix())
}

func (u Unit) String() string {
	switch u {
	case UnitKelvin:
		return "Kelvin"
	case UnitCelsius:
		return "Celsius"
	case UnitFahrenheit:
		return "Fahrenheit"
	default:
		return fmt.Sprintf("Unit(%d)", uint8(u))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *Unit) UnmarshalText(b []byte) error {
	v, err := ParseUnit(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}
