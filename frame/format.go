// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package frame

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Format identifies the vendor pixel encoding of a Raw frame.
//
// Supporting a new camera model means adding a value here and a case in
// layoutOf.
type Format uint8

// Known formats.
const (
	FormatUnknown Format = iota
	// FormatP2Pro is the Infiray P2 Pro combined stream: a YUYV frame whose top
	// half is an AGC'ed grey preview and bottom half carries one little endian
	// uint16 code per pixel, in 1/64 K. Typically 256x384.
	FormatP2Pro
	// FormatThermalMasterP2 is the same as FormatP2Pro with a 2 rows gap
	// between the preview and the thermal block. Typically 256x386.
	FormatThermalMasterP2
	// FormatY16 is a plain little endian uint16 code per pixel.
	FormatY16
	// FormatLepton is big endian 16 bits radiometric words in 0.01 K, the
	// word order used on the FLIR Lepton VoSPI bus.
	FormatLepton
)

var formatNames = map[Format]string{
	FormatUnknown:         "Unknown",
	FormatP2Pro:           "P2Pro",
	FormatThermalMasterP2: "ThermalMasterP2",
	FormatY16:             "Y16",
	FormatLepton:          "Lepton",
}

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatP2Pro, FormatThermalMasterP2, FormatY16, FormatLepton}
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat is the reverse of String, case insensitive.
func ParseFormat(s string) (Format, error) {
	for f, n := range formatNames {
		if f != FormatUnknown && strings.EqualFold(n, s) {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("frame: unknown format %q", s)
}

// MarshalText implements encoding.TextMarshaler so Format can key JSON maps.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Format) UnmarshalText(b []byte) error {
	v, err := ParseFormat(string(b))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// layout describes where the thermal block lives in a frame.
type layout struct {
	order binary.ByteOrder
	// gap is the number of rows between the preview and the thermal block.
	gap int
	// preview is true when the frame starts with a preview block as tall as
	// the thermal block.
	preview bool
}

const bytesPerSample = 2

// layoutOf returns the layout for f.
func layoutOf(f Format) (layout, bool) {
	switch f {
	case FormatP2Pro:
		return layout{order: binary.LittleEndian, preview: true}, true
	case FormatThermalMasterP2:
		return layout{order: binary.LittleEndian, preview: true, gap: 2}, true
	case FormatY16:
		return layout{order: binary.LittleEndian}, true
	case FormatLepton:
		return layout{order: binary.BigEndian}, true
	default:
		return layout{}, false
	}
}

// thermalRows returns the first row and the number of rows of the thermal
// block for a frame of height h.
func (l *layout) thermalRows(h int) (start, rows int, ok bool) {
	if !l.preview {
		return 0, h, h > 0
	}
	rest := h - l.gap
	if rest <= 0 || rest%2 != 0 {
		return 0, 0, false
	}
	rows = rest / 2
	return rows + l.gap, rows, true
}

// frameHeight is the reverse of thermalRows.
func (l *layout) frameHeight(rows int) int {
	if !l.preview {
		return rows
	}
	return 2*rows + l.gap
}

// GridSize returns the dimensions of the grid decoded from a w x h frame in
// format f.
func GridSize(f Format, w, h int) (gw, gh int, err error) {
	l, ok := layoutOf(f)
	if !ok {
		return 0, 0, &DecodeError{Format: f, Err: ErrUnsupportedFormat}
	}
	_, rows, ok := l.thermalRows(h)
	if !ok || w <= 0 {
		return 0, 0, &DecodeError{Format: f, Err: ErrSizeMismatch, Detail: fmt.Sprintf("no thermal block in a %dx%d frame", w, h)}
	}
	return w, rows, nil
}
