// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package thermal

import (
	"fmt"
	"image"
)

// Rotation is a clockwise rotation applied to the sensor orientation.
type Rotation uint8

// Valid values for Rotation.
const (
	RotateNone Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

// Next returns the next clockwise step.
func (r Rotation) Next() Rotation {
	return (r + 1) % 4
}

// Prev returns the next counter clockwise step.
func (r Rotation) Prev() Rotation {
	return (r + 3) % 4
}

func (r Rotation) String() string {
	switch r {
	case RotateNone:
		return "0°"
	case Rotate90:
		return "90°"
	case Rotate180:
		return "180°"
	case Rotate270:
		return "270°"
	default:
		return fmt.Sprintf("Rotation(%d)", uint8(r))
	}
}

// Point maps p in a w x h image to its position once the image is rotated
// by r.
func (r Rotation) Point(p image.Point, w, h int) image.Point {
	switch r % 4 {
	case Rotate90:
		return image.Pt(h-1-p.Y, p.X)
	case Rotate180:
		return image.Pt(w-1-p.X, h-1-p.Y)
	case Rotate270:
		return image.Pt(p.Y, w-1-p.X)
	default:
		return p
	}
}

// Size returns the size of a w x h image rotated by r.
func (r Rotation) Size(w, h int) image.Point {
	if r%2 == 1 {
		return image.Pt(h, w)
	}
	return image.Pt(w, h)
}

// Rotate returns a rotated copy of g. RotateNone returns g itself.
func (g *Grid) Rotate(r Rotation) *Grid {
	if r%4 == RotateNone {
		return g
	}
	w, h := g.Width, g.Height
	s := r.Size(w, h)
	out := NewGrid(s.X, s.Y)
	if g.Invalid != nil {
		out.Invalid = make([]bool, len(g.Pix))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := r.Point(image.Pt(x, y), w, h)
			i := y*w + x
			j := n.Y*out.Width + n.X
			out.Pix[j] = g.Pix[i]
			if g.Invalid != nil {
				out.Invalid[j] = g.Invalid[i]
			}
		}
	}
	return out
}
