// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package rawio reads and writes zstd compressed dumps of raw frames.
//
// A dump is a zstd stream starting with a magic header, followed by one
// record per frame:
//
//	format    uint8
//	width     uint32
//	height    uint32
//	timestamp int64, nanoseconds since the Unix epoch
//	length    uint32
//	data      [length]byte
//
// Integers are little endian.
package rawio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/maruel/go-thermal/frame"
)

const magic = "THRMRAW1"

// maxFrameBytes bounds a record so a corrupted length can't trigger a huge
// allocation.
const maxFrameBytes = 64 << 20

const headerSize = 1 + 4 + 4 + 8 + 4

// ErrBadDump is returned when the stream is not a frame dump.
var ErrBadDump = errors.New("rawio: not a frame dump")

// Writer appends frames to a dump.
type Writer struct {
	enc *zstd.Encoder
	hdr [headerSize]byte
}

// NewWriter starts a dump on w. Close must be called to flush it.
func NewWriter(w io.Writer) (*Writer, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(enc, magic); err != nil {
		enc.Close()
		return nil, err
	}
	return &Writer{enc: enc}, nil
}

// Write appends raw to the dump.
func (w *Writer) Write(raw *frame.Raw) error {
	if len(raw.Data) > maxFrameBytes {
		return fmt.Errorf("rawio: frame of %d bytes is too large", len(raw.Data))
	}
	h := w.hdr[:]
	h[0] = byte(raw.Format)
	binary.LittleEndian.PutUint32(h[1:], uint32(raw.Width))
	binary.LittleEndian.PutUint32(h[5:], uint32(raw.Height))
	binary.LittleEndian.PutUint64(h[9:], uint64(raw.Timestamp.UnixNano()))
	binary.LittleEndian.PutUint32(h[17:], uint32(len(raw.Data)))
	if _, err := w.enc.Write(h); err != nil {
		return err
	}
	_, err := w.enc.Write(raw.Data)
	return err
}

// Close flushes the dump. It doesn't close the underlying writer.
func (w *Writer) Close() error {
	return w.enc.Close()
}

// Reader reads frames back from a dump.
type Reader struct {
	dec *zstd.Decoder
	r   *bufio.Reader
	hdr [headerSize]byte
}

// NewReader opens a dump from r and validates its header.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(dec)
	var m [len(magic)]byte
	if _, err := io.ReadFull(br, m[:]); err != nil || string(m[:]) != magic {
		dec.Close()
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %v", ErrBadDump, err)
		}
		return nil, ErrBadDump
	}
	return &Reader{dec: dec, r: br}, nil
}

// Next reads the next frame into raw, reusing raw.Data when large enough.
// It returns io.EOF after the last frame and io.ErrUnexpectedEOF on a
// truncated dump.
func (r *Reader) Next(raw *frame.Raw) error {
	h := r.hdr[:]
	if _, err := io.ReadFull(r.r, h); err != nil {
		return err
	}
	n := binary.LittleEndian.Uint32(h[17:])
	if n > maxFrameBytes {
		return fmt.Errorf("%w: frame of %d bytes", ErrBadDump, n)
	}
	raw.Format = frame.Format(h[0])
	raw.Width = int(binary.LittleEndian.Uint32(h[1:]))
	raw.Height = int(binary.LittleEndian.Uint32(h[5:]))
	raw.Timestamp = time.Unix(0, int64(binary.LittleEndian.Uint64(h[9:]))).UTC()
	if cap(raw.Data) >= int(n) {
		raw.Data = raw.Data[:n]
	} else {
		raw.Data = make([]byte, n)
	}
	if _, err := io.ReadFull(r.r, raw.Data); err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// Close releases the decoder. It doesn't close the underlying reader.
func (r *Reader) Close() error {
	r.dec.Close()
	return nil
}
