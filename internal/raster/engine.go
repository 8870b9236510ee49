// Package raster turns a bit stream into pixels, CSV rows and bit dumps.
//
// An [Engine] binds a [bitstream.Stream] to [geometry.Params]. Every
// operation walks the stream with seek-then-read of one channel's bits per
// frame, so the same offsets drive painting, CSV export and raw dumps:
//
//	lineOffset  = offset + line*totalBitWidth
//	channelBits = lineOffset + frame*frameBitWidth + ts*bpts
//
// # Thread Safety
//
// Engine is NOT thread-safe. One operation owns the stream cursor for its
// duration, and parameters must not change while an operation runs.
package raster

import (
	"errors"
	"image/color"

	"github.com/san-kum/tdmraster/internal/bitstream"
	"github.com/san-kum/tdmraster/internal/channel"
	"github.com/san-kum/tdmraster/internal/geometry"
	"github.com/sirupsen/logrus"
)

var (
	// ErrOutOfRange indicates a probe outside the channels or lines of the capture.
	ErrOutOfRange = errors.New("raster: position outside capture")

	// ErrEmptyRaster indicates an image export with no pixels to write.
	ErrEmptyRaster = errors.New("raster: nothing to export")

	// ErrViewport indicates a viewport with a non-positive size or zoom.
	ErrViewport = errors.New("raster: invalid viewport")
)

var (
	Background = color.RGBA{0x80, 0x80, 0x80, 0xFF}
	Separator  = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	BitSet     = color.RGBA{0x00, 0xFF, 0x00, 0xFF}
	BitClear   = color.RGBA{0x00, 0x00, 0x00, 0xFF}
)

type Engine struct {
	stream bitstream.Stream
	params geometry.Params
	geom   geometry.Geometry

	Log logrus.FieldLogger
}

// New validates params and derives the geometry for stream.
func New(stream bitstream.Stream, params geometry.Params) (*Engine, error) {
	e := &Engine{stream: stream, Log: logrus.StandardLogger()}
	if err := e.SetParams(params); err != nil {
		return nil, err
	}
	return e, nil
}

// SetParams replaces the parameters and recomputes the geometry. Invalid
// parameters are rejected and the previous ones are kept.
func (e *Engine) SetParams(p geometry.Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.params = p
	e.geom = geometry.Compute(p, e.stream.SizeBit())
	return nil
}

func (e *Engine) Params() geometry.Params     { return e.params }
func (e *Engine) Geometry() geometry.Geometry { return e.geom }
func (e *Engine) Stream() bitstream.Stream    { return e.stream }

// LineRange is a run of display lines starting at Start.
type LineRange struct {
	Start int64
	Count int64
}

// AllLines covers every complete line of the capture.
func (e *Engine) AllLines() LineRange {
	return LineRange{Start: 0, Count: e.geom.TotalPixelHeight}
}

// clip bounds r to the complete lines of the capture.
func (e *Engine) clip(r LineRange) (start, end int64) {
	start, end = r.Start, r.Start+r.Count
	if start < 0 {
		start = 0
	}
	if end > e.geom.TotalPixelHeight {
		end = e.geom.TotalPixelHeight
	}
	return start, end
}

func (e *Engine) selector(sel channel.Selector) channel.Selector {
	if sel == nil {
		return channel.All(e.params.TS)
	}
	return sel
}

func (e *Engine) lineOffset(line int64) int64 {
	return e.params.Offset + line*e.geom.TotalBitWidth
}

// readSlot reads one channel's bits of one frame.
func (e *Engine) readSlot(lineOffset int64, frame, ts int) ([]bool, error) {
	e.stream.SeekBit(lineOffset + int64(frame)*e.geom.FrameBitWidth + int64(ts*e.params.BPTS))
	return e.stream.ReadBit(e.params.BPTS)
}

// channelBits gathers the FPL frames of channel ts in one line into a buffer
// of size bits. size may exceed ChannelBitsPerLine; the tail stays clear.
func (e *Engine) channelBits(lineOffset int64, ts, size int) ([]bool, error) {
	buf := make([]bool, size)
	for frame := 0; frame < e.params.FPL; frame++ {
		bits, err := e.readSlot(lineOffset, frame, ts)
		if err != nil {
			return nil, err
		}
		copy(buf[frame*e.params.BPTS:], bits)
	}
	return buf, nil
}

// Summary describes a finished export.
type Summary struct {
	Lines    int64
	Canceled bool
}
