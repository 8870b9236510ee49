package raster

import "fmt"

// ChannelAt maps a viewport column to the channel drawn there. It reports
// false past the last channel.
func (e *Engine) ChannelAt(x int, vp Viewport) (int, bool) {
	if x < 0 || vp.Zoom < 1 {
		return 0, false
	}
	ts := (x/vp.Zoom + vp.HOffset) / e.geom.ChannelPixelWidth
	if ts >= e.params.TS {
		return 0, false
	}
	return ts, true
}

// LineAt maps a viewport row to a display line.
func (e *Engine) LineAt(y int, vp Viewport) (int64, bool) {
	if y < 0 || vp.Zoom < 1 {
		return 0, false
	}
	line := vp.VOffset + int64(y/vp.Zoom)
	if line >= e.geom.TotalPixelHeight {
		return 0, false
	}
	return line, true
}

// ProbeResult is the content of one channel on one line.
type ProbeResult struct {
	File string
	TS   int
	Line int64
	Bits string
}

func (r ProbeResult) Label() string {
	return fmt.Sprintf("File:%s TS:%d Line:%d", r.File, r.TS, r.Line)
}

func (r ProbeResult) String() string {
	return r.Label() + "\n" + r.Bits
}

// Probe returns the bits of the channel and line under viewport pixel (x, y).
func (e *Engine) Probe(x, y int, vp Viewport) (ProbeResult, error) {
	if err := vp.validate(); err != nil {
		return ProbeResult{}, err
	}
	ts, ok := e.ChannelAt(x, vp)
	if !ok {
		return ProbeResult{}, fmt.Errorf("%w: column %d", ErrOutOfRange, x)
	}
	line, ok := e.LineAt(y, vp)
	if !ok {
		return ProbeResult{}, fmt.Errorf("%w: row %d", ErrOutOfRange, y)
	}
	return e.ProbeLine(ts, line)
}

// ProbeLine returns the bits of channel ts on a display line.
func (e *Engine) ProbeLine(ts int, line int64) (ProbeResult, error) {
	if ts < 0 || ts >= e.params.TS || line < 0 || line >= e.geom.TotalPixelHeight {
		return ProbeResult{}, fmt.Errorf("%w: ts %d line %d", ErrOutOfRange, ts, line)
	}
	bits, err := e.channelBits(e.lineOffset(line), ts, e.geom.ChannelBitsPerLine)
	if err != nil {
		return ProbeResult{}, err
	}
	return ProbeResult{File: e.stream.Name(), TS: ts, Line: line, Bits: BitString(bits)}, nil
}
