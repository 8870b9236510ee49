// Package geometry derives raster dimensions from stream framing parameters.
//
// Geometry is a pure function of [Params] and the stream size. Callers
// validate parameters with [Params.Validate] and recompute with [Compute]
// after every change; nothing here is cached.
package geometry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrParameterBounds indicates a parameter value is outside its valid range.
var ErrParameterBounds = errors.New("geometry: parameter out of valid bounds")

// MaxPlaneDepth is the largest number of bits a color plane can take.
const MaxPlaneDepth = 32

// Layout selects how channel bits become pixels.
type Layout int

const (
	// LayoutMonochrome draws one pixel per bit. Plane depths are ignored.
	LayoutMonochrome Layout = iota
	// LayoutRGB packs RBPP+GBPP+BBPP bits into each pixel.
	LayoutRGB
)

func (l Layout) String() string {
	if l == LayoutRGB {
		return "rgb"
	}
	return "mono"
}

func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mono", "monochrome":
		return LayoutMonochrome, nil
	case "rgb", "color":
		return LayoutRGB, nil
	}
	return 0, fmt.Errorf("%w: unknown layout %q", ErrParameterBounds, s)
}

func (l Layout) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Layout) UnmarshalText(b []byte) error {
	v, err := ParseLayout(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Mode is the framing model of the settings form.
type Mode int

const (
	// ModeTDM frames lines from TS channels of BPTS bits, FPL frames per line.
	ModeTDM Mode = iota
	// ModeBinary treats the capture as one flat channel; BPTS is bits per line.
	ModeBinary
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tdm":
		return ModeTDM, nil
	case "bin", "binary":
		return ModeBinary, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q", ErrParameterBounds, s)
}

// WithMode returns p adjusted for the mode. Binary mode forces one channel
// and one frame per line.
func (p Params) WithMode(m Mode) Params {
	if m == ModeBinary {
		p.TS = 1
		p.FPL = 1
	}
	return p
}

type Params struct {
	TS     int    `yaml:"ts" json:"ts"`
	BPTS   int    `yaml:"bpts" json:"bpts"`
	FPL    int    `yaml:"fpl" json:"fpl"`
	Offset int64  `yaml:"offset" json:"offset"`
	Zoom   int    `yaml:"zoom" json:"zoom"`
	RBPP   int    `yaml:"rbpp" json:"rbpp"`
	GBPP   int    `yaml:"gbpp" json:"gbpp"`
	BBPP   int    `yaml:"bbpp" json:"bbpp"`
	Layout Layout `yaml:"layout" json:"layout"`
}

// DefaultParams matches the settings a fresh session starts with.
func DefaultParams() Params {
	return Params{
		TS:     32,
		BPTS:   1,
		FPL:    15,
		Zoom:   1,
		GBPP:   1,
		Layout: LayoutMonochrome,
	}
}

// BitsPerPixel is RBPP+GBPP+BBPP.
func (p Params) BitsPerPixel() int {
	return p.RBPP + p.GBPP + p.BBPP
}

// Validate rejects values below their minimum before any geometry is derived.
func (p Params) Validate() error {
	if p.TS < 1 {
		return fmt.Errorf("%w: ts must be >= 1, got %d", ErrParameterBounds, p.TS)
	}
	if p.BPTS < 1 {
		return fmt.Errorf("%w: bpts must be >= 1, got %d", ErrParameterBounds, p.BPTS)
	}
	if p.FPL < 1 {
		return fmt.Errorf("%w: fpl must be >= 1, got %d", ErrParameterBounds, p.FPL)
	}
	if p.Zoom < 1 {
		return fmt.Errorf("%w: zoom must be >= 1, got %d", ErrParameterBounds, p.Zoom)
	}
	if p.Offset < 0 {
		return fmt.Errorf("%w: offset must be >= 0, got %d", ErrParameterBounds, p.Offset)
	}
	for _, d := range []struct {
		name  string
		depth int
	}{{"rbpp", p.RBPP}, {"gbpp", p.GBPP}, {"bbpp", p.BBPP}} {
		if d.depth < 0 || d.depth > MaxPlaneDepth {
			return fmt.Errorf("%w: %s must be in 0-%d, got %d", ErrParameterBounds, d.name, MaxPlaneDepth, d.depth)
		}
	}
	if p.Layout == LayoutRGB && p.BitsPerPixel() < 1 {
		return fmt.Errorf("%w: rgb layout needs at least one bit per pixel", ErrParameterBounds)
	}
	return nil
}

// Geometry holds the quantities derived from Params and the stream size.
type Geometry struct {
	TotalBitWidth      int64 // bits per displayed line
	FrameBitWidth      int64 // bits per frame in the file
	ChannelBitsPerLine int   // bits of one channel in one line
	TotalBitsPerPixel  int
	PixelsPerChannel   int // data pixels of one channel, separator excluded
	ChannelPixelWidth  int // data pixels plus the separator column
	TotalPixelWidth    int
	TotalPixelHeight   int64
}

// Compute derives the geometry. Params must have passed Validate; degenerate
// values reaching this point are a programming error and panic.
func Compute(p Params, sizeBits int64) Geometry {
	if p.TS < 1 || p.BPTS < 1 || p.FPL < 1 {
		panic(fmt.Sprintf("geometry: degenerate framing ts=%d bpts=%d fpl=%d", p.TS, p.BPTS, p.FPL))
	}

	g := Geometry{
		TotalBitWidth:      int64(p.BPTS) * int64(p.TS) * int64(p.FPL),
		FrameBitWidth:      int64(p.TS) * int64(p.BPTS),
		ChannelBitsPerLine: p.BPTS * p.FPL,
		TotalBitsPerPixel:  p.BitsPerPixel(),
	}

	switch p.Layout {
	case LayoutRGB:
		if g.TotalBitsPerPixel < 1 {
			panic("geometry: rgb layout with zero bits per pixel")
		}
		g.PixelsPerChannel = ceilDiv(g.ChannelBitsPerLine, g.TotalBitsPerPixel)
	default:
		g.PixelsPerChannel = g.ChannelBitsPerLine
	}
	g.ChannelPixelWidth = g.PixelsPerChannel + 1
	g.TotalPixelWidth = g.ChannelPixelWidth*p.TS - 1

	if avail := sizeBits - p.Offset; avail > 0 {
		g.TotalPixelHeight = avail / g.TotalBitWidth
	}
	return g
}

// HorizontalMaximum is the horizontal scroll range in pixels.
func (g Geometry) HorizontalMaximum() int { return g.TotalPixelWidth }

// VerticalMaximum is the vertical scroll range in lines.
func (g Geometry) VerticalMaximum() int64 { return g.TotalPixelHeight }

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
