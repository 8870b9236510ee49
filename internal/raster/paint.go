package raster

import (
	"image"
	"image/color"

	"github.com/san-kum/tdmraster/internal/geometry"
	"golang.org/x/image/draw"
)

// Paint draws the region starting at line vOffset and pixel column hOffset
// into dst, each raster pixel as a zoom×zoom block. Only channels that
// intersect dst are read. A cancel leaves the lines drawn so far in place.
func (e *Engine) Paint(dst draw.Image, vOffset int64, hOffset, zoom int, p Progress) error {
	p = orNop(p)
	if zoom < 1 {
		zoom = 1
	}
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	cpw := e.geom.ChannelPixelWidth

	minTS, maxTS := e.visibleChannels(w, hOffset, zoom)
	lines := h/zoom + 1

	p.SetRange(0, int64(lines))
	p.SetValue(0)

	fill(dst, b, Background)

	for ts := minTS; ts < maxTS; ts++ {
		if ts < e.params.TS-1 {
			x := ((ts+1)*cpw - 1 - hOffset) * zoom
			fill(dst, image.Rect(x, 0, x+zoom, h).Add(b.Min), Separator)
		}
	}

	size := e.geom.ChannelBitsPerLine
	if e.params.Layout == geometry.LayoutRGB {
		size = e.geom.PixelsPerChannel * e.geom.TotalBitsPerPixel
	}

	for line := 0; line < lines; line++ {
		p.SetValue(int64(line))
		if p.Canceled() {
			break
		}
		y := line * zoom
		lineOffset := e.lineOffset(vOffset + int64(line))
		// A line starting exactly at the end of data is still drawn, as clear bits.
		if lineOffset > e.stream.SizeBit() {
			fill(dst, image.Rect(0, y, w, h).Add(b.Min), Background)
			break
		}

		for ts := minTS; ts < maxTS; ts++ {
			bits, err := e.channelBits(lineOffset, ts, size)
			if err != nil {
				return err
			}
			x0 := ts*cpw - hOffset
			for i, c := range e.pixels(bits) {
				x := (x0 + i) * zoom
				fill(dst, image.Rect(x, y, x+zoom, y+zoom).Add(b.Min), c)
			}
		}
	}
	return nil
}

// visibleChannels returns the half-open range of channels whose columns
// start inside a target w pixels wide.
func (e *Engine) visibleChannels(w, hOffset, zoom int) (int, int) {
	cpw := e.geom.ChannelPixelWidth
	minTS := hOffset / cpw
	maxTS := minTS
	for x := (minTS*cpw - hOffset) * zoom; x < w && maxTS < e.params.TS; x += cpw * zoom {
		maxTS++
	}
	return minTS, maxTS
}

// pixels converts one channel's line buffer into pixel colors.
func (e *Engine) pixels(bits []bool) []color.RGBA {
	if e.params.Layout != geometry.LayoutRGB {
		out := make([]color.RGBA, len(bits))
		for i, set := range bits {
			if set {
				out[i] = BitSet
			} else {
				out[i] = BitClear
			}
		}
		return out
	}

	p := e.params
	out := make([]color.RGBA, e.geom.PixelsPerChannel)
	pos := 0
	take := func(depth int) uint8 {
		v := msbValue(bits[pos : pos+depth])
		pos += depth
		return ScalePlane(v, depth)
	}
	for i := range out {
		out[i] = color.RGBA{R: take(p.RBPP), G: take(p.GBPP), B: take(p.BBPP), A: 0xFF}
	}
	return out
}

// msbValue reads bits as an unsigned integer, most significant bit first.
func msbValue(bits []bool) uint64 {
	var v uint64
	for _, b := range bits {
		v <<= 1
		if b {
			v |= 1
		}
	}
	return v
}

// ScalePlane maps v from [0, 2^depth-1] onto [0, 255]. Zero maps to zero,
// which also covers a plane of depth zero.
func ScalePlane(v uint64, depth int) uint8 {
	if v == 0 || depth == 0 {
		return 0
	}
	top := uint64(1)<<uint(depth) - 1
	return uint8(v * 255 / top)
}

func fill(dst draw.Image, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	if rgba, ok := dst.(*image.RGBA); ok && r.Dx() == 1 && r.Dy() == 1 {
		rgba.SetRGBA(r.Min.X, r.Min.Y, c)
		return
	}
	draw.Draw(dst, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}
