package raster

import (
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
)

// Viewport is the visible window onto the raster, in screen pixels.
type Viewport struct {
	Width   int
	Height  int
	VOffset int64 // first visible line
	HOffset int   // first visible raster column
	Zoom    int
}

func (v Viewport) validate() error {
	if v.Width < 1 || v.Height < 1 || v.Zoom < 1 {
		return fmt.Errorf("%w: %dx%d zoom %d", ErrViewport, v.Width, v.Height, v.Zoom)
	}
	return nil
}

// VisibleLines is the line range shown in the viewport.
func (v Viewport) VisibleLines() LineRange {
	return LineRange{Start: v.VOffset, Count: int64(v.Height / v.Zoom)}
}

type RasterKind int

const (
	// Viewable is exactly what the viewport shows.
	Viewable RasterKind = iota
	// Horizontal is every column of the visible lines, unzoomed.
	Horizontal
	// Vertical is every line of the visible columns, unzoomed.
	Vertical
	// Entire is the whole raster, unzoomed.
	Entire
)

var rasterKindNames = map[RasterKind]string{
	Viewable:   "viewable",
	Horizontal: "horizontal",
	Vertical:   "vertical",
	Entire:     "entire",
}

func (k RasterKind) String() string {
	if n, ok := rasterKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseRasterKind(s string) (RasterKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, n := range rasterKindNames {
		if n == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("raster: unknown raster kind %q", s)
}

// RasterImage paints the requested region into a new image.
func (e *Engine) RasterImage(kind RasterKind, vp Viewport, p Progress) (*image.RGBA, error) {
	if err := vp.validate(); err != nil {
		return nil, err
	}

	var (
		w, h    int
		vOffset int64
		hOffset int
		zoom    = 1
	)
	switch kind {
	case Viewable:
		w, h = vp.Width, vp.Height
		vOffset, hOffset, zoom = vp.VOffset, vp.HOffset, vp.Zoom
	case Horizontal:
		w, h = e.geom.TotalPixelWidth, vp.Height/vp.Zoom
		vOffset = vp.VOffset
	case Vertical:
		w, h = vp.Width/vp.Zoom, int(e.geom.TotalPixelHeight)
		hOffset = vp.HOffset
	case Entire:
		w, h = e.geom.TotalPixelWidth, int(e.geom.TotalPixelHeight)
	default:
		return nil, fmt.Errorf("raster: unknown raster kind %d", int(kind))
	}
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: %s raster is %dx%d", ErrEmptyRaster, kind, w, h)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := e.Paint(img, vOffset, hOffset, zoom, p); err != nil {
		return nil, err
	}
	return img, nil
}

// SaveRaster writes a raster image to path. The format follows the
// extension: .png, .bmp, .tif, .tiff or .svg. scale > 1 enlarges every pixel.
func (e *Engine) SaveRaster(path string, kind RasterKind, vp Viewport, scale int, p Progress) error {
	encode, err := encoderFor(path)
	if err != nil {
		return err
	}
	img, err := e.RasterImage(kind, vp, p)
	if err != nil {
		return err
	}
	var out image.Image = img
	if scale > 1 {
		out = Scale(img, scale)
	}

	f, err := create(path)
	if err != nil {
		return err
	}
	if err := encode(f, out); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	e.Log.WithField("kind", kind).WithField("path", path).Debug("raster saved")
	return nil
}

// Scale enlarges img by an integer factor with nearest-neighbor sampling.
func Scale(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

type encodeFunc func(f *output, img image.Image) error

func encoderFor(path string) (encodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", "":
		return func(f *output, img image.Image) error { return png.Encode(f, img) }, nil
	case ".bmp":
		return func(f *output, img image.Image) error { return bmp.Encode(f, img) }, nil
	case ".svg":
		return func(f *output, img image.Image) error { return EncodeSVG(f, img) }, nil
	case ".tif", ".tiff":
		return func(f *output, img image.Image) error {
			return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	}
	return nil, fmt.Errorf("raster: unsupported image format %q", filepath.Ext(path))
}
