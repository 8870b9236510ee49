package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"
)

// EncodeSVG writes img as an SVG document with one rect per horizontal run
// of equal color. Runs of the background color are left to the backdrop.
func EncodeSVG(w io.Writer, img image.Image) error {
	b := img.Bounds()
	if _, err := fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">
<rect width="100%%" height="100%%" fill="%s"/>
`, b.Dx(), b.Dy(), b.Dx(), b.Dy(), hex(Background)); err != nil {
		return err
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		start := b.Min.X
		run := rgbaAt(img, start, y)
		for x := b.Min.X + 1; x <= b.Max.X; x++ {
			var c color.RGBA
			if x < b.Max.X {
				c = rgbaAt(img, x, y)
				if c == run {
					continue
				}
			}
			if run != Background {
				if _, err := fmt.Fprintf(w, `<rect x="%d" y="%d" width="%d" height="1" fill="%s"/>
`, start-b.Min.X, y-b.Min.Y, x-start, hex(run)); err != nil {
					return err
				}
			}
			start, run = x, c
		}
	}

	_, err := io.WriteString(w, "</svg>\n")
	return err
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba.RGBAAt(x, y)
	}
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
