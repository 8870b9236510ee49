package viz

import (
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

// Canvas is a braille render target. Each cell holds 2x4 dots, so the image
// is (Width*2) x (Height*4) pixels. It implements draw.Image: a pixel is a
// raised dot when Lit reports true for its color, and the cell keeps the
// last lit color for rendering.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Colors        [][]color.RGBA
	Lit           func(c color.RGBA) bool
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Colors: make([][]color.RGBA, h),
		Lit:    Bright,
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Colors[i] = make([]color.RGBA, w)
	}
	c.Clear()
	return c
}

// Bright lights pixels whose luma is at least 0x90, so mid gray stays dark
// while white and pure green are raised.
func Bright(c color.RGBA) bool {
	y := (299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000
	return y >= 0x90
}

func (c *Canvas) ColorModel() color.Model { return color.RGBAModel }

func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width*2, c.Height*4)
}

func (c *Canvas) cell(x, y int) (row, col int, mask rune, ok bool) {
	if x < 0 || y < 0 {
		return 0, 0, 0, false
	}
	col, row = x/2, y/4
	if col >= c.Width || row >= c.Height {
		return 0, 0, 0, false
	}
	return row, col, rune(pixelMap[y%4][x%2]), true
}

func (c *Canvas) At(x, y int) color.Color {
	row, col, mask, ok := c.cell(x, y)
	if !ok || c.Grid[row][col]&mask == 0 {
		return color.RGBA{}
	}
	return c.Colors[row][col]
}

// Set raises or lowers the dot at (x, y) in sub-pixel coordinates.
func (c *Canvas) Set(x, y int, col color.Color) {
	rgba := color.RGBAModel.Convert(col).(color.RGBA)
	if c.Lit(rgba) {
		c.Dot(x, y, rgba)
	} else {
		c.Undot(x, y)
	}
}

func (c *Canvas) Dot(x, y int, col color.RGBA) {
	row, cl, mask, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][cl] |= mask
	c.Colors[row][cl] = col
}

func (c *Canvas) Undot(x, y int) {
	row, col, mask, ok := c.cell(x, y)
	if !ok {
		return
	}
	c.Grid[row][col] &^= mask
}

// Clear resets the canvas
func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
			c.Colors[i][j] = color.RGBA{}
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render draws the canvas with one foreground per cell, merging runs of
// cells that share a color.
func (c *Canvas) Render(fg func(color.RGBA) lipgloss.Color) string {
	var b strings.Builder
	for i, row := range c.Grid {
		start := 0
		for j := 1; j <= len(row); j++ {
			if j < len(row) && c.cellColor(i, j) == c.cellColor(i, start) {
				continue
			}
			run := string(row[start:j])
			if c.cellColor(i, start) == (color.RGBA{}) {
				b.WriteString(run)
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(fg(c.Colors[i][start])).Render(run))
			}
			start = j
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (c *Canvas) cellColor(row, col int) color.RGBA {
	if c.Grid[row][col] == blank {
		return color.RGBA{}
	}
	return c.Colors[row][col]
}
