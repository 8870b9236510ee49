package raster_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/san-kum/tdmraster/internal/bitstream"
	"github.com/san-kum/tdmraster/internal/channel"
	"github.com/san-kum/tdmraster/internal/geometry"
	"github.com/san-kum/tdmraster/internal/raster"
)

// cancelAfter cancels once SetValue has seen a value >= n.
type cancelAfter struct {
	n    int64
	seen int64
}

func (c *cancelAfter) SetRange(min, max int64) {}
func (c *cancelAfter) SetValue(v int64)        { c.seen = v }
func (c *cancelAfter) Canceled() bool          { return c.seen >= c.n }

func params(ts, bpts, fpl int) geometry.Params {
	p := geometry.DefaultParams()
	p.TS, p.BPTS, p.FPL = ts, bpts, fpl
	return p
}

func newEngine(data []byte, p geometry.Params) *raster.Engine {
	s := bitstream.NewPacked("fixture", bytes.NewReader(data), int64(len(data)), false)
	e, err := raster.New(s, p)
	Expect(err).NotTo(HaveOccurred())
	return e
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*37 + 11)
	}
	return data
}

func tempDir() string {
	dir, err := os.MkdirTemp("", "raster")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(os.RemoveAll, dir)
	return dir
}

// directBits reads channel ts of a line frame by frame, straight from the stream.
func directBits(e *raster.Engine, line int64, ts int) string {
	p := e.Params()
	g := e.Geometry()
	s := e.Stream()
	var sb strings.Builder
	for frame := 0; frame < p.FPL; frame++ {
		s.SeekBit(p.Offset + line*g.TotalBitWidth + int64(frame)*g.FrameBitWidth + int64(ts*p.BPTS))
		bits, err := s.ReadBit(p.BPTS)
		Expect(err).NotTo(HaveOccurred())
		sb.WriteString(raster.BitString(bits))
	}
	return sb.String()
}

var _ = Describe("Engine", func() {
	It("rejects invalid parameters and keeps the previous ones", func() {
		e := newEngine(pattern(6), params(4, 2, 3))
		err := e.SetParams(params(0, 2, 3))
		Expect(err).To(MatchError(geometry.ErrParameterBounds))
		Expect(e.Params().TS).To(Equal(4))
		Expect(e.Geometry().TotalPixelWidth).To(Equal(27))
	})
})

var _ = Describe("Paint", func() {
	var e *raster.Engine

	BeforeEach(func() {
		e = newEngine(bytes.Repeat([]byte{0xFF}, 6), params(4, 2, 3))
	})

	It("draws set bits, separators and background", func() {
		img := image.NewRGBA(image.Rect(0, 0, 27, 4))
		Expect(e.Paint(img, 0, 0, 1, nil)).To(Succeed())

		Expect(img.RGBAAt(0, 0)).To(Equal(raster.BitSet))
		Expect(img.RGBAAt(5, 1)).To(Equal(raster.BitSet))
		Expect(img.RGBAAt(6, 0)).To(Equal(raster.Separator))
		Expect(img.RGBAAt(13, 1)).To(Equal(raster.Separator))
		Expect(img.RGBAAt(26, 0)).To(Equal(raster.BitSet))
		Expect(img.RGBAAt(0, 3)).To(Equal(raster.Background))
	})

	It("draws the line starting at the end of data as clear bits", func() {
		img := image.NewRGBA(image.Rect(0, 0, 27, 4))
		Expect(e.Paint(img, 0, 0, 1, nil)).To(Succeed())
		Expect(img.RGBAAt(0, 2)).To(Equal(raster.BitClear))
		Expect(img.RGBAAt(21, 2)).To(Equal(raster.BitClear))
		Expect(img.RGBAAt(6, 2)).To(Equal(raster.Separator))
		Expect(img.RGBAAt(20, 3)).To(Equal(raster.Background))
	})

	It("draws clear bits black", func() {
		e = newEngine(make([]byte, 6), params(4, 2, 3))
		img := image.NewRGBA(image.Rect(0, 0, 27, 2))
		Expect(e.Paint(img, 0, 0, 1, nil)).To(Succeed())
		Expect(img.RGBAAt(3, 1)).To(Equal(raster.BitClear))
	})

	It("scales every raster pixel by zoom", func() {
		img := image.NewRGBA(image.Rect(0, 0, 54, 4))
		Expect(e.Paint(img, 0, 0, 2, nil)).To(Succeed())
		Expect(img.RGBAAt(1, 1)).To(Equal(raster.BitSet))
		Expect(img.RGBAAt(12, 0)).To(Equal(raster.Separator))
		Expect(img.RGBAAt(13, 3)).To(Equal(raster.Separator))
	})

	It("is idempotent", func() {
		e = newEngine(pattern(300), params(4, 2, 3))
		a := image.NewRGBA(image.Rect(0, 0, 20, 16))
		b := image.NewRGBA(image.Rect(0, 0, 20, 16))
		Expect(e.Paint(a, 3, 5, 1, nil)).To(Succeed())
		Expect(e.Paint(b, 3, 5, 1, nil)).To(Succeed())
		Expect(a.Pix).To(Equal(b.Pix))
	})

	It("packs RGB planes into one pixel", func() {
		p := params(1, 3, 1)
		p.Layout = geometry.LayoutRGB
		p.RBPP, p.GBPP, p.BBPP = 1, 1, 1
		e = newEngine([]byte{0xA0}, p)
		Expect(e.Geometry().PixelsPerChannel).To(Equal(1))

		img := image.NewRGBA(image.Rect(0, 0, 1, 2))
		Expect(e.Paint(img, 0, 0, 1, nil)).To(Succeed())
		Expect(img.RGBAAt(0, 0)).To(Equal(color.RGBA{R: 0xFF, B: 0xFF, A: 0xFF}))
		Expect(img.RGBAAt(0, 1)).To(Equal(raster.BitClear))
	})

	It("stops painting on cancel", func() {
		img := image.NewRGBA(image.Rect(0, 0, 27, 4))
		Expect(e.Paint(img, 0, 0, 1, &cancelAfter{n: 1})).To(Succeed())
		Expect(img.RGBAAt(0, 0)).To(Equal(raster.BitSet))
		Expect(img.RGBAAt(0, 1)).To(Equal(raster.Background))
	})
})

var _ = Describe("ScalePlane", func() {
	DescribeTable("maps plane values onto 0-255",
		func(v uint64, depth int, want uint8) {
			Expect(raster.ScalePlane(v, depth)).To(Equal(want))
		},
		Entry("full two bit plane", uint64(3), 2, uint8(255)),
		Entry("one third", uint64(1), 2, uint8(85)),
		Entry("single bit", uint64(1), 1, uint8(255)),
		Entry("zero value", uint64(0), 5, uint8(0)),
		Entry("zero depth", uint64(0), 0, uint8(0)),
		Entry("full 32 bit plane", uint64(1)<<32-1, 32, uint8(255)),
	)
})

var _ = Describe("CSV export", func() {
	var e *raster.Engine

	BeforeEach(func() {
		e = newEngine(pattern(30), params(4, 2, 3))
	})

	It("writes a header and the bits of every selected channel", func() {
		var buf bytes.Buffer
		sum, err := e.WriteCSV(&buf, nil, e.AllLines(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(Equal(raster.Summary{Lines: 10}))

		records, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(11))
		Expect(records[0]).To(Equal([]string{"TS:0", "TS:1", "TS:2", "TS:3"}))
		for line, rec := range records[1:] {
			for ts, field := range rec {
				Expect(field).To(HaveLen(6))
				Expect(field).To(Equal(directBits(e, int64(line), ts)), "line %d ts %d", line, ts)
			}
		}
	})

	It("writes only the selected channels", func() {
		sel, err := channel.Parse("1,3", 4)
		Expect(err).NotTo(HaveOccurred())
		var buf bytes.Buffer
		_, err = e.WriteCSV(&buf, sel, raster.LineRange{Start: 2, Count: 3}, nil)
		Expect(err).NotTo(HaveOccurred())

		records, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(4))
		Expect(records[0]).To(Equal([]string{"TS:1", "TS:3"}))
		Expect(records[1]).To(Equal([]string{directBits(e, 2, 1), directBits(e, 2, 3)}))
	})

	It("clips the range to complete lines", func() {
		var buf bytes.Buffer
		sum, err := e.WriteCSV(&buf, nil, raster.LineRange{Start: 8, Count: 10}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Lines).To(Equal(int64(2)))
	})

	It("stops after the line that canceled", func() {
		e = newEngine(pattern(3000), params(4, 2, 3))
		Expect(e.Geometry().TotalPixelHeight).To(Equal(int64(1000)))

		var buf bytes.Buffer
		sum, err := e.WriteCSV(&buf, nil, e.AllLines(), &cancelAfter{n: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(Equal(raster.Summary{Lines: 10, Canceled: true}))

		records, err := csv.NewReader(&buf).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(11))
	})

	It("reports value and range to a callback", func() {
		type call struct{ v, min, max int64 }
		var calls []call
		p := raster.ProgressFunc(func(v, min, max int64) {
			calls = append(calls, call{v, min, max})
		}).Progress()

		var buf bytes.Buffer
		sum, err := e.WriteCSV(&buf, nil, e.AllLines(), p)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(Equal(raster.Summary{Lines: 10}))
		Expect(p.Canceled()).To(BeFalse())
		Expect(calls).To(HaveLen(11))
		Expect(calls[0]).To(Equal(call{0, 0, 10}))
		Expect(calls[10]).To(Equal(call{9, 0, 10}))
	})

	It("honors a canceled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var buf bytes.Buffer
		sum, err := e.WriteCSV(&buf, nil, e.AllLines(), raster.WithContext(ctx, nil))
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(Equal(raster.Summary{Canceled: true}))
	})

	It("exports the visible lines of a viewport", func() {
		path := filepath.Join(tempDir(), "visible.csv")
		vp := raster.Viewport{Width: 27, Height: 6, VOffset: 4, Zoom: 2}
		sum, err := e.SaveVisibleCSV(path, nil, vp, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Lines).To(Equal(int64(3)))

		f, err := os.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		records, err := csv.NewReader(f).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records[1][0]).To(Equal(directBits(e, 4, 0)))
	})

	It("compresses .zst outputs", func() {
		path := filepath.Join(tempDir(), "entire.csv.zst")
		_, err := e.SaveEntireCSV(path, nil, nil)
		Expect(err).NotTo(HaveOccurred())

		f, err := os.Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer f.Close()
		dec, err := zstd.NewReader(f)
		Expect(err).NotTo(HaveOccurred())
		defer dec.Close()
		records, err := csv.NewReader(dec).ReadAll()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(11))
	})
})

var _ = Describe("Bit dump", func() {
	It("reproduces the input when every channel is selected", func() {
		data := pattern(30)
		e := newEngine(data, params(4, 2, 3))
		var buf bytes.Buffer
		sum, err := e.WriteBits(&buf, nil, e.AllLines(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(sum.Lines).To(Equal(int64(10)))
		Expect(buf.Bytes()).To(Equal(data))
	})

	It("packs selected bits MSB first and zero-pads the last byte", func() {
		e := newEngine([]byte{0x98}, params(2, 1, 1))
		var buf bytes.Buffer
		_, err := e.WriteBits(&buf, channel.Selector{true, false}, e.AllLines(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.Bytes()).To(Equal([]byte{0xA0}))
	})

	It("stops after the line that canceled", func() {
		data := pattern(3000)
		e := newEngine(data, params(4, 2, 3))
		var buf bytes.Buffer
		sum, err := e.WriteBits(&buf, nil, e.AllLines(), &cancelAfter{n: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(Equal(raster.Summary{Lines: 10, Canceled: true}))
		Expect(buf.Bytes()).To(Equal(data[:30]))
	})

	It("pads the last byte after a cancel", func() {
		e := newEngine([]byte{0xB6, 0xFF, 0xFF}, params(1, 3, 1))
		var buf bytes.Buffer
		sum, err := e.WriteBits(&buf, nil, e.AllLines(), &cancelAfter{n: 3})
		Expect(err).NotTo(HaveOccurred())
		Expect(sum).To(Equal(raster.Summary{Lines: 3, Canceled: true}))
		Expect(buf.Bytes()).To(Equal([]byte{0xB6, 0x80}))
	})

	It("writes nothing for an empty selection", func() {
		e := newEngine(pattern(30), params(4, 2, 3))
		var buf bytes.Buffer
		_, err := e.WriteBits(&buf, channel.None(4), e.AllLines(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.Len()).To(BeZero())
	})

	It("saves the entire capture to a file", func() {
		data := pattern(30)
		e := newEngine(data, params(4, 2, 3))
		path := filepath.Join(tempDir(), "dump.bin")
		_, err := e.SaveEntireBits(path, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(os.ReadFile(path)).To(Equal(data))
	})
})

var _ = Describe("Raster images", func() {
	var (
		e  *raster.Engine
		vp raster.Viewport
	)

	BeforeEach(func() {
		e = newEngine(pattern(30), params(4, 2, 3))
		vp = raster.Viewport{Width: 20, Height: 8, VOffset: 1, HOffset: 3, Zoom: 2}
	})

	DescribeTable("sizes each kind",
		func(kind raster.RasterKind, w, h int) {
			img, err := e.RasterImage(kind, vp, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Dx()).To(Equal(w))
			Expect(img.Bounds().Dy()).To(Equal(h))
		},
		Entry("viewable", raster.Viewable, 20, 8),
		Entry("horizontal", raster.Horizontal, 27, 4),
		Entry("vertical", raster.Vertical, 10, 10),
		Entry("entire", raster.Entire, 27, 10),
	)

	It("rejects an empty raster", func() {
		vp.Height, vp.Zoom = 1, 2
		_, err := e.RasterImage(raster.Horizontal, vp, nil)
		Expect(err).To(MatchError(raster.ErrEmptyRaster))
	})

	It("rejects an invalid viewport", func() {
		vp.Zoom = 0
		_, err := e.RasterImage(raster.Viewable, vp, nil)
		Expect(err).To(MatchError(raster.ErrViewport))
	})

	DescribeTable("saves by extension",
		func(name string, decode func(f *os.File) (image.Image, error)) {
			path := filepath.Join(tempDir(), name)
			Expect(e.SaveRaster(path, raster.Entire, vp, 2, nil)).To(Succeed())

			f, err := os.Open(path)
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			img, err := decode(f)
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Bounds().Size()).To(Equal(image.Pt(54, 20)))
		},
		Entry("png", "entire.png", func(f *os.File) (image.Image, error) { return png.Decode(f) }),
		Entry("bmp", "entire.bmp", func(f *os.File) (image.Image, error) { return bmp.Decode(f) }),
		Entry("tiff", "entire.tiff", func(f *os.File) (image.Image, error) { return tiff.Decode(f) }),
	)

	It("writes SVG with one rect per color run", func() {
		img := image.NewRGBA(image.Rect(0, 0, 3, 2))
		for x := 0; x < 3; x++ {
			img.SetRGBA(x, 0, raster.Background)
			img.SetRGBA(x, 1, raster.Background)
		}
		img.SetRGBA(0, 0, raster.BitSet)
		img.SetRGBA(1, 0, raster.BitSet)
		img.SetRGBA(2, 1, raster.Separator)

		var buf bytes.Buffer
		Expect(raster.EncodeSVG(&buf, img)).To(Succeed())
		out := buf.String()
		Expect(out).To(HavePrefix("<?xml"))
		Expect(out).To(ContainSubstring(`<rect x="0" y="0" width="2" height="1" fill="#00ff00"/>`))
		Expect(out).To(ContainSubstring(`<rect x="2" y="1" width="1" height="1" fill="#ffffff"/>`))
		Expect(strings.Count(out, "<rect")).To(Equal(3))
		Expect(out).To(HaveSuffix("</svg>\n"))
	})

	It("saves SVG by extension", func() {
		path := filepath.Join(tempDir(), "view.svg")
		Expect(e.SaveRaster(path, raster.Viewable, vp, 1, nil)).To(Succeed())
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`width="20" height="8"`))
	})

	It("rejects an unknown extension before painting", func() {
		path := filepath.Join(tempDir(), "entire.gif")
		Expect(e.SaveRaster(path, raster.Entire, vp, 1, nil)).NotTo(Succeed())
		Expect(path).NotTo(BeAnExistingFile())
	})

	It("parses raster kinds", func() {
		k, err := raster.ParseRasterKind(" Vertical ")
		Expect(err).NotTo(HaveOccurred())
		Expect(k).To(Equal(raster.Vertical))
		_, err = raster.ParseRasterKind("diagonal")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Probe", func() {
	var (
		e  *raster.Engine
		vp raster.Viewport
	)

	BeforeEach(func() {
		e = newEngine(pattern(30), params(4, 2, 3))
		vp = raster.Viewport{Width: 27, Height: 10, Zoom: 1}
	})

	It("reports the channel and line under a pixel", func() {
		r, err := e.Probe(8, 2, vp)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.TS).To(Equal(1))
		Expect(r.Line).To(Equal(int64(2)))
		Expect(r.Label()).To(Equal("File:fixture TS:1 Line:2"))
		Expect(r.Bits).To(Equal(directBits(e, 2, 1)))
	})

	It("accounts for scroll and zoom", func() {
		vp.Zoom, vp.HOffset, vp.VOffset = 2, 7, 3
		r, err := e.Probe(2, 5, vp)
		Expect(err).NotTo(HaveOccurred())
		Expect(r.TS).To(Equal(1))
		Expect(r.Line).To(Equal(int64(5)))
	})

	It("rejects positions outside the capture", func() {
		_, err := e.Probe(100, 0, vp)
		Expect(err).To(MatchError(raster.ErrOutOfRange))
		_, err = e.Probe(0, 10, vp)
		Expect(err).To(MatchError(raster.ErrOutOfRange))
	})
})

var _ = Describe("Density", func() {
	It("is the fraction of set bits per line", func() {
		e := newEngine(bytes.Repeat([]byte{0xF0}, 3), params(1, 4, 1))
		d, err := e.Density(0, e.AllLines(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal([]float64{1, 0, 1, 0, 1, 0}))
	})

	It("rejects an unknown channel", func() {
		e := newEngine(pattern(30), params(4, 2, 3))
		_, err := e.Density(4, e.AllLines(), nil)
		Expect(err).To(MatchError(raster.ErrOutOfRange))
	})
})
