package raster

import (
	"io"

	"github.com/icza/bitio"
	"github.com/san-kum/tdmraster/internal/channel"
)

// WriteBits packs the selected channels' bits MSB-first into w, iterating
// line, then frame, then channel. A trailing partial byte is zero-padded
// and written, also after a cancel.
func (e *Engine) WriteBits(w io.Writer, sel channel.Selector, lines LineRange, p Progress) (Summary, error) {
	p = orNop(p)
	sel = e.selector(sel)
	bw := bitio.NewWriter(w)

	var sum Summary
	start, end := e.clip(lines)
	p.SetRange(lines.Start, lines.Start+lines.Count)
	p.SetValue(lines.Start)

	for line := start; line < end; line++ {
		p.SetValue(line)
		if p.Canceled() {
			sum.Canceled = true
			break
		}
		lineOffset := e.lineOffset(line)
		for frame := 0; frame < e.params.FPL; frame++ {
			for ts := 0; ts < e.params.TS; ts++ {
				if !sel.Selected(ts) {
					continue
				}
				bits, err := e.readSlot(lineOffset, frame, ts)
				if err != nil {
					return sum, err
				}
				for _, b := range bits {
					if err := bw.WriteBool(b); err != nil {
						return sum, err
					}
				}
			}
		}
		sum.Lines++
	}

	if err := bw.Close(); err != nil {
		return sum, err
	}
	e.Log.WithField("lines", sum.Lines).WithField("canceled", sum.Canceled).Debug("bits written")
	return sum, nil
}

// SaveVisibleBits dumps the lines shown in vp.
func (e *Engine) SaveVisibleBits(path string, sel channel.Selector, vp Viewport, p Progress) (Summary, error) {
	if err := vp.validate(); err != nil {
		return Summary{}, err
	}
	return e.saveBits(path, sel, vp.VisibleLines(), p)
}

// SaveEntireBits dumps every line of the capture.
func (e *Engine) SaveEntireBits(path string, sel channel.Selector, p Progress) (Summary, error) {
	return e.saveBits(path, sel, e.AllLines(), p)
}

func (e *Engine) saveBits(path string, sel channel.Selector, lines LineRange, p Progress) (Summary, error) {
	f, err := create(path)
	if err != nil {
		return Summary{}, err
	}
	sum, err := e.WriteBits(f, sel, lines, p)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return sum, err
}
