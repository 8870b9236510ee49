package raster

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/tdmraster/internal/channel"
)

// ChannelLabel is the column name of channel ts.
func ChannelLabel(ts int) string {
	return "TS:" + strconv.Itoa(ts)
}

// WriteCSV writes a header of selected channel labels and then one row per
// line, each field the channel's BPTS*FPL bits as '0'/'1'. A nil selector
// selects every channel. Lines past the last complete line are not written.
func (e *Engine) WriteCSV(w io.Writer, sel channel.Selector, lines LineRange, p Progress) (Summary, error) {
	p = orNop(p)
	sel = e.selector(sel)
	cw := csv.NewWriter(w)

	header := make([]string, 0, sel.Count())
	for ts := 0; ts < e.params.TS; ts++ {
		if sel.Selected(ts) {
			header = append(header, ChannelLabel(ts))
		}
	}
	if err := cw.Write(header); err != nil {
		return Summary{}, err
	}

	var sum Summary
	start, end := e.clip(lines)
	p.SetRange(lines.Start, lines.Start+lines.Count)
	p.SetValue(lines.Start)

	row := make([]string, 0, len(header))
	for line := start; line < end; line++ {
		p.SetValue(line)
		if p.Canceled() {
			sum.Canceled = true
			break
		}
		row = row[:0]
		lineOffset := e.lineOffset(line)
		for ts := 0; ts < e.params.TS; ts++ {
			if !sel.Selected(ts) {
				continue
			}
			bits, err := e.channelBits(lineOffset, ts, e.geom.ChannelBitsPerLine)
			if err != nil {
				return sum, err
			}
			row = append(row, BitString(bits))
		}
		if err := cw.Write(row); err != nil {
			return sum, err
		}
		sum.Lines++
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return sum, err
	}
	e.Log.WithField("lines", sum.Lines).WithField("canceled", sum.Canceled).Debug("csv written")
	return sum, nil
}

// SaveVisibleCSV exports the lines shown in vp.
func (e *Engine) SaveVisibleCSV(path string, sel channel.Selector, vp Viewport, p Progress) (Summary, error) {
	if err := vp.validate(); err != nil {
		return Summary{}, err
	}
	return e.saveCSV(path, sel, vp.VisibleLines(), p)
}

// SaveEntireCSV exports every line of the capture.
func (e *Engine) SaveEntireCSV(path string, sel channel.Selector, p Progress) (Summary, error) {
	return e.saveCSV(path, sel, e.AllLines(), p)
}

func (e *Engine) saveCSV(path string, sel channel.Selector, lines LineRange, p Progress) (Summary, error) {
	f, err := create(path)
	if err != nil {
		return Summary{}, err
	}
	sum, err := e.WriteCSV(f, sel, lines, p)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return sum, err
}

// BitString renders bits as '0' and '1' characters.
func BitString(bits []bool) string {
	var sb strings.Builder
	sb.Grow(len(bits))
	for _, b := range bits {
		if b {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
