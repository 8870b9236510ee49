package raster

import "fmt"

// Density returns the fraction of set bits of channel ts, one value per
// line of lines. A cancel returns the values computed so far.
func (e *Engine) Density(ts int, lines LineRange, p Progress) ([]float64, error) {
	if ts < 0 || ts >= e.params.TS {
		return nil, fmt.Errorf("%w: ts %d", ErrOutOfRange, ts)
	}
	p = orNop(p)
	start, end := e.clip(lines)
	p.SetRange(lines.Start, lines.Start+lines.Count)

	var out []float64
	if end > start {
		out = make([]float64, 0, end-start)
	}
	n := float64(e.geom.ChannelBitsPerLine)
	for line := start; line < end; line++ {
		p.SetValue(line)
		if p.Canceled() {
			break
		}
		bits, err := e.channelBits(e.lineOffset(line), ts, e.geom.ChannelBitsPerLine)
		if err != nil {
			return out, err
		}
		set := 0
		for _, b := range bits {
			if b {
				set++
			}
		}
		out = append(out, float64(set)/n)
	}
	return out, nil
}
