package bitstream

import "io"

// Expanded reads one stream bit per file byte. Any nonzero byte is a set bit.
type Expanded struct {
	cursor
}

func NewExpanded(name string, src io.ReaderAt, byteSize int64, invert bool) *Expanded {
	return &Expanded{cursor{
		name:   name,
		src:    src,
		size:   byteSize,
		invert: invert,
	}}
}

func (e *Expanded) ReadBit(n int) ([]bool, error) {
	if n <= 0 {
		return []bool{}, nil
	}
	bits := make([]bool, n)
	start := e.advance(n)
	if start >= e.size {
		return bits, nil
	}

	buf := make([]byte, n)
	got, err := e.src.ReadAt(buf, start)
	if err = eofIsShort(err); err != nil {
		return bits, err
	}
	for i := 0; i < got; i++ {
		bits[i] = (buf[i] != 0) != e.invert
	}
	return bits, nil
}
