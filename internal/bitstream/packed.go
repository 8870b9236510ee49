package bitstream

import (
	"errors"
	"io"

	"github.com/icza/bitio"
)

// Packed reads one stream bit per file bit, most significant bit first.
type Packed struct {
	cursor
}

// NewPacked wraps src, which holds byteSize bytes. Callers that own src are
// responsible for closing it.
func NewPacked(name string, src io.ReaderAt, byteSize int64, invert bool) *Packed {
	return &Packed{cursor{
		name:   name,
		src:    src,
		size:   byteSize * 8,
		invert: invert,
	}}
}

func (p *Packed) ReadBit(n int) ([]bool, error) {
	if n <= 0 {
		return []bool{}, nil
	}
	bits := make([]bool, n)
	start := p.advance(n)
	if start >= p.size {
		return bits, nil
	}

	lead := start % 8
	span := (lead + int64(n) + 7) / 8
	r := bitio.NewReader(io.NewSectionReader(p.src, start/8, span))
	if lead > 0 {
		if _, err := r.ReadBits(uint8(lead)); err != nil {
			return bits, eofIsShort(err)
		}
	}
	for i := range bits {
		b, err := r.ReadBool()
		if err != nil {
			return bits, eofIsShort(err)
		}
		bits[i] = b != p.invert
	}
	return bits, nil
}

// eofIsShort drops end-of-file errors: a short read leaves the remaining bits clear.
func eofIsShort(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil
	}
	return err
}
