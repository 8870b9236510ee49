package bitstream

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Stream is a bit cursor over a capture.
type Stream interface {
	// TellBit returns the cursor position in bits from the start of the stream.
	TellBit() int64
	// SeekBit moves the cursor. Out of range positions are not validated.
	SeekBit(pos int64)
	// SizeBit returns the total number of bits in the stream.
	SizeBit() int64
	// ReadBit reads n bits at the cursor and advances it by n. The returned
	// slice always has length n; bits past the end of the file are clear.
	ReadBit(n int) ([]bool, error)
	// Name is the display name of the capture.
	Name() string
	Close() error
}

type Encoding int

const (
	EncodingPacked Encoding = iota
	EncodingExpanded
)

func (e Encoding) String() string {
	switch e {
	case EncodingPacked:
		return "packed"
	case EncodingExpanded:
		return "expanded"
	}
	return fmt.Sprintf("encoding(%d)", int(e))
}

// ParseEncoding accepts the names used on the command line and in config
// files. "bit" and "byte" are short for bit-per-bit and byte-per-bit.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "packed", "bit", "bitperbit":
		return EncodingPacked, nil
	case "expanded", "byte", "byteperbit":
		return EncodingExpanded, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrEncoding, s)
}

// Open opens path with the given encoding. A capture that cannot be opened
// is reported here once; the returned stream is never half-usable.
func Open(path string, enc Encoding, invert bool) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	name := filepath.Base(path)
	switch enc {
	case EncodingPacked:
		p := NewPacked(name, f, info.Size(), invert)
		p.closer = f
		return p, nil
	case EncodingExpanded:
		e := NewExpanded(name, f, info.Size(), invert)
		e.closer = f
		return e, nil
	}
	f.Close()
	return nil, fmt.Errorf("%w: %v", ErrEncoding, enc)
}

type cursor struct {
	name   string
	src    io.ReaderAt
	closer io.Closer
	pos    int64
	size   int64
	invert bool
}

func (c *cursor) TellBit() int64    { return c.pos }
func (c *cursor) SeekBit(pos int64) { c.pos = pos }
func (c *cursor) SizeBit() int64    { return c.size }
func (c *cursor) Name() string      { return c.name }

func (c *cursor) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

// advance reserves n bits at the cursor and returns the start position.
func (c *cursor) advance(n int) int64 {
	start := c.pos
	c.pos += int64(n)
	return start
}
