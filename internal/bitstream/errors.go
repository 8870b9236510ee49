package bitstream

import "errors"

var (
	// ErrOpen indicates the backing capture file could not be opened.
	ErrOpen = errors.New("bitstream: cannot open capture")

	// ErrEncoding indicates an unknown encoding name.
	ErrEncoding = errors.New("bitstream: unknown encoding")
)
