package raster

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// output is a buffered export file, zstd-compressed when the name ends in ".zst".
type output struct {
	*bufio.Writer
	file *os.File
	enc  *zstd.Encoder
}

func create(path string) (*output, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	out := &output{file: f}

	var w io.Writer = f
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		enc, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		out.enc = enc
		w = enc
	}
	out.Writer = bufio.NewWriter(w)
	return out, nil
}

// Close flushes every layer and closes the file. The first error wins.
func (o *output) Close() error {
	err := o.Flush()
	if o.enc != nil {
		if cerr := o.enc.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := o.file.Close(); err == nil {
		err = cerr
	}
	return err
}
