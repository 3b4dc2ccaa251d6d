package datasource

import (
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies the codec implied by a location's extension.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// CompressionOf returns the codec for location, ignoring any URL query.
func CompressionOf(location string) Compression {
	if i := strings.IndexByte(location, '?'); i >= 0 {
		location = location[:i]
	}
	switch strings.ToLower(path.Ext(location)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	}
	return CompressionNone
}

// Decompress wraps rc in a decoder matching location's extension. The
// returned ReadCloser closes both the decoder and rc. On error rc is closed.
func Decompress(location string, rc io.ReadCloser) (io.ReadCloser, error) {
	switch CompressionOf(location) {
	case CompressionGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("gzip %s: %w", location, err)
		}
		return &stacked{Reader: zr, closers: []io.Closer{zr, rc}}, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1))
		if err != nil {
			rc.Close()
			return nil, fmt.Errorf("zstd %s: %w", location, err)
		}
		return &stacked{Reader: dec, closers: []io.Closer{dec.IOReadCloser(), rc}}, nil
	}
	return rc, nil
}

// stacked reads from the outermost decoder and closes every layer in order.
type stacked struct {
	io.Reader
	closers []io.Closer
}

func (s *stacked) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
