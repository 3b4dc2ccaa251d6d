// Package datasource resolves a location string (a local path or a blob URL)
// to something that can be read from or written to, and transparently
// decompresses ".gz" and ".zst" extracts.
package datasource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"foodsecurity/internal/datasource/blobsrc"
	"foodsecurity/internal/datasource/file"
)

// Source opens a stream for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Sink opens a stream for writing.
type Sink interface {
	Create(ctx context.Context) (io.WriteCloser, error)
}

// Location is both a Source and a Sink.
type Location interface {
	Source
	Sink
}

// New resolves location. Anything containing "://" is treated as a blob URL;
// everything else is a local path.
func New(location string) (Location, error) {
	if strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("datasource: empty location")
	}
	if strings.Contains(location, "://") {
		return blobsrc.Parse(location)
	}
	return file.NewLocal(location), nil
}

// Open resolves location, opens it, and wraps the stream in a decompressor
// chosen by the file extension.
func Open(ctx context.Context, location string) (io.ReadCloser, error) {
	src, err := New(location)
	if err != nil {
		return nil, err
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	return Decompress(location, rc)
}

// Create resolves location and opens it for writing.
func Create(ctx context.Context, location string) (io.WriteCloser, error) {
	dst, err := New(location)
	if err != nil {
		return nil, err
	}
	return dst.Create(ctx)
}

// ReadList reads a list of locations, one per line. Blank lines and lines
// starting with '#' are skipped; order is preserved.
func ReadList(ctx context.Context, location string) ([]string, error) {
	rc, err := Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var out []string
	sc := bufio.NewScanner(rc)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", location, err)
	}
	return out, nil
}
