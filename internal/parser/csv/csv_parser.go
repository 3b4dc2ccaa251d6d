// Package csv reads a survey extract fully into memory as a Table whose
// header has already been renamed to canonical column names.
//
// Parsing is strict: a malformed record or a record whose field count differs
// from the header aborts the read with the source and line number, since a
// partial extract must never reach the database.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Options configures the CSV reader. All fields are optional.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from every cell.
	TrimSpace bool

	// HeaderMap renames raw headers to canonical column names. Headers with
	// no entry are kept verbatim.
	HeaderMap map[string]string
}

// Row is one data record together with where it came from.
type Row struct {
	Source string
	Line   int
	Cells  []string
}

// Table is a fully materialized CSV extract.
type Table struct {
	Source string
	Header []string
	Rows   []Row
}

// Index returns the position of column name in the header, or -1. When a
// name occurs more than once the first occurrence wins.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Parser reads CSV input according to Options. It is safe to reuse across
// inputs and for concurrent use.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Read consumes r completely. source names the input in errors and in each
// Row. A leading byte order mark is removed; UTF-16 input with a BOM is
// transcoded to UTF-8.
func (p *Parser) Read(source string, r io.Reader) (*Table, error) {
	r = transform.NewReader(r, unicode.BOMOverride(transform.Nop))

	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file, header row missing", source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read csv header: %w", source, err)
	}

	t := &Table{Source: source, Header: p.renameHeader(header)}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		line, _ := cr.FieldPos(0)
		if p.opt.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		t.Rows = append(t.Rows, Row{Source: source, Line: line, Cells: rec})
	}
}

func (p *Parser) renameHeader(h []string) []string {
	out := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if m, ok := p.opt.HeaderMap[c]; ok {
			c = m
		}
		out[i] = c
	}
	return out
}
