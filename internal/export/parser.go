// ABOUTME: Streaming XML scanner over a health export file.
// ABOUTME: Yields Record and Workout elements one at a time in constant memory.
package export

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
)

// RawElement is one relevant element from the export: its tag and a flat
// attribute map. It is consumed by the normalizer and then discarded.
type RawElement struct {
	Tag   string
	Attrs map[string]string
}

// Attr returns the named attribute or "" when absent.
func (e RawElement) Attr(name string) string {
	return e.Attrs[name]
}

// ParseError reports a structural problem with the export file: it could not
// be opened or is not well-formed XML. Structural corruption is fatal for the
// whole run; only per-record attribute problems are tolerated downstream.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Scanner pulls Record and Workout elements from an export file without
// materializing the document. Usage mirrors bufio.Scanner:
//
//	s, err := export.OpenExport(path)
//	for s.Scan() {
//		el := s.Element()
//		...
//	}
//	if err := s.Err(); err != nil { ... }
type Scanner struct {
	path   string
	dec    *xml.Decoder
	closer io.Closer
	elem   RawElement
	err    error
	done   bool
}

// OpenExport opens the export file and returns a scanner over its relevant
// elements. The caller must Close it.
func OpenExport(path string) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	dec := xml.NewDecoder(bufio.NewReaderSize(f, 1<<20))
	return &Scanner{path: path, dec: dec, closer: f}, nil
}

// Scan advances to the next Record or Workout element. It returns false at
// end of input or on a structural error; check Err afterwards.
func (s *Scanner) Scan() bool {
	if s.done || s.err != nil {
		return false
	}
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			s.done = true
			return false
		}
		if err != nil {
			s.err = &ParseError{Path: s.path, Err: err}
			return false
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		tag := start.Name.Local
		if tag != "Record" && tag != "Workout" {
			continue
		}

		attrs := make(map[string]string, len(start.Attr))
		for _, a := range start.Attr {
			attrs[a.Name.Local] = a.Value
		}
		// Skip to the matching end element so nested children (metadata
		// entries and the like) never accumulate in the decoder.
		if err := s.dec.Skip(); err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			s.err = &ParseError{Path: s.path, Err: err}
			return false
		}
		s.elem = RawElement{Tag: tag, Attrs: attrs}
		return true
	}
}

// Element returns the element from the last successful Scan.
func (s *Scanner) Element() RawElement { return s.elem }

// Err returns the structural error that stopped scanning, if any.
func (s *Scanner) Err() error { return s.err }

// Close releases the underlying file.
func (s *Scanner) Close() error {
	return s.closer.Close()
}
