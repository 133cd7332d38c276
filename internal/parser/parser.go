// Package parser splits normalized registry text into raw positional
// records. The source format is semicolon-delimited with no header row and
// no quoting, so a literal split on the delimiter is correct.
package parser

import (
	"bufio"
	"io"
	"log"
	"strings"
)

const delimiter = ";"

// maxLineBytes caps a single record. Establishment rows with long address
// fields stay well under this; anything bigger is file corruption.
const maxLineBytes = 1024 * 1024

// RawRecord is one untyped positional record, length-adjusted to the
// expected arity of its file type.
type RawRecord []string

// Scanner lazily yields one RawRecord per input line. Records with fewer
// fields than expected are padded with empty fields (the official files
// sometimes omit trailing optional columns); records with materially more
// fields are dropped and counted.
type Scanner struct {
	scanner *bufio.Scanner
	arity   int
	line    int
	dropped int64
}

// NewScanner returns a scanner producing records of the given arity.
func NewScanner(r io.Reader, arity int) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Scanner{scanner: sc, arity: arity}
}

// Next returns the next valid record. It returns false when the input is
// exhausted or a read error occurred; check Err afterwards.
func (s *Scanner) Next() (RawRecord, bool) {
	for s.scanner.Scan() {
		s.line++
		line := s.scanner.Text()
		if line == "" {
			continue
		}

		fields := strings.Split(line, delimiter)
		if len(fields) > s.arity {
			// A single trailing delimiter yields one empty extra field;
			// treat that as the record ending in an empty column. Anything
			// beyond it is malformed.
			if len(fields) == s.arity+1 && fields[s.arity] == "" {
				fields = fields[:s.arity]
			} else {
				s.dropped++
				log.Printf("Dropping malformed record at line %d: got %d fields, expected %d", s.line, len(fields), s.arity)
				continue
			}
		}
		for len(fields) < s.arity {
			fields = append(fields, "")
		}
		return RawRecord(fields), true
	}
	return nil, false
}

// Err returns the first error hit while reading, if any.
func (s *Scanner) Err() error {
	return s.scanner.Err()
}

// Dropped reports how many malformed records were discarded.
func (s *Scanner) Dropped() int64 {
	return s.dropped
}
