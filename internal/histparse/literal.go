// Package histparse turns raw scraped price-history payloads into canonical
// (timestamp, price) events. Payloads arrive as Python-literal text, a list
// of 2-tuples whose element order and scalar types are not guaranteed, so the
// package carries its own small literal scanner plus the heuristics that
// decide which element is the timestamp and which is the price.
package histparse

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrHistoryDecode reports a payload that is not valid encoded data. Malformed
// encoding indicates an upstream scraper bug and is fatal for the record.
var ErrHistoryDecode = eris.New("histparse: malformed price history payload")

// scalar is one decoded tuple element, kept as raw text so the classifier can
// apply its own parsing rules. quoted distinguishes 'abc' from a bare token.
type scalar struct {
	text   string
	quoted bool
}

// decodeTuples parses a Python-literal list of tuples, e.g.
//
//	[('2024-01-01T00:00:00', 100), (120.5, '2024-02-01')]
//
// Tuples of any arity are accepted here; arity policy belongs to the
// normalizer. Trailing commas are tolerated, nested lists are not.
func decodeTuples(s string) ([][]scalar, error) {
	sc := &scanner{src: s}
	sc.skipSpace()
	if !sc.consume('[') {
		return nil, eris.Wrapf(ErrHistoryDecode, "expected '[' at offset %d", sc.pos)
	}

	var tuples [][]scalar
	for {
		sc.skipSpace()
		if sc.consume(']') {
			break
		}
		t, err := sc.tuple()
		if err != nil {
			return nil, err
		}
		tuples = append(tuples, t)
		sc.skipSpace()
		if sc.consume(',') {
			continue
		}
		if sc.consume(']') {
			break
		}
		return nil, eris.Wrapf(ErrHistoryDecode, "expected ',' or ']' at offset %d", sc.pos)
	}

	sc.skipSpace()
	if !sc.done() {
		return nil, eris.Wrapf(ErrHistoryDecode, "trailing data at offset %d", sc.pos)
	}
	return tuples, nil
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) done() bool { return s.pos >= len(s.src) }

func (s *scanner) skipSpace() {
	for !s.done() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t' || s.src[s.pos] == '\n' || s.src[s.pos] == '\r') {
		s.pos++
	}
}

func (s *scanner) consume(ch byte) bool {
	if !s.done() && s.src[s.pos] == ch {
		s.pos++
		return true
	}
	return false
}

func (s *scanner) tuple() ([]scalar, error) {
	if !s.consume('(') {
		return nil, eris.Wrapf(ErrHistoryDecode, "expected '(' at offset %d", s.pos)
	}

	var elems []scalar
	for {
		s.skipSpace()
		if s.consume(')') {
			return elems, nil
		}
		v, err := s.scalar()
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
		s.skipSpace()
		if s.consume(',') {
			continue
		}
		if s.consume(')') {
			return elems, nil
		}
		return nil, eris.Wrapf(ErrHistoryDecode, "expected ',' or ')' at offset %d", s.pos)
	}
}

func (s *scanner) scalar() (scalar, error) {
	if s.done() {
		return scalar{}, eris.Wrap(ErrHistoryDecode, "unexpected end of payload")
	}

	switch s.src[s.pos] {
	case '\'', '"':
		return s.quoted()
	case '(', '[', ')', ']', ',':
		return scalar{}, eris.Wrapf(ErrHistoryDecode, "unexpected %q at offset %d", s.src[s.pos], s.pos)
	}

	start := s.pos
	for !s.done() && !strings.ContainsRune(",)]", rune(s.src[s.pos])) {
		s.pos++
	}
	text := strings.TrimSpace(s.src[start:s.pos])
	if text == "" {
		return scalar{}, eris.Wrapf(ErrHistoryDecode, "empty element at offset %d", start)
	}
	return scalar{text: text}, nil
}

func (s *scanner) quoted() (scalar, error) {
	quote := s.src[s.pos]
	s.pos++
	var b strings.Builder
	for !s.done() {
		ch := s.src[s.pos]
		switch ch {
		case '\\':
			if s.pos+1 >= len(s.src) {
				return scalar{}, eris.Wrap(ErrHistoryDecode, "dangling escape in string")
			}
			s.pos++
			b.WriteByte(s.src[s.pos])
			s.pos++
		case quote:
			s.pos++
			return scalar{text: b.String(), quoted: true}, nil
		default:
			b.WriteByte(ch)
			s.pos++
		}
	}
	return scalar{}, eris.Wrap(ErrHistoryDecode, "unterminated string in payload")
}
