package codec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// scanner is the byte cursor shared by the Turtle and N-Triples readers.
type scanner struct {
	src  string
	pos  int
	line int
}

func newScanner(src string) *scanner { return &scanner{src: src, line: 1} }

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) next() byte {
	c := s.src[s.pos]
	s.pos++
	if c == '\n' {
		s.line++
	}
	return c
}

func (s *scanner) hasPrefix(p string) bool { return strings.HasPrefix(s.src[s.pos:], p) }

// skipSpace skips whitespace and '#' comments.
func (s *scanner) skipSpace() {
	for !s.eof() {
		switch c := s.peek(); c {
		case ' ', '\t', '\r', '\n':
			s.next()
		case '#':
			for !s.eof() && s.peek() != '\n' {
				s.next()
			}
		default:
			return
		}
	}
}

func (s *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", s.line, fmt.Sprintf(format, args...))
}

func (s *scanner) expect(c byte) error {
	if s.eof() || s.peek() != c {
		return s.errorf("expected %q", c)
	}
	s.next()
	return nil
}

// readIRIRef reads <...> and unescapes \u sequences.
func (s *scanner) readIRIRef() (string, error) {
	if err := s.expect('<'); err != nil {
		return "", err
	}
	var b strings.Builder
	for {
		if s.eof() {
			return "", s.errorf("unterminated IRI")
		}
		c := s.next()
		switch c {
		case '>':
			return b.String(), nil
		case '\n', ' ', '<', '"':
			return "", s.errorf("invalid character %q in IRI", c)
		case '\\':
			r, err := s.readUnicodeEscape()
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
		default:
			b.WriteByte(c)
		}
	}
}

func (s *scanner) readUnicodeEscape() (rune, error) {
	if s.eof() {
		return 0, s.errorf("truncated escape")
	}
	n := 0
	switch s.next() {
	case 'u':
		n = 4
	case 'U':
		n = 8
	default:
		return 0, s.errorf("invalid escape in IRI")
	}
	if s.pos+n > len(s.src) {
		return 0, s.errorf("truncated unicode escape")
	}
	v, err := strconv.ParseUint(s.src[s.pos:s.pos+n], 16, 32)
	if err != nil {
		return 0, s.errorf("invalid unicode escape")
	}
	s.pos += n
	return rune(v), nil
}

// readQuoted reads a short or long quoted string with either quote style.
func (s *scanner) readQuoted() (string, error) {
	q := s.peek()
	if q != '"' && q != '\'' {
		return "", s.errorf("expected string")
	}
	long := s.hasPrefix(strings.Repeat(string(q), 3))
	if long {
		s.pos += 3
	} else {
		s.next()
	}
	var b strings.Builder
	for {
		if s.eof() {
			return "", s.errorf("unterminated string")
		}
		c := s.peek()
		switch {
		case c == q && !long:
			s.next()
			return b.String(), nil
		case c == q && long && s.hasPrefix(strings.Repeat(string(q), 3)):
			s.pos += 3
			// A long string may end in up to two extra quote characters.
			for s.peek() == q {
				b.WriteByte(q)
				s.next()
			}
			return b.String(), nil
		case c == '\n' && !long:
			return "", s.errorf("newline in string")
		case c == '\\':
			s.next()
			if err := s.readStringEscape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(s.src[s.pos:])
			b.WriteRune(r)
			for i := 0; i < size; i++ {
				s.next()
			}
		}
	}
}

func (s *scanner) readStringEscape(b *strings.Builder) error {
	if s.eof() {
		return s.errorf("truncated escape")
	}
	switch c := s.peek(); c {
	case 't':
		b.WriteByte('\t')
	case 'b':
		b.WriteByte('\b')
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 'f':
		b.WriteByte('\f')
	case '"', '\'', '\\':
		b.WriteByte(c)
	case 'u', 'U':
		r, err := s.readUnicodeEscape()
		if err != nil {
			return err
		}
		b.WriteRune(r)
		return nil
	default:
		return s.errorf("invalid escape \\%c", c)
	}
	s.next()
	return nil
}

// readBlankLabel reads the label after "_:".
func (s *scanner) readBlankLabel() (string, error) {
	if !s.hasPrefix("_:") {
		return "", s.errorf("expected blank node")
	}
	s.pos += 2
	start := s.pos
	for !s.eof() {
		c := s.peek()
		if isNameByte(c) || (c == '.' && isNameByte(s.peekAt(1))) {
			s.next()
			continue
		}
		break
	}
	if s.pos == start {
		return "", s.errorf("empty blank node label")
	}
	return s.src[start:s.pos], nil
}

// readLangTag reads the tag after '@'.
func (s *scanner) readLangTag() (string, error) {
	if err := s.expect('@'); err != nil {
		return "", err
	}
	start := s.pos
	for !s.eof() {
		c := s.peek()
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			s.next()
			continue
		}
		break
	}
	if s.pos == start {
		return "", s.errorf("empty language tag")
	}
	return s.src[start:s.pos], nil
}

func isNameByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c == '_' || c == '-' || c >= 0x80
}
