//
// Copyright (c) 2011-2019 Canonical Ltd
// Copyright (c) 2006-2010 Kirill Simonov
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package lexer

import (
	"fmt"
	"io"

	"github.com/yamlkit/yamlkit/internal/yamlh"
)

type Encoding int8

// The stream encoding, detected from the first four bytes of input using the
// standard BOM and zero-pattern rules.
const (
	// Not yet detected.
	AnyEncoding Encoding = iota

	UTF8Encoding    // The default UTF-8 encoding.
	UTF16LEEncoding // UTF-16 little endian.
	UTF16BEEncoding // UTF-16 big endian.
	UTF32LEEncoding // UTF-32 little endian.
	UTF32BEEncoding // UTF-32 big endian.

	// A byte pattern no supported encoding produces.
	UnsupportedEncoding
)

var encodingStrings = []string{
	AnyEncoding:         "undetected",
	UTF8Encoding:        "UTF-8",
	UTF16LEEncoding:     "UTF-16LE",
	UTF16BEEncoding:     "UTF-16BE",
	UTF32LEEncoding:     "UTF-32LE",
	UTF32BEEncoding:     "UTF-32BE",
	UnsupportedEncoding: "unsupported",
}

func (e Encoding) String() string {
	if e < 0 || int(e) >= len(encodingStrings) {
		return fmt.Sprintf("unknown encoding %d", e)
	}
	return encodingStrings[e]
}

// ByteSource is a buffered stream reader with encoding detection, line
// tracking and a one-character lookahead.
//
// It hands out one logical character per step regardless of the encoding's
// code unit width: the detected encoding fixes a stride (1, 2 or 4 bytes) and
// a low-byte offset within each code unit, and the low byte is returned while
// the remaining bytes pass through untouched. All of YAML's syntactic
// characters are ASCII, so this is enough for lexing; full decoding of
// non-ASCII UTF-16/32 content is the consumer's concern.
//
// CR and CRLF are normalised to a single LF. A NUL byte stands for the end of
// input. The source owns its buffer; the lexer holds a reference but not
// ownership of the underlying reader.
type ByteSource struct {
	reader io.Reader

	raw    []byte
	rawPos int
	eof    bool

	encoding Encoding
	stride   int
	lowOff   int

	peeked    byte
	hasPeeked bool
	peekErr   error

	// Position of the next character to be returned.
	line int
	col  int

	// Position of the most recently returned character.
	charLine int
	charCol  int
}

// NewByteSource reads from r.
func NewByteSource(r io.Reader) *ByteSource {
	return &ByteSource{
		reader: r,
		raw:    make([]byte, 0, yamlh.InputRawBufferSize),
		line:   1,
	}
}

// NewByteSourceBytes reads from an in-memory buffer.
func NewByteSourceBytes(b []byte) *ByteSource {
	return &ByteSource{
		raw:  b,
		eof:  true,
		line: 1,
	}
}

// Encoding returns the detected stream encoding.
func (s *ByteSource) Encoding() Encoding {
	return s.encoding
}

// CharPosition returns the line (1-based) and column (0-based) of the most
// recently returned character.
func (s *ByteSource) CharPosition() (line, col int) {
	return s.charLine, s.charCol
}

// fill tops up the raw buffer until it holds at least n unread bytes or the
// input is exhausted.
func (s *ByteSource) fill(n int) error {
	for !s.eof && len(s.raw)-s.rawPos < n {
		if s.rawPos > 0 {
			s.raw = append(s.raw[:0], s.raw[s.rawPos:]...)
			s.rawPos = 0
		}
		if len(s.raw) == cap(s.raw) {
			break
		}
		m, err := s.reader.Read(s.raw[len(s.raw):cap(s.raw)])
		s.raw = s.raw[:len(s.raw)+m]
		switch err {
		case nil:
		case io.EOF:
			s.eof = true
		default:
			return fmt.Errorf("yaml: input error: %w", err)
		}
	}
	return nil
}

// detectEncoding inspects the first four bytes of the stream, fixes stride and
// low-byte offset, and consumes the BOM if one is present.
func (s *ByteSource) detectEncoding() error {
	if err := s.fill(4); err != nil {
		return err
	}
	b := s.raw[s.rawPos:]
	bom := 0
	switch {
	case len(b) >= 4 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0xFE && b[3] == 0xFF:
		s.encoding, bom = UTF32BEEncoding, 4
	case len(b) >= 4 && b[0] == 0xFF && b[1] == 0xFE && b[2] == 0x00 && b[3] == 0x00:
		s.encoding, bom = UTF32LEEncoding, 4
	case len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		s.encoding, bom = UTF8Encoding, 3
	case len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF:
		s.encoding, bom = UTF16BEEncoding, 2
	case len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE:
		s.encoding, bom = UTF16LEEncoding, 2
	case len(b) >= 4 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0x00 && b[3] != 0x00:
		s.encoding = UTF32BEEncoding
	case len(b) >= 4 && b[0] != 0x00 && b[1] == 0x00 && b[2] == 0x00 && b[3] == 0x00:
		s.encoding = UTF32LEEncoding
	case len(b) >= 2 && b[0] == 0x00 && b[1] != 0x00:
		s.encoding = UTF16BEEncoding
	case len(b) >= 2 && b[0] != 0x00 && b[1] == 0x00:
		s.encoding = UTF16LEEncoding
	case len(b) >= 2 && b[0] == 0x00 && b[1] == 0x00:
		s.encoding = UnsupportedEncoding
	default:
		s.encoding = UTF8Encoding
	}
	s.rawPos += bom
	switch s.encoding {
	case UTF8Encoding:
		s.stride, s.lowOff = 1, 0
	case UTF16LEEncoding:
		s.stride, s.lowOff = 2, 0
	case UTF16BEEncoding:
		s.stride, s.lowOff = 2, 1
	case UTF32LEEncoding:
		s.stride, s.lowOff = 4, 0
	case UTF32BEEncoding:
		s.stride, s.lowOff = 4, 3
	case UnsupportedEncoding:
		return fmt.Errorf("yaml: unsupported stream encoding")
	}
	return nil
}

// readChar decodes the next logical character without touching line tracking.
// It returns NUL at the end of input and normalises CR and CRLF to LF.
func (s *ByteSource) readChar() (byte, error) {
	if s.encoding == AnyEncoding {
		if err := s.detectEncoding(); err != nil {
			return 0, err
		}
	}
	if err := s.fill(s.stride); err != nil {
		return 0, err
	}
	if len(s.raw)-s.rawPos < s.stride {
		s.rawPos = len(s.raw)
		return 0, nil
	}
	c := s.raw[s.rawPos+s.lowOff]
	s.rawPos += s.stride
	if c == '\r' {
		// Consume the LF of a CRLF pair.
		if err := s.fill(s.stride); err != nil {
			return 0, err
		}
		if len(s.raw)-s.rawPos >= s.stride && s.raw[s.rawPos+s.lowOff] == '\n' {
			s.rawPos += s.stride
		}
		c = '\n'
	}
	return c, nil
}

// Next returns the next logical character, advancing the source. At the end
// of input it returns NUL, indefinitely.
func (s *ByteSource) Next() (byte, error) {
	var c byte
	var err error
	if s.hasPeeked {
		c, err = s.peeked, s.peekErr
		s.hasPeeked = false
	} else {
		c, err = s.readChar()
	}
	if err != nil {
		return 0, err
	}
	s.charLine, s.charCol = s.line, s.col
	if c == '\n' {
		s.line++
		s.col = 0
	} else if c != 0 {
		s.col++
	}
	return c, nil
}

// Peek returns the next logical character without advancing. Idempotent.
func (s *ByteSource) Peek() (byte, error) {
	if !s.hasPeeked {
		s.peeked, s.peekErr = s.readChar()
		s.hasPeeked = true
	}
	return s.peeked, s.peekErr
}
