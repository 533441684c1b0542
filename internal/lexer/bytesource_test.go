package lexer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yamlkit/yamlkit/internal/lexer"
)

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		encoding lexer.Encoding
		chars    string
	}{
		{
			name:     "plain ascii",
			input:    []byte("ab"),
			encoding: lexer.UTF8Encoding,
			chars:    "ab",
		},
		{
			name:     "utf8 bom",
			input:    []byte{0xEF, 0xBB, 0xBF, 'a', 'b'},
			encoding: lexer.UTF8Encoding,
			chars:    "ab",
		},
		{
			name:     "utf16le bom",
			input:    []byte{0xFF, 0xFE, 'a', 0x00, 'b', 0x00},
			encoding: lexer.UTF16LEEncoding,
			chars:    "ab",
		},
		{
			name:     "utf16be bom",
			input:    []byte{0xFE, 0xFF, 0x00, 'a', 0x00, 'b'},
			encoding: lexer.UTF16BEEncoding,
			chars:    "ab",
		},
		{
			name:     "utf16le zero pattern",
			input:    []byte{'a', 0x00, 'b', 0x00},
			encoding: lexer.UTF16LEEncoding,
			chars:    "ab",
		},
		{
			name:     "utf16be zero pattern",
			input:    []byte{0x00, 'a', 0x00, 'b'},
			encoding: lexer.UTF16BEEncoding,
			chars:    "ab",
		},
		{
			name:     "utf32le bom",
			input:    []byte{0xFF, 0xFE, 0x00, 0x00, 'a', 0x00, 0x00, 0x00},
			encoding: lexer.UTF32LEEncoding,
			chars:    "a",
		},
		{
			name:     "utf32be bom",
			input:    []byte{0x00, 0x00, 0xFE, 0xFF, 0x00, 0x00, 0x00, 'a'},
			encoding: lexer.UTF32BEEncoding,
			chars:    "a",
		},
		{
			name:     "utf32le zero pattern",
			input:    []byte{'a', 0x00, 0x00, 0x00, 'b', 0x00, 0x00, 0x00},
			encoding: lexer.UTF32LEEncoding,
			chars:    "ab",
		},
		{
			name:     "utf32be zero pattern",
			input:    []byte{0x00, 0x00, 0x00, 'a', 0x00, 0x00, 0x00, 'b'},
			encoding: lexer.UTF32BEEncoding,
			chars:    "ab",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := lexer.NewByteSourceBytes(tt.input)
			var got []byte
			for {
				c, err := src.Next()
				require.NoError(t, err)
				if c == 0 {
					break
				}
				got = append(got, c)
			}
			require.Equal(t, tt.encoding, src.Encoding())
			require.Equal(t, tt.chars, string(got))
		})
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	src := lexer.NewByteSourceBytes([]byte{0x00, 0x00, 0x01, 0x02})
	_, err := src.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")
}

func TestLineBreakNormalization(t *testing.T) {
	src := lexer.NewByteSourceBytes([]byte("a\r\nb\rc\nd"))
	var got []byte
	for {
		c, err := src.Next()
		require.NoError(t, err)
		if c == 0 {
			break
		}
		got = append(got, c)
	}
	require.Equal(t, "a\nb\nc\nd", string(got))
}

func TestLineTracking(t *testing.T) {
	src := lexer.NewByteSourceBytes([]byte("ab\ncd"))
	expect := []struct {
		c    byte
		line int
		col  int
	}{
		{'a', 1, 0},
		{'b', 1, 1},
		{'\n', 1, 2},
		{'c', 2, 0},
		{'d', 2, 1},
	}
	for _, e := range expect {
		c, err := src.Next()
		require.NoError(t, err)
		require.Equal(t, e.c, c)
		line, col := src.CharPosition()
		require.Equal(t, e.line, line)
		require.Equal(t, e.col, col)
	}
}

func TestPeekIsIdempotent(t *testing.T) {
	src := lexer.NewByteSource(strings.NewReader("xy"))
	c1, err := src.Peek()
	require.NoError(t, err)
	c2, err := src.Peek()
	require.NoError(t, err)
	require.Equal(t, c1, c2)
	c, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, c1, c)
	c, err = src.Next()
	require.NoError(t, err)
	require.Equal(t, byte('y'), c)
}
