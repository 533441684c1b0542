package lexer_test

import (
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/yamlkit/yamlkit/internal/lexer"
)

// ev is one lexed event flattened for comparison.
type ev struct {
	Kind    lexer.EventKind
	Col     int
	Content string
}

func lexAll(t *testing.T, input string) []ev {
	t.Helper()
	lx := lexer.New(lexer.NewByteSourceBytes([]byte(input)))
	var got []ev
	for i := 0; i < 10000; i++ {
		e := lx.Next()
		got = append(got, ev{Kind: e.Kind, Col: e.Column, Content: string(lx.Content())})
		if e.Kind == lexer.StreamEnd {
			return got
		}
	}
	t.Fatal("lexer did not terminate")
	return nil
}

func TestLexSequences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []ev
	}{
		{
			name:  "simple mapping line",
			input: "a: b\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a"},
				{lexer.ControlChar, 1, ":"},
				{lexer.Scalar, 3, "b"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "document markers",
			input: "---\n...\n",
			want: []ev{
				{lexer.DirectivesEnd, 0, ""},
				{lexer.LineStart, 0, ""},
				{lexer.DocumentEnd, 0, ""},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "indented mapping",
			input: "  foo: bar",
			want: []ev{
				{lexer.LineStart, 0, "  "},
				{lexer.Scalar, 2, "foo"},
				{lexer.ControlChar, 5, ":"},
				{lexer.Scalar, 7, "bar"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "block sequence entry",
			input: "- a\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.ControlChar, 0, "-"},
				{lexer.Scalar, 2, "a"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "dash run is a plain scalar",
			input: "--x\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "--x"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "four dashes are a plain scalar",
			input: "----\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "----"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "flow sequence",
			input: "seq: [A,B]\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "seq"},
				{lexer.ControlChar, 3, ":"},
				{lexer.ControlChar, 5, "["},
				{lexer.Scalar, 6, "A"},
				{lexer.ControlChar, 7, ","},
				{lexer.Scalar, 8, "B"},
				{lexer.ControlChar, 9, "]"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "flow mapping",
			input: "{a: 1}",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.ControlChar, 0, "{"},
				{lexer.Scalar, 1, "a"},
				{lexer.ControlChar, 2, ":"},
				{lexer.Scalar, 4, "1"},
				{lexer.ControlChar, 5, "}"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "plain scalar keeps interior space",
			input: "a b\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a b"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "trailing space is discarded",
			input: "a  \n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "colon inside plain scalar",
			input: "a:b\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a:b"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "single quoted",
			input: "'it''s'\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "it's"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "double quoted with escape",
			input: "\"a\\tb\"\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a\tb"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "unicode escape",
			input: "\"\\u00e9\"",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "\xc3\xa9"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "comment line",
			input: "# hello\na: 1\n",
			want: []ev{
				{lexer.Comment, 0, " hello"},
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a"},
				{lexer.ControlChar, 1, ":"},
				{lexer.Scalar, 3, "1"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "comment after scalar",
			input: "a # c\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a"},
				{lexer.Comment, 2, " c"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "anchor and alias",
			input: "&x 1\n*x\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Anchor, 0, "x"},
				{lexer.Scalar, 3, "1"},
				{lexer.LineStart, 0, ""},
				{lexer.Alias, 0, "x"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "core schema tag",
			input: "!!str a\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.TagHandle, 0, "!!"},
				{lexer.TagSuffix, 2, "str"},
				{lexer.Scalar, 6, "a"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "primary handle tag",
			input: "!foo a\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.TagHandle, 0, "!"},
				{lexer.TagSuffix, 1, "foo"},
				{lexer.Scalar, 5, "a"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "non-specific tag",
			input: "! a\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.TagHandle, 0, "!"},
				{lexer.TagSuffix, 0, ""},
				{lexer.Scalar, 2, "a"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "verbatim tag",
			input: "!<tag:example.com,2000:x> a\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.VerbatimTag, 0, "tag:example.com,2000:x"},
				{lexer.Scalar, 26, "a"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "yaml directive",
			input: "%YAML 1.2\n--- a\n",
			want: []ev{
				{lexer.YamlDirective, 0, ""},
				{lexer.MajorVersion, 6, "1"},
				{lexer.MinorVersion, 8, "2"},
				{lexer.DirectivesEnd, 0, ""},
				{lexer.Scalar, 4, "a"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "tag directive",
			input: "%TAG !e! tag:example.com,2000:\n",
			want: []ev{
				{lexer.TagDirective, 0, ""},
				{lexer.TagHandle, 5, "!e!"},
				{lexer.TagURI, 9, "tag:example.com,2000:"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "unknown directive",
			input: "%FOO bar baz\n",
			want: []ev{
				{lexer.UnknownDirective, 0, "FOO"},
				{lexer.UnknownDirectiveParam, 5, "bar"},
				{lexer.UnknownDirectiveParam, 9, "baz"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "literal block scalar",
			input: "a: |\n  x\n  y\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a"},
				{lexer.ControlChar, 1, ":"},
				{lexer.LiteralScalar, 3, ""},
				{lexer.BlockScalarLine, 2, "x"},
				{lexer.BlockScalarLine, 2, "y"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "folded block scalar with indicators",
			input: "a: >-\n  x\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a"},
				{lexer.ControlChar, 1, ":"},
				{lexer.FoldedScalar, 3, ""},
				{lexer.BlockChompingIndicator, 4, "-"},
				{lexer.BlockScalarLine, 2, "x"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "block scalar keeps extra indentation",
			input: "|\n  x\n    y\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.LiteralScalar, 0, ""},
				{lexer.BlockScalarLine, 2, "x"},
				{lexer.BlockScalarLine, 4, "  y"},
				{lexer.StreamEnd, 0, ""},
			},
		},
		{
			name:  "block scalar ends at dedent",
			input: "a: |\n  x\nb: 1\n",
			want: []ev{
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "a"},
				{lexer.ControlChar, 1, ":"},
				{lexer.LiteralScalar, 3, ""},
				{lexer.BlockScalarLine, 2, "x"},
				{lexer.LineStart, 0, ""},
				{lexer.Scalar, 0, "b"},
				{lexer.ControlChar, 1, ":"},
				{lexer.Scalar, 3, "1"},
				{lexer.StreamEnd, 0, ""},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexAll(t, tt.input)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("event sequence mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		msg   string
	}{
		{
			name:  "unterminated single quoted",
			input: "'abc",
			msg:   "Unterminated single quoted string",
		},
		{
			name:  "unterminated double quoted",
			input: "\"abc",
			msg:   "Unterminated double quoted string",
		},
		{
			name:  "close bracket in block context",
			input: "a: ]\n",
			msg:   "Unexpected ']' outside flow context",
		},
		{
			name:  "missing space before comment",
			input: "\"a\"#c\n",
			msg:   "Missing space before comment start",
		},
		{
			name:  "bad hex escape",
			input: "\"\\uZZZZ\"",
			msg:   "Invalid hex digit in unicode escape",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexAll(t, tt.input)
			var msgs []string
			for _, e := range got {
				if e.Kind == lexer.Error {
					msgs = append(msgs, e.Content)
				}
			}
			require.NotEmpty(t, msgs, "expected an Error event")
			require.Contains(t, msgs[0], tt.msg)
			require.Equal(t, lexer.StreamEnd, got[len(got)-1].Kind)
		})
	}
}

// Every finite input terminates with StreamEnd, errors included.
func TestLexTermination(t *testing.T) {
	inputs := []string{
		"", "\n", "   ", "---", "...", "a", "'", "\"", "\\", "%", "%YAML",
		"- - -", "[[[", "]]]", "{a: [b, {c: d}]}", "a:\n  b:\n    c: 1\n",
		"!<", "!x!", "&", "*", "|", ">", "|9+\n x", "#", "\t", "\ta",
	}
	for _, in := range inputs {
		got := lexAll(t, in)
		require.Equal(t, lexer.StreamEnd, got[len(got)-1].Kind, "input %q", in)
	}
}

// Lexing a double-quoted \U escape yields the UTF-8 encoding of the code
// point, for every plane.
func TestUnicodeEscapeRoundTrip(t *testing.T) {
	points := []rune{0x01, 0x41, 0x7F, 0xE9, 0x7FF, 0x800, 0xFFFD, 0x10000, 0x1F600, 0x10FFFF}
	for _, cp := range points {
		input := fmt.Sprintf("\"\\U%08X\"", cp)
		got := lexAll(t, input)
		require.Len(t, got, 3, "input %q", input)
		require.Equal(t, lexer.Scalar, got[1].Kind)
		require.Equal(t, string(utf8.AppendRune(nil, cp)), got[1].Content, "input %q", input)
	}
}

func TestLexUTF16Input(t *testing.T) {
	// "a: b" in UTF-16LE with BOM.
	input := []byte{0xFF, 0xFE, 'a', 0, ':', 0, ' ', 0, 'b', 0}
	lx := lexer.New(lexer.NewByteSourceBytes(input))
	var kinds []lexer.EventKind
	var contents []string
	for {
		e := lx.Next()
		kinds = append(kinds, e.Kind)
		contents = append(contents, string(lx.Content()))
		if e.Kind == lexer.StreamEnd {
			break
		}
	}
	require.Equal(t, []lexer.EventKind{
		lexer.LineStart, lexer.Scalar, lexer.ControlChar, lexer.Scalar, lexer.StreamEnd,
	}, kinds)
	require.Equal(t, "a", contents[1])
	require.Equal(t, "b", contents[3])
}
