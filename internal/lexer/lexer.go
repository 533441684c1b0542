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
	"unicode/utf8"

	"github.com/yamlkit/yamlkit/internal/yamlh"
)

// Introduction
// ************
//
// The lexer transforms the input stream into a flat sequence of lexical
// events. It is deliberately permissive: it recognises the shape of YAML
// (indentation, separators, scalars in their five styles, tags, anchors,
// directives, comments) without enforcing the grammar, which is the parser's
// job. Errors are reported inline as Error events and the lexer keeps going
// as best it can; every event sequence ends with StreamEnd.
//
// The machine is written as one function per state. A state examines the
// current character (l.c), consumes as many characters as it needs, queues
// zero or more events, and returns the next state. Exactly one character is
// "current" at any time; a state that cannot decide what a character means
// leaves it in place for its successor, which subsumes the single deferred
// special character of the classic formulation.
//
// Context that outlives a single state:
//
//      flowDepth          unclosed '[' and '{'; selects block vs flow rules
//      lastIndent         indentation of the current content line
//      blockScalarIndent  base indentation of an active block scalar, or -1
//      expectDirectives   '%' lines are only recognised before any content
//                         and again after a "..." document end marker
//
// Scalar content is accumulated in a scratch buffer and copied into the
// caller-visible content slot when its event is handed out; the slot is
// reused, so callers copy out before requesting the next event if they want
// to retain it.

type stateFn func(*Lexer) stateFn

type queued struct {
	ev      Event
	content []byte
	style   yamlh.ScalarStyle
	line    int
}

// Lexer is the lexical state machine. Create one with New and drain it with
// Next until a StreamEnd event appears.
type Lexer struct {
	src *ByteSource

	state   stateFn
	started bool
	done    bool
	err     error

	// The current character. NUL means end of input.
	c byte

	queue     []queued
	queueHead int

	content   []byte
	style     yamlh.ScalarStyle
	eventLine int

	buf      []byte
	trailing []byte
	tokenCol int
	runLen   int

	flowDepth        int
	expectDirectives bool
	afterToken       bool

	curIndent  int
	lastIndent int

	blockScalarIndent   int
	blockScalarContent  int
	blockScalarExplicit int

	uniVal      rune
	uniGot      int
	uniExpected int
}

// New returns a lexer over src.
func New(src *ByteSource) *Lexer {
	return &Lexer{
		src:                src,
		content:            make([]byte, 0, yamlh.InitialContentSize),
		buf:                make([]byte, 0, yamlh.InitialContentSize),
		expectDirectives:   true,
		blockScalarIndent:  -1,
		blockScalarContent: -1,
	}
}

// Next returns the next lexical event. After the first StreamEnd it keeps
// returning StreamEnd.
func (l *Lexer) Next() Event {
	if !l.started {
		l.started = true
		l.advance()
		l.state = lexIndentation
	}
	for l.queueHead >= len(l.queue) {
		if l.state == nil {
			l.content = l.content[:0]
			return Event{Kind: StreamEnd}
		}
		l.state = l.state(l)
	}
	q := l.queue[l.queueHead]
	l.queueHead++
	if l.queueHead == len(l.queue) {
		l.queue = l.queue[:0]
		l.queueHead = 0
	}
	l.content = append(l.content[:0], q.content...)
	l.style = q.style
	l.eventLine = q.line
	return q.ev
}

// Line reports the 1-based source line of the most recent event.
func (l *Lexer) Line() int {
	return l.eventLine
}

// Content returns the payload of the most recent event. The slice is reused;
// it is valid until the next call to Next.
func (l *Lexer) Content() []byte {
	return l.content
}

// ScalarStyle reports the style of the most recent Scalar event.
func (l *Lexer) ScalarStyle() yamlh.ScalarStyle {
	return l.style
}

// Err returns the underlying input error, if reading the source failed.
func (l *Lexer) Err() error {
	return l.err
}

func (l *Lexer) advance() {
	c, err := l.src.Next()
	if err != nil && l.err == nil {
		l.err = err
	}
	l.c = c
}

func (l *Lexer) peek() byte {
	c, err := l.src.Peek()
	if err != nil {
		return 0
	}
	return c
}

func (l *Lexer) charCol() int {
	_, col := l.src.CharPosition()
	return col
}

func (l *Lexer) push(kind EventKind, col int, content []byte, style yamlh.ScalarStyle) {
	line, _ := l.src.CharPosition()
	q := queued{ev: Event{Kind: kind, Column: col}, style: style, line: line}
	if len(content) > 0 {
		q.content = append([]byte(nil), content...)
	}
	l.queue = append(l.queue, q)
}

func (l *Lexer) emit(kind EventKind, col int, content []byte) {
	l.push(kind, col, content, yamlh.AnyScalarStyle)
	switch kind {
	case Scalar, ControlChar, Anchor, Alias, TagSuffix, VerbatimTag, DirectivesEnd, DocumentEnd:
		l.afterToken = true
	}
}

func (l *Lexer) emitScalar(style yamlh.ScalarStyle) {
	l.push(Scalar, l.tokenCol, l.buf, style)
	l.buf = l.buf[:0]
	l.trailing = l.trailing[:0]
	l.afterToken = true
}

func (l *Lexer) emitError(msg string) {
	l.push(Error, l.charCol(), []byte(msg), yamlh.AnyScalarStyle)
}

func (l *Lexer) contentState() stateFn {
	if l.flowDepth > 0 {
		return lexFlow
	}
	return lexBlock
}

func (l *Lexer) startToken() {
	l.buf = l.buf[:0]
	l.trailing = l.trailing[:0]
	l.tokenCol = l.charCol()
}

func (l *Lexer) skipBlanks() {
	for yamlh.IsBlank(l.c) {
		l.advance()
	}
}

// lexIndentation runs at the start of every line (and of the stream). It
// accumulates leading spaces, decides whether an active block scalar
// continues, and hands separator candidates and directives to their states.
// For ordinary content it emits LineStart carrying the indentation.
func lexIndentation(l *Lexer) stateFn {
	l.afterToken = false
	l.buf = l.buf[:0]
	indent := 0
	for l.c == ' ' {
		l.buf = append(l.buf, ' ')
		indent++
		l.advance()
	}
	l.curIndent = indent

	if l.c == 0 {
		return lexStreamEnd
	}
	if l.c == '\n' {
		if l.blockScalarIndent >= 0 {
			l.emit(BlockScalarLine, indent, nil)
		}
		l.advance()
		return lexIndentation
	}
	if l.blockScalarIndent >= 0 {
		if indent > l.blockScalarIndent {
			if l.blockScalarContent < 0 {
				l.blockScalarContent = indent
			}
			return lexBlockScalarLine
		}
		l.blockScalarIndent = -1
		l.blockScalarContent = -1
	}
	if l.c == '%' && indent == 0 && l.expectDirectives {
		l.tokenCol = l.charCol()
		l.advance()
		return lexDirectiveName
	}
	if l.c == '#' {
		l.tokenCol = l.charCol()
		l.advance()
		return lexComment
	}
	if l.c == '-' && indent == 0 && l.flowDepth == 0 {
		l.runLen = 1
		l.advance()
		return lexDashes
	}

	l.emit(LineStart, 0, l.buf)
	l.lastIndent = indent
	l.expectDirectives = false
	if l.c == '.' && indent == 0 && l.flowDepth == 0 {
		l.runLen = 1
		l.advance()
		return lexDots
	}
	return l.contentState()
}

// lexDashes accumulates a run of '-' at column zero. Exactly three followed
// by a terminator is the directives end marker; a single one is a block
// sequence indicator; anything else starts a plain scalar. The run length
// counts at the moment the first non-dash is seen.
func lexDashes(l *Lexer) stateFn {
	for l.c == '-' {
		l.runLen++
		l.advance()
	}
	n := l.runLen
	if yamlh.IsBlankZ(l.c) && n == 3 {
		l.emit(DirectivesEnd, 0, nil)
		l.expectDirectives = false
		l.lastIndent = 0
		l.blockScalarIndent = -1
		l.blockScalarContent = -1
		return l.contentState()
	}
	l.emit(LineStart, 0, nil)
	l.lastIndent = 0
	l.expectDirectives = false
	if yamlh.IsBlankZ(l.c) && n == 1 {
		l.emit(ControlChar, 0, []byte{'-'})
		return l.contentState()
	}
	l.buf = l.buf[:0]
	l.trailing = l.trailing[:0]
	for i := 0; i < n; i++ {
		l.buf = append(l.buf, '-')
	}
	l.tokenCol = 0
	return lexPlainScalar
}

// lexDots accumulates a run of '.' at column zero, after the line's LineStart
// has been emitted. Exactly three followed by a terminator is the document
// end marker; anything else starts a plain scalar.
func lexDots(l *Lexer) stateFn {
	for l.c == '.' {
		l.runLen++
		l.advance()
	}
	n := l.runLen
	if yamlh.IsBlankZ(l.c) && n == 3 {
		l.emit(DocumentEnd, 0, nil)
		l.expectDirectives = true
		return l.contentState()
	}
	l.buf = l.buf[:0]
	l.trailing = l.trailing[:0]
	for i := 0; i < n; i++ {
		l.buf = append(l.buf, '.')
	}
	l.tokenCol = 0
	return lexPlainScalar
}

// lexBlock dispatches on the next significant character in block context.
func lexBlock(l *Lexer) stateFn {
	return lexContent(l, false)
}

// lexFlow dispatches on the next significant character in flow context.
func lexFlow(l *Lexer) stateFn {
	return lexContent(l, true)
}

func lexContent(l *Lexer, flow bool) stateFn {
	sawSpace := false
	for yamlh.IsBlank(l.c) {
		sawSpace = true
		l.advance()
	}
	switch l.c {
	case 0:
		return lexStreamEnd
	case '\n':
		l.advance()
		return lexIndentation
	case '#':
		if l.afterToken && !sawSpace {
			l.emitError("Missing space before comment start")
		}
		l.tokenCol = l.charCol()
		l.advance()
		return lexComment
	case '\'':
		l.startToken()
		l.advance()
		return lexSingleQuoted
	case '"':
		l.startToken()
		l.advance()
		return lexDoubleQuoted
	case '!':
		l.startToken()
		l.advance()
		return lexTag
	case '&':
		l.startToken()
		l.advance()
		return lexAnchor
	case '*':
		l.startToken()
		l.advance()
		return lexAlias
	case '[', '{':
		l.emit(ControlChar, l.charCol(), []byte{l.c})
		l.flowDepth++
		l.advance()
		return lexFlow
	case ']', '}':
		if l.flowDepth == 0 {
			l.emitError("Unexpected '" + string(rune(l.c)) + "' outside flow context")
			l.advance()
			return lexBlock
		}
		l.emit(ControlChar, l.charCol(), []byte{l.c})
		l.flowDepth--
		l.advance()
		return l.contentState()
	}
	if flow && l.c == ',' {
		l.emit(ControlChar, l.charCol(), []byte{','})
		l.advance()
		return lexFlow
	}
	if !flow && (l.c == '|' || l.c == '>') {
		kind := LiteralScalar
		if l.c == '>' {
			kind = FoldedScalar
		}
		l.emit(kind, l.charCol(), nil)
		l.advance()
		return lexBlockScalarHeader
	}
	if l.c == '?' || (!flow && l.c == '-') {
		if yamlh.IsBlankZ(l.peek()) || (flow && yamlh.IsFlowIndicator(l.peek())) {
			l.emit(ControlChar, l.charCol(), []byte{l.c})
			l.advance()
			return l.contentState()
		}
	}
	if l.c == ':' && colonEndsToken(l.peek(), flow) {
		l.emit(ControlChar, l.charCol(), []byte{':'})
		l.advance()
		return l.contentState()
	}
	l.startToken()
	return lexPlainScalar
}

// colonEndsToken reports whether a ':' followed by next acts as the mapping
// value indicator rather than scalar content.
func colonEndsToken(next byte, flow bool) bool {
	if yamlh.IsBlankZ(next) {
		return true
	}
	return flow && (next == ',' || next == ']' || next == '}')
}

// lexPlainScalar appends characters to the current token until a terminator.
// Interior whitespace is held back in a side buffer and only committed when
// non-terminator content follows; a ':' whose meaning depends on the next
// character defers through the lookahead.
func lexPlainScalar(l *Lexer) stateFn {
	for {
		switch {
		case l.c == 0 || l.c == '\n':
			l.emitScalar(yamlh.PlainStyle)
			return l.contentState()
		case yamlh.IsBlank(l.c):
			l.trailing = append(l.trailing[:0], l.c)
			l.advance()
			return lexSpaceAfterPlainScalar
		case l.c == ':':
			if colonEndsToken(l.peek(), l.flowDepth > 0) {
				col := l.charCol()
				l.emitScalar(yamlh.PlainStyle)
				l.emit(ControlChar, col, []byte{':'})
				l.advance()
				return l.contentState()
			}
			l.buf = append(l.buf, ':')
			l.advance()
		case l.flowDepth > 0 && yamlh.IsFlowIndicator(l.c):
			l.emitScalar(yamlh.PlainStyle)
			return l.contentState()
		default:
			l.buf = append(l.buf, l.c)
			l.advance()
		}
	}
}

// lexSpaceAfterPlainScalar accumulates whitespace inside a plain scalar.
// The held whitespace is discarded when a terminator follows and committed
// to the scalar otherwise.
func lexSpaceAfterPlainScalar(l *Lexer) stateFn {
	for yamlh.IsBlank(l.c) {
		l.trailing = append(l.trailing, l.c)
		l.advance()
	}
	switch {
	case l.c == 0 || l.c == '\n':
		l.emitScalar(yamlh.PlainStyle)
		return l.contentState()
	case l.c == '#':
		l.emitScalar(yamlh.PlainStyle)
		l.tokenCol = l.charCol()
		l.advance()
		return lexComment
	case l.c == ':':
		if colonEndsToken(l.peek(), l.flowDepth > 0) {
			col := l.charCol()
			l.emitScalar(yamlh.PlainStyle)
			l.emit(ControlChar, col, []byte{':'})
			l.advance()
			return l.contentState()
		}
		l.buf = append(l.buf, l.trailing...)
		l.buf = append(l.buf, ':')
		l.trailing = l.trailing[:0]
		l.advance()
		return lexPlainScalar
	case l.flowDepth > 0 && yamlh.IsFlowIndicator(l.c):
		l.emitScalar(yamlh.PlainStyle)
		return l.contentState()
	}
	l.buf = append(l.buf, l.trailing...)
	l.trailing = l.trailing[:0]
	return lexPlainScalar
}

// lexSingleQuoted scans a 'single quoted' scalar. A doubled '' is a literal
// quote; line breaks pass through as raw content.
func lexSingleQuoted(l *Lexer) stateFn {
	for {
		switch l.c {
		case 0:
			l.emitError("Unterminated single quoted string")
			return lexStreamEnd
		case '\'':
			if l.peek() == '\'' {
				l.buf = append(l.buf, '\'')
				l.advance()
				l.advance()
				continue
			}
			l.emitScalar(yamlh.SingleQuotedStyle)
			l.advance()
			return l.contentState()
		default:
			l.buf = append(l.buf, l.c)
			l.advance()
		}
	}
}

// lexDoubleQuoted scans a "double quoted" scalar with escape processing.
// Line breaks inside become a literal LF.
func lexDoubleQuoted(l *Lexer) stateFn {
	for {
		switch l.c {
		case 0:
			l.emitError("Unterminated double quoted string")
			return lexStreamEnd
		case '"':
			l.emitScalar(yamlh.DoubleQuotedStyle)
			l.advance()
			return l.contentState()
		case '\\':
			l.advance()
			return lexEscape
		default:
			l.buf = append(l.buf, l.c)
			l.advance()
		}
	}
}

// lexEscape handles the character after a backslash in a double quoted
// scalar: the single-character escapes of YAML, or the opening of a
// fixed-length hex escape.
func lexEscape(l *Lexer) stateFn {
	var r rune
	switch l.c {
	case '0':
		r = 0x00
	case 'a':
		r = 0x07
	case 'b':
		r = 0x08
	case 't', '\t':
		r = 0x09
	case 'n':
		r = 0x0A
	case 'v':
		r = 0x0B
	case 'f':
		r = 0x0C
	case 'r':
		r = 0x0D
	case 'e':
		r = 0x1B
	case ' ':
		r = 0x20
	case '"':
		r = '"'
	case '/':
		r = '/'
	case '\\':
		r = '\\'
	case 'N':
		r = 0x85
	case '_':
		r = 0xA0
	case 'L':
		r = 0x2028
	case 'P':
		r = 0x2029
	case 'x', 'u', 'U':
		switch l.c {
		case 'x':
			l.uniExpected = 2
		case 'u':
			l.uniExpected = 4
		case 'U':
			l.uniExpected = 8
		}
		l.uniVal = 0
		l.uniGot = 0
		l.advance()
		return lexUnicodeEscape
	default:
		l.emitError("Invalid escape character")
		l.advance()
		return lexDoubleQuoted
	}
	if r < 0x80 {
		l.buf = append(l.buf, byte(r))
	} else {
		l.buf = utf8.AppendRune(l.buf, r)
	}
	l.advance()
	return lexDoubleQuoted
}

// lexUnicodeEscape folds 2, 4 or 8 hex digits into a code point, most
// significant digit first, then appends its UTF-8 encoding.
func lexUnicodeEscape(l *Lexer) stateFn {
	for {
		if !yamlh.IsHex(l.c) {
			l.emitError("Invalid hex digit in unicode escape")
			return lexDoubleQuoted
		}
		l.uniVal |= rune(yamlh.AsHex(l.c)) << (4 * (l.uniExpected - l.uniGot - 1))
		l.uniGot++
		l.advance()
		if l.uniGot == l.uniExpected {
			l.buf = utf8.AppendRune(l.buf, l.uniVal)
			return lexDoubleQuoted
		}
	}
}

// lexTag scans the character after '!': a verbatim tag, a bare non-specific
// tag, a primary-handle suffix, or a named handle.
func lexTag(l *Lexer) stateFn {
	if l.c == '<' {
		l.advance()
		return lexVerbatimTag
	}
	if yamlh.IsBlankZ(l.c) || yamlh.IsFlowIndicator(l.c) {
		l.emit(TagHandle, l.tokenCol, []byte{'!'})
		l.emit(TagSuffix, l.tokenCol, nil)
		return l.contentState()
	}
	l.buf = append(l.buf[:0], '!')
	for yamlh.IsURIChar(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	if l.c == '!' {
		l.buf = append(l.buf, '!')
		l.emit(TagHandle, l.tokenCol, l.buf)
		l.advance()
		l.tokenCol = l.charCol()
		return lexTagSuffix
	}
	if yamlh.IsBlankZ(l.c) || yamlh.IsFlowIndicator(l.c) {
		l.emit(TagHandle, l.tokenCol, []byte{'!'})
		l.emit(TagSuffix, l.tokenCol+1, l.buf[1:])
		return l.contentState()
	}
	l.emitError("Invalid character in tag")
	l.advance()
	return l.contentState()
}

// lexTagSuffix scans the suffix after a named tag handle.
func lexTagSuffix(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for yamlh.IsURIChar(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	if !yamlh.IsBlankZ(l.c) && !yamlh.IsFlowIndicator(l.c) {
		l.emitError("Invalid character in tag suffix")
		l.advance()
	}
	l.emit(TagSuffix, l.tokenCol, l.buf)
	return l.contentState()
}

// lexVerbatimTag scans the URI between "!<" and ">".
func lexVerbatimTag(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for l.c != '>' {
		if l.c == 0 || l.c == '\n' {
			l.emitError("Unterminated verbatim tag")
			return l.contentState()
		}
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	l.emit(VerbatimTag, l.tokenCol, l.buf)
	l.advance()
	return l.contentState()
}

// lexAnchor scans an anchor name after '&'.
func lexAnchor(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for yamlh.IsAnchorChar(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	if len(l.buf) == 0 {
		l.emitError("Missing anchor name")
		return l.contentState()
	}
	l.emit(Anchor, l.tokenCol, l.buf)
	return l.contentState()
}

// lexAlias scans an alias name after '*'.
func lexAlias(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for yamlh.IsAnchorChar(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	if len(l.buf) == 0 {
		l.emitError("Missing alias name")
		return l.contentState()
	}
	l.emit(Alias, l.tokenCol, l.buf)
	return l.contentState()
}

// lexComment consumes the rest of the line after '#'.
func lexComment(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for !yamlh.IsBreakZ(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	l.emit(Comment, l.tokenCol, l.buf)
	return l.contentState()
}

// lexDirectiveName reads the directive name after '%' and dispatches to the
// YAML and TAG directive states; anything else streams as an unknown
// directive with opaque parameters.
func lexDirectiveName(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for yamlh.IsAnchorChar(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	switch string(l.buf) {
	case "YAML":
		l.emit(YamlDirective, l.tokenCol, nil)
		l.skipBlanks()
		l.tokenCol = l.charCol()
		return lexYamlMajor
	case "TAG":
		l.emit(TagDirective, l.tokenCol, nil)
		l.skipBlanks()
		l.tokenCol = l.charCol()
		return lexDirectiveTagHandle
	default:
		l.emit(UnknownDirective, l.tokenCol, l.buf)
		return lexUnknownDirectiveParams
	}
}

// lexYamlMajor reads the major version number of a %YAML directive.
func lexYamlMajor(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for yamlh.IsDigit(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	if len(l.buf) == 0 || l.c != '.' {
		l.emitError("Invalid YAML version number")
		return lexExpectLineEnd
	}
	l.emit(MajorVersion, l.tokenCol, l.buf)
	l.advance()
	l.tokenCol = l.charCol()
	return lexYamlMinor
}

// lexYamlMinor reads the minor version number of a %YAML directive.
func lexYamlMinor(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for yamlh.IsDigit(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	if len(l.buf) == 0 {
		l.emitError("Invalid YAML version number")
		return lexExpectLineEnd
	}
	l.emit(MinorVersion, l.tokenCol, l.buf)
	return lexExpectLineEnd
}

// lexDirectiveTagHandle reads the handle argument of a %TAG directive.
func lexDirectiveTagHandle(l *Lexer) stateFn {
	if l.c != '!' {
		l.emitError("Invalid tag handle")
		return lexExpectLineEnd
	}
	l.buf = append(l.buf[:0], '!')
	l.advance()
	for yamlh.IsURIChar(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	if l.c == '!' {
		l.buf = append(l.buf, '!')
		l.advance()
	}
	l.emit(TagHandle, l.tokenCol, l.buf)
	l.skipBlanks()
	l.tokenCol = l.charCol()
	return lexDirectiveTagURI
}

// lexDirectiveTagURI reads the prefix argument of a %TAG directive.
func lexDirectiveTagURI(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for yamlh.IsURIChar(l.c) || l.c == '!' {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	if len(l.buf) == 0 {
		l.emitError("Missing tag URI")
		return lexExpectLineEnd
	}
	l.emit(TagURI, l.tokenCol, l.buf)
	return lexExpectLineEnd
}

// lexUnknownDirectiveParams streams the whitespace-separated parameters of a
// directive the lexer does not know.
func lexUnknownDirectiveParams(l *Lexer) stateFn {
	l.skipBlanks()
	switch {
	case l.c == 0:
		return lexStreamEnd
	case l.c == '\n':
		l.advance()
		return lexIndentation
	case l.c == '#':
		l.tokenCol = l.charCol()
		l.advance()
		return lexComment
	}
	l.tokenCol = l.charCol()
	l.buf = l.buf[:0]
	for !yamlh.IsBlankZ(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	l.emit(UnknownDirectiveParam, l.tokenCol, l.buf)
	return lexUnknownDirectiveParams
}

// lexExpectLineEnd skips trailing blanks and requires the line to end,
// tolerating a comment.
func lexExpectLineEnd(l *Lexer) stateFn {
	l.skipBlanks()
	switch {
	case l.c == 0:
		return lexStreamEnd
	case l.c == '\n':
		l.advance()
		return lexIndentation
	case l.c == '#':
		l.tokenCol = l.charCol()
		l.advance()
		return lexComment
	}
	l.emitError("Unexpected character after directive")
	for !yamlh.IsBreakZ(l.c) {
		l.advance()
	}
	return lexExpectLineEnd
}

// lexBlockScalarHeader consumes an optional indentation indicator digit and
// an optional chomping indicator after '|' or '>', then arms the block
// scalar: its base indentation is the indentation of the header's line.
func lexBlockScalarHeader(l *Lexer) stateFn {
	seenIndent, seenChomp := false, false
	for {
		if l.c >= '1' && l.c <= '9' && !seenIndent {
			l.emit(BlockIndentationIndicator, l.charCol(), []byte{l.c})
			l.blockScalarExplicit = yamlh.AsDigit(l.c)
			seenIndent = true
			l.advance()
			continue
		}
		if (l.c == '+' || l.c == '-') && !seenChomp {
			l.emit(BlockChompingIndicator, l.charCol(), []byte{l.c})
			seenChomp = true
			l.advance()
			continue
		}
		break
	}
	l.blockScalarIndent = l.lastIndent
	if l.blockScalarExplicit > 0 {
		l.blockScalarContent = l.lastIndent + l.blockScalarExplicit
	} else {
		l.blockScalarContent = -1
	}
	l.blockScalarExplicit = 0
	l.skipBlanks()
	switch {
	case l.c == 0:
		return lexStreamEnd
	case l.c == '\n':
		l.advance()
		return lexIndentation
	case l.c == '#':
		l.tokenCol = l.charCol()
		l.advance()
		return lexComment
	}
	l.emitError("Illegal character in block scalar header")
	for !yamlh.IsBreakZ(l.c) {
		l.advance()
	}
	return lexExpectLineEnd
}

// lexBlockScalarLine emits one line of an active block scalar's body,
// preserving indentation beyond the scalar's content indentation.
func lexBlockScalarLine(l *Lexer) stateFn {
	l.buf = l.buf[:0]
	for i := l.blockScalarContent; i < l.curIndent; i++ {
		l.buf = append(l.buf, ' ')
	}
	for !yamlh.IsBreakZ(l.c) {
		l.buf = append(l.buf, l.c)
		l.advance()
	}
	l.emit(BlockScalarLine, l.curIndent, l.buf)
	if l.c == 0 {
		return lexStreamEnd
	}
	l.advance()
	return lexIndentation
}

// lexStreamEnd reports a pending input error, emits the final StreamEnd and
// stops the machine.
func lexStreamEnd(l *Lexer) stateFn {
	if l.err != nil && !l.done {
		l.emitError(l.err.Error())
	}
	l.done = true
	l.emit(StreamEnd, 0, nil)
	return nil
}
