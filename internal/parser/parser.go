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

// Package parser translates the lexer's event sequence into the structural
// event stream the construction engine consumes. It resolves indentation into
// block collections, brackets into flow collections, assembles block scalars,
// expands tag shorthands and interns anchor names into small integer ids.
package parser

import (
	"fmt"
	"strings"

	"github.com/yamlkit/yamlkit/internal/lexer"
	"github.com/yamlkit/yamlkit/internal/yamlh"
)

// Error is a parsing failure with its source position. Lexical reports
// whether the failure was detected by the lexer; Cause carries an underlying
// input error when reading the byte stream itself failed.
type Error struct {
	Msg     string
	Line    int
	Column  int
	Lexical bool
	Cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("yaml: line %d: %s", e.Line, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type token struct {
	kind  lexer.EventKind
	line  int
	col   int
	val   string
	style yamlh.ScalarStyle
}

type props struct {
	anchor yamlh.AnchorId
	tag    yamlh.TagId
}

var noProps = props{anchor: yamlh.NoAnchor, tag: -1}

// Parser builds a materialised structural event stream from one lexed input.
type Parser struct {
	reg *yamlh.TagRegistry

	toks      []token
	pos       int
	curIndent int

	events     *yamlh.Events
	anchors    map[string]yamlh.AnchorId
	nextAnchor yamlh.AnchorId
	shorthands map[string]string
}

// Parse lexes src to completion and parses the token sequence into a
// structural event stream wrapped in StreamStart and StreamEnd.
//
// Anchor ids are interned across the whole stream, so an alias may refer to
// an anchor bound in an earlier document of the same load.
func Parse(src *lexer.ByteSource, reg *yamlh.TagRegistry) (*yamlh.Events, error) {
	p := &Parser{
		reg:        reg,
		events:     &yamlh.Events{},
		anchors:    make(map[string]yamlh.AnchorId),
		nextAnchor: yamlh.NoAnchor + 1,
	}
	p.resetDirectives()

	lx := lexer.New(src)
	for {
		ev := lx.Next()
		switch ev.Kind {
		case lexer.Comment:
			continue
		case lexer.Error:
			return nil, &Error{
				Msg:     string(lx.Content()),
				Line:    lx.Line(),
				Column:  ev.Column,
				Lexical: true,
				Cause:   lx.Err(),
			}
		}
		p.toks = append(p.toks, token{
			kind:  ev.Kind,
			line:  lx.Line(),
			col:   ev.Column,
			val:   string(lx.Content()),
			style: lx.ScalarStyle(),
		})
		if ev.Kind == lexer.StreamEnd {
			break
		}
	}
	if err := p.parseStream(); err != nil {
		return nil, err
	}
	return p.events, nil
}

func (p *Parser) resetDirectives() {
	p.shorthands = map[string]string{
		"!":  "!",
		"!!": yamlh.CoreTagPrefix,
	}
}

func (p *Parser) cur() token {
	return p.toks[p.pos]
}

func (p *Parser) next() token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *Parser) advance() {
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
}

func (p *Parser) skipLineStarts() {
	for p.cur().kind == lexer.LineStart {
		p.curIndent = len(p.cur().val)
		p.advance()
	}
}

func (p *Parser) failf(t token, format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Line: t.line, Column: t.col}
}

func (p *Parser) push(ev yamlh.Event, t token) {
	ev.Line = t.line
	ev.Column = t.col
	p.events.Push(ev)
}

func (p *Parser) pushEmpty(pr props, t token) {
	tag := pr.tag
	if tag < 0 {
		tag = yamlh.TagQuestion
	}
	p.push(yamlh.Event{
		Kind:   yamlh.ScalarEvent,
		Tag:    tag,
		Anchor: pr.anchor,
		Style:  yamlh.PlainStyle,
	}, t)
}

func (p *Parser) pushScalarTok(t token, pr props) {
	tag := pr.tag
	if tag < 0 {
		if t.style == yamlh.PlainStyle {
			tag = yamlh.TagQuestion
		} else {
			tag = yamlh.TagExclamation
		}
	}
	val := t.val
	if (t.style == yamlh.SingleQuotedStyle || t.style == yamlh.DoubleQuotedStyle) && strings.Contains(val, "\n") {
		val = foldQuoted(val)
	}
	p.push(yamlh.Event{
		Kind:   yamlh.ScalarEvent,
		Tag:    tag,
		Anchor: pr.anchor,
		Value:  []byte(val),
		Style:  t.style,
	}, t)
}

func isDocBoundary(k lexer.EventKind) bool {
	return k == lexer.DocumentEnd || k == lexer.DirectivesEnd || k == lexer.StreamEnd
}

func (p *Parser) isKeyAhead() bool {
	t := p.cur()
	if t.kind == lexer.ControlChar && (t.val == "?" || t.val == ":") {
		return true
	}
	return t.kind == lexer.Scalar && p.next().kind == lexer.ControlChar && p.next().val == ":"
}

func (p *Parser) parseStream() error {
	p.push(yamlh.Event{Kind: yamlh.StreamStartEvent}, p.cur())
	for {
		t := p.cur()
		switch t.kind {
		case lexer.StreamEnd:
			p.push(yamlh.Event{Kind: yamlh.StreamEndEvent}, t)
			return nil
		case lexer.YamlDirective, lexer.MajorVersion, lexer.MinorVersion,
			lexer.UnknownDirective, lexer.UnknownDirectiveParam:
			p.advance()
		case lexer.TagDirective:
			p.advance()
			if p.cur().kind == lexer.TagHandle {
				handle := p.cur().val
				p.advance()
				if p.cur().kind == lexer.TagURI {
					p.shorthands[handle] = p.cur().val
					p.advance()
				}
			}
		case lexer.DirectivesEnd:
			p.advance()
			p.curIndent = 0
			if err := p.parseDocument(t); err != nil {
				return err
			}
		case lexer.DocumentEnd:
			p.advance()
		case lexer.LineStart:
			nt := p.next()
			if nt.kind == lexer.LineStart || isDocBoundary(nt.kind) {
				p.curIndent = len(t.val)
				p.advance()
				continue
			}
			if err := p.parseDocument(t); err != nil {
				return err
			}
		default:
			if err := p.parseDocument(t); err != nil {
				return err
			}
		}
	}
}

func (p *Parser) parseDocument(at token) error {
	p.push(yamlh.Event{Kind: yamlh.DocumentStartEvent}, at)
	p.skipLineStarts()
	t := p.cur()
	if isDocBoundary(t.kind) {
		p.pushEmpty(noProps, t)
	} else if err := p.parseNode(); err != nil {
		return err
	}
	p.skipLineStarts()
	p.push(yamlh.Event{Kind: yamlh.DocumentEndEvent}, p.cur())
	p.resetDirectives()
	return nil
}

// parseProps collects the anchor and tag properties preceding a node.
func (p *Parser) parseProps() (props, error) {
	pr := noProps
	for {
		t := p.cur()
		switch t.kind {
		case lexer.Anchor:
			id := p.nextAnchor
			p.nextAnchor++
			p.anchors[t.val] = id
			pr.anchor = id
			p.advance()
		case lexer.TagHandle:
			p.advance()
			var suffix string
			if p.cur().kind == lexer.TagSuffix {
				suffix = p.cur().val
				p.advance()
			}
			tag, err := p.resolveShorthand(t, t.val, suffix)
			if err != nil {
				return pr, err
			}
			pr.tag = tag
		case lexer.VerbatimTag:
			pr.tag = p.reg.RegisterURI(t.val)
			p.advance()
		case lexer.LineStart:
			// Properties may stand on a line of their own; the node follows.
			nt := p.next()
			if nt.kind == lexer.Anchor || nt.kind == lexer.TagHandle || nt.kind == lexer.VerbatimTag {
				p.curIndent = len(t.val)
				p.advance()
				continue
			}
			return pr, nil
		default:
			return pr, nil
		}
	}
}

func (p *Parser) resolveShorthand(t token, handle, suffix string) (yamlh.TagId, error) {
	if handle == "!" && suffix == "" {
		return yamlh.TagExclamation, nil
	}
	prefix, ok := p.shorthands[handle]
	if !ok {
		return 0, p.failf(t, "unknown tag handle %q", handle)
	}
	return p.reg.RegisterURI(prefix + suffix), nil
}

func (p *Parser) parseNode() error {
	p.skipLineStarts()
	pr, err := p.parseProps()
	if err != nil {
		return err
	}
	p.skipLineStarts()
	t := p.cur()
	switch t.kind {
	case lexer.Alias:
		id, ok := p.anchors[t.val]
		if !ok {
			return p.failf(t, "unknown anchor %q referenced", t.val)
		}
		p.advance()
		p.push(yamlh.Event{Kind: yamlh.AliasEvent, Anchor: id}, t)
		return nil
	case lexer.Scalar:
		if p.next().kind == lexer.ControlChar && p.next().val == ":" {
			return p.parseBlockMapping(pr, t)
		}
		return p.parseScalar(pr)
	case lexer.LiteralScalar:
		return p.parseBlockScalar(pr, false)
	case lexer.FoldedScalar:
		return p.parseBlockScalar(pr, true)
	case lexer.ControlChar:
		switch t.val {
		case "-":
			return p.parseBlockSequence(pr, t)
		case "[":
			return p.parseFlowSequence(pr, t)
		case "{":
			return p.parseFlowMapping(pr, t)
		case "?", ":":
			return p.parseBlockMapping(pr, t)
		}
		return p.failf(t, "unexpected %q", t.val)
	case lexer.DocumentEnd, lexer.DirectivesEnd, lexer.StreamEnd:
		p.pushEmpty(pr, t)
		return nil
	}
	return p.failf(t, "unexpected %s token", t.kind)
}

// parseScalar pushes a scalar node. Plain scalars continued on more deeply
// indented lines are folded into the node with single spaces.
func (p *Parser) parseScalar(pr props) error {
	t := p.cur()
	lineIndent := p.curIndent
	p.pushScalarTok(t, pr)
	p.advance()
	if t.style != yamlh.PlainStyle {
		return nil
	}
	ev := p.events.At(p.events.Len() - 1)
	for p.cur().kind == lexer.LineStart {
		save, saveIndent := p.pos, p.curIndent
		p.skipLineStarts()
		c := p.cur()
		if p.curIndent > lineIndent && c.kind == lexer.Scalar && c.style == yamlh.PlainStyle &&
			!(p.next().kind == lexer.ControlChar && p.next().val == ":") {
			ev.Value = append(ev.Value, ' ')
			ev.Value = append(ev.Value, c.val...)
			p.advance()
			continue
		}
		p.pos, p.curIndent = save, saveIndent
		break
	}
	return nil
}

func (p *Parser) parseBlockMapping(pr props, first token) error {
	n := first.col
	tag := pr.tag
	if tag < 0 {
		tag = yamlh.TagQuestion
	}
	p.push(yamlh.Event{Kind: yamlh.MappingStartEvent, Tag: tag, Anchor: pr.anchor}, first)
	for {
		t := p.cur()
		switch {
		case t.kind == lexer.Scalar && p.next().kind == lexer.ControlChar && p.next().val == ":":
			p.pushScalarTok(t, noProps)
			p.advance()
			p.advance()
		case t.kind == lexer.ControlChar && t.val == "?":
			p.advance()
			if err := p.parseNode(); err != nil {
				return err
			}
			p.skipLineStarts()
			if c := p.cur(); c.kind == lexer.ControlChar && c.val == ":" {
				p.advance()
			} else {
				p.pushEmpty(noProps, c)
				continue
			}
		case t.kind == lexer.ControlChar && t.val == ":":
			p.pushEmpty(noProps, t)
			p.advance()
		default:
			return p.failf(t, "expected mapping key")
		}
		if err := p.parseMappingValue(n); err != nil {
			return err
		}
		p.skipLineStarts()
		t = p.cur()
		if isDocBoundary(t.kind) {
			break
		}
		if p.curIndent == n && p.isKeyAhead() {
			continue
		}
		if p.curIndent > n {
			return p.failf(t, "invalid indentation in mapping")
		}
		break
	}
	p.push(yamlh.Event{Kind: yamlh.MappingEndEvent}, p.cur())
	return nil
}

func (p *Parser) parseMappingValue(n int) error {
	t := p.cur()
	if t.kind != lexer.LineStart && !isDocBoundary(t.kind) {
		return p.parseNode()
	}
	p.skipLineStarts()
	c := p.cur()
	if isDocBoundary(c.kind) {
		p.pushEmpty(noProps, c)
		return nil
	}
	indentless := p.curIndent == n && c.kind == lexer.ControlChar && c.val == "-"
	if p.curIndent > n || indentless {
		return p.parseNode()
	}
	p.pushEmpty(noProps, c)
	return nil
}

func (p *Parser) parseBlockSequence(pr props, first token) error {
	n := first.col
	tag := pr.tag
	if tag < 0 {
		tag = yamlh.TagQuestion
	}
	p.push(yamlh.Event{Kind: yamlh.SequenceStartEvent, Tag: tag, Anchor: pr.anchor}, first)
	for {
		p.advance() // the '-'
		t := p.cur()
		if t.kind != lexer.LineStart && !isDocBoundary(t.kind) {
			if err := p.parseNode(); err != nil {
				return err
			}
		} else {
			p.skipLineStarts()
			c := p.cur()
			if p.curIndent > n && !isDocBoundary(c.kind) {
				if err := p.parseNode(); err != nil {
					return err
				}
			} else {
				p.pushEmpty(noProps, c)
			}
		}
		p.skipLineStarts()
		t = p.cur()
		if isDocBoundary(t.kind) {
			break
		}
		if t.kind == lexer.ControlChar && t.val == "-" && p.curIndent == n {
			continue
		}
		if p.curIndent > n {
			return p.failf(t, "invalid indentation in sequence")
		}
		break
	}
	p.push(yamlh.Event{Kind: yamlh.SequenceEndEvent}, p.cur())
	return nil
}

func (p *Parser) parseFlowSequence(pr props, first token) error {
	tag := pr.tag
	if tag < 0 {
		tag = yamlh.TagQuestion
	}
	p.push(yamlh.Event{Kind: yamlh.SequenceStartEvent, Tag: tag, Anchor: pr.anchor}, first)
	p.advance() // the '['
	started := false
	for {
		p.skipLineStarts()
		t := p.cur()
		if t.kind == lexer.StreamEnd {
			return p.failf(t, "unterminated flow sequence")
		}
		if t.kind == lexer.ControlChar && t.val == "]" {
			p.advance()
			break
		}
		if started {
			if !(t.kind == lexer.ControlChar && t.val == ",") {
				return p.failf(t, "expected ',' or ']' in flow sequence")
			}
			p.advance()
			p.skipLineStarts()
			if c := p.cur(); c.kind == lexer.ControlChar && c.val == "]" {
				p.advance()
				break
			}
		}
		if err := p.parseFlowEntry(); err != nil {
			return err
		}
		started = true
	}
	p.push(yamlh.Event{Kind: yamlh.SequenceEndEvent}, p.cur())
	return nil
}

// parseFlowEntry parses one flow sequence entry, turning an inline "key:
// value" pair into a single-pair mapping.
func (p *Parser) parseFlowEntry() error {
	pr, err := p.parseProps()
	if err != nil {
		return err
	}
	p.skipLineStarts()
	t := p.cur()
	if t.kind == lexer.Scalar && p.next().kind == lexer.ControlChar && p.next().val == ":" {
		p.push(yamlh.Event{Kind: yamlh.MappingStartEvent, Tag: yamlh.TagQuestion, Anchor: yamlh.NoAnchor}, t)
		p.pushScalarTok(t, noProps)
		p.advance()
		p.advance()
		p.skipLineStarts()
		c := p.cur()
		if c.kind == lexer.ControlChar && (c.val == "," || c.val == "]" || c.val == "}") {
			p.pushEmpty(noProps, c)
		} else {
			vpr, err := p.parseProps()
			if err != nil {
				return err
			}
			if err := p.parseFlowNode(vpr); err != nil {
				return err
			}
		}
		p.push(yamlh.Event{Kind: yamlh.MappingEndEvent}, p.cur())
		return nil
	}
	return p.parseFlowNode(pr)
}

func (p *Parser) parseFlowNode(pr props) error {
	p.skipLineStarts()
	t := p.cur()
	switch t.kind {
	case lexer.Alias:
		id, ok := p.anchors[t.val]
		if !ok {
			return p.failf(t, "unknown anchor %q referenced", t.val)
		}
		p.advance()
		p.push(yamlh.Event{Kind: yamlh.AliasEvent, Anchor: id}, t)
		return nil
	case lexer.Scalar:
		p.pushScalarTok(t, pr)
		p.advance()
		return nil
	case lexer.ControlChar:
		switch t.val {
		case "[":
			return p.parseFlowSequence(pr, t)
		case "{":
			return p.parseFlowMapping(pr, t)
		}
	}
	return p.failf(t, "unexpected token in flow context")
}

func (p *Parser) parseFlowMapping(pr props, first token) error {
	tag := pr.tag
	if tag < 0 {
		tag = yamlh.TagQuestion
	}
	p.push(yamlh.Event{Kind: yamlh.MappingStartEvent, Tag: tag, Anchor: pr.anchor}, first)
	p.advance() // the '{'
	started := false
	for {
		p.skipLineStarts()
		t := p.cur()
		if t.kind == lexer.StreamEnd {
			return p.failf(t, "unterminated flow mapping")
		}
		if t.kind == lexer.ControlChar && t.val == "}" {
			p.advance()
			break
		}
		if started {
			if !(t.kind == lexer.ControlChar && t.val == ",") {
				return p.failf(t, "expected ',' or '}' in flow mapping")
			}
			p.advance()
			p.skipLineStarts()
			if c := p.cur(); c.kind == lexer.ControlChar && c.val == "}" {
				p.advance()
				break
			}
		}
		// Key.
		kpr, err := p.parseProps()
		if err != nil {
			return err
		}
		p.skipLineStarts()
		t = p.cur()
		if t.kind == lexer.ControlChar && t.val == "?" {
			p.advance()
			p.skipLineStarts()
			t = p.cur()
		}
		if t.kind == lexer.ControlChar && t.val == ":" {
			p.pushEmpty(kpr, t)
		} else if err := p.parseFlowNode(kpr); err != nil {
			return err
		}
		// Value.
		p.skipLineStarts()
		if c := p.cur(); c.kind == lexer.ControlChar && c.val == ":" {
			p.advance()
			p.skipLineStarts()
			c = p.cur()
			if c.kind == lexer.ControlChar && (c.val == "," || c.val == "}") {
				p.pushEmpty(noProps, c)
			} else {
				vpr, err := p.parseProps()
				if err != nil {
					return err
				}
				if err := p.parseFlowNode(vpr); err != nil {
					return err
				}
			}
		} else {
			p.pushEmpty(noProps, c)
		}
		started = true
	}
	p.push(yamlh.Event{Kind: yamlh.MappingEndEvent}, p.cur())
	return nil
}

func (p *Parser) parseBlockScalar(pr props, folded bool) error {
	t := p.cur()
	p.advance()
	chomp := 0
	for {
		c := p.cur()
		if c.kind == lexer.BlockIndentationIndicator {
			p.advance()
			continue
		}
		if c.kind == lexer.BlockChompingIndicator {
			if c.val == "-" {
				chomp = -1
			} else {
				chomp = 1
			}
			p.advance()
			continue
		}
		break
	}
	var lines []string
	for p.cur().kind == lexer.BlockScalarLine {
		lines = append(lines, p.cur().val)
		p.advance()
	}
	tag := pr.tag
	if tag < 0 {
		tag = yamlh.TagExclamation
	}
	style := yamlh.LiteralStyle
	if folded {
		style = yamlh.FoldedStyle
	}
	p.push(yamlh.Event{
		Kind:   yamlh.ScalarEvent,
		Tag:    tag,
		Anchor: pr.anchor,
		Value:  []byte(assembleBlockScalar(lines, folded, chomp)),
		Style:  style,
	}, t)
	return nil
}

// assembleBlockScalar joins the body lines of a block scalar. Folded scalars
// replace single line breaks between flush lines with spaces; empty lines
// and breaks adjacent to more-indented lines stay literal. chomp is -1 for
// strip, 0 for clip and 1 for keep.
func assembleBlockScalar(lines []string, folded bool, chomp int) string {
	trail := 0
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
		trail++
	}
	var b strings.Builder
	for i, ln := range lines {
		if i == 0 {
			b.WriteString(ln)
			continue
		}
		if !folded {
			b.WriteByte('\n')
			b.WriteString(ln)
			continue
		}
		prev := lines[i-1]
		switch {
		case ln == "":
			b.WriteByte('\n')
		case prev == "":
			b.WriteString(ln)
		case strings.HasPrefix(ln, " ") || strings.HasPrefix(prev, " "):
			b.WriteByte('\n')
			b.WriteString(ln)
		default:
			b.WriteByte(' ')
			b.WriteString(ln)
		}
	}
	switch {
	case chomp < 0:
	case chomp == 0:
		if len(lines) > 0 {
			b.WriteByte('\n')
		}
	default:
		if len(lines) > 0 {
			b.WriteByte('\n')
		}
		for i := 0; i < trail; i++ {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// foldQuoted folds the line breaks inside a quoted scalar: interior
// indentation is stripped, a single break becomes a space and empty lines
// become literal breaks.
func foldQuoted(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		switch i {
		case 0:
			lines[i] = strings.TrimRight(lines[i], " \t")
		case len(lines) - 1:
			lines[i] = strings.TrimLeft(lines[i], " \t")
		default:
			lines[i] = strings.Trim(lines[i], " \t")
		}
	}
	var b strings.Builder
	for i, ln := range lines {
		if i == 0 {
			b.WriteString(ln)
			continue
		}
		prev := lines[i-1]
		switch {
		case ln == "":
			b.WriteByte('\n')
		case prev == "":
			b.WriteString(ln)
		default:
			b.WriteByte(' ')
			b.WriteString(ln)
		}
	}
	return b.String()
}
