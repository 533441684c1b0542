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

package yamlh

import (
	"fmt"
)

type EventKind int8

// Structural event kinds, as produced by the parser and consumed by the
// construction engine.
const (
	NoEvent EventKind = iota

	StreamStartEvent   // The start of the whole stream.
	StreamEndEvent     // The end of the whole stream.
	DocumentStartEvent // The start of one document.
	DocumentEndEvent   // The end of one document.
	AliasEvent         // A reference to a previously anchored node.
	ScalarEvent        // A scalar value.
	SequenceStartEvent // The start of a sequence.
	SequenceEndEvent   // The end of a sequence.
	MappingStartEvent  // The start of a mapping.
	MappingEndEvent    // The end of a mapping.
)

var eventKindStrings = []string{
	NoEvent:            "none",
	StreamStartEvent:   "stream start",
	StreamEndEvent:     "stream end",
	DocumentStartEvent: "document start",
	DocumentEndEvent:   "document end",
	AliasEvent:         "alias",
	ScalarEvent:        "scalar",
	SequenceStartEvent: "sequence start",
	SequenceEndEvent:   "sequence end",
	MappingStartEvent:  "mapping start",
	MappingEndEvent:    "mapping end",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindStrings) {
		return fmt.Sprintf("unknown event %d", k)
	}
	return eventKindStrings[k]
}

// AnchorId identifies an anchored node within one stream. Names from the
// source text are interned by the parser across all documents of the stream;
// the engines only see ids. Real ids
// start at 1 so the zero value of an event carries no anchor.
type AnchorId int32

// NoAnchor marks events that carry no anchor.
const NoAnchor AnchorId = 0

type ScalarStyle int8

// Scalar presentation styles. The construction engine uses the style to decide
// whether an untagged scalar is subject to type guessing (plain) or is
// inherently a string (any quoted or block style).
const (
	AnyScalarStyle ScalarStyle = iota

	PlainStyle        // An unquoted scalar.
	SingleQuotedStyle // A 'single quoted' scalar.
	DoubleQuotedStyle // A "double quoted" scalar.
	LiteralStyle      // A | literal block scalar.
	FoldedStyle       // A > folded block scalar.
)

// Event is one structural event.
//
// For ScalarEvent the Value slice holds the scalar content. For AliasEvent the
// Anchor field holds the id of the alias target. Line is 1-based, Column is
// 0-based; both are the source position of the event's first character, best
// effort.
type Event struct {
	Kind EventKind

	Tag    TagId
	Anchor AnchorId
	Value  []byte
	Style  ScalarStyle

	Line   int
	Column int
}

// EventStream is a forward, peekable, finite sequence of structural events.
//
// Peek returns a pointer into the stream's storage: mutating the pointed-to
// event (for example stripping its anchor) alters what the following Next
// returns. Peek is idempotent until the next call to Next.
type EventStream interface {
	Next() (*Event, error)
	Peek() (*Event, error)
	Finished() bool

	// LastTokenContext reports the source position of the most recently
	// returned event, best effort.
	LastTokenContext() (line, column int, lineContent string, ok bool)
}

// Events is a materialised event stream. The representation engine returns
// one; it also serves as the in-memory implementation of EventStream.
type Events struct {
	list []Event
	pos  int

	lastLine   int
	lastColumn int
	hasContext bool
}

// Push appends an event to the stream.
func (e *Events) Push(ev Event) {
	e.list = append(e.list, ev)
}

// Len returns the total number of events pushed.
func (e *Events) Len() int {
	return len(e.list)
}

// At returns a pointer to the i-th event. The representation engine's anchor
// post-pass patches events in place through it.
func (e *Events) At(i int) *Event {
	return &e.list[i]
}

// Rewind resets the read position to the first event.
func (e *Events) Rewind() {
	e.pos = 0
}

func (e *Events) Next() (*Event, error) {
	if e.pos >= len(e.list) {
		return nil, fmt.Errorf("yaml: read past the end of the event stream")
	}
	ev := &e.list[e.pos]
	e.pos++
	e.lastLine, e.lastColumn = ev.Line, ev.Column
	e.hasContext = true
	return ev, nil
}

func (e *Events) Peek() (*Event, error) {
	if e.pos >= len(e.list) {
		return nil, fmt.Errorf("yaml: peek past the end of the event stream")
	}
	return &e.list[e.pos], nil
}

func (e *Events) Finished() bool {
	return e.pos >= len(e.list)
}

func (e *Events) LastTokenContext() (line, column int, lineContent string, ok bool) {
	if !e.hasContext {
		return 0, 0, "", false
	}
	return e.lastLine, e.lastColumn, "", true
}
