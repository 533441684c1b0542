package lexer

import (
	"fmt"
)

type EventKind int8

// Lexical event kinds. Payload text, when a kind carries any, is exposed
// through the lexer's content slot and stays valid until the next event is
// requested.
const (
	// Separators.
	DirectivesEnd EventKind = iota // The "---" marker.
	DocumentEnd                    // The "..." marker.
	StreamEnd                      // End of input; always the last event.

	// Directives.
	TagDirective          // "%TAG"; followed by TagHandle and TagURI.
	YamlDirective         // "%YAML"; followed by MajorVersion and MinorVersion.
	UnknownDirective      // Any other directive; content holds its name.
	MajorVersion          // Content holds the major version number.
	MinorVersion          // Content holds the minor version number.
	TagURI                // Content holds a tag directive's URI prefix.
	UnknownDirectiveParam // One parameter of an unknown directive.

	// Shared between directive and content lines.
	TagHandle // Content holds a tag handle, including its '!' delimiters.
	Comment   // Content holds the comment text after '#'.

	// Content.
	LineStart   // Start of a content line; content holds the indentation.
	ControlChar // A single syntactic character; content holds it.

	// Block scalar header.
	LiteralScalar             // The '|' indicator.
	FoldedScalar              // The '>' indicator.
	BlockIndentationIndicator // Content holds the digit.
	BlockChompingIndicator    // Content holds '+' or '-'.

	// Scalar content.
	Scalar          // A (possibly quoted) scalar; content holds its text.
	BlockScalarLine // One line of a block scalar's body.

	// Tags.
	VerbatimTag // Content holds the URI between "!<" and ">".
	TagSuffix   // Content holds the suffix following a handle.

	// Anchoring.
	Anchor // Content holds the anchor name, without '&'.
	Alias  // Content holds the alias name, without '*'.

	// Inline error; content holds the message.
	Error
)

var eventKindStrings = []string{
	DirectivesEnd:             "DirectivesEnd",
	DocumentEnd:               "DocumentEnd",
	StreamEnd:                 "StreamEnd",
	TagDirective:              "TagDirective",
	YamlDirective:             "YamlDirective",
	UnknownDirective:          "UnknownDirective",
	MajorVersion:              "MajorVersion",
	MinorVersion:              "MinorVersion",
	TagURI:                    "TagURI",
	UnknownDirectiveParam:     "UnknownDirectiveParam",
	TagHandle:                 "TagHandle",
	Comment:                   "Comment",
	LineStart:                 "LineStart",
	ControlChar:               "ControlChar",
	LiteralScalar:             "LiteralScalar",
	FoldedScalar:              "FoldedScalar",
	BlockIndentationIndicator: "BlockIndentationIndicator",
	BlockChompingIndicator:    "BlockChompingIndicator",
	Scalar:                    "Scalar",
	BlockScalarLine:           "BlockScalarLine",
	VerbatimTag:               "VerbatimTag",
	TagSuffix:                 "TagSuffix",
	Anchor:                    "Anchor",
	Alias:                     "Alias",
	Error:                     "Error",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindStrings) {
		return fmt.Sprintf("unknown lexical event %d", k)
	}
	return eventKindStrings[k]
}

// Event is one lexical event: a kind and the 0-based column of the first
// character of the emitted token.
type Event struct {
	Kind   EventKind
	Column int
}
