//
// Copyright (c) 2011-2019 Canonical Ltd
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package yamlkit

import (
	"fmt"
)

// LoadingError is the umbrella over everything Load can fail with:
// construction errors, parser errors and stream errors all satisfy it, so a
// caller can match the whole family with one errors.As.
type LoadingError interface {
	error
	loadingError()
}

// ConstructionError is a semantic failure while building a typed value from
// the event stream: a wrong tag, an anchor on a non-reference type, an
// unknown, missing or duplicated field, a malformed primitive literal, or a
// variant branch mismatch. Line and Column locate the offending event when
// the stream could report a position.
type ConstructionError struct {
	Msg    string
	Line   int
	Column int
}

func (e *ConstructionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("yaml: line %d: %s", e.Line, e.Msg)
	}
	return "yaml: " + e.Msg
}

func (e *ConstructionError) loadingError() {}

// ParserError is a grammar failure reported by the parser, surfaced
// unchanged.
type ParserError struct {
	Msg    string
	Line   int
	Column int
}

func (e *ParserError) Error() string {
	return fmt.Sprintf("yaml: line %d: %s", e.Line, e.Msg)
}

func (e *ParserError) loadingError() {}

// StreamError wraps an unexpected failure of the event producer, such as an
// I/O error on the underlying reader.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return "yaml: stream error: " + e.Err.Error()
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

func (e *StreamError) loadingError() {}
