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

// Package yamlkit is a YAML 1.2 processing core built around two engines: a
// streaming lexer feeding an event parser on the way in, and a type-directed
// construction engine that drives the event stream into statically typed
// values. The representation engine runs the same bridge in reverse, from a
// typed value back to an event stream.
//
// Load reads one or more documents into typed targets:
//
//	var cfg Config
//	err := yamlkit.Load(data, &cfg)
//
// Pointer fields resolve anchors and aliases by identity, including cycles.
// Struct fields map to mapping keys the way the yaml struct tag declares,
// with lowercased field names as the default. RegisterVariant and
// RegisterImplicitVariant describe discriminated records, which have their
// own wire forms.
package yamlkit

import (
	"errors"
	"io"
	"strings"

	"github.com/yamlkit/yamlkit/internal/lexer"
	"github.com/yamlkit/yamlkit/internal/parser"
	"github.com/yamlkit/yamlkit/internal/yamlh"
)

// Load parses in and constructs one document per target, in order. Targets
// must be non-nil pointers. All documents of one call share a construction
// context, so aliases may refer to anchors bound in earlier documents of the
// same input.
//
// The returned error is always a LoadingError: a *ConstructionError, a
// *ParserError or a *StreamError.
func Load(in []byte, outs ...interface{}) error {
	return LoadWithRegistry(defaultRegistry, in, outs...)
}

// LoadReader is Load reading from r.
func LoadReader(r io.Reader, outs ...interface{}) error {
	return loadSource(defaultRegistry, lexer.NewByteSource(r), outs)
}

// LoadWithRegistry is Load with an explicit tag registry.
func LoadWithRegistry(reg *TagRegistry, in []byte, outs ...interface{}) error {
	return loadSource(reg, lexer.NewByteSourceBytes(in), outs)
}

func loadSource(reg *TagRegistry, src *lexer.ByteSource, outs []interface{}) error {
	events, err := parser.Parse(src, reg)
	if err != nil {
		var perr *parser.Error
		if errors.As(err, &perr) {
			if perr.Cause != nil {
				return &StreamError{Err: perr.Cause}
			}
			return &ParserError{Msg: perr.Msg, Line: perr.Line, Column: perr.Column}
		}
		return &StreamError{Err: err}
	}

	c := &constructor{es: events, ctx: newConstructionContext(), reg: reg}
	if _, err := c.expect(yamlh.StreamStartEvent); err != nil {
		return err
	}
	for _, out := range outs {
		ev, err := c.peek()
		if err != nil {
			return err
		}
		if ev.Kind == yamlh.StreamEndEvent {
			return c.failf("Expected a document, got end of stream")
		}
		if err := c.document(out); err != nil {
			var lerr LoadingError
			if !errors.As(err, &lerr) {
				return &ConstructionError{Msg: strings.TrimPrefix(err.Error(), "yaml: ")}
			}
			return err
		}
	}
	return nil
}
