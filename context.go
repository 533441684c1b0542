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
	"reflect"

	"github.com/yamlkit/yamlkit/internal/yamlh"
)

// constructionContext tracks anchor identity while loading. Every anchor id
// binds to at most one object; aliases resolve through it. One context spans
// all documents of a single Load call, so an alias may refer to an anchor
// bound in an earlier document of the same stream.
type constructionContext struct {
	refs map[yamlh.AnchorId]reflect.Value
}

func newConstructionContext() *constructionContext {
	return &constructionContext{refs: make(map[yamlh.AnchorId]reflect.Value)}
}

// tidyRecord remembers where a reference's first occurrence landed in the
// event buffer so a later second visit can patch an anchor onto it.
type tidyRecord struct {
	first int
	id    yamlh.AnchorId
}

// serializationContext tracks object identity while representing. Identity
// keys are the pointer values themselves. The context is document-scoped and
// not safe for concurrent mutation.
type serializationContext struct {
	style      AnchorStyle
	events     *yamlh.Events
	refs       map[interface{}]yamlh.AnchorId
	seen       map[interface{}]*tidyRecord
	nextAnchor yamlh.AnchorId
}

func newSerializationContext(style AnchorStyle, events *yamlh.Events) *serializationContext {
	return &serializationContext{
		style:      style,
		events:     events,
		refs:       make(map[interface{}]yamlh.AnchorId),
		seen:       make(map[interface{}]*tidyRecord),
		nextAnchor: yamlh.NoAnchor + 1,
	}
}

func (c *serializationContext) newAnchor() yamlh.AnchorId {
	id := c.nextAnchor
	c.nextAnchor++
	return id
}
