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

// TagId identifies a tag URI; see TagRegistry.
type TagId = yamlh.TagId

// TagRegistry maps tag URIs to stable small integer ids and back.
// Registration is idempotent. Construction and representation accept an
// explicit registry; DefaultRegistry is used when none is given.
type TagRegistry = yamlh.TagRegistry

// Event is one structural event of a document.
type Event = yamlh.Event

// Events is a materialised event stream, as returned by Represent.
type Events = yamlh.Events

// EventStream is the forward, peekable event sequence Construct consumes.
type EventStream = yamlh.EventStream

// Reserved tag ids.
const (
	TagQuestion    = yamlh.TagQuestion
	TagExclamation = yamlh.TagExclamation
	TagString      = yamlh.TagString
	TagBoolean     = yamlh.TagBoolean
	TagNull        = yamlh.TagNull
	TagInteger     = yamlh.TagInteger
	TagFloat       = yamlh.TagFloat
	TagSequence    = yamlh.TagSequence
	TagMapping     = yamlh.TagMapping
	TagNilString   = yamlh.TagNilString
	TagNilSeq      = yamlh.TagNilSeq
)

// NewTagRegistry returns a registry seeded with the reserved tags.
func NewTagRegistry() *TagRegistry {
	return yamlh.NewTagRegistry()
}

var defaultRegistry = yamlh.NewTagRegistry()

// DefaultRegistry returns the registry used by Load, Construct and Represent
// when no explicit registry is passed. It is a convenience, not a
// requirement; it is not safe for concurrent mutation.
func DefaultRegistry() *TagRegistry {
	return defaultRegistry
}

// TagStyle controls which events of a represented document carry real tags.
// The null sentinel tags (nil string, nil sequence) appear under every style.
type TagStyle int8

const (
	TagStyleNone     TagStyle = iota // No event carries a tag.
	TagStyleRootOnly                 // Only the root node carries its tag.
	TagStyleAll                      // Every event carries its tag.
)

// AnchorStyle controls how the representation engine assigns anchors to
// shared references.
type AnchorStyle int8

const (
	// Dereference inline; aliases are never produced.
	AnchorStyleNone AnchorStyle = iota

	// Anchor only objects that turn out to be referenced more than once.
	AnchorStyleTidy

	// Anchor every reference on first sight.
	AnchorStyleAlways
)

// yamlTag returns the tag id describing values of type t. Primitive kinds map
// to the native width tags, containers to the core seq and map tags, and
// named struct types to a URI derived from their import path, registered on
// first use.
func yamlTag(t reflect.Type, reg *TagRegistry) TagId {
	switch t.Kind() {
	case reflect.String:
		return yamlh.TagString
	case reflect.Bool:
		return yamlh.TagBoolean
	case reflect.Int, reflect.Int64:
		return yamlh.TagInt64
	case reflect.Int8:
		return yamlh.TagInt8
	case reflect.Int16:
		return yamlh.TagInt16
	case reflect.Int32:
		return yamlh.TagInt32
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return yamlh.TagUint64
	case reflect.Uint8:
		return yamlh.TagUint8
	case reflect.Uint16:
		return yamlh.TagUint16
	case reflect.Uint32:
		return yamlh.TagUint32
	case reflect.Float32:
		return yamlh.TagFloat32
	case reflect.Float64:
		return yamlh.TagFloat64
	case reflect.Slice, reflect.Array:
		return yamlh.TagSequence
	case reflect.Map:
		if isSetMap(t) {
			return yamlh.TagSequence
		}
		return yamlh.TagMapping
	case reflect.Ptr:
		return yamlTag(t.Elem(), reg)
	case reflect.Struct:
		return reg.RegisterURI(structTagURI(t))
	}
	return yamlh.TagQuestion
}

func structTagURI(t reflect.Type) string {
	if t.PkgPath() != "" && t.Name() != "" {
		return "!go:" + t.PkgPath() + "." + t.Name()
	}
	return "!go:" + t.String()
}

// signedIntTags and friends are the width groups consulted by implicit
// variant dispatch.
var (
	signedIntTags   = []TagId{yamlh.TagInt8, yamlh.TagInt16, yamlh.TagInt32, yamlh.TagInt64, yamlh.TagInteger}
	unsignedIntTags = []TagId{yamlh.TagUint8, yamlh.TagUint16, yamlh.TagUint32, yamlh.TagUint64}
	floatTags       = []TagId{yamlh.TagFloat32, yamlh.TagFloat64, yamlh.TagFloat}
)
