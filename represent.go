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
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/yamlkit/yamlkit/internal/resolve"
	"github.com/yamlkit/yamlkit/internal/yamlh"
)

// ----------------------------------------------------------------------------
// Representation engine: walks a typed value and emits structural events.

type representer struct {
	events   *yamlh.Events
	reg      *TagRegistry
	tagStyle TagStyle
	ctx      *serializationContext

	pendingAnchor yamlh.AnchorId
}

// Represent walks v and returns the materialised event stream of one
// document, wrapped in DocumentStart and DocumentEnd. It uses the default
// tag registry.
//
// The stream is materialised rather than lazy because the Tidy anchor style
// needs a post-pass over the document's events: only objects that turned out
// to be referenced more than once keep an anchor.
func Represent(v interface{}, tagStyle TagStyle, anchorStyle AnchorStyle) (*Events, error) {
	return RepresentWithRegistry(defaultRegistry, v, tagStyle, anchorStyle)
}

// RepresentWithRegistry is Represent with an explicit tag registry.
func RepresentWithRegistry(reg *TagRegistry, v interface{}, tagStyle TagStyle, anchorStyle AnchorStyle) (*Events, error) {
	events := &Events{}
	r := &representer{
		events:   events,
		reg:      reg,
		tagStyle: tagStyle,
		ctx:      newSerializationContext(anchorStyle, events),
	}
	r.emit(yamlh.Event{Kind: yamlh.DocumentStartEvent})
	if err := r.value(reflect.ValueOf(v), true); err != nil {
		return nil, err
	}
	r.emit(yamlh.Event{Kind: yamlh.DocumentEndEvent})
	for _, rec := range r.ctx.seen {
		if rec.id != yamlh.NoAnchor {
			events.At(rec.first).Anchor = rec.id
		}
	}
	return events, nil
}

func (r *representer) emit(ev yamlh.Event) {
	if r.pendingAnchor != yamlh.NoAnchor {
		switch ev.Kind {
		case yamlh.ScalarEvent, yamlh.SequenceStartEvent, yamlh.MappingStartEvent:
			ev.Anchor = r.pendingAnchor
			r.pendingAnchor = yamlh.NoAnchor
		}
	}
	r.events.Push(ev)
}

func (r *representer) emitScalar(content string, tag TagId, style yamlh.ScalarStyle) {
	r.emit(yamlh.Event{
		Kind:  yamlh.ScalarEvent,
		Tag:   tag,
		Value: []byte(content),
		Style: style,
	})
}

func (r *representer) emitNull(root bool) {
	r.emitScalar("", r.downgrade(yamlh.TagNull, root), yamlh.PlainStyle)
}

// downgrade applies the tag style: None never shows a real tag, RootOnly
// shows it on the root node only.
func (r *representer) downgrade(tag TagId, root bool) TagId {
	switch r.tagStyle {
	case TagStyleAll:
		return tag
	case TagStyleRootOnly:
		if root {
			return tag
		}
	}
	return yamlh.TagQuestion
}

func (r *representer) tagFor(t reflect.Type, root bool) TagId {
	return r.downgrade(yamlTag(t, r.reg), root)
}

func (r *representer) value(v reflect.Value, root bool) error {
	if !v.IsValid() {
		r.emitNull(root)
		return nil
	}
	switch v.Kind() {
	case reflect.Ptr:
		return r.reference(v, root)
	case reflect.Interface:
		if v.IsNil() {
			r.emitNull(root)
			return nil
		}
		return r.value(v.Elem(), root)
	}
	t := v.Type()
	if v.Kind() == reflect.Struct {
		if vi := variantFor(t); vi != nil {
			if vi.implicit {
				return r.implicitVariant(v, vi, root)
			}
			return r.variantStruct(v, vi, root)
		}
	}
	switch v.Kind() {
	case reflect.String:
		r.emitString(v.String(), r.tagFor(t, root))
		return nil
	case reflect.Bool:
		s := "false"
		if v.Bool() {
			s = "true"
		}
		r.emitScalar(s, r.tagFor(t, root), yamlh.PlainStyle)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		r.emitScalar(strconv.FormatInt(v.Int(), 10), r.tagFor(t, root), yamlh.PlainStyle)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		r.emitScalar(strconv.FormatUint(v.Uint(), 10), r.tagFor(t, root), yamlh.PlainStyle)
		return nil
	case reflect.Float32:
		r.emitFloat(v.Float(), 32, r.tagFor(t, root))
		return nil
	case reflect.Float64:
		r.emitFloat(v.Float(), 64, r.tagFor(t, root))
		return nil
	case reflect.Slice:
		if v.IsNil() {
			// Null sequences keep their sentinel tag under every tag style;
			// it is semantic, not descriptive.
			r.emitScalar("", yamlh.TagNilSeq, yamlh.PlainStyle)
			return nil
		}
		if isPairSlice(t) {
			return r.orderedMapping(v, root)
		}
		return r.sequence(v, root)
	case reflect.Array:
		return r.sequence(v, root)
	case reflect.Map:
		if isSetMap(t) {
			return r.set(v, root)
		}
		return r.mapping(v, root)
	case reflect.Struct:
		return r.mappingStruct(v, root)
	}
	return &StreamError{Err: fmt.Errorf("cannot represent values of type %s", t)}
}

// emitString quotes anything a reader would mistake for a non-string value.
func (r *representer) emitString(s string, tag TagId) {
	style := yamlh.PlainStyle
	if strings.Contains(s, "\n") {
		style = yamlh.LiteralStyle
	} else if resolve.Guess(s) != resolve.Unknown {
		style = yamlh.DoubleQuotedStyle
	}
	r.emitScalar(s, tag, style)
}

func (r *representer) emitFloat(f float64, bits int, tag TagId) {
	s := strconv.FormatFloat(f, 'g', -1, bits)
	switch s {
	case "+Inf":
		s = ".inf"
	case "-Inf":
		s = "-.inf"
	case "NaN":
		s = ".nan"
	default:
		// Keep a float marker so a whole value does not read back as an
		// integer under implicit tagging.
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
	}
	r.emitScalar(s, tag, yamlh.PlainStyle)
}

// reference emits a pointer value according to the anchor style: None
// dereferences inline, Always anchors on first sight, Tidy records the first
// occurrence and assigns an anchor only when a second reference shows up.
func (r *representer) reference(v reflect.Value, root bool) error {
	if v.IsNil() {
		switch v.Type().Elem().Kind() {
		case reflect.String:
			r.emitScalar("", yamlh.TagNilString, yamlh.PlainStyle)
		case reflect.Slice:
			r.emitScalar("", yamlh.TagNilSeq, yamlh.PlainStyle)
		default:
			r.emitNull(root)
		}
		return nil
	}
	key := v.Interface()
	switch r.ctx.style {
	case AnchorStyleNone:
		return r.value(v.Elem(), root)
	case AnchorStyleAlways:
		if id, ok := r.ctx.refs[key]; ok {
			r.emit(yamlh.Event{Kind: yamlh.AliasEvent, Anchor: id})
			return nil
		}
		id := r.ctx.newAnchor()
		r.ctx.refs[key] = id
		r.pendingAnchor = id
		return r.value(v.Elem(), root)
	default: // AnchorStyleTidy
		if rec, ok := r.ctx.seen[key]; ok {
			if rec.id == yamlh.NoAnchor {
				rec.id = r.ctx.newAnchor()
			}
			r.emit(yamlh.Event{Kind: yamlh.AliasEvent, Anchor: rec.id})
			return nil
		}
		r.ctx.seen[key] = &tidyRecord{first: r.events.Len(), id: yamlh.NoAnchor}
		return r.value(v.Elem(), root)
	}
}

func (r *representer) sequence(v reflect.Value, root bool) error {
	r.emit(yamlh.Event{Kind: yamlh.SequenceStartEvent, Tag: r.downgrade(yamlh.TagSequence, root)})
	n := v.Len()
	for i := 0; i < n; i++ {
		if err := r.value(v.Index(i), false); err != nil {
			return err
		}
	}
	r.emit(yamlh.Event{Kind: yamlh.SequenceEndEvent})
	return nil
}

// sortedKeys orders map keys by their printed form so output is
// deterministic.
func sortedKeys(v reflect.Value) []reflect.Value {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprintf("%v", keys[i].Interface()) < fmt.Sprintf("%v", keys[j].Interface())
	})
	return keys
}

func (r *representer) set(v reflect.Value, root bool) error {
	r.emit(yamlh.Event{Kind: yamlh.SequenceStartEvent, Tag: r.downgrade(yamlh.TagSequence, root)})
	for _, k := range sortedKeys(v) {
		if err := r.value(k, false); err != nil {
			return err
		}
	}
	r.emit(yamlh.Event{Kind: yamlh.SequenceEndEvent})
	return nil
}

func (r *representer) mapping(v reflect.Value, root bool) error {
	r.emit(yamlh.Event{Kind: yamlh.MappingStartEvent, Tag: r.downgrade(yamlh.TagMapping, root)})
	for _, k := range sortedKeys(v) {
		if err := r.value(k, false); err != nil {
			return err
		}
		if err := r.value(v.MapIndex(k), false); err != nil {
			return err
		}
	}
	r.emit(yamlh.Event{Kind: yamlh.MappingEndEvent})
	return nil
}

func (r *representer) orderedMapping(v reflect.Value, root bool) error {
	r.emit(yamlh.Event{Kind: yamlh.SequenceStartEvent, Tag: r.downgrade(yamlh.TagSequence, root)})
	n := v.Len()
	for i := 0; i < n; i++ {
		pair := v.Index(i)
		r.emit(yamlh.Event{Kind: yamlh.MappingStartEvent, Tag: yamlh.TagQuestion})
		if err := r.value(pair.Field(0), false); err != nil {
			return err
		}
		if err := r.value(pair.Field(1), false); err != nil {
			return err
		}
		r.emit(yamlh.Event{Kind: yamlh.MappingEndEvent})
	}
	r.emit(yamlh.Event{Kind: yamlh.SequenceEndEvent})
	return nil
}

func (r *representer) mappingStruct(v reflect.Value, root bool) error {
	sinfo, err := getStructInfo(v.Type())
	if err != nil {
		return err
	}
	r.emit(yamlh.Event{Kind: yamlh.MappingStartEvent, Tag: r.tagFor(v.Type(), root)})
	for _, info := range sinfo.FieldsList {
		field := v.Field(info.Num)
		if info.OmitEmpty && isZero(field) {
			continue
		}
		r.emitString(info.Key, r.downgrade(yamlh.TagString, false))
		if err := r.value(field, false); err != nil {
			return err
		}
	}
	r.emit(yamlh.Event{Kind: yamlh.MappingEndEvent})
	return nil
}

// fmtDiscriminator yields the wire spelling of a discriminator value, the
// inverse of setFromString.
func fmtDiscriminator(v reflect.Value) (string, error) {
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	}
	return "", fmt.Errorf("unsupported discriminator type %s", v.Type())
}

// variantStruct emits a discriminated record as a sequence of single-pair
// mappings with the discriminator first, mirroring the construction
// contract.
func (r *representer) variantStruct(v reflect.Value, vi *variantInfo, root bool) error {
	sinfo, err := getStructInfo(v.Type())
	if err != nil {
		return err
	}
	dinfo := sinfo.FieldsMap[vi.disc]
	discVal, err := fmtDiscriminator(v.Field(dinfo.Num))
	if err != nil {
		return &StreamError{Err: err}
	}
	branch, ok := vi.branches[discVal]
	if !ok {
		return &StreamError{Err: fmt.Errorf("no branch of %s for %s == %s", v.Type(), vi.disc, discVal)}
	}

	r.emit(yamlh.Event{Kind: yamlh.SequenceStartEvent, Tag: r.tagFor(v.Type(), root)})
	pair := func(info *fieldInfo) error {
		r.emit(yamlh.Event{Kind: yamlh.MappingStartEvent, Tag: yamlh.TagQuestion})
		r.emitString(info.Key, r.downgrade(yamlh.TagString, false))
		if err := r.value(v.Field(info.Num), false); err != nil {
			return err
		}
		r.emit(yamlh.Event{Kind: yamlh.MappingEndEvent})
		return nil
	}
	if err := pair(dinfo); err != nil {
		return err
	}
	for i := range sinfo.FieldsList {
		info := &sinfo.FieldsList[i]
		if !branch.fields[info.Key] {
			continue
		}
		if info.OmitEmpty && isZero(v.Field(info.Num)) {
			continue
		}
		if err := pair(info); err != nil {
			return err
		}
	}
	r.emit(yamlh.Event{Kind: yamlh.SequenceEndEvent})
	return nil
}

// implicitVariant emits only the payload of the selected branch; the wrapper
// never appears on the wire.
func (r *representer) implicitVariant(v reflect.Value, vi *variantInfo, root bool) error {
	sinfo, err := getStructInfo(v.Type())
	if err != nil {
		return err
	}
	dinfo := sinfo.FieldsMap[vi.disc]
	discVal, err := fmtDiscriminator(v.Field(dinfo.Num))
	if err != nil {
		return &StreamError{Err: err}
	}
	branch, ok := vi.branches[discVal]
	if !ok {
		return &StreamError{Err: fmt.Errorf("no branch of %s for %s == %s", v.Type(), vi.disc, discVal)}
	}
	if branch.payload == "" {
		r.emitNull(root)
		return nil
	}
	pinfo := sinfo.FieldsMap[branch.payload]
	return r.value(v.Field(pinfo.Num), root)
}
