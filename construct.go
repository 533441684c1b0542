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
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/yamlkit/yamlkit/internal/resolve"
	"github.com/yamlkit/yamlkit/internal/yamlh"
)

// ----------------------------------------------------------------------------
// Construction engine: drives one document's events into a typed value.

type constructor struct {
	es  yamlh.EventStream
	ctx *constructionContext
	reg *TagRegistry
}

// Construct consumes one document (DocumentStart through its matching
// DocumentEnd) from es and populates out, which must be a non-nil pointer.
// It uses the default tag registry.
func Construct(es EventStream, out interface{}) error {
	return ConstructWithRegistry(defaultRegistry, es, out)
}

// ConstructWithRegistry is Construct with an explicit tag registry.
func ConstructWithRegistry(reg *TagRegistry, es EventStream, out interface{}) error {
	c := &constructor{es: es, ctx: newConstructionContext(), reg: reg}
	return c.document(out)
}

func (c *constructor) failf(format string, args ...interface{}) error {
	e := &ConstructionError{Msg: fmt.Sprintf(format, args...)}
	if line, col, _, ok := c.es.LastTokenContext(); ok {
		e.Line, e.Column = line, col
	}
	return e
}

func (c *constructor) next() (*yamlh.Event, error) {
	ev, err := c.es.Next()
	if err != nil {
		return nil, &StreamError{Err: err}
	}
	return ev, nil
}

func (c *constructor) peek() (*yamlh.Event, error) {
	ev, err := c.es.Peek()
	if err != nil {
		return nil, &StreamError{Err: err}
	}
	return ev, nil
}

func (c *constructor) expect(kind yamlh.EventKind) (*yamlh.Event, error) {
	ev, err := c.next()
	if err != nil {
		return nil, err
	}
	if ev.Kind != kind {
		return nil, c.failf("Expected %s, got %s", kind, ev.Kind)
	}
	return ev, nil
}

func (c *constructor) document(out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return c.failf("Output must be a non-nil pointer, got %T", out)
	}
	ev, err := c.peek()
	if err != nil {
		return err
	}
	if ev.Kind == yamlh.StreamStartEvent {
		if _, err = c.next(); err != nil {
			return err
		}
	}
	if _, err = c.expect(yamlh.DocumentStartEvent); err != nil {
		return err
	}
	if err = c.child(rv.Elem()); err != nil {
		return err
	}
	_, err = c.expect(yamlh.DocumentEndEvent)
	return err
}

// child is the per-node dispatch: it resolves aliases, applies the null
// sentinels, routes implicit variants, references and untyped targets, and
// for everything else validates the tag before handing over to the
// type-specific constructor.
func (c *constructor) child(out reflect.Value) error {
	ev, err := c.peek()
	if err != nil {
		return err
	}

	if ev.Kind == yamlh.AliasEvent {
		target, ok := c.ctx.refs[ev.Anchor]
		if !ok {
			return c.failf("Alias to unbound anchor")
		}
		if out.Kind() != reflect.Ptr && out.Kind() != reflect.Interface {
			return c.failf("Anchor on non-ref type (%s)", out.Type())
		}
		if out.Kind() == reflect.Interface && target.Type() == reflect.PtrTo(out.Type()) {
			// Untyped loads bind anchors to interface cells; aliases yield
			// the cell's value.
			out.Set(target.Elem())
			_, err = c.next()
			return err
		}
		if !target.Type().AssignableTo(out.Type()) {
			return c.failf("Wrong tag for %s: alias of %s", out.Type(), target.Type())
		}
		out.Set(target)
		_, err = c.next()
		return err
	}

	if ev.Kind == yamlh.ScalarEvent && ev.Tag == yamlh.TagNilString {
		switch {
		case out.Kind() == reflect.String:
			out.SetString("")
		case out.Kind() == reflect.Ptr && out.Type().Elem().Kind() == reflect.String:
			out.Set(reflect.Zero(out.Type()))
		case out.Kind() == reflect.Interface && out.NumMethod() == 0:
			out.Set(reflect.Zero(out.Type()))
		default:
			return c.failf("Wrong tag for %s: %s", out.Type(), c.reg.URI(ev.Tag))
		}
		_, err = c.next()
		return err
	}
	if ev.Kind == yamlh.ScalarEvent && ev.Tag == yamlh.TagNilSeq {
		switch {
		case out.Kind() == reflect.Slice:
			out.Set(reflect.Zero(out.Type()))
		case out.Kind() == reflect.Ptr && out.Type().Elem().Kind() == reflect.Slice:
			out.Set(reflect.Zero(out.Type()))
		case out.Kind() == reflect.Interface && out.NumMethod() == 0:
			out.Set(reflect.Zero(reflect.TypeOf([]interface{}(nil))))
		default:
			return c.failf("Wrong tag for %s: %s", out.Type(), c.reg.URI(ev.Tag))
		}
		_, err = c.next()
		return err
	}

	if out.Kind() == reflect.Struct {
		if vi := variantFor(out.Type()); vi != nil && vi.implicit {
			return c.implicitVariant(out, vi)
		}
	}
	if out.Kind() == reflect.Ptr {
		return c.reference(out)
	}
	if out.Kind() == reflect.Interface {
		if out.NumMethod() != 0 {
			return c.failf("Cannot construct into non-empty interface %s", out.Type())
		}
		return c.generic(out)
	}

	if ev.Anchor != yamlh.NoAnchor {
		return c.failf("Anchor on non-ref type (%s)", out.Type())
	}
	if err := c.checkTag(ev, out.Type()); err != nil {
		return err
	}
	return c.object(out)
}

// checkTag validates an event's tag against the target type: the implicit
// and non-specific tags are accepted everywhere (mappings and sequences take
// only the implicit one), the type's own tag is accepted, and the canonical
// core tag is accepted for the numeric width families and for strings.
func (c *constructor) checkTag(ev *yamlh.Event, t reflect.Type) error {
	tag := ev.Tag
	switch ev.Kind {
	case yamlh.ScalarEvent:
		if tag == yamlh.TagQuestion || tag == yamlh.TagExclamation {
			return nil
		}
	case yamlh.MappingStartEvent, yamlh.SequenceStartEvent:
		if tag == yamlh.TagQuestion {
			return nil
		}
	}
	if tag == yamlTag(t, c.reg) {
		return nil
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if tag == yamlh.TagInteger {
			return nil
		}
	case reflect.Float32, reflect.Float64:
		if tag == yamlh.TagFloat {
			return nil
		}
	case reflect.String:
		if tag == yamlh.TagString {
			return nil
		}
	}
	return c.failf("Wrong tag for %s: %s", t, c.reg.URI(tag))
}

// object dispatches to the constructor for the target's shape. The event's
// tag has already been validated.
func (c *constructor) object(out reflect.Value) error {
	t := out.Type()
	switch t.Kind() {
	case reflect.String:
		return c.scalarString(out)
	case reflect.Bool:
		return c.scalarBool(out)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return c.scalarInt(out)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return c.scalarUint(out)
	case reflect.Float32, reflect.Float64:
		return c.scalarFloat(out)
	case reflect.Slice:
		if isPairSlice(t) {
			return c.orderedMapping(out)
		}
		return c.sequence(out)
	case reflect.Array:
		return c.array(out)
	case reflect.Map:
		if isSetMap(t) {
			return c.set(out)
		}
		return c.mapping(out)
	case reflect.Struct:
		if vi := variantFor(t); vi != nil {
			return c.variantStruct(out, vi)
		}
		return c.mappingStruct(out)
	}
	return c.failf("Cannot construct values of type %s", t)
}

func (c *constructor) scalarEvent(t reflect.Type) (*yamlh.Event, error) {
	ev, err := c.next()
	if err != nil {
		return nil, err
	}
	if ev.Kind != yamlh.ScalarEvent {
		return nil, c.failf("Expected scalar for %s, got %s", t, ev.Kind)
	}
	return ev, nil
}

func (c *constructor) scalarString(out reflect.Value) error {
	ev, err := c.scalarEvent(out.Type())
	if err != nil {
		return err
	}
	out.SetString(string(ev.Value))
	return nil
}

func (c *constructor) scalarBool(out reflect.Value) error {
	ev, err := c.scalarEvent(out.Type())
	if err != nil {
		return err
	}
	switch resolve.Guess(string(ev.Value)) {
	case resolve.BoolTrue:
		out.SetBool(true)
	case resolve.BoolFalse:
		out.SetBool(false)
	default:
		return c.failf("Cannot parse %q as %s", ev.Value, out.Type())
	}
	return nil
}

func (c *constructor) scalarInt(out reflect.Value) error {
	ev, err := c.scalarEvent(out.Type())
	if err != nil {
		return err
	}
	v, err := parseSignedInt(string(ev.Value), out.Type().Bits())
	if err != nil {
		return c.failf("Cannot parse %q as %s: %s", ev.Value, out.Type(), err)
	}
	out.SetInt(v)
	return nil
}

func (c *constructor) scalarUint(out reflect.Value) error {
	ev, err := c.scalarEvent(out.Type())
	if err != nil {
		return err
	}
	v, err := parseUnsignedInt(string(ev.Value), out.Type().Bits())
	if err != nil {
		return c.failf("Cannot parse %q as %s: %s", ev.Value, out.Type(), err)
	}
	out.SetUint(v)
	return nil
}

func (c *constructor) scalarFloat(out reflect.Value) error {
	ev, err := c.scalarEvent(out.Type())
	if err != nil {
		return err
	}
	content := string(ev.Value)
	switch resolve.Guess(content) {
	case resolve.Float, resolve.Integer:
		f, perr := strconv.ParseFloat(strings.ReplaceAll(content, "_", ""), out.Type().Bits())
		if perr != nil {
			return c.failf("Cannot parse %q as %s", content, out.Type())
		}
		out.SetFloat(f)
	case resolve.FloatInf:
		if strings.HasPrefix(content, "-") {
			out.SetFloat(math.Inf(-1))
		} else {
			out.SetFloat(math.Inf(+1))
		}
	case resolve.FloatNaN:
		out.SetFloat(math.NaN())
	default:
		return c.failf("Cannot parse %q as %s", content, out.Type())
	}
	return nil
}

func (c *constructor) sequence(out reflect.Value) error {
	if _, err := c.expect(yamlh.SequenceStartEvent); err != nil {
		return err
	}
	et := out.Type().Elem()
	out.Set(reflect.MakeSlice(out.Type(), 0, 0))
	for {
		ev, err := c.peek()
		if err != nil {
			return err
		}
		if ev.Kind == yamlh.SequenceEndEvent {
			_, err = c.next()
			return err
		}
		elem := reflect.New(et).Elem()
		if err = c.child(elem); err != nil {
			return err
		}
		out.Set(reflect.Append(out, elem))
	}
}

func (c *constructor) array(out reflect.Value) error {
	if _, err := c.expect(yamlh.SequenceStartEvent); err != nil {
		return err
	}
	n := out.Len()
	for i := 0; i < n; i++ {
		ev, err := c.peek()
		if err != nil {
			return err
		}
		if ev.Kind == yamlh.SequenceEndEvent {
			return c.failf("Expected %d elements for %s, got %d", n, out.Type(), i)
		}
		if err = c.child(out.Index(i)); err != nil {
			return err
		}
	}
	ev, err := c.next()
	if err != nil {
		return err
	}
	if ev.Kind != yamlh.SequenceEndEvent {
		return c.failf("Expected %d elements for %s, got more", n, out.Type())
	}
	return nil
}

func (c *constructor) set(out reflect.Value) error {
	if _, err := c.expect(yamlh.SequenceStartEvent); err != nil {
		return err
	}
	t := out.Type()
	out.Set(reflect.MakeMap(t))
	present := reflect.Zero(t.Elem())
	for {
		ev, err := c.peek()
		if err != nil {
			return err
		}
		if ev.Kind == yamlh.SequenceEndEvent {
			_, err = c.next()
			return err
		}
		key := reflect.New(t.Key()).Elem()
		if err = c.child(key); err != nil {
			return err
		}
		out.SetMapIndex(key, present)
	}
}

func (c *constructor) mapping(out reflect.Value) error {
	if _, err := c.expect(yamlh.MappingStartEvent); err != nil {
		return err
	}
	t := out.Type()
	if out.IsNil() {
		out.Set(reflect.MakeMap(t))
	}
	for {
		ev, err := c.peek()
		if err != nil {
			return err
		}
		if ev.Kind == yamlh.MappingEndEvent {
			_, err = c.next()
			return err
		}
		key := reflect.New(t.Key()).Elem()
		if err = c.child(key); err != nil {
			return err
		}
		kkind := key.Kind()
		if kkind == reflect.Interface {
			kkind = key.Elem().Kind()
		}
		if kkind == reflect.Map || kkind == reflect.Slice || kkind == reflect.Func {
			return c.failf("Invalid table key type %s", key.Type())
		}
		if out.MapIndex(key).IsValid() {
			return c.failf("Duplicate table key: %v", key.Interface())
		}
		value := reflect.New(t.Elem()).Elem()
		if err = c.child(value); err != nil {
			return err
		}
		out.SetMapIndex(key, value)
	}
}

// orderedMapping constructs a pair slice from its wire form: a sequence of
// single-pair mappings.
func (c *constructor) orderedMapping(out reflect.Value) error {
	if _, err := c.expect(yamlh.SequenceStartEvent); err != nil {
		return err
	}
	et := out.Type().Elem()
	out.Set(reflect.MakeSlice(out.Type(), 0, 0))
	for {
		ev, err := c.peek()
		if err != nil {
			return err
		}
		if ev.Kind == yamlh.SequenceEndEvent {
			_, err = c.next()
			return err
		}
		if _, err = c.expect(yamlh.MappingStartEvent); err != nil {
			return err
		}
		pair := reflect.New(et).Elem()
		if err = c.child(pair.Field(0)); err != nil {
			return err
		}
		if err = c.child(pair.Field(1)); err != nil {
			return err
		}
		if ev, err = c.next(); err != nil {
			return err
		}
		if ev.Kind != yamlh.MappingEndEvent {
			return c.failf("Expected single-pair mapping in ordered map")
		}
		out.Set(reflect.Append(out, pair))
	}
}

func (c *constructor) mappingStruct(out reflect.Value) error {
	sinfo, err := getStructInfo(out.Type())
	if err != nil {
		return err
	}
	if _, err = c.expect(yamlh.MappingStartEvent); err != nil {
		return err
	}
	matched := make([]bool, len(sinfo.FieldsList))
	for {
		ev, err := c.peek()
		if err != nil {
			return err
		}
		if ev.Kind == yamlh.MappingEndEvent {
			if _, err = c.next(); err != nil {
				return err
			}
			break
		}
		if ev.Kind != yamlh.ScalarEvent {
			return c.failf("Expected field name for %s, got %s", out.Type(), ev.Kind)
		}
		name := string(ev.Value)
		if _, err = c.next(); err != nil {
			return err
		}
		info, ok := sinfo.FieldsMap[name]
		if !ok {
			return c.failf("Unknown field: %s", name)
		}
		if matched[info.Id] {
			return c.failf("Duplicate field: %s", name)
		}
		matched[info.Id] = true
		if err = c.child(out.Field(info.Num)); err != nil {
			return err
		}
	}
	for _, info := range sinfo.FieldsList {
		if !matched[info.Id] && !info.OmitEmpty {
			return c.failf("Missing field: %s", info.Key)
		}
	}
	return nil
}

// variantStruct constructs a discriminated record from its wire form: a
// sequence of single-pair mappings, discriminator first, with each further
// field validated against the branch the discriminator selects.
func (c *constructor) variantStruct(out reflect.Value, vi *variantInfo) error {
	sinfo, err := getStructInfo(out.Type())
	if err != nil {
		return err
	}
	if _, err = c.expect(yamlh.SequenceStartEvent); err != nil {
		return err
	}
	// Fields outside the selected branch must not keep earlier values.
	out.Set(reflect.Zero(out.Type()))

	readPair := func() (string, bool, error) {
		ev, err := c.peek()
		if err != nil {
			return "", false, err
		}
		if ev.Kind == yamlh.SequenceEndEvent {
			_, err = c.next()
			return "", false, err
		}
		if _, err = c.expect(yamlh.MappingStartEvent); err != nil {
			return "", false, err
		}
		kev, err := c.next()
		if err != nil {
			return "", false, err
		}
		if kev.Kind != yamlh.ScalarEvent {
			return "", false, c.failf("Expected field name for %s, got %s", out.Type(), kev.Kind)
		}
		return string(kev.Value), true, nil
	}
	endPair := func() error {
		ev, err := c.next()
		if err != nil {
			return err
		}
		if ev.Kind != yamlh.MappingEndEvent {
			return c.failf("Expected single-pair mapping in variant record")
		}
		return nil
	}

	name, ok, err := readPair()
	if err != nil {
		return err
	}
	if !ok || name != vi.disc {
		return c.failf("Discriminator field %s must come first", vi.disc)
	}
	dinfo := sinfo.FieldsMap[vi.disc]
	dev, err := c.peek()
	if err != nil {
		return err
	}
	if dev.Kind != yamlh.ScalarEvent {
		return c.failf("Expected scalar discriminator value, got %s", dev.Kind)
	}
	discVal := string(dev.Value)
	branch, ok := vi.branches[discVal]
	if !ok {
		return c.failf("Unknown value for discriminator %s: %s", vi.disc, discVal)
	}
	if err = c.child(out.Field(dinfo.Num)); err != nil {
		return err
	}
	if err = endPair(); err != nil {
		return err
	}

	matched := make([]bool, len(sinfo.FieldsList))
	matched[dinfo.Id] = true
	for {
		name, ok, err := readPair()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		info, found := sinfo.FieldsMap[name]
		if !found {
			return c.failf("Unknown field: %s", name)
		}
		if !branch.fields[name] {
			return c.failf("Field %s not allowed for %s == %s", name, vi.disc, discVal)
		}
		if matched[info.Id] {
			return c.failf("Duplicate field: %s", name)
		}
		matched[info.Id] = true
		if err = c.child(out.Field(info.Num)); err != nil {
			return err
		}
		if err = endPair(); err != nil {
			return err
		}
	}
	for _, info := range sinfo.FieldsList {
		if !matched[info.Id] && branch.fields[info.Key] && !info.OmitEmpty {
			return c.failf("Missing field: %s", info.Key)
		}
	}
	return nil
}

// implicitVariant picks the branch of an implicit variant record whose
// payload type matches the tags the next event could carry, sets the
// discriminator, and constructs the payload.
func (c *constructor) implicitVariant(out reflect.Value, vi *variantInfo) error {
	ev, err := c.peek()
	if err != nil {
		return err
	}
	if ev.Anchor != yamlh.NoAnchor {
		return c.failf("Anchor on non-ref type (%s)", out.Type())
	}

	possible := make(map[TagId]bool)
	nullMatch := false
	switch ev.Kind {
	case yamlh.ScalarEvent:
		switch ev.Tag {
		case yamlh.TagQuestion:
			content := string(ev.Value)
			switch resolve.Guess(content) {
			case resolve.Integer:
				for _, id := range signedIntTags {
					possible[id] = true
				}
				if !strings.HasPrefix(content, "-") {
					for _, id := range unsignedIntTags {
						possible[id] = true
					}
				}
			case resolve.Float, resolve.FloatInf, resolve.FloatNaN:
				for _, id := range floatTags {
					possible[id] = true
				}
			case resolve.BoolTrue, resolve.BoolFalse:
				possible[yamlh.TagBoolean] = true
			case resolve.Null:
				nullMatch = true
			default:
				possible[yamlh.TagString] = true
			}
		case yamlh.TagExclamation:
			possible[yamlh.TagString] = true
		case yamlh.TagNull:
			nullMatch = true
		default:
			possible[ev.Tag] = true
		}
	case yamlh.MappingStartEvent, yamlh.SequenceStartEvent:
		if ev.Tag == yamlh.TagQuestion || ev.Tag == yamlh.TagExclamation {
			return c.failf("Complex value of implicit variant object %s must have a tag", out.Type())
		}
		possible[ev.Tag] = true
	default:
		return c.failf("Unexpected %s for implicit variant object %s", ev.Kind, out.Type())
	}

	sinfo, err := getStructInfo(out.Type())
	if err != nil {
		return err
	}
	var chosenVal string
	var chosen *variantBranch
	matches := 0
	for discVal, br := range vi.branches {
		if br.payload == "" {
			if nullMatch {
				chosenVal, chosen = discVal, br
				matches++
			}
			continue
		}
		info := sinfo.FieldsMap[br.payload]
		ptag := yamlTag(out.Type().Field(info.Num).Type, c.reg)
		if possible[ptag] {
			chosenVal, chosen = discVal, br
			matches++
		}
	}
	if matches == 0 {
		return c.failf("This value type does not map to any field in %s: %s", out.Type(), c.reg.URI(ev.Tag))
	}
	if matches > 1 {
		return c.failf("Value type maps to more than one field in %s", out.Type())
	}

	dinfo := sinfo.FieldsMap[vi.disc]
	if err = setFromString(out.Field(dinfo.Num), chosenVal); err != nil {
		return c.failf("Cannot set discriminator %s: %s", vi.disc, err)
	}
	if chosen.payload == "" {
		_, err = c.next()
		return err
	}
	pinfo := sinfo.FieldsMap[chosen.payload]
	return c.child(out.Field(pinfo.Num))
}

// setFromString assigns a discriminator value from its wire spelling.
func setFromString(v reflect.Value, s string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	default:
		return fmt.Errorf("unsupported discriminator type %s", v.Type())
	}
	return nil
}

// reference constructs a pointer target: null becomes nil, aliases resolve
// through the context (handled by child), and anything else allocates a
// fresh instance, binds the event's anchor to it before recursing so that
// cycles resolve, and strips the anchor from the peeked event to keep the
// inner constructor from rejecting it.
func (c *constructor) reference(out reflect.Value) error {
	ev, err := c.peek()
	if err != nil {
		return err
	}
	if ev.Kind == yamlh.ScalarEvent && isNullScalar(ev) {
		out.Set(reflect.Zero(out.Type()))
		_, err = c.next()
		return err
	}
	target := reflect.New(out.Type().Elem())
	if ev.Anchor != yamlh.NoAnchor {
		if _, bound := c.ctx.refs[ev.Anchor]; bound {
			return c.failf("Anchor is already bound")
		}
		c.ctx.refs[ev.Anchor] = target
		ev.Anchor = yamlh.NoAnchor
	}
	out.Set(target)
	return c.child(target.Elem())
}

func isNullScalar(ev *yamlh.Event) bool {
	if ev.Tag == yamlh.TagNull {
		return true
	}
	return ev.Tag == yamlh.TagQuestion && ev.Style == yamlh.PlainStyle &&
		resolve.Guess(string(ev.Value)) == resolve.Null
}

// generic constructs an untyped (interface{}) target, mirroring what the
// scalar type guesser reports.
func (c *constructor) generic(out reflect.Value) error {
	ev, err := c.peek()
	if err != nil {
		return err
	}
	if ev.Anchor != yamlh.NoAnchor {
		// Bind the anchor to a fresh cell so later aliases resolve by
		// identity even for untyped loads.
		target := reflect.New(out.Type())
		c.ctx.refs[ev.Anchor] = target
		ev.Anchor = yamlh.NoAnchor
		if err = c.generic(target.Elem()); err != nil {
			return err
		}
		out.Set(target.Elem())
		return nil
	}
	switch ev.Kind {
	case yamlh.ScalarEvent:
		v, err := c.genericScalar(ev)
		if err != nil {
			return err
		}
		if v == nil {
			out.Set(reflect.Zero(out.Type()))
		} else {
			out.Set(reflect.ValueOf(v))
		}
		_, err = c.next()
		return err
	case yamlh.SequenceStartEvent:
		if _, err = c.next(); err != nil {
			return err
		}
		seq := []interface{}{}
		for {
			ev, err = c.peek()
			if err != nil {
				return err
			}
			if ev.Kind == yamlh.SequenceEndEvent {
				if _, err = c.next(); err != nil {
					return err
				}
				out.Set(reflect.ValueOf(seq))
				return nil
			}
			var elem interface{}
			if err = c.child(reflect.ValueOf(&elem).Elem()); err != nil {
				return err
			}
			seq = append(seq, elem)
		}
	case yamlh.MappingStartEvent:
		if _, err = c.next(); err != nil {
			return err
		}
		type kv struct{ k, v interface{} }
		var pairs []kv
		stringKeys := true
		for {
			ev, err = c.peek()
			if err != nil {
				return err
			}
			if ev.Kind == yamlh.MappingEndEvent {
				if _, err = c.next(); err != nil {
					return err
				}
				break
			}
			var key, value interface{}
			if err = c.child(reflect.ValueOf(&key).Elem()); err != nil {
				return err
			}
			if err = c.child(reflect.ValueOf(&value).Elem()); err != nil {
				return err
			}
			if _, ok := key.(string); !ok {
				stringKeys = false
			}
			pairs = append(pairs, kv{key, value})
		}
		if stringKeys {
			m := make(map[string]interface{}, len(pairs))
			for _, p := range pairs {
				k := p.k.(string)
				if _, dup := m[k]; dup {
					return c.failf("Duplicate table key: %v", k)
				}
				m[k] = p.v
			}
			out.Set(reflect.ValueOf(m))
			return nil
		}
		m := make(map[interface{}]interface{}, len(pairs))
		for _, p := range pairs {
			if _, dup := m[p.k]; dup {
				return c.failf("Duplicate table key: %v", p.k)
			}
			m[p.k] = p.v
		}
		out.Set(reflect.ValueOf(m))
		return nil
	}
	return c.failf("Unexpected %s", ev.Kind)
}

func (c *constructor) genericScalar(ev *yamlh.Event) (interface{}, error) {
	content := string(ev.Value)
	switch ev.Tag {
	case yamlh.TagExclamation, yamlh.TagString:
		return content, nil
	case yamlh.TagNull, yamlh.TagNilString, yamlh.TagNilSeq:
		return nil, nil
	case yamlh.TagInt8, yamlh.TagInt16, yamlh.TagInt32, yamlh.TagInt64,
		yamlh.TagUint8, yamlh.TagUint16, yamlh.TagUint32, yamlh.TagUint64:
		return parseGenericInt(content, c)
	case yamlh.TagFloat32, yamlh.TagFloat64:
		f, err := strconv.ParseFloat(strings.ReplaceAll(content, "_", ""), 64)
		if err != nil {
			return nil, c.failf("Cannot parse %q as float", content)
		}
		return f, nil
	case yamlh.TagBoolean:
		switch resolve.Guess(content) {
		case resolve.BoolTrue:
			return true, nil
		case resolve.BoolFalse:
			return false, nil
		}
		return nil, c.failf("Cannot parse %q as bool", content)
	case yamlh.TagInteger:
		return parseGenericInt(content, c)
	case yamlh.TagFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(content, "_", ""), 64)
		if err != nil {
			return nil, c.failf("Cannot parse %q as float", content)
		}
		return f, nil
	case yamlh.TagQuestion:
		// Fall through to guessing below.
	default:
		return content, nil
	}
	if ev.Style != yamlh.PlainStyle {
		return content, nil
	}
	switch resolve.Guess(content) {
	case resolve.Null:
		return nil, nil
	case resolve.BoolTrue:
		return true, nil
	case resolve.BoolFalse:
		return false, nil
	case resolve.Integer:
		return parseGenericInt(content, c)
	case resolve.Float:
		f, err := strconv.ParseFloat(strings.ReplaceAll(content, "_", ""), 64)
		if err != nil {
			return content, nil
		}
		return f, nil
	case resolve.FloatInf:
		if strings.HasPrefix(content, "-") {
			return math.Inf(-1), nil
		}
		return math.Inf(+1), nil
	case resolve.FloatNaN:
		return math.NaN(), nil
	}
	return content, nil
}

func parseGenericInt(content string, c *constructor) (interface{}, error) {
	if v, err := parseSignedInt(content, 64); err == nil {
		if v == int64(int(v)) {
			return int(v), nil
		}
		return v, nil
	}
	if u, err := parseUnsignedInt(content, 64); err == nil {
		return u, nil
	}
	return nil, c.failf("Cannot parse %q as integer", content)
}

// ----------------------------------------------------------------------------
// Numeric literal parsing. Hex and octal prefixes are handled explicitly so
// overflow surfaces against the exact target width; underscores are skipped.

func parseMagnitude(s string) (uint64, error) {
	var base uint64 = 10
	digits := s
	if len(s) >= 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base, digits = 16, s[2:]
		case 'o', 'O':
			base, digits = 8, s[2:]
		}
	}
	if digits == "" {
		return 0, fmt.Errorf("empty number")
	}
	var result uint64 = 0
	seen := false
	for i := 0; i < len(digits); i++ {
		ch := digits[i]
		if ch == '_' {
			continue
		}
		var d uint64
		switch {
		case ch >= '0' && ch <= '9':
			d = uint64(ch - '0')
		case base == 16 && ch >= 'a' && ch <= 'f':
			d = uint64(ch-'a') + 10
		case base == 16 && ch >= 'A' && ch <= 'F':
			d = uint64(ch-'A') + 10
		default:
			return 0, fmt.Errorf("invalid digit %q", ch)
		}
		if d >= base {
			return 0, fmt.Errorf("invalid digit %q", ch)
		}
		if result > (math.MaxUint64-d)/base {
			return 0, fmt.Errorf("value out of range")
		}
		result = result*base + d
		seen = true
	}
	if !seen {
		return 0, fmt.Errorf("empty number")
	}
	return result, nil
}

func parseSignedInt(s string, bits int) (int64, error) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	mag, err := parseMagnitude(s)
	if err != nil {
		return 0, err
	}
	limit := uint64(1) << (bits - 1)
	if neg {
		if mag > limit {
			return 0, fmt.Errorf("value out of range")
		}
		return -int64(mag - 1) - 1, nil
	}
	if mag > limit-1 {
		return 0, fmt.Errorf("value out of range")
	}
	return int64(mag), nil
}

func parseUnsignedInt(s string, bits int) (uint64, error) {
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative value for unsigned type")
	}
	mag, err := parseMagnitude(s)
	if err != nil {
		return 0, err
	}
	if bits < 64 && mag > (uint64(1)<<bits)-1 {
		return 0, fmt.Errorf("value out of range")
	}
	return mag, nil
}
