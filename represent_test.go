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

package yamlkit_test

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
	yaml "github.com/yamlkit/yamlkit"
	"github.com/yamlkit/yamlkit/internal/yamlh"
)

func drain(t *testing.T, events *yaml.Events) []yaml.Event {
	t.Helper()
	events.Rewind()
	var out []yaml.Event
	for !events.Finished() {
		ev, err := events.Next()
		require.NoError(t, err)
		out = append(out, *ev)
	}
	events.Rewind()
	return out
}

func TestRepresentRootOnlyTagging(t *testing.T) {
	v := hero{Level: 42, Experience: 1800, Drops: []string{"Sword"}}
	events, err := yaml.Represent(v, yaml.TagStyleRootOnly, yaml.AnchorStyleNone)
	require.NoError(t, err)
	out := drain(t, events)

	require.Equal(t, yamlh.DocumentStartEvent, out[0].Kind)
	require.Equal(t, yamlh.MappingStartEvent, out[1].Kind)
	rt := reflect.TypeOf(hero{})
	heroTag, ok := yaml.DefaultRegistry().Lookup("!go:" + rt.PkgPath() + "." + rt.Name())
	require.True(t, ok)
	require.Equal(t, heroTag, out[1].Tag)
	for _, ev := range out[2 : len(out)-2] {
		require.Equal(t, yaml.TagQuestion, ev.Tag, "child events carry no tag under root-only tagging")
	}
	require.Equal(t, yamlh.DocumentEndEvent, out[len(out)-1].Kind)
}

func TestRepresentTagStyleNone(t *testing.T) {
	events, err := yaml.Represent(hero{Drops: []string{}}, yaml.TagStyleNone, yaml.AnchorStyleNone)
	require.NoError(t, err)
	for _, ev := range drain(t, events) {
		require.Equal(t, yaml.TagQuestion, ev.Tag)
	}
}

func TestRepresentTagStyleAll(t *testing.T) {
	events, err := yaml.Represent(map[string]int32{"a": 1}, yaml.TagStyleAll, yaml.AnchorStyleNone)
	require.NoError(t, err)
	out := drain(t, events)
	require.Equal(t, yaml.TagMapping, out[1].Tag)
	int32Tag, ok := yaml.DefaultRegistry().Lookup("!go:int32")
	require.True(t, ok)
	require.Equal(t, int32Tag, out[3].Tag)
}

func TestRepresentAnchorStyles(t *testing.T) {
	type item struct {
		N int `yaml:"n"`
	}
	shared := &item{N: 1}
	single := &item{N: 2}
	v := []*item{shared, shared, single}

	countAnchors := func(out []yaml.Event) (anchors, aliases int) {
		for _, ev := range out {
			if ev.Kind == yamlh.AliasEvent {
				aliases++
			} else if ev.Anchor != yamlh.NoAnchor {
				anchors++
			}
		}
		return anchors, aliases
	}

	events, err := yaml.Represent(v, yaml.TagStyleNone, yaml.AnchorStyleNone)
	require.NoError(t, err)
	anchors, aliases := countAnchors(drain(t, events))
	require.Equal(t, 0, anchors)
	require.Equal(t, 0, aliases)

	events, err = yaml.Represent(v, yaml.TagStyleNone, yaml.AnchorStyleAlways)
	require.NoError(t, err)
	anchors, aliases = countAnchors(drain(t, events))
	require.Equal(t, 2, anchors, "every reference is anchored on first sight")
	require.Equal(t, 1, aliases)

	events, err = yaml.Represent(v, yaml.TagStyleNone, yaml.AnchorStyleTidy)
	require.NoError(t, err)
	anchors, aliases = countAnchors(drain(t, events))
	require.Equal(t, 1, anchors, "only the doubly referenced object keeps an anchor")
	require.Equal(t, 1, aliases)
}

func TestRepresentNilSentinels(t *testing.T) {
	type holder struct {
		S *string  `yaml:"s"`
		Q []string `yaml:"q"`
	}
	events, err := yaml.Represent(holder{}, yaml.TagStyleNone, yaml.AnchorStyleNone)
	require.NoError(t, err)
	out := drain(t, events)
	var tags []yaml.TagId
	for _, ev := range out {
		if ev.Kind == yamlh.ScalarEvent && len(ev.Value) == 0 {
			tags = append(tags, ev.Tag)
		}
	}
	require.Contains(t, tags, yaml.TagNilString)
	require.Contains(t, tags, yaml.TagNilSeq)
}

func TestRepresentVariant(t *testing.T) {
	registerShape()
	events, err := yaml.Represent(shape{Kind: "circle", Radius: 2.5}, yaml.TagStyleNone, yaml.AnchorStyleNone)
	require.NoError(t, err)
	out := drain(t, events)
	require.Equal(t, yamlh.SequenceStartEvent, out[1].Kind)
	require.Equal(t, yamlh.MappingStartEvent, out[2].Kind)
	require.Equal(t, "kind", string(out[3].Value))
	require.Equal(t, "circle", string(out[4].Value))
	require.Equal(t, yamlh.MappingEndEvent, out[5].Kind)
	require.Equal(t, "radius", string(out[7].Value))
}

func TestRepresentImplicitVariant(t *testing.T) {
	registerScalarValue()
	events, err := yaml.Represent(scalarValue{Kind: "num", Num: 7}, yaml.TagStyleNone, yaml.AnchorStyleNone)
	require.NoError(t, err)
	out := drain(t, events)
	require.Len(t, out, 3, "wrapper must not appear on the wire")
	require.Equal(t, yamlh.ScalarEvent, out[1].Kind)
	require.Equal(t, "7", string(out[1].Value))
}

var roundTripValues = []interface{}{
	"hello",
	"10",
	int(-3),
	int64(1 << 40),
	uint16(65535),
	3.25,
	true,
	[]string{"a", "b"},
	[]int{1, 2, 3},
	map[string]int{"a": 1, "b": 2},
	map[string][]string{"k": {"x"}},
	hero{Level: 9, Experience: 100, Drops: []string{"Shield"}},
	[]interface{}{"a", 1, true, nil},
	map[string]interface{}{"s": "v", "n": 2},
	[]struct {
		Key   string
		Value int
	}{{"z", 1}, {"a", 2}},
	map[string]struct{}{"one": {}},
	[2]int{7, 8},
}

// Load/dump round trip at the event level: constructing what Represent
// emitted yields the original value.
func TestRoundTrip(t *testing.T) {
	for _, v := range roundTripValues {
		for _, ts := range []yaml.TagStyle{yaml.TagStyleNone, yaml.TagStyleRootOnly, yaml.TagStyleAll} {
			events, err := yaml.Represent(v, ts, yaml.AnchorStyleTidy)
			require.NoError(t, err)
			out := newValueOf(v)
			err = yaml.Construct(events, out)
			require.NoError(t, err, "value %s tag style %d", spew.Sdump(v), ts)
			got := deref(out)
			require.Equal(t, v, got, "round trip mismatch for %s", spew.Sdump(v))
		}
	}
}

func TestRoundTripOmitEmpty(t *testing.T) {
	type opts struct {
		Name  string   `yaml:"name"`
		Extra string   `yaml:"extra,omitempty"`
		Tags  []string `yaml:"tags,omitempty"`
	}
	for _, v := range []opts{
		{Name: "bare"},
		{Name: "full", Extra: "x", Tags: []string{"t"}},
	} {
		events, err := yaml.Represent(v, yaml.TagStyleNone, yaml.AnchorStyleNone)
		require.NoError(t, err)
		var got opts
		err = yaml.Construct(events, &got)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestRoundTripSharedReference(t *testing.T) {
	type item struct {
		N int `yaml:"n"`
	}
	shared := &item{N: 5}
	v := []*item{shared, shared}
	for _, as := range []yaml.AnchorStyle{yaml.AnchorStyleTidy, yaml.AnchorStyleAlways} {
		events, err := yaml.Represent(v, yaml.TagStyleNone, as)
		require.NoError(t, err)
		var got []*item
		err = yaml.Construct(events, &got)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.True(t, got[0] == got[1], "identity must survive the round trip")
		require.Equal(t, 5, got[0].N)
	}
}

func TestRoundTripCycle(t *testing.T) {
	n := &link{Name: "loop"}
	n.Next = n
	events, err := yaml.Represent(n, yaml.TagStyleNone, yaml.AnchorStyleAlways)
	require.NoError(t, err)
	var got *link
	err = yaml.Construct(events, &got)
	require.NoError(t, err)
	require.True(t, got.Next == got)
	require.Equal(t, "loop", got.Name)
}

func newValueOf(v interface{}) interface{} {
	return reflect.New(reflect.TypeOf(v)).Interface()
}

func deref(p interface{}) interface{} {
	return reflect.ValueOf(p).Elem().Interface()
}
