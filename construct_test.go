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
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	yaml "github.com/yamlkit/yamlkit"
)

type hero struct {
	Level      int32    `yaml:"level"`
	Experience int64    `yaml:"experience"`
	Drops      []string `yaml:"drops"`
}

type link struct {
	Name string `yaml:"name"`
	Next *link  `yaml:"next"`
}

var loadTests = []struct {
	data  string
	value interface{}
}{
	{
		data: "v: hi", value: map[string]string{"v": "hi"},
	}, {
		data: "v: hi", value: map[string]interface{}{"v": "hi"},
	}, {
		data: "v: true", value: map[string]bool{"v": true},
	}, {
		data: "v: true", value: map[string]interface{}{"v": true},
	}, {
		data: "v: 10", value: map[string]interface{}{"v": 10},
	}, {
		data: "v: 0xA", value: map[string]interface{}{"v": 10},
	}, {
		data: "v: 0o17", value: map[string]int{"v": 15},
	}, {
		data: "v: 4294967296", value: map[string]int64{"v": 4294967296},
	}, {
		data: "v: 0.1", value: map[string]interface{}{"v": 0.1},
	}, {
		data: "v: .1", value: map[string]interface{}{"v": 0.1},
	}, {
		data: "v: .Inf", value: map[string]interface{}{"v": math.Inf(+1)},
	}, {
		data: "v: -.Inf", value: map[string]interface{}{"v": math.Inf(-1)},
	}, {
		data: "v: -10", value: map[string]interface{}{"v": -10},
	}, {
		data: "v: 685_230.15", value: map[string]float64{"v": 685230.15},
	}, {
		data: "v: ~", value: map[string]interface{}{"v": nil},
	}, {
		data: "v: null", value: map[string]interface{}{"v": nil},
	}, {
		data: "v:", value: map[string]interface{}{"v": nil},
	}, {
		data: "v: '10'", value: map[string]interface{}{"v": "10"},
	}, {
		data: "v: \"true\"", value: map[string]string{"v": "true"},
	}, {
		data: "123", value: 123,
	}, {
		data: "0xFF", value: uint8(255),
	}, {
		data: "-128", value: int8(-128),
	}, {
		data: "seq: [A,B]", value: map[string][]string{"seq": {"A", "B"}},
	}, {
		data: "seq:\n - A\n - B", value: map[string][]string{"seq": {"A", "B"}},
	}, {
		data: "seq: [A,1,C]", value: map[string][]interface{}{"seq": {"A", 1, "C"}},
	}, {
		data: "a: {b: c}", value: map[string]map[string]string{"a": {"b": "c"}},
	}, {
		data: "a:\n  b: c\n  d: e", value: map[string]interface{}{"a": map[string]interface{}{"b": "c", "d": "e"}},
	}, {
		data: "scalar: |\n  literal\n  text\n", value: map[string]string{"scalar": "literal\ntext\n"},
	}, {
		data: "scalar: >-\n  folded\n  text\n", value: map[string]string{"scalar": "folded text"},
	}, {
		data: "!!str 5", value: "5",
	}, {
		data: "level: 42\nexperience: 1800\ndrops:\n - Sword\n",
		value: hero{Level: 42, Experience: 1800, Drops: []string{"Sword"}},
	}, {
		data: "10: two\n20: four", value: map[int]string{10: "two", 20: "four"},
	}, {
		data: "[1, 2, 3]", value: [3]int{1, 2, 3},
	},
}

func TestLoad(t *testing.T) {
	for _, item := range loadTests {
		t.Run(item.data, func(t *testing.T) {
			typ := reflect.ValueOf(item.value).Type()
			value := reflect.New(typ)
			err := yaml.Load([]byte(item.data), value.Interface())
			require.NoError(t, err)
			require.Equal(t, item.value, value.Elem().Interface())
		})
	}
}

var loadErrorTests = []struct {
	data string
	into func() interface{}
	msg  string
}{
	{
		data: "0xFF",
		into: func() interface{} { return new(int8) },
		msg:  "Cannot parse",
	}, {
		data: "level: x\nexperience: 1\ndrops: []",
		into: func() interface{} { return new(hero) },
		msg:  "Cannot parse",
	}, {
		data: "level: 1\nexperience: 2\ndrops: []\nbogus: 3",
		into: func() interface{} { return new(hero) },
		msg:  "Unknown field: bogus",
	}, {
		data: "level: 1\nexperience: 2",
		into: func() interface{} { return new(hero) },
		msg:  "Missing field: drops",
	}, {
		data: "level: 1\nlevel: 2\nexperience: 3\ndrops: []",
		into: func() interface{} { return new(hero) },
		msg:  "Duplicate field: level",
	}, {
		data: "a: 1\na: 2",
		into: func() interface{} { return new(map[string]int) },
		msg:  "Duplicate table key",
	}, {
		data: "[1, 2]",
		into: func() interface{} { return new([3]int) },
		msg:  "Expected 3 elements",
	}, {
		data: "!!int x",
		into: func() interface{} { return new(string) },
		msg:  "Wrong tag",
	}, {
		data: "!!str 5",
		into: func() interface{} { return new(int) },
		msg:  "Wrong tag",
	}, {
		data: "&a 5",
		into: func() interface{} { return new(int) },
		msg:  "Anchor on non-ref type",
	}, {
		data: "true",
		into: func() interface{} { return new(int) },
		msg:  "Cannot parse",
	},
}

func TestLoadErrors(t *testing.T) {
	for _, item := range loadErrorTests {
		t.Run(item.data, func(t *testing.T) {
			err := yaml.Load([]byte(item.data), item.into())
			require.Error(t, err)
			require.Contains(t, err.Error(), item.msg)
			var cerr *yaml.ConstructionError
			require.ErrorAs(t, err, &cerr)
			var lerr yaml.LoadingError
			require.ErrorAs(t, err, &lerr)
		})
	}
}

func TestLoadParserError(t *testing.T) {
	err := yaml.Load([]byte("*nope"), new(interface{}))
	require.Error(t, err)
	var perr *yaml.ParserError
	require.ErrorAs(t, err, &perr)
	var lerr yaml.LoadingError
	require.ErrorAs(t, err, &lerr)
}

func TestLoadAliasIdentity(t *testing.T) {
	type point struct {
		X int `yaml:"x"`
	}
	var p1, p2 *point
	err := yaml.Load([]byte("&a {x: 1}\n--- *a"), &p1, &p2)
	require.NoError(t, err)
	require.NotNil(t, p1)
	require.True(t, p1 == p2, "aliased references must be identical")
	require.Equal(t, 1, p1.X)
}

func TestLoadAliasWithinDocument(t *testing.T) {
	type pair struct {
		Left  *link `yaml:"left"`
		Right *link `yaml:"right"`
	}
	var p pair
	err := yaml.Load([]byte("left: &l {name: a, next: ~}\nright: *l"), &p)
	require.NoError(t, err)
	require.True(t, p.Left == p.Right)
}

func TestLoadCycle(t *testing.T) {
	var n *link
	err := yaml.Load([]byte("&a {name: loop, next: *a}"), &n)
	require.NoError(t, err)
	require.NotNil(t, n)
	require.True(t, n.Next == n, "cycle must resolve to the same object")
}

func TestLoadNullReference(t *testing.T) {
	var n *link
	err := yaml.Load([]byte("~"), &n)
	require.NoError(t, err)
	require.Nil(t, n)
}

func TestLoadOmitEmptyFieldsAreOptional(t *testing.T) {
	type opts struct {
		Name  string   `yaml:"name"`
		Extra string   `yaml:"extra,omitempty"`
		Tags  []string `yaml:"tags,omitempty"`
	}
	var o opts
	err := yaml.Load([]byte("name: a"), &o)
	require.NoError(t, err)
	require.Equal(t, opts{Name: "a"}, o)

	err = yaml.Load([]byte("extra: x"), &o)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Missing field: name")
}

func TestLoadOrderedMapping(t *testing.T) {
	type entry struct {
		Key   string
		Value int
	}
	var got []entry
	err := yaml.Load([]byte("- b: 1\n- a: 2\n- c: 3\n"), &got)
	require.NoError(t, err)
	require.Equal(t, []entry{{"b", 1}, {"a", 2}, {"c", 3}}, got)
}

func TestLoadSet(t *testing.T) {
	var got map[string]struct{}
	err := yaml.Load([]byte("- a\n- b\n- a\n"), &got)
	require.NoError(t, err)
	require.Equal(t, map[string]struct{}{"a": {}, "b": {}}, got)
}

func TestLoadMultipleDocuments(t *testing.T) {
	var a string
	var b int
	err := yaml.Load([]byte("hi\n---\n42\n"), &a, &b)
	require.NoError(t, err)
	require.Equal(t, "hi", a)
	require.Equal(t, 42, b)

	err = yaml.Load([]byte("solo"), &a, &b)
	require.Error(t, err)
	require.Contains(t, err.Error(), "end of stream")
}

type shape struct {
	Kind   string  `yaml:"kind"`
	Radius float64 `yaml:"radius"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

func registerShape() {
	yaml.RegisterVariant(shape{}, "kind", map[string][]string{
		"circle": {"radius"},
		"rect":   {"width", "height"},
	})
}

func TestLoadVariant(t *testing.T) {
	registerShape()
	var s shape
	err := yaml.Load([]byte("- kind: circle\n- radius: 2.5\n"), &s)
	require.NoError(t, err)
	require.Equal(t, shape{Kind: "circle", Radius: 2.5}, s)

	err = yaml.Load([]byte("- kind: rect\n- width: 3\n- height: 4\n"), &s)
	require.NoError(t, err)
	require.Equal(t, shape{Kind: "rect", Width: 3, Height: 4}, s)
}

func TestLoadVariantErrors(t *testing.T) {
	registerShape()
	tests := []struct {
		data string
		msg  string
	}{
		{"- kind: circle\n- width: 3\n", "Field width not allowed for kind == circle"},
		{"- radius: 2.5\n- kind: circle\n", "Discriminator field kind must come first"},
		{"- kind: circle\n", "Missing field: radius"},
		{"- kind: blob\n", "Unknown value for discriminator kind"},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			var s shape
			err := yaml.Load([]byte(tt.data), &s)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.msg)
		})
	}
}

type scalarValue struct {
	Kind string `yaml:"kind"`
	Str  string `yaml:"str"`
	Num  int32  `yaml:"num"`
	Flag bool   `yaml:"flag"`
}

func registerScalarValue() {
	yaml.RegisterImplicitVariant(scalarValue{}, "kind", map[string]string{
		"str":  "str",
		"num":  "num",
		"flag": "flag",
		"nil":  "",
	})
}

func TestLoadImplicitVariant(t *testing.T) {
	registerScalarValue()
	tests := []struct {
		data string
		want scalarValue
	}{
		{"hello", scalarValue{Kind: "str", Str: "hello"}},
		{"'42'", scalarValue{Kind: "str", Str: "42"}},
		{"42", scalarValue{Kind: "num", Num: 42}},
		{"-7", scalarValue{Kind: "num", Num: -7}},
		{"true", scalarValue{Kind: "flag", Flag: true}},
		{"~", scalarValue{Kind: "nil"}},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			var v scalarValue
			err := yaml.Load([]byte(tt.data), &v)
			require.NoError(t, err)
			require.Equal(t, tt.want, v)
		})
	}
}

func TestLoadImplicitVariantErrors(t *testing.T) {
	registerScalarValue()
	var v scalarValue
	err := yaml.Load([]byte("1.5"), &v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not map to any field")

	err = yaml.Load([]byte("{a: 1}"), &v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must have a tag")
}

func TestLoadUTF16(t *testing.T) {
	input := []byte{0xFF, 0xFE}
	for _, c := range "a: 1" {
		input = append(input, byte(c), 0)
	}
	var got map[string]int
	err := yaml.Load(input, &got)
	require.NoError(t, err)
	require.Equal(t, map[string]int{"a": 1}, got)
}
