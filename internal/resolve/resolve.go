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

package resolve

import (
	"regexp"
	"strings"
	"sync"
)

// Hint classifies the content of a plain scalar. It drives the construction
// of untagged scalars and the branch selection of implicit variants.
type Hint int8

const (
	Unknown Hint = iota // Nothing but a string.
	Null
	BoolTrue
	BoolFalse
	Integer
	Float
	FloatInf
	FloatNaN
)

var hintStrings = []string{
	Unknown:   "unknown",
	Null:      "null",
	BoolTrue:  "bool true",
	BoolFalse: "bool false",
	Integer:   "integer",
	Float:     "float",
	FloatInf:  "float inf",
	FloatNaN:  "float nan",
}

func (h Hint) String() string {
	if h < 0 || int(h) >= len(hintStrings) {
		return "invalid hint"
	}
	return hintStrings[h]
}

var (
	hintTable = make([]byte, 256)
	wordMap   = make(map[string]Hint)
)

var initGuessOnce sync.Once

func initGuess() {
	t := hintTable
	t[int('+')] = 'S' // Sign
	t[int('-')] = 'S'
	for _, c := range "0123456789" {
		t[int(c)] = 'D' // Digit
	}
	for _, c := range "tTfFnN~" {
		t[int(c)] = 'M' // In the word map
	}
	t[int('.')] = '.' // Float (potentially in the word map)

	wordList := []struct {
		h Hint
		l []string
	}{
		{h: BoolTrue, l: []string{"true", "True", "TRUE"}},
		{h: BoolFalse, l: []string{"false", "False", "FALSE"}},
		{h: Null, l: []string{"", "~", "null", "Null", "NULL"}},
		{h: FloatNaN, l: []string{".nan", ".NaN", ".NAN"}},
		{h: FloatInf, l: []string{".inf", ".Inf", ".INF"}},
		{h: FloatInf, l: []string{"+.inf", "+.Inf", "+.INF"}},
		{h: FloatInf, l: []string{"-.inf", "-.Inf", "-.INF"}},
	}
	for _, item := range wordList {
		for _, s := range item.l {
			wordMap[s] = item.h
		}
	}
}

// YAML 1.2 core schema shapes. Underscores inside numbers are tolerated the
// way the 1.1 schema allowed them.
var (
	decimalShape = regexp.MustCompile(`^[-+]?[0-9][0-9_]*$`)
	hexShape     = regexp.MustCompile(`^0[xX][0-9a-fA-F_]+$`)
	octalShape   = regexp.MustCompile(`^0[oO][0-7_]+$`)
	floatShape   = regexp.MustCompile(`^[-+]?(\.[0-9_]+|[0-9][0-9_]*(\.[0-9_]*)?)([eE][-+]?[0-9]+)?$`)
)

// Guess reports what kind of value a plain scalar spells. Anything that is
// not a recognised null, boolean or number shape is Unknown, which readers
// treat as a string.
func Guess(in string) Hint {
	initGuessOnce.Do(initGuess)

	hint := byte(0)
	if in != "" {
		hint = hintTable[in[0]]
	} else {
		return Null
	}
	if hint == 0 {
		return Unknown
	}
	if h, ok := wordMap[in]; ok {
		return h
	}
	switch hint {
	case 'M':
		// Already checked the word map.
	case '.':
		if floatShape.MatchString(in) {
			return Float
		}
	case 'D', 'S':
		if decimalShape.MatchString(in) || hexShape.MatchString(in) || octalShape.MatchString(in) {
			return Integer
		}
		if floatShape.MatchString(in) {
			return Float
		}
	}
	return Unknown
}

const longTagPrefix = "tag:yaml.org,2002:"

// ShortTag rewrites a core-schema tag URI to its "!!" shorthand for error
// messages and test output.
func ShortTag(uri string) string {
	if strings.HasPrefix(uri, longTagPrefix) {
		return "!!" + uri[len(longTagPrefix):]
	}
	return uri
}

// LongTag expands a "!!" shorthand to the full core-schema URI.
func LongTag(tag string) string {
	if strings.HasPrefix(tag, "!!") {
		return longTagPrefix + tag[2:]
	}
	return tag
}
