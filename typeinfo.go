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
	"strings"
	"sync"
)

// The engines are type-directed: the shape of the target type picks the
// constructor and representer. Struct shapes are computed once per type and
// cached; variant shapes are supplied through the registration calls below,
// since Go has no discriminated records for reflection to discover.

type fieldInfo struct {
	Key       string
	Num       int
	Id        int
	OmitEmpty bool
}

type structInfo struct {
	FieldsMap  map[string]*fieldInfo
	FieldsList []fieldInfo
}

var (
	structMapMutex sync.RWMutex
	structMap      = make(map[reflect.Type]*structInfo)
)

func getStructInfo(st reflect.Type) (*structInfo, error) {
	structMapMutex.RLock()
	sinfo, found := structMap[st]
	structMapMutex.RUnlock()
	if found {
		return sinfo, nil
	}

	n := st.NumField()
	fieldsMap := make(map[string]*fieldInfo)
	fieldsList := make([]fieldInfo, 0, n)
	for i := 0; i != n; i++ {
		field := st.Field(i)
		if field.PkgPath != "" && !field.Anonymous {
			continue // Private field
		}
		info := fieldInfo{Num: i}

		tag := field.Tag.Get("yaml")
		if tag == "" && !strings.Contains(string(field.Tag), ":") {
			tag = string(field.Tag)
		}
		if tag == "-" {
			continue
		}
		fields := strings.Split(tag, ",")
		if len(fields) > 1 {
			for _, flag := range fields[1:] {
				switch flag {
				case "omitempty":
					info.OmitEmpty = true
				default:
					return nil, fmt.Errorf("yaml: unsupported flag %q in tag %q of type %s", flag, tag, st)
				}
			}
			tag = fields[0]
		}
		if tag != "" {
			info.Key = tag
		} else {
			info.Key = strings.ToLower(field.Name)
		}
		if _, found := fieldsMap[info.Key]; found {
			return nil, fmt.Errorf("yaml: duplicated key %q in struct %s", info.Key, st)
		}
		info.Id = len(fieldsList)
		fieldsList = append(fieldsList, info)
		fieldsMap[info.Key] = &fieldsList[len(fieldsList)-1]
	}

	sinfo = &structInfo{
		FieldsMap:  fieldsMap,
		FieldsList: fieldsList,
	}
	structMapMutex.Lock()
	structMap[st] = sinfo
	structMapMutex.Unlock()
	return sinfo, nil
}

func isZero(v reflect.Value) bool {
	kind := v.Kind()
	switch kind {
	case reflect.String:
		return len(v.String()) == 0
	case reflect.Interface, reflect.Ptr:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Struct:
		vt := v.Type()
		for i := v.NumField() - 1; i >= 0; i-- {
			if vt.Field(i).PkgPath != "" {
				continue // Private field
			}
			if !isZero(v.Field(i)) {
				return false
			}
		}
		return true
	}
	return false
}

// isPairSlice reports whether t is the wire shape of an ordered mapping: a
// slice whose element is a struct with exactly the fields Key and Value. Such
// a slice travels as a sequence of single-pair mappings so that entry order
// survives tag libraries that do not guarantee map ordering.
func isPairSlice(t reflect.Type) bool {
	if t.Kind() != reflect.Slice {
		return false
	}
	e := t.Elem()
	return e.Kind() == reflect.Struct && e.NumField() == 2 &&
		e.Field(0).Name == "Key" && e.Field(1).Name == "Value"
}

// isSetMap reports whether t is a set: a map with empty-struct values, which
// travels as a sequence of its keys.
func isSetMap(t reflect.Type) bool {
	return t.Kind() == reflect.Map &&
		t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

// Variant registration.

type variantBranch struct {
	payload string
	fields  map[string]bool
}

type variantInfo struct {
	disc     string
	implicit bool
	branches map[string]*variantBranch
}

var (
	variantMutex sync.RWMutex
	variants     = make(map[reflect.Type]*variantInfo)
)

func variantFor(t reflect.Type) *variantInfo {
	variantMutex.RLock()
	vi := variants[t]
	variantMutex.RUnlock()
	return vi
}

func variantType(sample interface{}) reflect.Type {
	t := reflect.TypeOf(sample)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic("yaml: variant registration requires a struct type, got " + t.String())
	}
	return t
}

func variantField(t reflect.Type, key string) {
	sinfo, err := getStructInfo(t)
	if err != nil {
		panic(err)
	}
	if _, ok := sinfo.FieldsMap[key]; !ok {
		panic(fmt.Sprintf("yaml: type %s has no field %q", t, key))
	}
}

// RegisterVariant declares that struct type sample (given by example value or
// pointer) is a discriminated record: discriminator names the field whose
// value selects a branch, and branches maps each discriminator value to the
// additional fields present under it. Such records travel as a sequence of
// single-pair mappings with the discriminator written first.
func RegisterVariant(sample interface{}, discriminator string, branches map[string][]string) {
	t := variantType(sample)
	variantField(t, discriminator)
	vi := &variantInfo{disc: discriminator, branches: make(map[string]*variantBranch, len(branches))}
	for value, fields := range branches {
		br := &variantBranch{fields: make(map[string]bool, len(fields))}
		for _, f := range fields {
			variantField(t, f)
			br.fields[f] = true
		}
		vi.branches[value] = br
	}
	variantMutex.Lock()
	variants[t] = vi
	variantMutex.Unlock()
}

// RegisterImplicitVariant declares that struct type sample is an implicit
// variant: its wire form omits the wrapper and carries only the payload of
// the selected branch. payloads maps each discriminator value to the name of
// the branch's payload field; an empty name declares a payload-free branch,
// which matches only null values.
func RegisterImplicitVariant(sample interface{}, discriminator string, payloads map[string]string) {
	t := variantType(sample)
	variantField(t, discriminator)
	vi := &variantInfo{disc: discriminator, implicit: true, branches: make(map[string]*variantBranch, len(payloads))}
	for value, payload := range payloads {
		if payload != "" {
			variantField(t, payload)
		}
		vi.branches[value] = &variantBranch{payload: payload}
	}
	variantMutex.Lock()
	variants[t] = vi
	variantMutex.Unlock()
}
