// Copyright 2025 Tom Barlow
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

package expression

import (
	"fmt"
	"reflect"
	"strings"
)

// hasFunc reports whether a slice, map key set or string contains target.
// Usage: has(items, "x")
func hasFunc(collection interface{}, target interface{}) bool {
	if collection == nil {
		return false
	}
	v := reflect.ValueOf(collection)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if reflect.DeepEqual(v.Index(i).Interface(), target) {
				return true
			}
		}
	case reflect.Map:
		key := reflect.ValueOf(target)
		if key.IsValid() && key.Type().AssignableTo(v.Type().Key()) {
			return v.MapIndex(key).IsValid()
		}
	case reflect.String:
		return strings.Contains(v.String(), fmt.Sprint(target))
	}
	return false
}

// lengthFunc returns the length of a collection or string, 0 for anything else.
func lengthFunc(value interface{}) int {
	if value == nil {
		return 0
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return v.Len()
	}
	return 0
}
