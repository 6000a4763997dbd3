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

// Package expression evaluates the boolean conditions used by iterate, repeat
// and conditional containers.
//
// Conditions are written in the test-definition dialect and rewritten into
// expr-lang syntax before compilation:
//
//	lt  -> <     lt= -> <=
//	gt  -> >     gt= -> >=
//	=   -> ==    and, or, parentheses unchanged
//
// Everything else expr-lang understands is accepted as well, so
// `i lt 3 and mode == "fast"` and `i < 3 && mode == "fast"` are equivalent.
//
// Variables are passed in as a flat map. String values that look like
// integers, floats or booleans are coerced so that variables read from YAML or
// produced by functions compare numerically.
package expression
