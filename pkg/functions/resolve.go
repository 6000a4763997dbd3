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

package functions

import (
	"strings"

	"github.com/tombee/citrus/pkg/errors"
)

// call is one function invocation found in a string.
type call struct {
	name string
	args []string
	// end is the index just after the closing parenthesis
	end int
}

// ReplaceInString resolves every function call in s. Nested calls inside
// arguments are resolved first; text outside calls is left untouched.
func (r *Registry) ReplaceInString(s string) (string, error) {
	if !strings.Contains(s, Prefix) {
		return s, nil
	}

	var out strings.Builder
	i := 0
	for i < len(s) {
		idx := strings.Index(s[i:], Prefix)
		if idx < 0 {
			out.WriteString(s[i:])
			break
		}
		start := i + idx
		out.WriteString(s[i:start])

		c, ok := scanCall(s, start)
		if !ok {
			if opensCall(s, start) {
				return "", unterminated(s)
			}
			out.WriteString(Prefix)
			i = start + len(Prefix)
			continue
		}

		result, err := r.invoke(c)
		if err != nil {
			return "", err
		}
		out.WriteString(result)
		i = c.end
	}
	return out.String(), nil
}

// Resolve resolves a value that is a single function call, returning other
// values unchanged.
func (r *Registry) Resolve(value string) (string, error) {
	if !r.IsFunction(value) {
		return value, nil
	}
	return r.ReplaceInString(strings.TrimSpace(value))
}

func (r *Registry) invoke(c call) (string, error) {
	args := make([]string, 0, len(c.args))
	for _, raw := range c.args {
		arg := strings.TrimSpace(raw)
		if strings.HasPrefix(arg, "'") && strings.HasSuffix(arg, "'") && len(arg) >= 2 {
			args = append(args, arg[1:len(arg)-1])
			continue
		}
		resolved, err := r.ReplaceInString(arg)
		if err != nil {
			return "", err
		}
		args = append(args, resolved)
	}
	return r.Call(c.name, args)
}

// scanCall parses a call starting at s[start:] which must begin with Prefix.
func scanCall(s string, start int) (call, bool) {
	pos := start + len(Prefix)
	nameStart := pos
	for pos < len(s) && isNameChar(s[pos]) {
		pos++
	}
	if pos == nameStart || pos >= len(s) || s[pos] != '(' {
		return call{}, false
	}
	name := s[nameStart:pos]

	depth := 0
	inQuote := false
	argStart := pos + 1
	var args []string
	for i := pos; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				if last := s[argStart:i]; strings.TrimSpace(last) != "" || len(args) > 0 {
					args = append(args, last)
				}
				return call{name: name, args: args, end: i + 1}, true
			}
		case c == ',' && depth == 1:
			args = append(args, s[argStart:i])
			argStart = i + 1
		}
	}
	return call{}, false
}

// opensCall reports whether s[start:] starts with Prefix, a name and '('.
func opensCall(s string, start int) bool {
	pos := start + len(Prefix)
	nameStart := pos
	for pos < len(s) && isNameChar(s[pos]) {
		pos++
	}
	return pos > nameStart && pos < len(s) && s[pos] == '('
}

func isNameChar(c byte) bool {
	return c == '_' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// unterminated reports a call whose parentheses never close.
func unterminated(s string) error {
	return errors.Runtimef("unterminated function call in '%s'", s)
}
