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

package testcontext

import (
	"strings"

	"github.com/tombee/citrus/pkg/errors"
)

const (
	varPrefix = "${"
	varSuffix = "}"
)

// replaceVariables substitutes every ${name} in s.
func (c *Context) replaceVariables(s string) (string, error) {
	if !strings.Contains(s, varPrefix) {
		return s, nil
	}

	var out strings.Builder
	rest := s
	for {
		start := strings.Index(rest, varPrefix)
		if start < 0 {
			out.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], varSuffix)
		if end < 0 {
			return "", errors.Runtimef("unable to find closing bracket for variable in '%s'", s)
		}
		end += start

		name := rest[start+len(varPrefix) : end]
		value, err := c.GetVariable(name)
		if err != nil {
			return "", err
		}
		out.WriteString(rest[:start])
		out.WriteString(value)
		rest = rest[end+len(varSuffix):]
	}
	return out.String(), nil
}

// IsVariableExpression reports whether s is exactly one ${name} placeholder.
func IsVariableExpression(s string) bool {
	return strings.HasPrefix(s, varPrefix) && strings.HasSuffix(s, varSuffix) &&
		strings.Count(s, varPrefix) == 1
}

// VariableName strips the ${} decoration from a placeholder.
func VariableName(s string) string {
	if IsVariableExpression(s) {
		return s[len(varPrefix) : len(s)-len(varSuffix)]
	}
	return s
}
