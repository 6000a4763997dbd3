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
	"regexp"
	"strconv"
	"strings"
)

// operatorAliases maps the word operators of the definition dialect to expr-lang.
var operatorAliases = map[string]string{
	"lt":  "<",
	"lt=": "<=",
	"gt":  ">",
	"gt=": ">=",
	"=":   "==",
}

// Normalize rewrites dialect operators into expr-lang operators.
// Quoted string literals are copied verbatim.
func Normalize(expression string) string {
	var out strings.Builder
	var token strings.Builder

	flush := func() {
		if token.Len() == 0 {
			return
		}
		word := token.String()
		if alias, ok := operatorAliases[word]; ok {
			word = alias
		}
		out.WriteString(word)
		token.Reset()
	}

	for i := 0; i < len(expression); i++ {
		c := expression[i]
		switch {
		case c == '"' || c == '\'':
			flush()
			end := closingQuote(expression, i)
			out.WriteString(expression[i : end+1])
			i = end
		case c == ' ' || c == '\t' || c == '\n' || c == '(' || c == ')':
			flush()
			out.WriteByte(c)
		default:
			token.WriteByte(c)
		}
	}
	flush()

	return out.String()
}

// closingQuote returns the index of the quote closing the literal that starts
// at start, or the last index when the literal is unterminated.
func closingQuote(s string, start int) int {
	quote := s[start]
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return len(s) - 1
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedWords cannot be used as bound identifiers.
var reservedWords = map[string]bool{
	"and": true, "or": true, "not": true, "in": true, "matches": true,
	"contains": true, "startsWith": true, "endsWith": true, "let": true,
	"if": true, "else": true, "nil": true, "true": true, "false": true,
	"lt": true, "gt": true, "has": true, "length": true,
}

// BindPlaceholders rewrites ${name} placeholders outside string literals into
// identifiers so that values are bound through the environment instead of
// pasted into the expression text. It returns the rewritten expression and
// the variable name behind each identifier. Placeholders inside literals and
// unterminated placeholders are left untouched.
func BindPlaceholders(expression string) (string, map[string]string) {
	var out strings.Builder
	bound := make(map[string]string)
	byName := make(map[string]string)

	for i := 0; i < len(expression); i++ {
		c := expression[i]
		switch {
		case c == '"' || c == '\'':
			end := closingQuote(expression, i)
			out.WriteString(expression[i : end+1])
			i = end
		case c == '$' && strings.HasPrefix(expression[i:], "${"):
			end := strings.IndexByte(expression[i:], '}')
			if end < 0 {
				out.WriteString(expression[i:])
				i = len(expression)
				continue
			}
			name := expression[i+2 : i+end]
			ident, ok := byName[name]
			if !ok {
				ident = name
				if !identifierPattern.MatchString(name) || reservedWords[name] {
					ident = fmt.Sprintf("_var%d", len(bound))
				}
				byName[name] = ident
				bound[ident] = name
			}
			out.WriteString(ident)
			i += end
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), bound
}

// BuildEnv converts context variables into an evaluation environment.
func BuildEnv(vars map[string]interface{}) map[string]interface{} {
	env := make(map[string]interface{}, len(vars))
	for k, v := range vars {
		env[k] = coerce(v)
	}
	return env
}

func coerce(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if i, err := strconv.Atoi(trimmed); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && strings.ContainsAny(trimmed, "0123456789") {
		return f
	}
	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
