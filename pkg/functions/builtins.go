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
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/sprig/v3"
)

var sprigFuncs = sprig.GenericFuncMap()

// sprigFunc fetches a sprig function with a known signature.
func sprigFunc[T any](name string) T {
	fn, ok := sprigFuncs[name].(T)
	if !ok {
		panic(fmt.Sprintf("sprig function %q has unexpected signature %T", name, sprigFuncs[name]))
	}
	return fn
}

var (
	upper        = sprigFunc[func(string) string]("upper")
	lower        = sprigFunc[func(string) string]("lower")
	trim         = sprigFunc[func(string) string]("trim")
	substr       = sprigFunc[func(int, int, string) string]("substr")
	randAlpha    = sprigFunc[func(int) string]("randAlpha")
	randAlphaNum = sprigFunc[func(int) string]("randAlphaNum")
	randNumeric  = sprigFunc[func(int) string]("randNumeric")
	uuidv4       = sprigFunc[func() string]("uuidv4")
	dateFormat   = sprigFunc[func(string, interface{}) string]("date")
	regexReplace = sprigFunc[func(string, string, string) (string, error)]("mustRegexReplaceAll")
	b64enc       = sprigFunc[func(string) string]("b64enc")
	b64dec       = sprigFunc[func(string) string]("b64dec")
	sha256sum    = sprigFunc[func(string) string]("sha256sum")
)

// DefaultDateFormat is used by currentDate when no format is given.
const DefaultDateFormat = "dd.MM.yyyy"

func builtins() map[string]Function {
	return map[string]Function{
		"concat":          concatFunction,
		"upperCase":       unary("upperCase", upper),
		"lowerCase":       unary("lowerCase", lower),
		"trim":            unary("trim", trim),
		"encodeBase64":    unary("encodeBase64", b64enc),
		"decodeBase64":    unary("decodeBase64", b64dec),
		"digest":          unary("digest", sha256sum),
		"stringLength":    stringLengthFunction,
		"substring":       substringFunction,
		"translate":       translateFunction,
		"randomNumber":    randomNumberFunction,
		"randomString":    randomStringFunction,
		"randomUUID":      func([]string) (string, error) { return uuidv4(), nil },
		"currentDate":     currentDateFunction,
		"sum":             numericFunction("sum", func(a, b float64) float64 { return a + b }),
		"max":             numericFunction("max", math.Max),
		"min":             numericFunction("min", math.Min),
		"absolute":        absoluteFunction,
		"escapeXml":       escapeXMLFunction,
		"systemTimestamp": func([]string) (string, error) { return strconv.FormatInt(time.Now().UnixMilli(), 10), nil },
	}
}

func unary(name string, fn func(string) string) Function {
	return func(args []string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s expects exactly 1 argument, got %d", name, len(args))
		}
		return fn(args[0]), nil
	}
}

func concatFunction(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("concat expects at least 1 argument")
	}
	return strings.Join(args, ""), nil
}

func stringLengthFunction(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("stringLength expects exactly 1 argument, got %d", len(args))
	}
	return strconv.Itoa(len([]rune(args[0]))), nil
}

// substring(value, begin[, end])
func substringFunction(args []string) (string, error) {
	if len(args) < 2 || len(args) > 3 {
		return "", fmt.Errorf("substring expects 2 or 3 arguments, got %d", len(args))
	}
	begin, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return "", fmt.Errorf("invalid begin index %q", args[1])
	}
	end := len(args[0])
	if len(args) == 3 {
		if end, err = strconv.Atoi(strings.TrimSpace(args[2])); err != nil {
			return "", fmt.Errorf("invalid end index %q", args[2])
		}
	}
	if begin < 0 || end > len(args[0]) || begin > end {
		return "", fmt.Errorf("substring range [%d:%d] out of bounds for length %d", begin, end, len(args[0]))
	}
	return substr(begin, end, args[0]), nil
}

// translate(value, regex, replacement)
func translateFunction(args []string) (string, error) {
	if len(args) != 3 {
		return "", fmt.Errorf("translate expects exactly 3 arguments, got %d", len(args))
	}
	return regexReplace(args[1], args[0], args[2])
}

// randomNumber(length[, padding]) - without padding the first digit is never 0.
func randomNumberFunction(args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", fmt.Errorf("randomNumber expects 1 or 2 arguments, got %d", len(args))
	}
	length, err := positiveInt(args[0])
	if err != nil {
		return "", err
	}
	padding := len(args) == 2 && strings.EqualFold(strings.TrimSpace(args[1]), "true")

	n := randNumeric(length)
	if !padding && n[0] == '0' {
		n = strconv.Itoa(rand.IntN(9)+1) + n[1:]
	}
	return n, nil
}

// randomString(length[, UPPERCASE|LOWERCASE|MIXED[, includeNumbers]])
func randomStringFunction(args []string) (string, error) {
	if len(args) < 1 || len(args) > 3 {
		return "", fmt.Errorf("randomString expects 1 to 3 arguments, got %d", len(args))
	}
	length, err := positiveInt(args[0])
	if err != nil {
		return "", err
	}

	s := randAlpha(length)
	if len(args) == 3 && strings.EqualFold(strings.TrimSpace(args[2]), "true") {
		s = randAlphaNum(length)
	}
	if len(args) >= 2 {
		switch strings.ToUpper(strings.TrimSpace(args[1])) {
		case "UPPERCASE":
			s = upper(s)
		case "LOWERCASE":
			s = lower(s)
		case "MIXED":
		default:
			return "", fmt.Errorf("unknown randomString mode %q", args[1])
		}
	}
	return s, nil
}

// currentDate([format[, offset]]) - format uses the yyyy/MM/dd/HH/mm/ss
// pattern letters, offset is a Go duration such as "24h" or "-1h".
func currentDateFunction(args []string) (string, error) {
	if len(args) > 2 {
		return "", fmt.Errorf("currentDate expects at most 2 arguments, got %d", len(args))
	}
	format := DefaultDateFormat
	if len(args) >= 1 && strings.TrimSpace(args[0]) != "" {
		format = args[0]
	}
	now := time.Now()
	if len(args) == 2 {
		offset, err := time.ParseDuration(strings.TrimSpace(args[1]))
		if err != nil {
			return "", fmt.Errorf("invalid date offset %q: %w", args[1], err)
		}
		now = now.Add(offset)
	}
	return dateFormat(GoLayout(format), now), nil
}

var layoutReplacer = strings.NewReplacer(
	"yyyy", "2006",
	"yy", "06",
	"MM", "01",
	"dd", "02",
	"HH", "15",
	"hh", "03",
	"mm", "04",
	"ss", "05",
	"SSS", "000",
	"'T'", "T",
	"Z", "-0700",
)

// GoLayout converts a yyyy-MM-dd style date pattern into a Go time layout.
func GoLayout(pattern string) string {
	return layoutReplacer.Replace(pattern)
}

func numericFunction(name string, op func(a, b float64) float64) Function {
	return func(args []string) (string, error) {
		if len(args) == 0 {
			return "", fmt.Errorf("%s expects at least 1 argument", name)
		}
		var result float64
		for i, arg := range args {
			v, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
			if err != nil {
				return "", fmt.Errorf("%s: argument %q is not a number", name, arg)
			}
			if i == 0 {
				result = v
				continue
			}
			result = op(result, v)
		}
		return formatNumber(result), nil
	}
}

func absoluteFunction(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("absolute expects exactly 1 argument, got %d", len(args))
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil {
		return "", fmt.Errorf("absolute: argument %q is not a number", args[0])
	}
	return formatNumber(math.Abs(v)), nil
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func escapeXMLFunction(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("escapeXml expects exactly 1 argument, got %d", len(args))
	}
	return xmlEscaper.Replace(args[0]), nil
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("expected a positive length, got %q", s)
	}
	return n, nil
}
