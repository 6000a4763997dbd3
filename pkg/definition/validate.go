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

package definition

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tombee/citrus/internal/jq"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/expression"
	"github.com/tombee/citrus/pkg/testcase"
)

// Validate checks the definition without compiling it. Every problem is
// reported as an *errors.ValidationError; use Problems to list them.
func (d *Definition) Validate() error {
	v := &validator{
		templates: make(map[string]bool),
		evaluator: expression.New(),
		jqExec:    jq.NewExecutor(jq.DefaultTimeout, jq.DefaultMaxInputSize),
	}

	v.required("name", d.Name, "test name")
	switch testcase.Status(d.Status) {
	case "", testcase.StatusDraft, testcase.StatusFinal, testcase.StatusDisabled:
	default:
		v.fail("status", fmt.Sprintf("unknown status '%s'", d.Status), "use draft, final or disabled")
	}
	v.duration("timeout", d.Timeout)

	for i, variable := range d.Variables {
		v.required(fmt.Sprintf("variables[%d].name", i), variable.Name, "variable name")
	}

	for i, t := range d.Templates {
		field := fmt.Sprintf("templates[%d].name", i)
		switch {
		case t.Name == "":
			v.required(field, t.Name, "template name")
		case v.templates[t.Name]:
			v.fail(field, fmt.Sprintf("duplicate template '%s'", t.Name), "give each template a unique name")
		}
		v.templates[t.Name] = true
	}
	for i, t := range d.Templates {
		v.actions(fmt.Sprintf("templates[%d].actions", i), t.Actions)
	}

	if len(d.Actions) == 0 {
		v.fail("actions", "test must have at least one action", "add an action such as '- echo: hello'")
	}
	v.actions("actions", d.Actions)
	v.actions("finally", d.Finally)

	return errors.Join(v.errs...)
}

// Problems lists the validation errors contained in err, looking through
// wrapping and joined errors.
func Problems(err error) []*errors.ValidationError {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*errors.ValidationError
		for _, e := range joined.Unwrap() {
			out = append(out, Problems(e)...)
		}
		return out
	}
	if ve, ok := err.(*errors.ValidationError); ok {
		return []*errors.ValidationError{ve}
	}
	return Problems(errors.Unwrap(err))
}

type validator struct {
	errs      []error
	templates map[string]bool
	evaluator *expression.Evaluator
	jqExec    *jq.Executor
}

func (v *validator) fail(field, message, suggestion string) {
	v.errs = append(v.errs, &errors.ValidationError{Field: field, Message: message, Suggestion: suggestion})
}

func (v *validator) required(field, value, what string) {
	if strings.TrimSpace(value) == "" {
		v.fail(field, what+" is required", "")
	}
}

func (v *validator) duration(field string, d Duration) {
	if d == "" || isDynamic(string(d)) {
		return
	}
	if _, err := d.Parse(0); err != nil {
		v.fail(field, fmt.Sprintf("invalid duration '%s'", d), "use a duration such as 500ms or 2s, or integer milliseconds")
	}
}

func (v *validator) condition(field, expression string) {
	if strings.TrimSpace(expression) == "" {
		v.fail(field, "condition is required", "use an expression such as 'i lt 3'")
		return
	}
	if isDynamic(expression) {
		return
	}
	if err := v.evaluator.Validate(expression); err != nil {
		var ve *errors.ValidationError
		if errors.As(err, &ve) {
			v.fail(field, ve.Message, ve.Suggestion)
			return
		}
		v.fail(field, err.Error(), "")
	}
}

func (v *validator) query(field, query string) {
	if isDynamic(query) {
		return
	}
	if err := v.jqExec.Validate(query); err != nil {
		v.fail(field, err.Error(), "check the jq query syntax")
	}
}

func (v *validator) kind(field, name string) {
	if name == "" {
		return
	}
	if !errors.ParseKind(name).Known() {
		v.fail(field, fmt.Sprintf("unknown exception type '%s'", name),
			"use Throwable, Exception, RuntimeException, CitrusRuntimeException, ValidationException, ActionTimeoutException or TestCaseFailedException")
	}
}

func (v *validator) actions(path string, defs []ActionDefinition) {
	for i, def := range defs {
		v.action(fmt.Sprintf("%s[%d]", path, i), def)
	}
}

func (v *validator) action(path string, def ActionDefinition) {
	if def.Spec == nil {
		v.fail(path, "action is missing", "use a single-key map such as '- echo: hello'")
		return
	}
	def.Spec.validate(v, path+"."+string(def.Type))
}

// isDynamic reports whether s is resolved only at run time.
func isDynamic(s string) bool {
	return strings.Contains(s, "${") || strings.Contains(s, "citrus:")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
