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
	"maps"

	"github.com/tombee/citrus/internal/jq"
	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/container"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcase"
)

// Compiler turns definitions into executable test cases.
type Compiler struct {
	prompter action.Prompter
	jq       *jq.Executor
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithPrompter sets the prompter used by input actions.
func WithPrompter(p action.Prompter) Option {
	return func(c *Compiler) {
		c.prompter = p
	}
}

// WithJQ sets the executor used for jq extraction in receive actions.
func WithJQ(executor *jq.Executor) Option {
	return func(c *Compiler) {
		c.jq = executor
	}
}

// NewCompiler creates a compiler.
func NewCompiler(opts ...Option) *Compiler {
	c := &Compiler{
		jq: jq.NewExecutor(jq.DefaultTimeout, jq.DefaultMaxInputSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile validates def and builds its test case.
func (c *Compiler) Compile(def *Definition) (*testcase.TestCase, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	timeout, err := def.Timeout.Parse(0)
	if err != nil {
		return nil, &errors.ValidationError{Field: "timeout", Message: err.Error()}
	}

	state := &compiler{
		Compiler:  c,
		templates: make(map[string]*TemplateDefinition, len(def.Templates)),
		applying:  make(map[string]bool),
	}
	for i := range def.Templates {
		state.templates[def.Templates[i].Name] = &def.Templates[i]
	}

	actions, err := state.actions(def.Actions)
	if err != nil {
		return nil, err
	}
	finally, err := state.actions(def.Finally)
	if err != nil {
		return nil, err
	}

	tc := testcase.New(def.Name, actions...)
	tc.Package = def.Package
	tc.MetaInfo = testcase.MetaInfo{
		Author:      def.Author,
		Status:      testcase.Status(def.Status),
		Group:       def.Group,
		Description: def.Description,
	}
	tc.Parameters = maps.Clone(def.Parameters)
	for _, v := range def.Variables {
		tc.Variables = append(tc.Variables, testcase.Variable{Name: v.Name, Value: v.Value})
	}
	tc.AddFinally(finally...)
	tc.Timeout = timeout
	return tc, nil
}

// compiler is the state of one Compile call.
type compiler struct {
	*Compiler
	templates map[string]*TemplateDefinition
	applying  map[string]bool
}

func (c *compiler) actions(defs []ActionDefinition) ([]action.TestAction, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]action.TestAction, 0, len(defs))
	for _, def := range defs {
		a, err := c.action(def)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (c *compiler) action(def ActionDefinition) (action.TestAction, error) {
	if def.Spec == nil {
		return nil, &errors.ValidationError{Field: string(def.Type), Message: "action is missing"}
	}
	return def.Spec.build(c)
}

// template builds a fresh template container for every application, so
// each use has its own action instances.
func (c *compiler) template(s *ApplyTemplateSpec) (action.TestAction, error) {
	def, ok := c.templates[s.Name]
	if !ok {
		return nil, &errors.NotFoundError{Resource: "template", ID: s.Name}
	}
	if c.applying[s.Name] {
		return nil, &errors.ValidationError{
			Field:      "apply-template.name",
			Message:    fmt.Sprintf("template '%s' applies itself", s.Name),
			Suggestion: "remove the recursive apply-template",
		}
	}
	c.applying[s.Name] = true
	defer delete(c.applying, s.Name)

	children, err := c.actions(def.Actions)
	if err != nil {
		return nil, err
	}

	t := container.NewTemplate(s.Name, children...)
	t.Parameters = maps.Clone(def.Parameters)
	if t.Parameters == nil {
		t.Parameters = make(map[string]string, len(s.Parameters))
	}
	maps.Copy(t.Parameters, s.Parameters)

	switch {
	case s.GlobalContext != nil:
		t.GlobalContext = *s.GlobalContext
	case def.GlobalContext != nil:
		t.GlobalContext = *def.GlobalContext
	}
	return t, nil
}
