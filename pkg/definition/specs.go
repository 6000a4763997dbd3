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

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/container"
)

// EchoSpec logs a message.
type EchoSpec struct {
	Message string `yaml:"message"`
}

func (s *EchoSpec) setScalar(value string) { s.Message = value }

func (s *EchoSpec) validate(*validator, string) {}

func (s *EchoSpec) build(*compiler) (action.TestAction, error) {
	return action.NewEcho(s.Message), nil
}

// FailSpec fails the test.
type FailSpec struct {
	Message string `yaml:"message"`
}

func (s *FailSpec) setScalar(value string) { s.Message = value }

func (s *FailSpec) validate(*validator, string) {}

func (s *FailSpec) build(*compiler) (action.TestAction, error) {
	return action.NewFail(s.Message), nil
}

// SleepSpec pauses the test.
type SleepSpec struct {
	Time Duration `yaml:"time"`
}

func (s *SleepSpec) setScalar(value string) { s.Time = Duration(value) }

func (s *SleepSpec) validate(v *validator, path string) {
	v.duration(path+".time", s.Time)
}

func (s *SleepSpec) build(*compiler) (action.TestAction, error) {
	return action.NewSleep(string(s.Time)), nil
}

// CreateVariablesSpec sets variables.
type CreateVariablesSpec struct {
	Variables []VariableDefinition `yaml:"variables"`
}

func (s *CreateVariablesSpec) validate(v *validator, path string) {
	if len(s.Variables) == 0 {
		v.fail(path+".variables", "at least one variable is required", "")
	}
	for i, variable := range s.Variables {
		v.required(fmt.Sprintf("%s.variables[%d].name", path, i), variable.Name, "variable name")
	}
}

func (s *CreateVariablesSpec) build(*compiler) (action.TestAction, error) {
	vars := make([]action.Variable, 0, len(s.Variables))
	for _, variable := range s.Variables {
		vars = append(vars, action.Variable{Name: variable.Name, Value: variable.Value})
	}
	return action.NewCreateVariables(vars...), nil
}

// TraceVariablesSpec logs variables; no names logs all of them.
type TraceVariablesSpec struct {
	Names []string `yaml:"names"`
}

func (s *TraceVariablesSpec) setScalar(value string) { s.Names = []string{value} }

func (s *TraceVariablesSpec) validate(*validator, string) {}

func (s *TraceVariablesSpec) build(*compiler) (action.TestAction, error) {
	return action.NewTraceVariables(s.Names...), nil
}

// SendSpec sends a message to an endpoint.
type SendSpec struct {
	Endpoint string            `yaml:"endpoint"`
	Name     string            `yaml:"name,omitempty"`
	Payload  string            `yaml:"payload"`
	Headers  map[string]string `yaml:"headers,omitempty"`
}

func (s *SendSpec) validate(v *validator, path string) {
	v.required(path+".endpoint", s.Endpoint, "endpoint")
}

func (s *SendSpec) build(*compiler) (action.TestAction, error) {
	a := action.NewSend(s.Endpoint, s.Payload)
	a.MessageName = s.Name
	a.Headers = s.Headers
	return a, nil
}

// ReceiveSpec receives and validates a message.
type ReceiveSpec struct {
	Endpoint string            `yaml:"endpoint"`
	Name     string            `yaml:"name,omitempty"`
	Timeout  Duration          `yaml:"timeout,omitempty"`
	Selector map[string]string `yaml:"selector,omitempty"`
	Payload  string            `yaml:"payload,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`

	// ExtractHeaders maps header name to variable name
	ExtractHeaders map[string]string `yaml:"extract_headers,omitempty"`
	// ExtractJQ maps variable name to a jq query over the payload
	ExtractJQ map[string]string `yaml:"extract_jq,omitempty"`
}

func (s *ReceiveSpec) validate(v *validator, path string) {
	v.required(path+".endpoint", s.Endpoint, "endpoint")
	v.duration(path+".timeout", s.Timeout)
	for _, variable := range sortedKeys(s.ExtractJQ) {
		v.query(fmt.Sprintf("%s.extract_jq.%s", path, variable), s.ExtractJQ[variable])
	}
}

func (s *ReceiveSpec) build(c *compiler) (action.TestAction, error) {
	a := action.NewReceive(s.Endpoint)
	a.MessageName = s.Name
	a.Timeout = string(s.Timeout)
	a.Selector = s.Selector
	a.Payload = s.Payload
	a.Headers = s.Headers
	a.ExtractHeaders = s.ExtractHeaders
	a.ExtractJQ = s.ExtractJQ
	a.JQ = c.jq
	return a, nil
}

// PurgeEndpointSpec drops queued messages.
type PurgeEndpointSpec struct {
	Endpoints []string          `yaml:"endpoints"`
	Selector  map[string]string `yaml:"selector,omitempty"`
}

func (s *PurgeEndpointSpec) validate(v *validator, path string) {
	if len(s.Endpoints) == 0 {
		v.fail(path+".endpoints", "at least one endpoint is required", "")
	}
	for i, name := range s.Endpoints {
		v.required(fmt.Sprintf("%s.endpoints[%d]", path, i), name, "endpoint")
	}
}

func (s *PurgeEndpointSpec) build(*compiler) (action.TestAction, error) {
	a := action.NewPurgeEndpoint(s.Endpoints...)
	a.Selector = s.Selector
	return a, nil
}

// SQLSpec executes SQL statements.
type SQLSpec struct {
	DataSource   string   `yaml:"datasource"`
	Statements   []string `yaml:"statements,omitempty"`
	Resource     string   `yaml:"resource,omitempty"`
	IgnoreErrors bool     `yaml:"ignore_errors,omitempty"`
}

func (s *SQLSpec) validate(v *validator, path string) {
	validateSQL(v, path, s.DataSource, s.Statements, s.Resource)
}

func (s *SQLSpec) build(*compiler) (action.TestAction, error) {
	a := action.NewExecuteSQL(s.DataSource, s.Statements...)
	a.Resource = s.Resource
	a.IgnoreErrors = s.IgnoreErrors
	return a, nil
}

// SQLQuerySpec runs queries, validates columns and extracts variables.
type SQLQuerySpec struct {
	DataSource string   `yaml:"datasource"`
	Statements []string `yaml:"statements,omitempty"`
	Resource   string   `yaml:"resource,omitempty"`

	// Validate maps a column to its expected values
	Validate map[string][]string `yaml:"validate,omitempty"`
	// Extract maps a column to a variable name
	Extract map[string]string `yaml:"extract,omitempty"`
}

func (s *SQLQuerySpec) validate(v *validator, path string) {
	validateSQL(v, path, s.DataSource, s.Statements, s.Resource)
}

func (s *SQLQuerySpec) build(*compiler) (action.TestAction, error) {
	a := action.NewExecuteSQLQuery(s.DataSource, s.Statements...)
	a.Resource = s.Resource
	a.Validate = s.Validate
	a.Extract = s.Extract
	return a, nil
}

func validateSQL(v *validator, path, dataSource string, statements []string, resource string) {
	v.required(path+".datasource", dataSource, "data source")
	if len(statements) == 0 && resource == "" {
		v.fail(path+".statements", "statements or resource is required", "list the SQL statements or point resource at a .sql file")
	}
}

// InputSpec asks the user for a value.
type InputSpec struct {
	Message      string `yaml:"message"`
	Variable     string `yaml:"variable,omitempty"`
	ValidAnswers string `yaml:"valid_answers,omitempty"`
}

func (s *InputSpec) validate(*validator, string) {}

func (s *InputSpec) build(c *compiler) (action.TestAction, error) {
	a := action.NewInput(s.Message, s.Variable)
	a.ValidAnswers = s.ValidAnswers
	a.Prompter = c.prompter
	return a, nil
}

// SequenceSpec runs actions in order.
type SequenceSpec struct {
	Actions []ActionDefinition `yaml:"actions"`
}

func (s *SequenceSpec) setActions(actions []ActionDefinition) { s.Actions = actions }

func (s *SequenceSpec) validate(v *validator, path string) {
	v.actions(path+".actions", s.Actions)
}

func (s *SequenceSpec) build(c *compiler) (action.TestAction, error) {
	children, err := c.actions(s.Actions)
	if err != nil {
		return nil, err
	}
	return container.NewSequence(children...), nil
}

// ParallelSpec runs actions concurrently.
type ParallelSpec struct {
	// MaxConcurrency limits concurrent children; zero means no limit
	MaxConcurrency int                `yaml:"max_concurrency,omitempty"`
	Actions        []ActionDefinition `yaml:"actions"`
}

func (s *ParallelSpec) setActions(actions []ActionDefinition) { s.Actions = actions }

func (s *ParallelSpec) validate(v *validator, path string) {
	if s.MaxConcurrency < 0 {
		v.fail(path+".max_concurrency", "must not be negative", "omit it or use 0 for no limit")
	}
	v.actions(path+".actions", s.Actions)
}

func (s *ParallelSpec) build(c *compiler) (action.TestAction, error) {
	children, err := c.actions(s.Actions)
	if err != nil {
		return nil, err
	}
	p := container.NewParallel(children...)
	p.MaxConcurrency = s.MaxConcurrency
	return p, nil
}

// LoopSpec holds the settings shared by iterate and repeat.
type LoopSpec struct {
	Condition string `yaml:"condition"`
	// Index names the index variable; defaults to "i"
	Index string `yaml:"index,omitempty"`
	// Start defaults to 1
	Start *int `yaml:"start,omitempty"`
	// Step defaults to 1
	Step    int                `yaml:"step,omitempty"`
	Actions []ActionDefinition `yaml:"actions"`
}

func (s *LoopSpec) validate(v *validator, path string) {
	v.condition(path+".condition", s.Condition)
	v.actions(path+".actions", s.Actions)
}

func (s *LoopSpec) configure(loop *container.Loop) {
	loop.IndexName = s.Index
	if s.Start != nil {
		loop.Start = *s.Start
	}
	loop.Step = s.Step
}

// IterateSpec runs actions while the condition holds.
type IterateSpec struct {
	LoopSpec `yaml:",inline"`
}

func (s *IterateSpec) build(c *compiler) (action.TestAction, error) {
	children, err := c.actions(s.Actions)
	if err != nil {
		return nil, err
	}
	it := container.NewIterate(s.Condition, children...)
	s.configure(&it.Loop)
	return it, nil
}

// RepeatSpec runs actions until the condition holds, at least once.
type RepeatSpec struct {
	LoopSpec `yaml:",inline"`
}

func (s *RepeatSpec) build(c *compiler) (action.TestAction, error) {
	children, err := c.actions(s.Actions)
	if err != nil {
		return nil, err
	}
	r := container.NewRepeatUntilTrue(s.Condition, children...)
	s.configure(&r.Loop)
	return r, nil
}

// RepeatOnErrorSpec retries failing actions until the condition holds.
type RepeatOnErrorSpec struct {
	LoopSpec `yaml:",inline"`
	// AutoSleep is the pause after a failed pass; defaults to 1s
	AutoSleep Duration `yaml:"auto_sleep,omitempty"`
}

func (s *RepeatOnErrorSpec) validate(v *validator, path string) {
	s.LoopSpec.validate(v, path)
	v.duration(path+".auto_sleep", s.AutoSleep)
}

func (s *RepeatOnErrorSpec) build(c *compiler) (action.TestAction, error) {
	children, err := c.actions(s.Actions)
	if err != nil {
		return nil, err
	}
	r := container.NewRepeatOnErrorUntilTrue(s.Condition, children...)
	s.configure(&r.Loop)
	r.AutoSleep = string(s.AutoSleep)
	return r, nil
}

// ConditionalSpec runs actions when the expression holds.
type ConditionalSpec struct {
	Expression string             `yaml:"expression"`
	Actions    []ActionDefinition `yaml:"actions"`
}

func (s *ConditionalSpec) validate(v *validator, path string) {
	v.condition(path+".expression", s.Expression)
	v.actions(path+".actions", s.Actions)
}

func (s *ConditionalSpec) build(c *compiler) (action.TestAction, error) {
	children, err := c.actions(s.Actions)
	if err != nil {
		return nil, err
	}
	return container.NewConditional(s.Expression, children...), nil
}

// CatchSpec swallows failures of a kind.
type CatchSpec struct {
	// Exception defaults to CitrusRuntimeException
	Exception string             `yaml:"exception,omitempty"`
	Actions   []ActionDefinition `yaml:"actions"`
}

func (s *CatchSpec) validate(v *validator, path string) {
	v.kind(path+".exception", s.Exception)
	v.actions(path+".actions", s.Actions)
}

func (s *CatchSpec) build(c *compiler) (action.TestAction, error) {
	children, err := c.actions(s.Actions)
	if err != nil {
		return nil, err
	}
	return container.NewCatch(s.Exception, children...), nil
}

// AssertSpec expects an action to fail.
type AssertSpec struct {
	Exception string           `yaml:"exception,omitempty"`
	Message   string           `yaml:"message,omitempty"`
	Action    ActionDefinition `yaml:"action"`
}

func (s *AssertSpec) validate(v *validator, path string) {
	v.kind(path+".exception", s.Exception)
	v.action(path+".action", s.Action)
}

func (s *AssertSpec) build(c *compiler) (action.TestAction, error) {
	child, err := c.action(s.Action)
	if err != nil {
		return nil, err
	}
	a := container.NewAssert(s.Exception, child)
	a.Message = s.Message
	return a, nil
}

// TimerSpec repeats actions on an interval.
type TimerSpec struct {
	ID              string             `yaml:"id,omitempty"`
	Delay           Duration           `yaml:"delay,omitempty"`
	Interval        Duration           `yaml:"interval,omitempty"`
	RepeatCount     int                `yaml:"repeat_count,omitempty"`
	Fork            bool               `yaml:"fork,omitempty"`
	ContinueOnError bool               `yaml:"continue_on_error,omitempty"`
	Actions         []ActionDefinition `yaml:"actions"`
}

func (s *TimerSpec) validate(v *validator, path string) {
	v.duration(path+".delay", s.Delay)
	v.duration(path+".interval", s.Interval)
	if s.RepeatCount < 0 {
		v.fail(path+".repeat_count", "must not be negative", "omit it to repeat until stopped")
	}
	v.actions(path+".actions", s.Actions)
}

func (s *TimerSpec) build(c *compiler) (action.TestAction, error) {
	children, err := c.actions(s.Actions)
	if err != nil {
		return nil, err
	}
	t := container.NewTimer(s.ID, children...)
	t.Delay = string(s.Delay)
	t.Interval = string(s.Interval)
	t.RepeatCount = s.RepeatCount
	t.Fork = s.Fork
	t.ContinueOnError = s.ContinueOnError
	return t, nil
}

// StopTimerSpec stops a timer; without an id every timer stops.
type StopTimerSpec struct {
	ID string `yaml:"id,omitempty"`
}

func (s *StopTimerSpec) setScalar(value string) { s.ID = value }

func (s *StopTimerSpec) validate(*validator, string) {}

func (s *StopTimerSpec) build(*compiler) (action.TestAction, error) {
	return container.NewStopTimer(s.ID), nil
}

// AsyncSpec runs actions in the background.
type AsyncSpec struct {
	Actions []ActionDefinition `yaml:"actions"`
	Success []ActionDefinition `yaml:"success,omitempty"`
	Error   []ActionDefinition `yaml:"error,omitempty"`
}

func (s *AsyncSpec) setActions(actions []ActionDefinition) { s.Actions = actions }

func (s *AsyncSpec) validate(v *validator, path string) {
	v.actions(path+".actions", s.Actions)
	v.actions(path+".success", s.Success)
	v.actions(path+".error", s.Error)
}

func (s *AsyncSpec) build(c *compiler) (action.TestAction, error) {
	children, err := c.actions(s.Actions)
	if err != nil {
		return nil, err
	}
	a := container.NewAsync(children...)
	if a.SuccessActions, err = c.actions(s.Success); err != nil {
		return nil, err
	}
	if a.ErrorActions, err = c.actions(s.Error); err != nil {
		return nil, err
	}
	return a, nil
}

// WaitSpec polls exactly one condition until it holds or time runs out.
type WaitSpec struct {
	Time     Duration `yaml:"time,omitempty"`
	Interval Duration `yaml:"interval,omitempty"`

	File    string             `yaml:"file,omitempty"`
	HTTP    *HTTPConditionSpec `yaml:"http,omitempty"`
	Message string             `yaml:"message,omitempty"`
	Action  *ActionDefinition  `yaml:"action,omitempty"`
}

// HTTPConditionSpec waits for a URL to answer with a status.
type HTTPConditionSpec struct {
	URL     string   `yaml:"url"`
	Method  string   `yaml:"method,omitempty"`
	Status  string   `yaml:"status,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

func (s *WaitSpec) validate(v *validator, path string) {
	v.duration(path+".time", s.Time)
	v.duration(path+".interval", s.Interval)

	set := 0
	if s.File != "" {
		set++
	}
	if s.Message != "" {
		set++
	}
	if s.HTTP != nil {
		set++
		v.required(path+".http.url", s.HTTP.URL, "url")
		v.duration(path+".http.timeout", s.HTTP.Timeout)
	}
	if s.Action != nil {
		set++
		v.action(path+".action", *s.Action)
	}
	if set != 1 {
		v.fail(path, "exactly one condition is required", "set one of file, http, message or action")
	}
}

func (s *WaitSpec) build(c *compiler) (action.TestAction, error) {
	var condition container.Condition
	switch {
	case s.File != "":
		condition = &container.FileCondition{Path: s.File}
	case s.Message != "":
		condition = &container.MessageCondition{MessageName: s.Message}
	case s.HTTP != nil:
		condition = &container.HTTPCondition{
			URL:     s.HTTP.URL,
			Method:  s.HTTP.Method,
			Status:  s.HTTP.Status,
			Timeout: string(s.HTTP.Timeout),
		}
	case s.Action != nil:
		child, err := c.action(*s.Action)
		if err != nil {
			return nil, err
		}
		condition = &container.ActionCondition{Action: child}
	}
	w := container.NewWait(condition)
	w.Time = string(s.Time)
	w.Interval = string(s.Interval)
	return w, nil
}

// ApplyTemplateSpec runs a template declared in the same definition.
type ApplyTemplateSpec struct {
	Name string `yaml:"name"`
	// Parameters override the template's defaults
	Parameters map[string]string `yaml:"parameters,omitempty"`
	// GlobalContext overrides the template's setting
	GlobalContext *bool `yaml:"global_context,omitempty"`
}

func (s *ApplyTemplateSpec) setScalar(value string) { s.Name = value }

func (s *ApplyTemplateSpec) validate(v *validator, path string) {
	v.required(path+".name", s.Name, "template name")
	if s.Name != "" && !v.templates[s.Name] {
		v.fail(path+".name", fmt.Sprintf("unknown template '%s'", s.Name), "declare it under templates")
	}
}

func (s *ApplyTemplateSpec) build(c *compiler) (action.TestAction, error) {
	return c.template(s)
}
