package definition

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/container"
	citruserrors "github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcase"
	"github.com/tombee/citrus/pkg/testcontext"
)

const orderFlow = `
name: order-flow
description: places an order
author: citrus
status: final
group: orders
timeout: 2s
parameters:
  region: eu
variables:
  - name: orderId
    value: order-${region}
templates:
  - name: greet
    parameters: {who: world}
    actions:
      - create-variables:
          variables:
            - name: greeting
              value: hello ${who}
actions:
  - echo: starting ${orderId}
  - iterate:
      condition: i lt= 3
      actions:
        - create-variables:
            variables:
              - name: last
                value: ${i}
  - apply-template:
      name: greet
      parameters: {who: citrus}
  - catch:
      exception: CitrusRuntimeException
      actions:
        - fail: swallowed
  - sleep: 1
finally:
  - echo: {message: done}
`

func newFactory() *testcontext.Factory {
	var buf bytes.Buffer
	return testcontext.NewFactory(testcontext.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
}

func TestParse(t *testing.T) {
	def, err := Parse([]byte(orderFlow))
	require.NoError(t, err)

	assert.Equal(t, "order-flow", def.Name)
	assert.Equal(t, "final", def.Status)
	assert.Equal(t, Duration("2s"), def.Timeout)
	assert.Equal(t, map[string]string{"region": "eu"}, def.Parameters)
	require.Len(t, def.Actions, 5)

	assert.Equal(t, ActionEcho, def.Actions[0].Type)
	assert.Equal(t, &EchoSpec{Message: "starting ${orderId}"}, def.Actions[0].Spec)

	iterate, ok := def.Actions[1].Spec.(*IterateSpec)
	require.True(t, ok)
	assert.Equal(t, "i lt= 3", iterate.Condition)
	require.Len(t, iterate.Actions, 1)
	assert.Equal(t, ActionCreateVariables, iterate.Actions[0].Type)

	assert.Equal(t, &SleepSpec{Time: "1"}, def.Actions[4].Spec)
	assert.Equal(t, ActionEcho, def.Finally[0].Type)
	assert.Greater(t, def.Actions[0].Line, 0)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "unknown type", yaml: "name: x\nactions:\n  - teleport: {}\n", want: `unknown action type "teleport"`},
		{name: "two keys", yaml: "name: x\nactions:\n  - echo: a\n    fail: b\n", want: "single-key map"},
		{name: "scalar not accepted", yaml: "name: x\nactions:\n  - iterate: yes\n", want: "does not accept a scalar value"},
		{name: "list not accepted", yaml: "name: x\nactions:\n  - echo: [a]\n", want: "does not accept an action list"},
		{name: "malformed", yaml: "name: [x\n", want: "failed to parse test definition"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_ListShorthand(t *testing.T) {
	def, err := Parse([]byte("name: x\nactions:\n  - parallel:\n      - echo: a\n      - echo: b\n"))
	require.NoError(t, err)
	parallel, ok := def.Actions[0].Spec.(*ParallelSpec)
	require.True(t, ok)
	assert.Len(t, parallel.Actions, 2)
}

func TestValidate_FieldPaths(t *testing.T) {
	def, err := Parse([]byte(`
name: broken
status: archived
actions:
  - echo: ok
  - sleep: soon
  - iterate:
      condition: ""
      actions:
        - send: {payload: x}
  - catch:
      exception: IOException
  - wait: {time: 1s}
  - apply-template: missing
  - receive:
      endpoint: in
      extract_jq: {id: ".id | ["}
`))
	require.NoError(t, err)

	problems := Problems(def.Validate())
	fields := make([]string, 0, len(problems))
	for _, p := range problems {
		fields = append(fields, p.Field)
	}
	assert.Equal(t, []string{
		"status",
		"actions[1].sleep.time",
		"actions[2].iterate.condition",
		"actions[2].iterate.actions[0].send.endpoint",
		"actions[3].catch.exception",
		"actions[4].wait",
		"actions[5].apply-template.name",
		"actions[6].receive.extract_jq.id",
	}, fields)
}

func TestValidate_Definition(t *testing.T) {
	def := &Definition{
		Templates: []TemplateDefinition{{Name: "a"}, {Name: "a"}},
	}
	err := def.Validate()
	require.Error(t, err)

	var ve *citruserrors.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)

	fields := []string{}
	for _, p := range Problems(err) {
		fields = append(fields, p.Field)
	}
	assert.Equal(t, []string{"name", "templates[1].name", "actions"}, fields)
}

func TestValidate_DynamicValuesSkipped(t *testing.T) {
	def := &Definition{
		Name: "dynamic",
		Actions: []ActionDefinition{
			Action(ActionSleep, &SleepSpec{Time: "${delay}"}),
			Action(ActionConditional, &ConditionalSpec{Expression: "${enabled} = true"}),
		},
	}
	assert.NoError(t, def.Validate())
}

func TestCompile_Run(t *testing.T) {
	def, err := Parse([]byte(orderFlow))
	require.NoError(t, err)

	tc, err := NewCompiler().Compile(def)
	require.NoError(t, err)
	assert.Equal(t, testcase.StatusFinal, tc.Status)
	assert.Equal(t, "orders", tc.Group)
	require.Len(t, tc.Actions, 5)
	require.Len(t, tc.Finally, 1)

	tmpl, ok := tc.Actions[2].(*container.Template)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"who": "citrus"}, tmpl.Parameters)
	assert.True(t, tmpl.GlobalContext)

	c := newFactory().NewContext()
	result, err := tc.RunWithContext(context.Background(), c)
	require.NoError(t, err)
	assert.True(t, result.Success())

	last, err := c.GetVariable("last")
	require.NoError(t, err)
	assert.Equal(t, "3", last)
	greeting, err := c.GetVariable("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello citrus", greeting)
}

func TestCompile_FailingDefinition(t *testing.T) {
	def, err := Parse([]byte(`
name: fails
actions:
  - echo: first
  - fail: boom
finally:
  - create-variables:
      variables: [{name: cleaned, value: "yes"}]
`))
	require.NoError(t, err)
	tc, err := NewCompiler().Compile(def)
	require.NoError(t, err)

	c := newFactory().NewContext()
	_, err = tc.RunWithContext(context.Background(), c)
	require.Error(t, err)

	var root *citruserrors.ActionError
	require.ErrorAs(t, err, &root)
	assert.Equal(t, "boom", root.Message)
	assert.True(t, c.HasVariable("cleaned"))
}

func TestCompile_Containers(t *testing.T) {
	def, err := Parse([]byte(`
name: containers
actions:
  - parallel:
      max_concurrency: 2
      actions: [{echo: a}, {echo: b}]
  - repeat-on-error:
      condition: i gt 2
      auto_sleep: 10ms
      index: attempt
      start: 0
      actions: [{echo: retry}]
  - assert:
      exception: ValidationException
      message: bad
      action: {fail: bad}
  - timer:
      id: ticker
      interval: 5ms
      repeat_count: 2
      actions: [{echo: tick}]
  - async:
      actions: [{echo: background}]
      error: [{echo: failed}]
  - wait:
      time: 100ms
      action: {echo: ready}
  - stop-timer: ticker
  - input: {message: continue?, variable: answer, valid_answers: yes/no}
`))
	require.NoError(t, err)
	tc, err := NewCompiler(WithPrompter(action.NewReaderPrompter(bytes.NewBufferString("yes\n"), &bytes.Buffer{}))).Compile(def)
	require.NoError(t, err)

	parallel := tc.Actions[0].(*container.Parallel)
	assert.Equal(t, 2, parallel.MaxConcurrency)
	assert.Len(t, parallel.Actions(), 2)

	repeat := tc.Actions[1].(*container.RepeatOnErrorUntilTrue)
	assert.Equal(t, "attempt", repeat.IndexName)
	assert.Equal(t, 0, repeat.Start)
	assert.Equal(t, "10ms", repeat.AutoSleep)

	assertion := tc.Actions[2].(*container.Assert)
	assert.Equal(t, "ValidationException", assertion.Exception)
	assert.Equal(t, "fail", assertion.Action.Name())

	timer := tc.Actions[3].(*container.Timer)
	assert.Equal(t, 2, timer.RepeatCount)

	async := tc.Actions[4].(*container.Async)
	assert.Len(t, async.ErrorActions, 1)

	wait := tc.Actions[5].(*container.Wait)
	assert.IsType(t, &container.ActionCondition{}, wait.Condition)

	input := tc.Actions[7].(*action.Input)
	assert.Equal(t, "yes/no", input.ValidAnswers)
	assert.NotNil(t, input.Prompter)
}

func TestCompile_TemplateLocalContext(t *testing.T) {
	def, err := Parse([]byte(`
name: local
templates:
  - name: scratch
    global_context: false
    actions:
      - create-variables: {variables: [{name: inner, value: x}]}
actions:
  - apply-template: scratch
`))
	require.NoError(t, err)
	tc, err := NewCompiler().Compile(def)
	require.NoError(t, err)

	c := newFactory().NewContext()
	_, err = tc.RunWithContext(context.Background(), c)
	require.NoError(t, err)
	assert.False(t, c.HasVariable("inner"))
}

func TestCompile_RecursiveTemplate(t *testing.T) {
	def, err := Parse([]byte(`
name: loop
templates:
  - name: again
    actions:
      - apply-template: again
actions:
  - apply-template: again
`))
	require.NoError(t, err)
	_, err = NewCompiler().Compile(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "applies itself")
}

func TestLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "orders")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "flow"+FileSuffix)
	require.NoError(t, os.WriteFile(path, []byte(orderFlow), 0o644))

	def, tc, err := Load(path, NewCompiler())
	require.NoError(t, err)
	assert.Equal(t, path, def.Path)
	assert.Equal(t, "orders", tc.Package)

	_, _, err = Load(filepath.Join(dir, "missing.citrus.yaml"), NewCompiler())
	assert.Error(t, err)
}

func TestActionTypes(t *testing.T) {
	types := ActionTypes()
	assert.Len(t, types, len(specs))
	assert.Contains(t, types, ActionApplyTemplate)
	assert.Equal(t, ActionApplyTemplate, types[0])
}
