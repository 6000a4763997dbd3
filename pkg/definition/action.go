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

	"gopkg.in/yaml.v3"

	"github.com/tombee/citrus/pkg/action"
)

// ActionType is the YAML key selecting an action kind.
type ActionType string

const (
	ActionEcho            ActionType = "echo"
	ActionFail            ActionType = "fail"
	ActionSleep           ActionType = "sleep"
	ActionCreateVariables ActionType = "create-variables"
	ActionTraceVariables  ActionType = "trace-variables"
	ActionSend            ActionType = "send"
	ActionReceive         ActionType = "receive"
	ActionPurgeEndpoint   ActionType = "purge-endpoint"
	ActionSQL             ActionType = "sql"
	ActionSQLQuery        ActionType = "sql-query"
	ActionInput           ActionType = "input"
	ActionSequence        ActionType = "sequence"
	ActionParallel        ActionType = "parallel"
	ActionIterate         ActionType = "iterate"
	ActionRepeat          ActionType = "repeat"
	ActionRepeatOnError   ActionType = "repeat-on-error"
	ActionConditional     ActionType = "conditional"
	ActionCatch           ActionType = "catch"
	ActionAssert          ActionType = "assert"
	ActionTimer           ActionType = "timer"
	ActionStopTimer       ActionType = "stop-timer"
	ActionAsync           ActionType = "async"
	ActionWait            ActionType = "wait"
	ActionApplyTemplate   ActionType = "apply-template"
)

// Spec is the settings of one action kind. Every kind has its own Spec type.
type Spec interface {
	validate(v *validator, path string)
	build(c *compiler) (action.TestAction, error)
}

// scalarSpec is a Spec that accepts a scalar shorthand such as
// "- echo: hello".
type scalarSpec interface {
	setScalar(value string)
}

// listSpec is a container Spec that accepts its action list directly, as
// in "- parallel: [...]".
type listSpec interface {
	setActions(actions []ActionDefinition)
}

var specs = map[ActionType]func() Spec{
	ActionEcho:            func() Spec { return &EchoSpec{} },
	ActionFail:            func() Spec { return &FailSpec{} },
	ActionSleep:           func() Spec { return &SleepSpec{} },
	ActionCreateVariables: func() Spec { return &CreateVariablesSpec{} },
	ActionTraceVariables:  func() Spec { return &TraceVariablesSpec{} },
	ActionSend:            func() Spec { return &SendSpec{} },
	ActionReceive:         func() Spec { return &ReceiveSpec{} },
	ActionPurgeEndpoint:   func() Spec { return &PurgeEndpointSpec{} },
	ActionSQL:             func() Spec { return &SQLSpec{} },
	ActionSQLQuery:        func() Spec { return &SQLQuerySpec{} },
	ActionInput:           func() Spec { return &InputSpec{} },
	ActionSequence:        func() Spec { return &SequenceSpec{} },
	ActionParallel:        func() Spec { return &ParallelSpec{} },
	ActionIterate:         func() Spec { return &IterateSpec{} },
	ActionRepeat:          func() Spec { return &RepeatSpec{} },
	ActionRepeatOnError:   func() Spec { return &RepeatOnErrorSpec{} },
	ActionConditional:     func() Spec { return &ConditionalSpec{} },
	ActionCatch:           func() Spec { return &CatchSpec{} },
	ActionAssert:          func() Spec { return &AssertSpec{} },
	ActionTimer:           func() Spec { return &TimerSpec{} },
	ActionStopTimer:       func() Spec { return &StopTimerSpec{} },
	ActionAsync:           func() Spec { return &AsyncSpec{} },
	ActionWait:            func() Spec { return &WaitSpec{} },
	ActionApplyTemplate:   func() Spec { return &ApplyTemplateSpec{} },
}

// ActionTypes returns every known action type, sorted.
func ActionTypes() []ActionType {
	types := make([]ActionType, 0, len(specs))
	for t := range specs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ActionDefinition is one entry of an action list: a single-key map from
// action type to its settings.
type ActionDefinition struct {
	Type ActionType
	Spec Spec

	// Line is the YAML source line, zero for definitions built in code
	Line int
}

// Action creates an ActionDefinition from a spec.
func Action(t ActionType, spec Spec) ActionDefinition {
	return ActionDefinition{Type: t, Spec: spec}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *ActionDefinition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: an action must be a single-key map from action type to settings", node.Line)
	}
	key, value := node.Content[0], node.Content[1]

	newSpec, ok := specs[ActionType(key.Value)]
	if !ok {
		return fmt.Errorf("line %d: unknown action type %q", key.Line, key.Value)
	}
	spec := newSpec()

	switch {
	case value.Kind == yaml.ScalarNode && value.Tag == "!!null":
	case value.Kind == yaml.ScalarNode:
		s, ok := spec.(scalarSpec)
		if !ok {
			return fmt.Errorf("line %d: %s does not accept a scalar value", value.Line, key.Value)
		}
		s.setScalar(value.Value)
	case value.Kind == yaml.SequenceNode:
		s, ok := spec.(listSpec)
		if !ok {
			return fmt.Errorf("line %d: %s does not accept an action list", value.Line, key.Value)
		}
		var actions []ActionDefinition
		if err := value.Decode(&actions); err != nil {
			return err
		}
		s.setActions(actions)
	default:
		if err := value.Decode(spec); err != nil {
			return fmt.Errorf("line %d: %s: %w", value.Line, key.Value, err)
		}
	}

	a.Type = ActionType(key.Value)
	a.Spec = spec
	a.Line = key.Line
	return nil
}
