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

package action

import (
	"context"
	"log/slog"
	"time"

	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcontext"
)

// DefaultFailMessage is raised by a Fail action without a message.
const DefaultFailMessage = "Generated error to interrupt test execution"

// DefaultSleep is used by a Sleep action without a time.
const DefaultSleep = 5 * time.Second

// Echo logs a message.
type Echo struct {
	Base
	Message string
}

// NewEcho creates an echo action.
func NewEcho(message string) *Echo {
	return &Echo{Base: Named("echo"), Message: message}
}

// Execute implements TestAction.
func (a *Echo) Execute(_ context.Context, tc *testcontext.Context) error {
	if a.Message == "" {
		tc.Logger().Info("Citrus test " + time.Now().Format(time.RFC3339))
		return nil
	}
	msg, err := tc.ReplaceDynamicContent(a.Message)
	if err != nil {
		return err
	}
	tc.Logger().Info(msg, slog.String("action", a.Name()))
	return nil
}

// Fail always fails with a CitrusRuntimeException.
type Fail struct {
	Base
	Message string
}

// NewFail creates a fail action.
func NewFail(message string) *Fail {
	return &Fail{Base: Named("fail"), Message: message}
}

// Execute implements TestAction.
func (a *Fail) Execute(_ context.Context, tc *testcontext.Context) error {
	msg := a.Message
	if msg == "" {
		msg = DefaultFailMessage
	}
	resolved, err := tc.ReplaceDynamicContent(msg)
	if err != nil {
		return err
	}
	return &errors.ActionError{Kind: errors.KindCitrusRuntime, Action: a.Name(), Message: resolved}
}

// Sleep pauses the test for a duration.
type Sleep struct {
	Base
	// Time is a Go duration or milliseconds, dynamic content allowed.
	Time string
}

// NewSleep creates a sleep action.
func NewSleep(t string) *Sleep {
	return &Sleep{Base: Named("sleep"), Time: t}
}

// Execute implements TestAction.
func (a *Sleep) Execute(ctx context.Context, tc *testcontext.Context) error {
	raw, err := tc.ReplaceDynamicContent(a.Time)
	if err != nil {
		return err
	}
	d, err := ParseDuration(raw, DefaultSleep)
	if err != nil {
		return err
	}
	tc.Logger().Info("sleeping", slog.Duration("duration", d))
	if err := Wait(ctx, d); err != nil {
		return err
	}
	tc.Logger().Info("returning after sleep")
	return nil
}

// Variable is one name/value pair of a CreateVariables action.
type Variable struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// CreateVariables sets variables in declaration order.
type CreateVariables struct {
	Base
	Variables []Variable
}

// NewCreateVariables creates a create-variables action.
func NewCreateVariables(vars ...Variable) *CreateVariables {
	return &CreateVariables{Base: Named("create-variables"), Variables: vars}
}

// Execute implements TestAction.
func (a *CreateVariables) Execute(_ context.Context, tc *testcontext.Context) error {
	for _, v := range a.Variables {
		value, err := tc.ReplaceDynamicContent(v.Value)
		if err != nil {
			return err
		}
		tc.SetVariable(v.Name, value)
		tc.Logger().Info("setting variable", slog.String("name", v.Name), slog.String("value", value))
	}
	return nil
}

// TraceVariables logs the named variables, or all variables when none are
// named.
type TraceVariables struct {
	Base
	Names []string
}

// NewTraceVariables creates a trace-variables action.
func NewTraceVariables(names ...string) *TraceVariables {
	return &TraceVariables{Base: Named("trace-variables"), Names: names}
}

// Execute implements TestAction.
func (a *TraceVariables) Execute(_ context.Context, tc *testcontext.Context) error {
	names := a.Names
	if len(names) == 0 {
		names = tc.VariableNames()
	}
	for _, name := range names {
		value, err := tc.GetVariable(name)
		if err != nil {
			return err
		}
		tc.Logger().Info("variable", slog.String("name", name), slog.String("value", value))
	}
	return nil
}
