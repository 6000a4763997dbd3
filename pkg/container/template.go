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

package container

import (
	"context"
	"log/slog"
	"sort"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/testcontext"
)

// Template is a named, reusable action list with parameters. Parameters are
// resolved against the calling context and set as variables before the
// actions run. With GlobalContext the actions share the caller's variables;
// otherwise they run on a copy and their variable writes stay local.
type Template struct {
	Base
	TemplateName  string
	Parameters    map[string]string
	GlobalContext bool
}

// NewTemplate creates a template applied on the global context.
func NewTemplate(name string, actions ...action.TestAction) *Template {
	return &Template{
		Base:          Base{Base: action.Named("template"), Children: actions},
		TemplateName:  name,
		GlobalContext: true,
	}
}

// Execute implements action.TestAction.
func (t *Template) Execute(ctx context.Context, tc *testcontext.Context) error {
	target := tc
	if !t.GlobalContext {
		target = tc.Copy()
	}

	names := make([]string, 0, len(t.Parameters))
	for name := range t.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value, err := tc.ReplaceDynamicContent(t.Parameters[name])
		if err != nil {
			return err
		}
		target.SetVariable(name, value)
	}

	tc.Logger().Debug("applying template", slog.String("template", t.TemplateName))
	return RunSequence(ctx, target, t.Children)
}
