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

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/testcontext"
)

// Sequence executes its children one after another and stops at the first
// failure.
type Sequence struct {
	Base
}

// NewSequence creates a sequence container.
func NewSequence(actions ...action.TestAction) *Sequence {
	return &Sequence{Base: Base{Base: action.Named("sequential"), Children: actions}}
}

// Execute implements action.TestAction.
func (s *Sequence) Execute(ctx context.Context, tc *testcontext.Context) error {
	return RunSequence(ctx, tc, s.Children)
}
