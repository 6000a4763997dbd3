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
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcontext"
)

// DefaultInputVariable receives the answer of an Input action without a
// variable name.
const DefaultInputVariable = "userinput"

// Prompter asks the user for a value.
type Prompter interface {
	Prompt(ctx context.Context, message string, validAnswers []string) (string, error)
}

// FormPrompter prompts on the terminal with a huh form.
type FormPrompter struct{}

// Prompt implements Prompter.
func (FormPrompter) Prompt(ctx context.Context, message string, validAnswers []string) (string, error) {
	var answer string
	var field huh.Field
	if len(validAnswers) > 0 {
		options := make([]huh.Option[string], 0, len(validAnswers))
		for _, a := range validAnswers {
			options = append(options, huh.NewOption(a, a))
		}
		field = huh.NewSelect[string]().Title(message).Options(options...).Value(&answer)
	} else {
		field = huh.NewInput().Title(message).Value(&answer)
	}

	if err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx); err != nil {
		return "", err
	}
	return answer, nil
}

// ReaderPrompter reads answers line by line, for non-interactive runs.
type ReaderPrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewReaderPrompter creates a prompter reading from r and echoing prompts to
// out. out may be nil.
func NewReaderPrompter(r io.Reader, out io.Writer) *ReaderPrompter {
	if out == nil {
		out = io.Discard
	}
	return &ReaderPrompter{scanner: bufio.NewScanner(r), out: out}
}

// Prompt implements Prompter.
func (p *ReaderPrompter) Prompt(ctx context.Context, message string, validAnswers []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(validAnswers) > 0 {
		fmt.Fprintf(p.out, "%s (%s): ", message, strings.Join(validAnswers, "/"))
	} else {
		fmt.Fprintf(p.out, "%s: ", message)
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// Input asks the user for a value and stores it in a variable. A variable
// that is already set is reused without prompting.
type Input struct {
	Base
	Message  string
	Variable string
	// ValidAnswers restricts accepted answers; "yes/no" style lists are split
	// on '/'.
	ValidAnswers string
	Prompter     Prompter
}

// NewInput creates an input action.
func NewInput(message, variable string) *Input {
	return &Input{Base: Named("input"), Message: message, Variable: variable}
}

// Execute implements TestAction.
func (a *Input) Execute(ctx context.Context, tc *testcontext.Context) error {
	variable := a.Variable
	if variable == "" {
		variable = DefaultInputVariable
	}
	if tc.HasVariable(variable) {
		tc.Logger().Info("variable already set, skipping user input", slog.String("variable", variable))
		return nil
	}

	msg, err := tc.ReplaceDynamicContent(a.Message)
	if err != nil {
		return err
	}
	var valid []string
	if a.ValidAnswers != "" {
		for _, v := range strings.Split(a.ValidAnswers, "/") {
			valid = append(valid, strings.TrimSpace(v))
		}
	}

	prompter := a.Prompter
	if prompter == nil {
		prompter = FormPrompter{}
	}

	for {
		answer, err := prompter.Prompt(ctx, msg, valid)
		if err != nil {
			return errors.WithCause(err, errors.KindCitrusRuntime, "failed to read user input")
		}
		if len(valid) == 0 || slices.Contains(valid, answer) {
			tc.SetVariable(variable, answer)
			return nil
		}
		tc.Logger().Warn("invalid answer", slog.String("answer", answer), slog.String("valid", a.ValidAnswers))
	}
}
