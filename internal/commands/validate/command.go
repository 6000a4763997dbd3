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

// Package validate implements the citrus validate command.
package validate

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/citrus/internal/commands/completion"
	"github.com/tombee/citrus/internal/commands/shared"
	"github.com/tombee/citrus/internal/config"
	"github.com/tombee/citrus/internal/runner"
	"github.com/tombee/citrus/pkg/definition"
)

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate test definitions without running them",
		Long: `Validate parses, validates and compiles test definitions. Nothing is
executed and no endpoint or data source is contacted.

Directories are searched for **/*.citrus.yaml files.

Exit Codes:
  0  All definitions are valid
  2  One or more definitions are invalid`,
		Example: `  # Validate a single definition
  citrus validate tests/order-flow.citrus.yaml

  # Validate a directory with JSON output
  citrus validate tests/ --json`,
		Args:              cobra.MinimumNArgs(1),
		SilenceUsage:      true,
		SilenceErrors:     true,
		ValidArgsFunction: completion.CompleteTestFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Validate(cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	}
	return cmd
}

// FileResult is the validation outcome of one file.
type FileResult struct {
	File     string             `json:"file"`
	Name     string             `json:"name,omitempty"`
	Actions  int                `json:"actions"`
	Finally  int                `json:"finally"`
	Valid    bool               `json:"valid"`
	Problems []shared.JSONError `json:"problems,omitempty"`
}

type validateResponse struct {
	shared.JSONResponse
	Files []FileResult `json:"files"`
}

// Validate checks every definition under paths.
func Validate(out, errOut io.Writer, paths []string) error {
	files, err := runner.Discover(paths, config.DefaultPattern)
	if err != nil {
		return shared.NewInvalidDefinitionError("", err)
	}

	compiler := definition.NewCompiler()
	results := make([]FileResult, 0, len(files))
	invalid := 0
	for _, file := range files {
		res := check(compiler, file)
		if !res.Valid {
			invalid++
		}
		results = append(results, res)
	}

	if shared.GetJSON() {
		if err := shared.WriteJSON(out, validateResponse{
			JSONResponse: shared.NewJSONResponse("validate", invalid == 0),
			Files:        results,
		}); err != nil {
			return err
		}
	} else {
		printResults(out, errOut, results)
	}

	if invalid > 0 {
		return &shared.ExitError{Code: shared.ExitInvalidDefinition}
	}
	return nil
}

func check(compiler *definition.Compiler, file string) FileResult {
	res := FileResult{File: file}
	def, tc, err := definition.Load(file, compiler)
	if def != nil {
		res.Name = def.Name
	}
	if err != nil {
		problems := definition.Problems(err)
		if len(problems) == 0 {
			res.Problems = []shared.JSONError{{File: file, Message: err.Error()}}
		}
		for _, p := range problems {
			res.Problems = append(res.Problems, shared.JSONError{
				File:       file,
				Field:      p.Field,
				Message:    p.Message,
				Suggestion: p.Suggestion,
			})
		}
		return res
	}
	res.Valid = true
	res.Actions = len(tc.Actions)
	res.Finally = len(tc.Finally)
	return res
}

func printResults(out, errOut io.Writer, results []FileResult) {
	for _, res := range results {
		if res.Valid {
			fmt.Fprintln(out, shared.RenderOK(fmt.Sprintf("%s %s",
				res.File, shared.Muted.Render(fmt.Sprintf("(%s, %d actions)", res.Name, res.Actions)))))
			continue
		}
		for _, p := range res.Problems {
			if p.Field != "" {
				fmt.Fprintln(errOut, shared.RenderError(fmt.Sprintf("%s: %s: %s", res.File, p.Field, p.Message)))
			} else {
				fmt.Fprintln(errOut, shared.RenderError(fmt.Sprintf("%s: %s", res.File, p.Message)))
			}
			if p.Suggestion != "" {
				fmt.Fprintf(errOut, "  Suggestion: %s\n", p.Suggestion)
			}
		}
	}
}
