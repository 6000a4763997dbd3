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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/citrus/internal/commands/completion"
	"github.com/tombee/citrus/internal/commands/run"
	"github.com/tombee/citrus/internal/commands/shared"
	"github.com/tombee/citrus/internal/commands/validate"
	versioncmd "github.com/tombee/citrus/internal/commands/version"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root command with all subcommands attached
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "citrus",
		Short: "Citrus - declarative integration tests",
		Long: `Citrus runs integration tests written as YAML test definitions.

A test is an ordered list of actions (echo, send, receive, sql, sleep, ...)
combined with containers such as iterate, parallel, catch and timer, plus a
finally chain that always runs.

Run 'citrus validate <path>' to check definitions without running them.
Run 'citrus run <path>' to execute them.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	verbose, quiet, json, config := shared.RegisterFlagPointers()

	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ./citrus.yaml, then ~/.config/citrus/citrus.yaml)")

	cmd.AddCommand(run.NewCommand())
	cmd.AddCommand(validate.NewCommand())
	cmd.AddCommand(versioncmd.NewVersionCommand())
	cmd.AddCommand(completion.NewCommand())
	cmd.SetHelpCommand(NewHelpCommand(cmd))

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
