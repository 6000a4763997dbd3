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

package version

import (
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tombee/citrus/internal/commands/shared"
	"github.com/tombee/citrus/pkg/definition"
)

// VersionInfo contains version metadata
type VersionInfo struct {
	Version   string   `json:"version"`
	Commit    string   `json:"commit"`
	BuildDate string   `json:"build_date"`
	GoVersion string   `json:"go_version"`
	Platform  string   `json:"platform"`
	Actions   []string `json:"actions,omitempty"`
}

type versionResponse struct {
	shared.JSONResponse
	VersionInfo
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	var showActions bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date for citrus.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd, showActions)
		},
	}
	cmd.Flags().BoolVar(&showActions, "actions", false, "List the supported action types")

	return cmd
}

// Info collects the build information of the running binary.
func Info(withActions bool) VersionInfo {
	v, c, b := shared.GetVersion()
	info := VersionInfo{
		Version:   v,
		Commit:    c,
		BuildDate: b,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if withActions {
		for _, t := range definition.ActionTypes() {
			info.Actions = append(info.Actions, string(t))
		}
	}
	return info
}

func runVersion(cmd *cobra.Command, showActions bool) error {
	info := Info(showActions)

	if shared.GetJSON() {
		return shared.WriteJSON(cmd.OutOrStdout(), versionResponse{
			JSONResponse: shared.NewJSONResponse("version", true),
			VersionInfo:  info,
		})
	}

	cmd.Printf("citrus version %s\n", info.Version)
	cmd.Printf("  commit:     %s\n", info.Commit)
	cmd.Printf("  build date: %s\n", info.BuildDate)
	cmd.Printf("  go:         %s (%s)\n", info.GoVersion, info.Platform)
	if len(info.Actions) > 0 {
		cmd.Printf("  actions:    %s\n", strings.Join(info.Actions, ", "))
	}

	return nil
}
