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

package completion

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tombee/citrus/internal/commands/shared"
	"github.com/tombee/citrus/internal/config"
	"github.com/tombee/citrus/internal/runner"
)

const maxTestFiles = 100

// CompleteTestFiles completes test definition paths below the working
// directory, newest first. Files that do not look like test definitions are
// skipped.
func CompleteTestFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return SafeCompletionWrapper(func() ([]string, cobra.ShellCompDirective) {
		files, err := runner.Discover([]string{"."}, testPattern())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveDefault
		}

		type candidate struct {
			path    string
			modTime int64
		}
		var candidates []candidate
		for _, f := range files {
			if !isSafeFile(f) || !isTestDefinition(f) {
				continue
			}
			info, err := os.Stat(f)
			if err != nil {
				continue
			}
			if rel, err := filepath.Rel(".", f); err == nil {
				f = rel
			}
			candidates = append(candidates, candidate{path: f, modTime: info.ModTime().UnixNano()})
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].modTime > candidates[j].modTime
		})
		if len(candidates) > maxTestFiles {
			candidates = candidates[:maxTestFiles]
		}

		paths := make([]string, 0, len(candidates))
		for _, c := range candidates {
			paths = append(paths, c.path)
		}
		return paths, cobra.ShellCompDirectiveDefault
	})
}

// testPattern returns the configured discovery pattern, or the default one
// when no configuration can be loaded.
func testPattern() string {
	path := shared.GetConfigPath()
	if path == "" {
		path = config.Find()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.DefaultPattern
	}
	return cfg.Runner.Pattern
}

// isSafeFile rejects symlinks.
func isSafeFile(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink == 0
}

// isTestDefinition reports whether path holds a YAML document with top-level
// name and actions keys.
func isTestDefinition(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return false
	}
	_, hasName := doc["name"]
	_, hasActions := doc["actions"]
	return hasName && hasActions
}

// SafeCompletionWrapper wraps a completion function with panic recovery.
// Returns empty completion list on panic or error.
func SafeCompletionWrapper(fn func() ([]string, cobra.ShellCompDirective)) (results []string, directive cobra.ShellCompDirective) {
	results = []string{}
	directive = cobra.ShellCompDirectiveNoFileComp

	defer func() {
		if r := recover(); r != nil {
			results = []string{}
			directive = cobra.ShellCompDirectiveNoFileComp
		}
	}()

	results, directive = fn()
	if results == nil {
		return []string{}, cobra.ShellCompDirectiveNoFileComp
	}
	return results, directive
}
