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

package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ValidateTestDirs checks that every configured test directory exists.
// Returns an error listing all missing or invalid directories.
func ValidateTestDirs(cfg *Config) error {
	var problems []string
	for _, dir := range cfg.Runner.TestDirs {
		info, err := os.Stat(dir)
		switch {
		case os.IsNotExist(err):
			problems = append(problems, fmt.Sprintf("%s (does not exist)", dir))
		case err != nil:
			problems = append(problems, fmt.Sprintf("%s (%v)", dir, err))
		case !info.IsDir():
			problems = append(problems, fmt.Sprintf("%s (not a directory)", dir))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid runner.test_dirs:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
