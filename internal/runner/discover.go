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

package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover expands paths into test definition files. Directories are
// searched with pattern, glob paths are expanded as given and plain files
// are taken as they are. The result is sorted and free of duplicates.
func Discover(paths []string, pattern string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, path := range paths {
		matches, err := expand(path, pattern)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			abs, err := filepath.Abs(match)
			if err != nil {
				return nil, err
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			files = append(files, match)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no test definitions found in %s", strings.Join(paths, ", "))
	}
	sort.Strings(files)
	return files, nil
}

func expand(path, pattern string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if isGlob(path) {
			matches, gerr := doublestar.FilepathGlob(path, doublestar.WithFilesOnly())
			if gerr != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", path, gerr)
			}
			return matches, nil
		}
		return nil, fmt.Errorf("path %q not found: %w", path, err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(path), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", path, err)
	}
	for i, m := range matches {
		matches[i] = filepath.Join(path, filepath.FromSlash(m))
	}
	return matches, nil
}

func isGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}
