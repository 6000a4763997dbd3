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

// Package definition loads YAML test definitions. Parsing produces a plain
// definition tree, Validate reports problems with field paths and a Compiler
// turns a valid tree into an executable test case.
package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/testcase"
)

// FileSuffix marks test definition files.
const FileSuffix = ".citrus.yaml"

// Definition is a complete test case as written in YAML.
type Definition struct {
	// Name is the unique test case name
	Name string `yaml:"name"`

	// Package groups test cases; defaults to the directory of the file
	Package string `yaml:"package,omitempty"`

	Description string `yaml:"description,omitempty"`
	Author      string `yaml:"author,omitempty"`

	// Status is draft, final or disabled; disabled tests are skipped
	Status string `yaml:"status,omitempty"`
	Group  string `yaml:"group,omitempty"`

	// Timeout bounds the wait for async actions once the main chain is done
	Timeout Duration `yaml:"timeout,omitempty"`

	// Parameters are set as variables before the variable definitions
	Parameters map[string]string `yaml:"parameters,omitempty"`

	// Variables are resolved in order, so later values may refer to earlier ones
	Variables []VariableDefinition `yaml:"variables,omitempty"`

	// Templates are reusable action lists applied with apply-template
	Templates []TemplateDefinition `yaml:"templates,omitempty"`

	Actions []ActionDefinition `yaml:"actions"`
	Finally []ActionDefinition `yaml:"finally,omitempty"`

	// Path is the file the definition was read from, if any
	Path string `yaml:"-"`
}

// VariableDefinition declares a test variable.
type VariableDefinition struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// TemplateDefinition declares a named action list with default parameters.
type TemplateDefinition struct {
	Name       string            `yaml:"name"`
	Parameters map[string]string `yaml:"parameters,omitempty"`

	// GlobalContext defaults to true; false runs the template on a copy of
	// the caller's variables
	GlobalContext *bool `yaml:"global_context,omitempty"`

	Actions []ActionDefinition `yaml:"actions"`
}

// Duration is a Go duration string ("1.5s") or integer milliseconds. It may
// contain dynamic content, which is resolved when the action runs.
type Duration string

// Parse converts d, returning def when d is empty.
func (d Duration) Parse(def time.Duration) (time.Duration, error) {
	return action.ParseDuration(string(d), def)
}

// Parse parses a YAML test definition.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse test definition: %w", err)
	}
	return &def, nil
}

// ParseFile reads and parses the test definition at path.
func ParseFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading test definition %s", path)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	def.Path = path
	if def.Package == "" {
		def.Package = filepath.Base(filepath.Dir(path))
	}
	return def, nil
}

// Load parses, validates and compiles the test definition at path.
func Load(path string, c *Compiler) (*Definition, *testcase.TestCase, error) {
	def, err := ParseFile(path)
	if err != nil {
		return nil, nil, err
	}
	tc, err := c.Compile(def)
	if err != nil {
		return def, nil, errors.Wrap(err, path)
	}
	return def, tc, nil
}
