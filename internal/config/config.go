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

// Package config loads the citrus.yaml runner configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tombee/citrus/internal/datasource"
	citruserrors "github.com/tombee/citrus/pkg/errors"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

const (
	// FileName is the configuration file looked up in the working directory.
	FileName = "citrus.yaml"

	// DefaultPattern selects test definition files inside test directories.
	DefaultPattern = "**/*.citrus.yaml"

	// VariablePrefix marks environment variables that become global test
	// variables, e.g. CITRUS_VAR_host=localhost sets "host".
	VariablePrefix = "CITRUS_VAR_"
)

// Config represents the complete citrus configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Runner RunnerConfig `yaml:"runner"`
	Report ReportConfig `yaml:"report"`

	// Variables are global variables visible to every test case.
	Variables map[string]string `yaml:"variables,omitempty"`

	// Endpoints declares the message endpoints bound by name.
	Endpoints map[string]EndpointConfig `yaml:"endpoints,omitempty"`

	// DataSources declares the SQL data sources bound by name.
	DataSources map[string]DataSourceConfig `yaml:"datasources,omitempty"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: CITRUS_LOG_LEVEL, LOG_LEVEL
	// Default: info
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: text
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: LOG_SOURCE
	AddSource bool `yaml:"add_source"`
}

// RunnerConfig configures test discovery and execution.
type RunnerConfig struct {
	// Parallelism is the number of test cases run at once.
	// Environment: CITRUS_PARALLELISM
	// Default: 1
	Parallelism int `yaml:"parallelism"`

	// Timeout bounds a single test case; zero means no limit.
	// Environment: CITRUS_TIMEOUT
	Timeout time.Duration `yaml:"timeout"`

	// Pattern is the doublestar pattern matched inside test directories.
	// Default: **/*.citrus.yaml
	Pattern string `yaml:"pattern"`

	// TestDirs are searched when no paths are given on the command line.
	// Environment: CITRUS_TEST_DIRS (comma separated)
	// Default: ["."]
	TestDirs []string `yaml:"test_dirs"`

	// WatchDebounce delays a re-run after file changes in watch mode.
	// Default: 300ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// ReportConfig configures result reporting.
type ReportConfig struct {
	// MetricsFile receives Prometheus text format metrics after a run.
	// Environment: CITRUS_METRICS_FILE
	MetricsFile string `yaml:"metrics_file,omitempty"`

	// TraceFile receives OpenTelemetry spans as JSON lines.
	// Environment: CITRUS_TRACE_FILE
	TraceFile string `yaml:"trace_file,omitempty"`

	// Console prints the summary table after a run.
	// Default: true
	Console bool `yaml:"console"`
}

// EndpointConfig declares a message endpoint.
type EndpointConfig struct {
	// Type is the endpoint implementation; only "direct" is supported.
	// Default: direct
	Type string `yaml:"type"`
}

// DataSourceConfig declares a SQL data source.
type DataSourceConfig struct {
	// Driver is sqlite or mysql.
	Driver string `yaml:"driver"`

	// DSN is the driver specific connection string.
	DSN string `yaml:"dsn"`

	// MaxOpenConns limits open connections; zero means the driver default.
	MaxOpenConns int `yaml:"max_open_conns,omitempty"`
}

// Default returns a configuration with default values.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Runner: RunnerConfig{
			Parallelism:   1,
			Pattern:       DefaultPattern,
			TestDirs:      []string{"."},
			WatchDebounce: 300 * time.Millisecond,
		},
		Report: ReportConfig{
			Console: true,
		},
	}
}

// Load loads configuration from an optional .env file, the YAML file at
// configPath and environment variables, in that order of increasing
// precedence. If configPath is empty, only defaults and the environment are
// used.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	dotEnvDirs := []string{"."}
	if configPath != "" {
		dotEnvDirs = append(dotEnvDirs, filepath.Dir(configPath))
	}
	if err := loadDotEnv(dotEnvDirs...); err != nil {
		return nil, &citruserrors.ConfigError{
			Key:    "dotenv",
			Reason: "failed to load .env file",
			Cause:  err,
		}
	}

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &citruserrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	// Apply defaults to any zero values (handles minimal configs)
	cfg.applyDefaults()

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &citruserrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// Find returns the configuration file to use: citrus.yaml in the working
// directory, then the user config file. It returns "" when neither exists.
func Find() string {
	if info, err := os.Stat(FileName); err == nil && !info.IsDir() {
		return FileName
	}
	if path, err := ConfigPath(); err == nil {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadDotEnv loads the first .env file found in dirs. Variables already set
// in the environment are not overridden.
func loadDotEnv(dirs ...string) error {
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return godotenv.Load(path)
	}
	return nil
}

// applyDefaults fills in zero values with defaults.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Runner.Parallelism == 0 {
		c.Runner.Parallelism = defaults.Runner.Parallelism
	}
	if c.Runner.Pattern == "" {
		c.Runner.Pattern = defaults.Runner.Pattern
	}
	if len(c.Runner.TestDirs) == 0 {
		c.Runner.TestDirs = defaults.Runner.TestDirs
	}
	if c.Runner.WatchDebounce == 0 {
		c.Runner.WatchDebounce = defaults.Runner.WatchDebounce
	}
	for name, ep := range c.Endpoints {
		if ep.Type == "" {
			ep.Type = "direct"
			c.Endpoints[name] = ep
		}
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	// Expand home directory if present
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	// Log configuration; CITRUS_LOG_LEVEL takes precedence over LOG_LEVEL
	if val := os.Getenv("CITRUS_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	} else if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}
	if val := os.Getenv("CITRUS_DEBUG"); val == "1" || val == "true" {
		c.Log.Level = "debug"
		c.Log.AddSource = true
	}

	// Runner configuration
	if val := os.Getenv("CITRUS_PARALLELISM"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			c.Runner.Parallelism = n
		}
	}
	if val := os.Getenv("CITRUS_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Runner.Timeout = d
		}
	}
	if val := os.Getenv("CITRUS_TEST_DIRS"); val != "" {
		var dirs []string
		for _, dir := range strings.Split(val, ",") {
			if dir = strings.TrimSpace(dir); dir != "" {
				dirs = append(dirs, dir)
			}
		}
		if len(dirs) > 0 {
			c.Runner.TestDirs = dirs
		}
	}

	// Report configuration
	if val := os.Getenv("CITRUS_METRICS_FILE"); val != "" {
		c.Report.MetricsFile = val
	}
	if val := os.Getenv("CITRUS_TRACE_FILE"); val != "" {
		c.Report.TraceFile = val
	}

	// Global variables
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, VariablePrefix) || len(key) == len(VariablePrefix) {
			continue
		}
		if c.Variables == nil {
			c.Variables = make(map[string]string)
		}
		c.Variables[strings.TrimPrefix(key, VariablePrefix)] = value
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("log.level must be one of [trace, debug, info, warn, warning, error], got %q", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log.format must be one of [json, text], got %q", c.Log.Format))
	}

	if c.Runner.Parallelism < 1 {
		errs = append(errs, fmt.Sprintf("runner.parallelism must be at least 1, got %d", c.Runner.Parallelism))
	}
	if c.Runner.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("runner.timeout must not be negative, got %v", c.Runner.Timeout))
	}
	if c.Runner.WatchDebounce < 0 {
		errs = append(errs, fmt.Sprintf("runner.watch_debounce must not be negative, got %v", c.Runner.WatchDebounce))
	}
	if !doublestar.ValidatePattern(c.Runner.Pattern) {
		errs = append(errs, fmt.Sprintf("runner.pattern is not a valid pattern: %q", c.Runner.Pattern))
	}

	for _, name := range sortedKeys(c.Endpoints) {
		if ep := c.Endpoints[name]; ep.Type != "direct" {
			errs = append(errs, fmt.Sprintf("endpoints.%s.type must be direct, got %q", name, ep.Type))
		}
	}

	for _, name := range sortedKeys(c.DataSources) {
		ds := c.DataSources[name]
		if err := datasource.Validate(ds.Driver, ds.DSN); err != nil {
			errs = append(errs, fmt.Sprintf("datasources.%s: %v", name, err))
		}
		if ds.MaxOpenConns < 0 {
			errs = append(errs, fmt.Sprintf("datasources.%s.max_open_conns must not be negative, got %d", name, ds.MaxOpenConns))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}

	return nil
}
