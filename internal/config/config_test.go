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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"CITRUS_DEBUG", "CITRUS_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE",
		"CITRUS_PARALLELISM", "CITRUS_TIMEOUT", "CITRUS_TEST_DIRS",
		"CITRUS_METRICS_FILE", "CITRUS_TRACE_FILE",
	} {
		t.Setenv(v, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("expected log format 'text', got %q", cfg.Log.Format)
	}
	if cfg.Runner.Parallelism != 1 {
		t.Errorf("expected parallelism 1, got %d", cfg.Runner.Parallelism)
	}
	if cfg.Runner.Pattern != DefaultPattern {
		t.Errorf("expected pattern %q, got %q", DefaultPattern, cfg.Runner.Pattern)
	}
	if len(cfg.Runner.TestDirs) != 1 || cfg.Runner.TestDirs[0] != "." {
		t.Errorf("expected test dirs [.], got %v", cfg.Runner.TestDirs)
	}
	if !cfg.Report.Console {
		t.Errorf("expected console report enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		errText string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Log.Level = "loud" },
			errText: "log.level",
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			errText: "log.format",
		},
		{
			name:    "parallelism too low",
			modify:  func(c *Config) { c.Runner.Parallelism = 0 },
			errText: "runner.parallelism",
		},
		{
			name:    "negative timeout",
			modify:  func(c *Config) { c.Runner.Timeout = -time.Second },
			errText: "runner.timeout",
		},
		{
			name:    "bad pattern",
			modify:  func(c *Config) { c.Runner.Pattern = "[" },
			errText: "runner.pattern",
		},
		{
			name:    "unknown endpoint type",
			modify:  func(c *Config) { c.Endpoints = map[string]EndpointConfig{"orders": {Type: "jms"}} },
			errText: "endpoints.orders.type",
		},
		{
			name: "unknown driver",
			modify: func(c *Config) {
				c.DataSources = map[string]DataSourceConfig{"db": {Driver: "oracle", DSN: "x"}}
			},
			errText: "datasources.db",
		},
		{
			name: "valid datasources",
			modify: func(c *Config) {
				c.DataSources = map[string]DataSourceConfig{
					"local": {Driver: "sqlite", DSN: ":memory:"},
					"shop":  {Driver: "mysql", DSN: "user:pass@tcp(127.0.0.1:3306)/shop"},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errText == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.errText)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.errText) {
				t.Errorf("expected error containing %q, got %q", tt.errText, err.Error())
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, `
log:
  level: warn
runner:
  parallelism: 4
  timeout: 30s
  test_dirs: [tests, more-tests]
variables:
  host: localhost
endpoints:
  orders: {}
datasources:
  local:
    driver: sqlite
    dsn: ":memory:"
report:
  metrics_file: metrics.prom
  console: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level 'warn', got %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("expected default log format 'text', got %q", cfg.Log.Format)
	}
	if cfg.Runner.Parallelism != 4 {
		t.Errorf("expected parallelism 4, got %d", cfg.Runner.Parallelism)
	}
	if cfg.Runner.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", cfg.Runner.Timeout)
	}
	if cfg.Runner.Pattern != DefaultPattern {
		t.Errorf("expected default pattern, got %q", cfg.Runner.Pattern)
	}
	if len(cfg.Runner.TestDirs) != 2 {
		t.Errorf("expected 2 test dirs, got %v", cfg.Runner.TestDirs)
	}
	if cfg.Variables["host"] != "localhost" {
		t.Errorf("expected variable host=localhost, got %v", cfg.Variables)
	}
	if cfg.Endpoints["orders"].Type != "direct" {
		t.Errorf("expected endpoint type to default to direct, got %q", cfg.Endpoints["orders"].Type)
	}
	if cfg.DataSources["local"].Driver != "sqlite" {
		t.Errorf("expected sqlite data source, got %v", cfg.DataSources)
	}
	if cfg.Report.MetricsFile != "metrics.prom" || cfg.Report.Console {
		t.Errorf("unexpected report config: %+v", cfg.Report)
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, `
log:
  level: info
runner:
  parallelism: 2
`)

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CITRUS_PARALLELISM", "8")
	t.Setenv("CITRUS_TIMEOUT", "1m")
	t.Setenv("CITRUS_TEST_DIRS", "a, b")
	t.Setenv("CITRUS_TRACE_FILE", "spans.json")
	t.Setenv("CITRUS_VAR_region", "eu")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug' from env, got %q", cfg.Log.Level)
	}
	if cfg.Runner.Parallelism != 8 {
		t.Errorf("expected parallelism 8 from env, got %d", cfg.Runner.Parallelism)
	}
	if cfg.Runner.Timeout != time.Minute {
		t.Errorf("expected timeout 1m from env, got %v", cfg.Runner.Timeout)
	}
	if strings.Join(cfg.Runner.TestDirs, ",") != "a,b" {
		t.Errorf("expected test dirs [a b], got %v", cfg.Runner.TestDirs)
	}
	if cfg.Report.TraceFile != "spans.json" {
		t.Errorf("expected trace file from env, got %q", cfg.Report.TraceFile)
	}
	if cfg.Variables["region"] != "eu" {
		t.Errorf("expected variable region=eu from env, got %v", cfg.Variables)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, "runner:\n  parallelism: 1\n")
	dotEnv := filepath.Join(filepath.Dir(path), ".env")
	if err := os.WriteFile(dotEnv, []byte("CITRUS_VAR_dotenv_user=alice\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CITRUS_VAR_dotenv_user") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Variables["dotenv_user"] != "alice" {
		t.Errorf("expected variable from .env, got %v", cfg.Variables)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/citrus.yaml")
	if err == nil {
		t.Errorf("expected error for nonexistent file, got nil")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: yaml: content:")

	_, err := Load(path)
	if err == nil {
		t.Errorf("expected error for invalid YAML, got nil")
	}
}

func TestLoadValidationFailure(t *testing.T) {
	clearConfigEnv(t)
	path := writeConfig(t, "runner:\n  parallelism: -1\n")

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("expected validation error message, got %q", err.Error())
	}
}

func TestValidateTestDirs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Runner.TestDirs = []string{dir}
	if err := ValidateTestDirs(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Runner.TestDirs = []string{filepath.Join(dir, "missing"), file}
	err := ValidateTestDirs(cfg)
	if err == nil {
		t.Fatal("expected error for invalid test dirs")
	}
	if !strings.Contains(err.Error(), "does not exist") || !strings.Contains(err.Error(), "not a directory") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join("/tmp/xdg", "citrus", FileName) {
		t.Errorf("unexpected config path %q", path)
	}
}
