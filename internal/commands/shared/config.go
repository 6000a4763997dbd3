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

package shared

import (
	"io"
	"log/slog"

	"github.com/tombee/citrus/internal/config"
	"github.com/tombee/citrus/internal/log"
)

// LoadConfig loads the configuration named by --config, falling back to
// citrus.yaml in the working directory and then the user config file.
func LoadConfig() (*config.Config, error) {
	path := GetConfigPath()
	if path == "" {
		path = config.Find()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, NewInvalidDefinitionError("", err)
	}
	return cfg, nil
}

// NewLogger creates the command logger from cfg. --verbose lowers the level
// to debug, --quiet raises it to error.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	logCfg := &log.Config{
		Level:     cfg.Log.Level,
		Format:    log.Format(cfg.Log.Format),
		Output:    w,
		AddSource: cfg.Log.AddSource,
	}
	switch {
	case GetQuiet():
		logCfg.Level = "error"
	case GetVerbose() && log.ParseLevel(logCfg.Level) > slog.LevelDebug:
		logCfg.Level = "debug"
	}
	return log.New(logCfg)
}
