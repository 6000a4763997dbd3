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

// Package run implements the citrus run command.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tombee/citrus/internal/commands/completion"
	"github.com/tombee/citrus/internal/commands/shared"
	"github.com/tombee/citrus/internal/config"
	"github.com/tombee/citrus/internal/report"
	"github.com/tombee/citrus/internal/runner"
	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/definition"
	"github.com/tombee/citrus/pkg/testcase"
)

// Options holds the run command flags.
type Options struct {
	Parallel    int
	Timeout     time.Duration
	Watch       bool
	MetricsFile string
	TraceFile   string
}

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run test definitions",
		Long: `Run discovers test definitions and executes them.

Directories are searched for files matching runner.pattern (default
**/*.citrus.yaml). Glob patterns and single files are accepted as well.
Without paths the configured runner.test_dirs are used.

Exit Codes:
  0  All tests passed
  1  One or more tests failed
  2  Invalid test definition, configuration or discovery error`,
		Example: `  # Run every test below the current directory
  citrus run

  # Run four tests at a time with a 30s limit per test
  citrus run tests/ --parallel 4 --timeout 30s

  # Re-run on every change and export metrics
  citrus run tests/ --watch --metrics-file citrus.prom`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		ValidArgsFunction: completion.CompleteTestFiles,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), args, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "Number of tests run at once (default: runner.parallelism)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Time limit per test (default: runner.timeout)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-run tests when definitions change")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each run")
	cmd.Flags().StringVar(&opts.TraceFile, "trace-file", "", "Write OpenTelemetry spans to this file")

	return cmd
}

// session holds the collaborators shared by the runs of one command.
type session struct {
	out       io.Writer
	logger    *slog.Logger
	runner    *runner.Runner
	collector *report.Collector
	metrics   *report.Metrics
	cfg       *config.Config
}

// Run executes the run command.
func Run(ctx context.Context, out, errOut io.Writer, paths []string, opts Options) error {
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}
	if opts.MetricsFile != "" {
		cfg.Report.MetricsFile = opts.MetricsFile
	}
	if opts.TraceFile != "" {
		cfg.Report.TraceFile = opts.TraceFile
	}
	if len(paths) == 0 {
		paths = cfg.Runner.TestDirs
	}

	logger := shared.NewLogger(cfg, errOut)
	s := &session{
		out:       out,
		logger:    logger,
		collector: report.NewCollector(),
		cfg:       cfg,
	}
	listeners := []testcase.Listener{report.NewLogListener(logger), s.collector}

	if cfg.Report.MetricsFile != "" {
		s.metrics = report.NewMetrics()
		listeners = append(listeners, s.metrics)
	}
	if cfg.Report.TraceFile != "" {
		v, _, _ := shared.GetVersion()
		tracer, err := report.NewFileTracer(cfg.Report.TraceFile, v)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := tracer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to flush traces", slog.Any("error", err))
			}
		}()
		listeners = append(listeners, tracer)
	}

	s.runner, err = runner.New(ctx, cfg,
		runner.WithLogger(logger),
		runner.WithParallelism(opts.Parallel),
		runner.WithTimeout(opts.Timeout),
		runner.WithListeners(listeners...),
		runner.WithCompiler(definition.NewCompiler(definition.WithPrompter(newPrompter(errOut)))),
	)
	if err != nil {
		return shared.NewInvalidDefinitionError("failed to set up runner", err)
	}
	defer s.runner.Close()

	if !opts.Watch {
		return s.runOnce(ctx, paths)
	}

	if err := s.runOnce(ctx, paths); err != nil {
		reportWatchError(errOut, err)
	}
	return runner.Watch(ctx, watchDirs(paths), cfg.Runner.Pattern, cfg.Runner.WatchDebounce, logger,
		func(ctx context.Context, changed []string) {
			logger.Info("re-running tests", slog.Int("changed", len(changed)))
			if err := s.runOnce(ctx, paths); err != nil {
				reportWatchError(errOut, err)
			}
		})
}

func (s *session) runOnce(ctx context.Context, paths []string) error {
	start := time.Now()
	s.collector.Reset()

	if _, err := s.runner.Run(ctx, paths); err != nil {
		return s.loadFailure(err)
	}
	summary := s.collector.Summary(time.Since(start))

	if s.metrics != nil {
		if err := s.metrics.WriteFile(s.cfg.Report.MetricsFile); err != nil {
			s.logger.Warn("failed to export metrics", slog.Any("error", err))
		}
	}

	if shared.GetJSON() {
		if err := shared.WriteJSON(s.out, newRunResponse(summary)); err != nil {
			return err
		}
	} else if s.cfg.Report.Console {
		if err := report.WriteSummary(s.out, summary); err != nil {
			return err
		}
	}

	if !summary.Success() {
		return shared.NewTestsFailedError(fmt.Sprintf("%d of %d tests failed", summary.Failed, summary.Total), nil)
	}
	return nil
}

// loadFailure reports discovery and definition errors.
func (s *session) loadFailure(err error) error {
	var loadErr *runner.LoadError
	if !errors.As(err, &loadErr) {
		return shared.NewInvalidDefinitionError("", err)
	}
	if shared.GetJSON() {
		resp := struct {
			shared.JSONResponse
			Errors []shared.JSONError `json:"errors"`
		}{
			JSONResponse: shared.NewJSONResponse("run", false),
			Errors:       loadErrors(err),
		}
		if werr := shared.WriteJSON(s.out, resp); werr != nil {
			return werr
		}
		return &shared.ExitError{Code: shared.ExitInvalidDefinition}
	}
	return shared.NewInvalidDefinitionError("invalid test definitions", err)
}

// loadErrors flattens load failures into one entry per problem.
func loadErrors(err error) []shared.JSONError {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}

	var out []shared.JSONError
	for _, e := range errs {
		file := ""
		var loadErr *runner.LoadError
		if errors.As(e, &loadErr) {
			file = loadErr.Path
		}
		problems := definition.Problems(e)
		if len(problems) == 0 {
			out = append(out, shared.JSONError{File: file, Message: e.Error()})
			continue
		}
		for _, p := range problems {
			out = append(out, shared.JSONError{File: file, Field: p.Field, Message: p.Message, Suggestion: p.Suggestion})
		}
	}
	return out
}

type resultJSON struct {
	Name       string `json:"name"`
	Package    string `json:"package,omitempty"`
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Actions    int    `json:"actions_executed"`
	Error      string `json:"error,omitempty"`
}

type runResponse struct {
	shared.JSONResponse
	Total      int          `json:"total"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	DurationMS int64        `json:"duration_ms"`
	Results    []resultJSON `json:"results"`
}

func newRunResponse(s report.Summary) runResponse {
	resp := runResponse{
		JSONResponse: shared.NewJSONResponse("run", s.Success()),
		Total:        s.Total,
		Passed:       s.Passed,
		Failed:       s.Failed,
		Skipped:      s.Skipped,
		DurationMS:   s.Duration.Milliseconds(),
		Results:      make([]resultJSON, 0, len(s.Results)),
	}
	for _, r := range s.Results {
		resp.Results = append(resp.Results, resultJSON{
			Name:       r.Name,
			Package:    r.Package,
			RunID:      r.RunID,
			Status:     string(r.Status),
			DurationMS: r.Duration.Milliseconds(),
			Actions:    r.ActionsExecuted,
			Error:      r.ErrorMessage(),
		})
	}
	return resp
}

// newPrompter uses an interactive form on a terminal and plain line input
// otherwise.
func newPrompter(out io.Writer) action.Prompter {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return action.FormPrompter{}
	}
	return action.NewReaderPrompter(os.Stdin, out)
}

// watchDirs returns the directories to watch for paths. Files are watched
// through their parent directory and globs through their static prefix.
func watchDirs(paths []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		dir := p
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			dir = filepath.Dir(p)
			if strings.ContainsAny(p, "*?[{") {
				dir, _ = doublestar.SplitPattern(filepath.ToSlash(p))
				dir = filepath.FromSlash(dir)
			}
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

func reportWatchError(w io.Writer, err error) {
	var exitErr *shared.ExitError
	if errors.As(err, &exitErr) && exitErr.Message == "" && exitErr.Cause == nil {
		return
	}
	fmt.Fprintln(w, shared.RenderError(err.Error()))
}
