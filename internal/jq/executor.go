// Package jq evaluates jq queries against JSON message payloads.
package jq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultTimeout bounds a single query evaluation.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the largest payload accepted (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// Executor runs jq queries with timeout and size limits.
type Executor struct {
	timeout      time.Duration
	maxInputSize int
}

// NewExecutor creates an executor. Zero values select the defaults.
func NewExecutor(timeout time.Duration, maxInputSize int) *Executor {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}
	return &Executor{
		timeout:      timeout,
		maxInputSize: maxInputSize,
	}
}

// Execute runs query against decoded JSON data. A query producing one value
// returns it directly; several values are returned as a slice.
func (e *Executor) Execute(ctx context.Context, query string, data any) (any, error) {
	if query == "" {
		return data, nil
	}

	code, err := compile(query)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var results []any
	iter := code.RunWithContext(execCtx, data)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if execCtx.Err() != nil {
				return nil, fmt.Errorf("jq query '%s' timed out after %v", query, e.timeout)
			}
			return nil, fmt.Errorf("jq query '%s' failed: %w", query, err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

// ExtractString decodes payload as JSON, runs query and renders the result as
// a string. String results are returned unquoted; everything else is JSON.
func (e *Executor) ExtractString(ctx context.Context, query, payload string) (string, error) {
	if len(payload) > e.maxInputSize {
		return "", fmt.Errorf("payload size (%d bytes) exceeds maximum (%d bytes)", len(payload), e.maxInputSize)
	}

	var data any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return "", fmt.Errorf("payload is not valid JSON: %w", err)
	}

	result, err := e.Execute(ctx, query, data)
	if err != nil {
		return "", err
	}

	switch v := result.(type) {
	case nil:
		return "", fmt.Errorf("jq query '%s' produced no result", query)
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to render jq result: %w", err)
		}
		return string(b), nil
	}
}

// Validate checks that query parses and compiles.
func (e *Executor) Validate(query string) error {
	if query == "" {
		return nil
	}
	_, err := compile(query)
	return err
}

func compile(query string) (*gojq.Code, error) {
	parsed, err := gojq.Parse(query)
	if err != nil {
		return nil, fmt.Errorf("invalid jq query '%s': %w", query, err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed for '%s': %w", query, err)
	}
	return code, nil
}
