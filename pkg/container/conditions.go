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

package container

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tombee/citrus/pkg/action"
	"github.com/tombee/citrus/pkg/httpclient"
	"github.com/tombee/citrus/pkg/testcontext"
)

// FileCondition is satisfied when a regular file exists.
type FileCondition struct {
	Path string
}

// Name implements Condition.
func (c *FileCondition) Name() string {
	return "file " + c.Path
}

// IsSatisfied implements Condition.
func (c *FileCondition) IsSatisfied(_ context.Context, tc *testcontext.Context) (bool, error) {
	path, err := tc.ReplaceDynamicContent(c.Path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// HTTPCondition is satisfied when a URL answers with the expected status.
type HTTPCondition struct {
	URL string
	// Method defaults to HEAD.
	Method string
	// Status is the expected status code; empty means 200.
	Status string
	// Timeout bounds each request; empty means 1s.
	Timeout string
}

// Name implements Condition.
func (c *HTTPCondition) Name() string {
	return "http " + c.URL
}

// IsSatisfied implements Condition.
func (c *HTTPCondition) IsSatisfied(ctx context.Context, tc *testcontext.Context) (bool, error) {
	target, err := tc.ReplaceDynamicContent(c.URL)
	if err != nil {
		return false, err
	}
	expected := http.StatusOK
	if c.Status != "" {
		raw, err := tc.ReplaceDynamicContent(c.Status)
		if err != nil {
			return false, err
		}
		if expected, err = strconv.Atoi(strings.TrimSpace(raw)); err != nil {
			return false, fmt.Errorf("invalid status code '%s'", raw)
		}
	}
	rawTimeout, err := tc.ReplaceDynamicContent(c.Timeout)
	if err != nil {
		return false, err
	}
	timeout, err := action.ParseDuration(rawTimeout, time.Second)
	if err != nil {
		return false, err
	}
	method := strings.ToUpper(c.Method)
	if method == "" {
		method = http.MethodHead
	}

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = timeout
	cfg.Logger = tc.Logger()
	client, err := httpclient.New(cfg)
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == expected, nil
}

// MessageCondition is satisfied when a message with the given name is in
// the message store.
type MessageCondition struct {
	MessageName string
}

// Name implements Condition.
func (c *MessageCondition) Name() string {
	return "message " + c.MessageName
}

// IsSatisfied implements Condition.
func (c *MessageCondition) IsSatisfied(_ context.Context, tc *testcontext.Context) (bool, error) {
	name, err := tc.ReplaceDynamicContent(c.MessageName)
	if err != nil {
		return false, err
	}
	_, ok := tc.Messages().Get(name)
	return ok, nil
}

// ActionCondition is satisfied when a nested action succeeds.
type ActionCondition struct {
	Action action.TestAction
}

// Name implements Condition.
func (c *ActionCondition) Name() string {
	if c.Action == nil {
		return "action"
	}
	return "action " + c.Action.Name()
}

// IsSatisfied implements Condition.
func (c *ActionCondition) IsSatisfied(ctx context.Context, tc *testcontext.Context) (bool, error) {
	if err := c.Action.Execute(ctx, tc); err != nil {
		return false, err
	}
	return true, nil
}
