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

package action

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tombee/citrus/internal/jq"
	"github.com/tombee/citrus/pkg/endpoint"
	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/message"
	"github.com/tombee/citrus/pkg/testcontext"
)

// IgnorePlaceholder accepts any actual value during validation.
const IgnorePlaceholder = "@ignore@"

// MatchValue compares an expected value against an actual one, honouring
// IgnorePlaceholder. Surrounding whitespace is not significant.
func MatchValue(expected, actual string) bool {
	expected = strings.TrimSpace(expected)
	if expected == IgnorePlaceholder {
		return true
	}
	return expected == strings.TrimSpace(actual)
}

func resolveEndpoint(tc *testcontext.Context, name string) (endpoint.Endpoint, error) {
	resolved, err := tc.ReplaceDynamicContent(name)
	if err != nil {
		return nil, err
	}
	return testcontext.Resolve[endpoint.Endpoint](tc.References(), "endpoint", resolved)
}

// Send builds a message and sends it to an endpoint.
type Send struct {
	Base
	Endpoint    string
	MessageName string
	Payload     string
	Headers     map[string]string
}

// NewSend creates a send action.
func NewSend(endpointName, payload string) *Send {
	return &Send{Base: Named("send"), Endpoint: endpointName, Payload: payload}
}

// Execute implements TestAction.
func (a *Send) Execute(ctx context.Context, tc *testcontext.Context) error {
	ep, err := resolveEndpoint(tc, a.Endpoint)
	if err != nil {
		return err
	}

	payload, err := tc.ReplaceDynamicContent(a.Payload)
	if err != nil {
		return err
	}
	headers, err := tc.ReplaceAll(a.Headers)
	if err != nil {
		return err
	}

	msg := message.New(payload)
	msg.Name = a.MessageName
	for k, v := range headers {
		msg.WithHeader(k, v)
	}

	if err := ep.Send(ctx, msg); err != nil {
		return errors.WithCause(err, errors.KindCitrusRuntime, fmt.Sprintf("failed to send message to '%s'", ep.Name()))
	}
	tc.Messages().Store(message.StoreName(msg, "send", ep.Name()), msg)
	tc.Logger().Info("message sent", slog.String("endpoint", ep.Name()), slog.String("message_id", msg.ID))
	return nil
}

// Receive takes a message from an endpoint, validates it and extracts
// variables from it.
type Receive struct {
	Base
	Endpoint    string
	MessageName string
	Timeout     string
	Selector    map[string]string

	// Payload is compared as text when set.
	Payload string
	Headers map[string]string

	// ExtractHeaders maps header name to variable name.
	ExtractHeaders map[string]string
	// ExtractJQ maps variable name to a jq query over the JSON payload.
	ExtractJQ map[string]string

	JQ *jq.Executor
}

// NewReceive creates a receive action.
func NewReceive(endpointName string) *Receive {
	return &Receive{Base: Named("receive"), Endpoint: endpointName}
}

// Execute implements TestAction.
func (a *Receive) Execute(ctx context.Context, tc *testcontext.Context) error {
	ep, err := resolveEndpoint(tc, a.Endpoint)
	if err != nil {
		return err
	}

	rawTimeout, err := tc.ReplaceDynamicContent(a.Timeout)
	if err != nil {
		return err
	}
	timeout, err := ParseDuration(rawTimeout, endpoint.DefaultReceiveTimeout)
	if err != nil {
		return err
	}
	selector, err := tc.ReplaceAll(a.Selector)
	if err != nil {
		return err
	}

	start := time.Now()
	msg, err := ep.Receive(ctx, endpoint.Selector(selector), timeout)
	if err != nil {
		return err
	}
	if a.MessageName != "" {
		msg.Name = a.MessageName
	}
	tc.Messages().Store(message.StoreName(msg, "receive", ep.Name()), msg)
	tc.Logger().Info("message received",
		slog.String("endpoint", ep.Name()),
		slog.String("message_id", msg.ID),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	if err := a.validate(tc, msg); err != nil {
		return err
	}
	return a.extract(ctx, tc, msg)
}

func (a *Receive) validate(tc *testcontext.Context, msg *message.Message) error {
	if a.Payload != "" {
		expected, err := tc.ReplaceDynamicContent(a.Payload)
		if err != nil {
			return err
		}
		if !MatchValue(expected, msg.Payload) {
			return errors.Validationf("message payload not equal, expected '%s' but was '%s'",
				strings.TrimSpace(expected), strings.TrimSpace(msg.Payload))
		}
	}

	headers, err := tc.ReplaceAll(a.Headers)
	if err != nil {
		return err
	}
	for _, name := range sortedKeys(headers) {
		actual, ok := msg.Header(name)
		if !ok {
			return errors.Validationf("header '%s' is missing", name)
		}
		if !MatchValue(headers[name], actual) {
			return errors.Validationf("values not equal for header '%s', expected '%s' but was '%s'",
				name, headers[name], actual)
		}
	}
	tc.Logger().Debug("message validation successful", slog.String("message_id", msg.ID))
	return nil
}

func (a *Receive) extract(ctx context.Context, tc *testcontext.Context, msg *message.Message) error {
	for _, header := range sortedKeys(a.ExtractHeaders) {
		value, ok := msg.Header(header)
		if !ok {
			return errors.Runtimef("failed to extract header '%s': header is missing", header)
		}
		tc.SetVariable(a.ExtractHeaders[header], value)
	}

	if len(a.ExtractJQ) == 0 {
		return nil
	}
	executor := a.JQ
	if executor == nil {
		executor = jq.NewExecutor(0, 0)
	}
	for _, variable := range sortedKeys(a.ExtractJQ) {
		value, err := executor.ExtractString(ctx, a.ExtractJQ[variable], msg.Payload)
		if err != nil {
			return errors.WithCause(err, errors.KindCitrusRuntime,
				fmt.Sprintf("failed to extract variable '%s'", variable))
		}
		tc.SetVariable(variable, value)
	}
	return nil
}

// PurgeEndpoint drops queued messages from endpoints.
type PurgeEndpoint struct {
	Base
	Endpoints []string
	Selector  map[string]string
}

// NewPurgeEndpoint creates a purge-endpoint action.
func NewPurgeEndpoint(endpoints ...string) *PurgeEndpoint {
	return &PurgeEndpoint{Base: Named("purge-endpoint"), Endpoints: endpoints}
}

// Execute implements TestAction.
func (a *PurgeEndpoint) Execute(_ context.Context, tc *testcontext.Context) error {
	selector, err := tc.ReplaceAll(a.Selector)
	if err != nil {
		return err
	}
	for _, name := range a.Endpoints {
		ep, err := resolveEndpoint(tc, name)
		if err != nil {
			return err
		}
		n := ep.Purge(endpoint.Selector(selector))
		tc.Logger().Info("purged endpoint", slog.String("endpoint", ep.Name()), slog.Int("messages", n))
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
