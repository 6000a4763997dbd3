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

// Package endpoint provides in-memory message endpoints used by send and
// receive actions.
package endpoint

import (
	"context"
	"time"

	"github.com/tombee/citrus/pkg/message"
)

// DefaultReceiveTimeout applies when a receive does not set a timeout.
const DefaultReceiveTimeout = 5 * time.Second

// Endpoint sends and receives messages.
type Endpoint interface {
	// Name returns the endpoint name used for references.
	Name() string

	// Send delivers msg to the endpoint.
	Send(ctx context.Context, msg *message.Message) error

	// Receive returns the first message accepted by selector, waiting up to
	// timeout for one to arrive.
	Receive(ctx context.Context, selector Selector, timeout time.Duration) (*message.Message, error)

	// Purge drops queued messages accepted by selector and returns how many
	// were dropped.
	Purge(selector Selector) int
}

// Selector filters messages by header values. An empty selector accepts
// every message.
type Selector map[string]string

// Accepts reports whether every selector entry matches a header of msg.
func (s Selector) Accepts(msg *message.Message) bool {
	for name, want := range s {
		got, ok := msg.Header(name)
		if !ok || got != want {
			return false
		}
	}
	return true
}
