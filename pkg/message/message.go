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

// Package message defines the messages exchanged by send and receive
// actions and the named message store kept per test execution.
package message

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Reserved header names set on every message.
const (
	HeaderID        = "citrus_message_id"
	HeaderTimestamp = "citrus_message_timestamp"
)

// Message is a payload with headers.
type Message struct {
	// ID is unique per message
	ID string `json:"id"`

	// Name is an optional logical name used by the message store
	Name string `json:"name,omitempty"`

	Headers map[string]string `json:"headers,omitempty"`

	Payload string `json:"payload"`

	Timestamp time.Time `json:"timestamp"`
}

// New creates a message with a fresh ID.
func New(payload string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Headers:   make(map[string]string),
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// WithHeader sets a header and returns the message.
func (m *Message) WithHeader(name, value string) *Message {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[name] = value
	return m
}

// Header returns a header value. The reserved ID and timestamp headers are
// always available.
func (m *Message) Header(name string) (string, bool) {
	switch name {
	case HeaderID:
		return m.ID, true
	case HeaderTimestamp:
		return m.Timestamp.Format(time.RFC3339Nano), true
	}
	v, ok := m.Headers[name]
	return v, ok
}

// Copy returns a deep copy with the same ID.
func (m *Message) Copy() *Message {
	c := *m
	c.Headers = maps.Clone(m.Headers)
	if c.Headers == nil {
		c.Headers = make(map[string]string)
	}
	return &c
}

func (m *Message) String() string {
	return fmt.Sprintf("Message[id: %s, name: %s, headers: %v, payload: %s]", m.ID, m.Name, m.Headers, m.Payload)
}
