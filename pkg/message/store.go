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

package message

import (
	"sort"
	"sync"
)

// Store keeps messages by name for later lookup (e.g. by a wait condition).
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	messages map[string]*Message
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{messages: make(map[string]*Message)}
}

// Store saves a message under name, replacing any previous entry.
func (s *Store) Store(name string, msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[name] = msg
}

// Get returns the message stored under name.
func (s *Store) Get(name string) (*Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[name]
	return msg, ok
}

// Names returns all stored names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.messages))
	for name := range s.messages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// StoreName builds the default store name for a message sent or received on
// an endpoint: the message name if set, otherwise "<direction>(<endpoint>)".
func StoreName(msg *Message, direction, endpoint string) string {
	if msg.Name != "" {
		return msg.Name
	}
	return direction + "(" + endpoint + ")"
}
