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

package endpoint

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/citrus/pkg/errors"
	"github.com/tombee/citrus/pkg/message"
)

// Direct is an endpoint backed by an in-memory FIFO queue. Messages sent to
// it stay queued until a receive or purge removes them.
type Direct struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	queue    []*message.Message
	arrivals chan struct{}
}

// NewDirect creates an empty direct endpoint.
func NewDirect(name string) *Direct {
	return &Direct{
		name:     name,
		logger:   slog.Default(),
		arrivals: make(chan struct{}),
	}
}

// WithLogger sets the endpoint logger.
func (d *Direct) WithLogger(logger *slog.Logger) *Direct {
	d.logger = logger
	return d
}

// Name implements Endpoint.
func (d *Direct) Name() string {
	return d.name
}

// Send implements Endpoint.
func (d *Direct) Send(ctx context.Context, msg *message.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	d.queue = append(d.queue, msg.Copy())
	// wake every waiting receiver; each rescans the queue
	close(d.arrivals)
	d.arrivals = make(chan struct{})
	d.mu.Unlock()

	d.logger.Debug("message queued", slog.String("endpoint", d.name), slog.String("message_id", msg.ID))
	return nil
}

// Receive implements Endpoint.
func (d *Direct) Receive(ctx context.Context, selector Selector, timeout time.Duration) (*message.Message, error) {
	if timeout <= 0 {
		timeout = DefaultReceiveTimeout
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		d.mu.Lock()
		if msg := d.take(selector); msg != nil {
			d.mu.Unlock()
			return msg, nil
		}
		arrivals := d.arrivals
		d.mu.Unlock()

		select {
		case <-arrivals:
		case <-deadline.C:
			return nil, errors.WithCause(
				&errors.TimeoutError{Operation: "receive on " + d.name, Duration: timeout},
				errors.KindActionTimeout, "action timeout while receiving message")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// take removes the first accepted message. Caller holds d.mu.
func (d *Direct) take(selector Selector) *message.Message {
	for i, msg := range d.queue {
		if selector.Accepts(msg) {
			d.queue = append(d.queue[:i], d.queue[i+1:]...)
			return msg
		}
	}
	return nil
}

// Purge implements Endpoint.
func (d *Direct) Purge(selector Selector) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.queue[:0]
	purged := 0
	for _, msg := range d.queue {
		if selector.Accepts(msg) {
			purged++
			continue
		}
		kept = append(kept, msg)
	}
	for i := len(kept); i < len(d.queue); i++ {
		d.queue[i] = nil
	}
	d.queue = kept
	return purged
}

// Len returns the number of queued messages.
func (d *Direct) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}
