// Package mock provides a test double for the assistant package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/harkaudio/hark/pkg/assistant"
	"github.com/harkaudio/hark/pkg/audio"
)

// HandleUtteranceCall records a single invocation of Client.HandleUtterance.
type HandleUtteranceCall struct {
	// Buf is the captured buffer as received (not copied; the mock owns it).
	Buf *audio.Buffer

	// Reason is the termination reason.
	Reason assistant.Reason
}

// Client is a mock implementation of [assistant.Client]. Thread-safe.
type Client struct {
	mu sync.Mutex

	// HandleErr, if non-nil, is returned by every HandleUtterance call.
	HandleErr error

	// Calls records every invocation in order.
	Calls []HandleUtteranceCall
}

// HandleUtterance records the call and returns HandleErr.
func (c *Client) HandleUtterance(_ context.Context, buf *audio.Buffer, reason assistant.Reason) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, HandleUtteranceCall{Buf: buf, Reason: reason})
	return c.HandleErr
}

// CallCount returns the number of recorded calls. Thread-safe.
func (c *Client) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Ensure Client implements assistant.Client at compile time.
var _ assistant.Client = (*Client)(nil)
