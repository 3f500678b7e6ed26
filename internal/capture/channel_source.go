package capture

import (
	"context"
	"sync"
)

// ChannelSource is a Source fed by an external producer, used when the
// audio input arrives over a network connection instead of a local device.
type ChannelSource struct {
	mu      sync.Mutex
	started bool
	closed  bool
	chunks  chan []byte
	errs    chan error
}

// NewChannelSource creates a push-fed source.
func NewChannelSource() *ChannelSource {
	return &ChannelSource{
		chunks: make(chan []byte, 32),
		errs:   make(chan error, 1),
	}
}

// Start implements Source.
func (c *ChannelSource) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

// Push hands one PCM chunk to the pipeline. Chunks pushed while the
// consumer is saturated are dropped. The send happens under the mutex so
// a concurrent Stop cannot close the channel mid-send; the send is
// non-blocking, so holding the lock here never stalls Stop.
func (c *ChannelSource) Push(pcm []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.chunks <- pcm:
	default:
	}
}

// Fail reports a fatal producer error (e.g. the peer vanished mid-stream).
func (c *ChannelSource) Fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

// Chunks implements Source.
func (c *ChannelSource) Chunks() <-chan []byte { return c.chunks }

// Errors implements Source.
func (c *ChannelSource) Errors() <-chan error { return c.errs }

// Stop implements Source. Idempotent.
func (c *ChannelSource) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.chunks)
	return nil
}
