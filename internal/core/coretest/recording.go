// Package coretest provides in-memory participant channels for tests.
package coretest

import (
	"sync"

	"github.com/dkeye/watchparty/internal/core"
)

// RecordingConn captures frames sent to a participant.
// Set Full to simulate a back-pressured channel.
type RecordingConn struct {
	mu     sync.Mutex
	Frames []core.Frame
	Full   bool
	closed bool
}

func (c *RecordingConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrChannelClosed
	}
	if c.Full {
		return core.ErrBackpressure
	}
	c.Frames = append(c.Frames, f)
	return nil
}

func (c *RecordingConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Received returns a copy of the frames sent so far.
func (c *RecordingConn) Received() []core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Frame, len(c.Frames))
	copy(out, c.Frames)
	return out
}

// Last returns the most recent frame, or nil.
func (c *RecordingConn) Last() core.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Frames) == 0 {
		return nil
	}
	return c.Frames[len(c.Frames)-1]
}
