package core

import "errors"

// Frame is a raw encoded message for a participant.
type Frame []byte

var (
	ErrBackpressure  = errors.New("backpressure")
	ErrChannelClosed = errors.New("connection closed")
)

// SignalConnection abstracts the outbound channel to one participant.
// Owned by the adapter; the adapter must Close() it.
// TrySend never blocks: a closed channel returns ErrChannelClosed and a
// full buffer returns ErrBackpressure.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
