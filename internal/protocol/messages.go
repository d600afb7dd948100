// Package protocol defines the JSON messages exchanged with participants
// over the signal channel.
package protocol

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	TypeInit = "init"
	TypeSeek = "seek"
	TypePing = "ping"
	TypePong = "pong"
)

var (
	ErrBadJSON     = errors.New("bad json")
	ErrBadPayload  = errors.New("bad payload")
	ErrUnknownType = errors.New("unknown message type")
)

var validate = validator.New()

type envelope struct {
	Type string `json:"type"`
}

// Init is sent by a participant to join a session.
type Init struct {
	Type      string  `json:"type"`
	ClientID  string  `json:"clientId" validate:"omitempty,max=128"`
	SessionID string  `json:"sessionId" validate:"required,max=128"`
	SyncTime  float64 `json:"syncTime" validate:"required,gt=0,lte=9007199254740991"`
}

// Seek is a participant playback change: play, pause, seek or buffer stall.
type Seek struct {
	Type      string   `json:"type"`
	ClientID  string   `json:"clientId" validate:"omitempty,max=128"`
	SessionID string   `json:"sessionId" validate:"required,max=128"`
	SeekIdx   *float64 `json:"seekIdx" validate:"required,gte=0"`
	Playing   *bool    `json:"playing" validate:"required"`
	SyncTime  float64  `json:"syncTime" validate:"required,gt=0,lte=9007199254740991"`
}

// Ping is a client keepalive.
type Ping struct {
	Type string `json:"type"`
}

// SeekInstruction tells a participant where to seek and whether to play.
type SeekInstruction struct {
	Type    string  `json:"type"`
	SeekIdx float64 `json:"seekIdx"`
	Playing bool    `json:"playing"`
}

func NewSeekInstruction(seekIdx float64, playing bool) SeekInstruction {
	return SeekInstruction{Type: TypeSeek, SeekIdx: seekIdx, Playing: playing}
}

// ReportedAt converts a millisecond epoch syncTime into a time.Time.
func ReportedAt(syncTime float64) time.Time {
	whole, frac := math.Modf(syncTime)
	return time.UnixMilli(int64(whole)).Add(time.Duration(frac * float64(time.Millisecond)))
}

// Decode parses and validates one inbound message. It returns *Init,
// *Seek or *Ping. Unknown types yield ErrUnknownType.
func Decode(data []byte) (any, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}

	var msg any
	switch env.Type {
	case TypeInit:
		msg = &Init{}
	case TypeSeek:
		msg = &Seek{}
	case TypePing:
		return &Ping{Type: TypePing}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if err := validate.Struct(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return msg, nil
}

// Encode marshals an outbound message.
func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return b, nil
}
