// SPDX-License-Identifier: MIT
package transport

import (
	"shottimer/internal/analysis"
)

// Transport defines a generic interface for publishing drill events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Message types carried in the Type field.
const (
	TypeShot    = "shot"
	TypeElapsed = "elapsed"
)

// ShotMessage is the wire form of a detected shot.
type ShotMessage struct {
	Type    string `json:"type"`
	Number  int    `json:"number"`
	TimeMs  int64  `json:"time_ms"`
	SplitMs int64  `json:"split_ms"`
	Time    string `json:"time"`  // mm:ss:mmm
	Split   string `json:"split"` // mm:ss:mmm
}

// NewShotMessage converts a detector event.
func NewShotMessage(e analysis.ShotEvent) ShotMessage {
	return ShotMessage{
		Type:    TypeShot,
		Number:  e.Number,
		TimeMs:  e.Time.Milliseconds(),
		SplitMs: e.Split.Milliseconds(),
		Time:    analysis.FormatElapsed(e.Time),
		Split:   analysis.FormatElapsed(e.Split),
	}
}

// ElapsedMessage carries the clock reading. Final is set once per run, when
// the clock stops or is reset.
type ElapsedMessage struct {
	Type      string `json:"type"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Elapsed   string `json:"elapsed"`
	Final     bool   `json:"final"`
}
