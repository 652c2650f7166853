// SPDX-License-Identifier: MIT

// Package transport broadcasts rendered spectrum frames to network clients.
package transport

// Transport defines a generic interface for sending processed data or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Frame is one rendered spectrum for one displayed channel.
type Frame struct {
	Sequence  uint64    `json:"seq"`
	Timestamp int64     `json:"ts"` // Nanoseconds since epoch.
	Channel   int       `json:"channel"`
	Bins      []float64 `json:"bins"`
}

// FrameProvider exposes the most recent frame of each channel to pollers
// such as the UDP publisher.
type FrameProvider interface {
	Channels() int
	// LatestFrame copies the newest frame of channel into dst, reusing
	// dst.Bins. It reports false when nothing has been published yet.
	LatestFrame(channel int, dst *Frame) bool
}
