// SPDX-License-Identifier: MIT
package transport

import (
	"specviz/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary of
// each frame at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	switch f := data.(type) {
	case Frame:
		peak, at := 0.0, -1
		for i, v := range f.Bins {
			if v > peak {
				peak, at = v, i
			}
		}
		log.Debugf("Transport: frame seq=%d channel=%d bins=%d peak=%.4f@%d", f.Sequence, f.Channel, len(f.Bins), peak, at)
	default:
		log.Debugf("Transport: received (%T): %+v", data, data)
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	log.Debugf("Transport: LoggingTransport closed")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
