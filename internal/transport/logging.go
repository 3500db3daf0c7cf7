// SPDX-License-Identifier: MIT
package transport

import (
	applog "shottimer/internal/log"
)

// LoggingTransport implements the Transport interface by logging shots and
// final clock readings.
type LoggingTransport struct {
	log applog.Logger
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport(logger applog.Logger) *LoggingTransport {
	if logger == nil {
		logger = applog.Default()
	}
	return &LoggingTransport{log: logger}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	switch msg := data.(type) {
	case ShotMessage:
		lt.log.Infof("Shot %d detected @ %s. Split=%s", msg.Number, msg.Time, msg.Split)
	case ElapsedMessage:
		if msg.Final {
			lt.log.Infof("Time: %s", msg.Elapsed)
		}
	default:
		lt.log.Debugf("LoggingTransport: %T %+v", data, data)
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
