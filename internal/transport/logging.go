// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "synthscope/internal/log"
)

// LoggingTransport implements the Transport interface by logging a one-line
// summary of every Nth payload.
type LoggingTransport struct {
	every uint64
	count atomic.Uint64
}

// NewLoggingTransport logs one payload in every `every` (minimum 1).
func NewLoggingTransport(every int) *LoggingTransport {
	if every < 1 {
		every = 1
	}
	applog.Infof("Transport: Using LoggingTransport (every %d)", every)
	return &LoggingTransport{every: uint64(every)}
}

// Send logs the payload's summary, or its type when it has none.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.count.Add(1)
	if (n-1)%lt.every != 0 {
		return nil
	}
	if s, ok := data.(Summary); ok {
		applog.Infof("Transport: %s", s.Summary())
		return nil
	}
	applog.Infof("Transport: received %T", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("Transport: LoggingTransport closed after %d payloads", lt.count.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
