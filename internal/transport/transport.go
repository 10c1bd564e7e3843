// SPDX-License-Identifier: MIT
//
// Package transport publishes analyser frames to the outside world.
package transport

// Transport defines a generic interface for sending processed data.
// Implementations must be safe for concurrent use and must not retain
// mutable data they do not own.
type Transport interface {
	Send(data any) error
	Close() error
}

// Summary is implemented by payloads that can describe themselves in a
// single log line.
type Summary interface {
	Summary() string
}
