// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides the HTTP plumbing shared by the vision
// clients.
//
// Response helpers bound every body read at MaxResponseSize: model
// replies are a few kilobytes, and an unbounded read of a misbehaving
// endpoint must not be able to exhaust memory on a phone.
//
// [NewClient] builds the per-call client the pipeline uses: separate
// connect and response deadlines, no connection reuse.
package netutil

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// MaxResponseSize bounds JSON API response body reads: 1 MB.
const MaxResponseSize int64 = 1 << 20

// ReadResponse reads a response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}

// Truncate returns at most limit bytes of text, for log fields.
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}

// ClientTimeouts configures NewClient.
type ClientTimeouts struct {
	// Connect bounds TCP connect plus TLS handshake.
	Connect time.Duration `yaml:"connect"`

	// Read bounds the wait for response headers after the request is
	// written, and the body read via the overall client timeout.
	Read time.Duration `yaml:"read"`
}

// DefaultClientTimeouts are 20 s connect and 30 s read.
var DefaultClientTimeouts = ClientTimeouts{Connect: 20 * time.Second, Read: 30 * time.Second}

// NewClient returns an HTTP client that opens a fresh connection per
// request and enforces timeouts. Zero fields fall back to
// DefaultClientTimeouts.
func NewClient(timeouts ClientTimeouts) *http.Client {
	if timeouts.Connect <= 0 {
		timeouts.Connect = DefaultClientTimeouts.Connect
	}
	if timeouts.Read <= 0 {
		timeouts.Read = DefaultClientTimeouts.Read
	}
	dialer := &net.Dialer{Timeout: timeouts.Connect}
	return &http.Client{
		Timeout: timeouts.Connect + timeouts.Read,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   timeouts.Connect,
			ResponseHeaderTimeout: timeouts.Read,
			DisableKeepAlives:     true,
		},
	}
}
