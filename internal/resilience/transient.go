// Package resilience wraps provider calls with retry and circuit-breaker
// behavior. Both are failure-shaping tools for the data-gathering
// branches: a retried or shed call still degrades to an empty branch
// value upstream, it just does so faster and with less load on a
// struggling provider.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// temporary is implemented by provider error types (e.g. the DataForSEO
// and SerpAPI client APIErrors) that can classify their own failures.
type temporary interface {
	Temporary() bool
}

// Temporary reports whether err is worth retrying. Provider errors
// classify themselves via a Temporary method; everything else falls back
// to network-level signals.
func Temporary(err error) bool {
	if err == nil {
		return false
	}

	// Network-level signals come first: syscall.Errno carries its own
	// Temporary method with narrower semantics than ours.
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var tmp temporary
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}

	// HTTP client errors often arrive fmt-wrapped, losing the type chain.
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection reset by peer",
		"no such host",
		"i/o timeout",
		"tls handshake timeout",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

// TemporaryStatus reports whether an HTTP status code indicates a
// failure the same request could survive on retry.
func TemporaryStatus(code int) bool {
	switch code {
	case 408, 429:
		return true
	default:
		return code >= 500 && code < 600
	}
}
