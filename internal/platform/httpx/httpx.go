package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"syscall"
)

type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsUnreachableError reports whether err means the remote endpoint could not be
// reached at all: connection refused or reset, DNS failure, or a timeout.
// Retrying such errors against the same address does not help.
func IsUnreachableError(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ETIMEDOUT),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded):
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// StatusCode extracts an HTTP status from err, or 0 when err carries none.
func StatusCode(err error) int {
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatusCode()
	}
	return 0
}

func IsSuccessStatus(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
