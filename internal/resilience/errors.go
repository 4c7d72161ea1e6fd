package resilience

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// StatusCoder is implemented by errors that carry the HTTP status of a
// failed response.
type StatusCoder interface {
	HTTPStatus() int
}

// IsTransient reports whether err is worth retrying: an error carrying a
// transient HTTP status, a network timeout, or a reset or refused
// connection.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return IsTransientHTTPStatus(sc.HTTPStatus())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
