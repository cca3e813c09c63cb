package httpx

import (
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"
)

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableError reports whether the request is worth retrying: timeouts,
// temporary network faults, 429 and 5xx.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatusCode()
		return code == http.StatusTooManyRequests || code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// RetryAfterDuration honours a Retry-After header when present, otherwise
// returns the supplied backoff capped at max.
func RetryAfterDuration(resp *http.Response, backoff, max time.Duration) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				d := time.Duration(secs) * time.Second
				if d > max {
					return max
				}
				return d
			}
		}
	}
	if backoff > max {
		return max
	}
	return backoff
}

// JitterSleep spreads a sleep by up to 25% to avoid retry herds.
func JitterSleep(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 4))
	return d + jitter
}
