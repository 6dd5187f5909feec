package llm

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// retryPolicy bounds how embedding and recognition calls back off when the
// Gemini API rate-limits them. The base delay matches the observed quota
// window of roughly one minute; any other error kind is never retried.
type retryPolicy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	growth      float64
}

var defaultRetryPolicy = retryPolicy{
	maxAttempts: 3,
	baseDelay:   45 * time.Second,
	maxDelay:    90 * time.Second,
	growth:      1.5,
}

// rateLimited reports whether an error is a Gemini rate-limit rejection.
// The SDK surfaces these as 429s or RESOURCE_EXHAUSTED/quota messages.
func rateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "quota")
}

// retryAfterRe matches the delay hints Gemini embeds in rate-limit errors,
// either "Please retry in 45.38s" or "retryDelay: 30s".
var retryAfterRe = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// delay returns how long to wait before retry number attempt, honoring the
// API's own delay hint (plus a small buffer) when the error carries one and
// capping the exponential growth at maxDelay.
func (p retryPolicy) delay(attempt int, err error) time.Duration {
	base := p.baseDelay
	if hint := retryAfter(err); hint > 0 {
		base = hint + 5*time.Second
	}

	d := time.Duration(float64(base) * math.Pow(p.growth, float64(attempt)))
	if d > p.maxDelay {
		d = p.maxDelay
	}
	return d
}

// retryAfter extracts the API-suggested delay from a rate-limit error, or 0
// when the message carries none.
func retryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}

	m := retryAfterRe.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(m[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
