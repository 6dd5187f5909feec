package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"429 status", errors.New("Error 429, Message: too many requests"), true},
		{"resource exhausted", errors.New("rpc error: code = RESOURCE_EXHAUSTED"), true},
		{"quota message", errors.New("quota exceeded for metric"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rateLimited(tt.err))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	err := errors.New("Error 429, Message: ... Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	assert.InDelta(t, 45.387, retryAfter(err).Seconds(), 0.01)

	err = errors.New("retryDelay: 30s")
	assert.Equal(t, 30*time.Second, retryAfter(err))

	assert.Equal(t, time.Duration(0), retryAfter(errors.New("no delay here")))
	assert.Equal(t, time.Duration(0), retryAfter(nil))
}

func TestRetryPolicyDelay(t *testing.T) {
	p := defaultRetryPolicy

	// The API's own hint beats the base delay.
	hinted := errors.New("Error 429: Please retry in 20s")
	assert.Equal(t, 25*time.Second, p.delay(0, hinted))

	// Without a hint the base delay applies.
	assert.Equal(t, p.baseDelay, p.delay(0, errors.New("quota")))

	// Growth is monotonic and capped.
	assert.Greater(t, p.delay(1, nil), p.delay(0, nil))
	assert.LessOrEqual(t, p.delay(10, nil), p.maxDelay)
}
