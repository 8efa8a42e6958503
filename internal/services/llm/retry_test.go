package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/flashback/internal/common"
)

func TestNewRetryConfigFromAppConfig(t *testing.T) {
	cfg := &common.LLMConfig{
		MaxAttempts:       5,
		InitialBackoff:    "1s",
		BackoffMultiplier: 3.0,
	}

	rc := NewRetryConfig(cfg)

	assert.Equal(t, 5, rc.MaxAttempts)
	assert.Equal(t, 1*time.Second, rc.InitialBackoff)
	assert.Equal(t, 3.0, rc.BackoffMultiplier)
}

func TestNewRetryConfigDefaults(t *testing.T) {
	rc := NewRetryConfig(nil)

	assert.Equal(t, DefaultMaxAttempts, rc.MaxAttempts)
	assert.Equal(t, DefaultInitialBackoff, rc.InitialBackoff)
	assert.Equal(t, DefaultBackoffMultiplier, rc.BackoffMultiplier)

	rc = NewRetryConfig(&common.LLMConfig{InitialBackoff: "garbage"})
	assert.Equal(t, DefaultInitialBackoff, rc.InitialBackoff)
}

func TestBackoffSchedule(t *testing.T) {
	rc := NewDefaultRetryConfig()

	assert.Equal(t, 2*time.Second, rc.Backoff(0, 0))
	assert.Equal(t, 4*time.Second, rc.Backoff(1, 0))
	assert.Equal(t, 8*time.Second, rc.Backoff(2, 0))
}

func TestBackoffUsesAPIDelay(t *testing.T) {
	rc := NewDefaultRetryConfig()

	// API delay plus the 5s buffer, regardless of attempt number.
	assert.Equal(t, 35*time.Second, rc.Backoff(0, 30*time.Second))
	assert.Equal(t, 35*time.Second, rc.Backoff(2, 30*time.Second))

	// Capped at MaxBackoff.
	assert.Equal(t, rc.MaxBackoff, rc.Backoff(0, 10*time.Minute))
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429 status", errors.New("Error 429: too many requests"), true},
		{"resource exhausted", errors.New("Status: RESOURCE_EXHAUSTED"), true},
		{"quota", errors.New("quota exceeded for model"), true},
		{"other", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: rate limited. Please retry in 45.387061394s., Status: RESOURCE_EXHAUSTED")
	delay := ExtractRetryDelay(err)
	assert.InDelta(t, 45.387, delay.Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("no delay here")))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))

	delay = ExtractRetryDelay(errors.New("retryDelay: 12s"))
	assert.Equal(t, 12*time.Second, delay)
}
