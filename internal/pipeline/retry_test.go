package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyDelay(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:       5,
		InitialDelay:      time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2.0,
	}

	assert.Equal(t, time.Duration(0), policy.Delay(1))
	assert.Equal(t, time.Second, policy.Delay(2))
	assert.Equal(t, 2*time.Second, policy.Delay(3))
	assert.Equal(t, 4*time.Second, policy.Delay(4))
	assert.Equal(t, 8*time.Second, policy.Delay(5))
}

func TestRetryPolicyDelayCapped(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:       10,
		InitialDelay:      time.Second,
		MaxDelay:          5 * time.Second,
		BackoffMultiplier: 2.0,
	}

	assert.Equal(t, 4*time.Second, policy.Delay(4))
	assert.Equal(t, 5*time.Second, policy.Delay(5))
	assert.Equal(t, 5*time.Second, policy.Delay(9))
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()
	assert.Equal(t, 3, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.InitialDelay)
	assert.Equal(t, 2.0, policy.BackoffMultiplier)
}
