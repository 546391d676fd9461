package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJitteredRetryPolicy_NoJitterReturnsBaseDelay(t *testing.T) {
	p := JitteredRetryPolicy{Limit: 3, BaseDelay: 2 * time.Second}

	assert.Equal(t, 3, p.RetryLimit())
	assert.Equal(t, 2*time.Second, p.RetryDelay())
}

func TestJitteredRetryPolicy_StaysWithinBounds(t *testing.T) {
	p := JitteredRetryPolicy{Limit: 5, BaseDelay: time.Second, JitterFactor: 0.25}

	for i := 0; i < 100; i++ {
		d := p.RetryDelay()
		assert.GreaterOrEqual(t, d, 750*time.Millisecond)
		assert.LessOrEqual(t, d, 1250*time.Millisecond)
	}
}

func TestJitteredRetryPolicy_NeverNegative(t *testing.T) {
	p := JitteredRetryPolicy{Limit: 1, BaseDelay: time.Millisecond, JitterFactor: 5}

	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, p.RetryDelay(), time.Duration(0))
	}
}
