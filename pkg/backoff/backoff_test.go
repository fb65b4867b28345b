package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyNextDelay(t *testing.T) {
	t.Run("deterministic doubling with cap", func(t *testing.T) {
		p := Policy{Base: 1000 * time.Millisecond, Cap: 30000 * time.Millisecond}

		want := []time.Duration{
			1000 * time.Millisecond,
			2000 * time.Millisecond,
			4000 * time.Millisecond,
			8000 * time.Millisecond,
			16000 * time.Millisecond,
			30000 * time.Millisecond,
		}
		for i, expected := range want {
			delay, retry := p.NextDelay(i + 1)
			assert.True(t, retry, "attempt %d should retry", i+1)
			assert.Equal(t, expected, delay, "attempt %d", i+1)
		}

		// Stays pinned at the cap from there on.
		delay, retry := p.NextDelay(20)
		assert.True(t, retry)
		assert.Equal(t, 30*time.Second, delay)
	})

	t.Run("stateless", func(t *testing.T) {
		p := Default()

		first, _ := p.NextDelay(3)
		second, _ := p.NextDelay(3)
		assert.Equal(t, first, second)
	})

	t.Run("never zero or negative", func(t *testing.T) {
		p := Default()

		for attempt := 1; attempt <= 64; attempt++ {
			delay, retry := p.NextDelay(attempt)
			assert.True(t, retry)
			assert.Greater(t, delay, time.Duration(0), "attempt %d", attempt)
		}
	})

	t.Run("attempt below one behaves like one", func(t *testing.T) {
		p := Policy{Base: 500 * time.Millisecond, Cap: 5 * time.Second}

		delay, retry := p.NextDelay(0)
		assert.True(t, retry)
		assert.Equal(t, 500*time.Millisecond, delay)
	})

	t.Run("zero values fall back to defaults", func(t *testing.T) {
		var p Policy

		delay, retry := p.NextDelay(1)
		assert.True(t, retry)
		assert.Equal(t, DefaultBase, delay)

		delay, retry = p.NextDelay(100)
		assert.True(t, retry)
		assert.Equal(t, DefaultCap, delay)
	})

	t.Run("max attempts", func(t *testing.T) {
		p := Policy{Base: 100 * time.Millisecond, Cap: time.Second, MaxAttempts: 3}

		for attempt := 1; attempt <= 3; attempt++ {
			_, retry := p.NextDelay(attempt)
			assert.True(t, retry, "attempt %d", attempt)
		}

		delay, retry := p.NextDelay(4)
		assert.False(t, retry)
		assert.Equal(t, time.Duration(0), delay)
	})

	t.Run("jitter is injectable", func(t *testing.T) {
		p := Policy{
			Base: time.Second,
			Cap:  30 * time.Second,
			Jitter: func(d time.Duration) time.Duration {
				return d + 250*time.Millisecond
			},
		}

		delay, retry := p.NextDelay(2)
		assert.True(t, retry)
		assert.Equal(t, 2250*time.Millisecond, delay)
	})

	t.Run("jitter cannot drive the delay to zero", func(t *testing.T) {
		p := Policy{
			Base:   time.Second,
			Cap:    30 * time.Second,
			Jitter: func(time.Duration) time.Duration { return -time.Second },
		}

		delay, retry := p.NextDelay(5)
		assert.True(t, retry)
		assert.Equal(t, time.Second, delay)
	})
}
