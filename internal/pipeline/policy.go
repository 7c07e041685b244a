package pipeline

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds the retries of one document. Every attempt is a full fresh pass.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int
	// NewBackOff returns the delay schedule for one document. It is called once per
	// document so stateful schedules (exponential) do not leak across documents.
	NewBackOff func() backoff.BackOff
}

// DefaultPolicy is three attempts five seconds apart.
func DefaultPolicy() Policy {
	return FixedPolicy(3, 5*time.Second)
}

// FixedPolicy waits the same delay before every retry.
func FixedPolicy(maxAttempts int, delay time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			return backoff.NewConstantBackOff(delay)
		},
	}
}

// ImmediatePolicy retries without waiting.
func ImmediatePolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			return &backoff.ZeroBackOff{}
		},
	}
}

// ExponentialPolicy doubles the delay from initial up to max between retries.
func ExponentialPolicy(maxAttempts int, initial, max time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = max
			b.Multiplier = 2
			b.RandomizationFactor = 0
			return b
		},
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.NewBackOff == nil {
		p.NewBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	}
	return p
}
