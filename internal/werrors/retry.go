package werrors

import (
	"math"
	"math/rand"
	"time"

	iso "github.com/senseyeio/duration"
)

// BackoffKind selects how the base delay grows between attempts.
type BackoffKind string

const (
	BackoffConstant    BackoffKind = "constant"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// Limit bounds how many times, or for how long, a Try may retry.
type Limit struct {
	Attempt  int           // 0 means unlimited
	Duration time.Duration // 0 means unlimited
}

// RetryPolicy is the resolved (not-a-reference) `try.retry` configuration.
type RetryPolicy struct {
	Delay      string // ISO-8601 duration, e.g. "PT1S"
	Backoff    BackoffKind
	MaxBackoff time.Duration // clamp for exponential growth
	Limit      Limit
	Jitter     *Jitter

	// When/ExceptWhen are CEL expression strings evaluated with the
	// caught error bound into scope before a retry is scheduled.
	When       string
	ExceptWhen string
}

// Jitter adds a uniform random amount in [From, To] to each computed delay.
type Jitter struct {
	From time.Duration
	To   time.Duration
}

// ParseDelay parses the policy's ISO-8601 delay string.
func (p *RetryPolicy) ParseDelay() (time.Duration, error) {
	return parseISODuration(p.Delay)
}

// ParseISO8601Duration parses an ISO-8601 duration string ("PT30S") into
// a time.Duration, for any caller that needs a one-shot delay outside a
// RetryPolicy (Wait tasks, in particular).
func ParseISO8601Duration(s string) (time.Duration, error) {
	return parseISODuration(s)
}

func parseISODuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := iso.ParseISO8601(s)
	if err != nil {
		return 0, err
	}
	// ISO-8601 durations carry calendar components (years/months); for
	// retry delays only the time-scale components are meaningful.
	ref := time.Now()
	return d.Shift(ref).Sub(ref), nil
}

// NextDelay computes the delay before the given attempt (0-indexed,
// the attempt about to be scheduled), applying backoff and jitter. rng
// must be seeded deterministically per (instance, position) so retries
// are reproducible for tests.
func (p *RetryPolicy) NextDelay(attemptIndex int, rng *rand.Rand) (time.Duration, error) {
	base, err := p.ParseDelay()
	if err != nil {
		return 0, err
	}

	var delay time.Duration
	switch p.Backoff {
	case BackoffLinear:
		delay = base * time.Duration(1+attemptIndex)
	case BackoffExponential:
		factor := math.Pow(2, float64(attemptIndex))
		delay = time.Duration(float64(base) * factor)
	case BackoffConstant, "":
		delay = base
	default:
		delay = base
	}

	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		delay = p.MaxBackoff
	}

	if p.Jitter != nil && p.Jitter.To > p.Jitter.From {
		span := p.Jitter.To - p.Jitter.From
		delay += p.Jitter.From + time.Duration(rng.Int63n(int64(span)+1))
	}

	return delay, nil
}

// LimitReached reports whether the attempt/duration ceiling has been hit.
func (p *RetryPolicy) LimitReached(attemptIndex int, elapsed time.Duration) bool {
	if p.Limit.Attempt > 0 && attemptIndex >= p.Limit.Attempt {
		return true
	}
	if p.Limit.Duration > 0 && elapsed >= p.Limit.Duration {
		return true
	}
	return false
}

// NewDeterministicRNG seeds a retry RNG deterministically from a
// workflow instance id and the Try's position, satisfying property P3's
// reproducibility requirement.
func NewDeterministicRNG(instanceID, position string) *rand.Rand {
	seed := fnv64a(instanceID + "|" + position)
	return rand.New(rand.NewSource(int64(seed)))
}

func fnv64a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}
