package githubapp

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-access-portal/internal/observability"
)

// reserveCalls is the budget kept back once the installation runs low. A
// grant makes up to five calls, so two grants' worth is held in reserve.
const reserveCalls = 10

// RateLimiter paces calls against the installation's GitHub API budget
type RateLimiter interface {
	// Wait blocks for the minimum spacing between calls. It returns
	// ErrRateLimited without waiting when the budget is exhausted until reset.
	Wait(ctx context.Context) error
	UpdateLimit(remaining int, resetTime time.Time)
}

// githubRateLimiter implements RateLimiter for GitHub API
type githubRateLimiter struct {
	log       logrus.FieldLogger
	mu        sync.Mutex
	remaining int
	resetTime time.Time
	minDelay  time.Duration
	lastCall  time.Time
	now       func() time.Time
}

// NewRateLimiter creates a new rate limiter. One limiter is shared by every
// client built from the same installation, since they share its budget.
func NewRateLimiter(log logrus.FieldLogger, minDelay time.Duration) RateLimiter {
	return &githubRateLimiter{
		log:       log.WithField("component", "github_rate_limiter"),
		remaining: 5000, // GitHub App installation default
		resetTime: time.Now().Add(time.Hour),
		minDelay:  minDelay,
		now:       time.Now,
	}
}

// Wait reserves the next call slot
func (r *githubRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()

	now := r.now()
	if r.remaining <= reserveCalls {
		if now.Before(r.resetTime) {
			remaining, reset := r.remaining, r.resetTime
			r.mu.Unlock()
			r.log.WithFields(logrus.Fields{
				"remaining": remaining,
				"reset":     reset.Format(time.RFC3339),
			}).Warn("GitHub rate limit low, rejecting call")
			return errors.Wrapf(ErrRateLimited, "%d calls left until %s", remaining, reset.Format(time.RFC3339))
		}
		// The window has rolled over; the next response will report the real budget.
		r.remaining = 5000
		r.resetTime = now.Add(time.Hour)
	}

	// Claim the slot before sleeping so concurrent callers queue behind it.
	next := r.lastCall.Add(r.minDelay)
	if next.Before(now) {
		next = now
	}
	r.lastCall = next
	r.remaining--
	r.mu.Unlock()

	delay := next.Sub(now)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UpdateLimit updates the rate limit from API response headers
func (r *githubRateLimiter) UpdateLimit(remaining int, resetTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = remaining
	r.resetTime = resetTime
	observability.GitHubRateRemaining.Set(float64(remaining))
}
