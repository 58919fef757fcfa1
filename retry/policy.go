// Package retry classifies and retries the two kinds of faults the
// provider cares about: transient server errors on ordinary remote calls,
// and the slow-instantiation window right after a queue is created.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// ErrTransient marks an error as a transient server fault worth retrying.
// Callers wrap errors with it (for example with fmt.Errorf and %w) before
// returning them to Do, and can compare with errors.Is after a failed Do.
var ErrTransient = errors.New("retry: transient server error")

// Classifier decides whether err should be retried. It wraps the error with
// goretry.RetryableError to mean "retry", or returns it unchanged to mean
// "terminal".
type Classifier func(err error) error

// DefaultTransientClassifier retries on ErrTransient and on context
// deadline exceeded (treated as a transient timeout), and treats every
// other error as terminal.
func DefaultTransientClassifier(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, context.DeadlineExceeded) {
		return goretry.RetryableError(err)
	}
	return err
}

// Policy runs action with a retry strategy, surfacing the first terminal
// error or the last error once the strategy gives up.
type Policy interface {
	Do(ctx context.Context, action func(ctx context.Context) error) error
}

// Get runs action under p, the same way Do does, but for call sites that
// want to retry a value-producing function rather than a bare error-
// returning one. It is a free function rather than a method on Policy
// for the same reason the provider's own Get/Put/Delete are: a method
// cannot introduce a type parameter the interface it's declared on
// doesn't have.
func Get[T any](ctx context.Context, p Policy, action func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := action(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// BackoffPolicy adapts a github.com/sethvargo/go-retry backoff plus a
// Classifier into a Policy.
type BackoffPolicy struct {
	backoff    goretry.Backoff
	classifier Classifier
}

// NewBackoffPolicy builds a Policy from a go-retry Backoff and a
// Classifier deciding which errors from action are worth retrying.
func NewBackoffPolicy(backoff goretry.Backoff, classifier Classifier) BackoffPolicy {
	return BackoffPolicy{backoff: backoff, classifier: classifier}
}

func (p BackoffPolicy) Do(ctx context.Context, action func(ctx context.Context) error) error {
	return goretry.Do(ctx, p.backoff, func(ctx context.Context) error {
		err := action(ctx)
		if err == nil {
			return nil
		}
		return p.classifier(err)
	})
}

// TransientServerErrorBackoff returns the policy used around ordinary
// remote calls: bounded exponential back-off, each delay capped at 30
// seconds, up to 8 retries after the first attempt, with jitter to avoid synchronized retries
// across goroutines.
func TransientServerErrorBackoff() Policy {
	b := goretry.NewExponential(100 * time.Millisecond)
	b = goretry.WithMaxRetries(8, b)
	b = goretry.WithCappedDuration(30*time.Second, b)
	b = goretry.WithJitterPercent(10, b)
	return NewBackoffPolicy(b, DefaultTransientClassifier)
}

// SlowInstantiation returns the policy used only around eventual
// consistency windows, such as retrying Put right after auto-creating a
// queue. It is patient rather than quick: a long constant-interval retry,
// each delay capped at two minutes.
func SlowInstantiation() Policy {
	b := goretry.NewConstant(1 * time.Second)
	b = goretry.WithMaxRetries(60, b)
	b = goretry.WithCappedDuration(2*time.Minute, b)
	b = goretry.WithJitterPercent(10, b)
	return NewBackoffPolicy(b, DefaultTransientClassifier)
}
