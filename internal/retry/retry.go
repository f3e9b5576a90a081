package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

// Policy controls how Do retries an operation. Zero values fall back to
// DefaultMaxAttempts and DefaultBaseDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      logrus.FieldLogger

	sleep func(ctx context.Context, d time.Duration) error
}

// StepError is returned once every attempt of a labelled operation failed.
type StepError struct {
	Label    string
	Attempts int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: operation failed after %d attempts: %v", e.Label, e.Attempts, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Backoff is the wait after failed attempt n (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<(attempt-1))
}

// Do runs op up to p.MaxAttempts times, one attempt at a time, sleeping with
// exponential backoff between failures.
func Do[T any](ctx context.Context, p Policy, label string, op func(context.Context) (T, error)) (T, error) {
	var zero T

	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	log := p.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		entry := log.WithFields(logrus.Fields{
			"step":    label,
			"attempt": attempt,
			"of":      maxAttempts,
		}).WithError(err)
		entry.Warn("attempt failed")

		if IsPermanent(err) {
			return zero, &StepError{Label: label, Attempts: attempt, Err: err}
		}
		if attempt == maxAttempts {
			break
		}

		delay := p.Backoff(attempt)
		log.WithFields(logrus.Fields{
			"step":  label,
			"delay": delay.String(),
		}).Info("retrying after backoff")
		if err := sleep(ctx, delay); err != nil {
			return zero, &StepError{Label: label, Attempts: attempt, Err: err}
		}
	}
	return zero, &StepError{Label: label, Attempts: maxAttempts, Err: lastErr}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, p Policy, label string, op func(context.Context) error) error {
	_, err := Do(ctx, p, label, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
