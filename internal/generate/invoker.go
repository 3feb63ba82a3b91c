package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/pringgosatmoko/Creativestudio/internal/keypool"
	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
)

// InvokerConfig tunes the retry/rotation controller.
type InvokerConfig struct {
	// MaxRetries is the number of extra attempts after the first, each
	// preceded by a credential rotation.
	MaxRetries int

	// Backoff is the fixed delay between attempts.
	Backoff time.Duration

	// PollInterval is the delay between status polls of an asynchronous job.
	PollInterval time.Duration

	// Timeout bounds one whole Invoke call, polling included. Zero means
	// no explicit deadline beyond the caller's context.
	Timeout time.Duration
}

// DefaultInvokerConfig returns the production defaults: three total
// attempts, a fixed 4s backoff, 8s polls, and a five minute ceiling.
func DefaultInvokerConfig() InvokerConfig {
	return InvokerConfig{
		MaxRetries:   2,
		Backoff:      4 * time.Second,
		PollInterval: 8 * time.Second,
		Timeout:      5 * time.Minute,
	}
}

// Result is the outcome of a successful Invoke.
type Result struct {
	Artifact  Artifact
	Attempts  int
	Rotations int
}

// Invoker wraps a Provider with bounded retry and credential rotation.
// Quota-class failures advance the pool and retry; anything else is fatal
// on the first occurrence.
type Invoker struct {
	provider Provider
	pool     *keypool.Pool
	cfg      InvokerConfig
	logger   logging.Logger
}

// NewInvoker creates an Invoker.
func NewInvoker(provider Provider, pool *keypool.Pool, cfg InvokerConfig, logger logging.Logger) *Invoker {
	return &Invoker{provider: provider, pool: pool, cfg: cfg, logger: logger}
}

// Ready reports whether the invoker can place a call at all. Callers use it
// to fail fast before charging.
func (iv *Invoker) Ready() error {
	if !iv.pool.HasCredentials() {
		return ErrNoCredentials
	}
	return nil
}

// Invoke submits the request, polls asynchronous jobs to completion and
// fetches the artifact. The credential used for polling and fetching is the
// one that submitted the attempt.
func (iv *Invoker) Invoke(ctx context.Context, req Request) (*Result, error) {
	if err := iv.Ready(); err != nil {
		return nil, err
	}

	if iv.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.cfg.Timeout)
		defer cancel()
	}

	rotations := 0
	for attempt := 0; ; attempt++ {
		credential := iv.pool.Current()

		artifact, err := iv.attempt(ctx, req, credential)
		if err == nil {
			iv.logger.WithFields(logging.Fields{
				"kind":      req.Kind,
				"attempts":  attempt + 1,
				"rotations": rotations,
			}).Info("Generation succeeded")
			return &Result{Artifact: *artifact, Attempts: attempt + 1, Rotations: rotations}, nil
		}

		if IsQuotaClass(err) {
			if attempt < iv.cfg.MaxRetries {
				iv.pool.Advance()
				rotations++
				iv.logger.WithFields(logging.Fields{
					"kind":    req.Kind,
					"attempt": attempt + 1,
					"error":   err.Error(),
				}).Warn("Quota-class failure, rotating credential and retrying")

				if err := sleep(ctx, iv.cfg.Backoff); err != nil {
					return nil, &FatalError{Err: err}
				}
				continue
			}
			iv.logger.WithFields(logging.Fields{
				"kind":     req.Kind,
				"attempts": attempt + 1,
			}).Error("Rotation budget exhausted")
			return nil, fmt.Errorf("%w (%d attempts): %v", ErrQuotaExhausted, attempt+1, err)
		}

		if _, ok := err.(*FatalError); ok {
			return nil, err
		}
		return nil, &FatalError{Err: err}
	}
}

// attempt runs one submit/poll/fetch cycle with a single credential.
func (iv *Invoker) attempt(ctx context.Context, req Request, credential string) (*Artifact, error) {
	handle, err := iv.provider.Submit(ctx, req, credential)
	if err != nil {
		return nil, err
	}

	if handle.Done && handle.Artifact != nil {
		return handle.Artifact, nil
	}

	location := handle.Location
	for !handle.Done {
		if err := sleep(ctx, iv.cfg.PollInterval); err != nil {
			return nil, &FatalError{Err: fmt.Errorf("generation deadline exceeded: %w", err)}
		}
		status, err := iv.provider.Poll(ctx, handle, credential)
		if err != nil {
			// Quota-class signatures during polling still count against the
			// rotation budget; everything else ends the flow here.
			if IsQuotaClass(err) {
				return nil, err
			}
			return nil, &FatalError{Err: err}
		}
		if status.Done {
			location = status.Location
			break
		}
	}

	if location == "" {
		return nil, &FatalError{Err: fmt.Errorf("job %s completed without an artifact location", handle.ID)}
	}

	artifact, err := iv.provider.Fetch(ctx, location, credential)
	if err != nil {
		if IsQuotaClass(err) {
			return nil, err
		}
		return nil, &FatalError{Err: err}
	}
	return &artifact, nil
}

// sleep waits for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
