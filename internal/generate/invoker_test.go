package generate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pringgosatmoko/Creativestudio/internal/keypool"
	"github.com/pringgosatmoko/Creativestudio/pkg/logging"
	"github.com/pringgosatmoko/Creativestudio/pkg/models"
)

// stubProvider fails the first failCount submits with failErr, then
// succeeds synchronously. It records every credential it was handed.
type stubProvider struct {
	failCount   int
	failErr     error
	submits     int
	credentials []string
}

func (s *stubProvider) Submit(ctx context.Context, req Request, credential string) (JobHandle, error) {
	s.submits++
	s.credentials = append(s.credentials, credential)
	if s.submits <= s.failCount {
		return JobHandle{}, s.failErr
	}
	return JobHandle{
		ID:   "job-1",
		Done: true,
		Artifact: &Artifact{
			Kind:     req.Kind,
			MIMEType: "image/png",
			Data:     []byte("artifact"),
		},
	}, nil
}

func (s *stubProvider) Poll(ctx context.Context, handle JobHandle, credential string) (JobStatus, error) {
	return JobStatus{Done: true}, nil
}

func (s *stubProvider) Fetch(ctx context.Context, location, credential string) (Artifact, error) {
	return Artifact{}, fmt.Errorf("unexpected fetch of %s", location)
}

func testInvokerConfig() InvokerConfig {
	return InvokerConfig{
		MaxRetries:   2,
		Backoff:      time.Millisecond,
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
	}
}

func TestInvokeRotatesThroughQuotaFailures(t *testing.T) {
	for failures := 0; failures <= 2; failures++ {
		provider := &stubProvider{failCount: failures, failErr: fmt.Errorf("slot busy: %w", ErrRateLimited)}
		pool := keypool.New([]string{"key-a", "key-b", "key-c"})
		iv := NewInvoker(provider, pool, testInvokerConfig(), logging.NewNopLogger())

		result, err := iv.Invoke(context.Background(), Request{Kind: models.KindImage, Prompt: "a cat"})
		if err != nil {
			t.Fatalf("failures=%d: unexpected error: %v", failures, err)
		}
		if result.Attempts != failures+1 {
			t.Errorf("failures=%d: attempts = %d, want %d", failures, result.Attempts, failures+1)
		}
		if result.Rotations != failures {
			t.Errorf("failures=%d: rotations = %d, want %d", failures, result.Rotations, failures)
		}
		if string(result.Artifact.Data) != "artifact" {
			t.Errorf("failures=%d: missing artifact payload", failures)
		}
	}
}

func TestInvokeExhaustsRotationBudget(t *testing.T) {
	provider := &stubProvider{failCount: 3, failErr: ErrRateLimited}
	pool := keypool.New([]string{"key-a", "key-b", "key-c"})
	iv := NewInvoker(provider, pool, testInvokerConfig(), logging.NewNopLogger())

	_, err := iv.Invoke(context.Background(), Request{Kind: models.KindVideo})
	if !errors.Is(err, ErrQuotaExhausted) {
		t.Fatalf("error = %v, want ErrQuotaExhausted", err)
	}
	if provider.submits != 3 {
		t.Errorf("submits = %d, want 3", provider.submits)
	}
}

func TestInvokeFatalErrorDoesNotRotate(t *testing.T) {
	provider := &stubProvider{failCount: 5, failErr: errors.New("payload rejected")}
	pool := keypool.New([]string{"key-a", "key-b"})
	iv := NewInvoker(provider, pool, testInvokerConfig(), logging.NewNopLogger())

	_, err := iv.Invoke(context.Background(), Request{Kind: models.KindImage})
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("error = %v, want *FatalError", err)
	}
	if provider.submits != 1 {
		t.Errorf("submits = %d, want 1", provider.submits)
	}
}

func TestInvokeCredentialInvalidCountsAsQuotaClass(t *testing.T) {
	provider := &stubProvider{failCount: 1, failErr: ErrCredentialInvalid}
	pool := keypool.New([]string{"key-a", "key-b"})
	iv := NewInvoker(provider, pool, testInvokerConfig(), logging.NewNopLogger())

	result, err := iv.Invoke(context.Background(), Request{Kind: models.KindVoice})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Rotations != 1 {
		t.Errorf("rotations = %d, want 1", result.Rotations)
	}
	if provider.credentials[0] == provider.credentials[1] {
		t.Errorf("retry reused credential %q", provider.credentials[0])
	}
}

func TestInvokeEmptyPool(t *testing.T) {
	provider := &stubProvider{}
	pool := keypool.New([]string{"", "", ""})
	iv := NewInvoker(provider, pool, testInvokerConfig(), logging.NewNopLogger())

	_, err := iv.Invoke(context.Background(), Request{Kind: models.KindImage})
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("error = %v, want ErrNoCredentials", err)
	}
	if provider.submits != 0 {
		t.Errorf("provider was called with an empty pool")
	}
}

// asyncProvider models a long-running job: submit returns a pending handle,
// the job completes after a fixed number of polls, and the artifact is
// fetched from the reported location.
type asyncProvider struct {
	pollsUntilDone int
	polls          int
	submitCred     string
	pollCreds      []string
	fetchCred      string
	fetchLocation  string
}

func (a *asyncProvider) Submit(ctx context.Context, req Request, credential string) (JobHandle, error) {
	a.submitCred = credential
	return JobHandle{ID: "op-42", Done: false}, nil
}

func (a *asyncProvider) Poll(ctx context.Context, handle JobHandle, credential string) (JobStatus, error) {
	a.polls++
	a.pollCreds = append(a.pollCreds, credential)
	if a.polls >= a.pollsUntilDone {
		return JobStatus{Done: true, Location: "https://example.com/files/op-42"}, nil
	}
	return JobStatus{}, nil
}

func (a *asyncProvider) Fetch(ctx context.Context, location, credential string) (Artifact, error) {
	a.fetchCred = credential
	a.fetchLocation = location
	return Artifact{Kind: models.KindVideo, MIMEType: "video/mp4", Data: []byte("frames")}, nil
}

func TestInvokePollsAsyncJobWithSubmittingCredential(t *testing.T) {
	provider := &asyncProvider{pollsUntilDone: 3}
	pool := keypool.New([]string{"key-a", "key-b"})
	iv := NewInvoker(provider, pool, testInvokerConfig(), logging.NewNopLogger())

	result, err := iv.Invoke(context.Background(), Request{Kind: models.KindVideo, Prompt: "waves"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.polls != 3 {
		t.Errorf("polls = %d, want 3", provider.polls)
	}
	for _, cred := range provider.pollCreds {
		if cred != provider.submitCred {
			t.Errorf("poll used %q, submit used %q", cred, provider.submitCred)
		}
	}
	if provider.fetchCred != provider.submitCred {
		t.Errorf("fetch used %q, submit used %q", provider.fetchCred, provider.submitCred)
	}
	if provider.fetchLocation != "https://example.com/files/op-42" {
		t.Errorf("fetch location = %q", provider.fetchLocation)
	}
	if result.Artifact.MIMEType != "video/mp4" {
		t.Errorf("artifact mime = %q", result.Artifact.MIMEType)
	}
}

func TestInvokeDeadlineDuringPolling(t *testing.T) {
	provider := &asyncProvider{pollsUntilDone: 1000}
	pool := keypool.New([]string{"key-a"})
	cfg := testInvokerConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.Timeout = 20 * time.Millisecond
	iv := NewInvoker(provider, pool, cfg, logging.NewNopLogger())

	_, err := iv.Invoke(context.Background(), Request{Kind: models.KindVideo})
	var fatal *FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("error = %v, want *FatalError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want wrapped deadline exceeded", err)
	}
}
