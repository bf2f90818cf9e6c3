package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type scriptedClient struct {
	calls     int
	responses []string
	errs      []error
}

func (s *scriptedClient) Generate(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return s.responses[i], s.errs[i]
}

func newRecordingRetrier(base Client) (*RetryingClient, *[]time.Duration) {
	pauses := &[]time.Duration{}
	r := NewRetrying(base, DefaultRetryPolicy(), "req-1")
	r.Sleep = func(ctx context.Context, d time.Duration) error {
		_ = ctx
		*pauses = append(*pauses, d)
		return nil
	}
	return r, pauses
}

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	base := &scriptedClient{
		responses: []string{"", "", `{"ok":true}`},
		errs:      []error{errors.New("boom"), errors.New("boom again"), nil},
	}
	r, pauses := newRecordingRetrier(base)

	got, err := r.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("unexpected response: %q", got)
	}
	if base.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", base.calls)
	}
	if len(*pauses) != 2 {
		t.Fatalf("expected 2 backoff pauses, got %d", len(*pauses))
	}
	for _, d := range *pauses {
		if d != 2*time.Second {
			t.Fatalf("expected 2s pause, got %s", d)
		}
	}
}

func TestRetryExhaustsAfterThreeAttempts(t *testing.T) {
	base := &scriptedClient{
		responses: []string{""},
		errs:      []error{errors.New("service unavailable")},
	}
	r, _ := newRecordingRetrier(base)

	_, err := r.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected terminal error")
	}
	if base.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", base.calls)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("expected attempt count in error, got %v", err)
	}
	if !strings.Contains(err.Error(), "service unavailable") {
		t.Fatalf("expected last error preserved, got %v", err)
	}
}

func TestRetryTreatsEmptyResponseAsFailure(t *testing.T) {
	base := &scriptedClient{
		responses: []string{"   ", "result"},
		errs:      []error{nil, nil},
	}
	r, pauses := newRecordingRetrier(base)

	got, err := r.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected success after empty response retry, got %v", err)
	}
	if got != "result" {
		t.Fatalf("unexpected response: %q", got)
	}
	if base.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", base.calls)
	}
	if len(*pauses) != 1 {
		t.Fatalf("expected 1 pause, got %d", len(*pauses))
	}
}

func TestRetryAlwaysEmptyFailsWithEmptyResponse(t *testing.T) {
	base := &scriptedClient{
		responses: []string{""},
		errs:      []error{nil},
	}
	r, _ := newRecordingRetrier(base)

	_, err := r.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse cause, got %v", err)
	}
	if base.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", base.calls)
	}
}
