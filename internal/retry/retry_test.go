package retry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger(buf *bytes.Buffer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(buf)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return l
}

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func TestDo_SucceedsOnThirdAttempt(t *testing.T) {
	var buf bytes.Buffer
	rec := &sleepRecorder{}
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, Logger: testLogger(&buf), sleep: rec.sleep}

	calls := 0
	got, err := Do(context.Background(), p, "generate script", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("boom %d", calls)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Fatalf("got %q, want ok", got)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(rec.waits) != 2 || rec.waits[0] != time.Second || rec.waits[1] != 2*time.Second {
		t.Fatalf("unexpected backoff waits: %v", rec.waits)
	}
	out := buf.String()
	if strings.Count(out, "attempt failed") != 2 {
		t.Fatalf("expected 2 warnings, log:\n%s", out)
	}
	if strings.Count(out, "retrying after backoff") != 2 {
		t.Fatalf("expected 2 backoff notices, log:\n%s", out)
	}
	if !strings.Contains(out, "level=warning") {
		t.Fatalf("expected warning level entries, log:\n%s", out)
	}
}

func TestDo_Exhausted(t *testing.T) {
	var buf bytes.Buffer
	rec := &sleepRecorder{}
	p := Policy{MaxAttempts: 3, Logger: testLogger(&buf), sleep: rec.sleep}

	cause := errors.New("upstream 503")
	calls := 0
	_, err := Do(context.Background(), p, "generate image", func(context.Context) (int, error) {
		calls++
		return 0, cause
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(rec.waits) != 2 {
		t.Fatalf("final attempt must not sleep, waits: %v", rec.waits)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain, got %v", err)
	}
	var se *StepError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if se.Label != "generate image" || se.Attempts != 3 {
		t.Fatalf("unexpected step error: %+v", se)
	}
	if !strings.Contains(err.Error(), "operation failed after 3 attempts") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	var buf bytes.Buffer
	rec := &sleepRecorder{}
	p := Policy{Logger: testLogger(&buf), sleep: rec.sleep}

	cause := errors.New("missing key")
	calls := 0
	err := Run(context.Background(), p, "synthesize audio", func(context.Context) error {
		calls++
		return Permanent(cause)
	})
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
	if len(rec.waits) != 0 {
		t.Fatalf("expected no backoff, got %v", rec.waits)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain, got %v", err)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	var buf bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxAttempts: 3, BaseDelay: time.Hour, Logger: testLogger(&buf)}
	calls := 0
	err := Run(ctx, p, "compose video", func(context.Context) error {
		calls++
		return errors.New("nope")
	})
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoff(t *testing.T) {
	p := Policy{BaseDelay: 100 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := p.Backoff(i + 1); got != w {
			t.Fatalf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
	if got := (Policy{}).Backoff(1); got != DefaultBaseDelay {
		t.Fatalf("default backoff = %v", got)
	}
}
