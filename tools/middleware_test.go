package tools

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTimeout(t *testing.T) {
	ts := New(WithMiddleware(Timeout(20 * time.Millisecond)))
	ts.Register("slow", func(ctx context.Context, args map[string]any) (any, error) {
		select {
		case <-time.After(time.Second):
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	ts.Register("fast", func(args map[string]any) (any, error) { return "ok", nil })

	_, err := ts.Execute(context.Background(), "slow", nil, newTestEnv())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("slow error = %v, want DeadlineExceeded", err)
	}
	if got := execute(t, ts, "fast", nil); got != "ok" {
		t.Errorf("fast = %v, want ok", got)
	}
}

func TestTimeoutDropsLateWrites(t *testing.T) {
	release, finished := make(chan struct{}), make(chan struct{})
	ts := New(WithMiddleware(Timeout(100 * time.Millisecond)))
	ts.Register("stuck", func(ctx context.Context, args map[string]any, env Env) (any, error) {
		defer close(finished)
		env.Set("early", 1)
		<-release
		env.Set("late", 2)
		return nil, nil
	})

	env := newTestEnv()
	_, err := ts.Execute(context.Background(), "stuck", nil, env)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want DeadlineExceeded", err)
	}
	close(release)
	<-finished

	if _, ok := env.vars["early"]; !ok {
		t.Error("write before the deadline was dropped")
	}
	if v, ok := env.vars["late"]; ok {
		t.Errorf("late = %v, want write after the deadline dropped", v)
	}
}

func TestTimeoutZeroDisabled(t *testing.T) {
	called := false
	next := Func(func(ctx context.Context, args map[string]any, env Env) (any, error) {
		_, hasDeadline := ctx.Deadline()
		called = !hasDeadline
		return nil, nil
	})
	Timeout(0)("x", next)(context.Background(), nil, newTestEnv())
	if !called {
		t.Error("Timeout(0) should not set a deadline")
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ts := New(WithMiddleware(Logging(logger)))
	ts.Register("ok", func(args map[string]any) (any, error) { return nil, nil })
	ts.Register("bad", func(args map[string]any) (any, error) { return nil, errors.New("nope") })

	ts.Execute(context.Background(), "ok", nil, newTestEnv())
	ts.Execute(context.Background(), "bad", nil, newTestEnv())

	out := buf.String()
	if !strings.Contains(out, "tool call") || !strings.Contains(out, "tool=ok") {
		t.Errorf("missing debug line for ok:\n%s", out)
	}
	if !strings.Contains(out, "tool call failed") || !strings.Contains(out, "nope") {
		t.Errorf("missing warn line for bad:\n%s", out)
	}
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ts := New(WithMiddleware(Tracing()))
	ts.Register("traced", func(args map[string]any) (any, error) { return nil, errors.New("fail") })
	ts.Execute(context.Background(), "traced", nil, newTestEnv())

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "tool traced" {
		t.Errorf("span name = %q, want 'tool traced'", spans[0].Name())
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected the error to be recorded on the span")
	}
}
