package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Timeout bounds each tool call with a deadline. A tool that ignores its
// context is abandoned when the deadline passes and the call fails with
// context.DeadlineExceeded. Variable writes an abandoned tool makes after
// that point are dropped.
func Timeout(d time.Duration) Middleware {
	return func(name string, next Func) Func {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, args map[string]any, env Env) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			var guard *guardedEnv
			callEnv := env
			if env != nil {
				guard = &guardedEnv{Env: env}
				callEnv = guard
			}

			type outcome struct {
				result any
				err    error
			}
			done := make(chan outcome, 1)
			go func() {
				result, err := next(ctx, args, callEnv)
				done <- outcome{result, err}
			}()

			select {
			case out := <-done:
				return out.result, out.err
			case <-ctx.Done():
				if guard != nil {
					guard.abandon()
				}
				return nil, fmt.Errorf("%s timed out after %s: %w", name, d, ctx.Err())
			}
		}
	}
}

// guardedEnv forwards to Env until its call is abandoned.
type guardedEnv struct {
	Env

	mu        sync.RWMutex
	abandoned bool
}

func (g *guardedEnv) Set(name string, value any) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.abandoned {
		return
	}
	g.Env.Set(name, value)
}

// abandon returns once no write is in flight; later writes are dropped.
func (g *guardedEnv) abandon() {
	g.mu.Lock()
	g.abandoned = true
	g.mu.Unlock()
}

// Logging logs every call at debug level and failures at warn level.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(name string, next Func) Func {
		return func(ctx context.Context, args map[string]any, env Env) (any, error) {
			start := time.Now()
			result, err := next(ctx, args, env)
			attrs := []any{"tool", name, "duration", time.Since(start)}
			if env != nil {
				attrs = append(attrs, "run_id", env.RunID(), "bot", env.Bot())
			}
			if err != nil {
				logger.Warn("tool call failed", append(attrs, "error", err)...)
				return result, err
			}
			logger.Debug("tool call", attrs...)
			return result, nil
		}
	}
}

// Tracing records an OpenTelemetry span around every call using the
// globally registered tracer provider.
func Tracing() Middleware {
	tracer := otel.Tracer("botlang/tools")
	return func(name string, next Func) Func {
		return func(ctx context.Context, args map[string]any, env Env) (any, error) {
			attrs := []attribute.KeyValue{
				attribute.String("botlang.tool.name", name),
				attribute.Int("botlang.tool.args", len(args)),
			}
			if env != nil {
				attrs = append(attrs,
					attribute.String("botlang.run_id", env.RunID()),
					attribute.String("botlang.bot", env.Bot()),
				)
			}
			ctx, span := tracer.Start(ctx, "tool "+name, oteltrace.WithAttributes(attrs...))
			defer span.End()

			result, err := next(ctx, args, env)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return result, err
			}
			return result, nil
		}
	}
}
