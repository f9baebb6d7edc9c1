package api

import (
	"context"
	"errors"
	"log"
	"time"
)

// Middleware decorates a Completer with a cross-cutting concern.
type Middleware func(Completer) Completer

// Wrap applies middlewares in left-to-right order.
// Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Completer, mws ...Middleware) Completer {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// Retry retries failed completions up to maxAttempts with exponential
// backoff starting at baseDelay. Permanent errors and canceled contexts
// stop immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Completer) Completer {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Completer
	max  int
	base time.Duration
}

func (r *retrying) Close() error { return Close(r.next) }

func (r *retrying) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		text, err := r.next.Complete(ctx, prompt, temperature)
		if err == nil {
			return text, nil
		}
		if IsPermanent(err) {
			return "", err
		}
		last = err
		if i == r.max-1 {
			break
		}
		timer := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", last
}

// RateLimit limits request rate to rps with the given burst.
// If rps <= 0 the middleware passes calls straight through.
func RateLimit(rps float64, burst int) Middleware {
	return func(next Completer) Completer {
		return &rateLimited{next: next, rl: newRPSLimiter(rps, burst)}
	}
}

type rateLimited struct {
	next Completer
	rl   *rpsLimiter
}

func (c *rateLimited) Close() error {
	c.rl.Stop()
	return Close(c.next)
}

func (c *rateLimited) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return "", err
	}
	return c.next.Complete(ctx, prompt, temperature)
}

// WithLogging logs request size, latency and errors. A nil logger uses log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Completer) Completer {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Completer
	log  *log.Logger
}

func (l *logging) Close() error { return Close(l.next) }

func (l *logging) Complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	start := time.Now()
	l.log.Printf("[api] request: %d bytes, temperature %.2f", len(prompt), temperature)
	text, err := l.next.Complete(ctx, prompt, temperature)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			l.log.Printf("[api] canceled after %s", time.Since(start).Round(time.Millisecond))
		} else {
			l.log.Printf("[api] error after %s: %v", time.Since(start).Round(time.Millisecond), err)
		}
		return "", err
	}
	l.log.Printf("[api] response: %d bytes in %s", len(text), time.Since(start).Round(time.Millisecond))
	return text, nil
}
