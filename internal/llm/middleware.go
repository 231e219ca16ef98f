package llm

import (
	"context"
	"errors"
	"log"
	"time"

	"genforge/internal/ratelimit"
)

// Middleware decorates a Client to inject cross-cutting concerns
// (rate limiting, retries, logging).
type Middleware func(Client) Client

// Wrap applies middlewares in left-to-right order.
// Example: Wrap(inner, A, B) => A(B(inner))
func Wrap(inner Client, mws ...Middleware) Client {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

// RateLimit gates every Generate call on the given limiter and releases the
// slot when the call returns. A nil limiter disables the middleware.
func RateLimit(lim *ratelimit.Limiter) Middleware {
	return func(next Client) Client {
		return &rateLimited{next: next, lim: lim}
	}
}

type rateLimited struct {
	next Client
	lim  *ratelimit.Limiter
}

func (c *rateLimited) Name() string { return c.next.Name() }
func (c *rateLimited) Close() error { return c.next.Close() }
func (c *rateLimited) Generate(ctx context.Context, prompt string, input any) (string, error) {
	if c.lim != nil {
		if err := c.lim.Acquire(ctx); err != nil {
			return "", err
		}
		defer c.lim.Release()
	}
	return c.next.Generate(ctx, prompt, input)
}

// Retry retries Generate up to maxAttempts with exponential backoff starting
// at baseDelay. Permanent errors and context cancellation stop immediately.
func Retry(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 300 * time.Millisecond
	}
	return func(next Client) Client {
		return &retrying{next: next, max: maxAttempts, base: baseDelay}
	}
}

type retrying struct {
	next Client
	max  int
	base time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }
func (r *retrying) Generate(ctx context.Context, prompt string, input any) (string, error) {
	var last error
	for i := 0; i < r.max; i++ {
		out, err := r.next.Generate(ctx, prompt, input)
		if err == nil {
			return out, nil
		}
		var pErr *PermanentError
		if errors.As(err, &pErr) {
			return "", err
		}
		last = err
		if i == r.max-1 {
			break
		}
		timer := time.NewTimer(r.base * time.Duration(1<<i))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
	}
	return "", last
}

// LogRequests logs one line per Generate with outcome and elapsed time.
func LogRequests() Middleware {
	return func(next Client) Client {
		return &logging{next: next}
	}
}

type logging struct {
	next Client
}

func (c *logging) Name() string { return c.next.Name() }
func (c *logging) Close() error { return c.next.Close() }
func (c *logging) Generate(ctx context.Context, prompt string, input any) (string, error) {
	start := time.Now()
	out, err := c.next.Generate(ctx, prompt, input)
	if err != nil {
		log.Printf("llm %s: error after %v: %v", c.next.Name(), time.Since(start), err)
		return "", err
	}
	log.Printf("llm %s: %d bytes in %v", c.next.Name(), len(out), time.Since(start))
	return out, nil
}
