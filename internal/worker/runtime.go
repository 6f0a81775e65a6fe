// Package worker runs transforms off the caller's goroutine and answers every
// submitted request exactly once.
//
// Two scheduling policies are available. Concurrent starts each request
// immediately, bounded by a Limiter. Serial runs one transform at a time with
// a single waiting slot: a newer submission replaces a waiting one, and the
// replaced request is answered with pipeline.ErrSuperseded. Neither policy
// orders results; freshness is the Controller's job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"prettify/internal/logging"
	"prettify/internal/pipeline"
	"prettify/internal/telemetry"
	"prettify/internal/transform"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Policy string

const (
	Concurrent Policy = "concurrent"
	Serial     Policy = "serial"
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", Concurrent:
		return Concurrent, nil
	case Serial:
		return Serial, nil
	default:
		return "", fmt.Errorf("worker: unknown policy %q", s)
	}
}

// PanicError is a recovered engine panic.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string { return fmt.Sprintf("worker: engine panic: %v", e.Value) }

type Option func(*Runtime)

func WithPolicy(p Policy) Option { return func(r *Runtime) { r.policy = p } }

// WithTimeout bounds a single engine call. Zero disables it. The bound is
// enforced through the call's context, so it only stops engines that watch
// ctx; xmlfmt.Engine and the gRPC client both do.
func WithTimeout(d time.Duration) Option { return func(r *Runtime) { r.timeout = d } }

// WithMaxInFlight bounds concurrent transforms under the Concurrent policy.
// Zero means unbounded.
func WithMaxInFlight(n int) Option { return func(r *Runtime) { r.maxInFlight = n } }

// WithRetry retries calls failing with transform.ErrUnavailable. Input the
// engine rejects is never retried.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(r *Runtime) { r.attempts, r.backoff = attempts, backoff }
}

func WithMetrics(m *telemetry.Metrics) Option { return func(r *Runtime) { r.metrics = m } }

type job struct {
	req     pipeline.Request
	deliver func(pipeline.Response)
}

// Runtime hosts one engine. With the Serial policy a Runtime must serve a
// single Controller, since superseding is only correct within one sequence.
type Runtime struct {
	engine      transform.Engine
	policy      Policy
	timeout     time.Duration
	maxInFlight int
	attempts    int
	backoff     time.Duration
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
	limit       *Limiter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex // guards closed+queued
	closed bool
	queued *job
	wake   chan struct{}
}

var _ pipeline.Runtime = (*Runtime)(nil)

func New(engine transform.Engine, opts ...Option) *Runtime {
	r := &Runtime{engine: engine, policy: Concurrent}
	for _, o := range opts {
		o(r)
	}
	r.tracer = otel.Tracer("prettify/worker")
	r.ctx, r.cancel = context.WithCancel(context.Background())

	switch r.policy {
	case Serial:
		r.wake = make(chan struct{}, 1)
		r.wg.Add(1)
		go r.loop()
	default:
		if r.maxInFlight > 0 {
			r.limit = NewLimiter(int64(r.maxInFlight))
		}
	}
	return r
}

// Submit schedules req and returns immediately. deliver runs on a worker
// goroutine, or inline when a waiting request is superseded.
func (r *Runtime) Submit(req pipeline.Request, deliver func(pipeline.Response)) error {
	j := job{req: req, deliver: deliver}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return pipeline.ErrRuntimeUnavailable
	}
	if r.policy == Serial {
		prev := r.queued
		r.queued = &j
		r.mu.Unlock()
		if prev != nil {
			r.metrics.Failure("superseded")
			prev.deliver(pipeline.Failed(prev.req, pipeline.ErrSuperseded))
		}
		select {
		case r.wake <- struct{}{}:
		default:
		}
		return nil
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		r.run(j)
	}()
	return nil
}

// Close stops accepting work and waits for running transforms. Requests not
// yet answered are dropped.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.queued = nil
	r.mu.Unlock()

	r.cancel()
	if r.limit != nil {
		r.limit.Close()
	}
	r.wg.Wait()
	return nil
}

func (r *Runtime) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-r.wake:
		}
		r.mu.Lock()
		j := r.queued
		r.queued = nil
		r.mu.Unlock()
		if j != nil {
			r.run(*j)
		}
	}
}

func (r *Runtime) run(j job) {
	if r.limit != nil {
		if err := r.limit.Acquire(r.ctx); err != nil {
			return
		}
		defer r.limit.Release(1)
	}

	out, err := r.transform(j.req)
	if r.ctx.Err() != nil {
		return
	}
	if err != nil {
		j.deliver(pipeline.Failed(j.req, err))
		return
	}
	j.deliver(pipeline.Succeeded(j.req.Seq, out))
}

func (r *Runtime) transform(req pipeline.Request) (string, error) {
	ctx, span := r.tracer.Start(r.ctx, "worker.transform", trace.WithAttributes(
		attribute.Int64("prettify.seq", int64(req.Seq)),
		attribute.Int("prettify.payload_bytes", len(req.Payload)),
	))
	defer span.End()

	var err error
	for attempt := 0; attempt <= r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(r.backoff):
			}
		}
		var out string
		out, err = r.once(ctx, req.Payload)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, transform.ErrUnavailable) {
			break
		}
		logging.L().Warn("worker: engine unavailable", "seq", req.Seq, "attempt", attempt+1, "err", err)
	}

	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())
	if errors.Is(err, transform.ErrUnavailable) {
		err = fmt.Errorf("%w: %w", pipeline.ErrRuntimeUnavailable, err)
	}
	return "", err
}

func (r *Runtime) once(ctx context.Context, payload string) (out string, err error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	done := r.metrics.TransformStarted()
	defer done()
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p, Stack: string(debug.Stack())}
		}
	}()
	return r.engine.Transform(ctx, payload)
}
