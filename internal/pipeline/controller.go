package pipeline

import (
	"errors"
	"log/slog"
	"sync"

	"prettify/internal/logging"
	"prettify/internal/telemetry"
)

// Runtime executes requests off the caller's goroutine. Submit must not
// block and must call deliver exactly once per accepted request, unless the
// runtime is closed first. A non-nil error means the request was not
// accepted and deliver will not be called.
type Runtime interface {
	Submit(req Request, deliver func(Response)) error
}

type Option func(*Controller)

func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithInitialOutput seeds the current output, e.g. from a persisted
// snapshot. The controller still starts Idle.
func WithInitialOutput(output string) Option {
	return func(c *Controller) { c.output = output }
}

// Controller owns one pipeline's state. Multiple independent pipelines use
// multiple Controllers.
type Controller struct {
	rt      Runtime
	log     *slog.Logger
	metrics *telemetry.Metrics

	mu       sync.Mutex // guards everything below
	corr     Correlator
	answered uint64
	input    string
	output   string
	lastErr  error
	state    State
	closed   bool
	subs     []func(Snapshot)

	notifyMu sync.Mutex // serializes subscriber calls
	notified uint64
}

func NewController(rt Runtime, opts ...Option) *Controller {
	c := &Controller{rt: rt}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = logging.L()
	}
	return c
}

// Subscribe registers fn to be called after every fresh response. Calls are
// serialized and never go backwards in sequence. fn must not feed input back
// into the same Controller synchronously.
func (c *Controller) Subscribe(fn func(Snapshot)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

// OnInputChanged issues a request for text, submits it and returns the
// issued sequence number (0 once closed). A submission the runtime refuses
// is answered locally with a failed response, so the pipeline settles with
// an error and keeps its output.
func (c *Controller) OnInputChanged(text string) uint64 {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.log.Debug("pipeline: input after close ignored")
		return 0
	}
	req := c.corr.Issue(text)
	c.input = text
	c.state = Pending
	c.mu.Unlock()

	c.metrics.RequestIssued()

	if err := c.rt.Submit(req, c.OnResponseReceived); err != nil {
		c.OnResponseReceived(Failed(req, err))
	}
	return req.Seq
}

// OnResponseReceived applies resp if it answers the latest request and drops
// it otherwise.
func (c *Controller) OnResponseReceived(resp Response) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.metrics.Response("ignored")
		return
	}
	if !c.corr.Accept(resp) || c.answered == resp.Seq {
		latest := c.corr.Latest()
		c.mu.Unlock()
		c.metrics.Response("stale")
		c.log.Debug("pipeline: dropped stale response", "seq", resp.Seq, "latest", latest)
		return
	}

	c.answered = resp.Seq
	if resp.OK() {
		c.output = resp.Output
		c.lastErr = nil
	} else {
		c.lastErr = resp.Err
	}
	c.state = Settled
	snap := c.snapshotLocked()
	subs := append([]func(Snapshot){}, c.subs...)
	c.mu.Unlock()

	c.metrics.Response("accepted")
	if !resp.OK() {
		c.metrics.Failure(failureKind(resp.Err))
		c.log.Warn("pipeline: transform failed", "seq", resp.Seq, "err", resp.Err)
	}
	c.notify(snap, subs)
}

func (c *Controller) notify(snap Snapshot, subs []func(Snapshot)) {
	if len(subs) == 0 {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if snap.Seq <= c.notified {
		return
	}
	c.notified = snap.Seq
	for _, fn := range subs {
		fn(snap)
	}
}

func (c *Controller) CurrentOutput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.output
}

func (c *Controller) CurrentError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Close detaches the controller. Responses still in flight are ignored when
// they arrive.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.subs = nil
	c.mu.Unlock()
}

// must be called with c.mu held
func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Seq:    c.corr.Latest(),
		Input:  c.input,
		Output: c.output,
		Err:    c.lastErr,
		State:  c.state,
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case errors.Is(err, ErrRuntimeUnavailable):
		return "unavailable"
	default:
		return "transform"
	}
}
