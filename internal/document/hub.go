// Package document keeps one independent pipeline per document id.
//
// Each document gets its own Controller and worker runtime; runtimes share the
// engine client they are built from. Every fresh settled snapshot is saved
// to the store and pushed to the configured sinks.
package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"prettify/internal/logging"
	"prettify/internal/pipeline"
	"prettify/internal/storage"
	"prettify/internal/telemetry"
	"prettify/sink"
)

var ErrClosed = errors.New("document: hub closed")

// Runtime is what a document pipeline needs from its worker.
type Runtime interface {
	pipeline.Runtime
	Close() error
}

type Option func(*Hub)

func WithStore(s storage.Store) Option { return func(h *Hub) { h.store = s } }

func WithSinks(s ...sink.Adapter) Option {
	return func(h *Hub) { h.sinks = append(h.sinks, s...) }
}

func WithMetrics(m *telemetry.Metrics) Option { return func(h *Hub) { h.metrics = m } }

type Hub struct {
	newRuntime func() Runtime
	store      storage.Store
	sinks      []sink.Adapter
	metrics    *telemetry.Metrics

	mu     sync.Mutex
	docs   map[string]*doc
	closed bool
}

type doc struct {
	id   string
	ctrl *pipeline.Controller
	rt   Runtime

	mu      sync.Mutex
	done    uint64        // last seq saved and pushed
	changed chan struct{} // closed and replaced on every settle
}

func NewHub(newRuntime func() Runtime, opts ...Option) *Hub {
	h := &Hub{newRuntime: newRuntime, docs: make(map[string]*doc)}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Open returns the document's controller, creating it on first use. A new
// controller starts from the stored output, if any.
func (h *Hub) Open(ctx context.Context, id string) (*pipeline.Controller, error) {
	d, err := h.open(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.ctrl, nil
}

func (h *Hub) open(ctx context.Context, id string) (*doc, error) {
	if id == "" {
		return nil, fmt.Errorf("document: empty id")
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	if d, ok := h.docs[id]; ok {
		h.mu.Unlock()
		return d, nil
	}
	h.mu.Unlock()

	var opts []pipeline.Option
	if h.store != nil {
		rec, err := h.store.Load(ctx, id)
		switch {
		case err == nil:
			opts = append(opts, pipeline.WithInitialOutput(rec.Output))
		case !errors.Is(err, storage.ErrNotFound):
			return nil, err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	if d, ok := h.docs[id]; ok {
		return d, nil
	}

	rt := h.newRuntime()
	opts = append(opts,
		pipeline.WithMetrics(h.metrics),
		pipeline.WithLogger(logging.L().With("doc", id)),
	)
	d := &doc{id: id, rt: rt, ctrl: pipeline.NewController(rt, opts...), changed: make(chan struct{})}
	d.ctrl.Subscribe(func(s pipeline.Snapshot) { h.settled(d, s) })
	h.docs[id] = d
	h.metrics.DocumentOpened()
	return d, nil
}

// Edit feeds a new snapshot of the document's input into its pipeline.
func (h *Hub) Edit(ctx context.Context, id, text string) (uint64, error) {
	d, err := h.open(ctx, id)
	if err != nil {
		return 0, err
	}
	seq := d.ctrl.OnInputChanged(text)
	if seq == 0 {
		return 0, ErrClosed
	}
	return seq, nil
}

// Snapshot reads an open document, or falls back to its stored record.
func (h *Hub) Snapshot(ctx context.Context, id string) (pipeline.Snapshot, error) {
	h.mu.Lock()
	d, ok := h.docs[id]
	h.mu.Unlock()
	if ok {
		return d.ctrl.Snapshot(), nil
	}
	if h.store == nil {
		return pipeline.Snapshot{}, storage.ErrNotFound
	}
	rec, err := h.store.Load(ctx, id)
	if err != nil {
		return pipeline.Snapshot{}, err
	}
	snap := pipeline.Snapshot{Seq: rec.Seq, Input: rec.Input, Output: rec.Output, State: pipeline.Idle}
	if rec.Error != "" {
		snap.Err = errors.New(rec.Error)
	}
	return snap, nil
}

// Await blocks until the latest request is answered and its snapshot has
// been saved and pushed, or ctx is done. It returns the latest snapshot
// either way.
func (h *Hub) Await(ctx context.Context, id string) (pipeline.Snapshot, error) {
	h.mu.Lock()
	d, ok := h.docs[id]
	h.mu.Unlock()
	if !ok {
		return h.Snapshot(ctx, id)
	}
	for {
		d.mu.Lock()
		ch, done := d.changed, d.done
		d.mu.Unlock()

		snap := d.ctrl.Snapshot()
		if snap.State == pipeline.Idle || (snap.State == pipeline.Settled && done >= snap.Seq) {
			return snap, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Documents lists open and stored ids.
func (h *Hub) Documents(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	h.mu.Lock()
	for id := range h.docs {
		seen[id] = true
	}
	h.mu.Unlock()
	if h.store != nil {
		ids, err := h.store.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = true
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// CloseDocument tears down one pipeline. Its stored record stays.
func (h *Hub) CloseDocument(id string) bool {
	h.mu.Lock()
	d, ok := h.docs[id]
	delete(h.docs, id)
	h.mu.Unlock()
	if ok {
		h.teardown(d)
	}
	return ok
}

func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	docs := h.docs
	h.docs = map[string]*doc{}
	h.mu.Unlock()

	for _, d := range docs {
		h.teardown(d)
	}
	var errs []error
	for _, s := range h.sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

func (h *Hub) teardown(d *doc) {
	d.ctrl.Close()
	_ = d.rt.Close()
	h.metrics.DocumentClosed()
}

func (h *Hub) settled(d *doc, snap pipeline.Snapshot) {
	defer func() {
		d.mu.Lock()
		d.done = snap.Seq
		close(d.changed)
		d.changed = make(chan struct{})
		d.mu.Unlock()
	}()

	if h.store != nil {
		rec := storage.Record{ID: d.id, Seq: snap.Seq, Input: snap.Input, Output: snap.Output}
		if snap.Err != nil {
			rec.Error = snap.Err.Error()
		}
		if err := h.store.Save(context.Background(), rec); err != nil {
			logging.L().Error("document: save failed", "doc", d.id, "seq", snap.Seq, "err", err)
		}
	}
	for _, s := range h.sinks {
		if err := s.Push(d.id, snap); err != nil {
			logging.L().Error("document: sink push failed", "doc", d.id, "seq", snap.Seq, "err", err)
		}
	}
}
