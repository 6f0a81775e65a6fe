package engine

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"prettify/internal/logging"
	"prettify/source/kafka"
)

const shutdownGrace = 5 * time.Second

type Engine struct {
	pipeline *Pipeline
	http     *http.Server
	lis      net.Listener
	tracing  func(context.Context) error
}

func (e *Engine) Addr() net.Addr { return e.lis.Addr() }

// Run serves until ctx is done, then drains HTTP and closes the pipeline.
func (e *Engine) Run(ctx context.Context) error {
	if src := e.pipeline.Source; src != nil {
		hub := e.pipeline.Hub
		go func() {
			err := src.Run(ctx, func(ed kafka.Edit) error {
				_, err := hub.Edit(ctx, ed.Document, ed.Text)
				return err
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.L().Error("engine: source stopped", "err", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = e.http.Shutdown(sctx)
	}()

	err := e.http.Serve(e.lis)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if cerr := e.pipeline.Close(); cerr != nil {
		logging.L().Warn("engine: pipeline close", "err", cerr)
	}
	if e.tracing != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		_ = e.tracing(sctx)
		cancel()
	}
	return err
}
