package engine

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"prettify/internal/config"
	"prettify/internal/document"
	"prettify/internal/logging"
	"prettify/internal/spec"
	"prettify/internal/storage"
	"prettify/internal/storage/memory"
	"prettify/internal/storage/sqlite"
	"prettify/internal/telemetry"
	"prettify/internal/transform"
	"prettify/internal/worker"
	"prettify/internal/xmlfmt"
	"prettify/sink"
	ksink "prettify/sink/kafka"
	"prettify/sink/stdout"
	"prettify/source/kafka"
)

// Pipeline is everything a pipeline spec compiles into. Close releases it
// in reverse order of construction.
type Pipeline struct {
	Hub    *document.Hub
	Client transform.Client
	Store  storage.Store
	Source kafka.Adapter // nil when documents only arrive over HTTP
}

func (p *Pipeline) Close() error {
	if p.Source != nil {
		_ = p.Source.Close()
	}
	err := p.Hub.Close()
	_ = p.Store.Close()
	_ = p.Client.Close()
	return err
}

// Compile loads the spec at path and builds its pipeline.
func Compile(ctx context.Context, path string, m *telemetry.Metrics) (*Pipeline, error) {
	cfg, confPath, err := config.LoadPipelineSpec(path)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg, confPath, m)
}

// Build wires an already loaded spec. On error everything built so far is
// released.
func Build(ctx context.Context, cfg spec.File, confPath string, m *telemetry.Metrics) (p *Pipeline, err error) {
	var (
		cli   transform.Client
		store storage.Store
		sinks []sink.Adapter
	)
	defer func() {
		if err == nil {
			return
		}
		for _, s := range sinks {
			_ = s.Close()
		}
		if store != nil {
			_ = store.Close()
		}
		if cli != nil {
			_ = cli.Close()
		}
	}()

	if cli, err = newClient(ctx, cfg.Engine); err != nil {
		return nil, err
	}
	if store, err = newStore(cfg.Storage); err != nil {
		return nil, err
	}
	if sinks, err = newSinks(cfg); err != nil {
		return nil, err
	}
	newRuntime, err := runtimeFactory(cli, cfg, m)
	if err != nil {
		return nil, err
	}

	hub := document.NewHub(newRuntime,
		document.WithStore(store),
		document.WithSinks(sinks...),
		document.WithMetrics(m),
	)
	p = &Pipeline{Hub: hub, Client: cli, Store: store}

	if cfg.Source.Kind == "kafka" {
		kc, kerr := config.LoadKafkaConfig(confPath)
		if kerr != nil {
			_ = hub.Close()
			return nil, kerr
		}
		src, kerr := kafka.NewAdapter(cfg.Source.Driver)
		if kerr == nil {
			kerr = src.Configure(kc)
		}
		if kerr != nil {
			_ = hub.Close()
			return nil, fmt.Errorf("source: %w", kerr)
		}
		p.Source = src
	}
	return p, nil
}

func newClient(ctx context.Context, e spec.EngineSpec) (transform.Client, error) {
	switch e.Type {
	case "inproc":
		return transform.NewInProcessClient(xmlfmt.Engine{}), nil
	case "grpc":
		cli, err := transform.NewGRPCClient(e.Address)
		if err != nil {
			return nil, fmt.Errorf("engine: dial %s: %w", e.Address, err)
		}
		// An unreachable worker is not fatal; requests fail as unavailable
		// until it comes up.
		hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := cli.Health(hctx); err != nil {
			logging.L().Warn("engine: worker not healthy yet", "address", e.Address, "err", err)
		}
		return cli, nil
	default:
		return nil, fmt.Errorf("engine: unsupported type %q", e.Type)
	}
}

func newStore(s spec.StorageSpec) (storage.Store, error) {
	switch s.Driver {
	case "memory":
		return memory.New(), nil
	case "sqlite":
		st, err := sqlite.New(s.DSN)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", s.Driver)
	}
}

func newSinks(cfg spec.File) ([]sink.Adapter, error) {
	var out []sink.Adapter
	for _, name := range cfg.Sinks {
		drv, err := sink.NewAdapter(name)
		if err != nil {
			return out, err
		}

		switch name {
		case "stdout":
			var c stdout.Config
			if err = decode(&cfg.SinkConfigs.Stdout, &c); err == nil {
				err = drv.Configure(c)
			}
		case "kafka":
			var c ksink.Config
			if err = decode(&cfg.SinkConfigs.Kafka, &c); err == nil {
				err = drv.Configure(c)
			}
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return out, fmt.Errorf("sink %s: %w", name, err)
		}
		out = append(out, drv)
	}
	return out, nil
}

func decode(n *yaml.Node, into any) error {
	if n.Kind == 0 {
		return nil
	}
	return n.Decode(into)
}

func runtimeFactory(cli transform.Client, cfg spec.File, m *telemetry.Metrics) (func() document.Runtime, error) {
	policy, err := worker.ParsePolicy(cfg.Worker.Policy)
	if err != nil {
		return nil, err
	}
	opts := []worker.Option{
		worker.WithPolicy(policy),
		worker.WithMetrics(m),
		worker.WithMaxInFlight(cfg.Worker.MaxInFlight),
		worker.WithTimeout(time.Duration(cfg.Engine.TimeoutMS) * time.Millisecond),
		worker.WithRetry(cfg.Engine.RetryPolicy.Attempts,
			time.Duration(cfg.Engine.RetryPolicy.BackoffMS)*time.Millisecond),
	}
	return func() document.Runtime { return worker.New(cli, opts...) }, nil
}
