package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"prettify/internal/config"
	"prettify/internal/spec"
	"prettify/internal/telemetry"
)

func TestBuild_InProcessPipeline(t *testing.T) {
	cfg := spec.File{Sinks: []string{"stdout"}}
	config.Defaults(&cfg)
	cfg.Worker.Policy = "serial"

	p, err := Build(context.Background(), cfg, "", telemetry.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()
	if p.Source != nil {
		t.Fatal("source built without a source block")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := p.Hub.Edit(ctx, "doc", "<r><c/></r>"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	snap, err := p.Hub.Await(ctx, "doc")
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if snap.Output != "\n<r>\n  <c/>\n</r>" {
		t.Fatalf("output = %q", snap.Output)
	}
	rec, err := p.Store.Load(ctx, "doc")
	if err != nil || rec.Output != snap.Output {
		t.Fatalf("stored = %+v, %v", rec, err)
	}
}

func TestBuild_RejectsUnknownSinkAndPolicy(t *testing.T) {
	cfg := spec.File{Sinks: []string{"carrier-pigeon"}}
	config.Defaults(&cfg)
	if _, err := Build(context.Background(), cfg, "", nil); err == nil {
		t.Fatal("expected error for unknown sink")
	}

	cfg = spec.File{}
	config.Defaults(&cfg)
	cfg.Worker.Policy = "lifo"
	if _, err := Build(context.Background(), cfg, "", nil); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestBuild_KafkaSinkRequiresTopic(t *testing.T) {
	cfg := spec.File{Sinks: []string{"kafka"}}
	config.Defaults(&cfg)
	if _, err := Build(context.Background(), cfg, "", nil); err == nil {
		t.Fatal("expected error for kafka sink without topic")
	}
}

func TestEngine_ServesHTTPUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "pipeline.yml")
	yml := []byte(`schema_version: v1
storage: { driver: sqlite, dsn: docs.db }
sinks: [stdout]
sink_configs:
  stdout: { print_counter: true }
`)
	if err := os.WriteFile(specPath, yml, 0o644); err != nil {
		t.Fatalf("write spec: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e, err := bootstrap(ctx, config.Daemon{Spec: specPath, HTTPAddr: "127.0.0.1:0", Service: "test"}, prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	errc := make(chan error, 1)
	go func() { errc <- e.Run(ctx) }()

	base := "http://" + e.Addr().String()
	req, _ := http.NewRequest(http.MethodPut, base+"/documents/a", strings.NewReader("<a><b/></a>"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(base + "/documents/a?wait=5s")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	var doc struct {
		Output string `json:"output"`
	}
	if err := json.Unmarshal(body, &doc); err != nil || doc.Output != "\n<a>\n  <b/>\n</a>" {
		t.Fatalf("document = %s, %v", body, err)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("engine did not shut down")
	}
	if _, err := os.Stat(filepath.Join(dir, "docs.db")); err != nil {
		t.Fatalf("sqlite store not created: %v", err)
	}
}
