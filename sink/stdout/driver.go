// prettify/sink/stdout/driver.go
package stdout

import (
	"fmt"
	"io"
	"os"
	"sync"

	"prettify/internal/pipeline"
	"prettify/sink"
)

/* ────────── config ────────── */
type Config struct {
	PrintCounter  bool      `yaml:"print_counter"`   // prepend a running counter
	PrintValue    bool      `yaml:"print_value"`     // print the formatted text
	ValueMaxBytes int       `yaml:"value_max_bytes"` // 0 = unlimited
	Writer        io.Writer `yaml:"-"`               // defaults to os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config

	mu  sync.Mutex // guards n and writes
	n   uint64
	out io.Writer
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.cfg = c
	d.out = c.Writer
	if d.out == nil {
		d.out = os.Stdout
	}
	return nil
}

func (d *driver) Push(doc string, snap pipeline.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.out == nil {
		d.out = os.Stdout
	}
	d.n++

	status := "ok"
	if snap.Err != nil {
		status = "error: " + snap.Err.Error()
	}
	if d.cfg.PrintCounter {
		fmt.Fprintf(d.out, "[sink %06d] %s@%d %s\n", d.n, doc, snap.Seq, status)
	} else {
		fmt.Fprintf(d.out, "[sink] %s@%d %s\n", doc, snap.Seq, status)
	}

	if d.cfg.PrintValue {
		v := snap.Output
		if limit := d.cfg.ValueMaxBytes; limit > 0 && len(v) > limit {
			v = v[:limit] + "…"
		}
		fmt.Fprintln(d.out, v)
	}
	return nil
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
