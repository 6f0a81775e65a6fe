// Command prettify formats one XML document from a file or stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"prettify/internal/logging"
	"prettify/internal/pipeline"
	"prettify/internal/transform"
	"prettify/internal/worker"
	"prettify/internal/xmlfmt"
)

func main() {
	addr := flag.String("worker", "", "format on a prettify-worker at this address instead of in process")
	timeout := flag.Duration("timeout", 10*time.Second, "give up after this long")
	flag.Parse()
	logging.InitFromEnv()

	in, err := readInput(flag.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, "prettify:", err)
		os.Exit(2)
	}

	var cli transform.Client = transform.NewInProcessClient(xmlfmt.Engine{})
	if *addr != "" {
		if cli, err = transform.NewGRPCClient(*addr); err != nil {
			fmt.Fprintln(os.Stderr, "prettify:", err)
			os.Exit(2)
		}
	}
	defer cli.Close()

	snap, err := run(cli, in, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "prettify:", err)
		os.Exit(1)
	}
	fmt.Println(snap.Output)
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}

// run pushes one input through a controller and returns once it settles.
func run(engine transform.Engine, text string, timeout time.Duration) (pipeline.Snapshot, error) {
	rt := worker.New(engine, worker.WithPolicy(worker.Serial))
	defer rt.Close()

	done := make(chan pipeline.Snapshot, 1)
	ctrl := pipeline.NewController(rt)
	ctrl.Subscribe(func(s pipeline.Snapshot) { done <- s })
	ctrl.OnInputChanged(text)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case s := <-done:
		return s, s.Err
	case <-ctx.Done():
		return ctrl.Snapshot(), ctx.Err()
	}
}
