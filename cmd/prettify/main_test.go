package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"prettify/internal/xmlfmt"
)

func TestRun_FormatsAndReportsFailure(t *testing.T) {
	s, err := run(xmlfmt.Engine{}, "<a><b>t</b></a>", time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if s.Output != "\n<a>\n  <b>t</b>\n</a>" {
		t.Fatalf("output = %q", s.Output)
	}

	if _, err := run(xmlfmt.Engine{}, "<a>", time.Second); !errors.Is(err, xmlfmt.ErrMalformed) {
		t.Fatalf("err = %v, want malformed", err)
	}
}

func TestReadInput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.xml")
	if err := os.WriteFile(path, []byte("<x/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := readInput(path)
	if err != nil || got != "<x/>" {
		t.Fatalf("readInput = %q, %v", got, err)
	}
}
