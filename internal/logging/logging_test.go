package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestConfigure_JSONToWriter(t *testing.T) {
	prev := L()
	defer def.Store(prev)

	var buf bytes.Buffer
	Configure(Options{Level: "warn", JSON: true, Output: &buf})

	L().Info("hidden")
	L().Warn("shown", "doc", "a")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked past warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"doc":"a"`) {
		t.Fatalf("unexpected json output: %s", out)
	}
}
