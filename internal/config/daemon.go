package config

import (
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Daemon holds process-level settings that do not belong in a pipeline spec.
type Daemon struct {
	Spec        string `koanf:"spec"`
	HTTPAddr    string `koanf:"http_addr"`
	MetricsPort int    `koanf:"metrics_port"` // 0 disables /metrics
	Tracing     bool   `koanf:"tracing"`
	Service     string `koanf:"service"`
}

// LoadDaemon reads PRETTIFY_* env vars (PRETTIFY_HTTP_ADDR -> http_addr).
// Logging variables are handled by the logging package and ignored here.
func LoadDaemon() (Daemon, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("PRETTIFY_", "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PRETTIFY_"))
	}), nil); err != nil {
		return Daemon{}, err
	}

	d := Daemon{
		Spec:     "pipeline.yml",
		HTTPAddr: ":8080",
		Service:  "prettifyd",
	}
	if err := k.Unmarshal("", &d); err != nil {
		return d, err
	}
	return d, nil
}
