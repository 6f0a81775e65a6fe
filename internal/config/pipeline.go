package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"prettify/internal/spec"
)

const SupportedSchema = "v1"

// LoadPipelineSpec parses a pipeline YAML, validates schema_version, fills
// defaults and returns the parsed spec and an absolute path to the source
// config (if set). A relative sqlite DSN is resolved the same way.
func LoadPipelineSpec(path string) (spec.File, string, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, "", err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, "", err
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, "", fmt.Errorf("pipeline schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}
	Defaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, "", err
	}

	base := filepath.Dir(path)
	if cfg.Storage.Driver == "sqlite" && !filepath.IsAbs(cfg.Storage.DSN) {
		cfg.Storage.DSN = filepath.Join(base, cfg.Storage.DSN)
	}
	confPath := cfg.Source.Config
	if confPath != "" && !filepath.IsAbs(confPath) {
		confPath = filepath.Join(base, confPath)
	}
	return cfg, confPath, nil
}

// Defaults fills the in-process engine, concurrent workers and an in-memory
// store wherever the spec is silent.
func Defaults(cfg *spec.File) {
	if cfg.Engine.Type == "" {
		cfg.Engine.Type = "inproc"
	}
	if cfg.Worker.Policy == "" {
		cfg.Worker.Policy = "concurrent"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "memory"
	}
	if cfg.Storage.Driver == "sqlite" && cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "prettify.db"
	}
}

func Validate(cfg spec.File) error {
	switch cfg.Engine.Type {
	case "inproc":
	case "grpc":
		if cfg.Engine.Address == "" {
			return fmt.Errorf("engine: grpc requires an address")
		}
	default:
		return fmt.Errorf("engine: unsupported type %q", cfg.Engine.Type)
	}
	switch cfg.Storage.Driver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage: unsupported driver %q", cfg.Storage.Driver)
	}
	if cfg.Source.Kind != "" && cfg.Source.Kind != "kafka" {
		return fmt.Errorf("source: unsupported kind %q", cfg.Source.Kind)
	}
	return nil
}
