package spec

import "gopkg.in/yaml.v3"

// sinkConfigs keeps each block raw; the sink's own Config type decodes it.
type sinkConfigs struct {
	Kafka  yaml.Node `yaml:"kafka"`
	Stdout yaml.Node `yaml:"stdout"`
}

// EngineSpec selects the transform engine the workers call.
type EngineSpec struct {
	Type        string `yaml:"type"`    // "inproc" or "grpc"
	Address     string `yaml:"address"` // e.g. "localhost:50051"
	TimeoutMS   int    `yaml:"timeout_ms"`
	RetryPolicy struct {
		Attempts  int `yaml:"attempts"`
		BackoffMS int `yaml:"backoff_ms"`
	} `yaml:"retry_policy"`
}

type WorkerSpec struct {
	Policy      string `yaml:"policy"` // "concurrent" or "serial"
	MaxInFlight int    `yaml:"max_in_flight"`
}

type StorageSpec struct {
	Driver string `yaml:"driver"` // "memory" or "sqlite"
	DSN    string `yaml:"dsn"`
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Engine  EngineSpec  `yaml:"engine"`
	Worker  WorkerSpec  `yaml:"worker"`
	Storage StorageSpec `yaml:"storage"`

	// Source is optional; without it documents arrive over HTTP only.
	Source struct {
		Kind   string `yaml:"kind"`
		Driver string `yaml:"driver"`
		Config string `yaml:"config"`
	} `yaml:"source"`

	Sinks       []string    `yaml:"sinks"`
	SinkConfigs sinkConfigs `yaml:"sink_configs"`
}
