package kafka

import (
	"fmt"
	"sync"
)

// Factory builds an Adapter (e.g., SaramaDriver).
type Factory func() Adapter

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register is called from main() or a driver's init().
func Register(name string, f Factory) {
	mu.Lock()
	registry[name] = f
	mu.Unlock()
}

// NewAdapter returns a driver by name ("sarama", ...).
func NewAdapter(name string) (Adapter, error) {
	mu.RLock()
	f, ok := registry[name]
	mu.RUnlock()
	if ok {
		return f(), nil
	}
	return nil, fmt.Errorf("kafka: unsupported driver %q", name)
}
