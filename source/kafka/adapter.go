package kafka

import "context"

// Edit is one full snapshot of a document's input.
type Edit struct {
	Document string
	Text     string
}

type EmitFunc func(Edit) error

type Adapter interface {
	Configure(Config) error
	Run(context.Context, EmitFunc) error
	Close() error
}
