// Package transform defines the engine-side view of a formatting worker.
// Runtimes hold a transform.Client and do not care whether the engine runs
// in-process or behind gRPC.
package transform
