// Package pipeline reconciles asynchronous transform responses into a single
// current output.
//
// A Controller stamps every input change with a sequence number through its
// Correlator, hands the request to a Runtime, and applies a response only if
// it answers the most recently issued request. Older responses are dropped no
// matter when they arrive, so the published output never regresses to a
// superseded input. Superseded work is not aborted; its result is ignored.
package pipeline
