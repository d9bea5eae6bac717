// Package frame extracts sentinel-delimited payloads from an unstructured byte
// stream and streams them into a Sink with bounded memory.
//
// A frame looks like
//
//	...noise...#START#<payload>#END#...noise...
//
// The receiver holds at most Config.BufferSize bytes at any time. Noise before
// a start sentinel is truncated, and long payloads are flushed to the sink in
// halves while the end sentinel is awaited.
package frame
