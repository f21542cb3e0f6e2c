// Package pipeline runs a chain of named steps connected by channels.
//
// A pipeline has one root step producing elements, ordered steps transforming them with bounded
// concurrency, and a sink consuming them. An ordered step may finish elements in any order but
// always emits them in the order it received them: completed elements wait in a sequencer until
// every earlier element has been emitted. The number of elements admitted but not yet emitted is
// bounded by the step window, so a slow consumer slows the producer down instead of filling memory.
//
// The pipeline stops on the first error. The remaining steps are cancelled through the pipeline
// context, and Run reports the error that caused the stop rather than the cancellations it
// triggered.
package pipeline
