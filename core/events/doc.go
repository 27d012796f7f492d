// Package events defines the run lifecycle events emitted on the event bus.
//
// Available event types:
//   - ModelBuilt: a model was declared for an instance
//   - SolveStarted: a model was submitted to an engine
//   - SolveFinished: the engine returned a status
//   - SolverFaulted: the engine failed
package events
