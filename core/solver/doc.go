// Package solver submits a declarative model to an optimization engine and
// collects its outcome. Engines are opaque: they only see a *cp.Model and a
// set of hints, and report a Status with an optional solution.
package solver
