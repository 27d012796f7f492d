// Package cp defines the declarative scheduling model handed to solver
// engines: optional interval variables, alternatives, cumulative pulse
// capacities, state functions bounded over intervals, presence and
// precedence links, and a linear objective over interval costs.
//
// The Declarer interface is the capability set model builders write to.
// Model is the in-memory implementation read back by engines; it can be
// exported as text or JSON for inspection.
package cp
