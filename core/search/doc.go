// Package search is an exact engine for the scheduling models declared by
// core/formulation. It runs a depth-first branch-and-bound: chains of master
// intervals are branched on their head start and then on the candidate of
// every link, resource loads are tracked per slot, and the power windows of
// every state function are derived at the leaves by dynamic programming over
// the busy segments. A linear relaxation solved with gonum gives the root
// bound.
//
// The engine registers itself under the name "search" in the solver registry.
package search
