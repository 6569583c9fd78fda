// Package engine implements the pairsort interactive merge engine.
//
// The engine produces a total order over a fixed set of items using only
// pairwise decisions supplied by a human. It runs a bottom-up merge sort
// whose control flow is explicit data instead of a suspended call stack,
// so the sort can be paused, persisted and resumed at any decision.
//
// ARCHITECTURE:
//
// Pull-Based Decisions:
// The engine never calls out to a comparator. The caller asks for the next
// pair with NextComparison, shows it however it likes, and feeds the
// winner back with ApplyDecision. NextComparison is pure, so a restarted
// process re-derives the same pending pair from restored state.
//
// Merge Plan:
// Sorting proceeds in passes. Pass 0 pairs the singleton runs in input
// order; every later pass pairs the runs produced by the previous one. An
// odd run out is carried to the end of the next pass's run list. A pass is
// only planned once every task of the current pass is sealed. When one run
// remains the engine is Done.
//
// Decision Log:
// Every applied decision pushes a log entry holding exactly what is needed
// to rewind it. Undo pops one entry. The log is unbounded, so every
// decision since construction can be undone in reverse order.
//
// CRITICAL PATTERNS:
//
// Sealed Runs Are Immutable:
// Once a task seals, its output run is never reordered or revisited, even
// if later decisions contradict earlier ones. Global transitivity is not
// checked; inconsistent preferences yield whatever the merge structure
// produces.
//
// Determinism:
// No randomness, no maps in engine state, no wall clock. The same input
// list and the same decision sequence always yield the same result.
//
// The engine is single-threaded and performs no I/O. Persistence is the
// caller's job: take a Snapshot after each accepted decision.
package engine
