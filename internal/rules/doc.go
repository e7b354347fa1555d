// Package rules turns user rules into action sequences.
//
// A Collection holds three ordered rule lists: compile rules (what to do
// with an item rep), routing rules (where each snapshot is written) and
// layout rules (which filter renders a layout). Rule bodies are plain Go
// functions that run against a RecordingContext, which records Filter,
// Layout and Snapshot actions instead of performing them.
//
// The Calculator applies the rules to a rep or layout and normalizes the
// recorded actions into an ir.ActionSequence: implicit raw/pre/last
// snapshots, compaction of adjacent snapshots and routed paths.
package rules
