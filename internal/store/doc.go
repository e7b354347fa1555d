// Package store provides SQLite-backed persistence for folio's
// incremental-compilation state.
//
// The store keeps the state of the previous run:
//   - Checksums: full/content/attribute fingerprints per object reference
//   - Dependencies: "compiling X read property P of Y" edges
//   - Action sequences: the serialized sequence per rep and layout
//   - Outdated: references known to be outdated (crash safety)
//   - Output paths: files written per rep, used by the pruner
//   - Runs: one row per pipeline run (run ID, stage reached, outcome)
//
// # Lifecycle
//
// State is loaded in full when the pipeline starts and saved in full, each
// table inside one transaction, at the pre- and post-compilation stage
// boundaries. A save replaces the table's contents; nothing is written
// earlier, so the previous run's state stays available for comparison.
//
// The database runs in WAL mode with a five second busy timeout.
// All queries order by their primary key so loads are deterministic.
package store
