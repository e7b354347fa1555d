// Package site holds the data model compiled by folio.
//
// A site starts life as a Draft: mutable items, layouts and config that the
// data source loads and the preprocess hook may edit. Freeze turns the draft
// into a Site whose Item and Layout types expose getters only, so nothing
// can change an object once compilation has started.
//
// Item representations (ItemRep) are created fresh each run and collected
// in a RepRepository. Compiling code never touches items directly; it reads
// them through views (ItemView, RepView, ...) that report every property
// read to a Tracker, which is how dependency edges are recorded.
package site
