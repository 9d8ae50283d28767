// Package catalog defines the shared data model of the catalog engine.
//
// Candidates arrive from the content source, category specs come from
// configuration, and snapshots are the engine's output. Snapshots persist
// between runs so that the next run can blend fresh picks with yesterday's
// list. The package also owns canonical identity resolution and the rolling
// recent-history set that drives the repeat penalty.
package catalog
