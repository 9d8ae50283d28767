// Package main hosts the Marquee CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the nightly catalog update, inspects the
// persisted catalog and recent history, previews the weekday rotation, edits
// the manual classification table, and scaffolds configuration. It
// centralizes configuration resolution, store access, and logging setup so
// subcommands stay small.
//
// Keep this package lean: new behavior lands in internal packages first and
// is surfaced here through commands or flags.
package main
