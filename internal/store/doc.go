// Package store persists catalog state in a single SQLite file.
//
// Every record is a JSON blob under a string key, which mirrors the key
// layout consumers of the catalog expect: the current snapshot, the snapshot
// the last run merged against, run metadata, recent history, and a TTL-bound
// cache of detail records. Writes retry on SQLITE_BUSY so the CLI can read
// while an update is running.
package store
