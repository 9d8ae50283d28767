// Package update runs the nightly catalog pipeline: acquire the run lock,
// load the previous catalog and history, fetch candidates, assemble the
// snapshot, enrich it, and persist every record. Only a failure to write
// the catalog itself fails the run; secondary records are logged and left
// for the next run.
package update
