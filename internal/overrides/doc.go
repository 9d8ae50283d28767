// Package overrides loads the manual classification table: a user-edited
// file that pins movie ids to category codes ahead of scoring. The file may
// be JSON (an array, an {"overrides": [...]} wrapper, or a {"classified":
// {id: code}} map) or YAML, chosen by extension. The table re-reads the
// file whenever its modification time changes.
package overrides
