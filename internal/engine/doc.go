// Package engine assembles a catalog snapshot from fetched candidates.
//
// A run scores every category in parallel, resolves cross-category
// ownership in a single sequential reduction, then merges each category
// with its previous list in parallel again. The engine performs no I/O:
// callers load candidates, history and the previous snapshot beforehand
// and persist the result afterwards.
package engine
