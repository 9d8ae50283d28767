// Package source turns TMDB into catalog candidates and enriches published
// items with display metadata.
//
// Fetcher follows the day's discover plan for every genre-backed category
// and tops up pages when too few unseen items came back. Enricher resolves
// details for the items that made it into the snapshot, caching each detail
// record in the store for a bounded time.
package source
