// Package tmdb wraps the TMDB v3 endpoints the catalog pipeline needs:
// paged discovery by genre and per-movie details with credits.
//
// Every request passes through a token-bucket limiter and a circuit
// breaker, and transient failures (network errors, 429, 5xx) are retried
// with exponential backoff. A 429 honours Retry-After.
package tmdb
