// Package ranking implements the quality gate and the deterministic score
// pipeline used to order candidates within a category.
//
// A score is built in a fixed order: base metrics, the day's strategy,
// the category personality, a hash-derived variety jitter and finally the
// repeat penalty for recently shown items. Every stage is a pure function
// of its inputs so identical runs on the same date rank identically.
package ranking
