// Package config loads, normalizes, and validates Marquee configuration.
//
// It supplies defaults (including the built-in category table), expands
// user paths with tilde shortcuts, reads TOML files, and honours environment
// fallbacks such as TMDB_API_KEY. Invalid settings, like a negative
// category capacity, are rejected here so a catalog run never starts with a
// configuration it cannot honour.
package config
