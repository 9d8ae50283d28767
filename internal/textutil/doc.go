// Package textutil provides small string helpers shared by configuration and
// the CLI: category code normalization, display names derived from codes,
// and width-bounded truncation for table output.
package textutil
