// Package errors defines the sentinel errors shared across kinvault.
//
// Callers wrap these with fmt.Errorf and %w so the edges (CLI, tests) can
// classify failures with errors.Is. Storage failures are not given a
// sentinel; they propagate wrapped from database/sql.
package errors
