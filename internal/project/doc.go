// Package project models one sync project on disk: the directory layout
// (queries, per-query data directories, the dated identifier cache,
// reports), the TOML manifest that generated queries come from, the
// cross-process run lock, and the per-directory ledger of identifiers the
// remote service reported missing.
package project
