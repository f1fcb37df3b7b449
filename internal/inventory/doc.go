// Package inventory derives the on-disk state of a query's data directory:
// which identifiers are present, whether each is active or marked obsolete,
// and which files look suspicious (zero length). It also owns the
// obsolete-marking rename, the only mutation the sync engine performs on
// files it did not just download.
package inventory
