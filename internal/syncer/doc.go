// Package syncer makes each query's local data directory match the remote
// catalog. Per query it resolves the remote identifier set, scans what is
// on disk, diffs the two, then marks vanished records obsolete and
// downloads the missing ones. The plan is recomputed from the filesystem
// on every run, so an interrupted run resumes without checkpoint files.
package syncer
