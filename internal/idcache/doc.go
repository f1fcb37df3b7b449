// Package idcache persists resolved Remote ID Sets, one file per query and
// calendar date.
//
// The cache bounds remote search load to at most one full pagination sequence
// per query per day: the resolver consults the cache before touching the
// network and writes a new dated entry after a successful resolution. Entries
// are plain text, one identifier per line, named "<query>_<YYYY-MM-DD>.txt"
// under the project's _ids_cache directory. Entries are never mutated once
// written; the next day's resolution adds a new file and prior snapshots
// accumulate as history.
//
// The mapping from (query, date) to a cache path is injectable so tests can
// pin the calendar date instead of reading the system clock.
package idcache
