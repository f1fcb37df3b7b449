// Package rcsb provides HTTP clients for the RCSB search and download
// services: a paginated search client that resolves stored query documents
// into identifier sets, and a rate-limited file client that downloads
// individual structure files with bounded retries and atomic writes.
package rcsb
