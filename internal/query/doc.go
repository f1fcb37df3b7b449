// Package query loads stored search documents and generates them from a
// project manifest. Stored documents are opaque to the sync engine apart
// from the pagination window the resolver overrides; the builder exists so
// a project can declare taxa once instead of hand-writing search JSON.
package query
