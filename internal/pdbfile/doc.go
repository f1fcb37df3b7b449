// Package pdbfile reads the header records of landed structure files so
// listings can show what a structure is without shipping a full format
// parser. Only the leading fixed-column records are interpreted; the body
// is never read.
package pdbfile
