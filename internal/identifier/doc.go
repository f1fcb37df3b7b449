// Package identifier normalizes RCSB record identifiers and owns the filename
// convention used by the local data directories.
//
// Two identifier families exist:
//   - Experimental entry IDs: four characters, leading digit (e.g. "1ABC").
//   - Computed structure models from AlphaFold: "AF_AF<uniprot>F<fragment>"
//     (e.g. "AF_AFP08437F1"), which map to AlphaFold's on-disk naming
//     "AF-P08437-F1-model_v4.pdb".
//
// Local files are always gzip-compressed and named "<file>.pdb.gz"; a trailing
// ".obsolete" suffix marks records that have disappeared from the remote
// result set. Encoding and decoding of that convention happens only here, so
// the rest of the system works with explicit identifiers and states instead of
// string suffix checks.
package identifier
