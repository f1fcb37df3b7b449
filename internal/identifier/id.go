package identifier

import (
	"fmt"
	"strings"
)

const (
	// Ext is the extension shared by every local data file.
	Ext = ".pdb.gz"
	// ObsoleteSuffix marks a local file whose record left the remote result set.
	ObsoleteSuffix = ".obsolete"

	computedPrefix  = "AF_AF"
	alphaFoldSuffix = "-model_v4.pdb"
)

// Normalize validates a raw identifier and returns its canonical form:
// uppercase for experimental entry IDs, unchanged for computed-model IDs.
func Normalize(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("identifier is empty")
	}
	if strings.HasPrefix(strings.ToUpper(id), computedPrefix) {
		id = strings.ToUpper(id)
		if _, _, err := splitComputed(id); err != nil {
			return "", err
		}
		return id, nil
	}
	id = strings.ToUpper(id)
	if len(id) != 4 {
		return "", fmt.Errorf("identifier %q: entry IDs are 4 characters", raw)
	}
	if id[0] < '1' || id[0] > '9' {
		return "", fmt.Errorf("identifier %q: entry IDs start with a nonzero digit", raw)
	}
	for _, r := range id[1:] {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("identifier %q: invalid character %q", raw, r)
		}
	}
	return id, nil
}

// IsComputed reports whether id names a computed structure model rather than
// an experimental entry.
func IsComputed(id string) bool {
	return strings.HasPrefix(id, computedPrefix)
}

// Filename returns the local data filename for id, always gzip-compressed.
func Filename(id string) (string, error) {
	id, err := Normalize(id)
	if err != nil {
		return "", err
	}
	if IsComputed(id) {
		name, err := AlphaFoldFile(id)
		if err != nil {
			return "", err
		}
		return name + ".gz", nil
	}
	return id + Ext, nil
}

// AlphaFoldFile returns the filename AlphaFold publishes for a computed-model
// identifier, e.g. "AF-P08437-F1-model_v4.pdb" for "AF_AFP08437F1".
func AlphaFoldFile(id string) (string, error) {
	uniprot, fragment, err := splitComputed(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("AF-%s-F%s%s", uniprot, fragment, alphaFoldSuffix), nil
}

// FromFilename decodes a data-directory entry back to its identifier and
// obsolete flag. It fails on names that do not follow the local convention.
func FromFilename(name string) (id string, obsolete bool, err error) {
	base := strings.TrimSpace(name)
	if base == "" {
		return "", false, fmt.Errorf("filename is empty")
	}
	if strings.HasSuffix(base, ObsoleteSuffix) {
		obsolete = true
		base = strings.TrimSuffix(base, ObsoleteSuffix)
	}
	if !strings.HasSuffix(base, Ext) {
		return "", obsolete, fmt.Errorf("filename %q: missing %s extension", name, Ext)
	}
	stem := strings.TrimSuffix(base, Ext)
	if strings.HasPrefix(stem, "AF-") {
		id, err = fromAlphaFoldStem(stem)
		if err != nil {
			return "", obsolete, err
		}
		return id, obsolete, nil
	}
	id, err = Normalize(stem)
	if err != nil {
		return "", obsolete, fmt.Errorf("filename %q: %w", name, err)
	}
	return id, obsolete, nil
}

// splitComputed breaks "AF_AFP08437F1" into uniprot "P08437" and fragment "1".
// The fragment number follows the last "F" in the tail.
func splitComputed(id string) (uniprot, fragment string, err error) {
	if !strings.HasPrefix(id, computedPrefix) {
		return "", "", fmt.Errorf("identifier %q: not a computed-model ID", id)
	}
	tail := strings.TrimPrefix(id, computedPrefix)
	cut := strings.LastIndex(tail, "F")
	if cut <= 0 || cut == len(tail)-1 {
		return "", "", fmt.Errorf("identifier %q: malformed computed-model ID", id)
	}
	uniprot, fragment = tail[:cut], tail[cut+1:]
	for _, r := range fragment {
		if r < '0' || r > '9' {
			return "", "", fmt.Errorf("identifier %q: fragment %q is not numeric", id, fragment)
		}
	}
	return uniprot, fragment, nil
}

// fromAlphaFoldStem decodes "AF-P08437-F1-model_v4" (extension already
// stripped) back to "AF_AFP08437F1".
func fromAlphaFoldStem(stem string) (string, error) {
	stem = strings.TrimSuffix(stem, "-model_v4")
	parts := strings.Split(stem, "-")
	if len(parts) != 3 || parts[0] != "AF" || !strings.HasPrefix(parts[2], "F") {
		return "", fmt.Errorf("filename stem %q: not an AlphaFold name", stem)
	}
	return computedPrefix + parts[1] + parts[2], nil
}
