package query

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rcsbsync/internal/services"
)

// Query is one stored search document, named after its file stem. The
// document bytes are submitted to the search service as-is apart from the
// pagination window.
type Query struct {
	Name     string
	Path     string
	Document []byte
}

// Load reads every .json document under dir, sorted by name. A missing or
// unreadable queries directory is a configuration failure: without query
// documents there is nothing to synchronize against.
func Load(dir string) ([]Query, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "query", "load",
				fmt.Sprintf("queries directory %s does not exist", dir), nil)
		}
		return nil, services.Wrap(services.ErrConfiguration, "query", "load", dir, err)
	}

	var queries []Query
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		loaded, err := LoadOne(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		queries = append(queries, loaded)
	}
	sort.Slice(queries, func(i, j int) bool { return queries[i].Name < queries[j].Name })
	return queries, nil
}

// LoadOne reads a single query document.
func LoadOne(path string) (Query, error) {
	document, err := os.ReadFile(path)
	if err != nil {
		return Query{}, services.Wrap(services.ErrConfiguration, "query", "load", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	if strings.TrimSpace(name) == "" {
		return Query{}, services.Wrap(services.ErrConfiguration, "query", "load",
			fmt.Sprintf("cannot derive a query name from %s", path), nil)
	}
	return Query{Name: name, Path: path, Document: document}, nil
}
