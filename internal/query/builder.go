package query

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rcsbsync/internal/services"
)

// Kind selects which catalog population a generated query covers.
type Kind string

const (
	// KindExperimental targets experimentally determined structures.
	KindExperimental Kind = "exp"
	// KindComputed targets AlphaFold computed structure models.
	KindComputed Kind = "csm"
)

const defaultRows = 10000

// Spec describes one query to generate.
type Spec struct {
	Taxon string
	Kind  Kind
	Rows  int
}

// Name derives the query name: the taxon with spaces collapsed to
// underscores plus a kind suffix, e.g. Homo_sapiens__exp.
func (s Spec) Name() string {
	return strings.ReplaceAll(strings.TrimSpace(s.Taxon), " ", "_") + "__" + string(s.Kind)
}

type terminalParams struct {
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"`
	Negation  bool   `json:"negation"`
	Value     string `json:"value"`
}

type terminal struct {
	Type       string         `json:"type"`
	Service    string         `json:"service"`
	Parameters terminalParams `json:"parameters"`
	Label      string         `json:"label,omitempty"`
}

type group struct {
	Type            string `json:"type"`
	LogicalOperator string `json:"logical_operator"`
	Nodes           []any  `json:"nodes"`
	Label           string `json:"label,omitempty"`
}

type paginate struct {
	Start int `json:"start"`
	Rows  int `json:"rows"`
}

type sortRule struct {
	SortBy    string `json:"sort_by"`
	Direction string `json:"direction"`
}

type requestOptions struct {
	Paginate           paginate   `json:"paginate"`
	ResultsContentType []string   `json:"results_content_type"`
	Sort               []sortRule `json:"sort"`
	ScoringStrategy    string     `json:"scoring_strategy"`
}

type document struct {
	Query          any            `json:"query"`
	ReturnType     string         `json:"return_type"`
	RequestOptions requestOptions `json:"request_options"`
}

func organismNode(taxon string) terminal {
	return terminal{
		Type:    "terminal",
		Service: "text",
		Parameters: terminalParams{
			Attribute: "rcsb_entity_source_organism.taxonomy_lineage.name",
			Operator:  "contains_phrase",
			Value:     taxon,
		},
	}
}

func alphaFoldNode() terminal {
	return terminal{
		Type:    "terminal",
		Service: "text",
		Parameters: terminalParams{
			Attribute: "rcsb_comp_model_provenance.source_db",
			Operator:  "exact_match",
			Value:     "AlphaFoldDB",
		},
	}
}

// Build renders the search document for spec. Experimental queries match
// the taxon alone; computed queries additionally pin the model provenance
// to AlphaFoldDB and restrict the content type to computational results.
func Build(spec Spec) ([]byte, error) {
	taxon := strings.TrimSpace(spec.Taxon)
	if taxon == "" {
		return nil, services.Wrap(services.ErrConfiguration, "query", "build", "taxon required", nil)
	}
	if strings.ContainsAny(taxon, `/\`) {
		return nil, services.Wrap(services.ErrConfiguration, "query", "build",
			fmt.Sprintf("taxon %q contains path separators", taxon), nil)
	}
	rows := spec.Rows
	if rows <= 0 {
		rows = defaultRows
	}

	var (
		node        any
		contentType []string
	)
	switch spec.Kind {
	case KindExperimental:
		organism := organismNode(taxon)
		organism.Label = "text"
		node = organism
		contentType = []string{"experimental"}
	case KindComputed:
		node = group{
			Type:            "group",
			LogicalOperator: "and",
			Nodes:           []any{alphaFoldNode(), organismNode(taxon)},
			Label:           "text",
		}
		contentType = []string{"computational"}
	default:
		return nil, services.Wrap(services.ErrConfiguration, "query", "build",
			fmt.Sprintf("unknown query kind %q", spec.Kind), nil)
	}

	doc := document{
		Query:      node,
		ReturnType: "entry",
		RequestOptions: requestOptions{
			Paginate:           paginate{Start: 0, Rows: rows},
			ResultsContentType: contentType,
			Sort:               []sortRule{{SortBy: "score", Direction: "desc"}},
			ScoringStrategy:    "combined",
		},
	}
	return json.MarshalIndent(doc, "", "  ")
}

// SpecsFor expands a manifest's taxa into one experimental spec per taxon,
// plus one computed spec per taxon when csm is set.
func SpecsFor(taxa []string, csm bool) []Spec {
	var specs []Spec
	for _, taxon := range taxa {
		specs = append(specs, Spec{Taxon: taxon, Kind: KindExperimental})
	}
	if csm {
		for _, taxon := range taxa {
			specs = append(specs, Spec{Taxon: taxon, Kind: KindComputed})
		}
	}
	return specs
}

// Generate writes each spec's document under dir, overwriting previous
// generations, and returns the written queries in spec order.
func Generate(dir string, specs []Spec) ([]Query, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "query", "generate", dir, err)
	}
	queries := make([]Query, 0, len(specs))
	for _, spec := range specs {
		doc, err := Build(spec)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, spec.Name()+".json")
		if err := os.WriteFile(path, doc, 0o644); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "query", "generate", path, err)
		}
		queries = append(queries, Query{Name: spec.Name(), Path: path, Document: doc})
	}
	return queries, nil
}
