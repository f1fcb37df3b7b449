package main

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"rcsbsync/internal/query"
)

func TestSelectQueriesKeepsOrder(t *testing.T) {
	all := []query.Query{
		{Name: "A__exp"},
		{Name: "B__exp"},
		{Name: "C__exp"},
	}

	selected, err := selectQueries(all, []string{"C__exp", "A__exp"})
	if err != nil {
		t.Fatalf("selectQueries: %v", err)
	}
	if len(selected) != 2 || selected[0].Name != "A__exp" || selected[1].Name != "C__exp" {
		t.Fatalf("expected on-disk order of selection, got %v", selected)
	}
}

func TestSelectQueriesEmptySelectsAll(t *testing.T) {
	all := []query.Query{{Name: "A__exp"}, {Name: "B__exp"}}

	selected, err := selectQueries(all, nil)
	if err != nil {
		t.Fatalf("selectQueries: %v", err)
	}
	if len(selected) != len(all) {
		t.Fatalf("expected all queries, got %d", len(selected))
	}
}

func TestSelectQueriesUnknownName(t *testing.T) {
	all := []query.Query{{Name: "A__exp"}}

	if _, err := selectQueries(all, []string{"Nope__exp"}); err == nil {
		t.Fatal("expected unknown query error")
	}
}

func TestPromptApproval(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"Y\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}
	for _, tc := range cases {
		var out bytes.Buffer
		got := promptApproval(bufio.NewReader(strings.NewReader(tc.input)), &out)
		if got != tc.want {
			t.Fatalf("promptApproval(%q) = %v, want %v", tc.input, got, tc.want)
		}
		if !strings.Contains(out.String(), "[y/N]") {
			t.Fatalf("expected prompt text, got %q", out.String())
		}
	}
}

func TestFormatIDs(t *testing.T) {
	if got := formatIDs(nil, 4); got != "" {
		t.Fatalf("empty list should format empty, got %q", got)
	}
	if got := formatIDs([]string{"1ABC", "2DEF"}, 4); got != "1ABC 2DEF" {
		t.Fatalf("short list should join plainly, got %q", got)
	}
	if got := formatIDs([]string{"1ABC", "2DEF", "3GHI"}, 2); got != "1ABC 2DEF +1 more" {
		t.Fatalf("long list should truncate, got %q", got)
	}
}

func TestExitStatusCarriesCode(t *testing.T) {
	err := exitStatus(2, "finished with failures")
	var status *exitStatusError
	if !errors.As(err, &status) {
		t.Fatalf("expected exitStatusError, got %T", err)
	}
	if status.code != 2 || status.Error() != "finished with failures" {
		t.Fatalf("unexpected status %d %q", status.code, status.Error())
	}
}
