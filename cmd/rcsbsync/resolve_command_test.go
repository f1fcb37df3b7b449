package main

import (
	"strings"
	"testing"
)

func TestResolveCommandSummarizesCatalog(t *testing.T) {
	env := setupCLIEnv(t)
	env.addQuery(t, "Homo_sapiens__exp")
	env.catalog.SetIDs("1ABC", "2DEF", "9XYZ")

	stdout, _, err := runCLI(t, env, "resolve")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, stdout, "Homo_sapiens__exp")
	requireContains(t, stdout, "3")
	requireContains(t, stdout, "ok")
}

func TestResolveCommandPrintsIdentifiers(t *testing.T) {
	env := setupCLIEnv(t)
	env.addQuery(t, "Homo_sapiens__exp")
	env.catalog.SetIDs("2DEF", "1ABC")

	stdout, _, err := runCLI(t, env, "resolve", "--ids")
	if err != nil {
		t.Fatalf("resolve --ids: %v", err)
	}
	requireContains(t, stdout, "1ABC\n")
	requireContains(t, stdout, "2DEF\n")
}

func TestResolveCommandSelectsSingleQuery(t *testing.T) {
	env := setupCLIEnv(t)
	env.addQuery(t, "Homo_sapiens__exp")
	env.addQuery(t, "Mus_musculus__exp")
	env.catalog.SetIDs("1ABC")

	stdout, _, err := runCLI(t, env, "resolve", "Mus_musculus__exp")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	requireContains(t, stdout, "Mus_musculus__exp")
	if strings.Contains(stdout, "Homo_sapiens__exp") {
		t.Fatalf("unselected query should not appear, got %q", stdout)
	}
}
