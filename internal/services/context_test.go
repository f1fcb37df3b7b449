package services_test

import (
	"context"
	"testing"

	"rcsbsync/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithQuery(ctx, "Homo_sapiens__exp")
	ctx = services.WithIdentifier(ctx, "1ABC")
	ctx = services.WithRunID(ctx, "run-123")

	if q, ok := services.QueryFromContext(ctx); !ok || q != "Homo_sapiens__exp" {
		t.Fatalf("unexpected query: %v %v", q, ok)
	}
	if id, ok := services.IdentifierFromContext(ctx); !ok || id != "1ABC" {
		t.Fatalf("unexpected identifier: %v %v", id, ok)
	}
	if rid, ok := services.RunIDFromContext(ctx); !ok || rid != "run-123" {
		t.Fatalf("unexpected run id: %v %v", rid, ok)
	}
}

func TestQueryBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithQuery(ctx, "")
	if _, ok := services.QueryFromContext(ctx); ok {
		t.Fatal("expected no query value")
	}
}
