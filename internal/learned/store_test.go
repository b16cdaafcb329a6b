package learned

import (
	"context"
	"errors"
	"testing"

	redisclient "github.com/yungbote/clinrecord-backend/internal/clients/redis"
	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/pkg/logger"
)

type fakeSource struct {
	data map[string][]redisclient.StoredPattern
	err  error
}

func (f *fakeSource) LoadAll(context.Context) (map[string][]redisclient.StoredPattern, error) {
	return f.data, f.err
}

func (f *fakeSource) Close() error { return nil }

func TestStore_RefreshGroupsByPathology(t *testing.T) {
	src := &fakeSource{data: map[string][]redisclient.StoredPattern{
		"vascular:procedure": {
			{ID: "p1", Field: "procedure", Expr: `(?i)\bcranioplasty\b`, Canonical: "cranioplasty", Specificity: 0.9},
		},
		"vascular:complication": {
			{ID: "c1", Field: "complication", Expr: `(?i)\brebleed(ing)?\b`, Canonical: "rebleeding", Specificity: 0.8},
		},
		"tumor:procedure": {
			{ID: "p2", Field: "procedure", Expr: `(?i)\bawake craniotomy\b`, Specificity: 0.85},
		},
	}}
	store := NewStore(logger.NewNop(), src)
	store.Refresh(context.Background())

	vascular := store.Get(domain.KnownPathology(domain.PathologyVascular))
	if len(vascular) != 2 {
		t.Fatalf("expected 2 vascular patterns, got %+v", vascular)
	}
	tumor := store.Get(domain.KnownPathology(domain.PathologyTumor))
	if len(tumor) != 1 || tumor[0].Kind != domain.KindProcedure {
		t.Fatalf("expected 1 tumor procedure pattern, got %+v", tumor)
	}
	if got := store.Get(domain.KnownPathology(domain.PathologyTrauma)); got != nil {
		t.Fatalf("unknown pathology should return nil, got %+v", got)
	}
}

func TestStore_UnknownFieldSkipped(t *testing.T) {
	src := &fakeSource{data: map[string][]redisclient.StoredPattern{
		"vascular:medication": {
			{ID: "m1", Field: "medication", Expr: `(?i)\bmilrinone\b`},
		},
	}}
	store := NewStore(logger.NewNop(), src)
	store.Refresh(context.Background())
	if got := store.Get(domain.KnownPathology(domain.PathologyVascular)); len(got) != 0 {
		t.Fatalf("unsupported fields must not load, got %+v", got)
	}
}

func TestStore_FailedRefreshKeepsPreviousSnapshot(t *testing.T) {
	src := &fakeSource{data: map[string][]redisclient.StoredPattern{
		"vascular:procedure": {
			{ID: "p1", Field: "procedure", Expr: `(?i)\bcranioplasty\b`},
		},
	}}
	store := NewStore(logger.NewNop(), src)
	store.Refresh(context.Background())

	src.data, src.err = nil, errors.New("redis down")
	store.Refresh(context.Background())

	if got := store.Get(domain.KnownPathology(domain.PathologyVascular)); len(got) != 1 {
		t.Fatalf("failed refresh should keep the last good snapshot, got %+v", got)
	}
}

func TestStore_NilSourceIsInert(t *testing.T) {
	store := NewStore(logger.NewNop(), nil)
	store.Refresh(context.Background())
	if got := store.Get(domain.KnownPathology(domain.PathologyVascular)); got != nil {
		t.Fatalf("nil source store should stay empty, got %+v", got)
	}
}

func TestExtraRules_PrefixesLearnedIDs(t *testing.T) {
	src := &fakeSource{data: map[string][]redisclient.StoredPattern{
		"vascular:procedure": {
			{ID: "p1", Field: "procedure", Expr: `(?i)\bcranioplasty\b`, Canonical: "cranioplasty", Specificity: 0.9},
		},
	}}
	store := NewStore(logger.NewNop(), src)
	store.Refresh(context.Background())

	rules := store.ExtraRules(domain.KnownPathology(domain.PathologyVascular))
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %+v", rules)
	}
	r := rules[0]
	if r.ID != "learned.p1" || r.Kind != domain.KindProcedure || r.Canonical != "cranioplasty" {
		t.Fatalf("unexpected rule: %+v", r)
	}
}
