package handlers

import (
	"testing"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

func TestResolveOptions_NilKeepsDefaults(t *testing.T) {
	got := resolveOptions(nil)
	want := domain.DefaultExtractOptions()
	if got != want {
		t.Fatalf("resolveOptions(nil) = %+v, want defaults %+v", got, want)
	}
}

func TestResolveOptions_PartialBodyKeepsUnnamedDefaults(t *testing.T) {
	threshold := 0.9
	got := resolveOptions(&ExtractOptionsInput{QualityThreshold: &threshold})

	if !got.EnablePreprocessing {
		t.Fatalf("expected EnablePreprocessing to stay true")
	}
	if !got.EnableDeduplication {
		t.Fatalf("expected EnableDeduplication to stay true")
	}
	if got.MaxRefinementIterations != 2 {
		t.Fatalf("MaxRefinementIterations = %d, want default 2", got.MaxRefinementIterations)
	}
	if got.QualityThreshold != 0.9 {
		t.Fatalf("QualityThreshold = %v, want 0.9", got.QualityThreshold)
	}
}

func TestResolveOptions_ExplicitFalseOverridesDefault(t *testing.T) {
	off := false
	iters := 5
	got := resolveOptions(&ExtractOptionsInput{
		EnableDeduplication:     &off,
		UseLLM:                  &off,
		MaxRefinementIterations: &iters,
	})

	if got.EnableDeduplication {
		t.Fatalf("expected EnableDeduplication false")
	}
	if got.UseLLM == nil || *got.UseLLM {
		t.Fatalf("expected UseLLM explicitly false, got %v", got.UseLLM)
	}
	if !got.EnablePreprocessing {
		t.Fatalf("expected EnablePreprocessing to stay true")
	}
	if got.MaxRefinementIterations != 5 {
		t.Fatalf("MaxRefinementIterations = %d, want 5", got.MaxRefinementIterations)
	}
}
