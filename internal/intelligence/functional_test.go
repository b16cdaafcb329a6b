package intelligence

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

func TestNormalizeScore_MapsEveryScaleOntoCommonCurve(t *testing.T) {
	cases := []struct {
		typ  domain.FunctionalScoreType
		raw  float64
		want float64
	}{
		{domain.ScoreKPS, 70, 70},
		{domain.ScoreECOG, 2, 60},
		{domain.ScoreMRS, 3, 50},
		{domain.ScoreGCS, 7, 100.0 / 3.0},
		{domain.ScoreASIA, 2, 50},
	}
	for _, tc := range cases {
		got, ok := normalizeScore(tc.typ, tc.raw)
		if !ok {
			t.Fatalf("%s %v: unexpectedly out of range", tc.typ, tc.raw)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s %v: want %v, got %v", tc.typ, tc.raw, tc.want, got)
		}
	}
}

func TestNormalizeScore_RejectsOutOfRangeValues(t *testing.T) {
	if _, ok := normalizeScore(domain.ScoreGCS, 2); ok {
		t.Fatalf("GCS below 3 is not a valid score")
	}
	if _, ok := normalizeScore(domain.ScoreKPS, 120); ok {
		t.Fatalf("KPS above 100 is not a valid score")
	}
	if _, ok := normalizeScore(domain.FunctionalScoreType("FIM"), 50); ok {
		t.Fatalf("unsupported scales must not normalize")
	}
}

func fscore(typ domain.FunctionalScoreType, v float64, d int) domain.FunctionalScore {
	return domain.FunctionalScore{
		ID: uuid.New(), Type: typ, Value: v, Date: day(d), DateResolved: true, Confidence: 0.8,
	}
}

func TestBuildFunctionalEvolution_RisingScoresImprove(t *testing.T) {
	rec := domain.ExtractedRecord{FunctionalScores: []domain.FunctionalScore{
		fscore(domain.ScoreKPS, 70, 11),
		fscore(domain.ScoreKPS, 40, 1),
	}}
	evo := buildFunctionalEvolution(rec)
	if len(evo.Points) != 2 {
		t.Fatalf("expected 2 points, got %+v", evo.Points)
	}
	if !evo.Points[0].Date.Before(evo.Points[1].Date) {
		t.Fatalf("points must be chronological")
	}
	if math.Abs(evo.Slope-3.0) > 1e-9 {
		t.Fatalf("30 points over 10 days is slope 3, got %v", evo.Slope)
	}
	if evo.Trajectory != domain.TrajectoryImproving {
		t.Fatalf("expected improving, got %s", evo.Trajectory)
	}
}

func TestBuildFunctionalEvolution_FallingScoresDecline(t *testing.T) {
	rec := domain.ExtractedRecord{FunctionalScores: []domain.FunctionalScore{
		fscore(domain.ScoreGCS, 14, 1),
		fscore(domain.ScoreGCS, 8, 5),
	}}
	evo := buildFunctionalEvolution(rec)
	if evo.Trajectory != domain.TrajectoryDeclining {
		t.Fatalf("expected declining, got %s (slope %v)", evo.Trajectory, evo.Slope)
	}
}

func TestBuildFunctionalEvolution_SinglePointIsStable(t *testing.T) {
	rec := domain.ExtractedRecord{FunctionalScores: []domain.FunctionalScore{
		fscore(domain.ScoreKPS, 60, 4),
	}}
	evo := buildFunctionalEvolution(rec)
	if evo.Trajectory != domain.TrajectoryStable || len(evo.Points) != 1 {
		t.Fatalf("one point reads as stable, got %+v", evo)
	}
}

func TestBuildFunctionalEvolution_FlatSeriesIsStable(t *testing.T) {
	rec := domain.ExtractedRecord{FunctionalScores: []domain.FunctionalScore{
		fscore(domain.ScoreKPS, 60, 1),
		fscore(domain.ScoreKPS, 60, 8),
	}}
	evo := buildFunctionalEvolution(rec)
	if evo.Trajectory != domain.TrajectoryStable || evo.Slope != 0 {
		t.Fatalf("flat series should be stable with zero slope, got %+v", evo)
	}
}

func TestBuildFunctionalEvolution_UndatedScoresExcluded(t *testing.T) {
	undated := domain.FunctionalScore{ID: uuid.New(), Type: domain.ScoreKPS, Value: 50, Confidence: 0.8}
	rec := domain.ExtractedRecord{FunctionalScores: []domain.FunctionalScore{undated}}
	evo := buildFunctionalEvolution(rec)
	if len(evo.Points) != 0 || evo.Trajectory != domain.TrajectoryUnknown {
		t.Fatalf("undated scores cannot form a trajectory, got %+v", evo)
	}
}

func TestBuildFunctionalEvolution_MixedScalesShareTheCurve(t *testing.T) {
	rec := domain.ExtractedRecord{FunctionalScores: []domain.FunctionalScore{
		fscore(domain.ScoreGCS, 9, 1), // 50 normalized
		fscore(domain.ScoreKPS, 90, 15),
	}}
	evo := buildFunctionalEvolution(rec)
	if evo.Trajectory != domain.TrajectoryImproving {
		t.Fatalf("cross-scale rise should improve, got %+v", evo)
	}
}
