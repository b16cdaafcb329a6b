package intelligence

import (
	"sort"

	"github.com/yungbote/clinrecord-backend/internal/domain"
)

// trajectoryEpsilon: slopes within this band (normalized points per day)
// count as stable.
const trajectoryEpsilon = 0.05

// normalizeScore maps every supported scale onto 0-100 with 100 = best
// function, so KPS and mRS points can sit on one curve.
func normalizeScore(typ domain.FunctionalScoreType, raw float64) (float64, bool) {
	switch typ {
	case domain.ScoreKPS:
		if raw < 0 || raw > 100 {
			return 0, false
		}
		return raw, true
	case domain.ScoreECOG:
		if raw < 0 || raw > 5 {
			return 0, false
		}
		return 100 - raw*20, true
	case domain.ScoreMRS:
		if raw < 0 || raw > 6 {
			return 0, false
		}
		return 100 - raw*(100.0/6.0), true
	case domain.ScoreGCS:
		if raw < 3 || raw > 15 {
			return 0, false
		}
		return (raw - 3) / 12 * 100, true
	case domain.ScoreASIA:
		// Stored as 0..4 for grades A..E.
		if raw < 0 || raw > 4 {
			return 0, false
		}
		return raw / 4 * 100, true
	}
	return 0, false
}

// buildFunctionalEvolution produces the chronological normalized series and
// classifies the trajectory from the sign of a least-squares slope.
func buildFunctionalEvolution(rec domain.ExtractedRecord) domain.FunctionalEvolution {
	evo := domain.FunctionalEvolution{Trajectory: domain.TrajectoryUnknown}

	for _, fs := range rec.FunctionalScores {
		if !fs.DateResolved {
			continue
		}
		norm, ok := normalizeScore(fs.Type, fs.Value)
		if !ok {
			continue
		}
		evo.Points = append(evo.Points, domain.FunctionalPoint{
			Type: fs.Type, Raw: fs.Value, Normalized: norm, Date: fs.Date,
		})
	}
	if len(evo.Points) == 0 {
		return evo
	}
	sort.SliceStable(evo.Points, func(a, b int) bool {
		return evo.Points[a].Date.Before(evo.Points[b].Date)
	})
	if len(evo.Points) == 1 {
		evo.Trajectory = domain.TrajectoryStable
		return evo
	}

	evo.Slope = regressionSlope(evo.Points)
	switch {
	case evo.Slope > trajectoryEpsilon:
		evo.Trajectory = domain.TrajectoryImproving
	case evo.Slope < -trajectoryEpsilon:
		evo.Trajectory = domain.TrajectoryDeclining
	default:
		evo.Trajectory = domain.TrajectoryStable
	}
	return evo
}

// regressionSlope: ordinary least squares over (days since first point,
// normalized score).
func regressionSlope(points []domain.FunctionalPoint) float64 {
	n := float64(len(points))
	t0 := points[0].Date
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := p.Date.Sub(t0).Hours() / 24
		y := p.Normalized
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
