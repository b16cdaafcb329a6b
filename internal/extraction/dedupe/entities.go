package dedupe

import (
	"sort"
	"time"

	"github.com/yungbote/clinrecord-backend/internal/domain"
	"github.com/yungbote/clinrecord-backend/internal/normalization"
)

// EntityWindow is how close two dated mentions of the same entity must sit
// to collapse into one canonical event.
const EntityWindow = 24 * time.Hour

// DedupeEntities collapses repeated mentions of the same clinical event
// into a canonical mention per group. Runs after temporal resolution so
// date proximity is meaningful. Returns the surviving mentions plus the
// groups the merger uses to fold confidence.
func (s *Service) DedupeEntities(mentions []domain.EntityMention) ([]domain.EntityMention, []domain.DeduplicationGroup) {
	byKind := map[domain.EntityKind][]int{}
	for i, m := range mentions {
		byKind[m.Kind] = append(byKind[m.Kind], i)
	}

	canonical := make([]domain.EntityMention, 0, len(mentions))
	var groups []domain.DeduplicationGroup

	for _, idxs := range byKind {
		sort.SliceStable(idxs, func(a, b int) bool {
			return mentions[idxs[a]].Date.Before(mentions[idxs[b]].Date)
		})
		used := make([]bool, len(idxs))
		for a := 0; a < len(idxs); a++ {
			if used[a] {
				continue
			}
			lead := mentions[idxs[a]]
			group := domain.DeduplicationGroup{CanonicalEventID: lead.ID}
			members := []domain.EntityMention{lead}

			for b := a + 1; b < len(idxs); b++ {
				if used[b] {
					continue
				}
				cand := mentions[idxs[b]]
				if !sameEntity(lead, cand) {
					continue
				}
				used[b] = true
				members = append(members, cand)
				group.DuplicateMentionIDs = append(group.DuplicateMentionIDs, cand.ID)
			}

			merged := mergeGroup(members)
			canonical = append(canonical, merged)
			if len(members) > 1 {
				group.SimilarityScore = groupSimilarity(members)
				groups = append(groups, group)
			}
		}
	}

	sort.SliceStable(canonical, func(a, b int) bool {
		return canonical[a].Date.Before(canonical[b].Date)
	})
	s.log.Debug("entity dedup done", "mentions", len(mentions), "canonical", len(canonical), "groups", len(groups))
	return canonical, groups
}

// sameEntity: matching normalized names plus date proximity (or an explicit
// reference classification from temporal resolution).
func sameEntity(a, b domain.EntityMention) bool {
	if !normalization.SameEntityName(a.Name, b.Name) {
		return false
	}
	if b.IsReference || a.IsReference {
		return true
	}
	if a.Kind == domain.KindFunctionalScore && a.ScoreValue != b.ScoreValue {
		return false
	}
	if a.Kind == domain.KindMedication {
		// Same drug at a different dose is a regimen change, not a repeat.
		if a.Dose != "" && b.Dose != "" && a.Dose != b.Dose {
			return false
		}
	}
	if !a.DateResolved || !b.DateResolved {
		return true
	}
	gap := b.Date.Sub(a.Date)
	if gap < 0 {
		gap = -gap
	}
	if a.Kind == domain.KindMedication {
		// A stable regimen restated across daily notes is one entity.
		return true
	}
	return gap <= EntityWindow
}

// mergeGroup keeps the most informative member as the canonical record and
// folds the rest into its confidence and detail fields.
func mergeGroup(members []domain.EntityMention) domain.EntityMention {
	best := members[0]
	for _, m := range members[1:] {
		if informativeness(m) > informativeness(best) {
			id := best.ID
			best = m
			best.ID = id // canonical keeps the lead mention's identity
		}
	}
	for _, m := range members {
		if m.Dose != "" && best.Dose == "" {
			best.Dose = m.Dose
		}
		if m.Frequency != "" && best.Frequency == "" {
			best.Frequency = m.Frequency
		}
		if m.Route != "" && best.Route == "" {
			best.Route = m.Route
		}
		if m.Severity != "" && best.Severity == "" {
			best.Severity = m.Severity
		}
		if m.ResolvedFlag {
			best.ResolvedFlag = true
		}
		if m.DateResolved && (!best.DateResolved || m.Date.Before(best.Date)) {
			// Earliest resolved date is the event date.
			best.Date, best.DateResolved = m.Date, true
		}
	}
	if n := len(members); n > 1 {
		conf := best.Confidence + 0.05*float64(n-1)
		if conf > 0.95 {
			conf = 0.95
		}
		best.Confidence = conf
	}
	return best
}

func informativeness(m domain.EntityMention) int {
	score := 0
	if m.DateResolved {
		score += 4
	}
	if m.Dose != "" {
		score++
	}
	if m.Frequency != "" {
		score++
	}
	if m.Severity != "" {
		score++
	}
	if !m.IsReference {
		score += 2
	}
	score += len(m.Sentence) / 200
	return score
}

func groupSimilarity(members []domain.EntityMention) float64 {
	// Name-identical groups score 1.0; partial-token matches slightly lower.
	lead := normalization.EntityName(members[0].Name)
	same := 0
	for _, m := range members {
		if normalization.EntityName(m.Name) == lead {
			same++
		}
	}
	return float64(same) / float64(len(members))
}
